package notices

import (
	"context"
	"testing"
	"time"

	"github.com/jgechelper/backend/pkg/db/models"
	"github.com/jgechelper/backend/pkg/enums"
	pkgerrors "github.com/jgechelper/backend/pkg/errors"
	"github.com/jgechelper/backend/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type recordingBlobs struct {
	deleted []string
}

func (r *recordingBlobs) Bucket() string { return "jgec-helper.appspot.com" }

func (r *recordingBlobs) Delete(ctx context.Context, path string) error {
	r.deleted = append(r.deleted, path)
	return nil
}

func setupNoticesTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:notices?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.Migrator().DropTable(&models.Notice{}))
	require.NoError(t, db.AutoMigrate(&models.Notice{}))
	return db
}

func newNoticeService(t *testing.T, blobs *recordingBlobs, clock *time.Time) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Repo:   NewSQLRepository(setupNoticesTestDB(t)),
		Blobs:  blobs,
		Logger: logger.New(logger.Options{ServiceName: "test"}),
		Now:    func() time.Time { return *clock },
	})
	require.NoError(t, err)
	return svc
}

func TestCreateDerivesPriority(t *testing.T) {
	clock := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	svc := newNoticeService(t, &recordingBlobs{}, &clock)
	ctx := context.Background()

	urgent, err := svc.Create(ctx, CreateRequest{Title: "Exam shifted", Category: "Urgent", Description: "See attached"})
	require.NoError(t, err)
	assert.Equal(t, enums.NoticePriorityHigh, urgent.Priority)
	assert.True(t, urgent.Visible)

	general, err := svc.Create(ctx, CreateRequest{Title: "Library hours", Description: "Open till 8"})
	require.NoError(t, err)
	assert.Equal(t, enums.NoticeCategoryGeneral, general.Category)
	assert.Equal(t, enums.NoticePriorityNormal, general.Priority)

	_, err = svc.Create(ctx, CreateRequest{Title: "x", Description: "y", Category: "Sports"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.Create(ctx, CreateRequest{Title: "  ", Description: "y"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestListPublicHidesInvisibleNewestFirst(t *testing.T) {
	clock := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	svc := newNoticeService(t, &recordingBlobs{}, &clock)
	ctx := context.Background()

	first, err := svc.Create(ctx, CreateRequest{Title: "first", Description: "a"})
	require.NoError(t, err)
	clock = clock.Add(time.Hour)
	second, err := svc.Create(ctx, CreateRequest{Title: "second", Description: "b"})
	require.NoError(t, err)
	clock = clock.Add(time.Hour)
	hidden, err := svc.Create(ctx, CreateRequest{Title: "hidden", Description: "c"})
	require.NoError(t, err)
	_, err = svc.ToggleVisibility(ctx, hidden.ID)
	require.NoError(t, err)

	public, err := svc.ListPublic(ctx)
	require.NoError(t, err)
	require.Len(t, public, 2)
	assert.Equal(t, second.ID, public[0].ID)
	assert.Equal(t, first.ID, public[1].ID)

	all, err := svc.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestDeleteCleansAttachment(t *testing.T) {
	clock := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	blobs := &recordingBlobs{}
	svc := newNoticeService(t, blobs, &clock)
	ctx := context.Background()

	withFile, err := svc.Create(ctx, CreateRequest{
		Title:          "Routine",
		Description:    "Attached",
		AttachmentURL:  "https://firebasestorage.googleapis.com/v0/b/jgec-helper.appspot.com/o/notices%2F9_routine.pdf?alt=media&token=x",
		AttachmentName: "routine.pdf",
	})
	require.NoError(t, err)
	plain, err := svc.Create(ctx, CreateRequest{Title: "Plain", Description: "No file"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, withFile.ID))
	require.NoError(t, svc.Delete(ctx, plain.ID))
	assert.Equal(t, []string{"notices/9_routine.pdf"}, blobs.deleted)

	err = svc.Delete(ctx, plain.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}
