package uploads

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"
	"unicode"

	"github.com/jgechelper/backend/pkg/enums"
	pkgerrors "github.com/jgechelper/backend/pkg/errors"
	"github.com/jgechelper/backend/pkg/logger"
	"github.com/jgechelper/backend/pkg/metrics"
	"github.com/jgechelper/backend/pkg/storage/gcs"
)

var errTooLarge = errors.New("upload exceeds size limit")

// Input is one raw upload. Size is the declared length, or -1 when unknown.
type Input struct {
	Folder   string
	FileName string
	Size     int64
	Body     io.Reader
}

// Output is returned to the admin client after the object is stored.
type Output struct {
	URL         string `json:"url"`
	Path        string `json:"path"`
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

type Service interface {
	Upload(ctx context.Context, in Input) (*Output, error)
}

type objectStore interface {
	Upload(ctx context.Context, path, contentType string, r io.Reader) (*gcs.Object, error)
	Delete(ctx context.Context, path string) error
}

type ServiceParams struct {
	Store         objectStore
	MaxBytes      int64
	DefaultFolder string
	Metrics       *metrics.Metrics
	Logger        *logger.Logger
	Now           func() time.Time
}

type service struct {
	store         objectStore
	maxBytes      int64
	defaultFolder enums.UploadFolder
	metrics       *metrics.Metrics
	logg          *logger.Logger
	now           func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Store == nil {
		return nil, fmt.Errorf("object store is required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if params.MaxBytes <= 0 {
		return nil, fmt.Errorf("upload size limit must be positive")
	}
	folder, err := enums.ParseUploadFolder(params.DefaultFolder)
	if err != nil {
		return nil, err
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		store:         params.Store,
		maxBytes:      params.MaxBytes,
		defaultFolder: folder,
		metrics:       params.Metrics,
		logg:          params.Logger,
		now:           now,
	}, nil
}

func (s *service) Upload(ctx context.Context, in Input) (*Output, error) {
	folder := s.defaultFolder
	if raw := strings.TrimSpace(in.Folder); raw != "" {
		f, err := enums.ParseUploadFolder(raw)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "folder must be resources, notices or uploads")
		}
		folder = f
	}
	out, err := s.upload(ctx, folder, in)
	outcome := "ok"
	if err != nil {
		outcome = strings.ToLower(string(pkgerrors.As(err).Code()))
	}
	s.metrics.IncUpload(string(folder), outcome)
	return out, err
}

func (s *service) upload(ctx context.Context, folder enums.UploadFolder, in Input) (*Output, error) {
	fileName := strings.TrimSpace(in.FileName)
	if fileName == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "filename is required")
	}
	if in.Body == nil || in.Size == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "file body is required")
	}
	if in.Size > s.maxBytes {
		return nil, s.tooLarge()
	}

	body := &limitedReader{r: in.Body, remaining: s.maxBytes}
	header := make([]byte, sniffLimit)
	n, err := io.ReadFull(body, header)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		if errors.Is(err, errTooLarge) {
			return nil, s.tooLarge()
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read upload body")
	}
	if n == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "file body is required")
	}
	header = header[:n]

	contentType, ok := detect(folder, header)
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("only %s can be uploaded to %s", allowedDescription(folder), folder)).
			WithDetails(map[string]string{"detected": contentType})
	}

	objectPath := ObjectPath(folder, fileName, s.now())
	ctx = s.logg.WithFields(ctx, map[string]any{"folder": string(folder), "path": objectPath})

	obj, err := s.store.Upload(ctx, objectPath, contentType, io.MultiReader(bytes.NewReader(header), body))
	if err != nil {
		if errors.Is(err, errTooLarge) {
			if delErr := s.store.Delete(ctx, objectPath); delErr != nil && !errors.Is(delErr, gcs.ErrObjectNotFound) {
				s.logg.Warn(ctx, "uploads.partial_cleanup_failed: "+delErr.Error())
			}
			return nil, s.tooLarge()
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store upload")
	}

	s.logg.Info(s.logg.WithField(ctx, "size", obj.Size), "uploads.stored")
	return &Output{
		URL:         obj.URL,
		Path:        obj.Path,
		FileName:    fileName,
		ContentType: contentType,
		Size:        obj.Size,
	}, nil
}

func (s *service) tooLarge() error {
	return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("file must be at most %d MB", s.maxBytes>>20))
}

// ObjectPath builds the unique blob name <folder>/<unixmillis>_<name>.
func ObjectPath(folder enums.UploadFolder, fileName string, at time.Time) string {
	clean := sanitizeFileName(fileName)
	if clean == "" {
		clean = "file"
	}
	return fmt.Sprintf("%s/%d_%s", folder, at.UnixMilli(), clean)
}

func sanitizeFileName(name string) string {
	clean := path.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	if clean == "." || clean == "/" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(clean))
	for _, r := range clean {
		switch {
		case unicode.IsControl(r):
			continue
		case unicode.IsSpace(r):
			b.WriteRune('_')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// limitedReader fails with errTooLarge once more than remaining bytes are read.
type limitedReader struct {
	r         io.Reader
	remaining int64
}

func (l *limitedReader) Read(p []byte) (int, error) {
	if l.remaining < 0 {
		return 0, errTooLarge
	}
	if int64(len(p)) > l.remaining+1 {
		p = p[:l.remaining+1]
	}
	n, err := l.r.Read(p)
	l.remaining -= int64(n)
	if l.remaining < 0 {
		return n, errTooLarge
	}
	return n, err
}
