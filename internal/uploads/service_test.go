package uploads

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/jgechelper/backend/pkg/enums"
	pkgerrors "github.com/jgechelper/backend/pkg/errors"
	"github.com/jgechelper/backend/pkg/logger"
	"github.com/jgechelper/backend/pkg/storage/gcs"
)

type memoryStore struct {
	objects map[string][]byte
	types   map[string]string
	deleted []string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{objects: map[string][]byte{}, types: map[string]string{}}
}

func (m *memoryStore) Upload(ctx context.Context, path, contentType string, r io.Reader) (*gcs.Object, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("writing object %s: %w", path, err)
	}
	m.objects[path] = data
	m.types[path] = contentType
	return &gcs.Object{Path: path, URL: "https://files.example/" + path, ContentType: contentType, Size: int64(len(data))}, nil
}

func (m *memoryStore) Delete(ctx context.Context, path string) error {
	m.deleted = append(m.deleted, path)
	return nil
}

var fixedNow = time.UnixMilli(1740816000000)

func newUploadService(t *testing.T, store *memoryStore, maxBytes int64) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Store:    store,
		MaxBytes: maxBytes,
		Logger:   logger.New(logger.Options{ServiceName: "test"}),
		Now:      func() time.Time { return fixedNow },
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func pdfBody(size int) []byte {
	body := []byte("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n")
	return append(body, bytes.Repeat([]byte("0"), size-len(body))...)
}

func TestUploadStoresSniffedPDF(t *testing.T) {
	store := newMemoryStore()
	svc := newUploadService(t, store, 1<<20)
	body := pdfBody(5000)

	out, err := svc.Upload(context.Background(), Input{Folder: "resources", FileName: "DBMS 2023.pdf", Size: int64(len(body)), Body: bytes.NewReader(body)})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	want := "resources/1740816000000_DBMS_2023.pdf"
	if out.Path != want {
		t.Fatalf("expected path %q, got %q", want, out.Path)
	}
	if out.ContentType != "application/pdf" || out.FileName != "DBMS 2023.pdf" {
		t.Fatalf("unexpected output %+v", out)
	}
	if !bytes.Equal(store.objects[want], body) {
		t.Fatalf("stored body does not match upload")
	}
}

func TestUploadRejectsFolderMismatch(t *testing.T) {
	png := append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), bytes.Repeat([]byte{0}, 64)...)
	svc := newUploadService(t, newMemoryStore(), 1<<20)

	_, err := svc.Upload(context.Background(), Input{Folder: "resources", FileName: "scan.png", Size: -1, Body: bytes.NewReader(png)})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected png to be rejected for resources, got %v", err)
	}

	if _, err := svc.Upload(context.Background(), Input{Folder: "notices", FileName: "scan.png", Size: -1, Body: bytes.NewReader(png)}); err != nil {
		t.Fatalf("png should be accepted for notices: %v", err)
	}

	_, err = svc.Upload(context.Background(), Input{Folder: "notices", FileName: "notes.txt", Size: -1, Body: strings.NewReader("plain text")})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected text to be rejected, got %v", err)
	}

	_, err = svc.Upload(context.Background(), Input{Folder: "videos", FileName: "a.pdf", Size: -1, Body: bytes.NewReader(pdfBody(100))})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected unknown folder to be rejected, got %v", err)
	}
}

func TestUploadEnforcesSizeLimit(t *testing.T) {
	store := newMemoryStore()
	svc := newUploadService(t, store, 4096)

	_, err := svc.Upload(context.Background(), Input{FileName: "big.pdf", Size: 10000, Body: bytes.NewReader(pdfBody(10000))})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected declared size to be rejected, got %v", err)
	}

	// unknown length is caught while streaming and the partial object removed
	_, err = svc.Upload(context.Background(), Input{FileName: "big.pdf", Size: -1, Body: bytes.NewReader(pdfBody(10000))})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected streamed size to be rejected, got %v", err)
	}
	if len(store.deleted) != 1 || !strings.HasPrefix(store.deleted[0], string(enums.UploadFolderUploads)+"/") {
		t.Fatalf("expected partial object cleanup, got %v", store.deleted)
	}
}

func TestUploadRequiresNameAndBody(t *testing.T) {
	svc := newUploadService(t, newMemoryStore(), 1<<20)
	if _, err := svc.Upload(context.Background(), Input{Body: bytes.NewReader(pdfBody(100)), Size: -1}); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected filename error, got %v", err)
	}
	if _, err := svc.Upload(context.Background(), Input{FileName: "a.pdf", Size: -1, Body: bytes.NewReader(nil)}); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected empty body error, got %v", err)
	}
}

func TestSanitizeFileName(t *testing.T) {
	cases := map[string]string{
		"../../etc/passwd":     "passwd",
		`C:\docs\Syllabus.pdf`: "Syllabus.pdf",
		"my notes.pdf":         "my_notes.pdf",
		"  ":                   "",
	}
	for in, want := range cases {
		if got := sanitizeFileName(in); got != want {
			t.Fatalf("sanitize %q: expected %q, got %q", in, want, got)
		}
	}
	if got := ObjectPath(enums.UploadFolderNotices, "", fixedNow); got != "notices/1740816000000_file" {
		t.Fatalf("unexpected fallback path %q", got)
	}
}
