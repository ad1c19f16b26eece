package controllers

import (
	"net/http"

	"github.com/jgechelper/backend/api/responses"
	"github.com/jgechelper/backend/api/validators"
	"github.com/jgechelper/backend/internal/uploads"
	pkgerrors "github.com/jgechelper/backend/pkg/errors"
	"github.com/jgechelper/backend/pkg/logger"
)

const (
	fileNameHeader    = "X-File-Name"
	maxFileNameLength = 255
	// bodySlack leaves room for the service to report its own size error.
	bodySlack         = 1 << 20
)

// AdminUpload streams a raw request body into the blob store. The file name
// comes from ?filename= or the X-File-Name header.
func AdminUpload(svc uploads.Service, maxBytes int64, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "upload service unavailable"))
			return
		}
		if maxBytes > 0 {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes+bodySlack)
		}

		name := validators.SanitizeString(r.URL.Query().Get("filename"), maxFileNameLength)
		if name == "" {
			name = validators.SanitizeString(r.Header.Get(fileNameHeader), maxFileNameLength)
		}

		out, err := svc.Upload(r.Context(), uploads.Input{
			Folder:   r.URL.Query().Get("folder"),
			FileName: name,
			Size:     r.ContentLength,
			Body:     r.Body,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, out)
	}
}
