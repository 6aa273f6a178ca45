package api

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	service "github.com/okian/gradelens/internal/app"
	"github.com/okian/gradelens/internal/domain/parser"
	"github.com/okian/gradelens/internal/domain/types"
)

// multipartSlack leaves room for multipart boundaries and part headers on
// top of the CSV payload limit.
const multipartSlack = 64 << 10

// UploadHandler handles dataset uploads.
type UploadHandler struct {
	deps     UploadDependencies
	maxBytes int64
}

// NewUploadHandler creates a new upload handler.
func NewUploadHandler(deps UploadDependencies, maxBytes int64) *UploadHandler {
	return &UploadHandler{deps: deps, maxBytes: maxBytes}
}

// HandleUpload handles POST /upload. The CSV is either the raw request body
// or the multipart form field "file".
func (h *UploadHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	const op = "api.upload"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+multipartSlack)

	src, err := uploadSource(r)
	if err != nil {
		writeUploadError(w, WrapKind(op, ErrBadRequest, err))
		return
	}

	summary, err := h.deps.Load(r.Context(), src)
	if err != nil {
		writeUploadError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// HandleDataset handles GET /dataset (current summary, 404 before any load)
// and DELETE /dataset.
func (h *UploadHandler) HandleDataset(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		summary := h.deps.Summary()
		if summary.DatasetID == "" {
			writeError(w, http.StatusNotFound, "not_found", service.ErrNoData)
			return
		}
		writeJSON(w, http.StatusOK, summary)
	case http.MethodDelete:
		h.deps.Clear(r.Context())
		w.WriteHeader(http.StatusNoContent)
	default:
		http.NotFound(w, r)
	}
}

// uploadSource returns the reader holding the CSV payload.
func uploadSource(r *http.Request) (io.Reader, error) {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || !strings.HasPrefix(mediaType, "multipart/") {
		return r.Body, nil
	}

	mr, err := r.MultipartReader()
	if err != nil {
		return nil, err
	}
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			return nil, errors.New(`multipart body has no "file" field`)
		}
		if err != nil {
			return nil, err
		}
		if part.FormName() == "file" {
			return part, nil
		}
	}
}

// writeUploadError maps pipeline failures to status codes.
func writeUploadError(w http.ResponseWriter, err error) {
	var (
		maxErr   *http.MaxBytesError
		parseErr *parser.ParseError
	)
	switch {
	case errors.Is(err, service.ErrUploadTooLarge), errors.As(err, &maxErr):
		writeError(w, http.StatusRequestEntityTooLarge, "too_large", err)
	case errors.As(err, &parseErr):
		issues := make([]types.RowIssue, len(parseErr.RowErrors))
		for i, re := range parseErr.RowErrors {
			issues[i] = types.RowIssue{Line: re.Line, Message: re.Msg}
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Code:    "parse_error",
			Message: parseErr.Error(),
			Errors:  issues,
		})
	case errors.Is(err, ErrBadRequest), errors.Is(err, service.ErrFileRead):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case errors.Is(err, service.ErrSuperseded):
		writeError(w, http.StatusConflict, "superseded", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}
