package evidence

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/your-org/evidenceflow/internal/sanitizer"
)

// FilesField is the repeatable multipart field carrying evidence files.
const FilesField = "files"

// HTTPHandler exposes REST endpoints for evidence submission.
type HTTPHandler struct {
	service        *Service
	logger         *zap.Logger
	formMemBytes   int64
	requestTimeout time.Duration
	router         chi.Router
}

// NewHTTPHandler constructs the HTTP handler and wires routes.
func NewHTTPHandler(service *Service, logger *zap.Logger, formMemBytes int64, requestTimeout time.Duration) *HTTPHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if requestTimeout <= 0 {
		requestTimeout = 2 * time.Minute
	}
	h := &HTTPHandler{
		service:        service,
		logger:         logger,
		formMemBytes:   formMemBytes,
		requestTimeout: requestTimeout,
	}
	h.buildRouter()
	return h
}

func (h *HTTPHandler) buildRouter() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(h.requestTimeout))

	r.Get("/healthz", h.handleHealth)
	r.Post("/api/v1/evidence", h.handleSubmit)

	h.router = r
}

// Router exposes the configured chi router.
func (h *HTTPHandler) Router() http.Handler {
	return h.router
}

func (h *HTTPHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

func (h *HTTPHandler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	limits := h.service.limits
	if limits.MaxFiles > 0 && limits.MaxFileBytes > 0 {
		// Room for every file plus multipart framing.
		r.Body = http.MaxBytesReader(w, r.Body, int64(limits.MaxFiles)*limits.MaxFileBytes+1<<20)
	}

	if err := r.ParseMultipartForm(h.formMemBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "payload too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll() //nolint:errcheck

	headers := r.MultipartForm.File[FilesField]
	if len(headers) == 0 {
		writeError(w, http.StatusBadRequest, "files field is required")
		return
	}
	if limits.MaxFiles > 0 && len(headers) > limits.MaxFiles {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("at most %d files per submission", limits.MaxFiles))
		return
	}

	uploads := make([]sanitizer.RawUpload, 0, len(headers))
	for _, header := range headers {
		if limits.MaxFileBytes > 0 && header.Size > limits.MaxFileBytes {
			writeError(w, http.StatusRequestEntityTooLarge, "file exceeds max size limit")
			return
		}
		upload, err := readUpload(header)
		if err != nil {
			h.logger.Warn("read multipart file failed", zap.Error(err))
			writeError(w, http.StatusBadRequest, "unreadable file")
			return
		}
		uploads = append(uploads, upload)
	}

	sub, err := h.service.Submit(r.Context(), uploads)
	switch {
	case err == nil:
	case errors.Is(err, ErrNoFiles), errors.Is(err, ErrTooManyFiles):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, ErrFileTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, "file exceeds max size limit")
		return
	default:
		h.logger.Error("evidence submission failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "submission failed")
		return
	}

	writeJSON(w, http.StatusAccepted, sub)
}

func readUpload(header *multipart.FileHeader) (sanitizer.RawUpload, error) {
	file, err := header.Open()
	if err != nil {
		return sanitizer.RawUpload{}, fmt.Errorf("open part: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return sanitizer.RawUpload{}, fmt.Errorf("read part: %w", err)
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return sanitizer.RawUpload{
		Data:     data,
		MimeType: contentType,
		Filename: header.Filename,
	}, nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{
		"error": msg,
	})
}
