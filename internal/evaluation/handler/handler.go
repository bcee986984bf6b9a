package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"screener/internal/evaluation"
	"screener/internal/filestore"
	dErrors "screener/pkg/domain-errors"
	"screener/pkg/platform/httputil"
	"screener/pkg/requestcontext"
)

// DefaultMaxUploadBytes caps a whole submission request.
const DefaultMaxUploadBytes = 2 << 20

// multipartMemory is how much of a multipart body is held in memory before
// file parts spill to temp files.
const multipartMemory = 256 << 10

// Service defines the interface for submission evaluation.
type Service interface {
	Submit(ctx context.Context, sub evaluation.Submission) (*evaluation.Outcome, error)
}

// FileStore saves uploaded attachments and discards those no record refers to.
type FileStore interface {
	Save(r io.Reader, filename string) (*filestore.StoredFile, error)
	Remove(name string) error
}

// Handler serves the submission form, the HTML result page and the JSON API.
type Handler struct {
	service        Service
	files          FileStore
	logger         *slog.Logger
	maxUploadBytes int64
	checks         []ReadinessCheck
	readyTimeout   time.Duration
}

// Option configures a Handler.
type Option func(*Handler)

// WithMaxUploadBytes overrides the request size cap.
func WithMaxUploadBytes(n int64) Option {
	return func(h *Handler) {
		if n > 0 {
			h.maxUploadBytes = n
		}
	}
}

// New constructs a handler with its dependencies.
func New(service Service, files FileStore, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{
		service:        service,
		files:          files,
		logger:         logger,
		maxUploadBytes: DefaultMaxUploadBytes,
		readyTimeout:   2 * time.Second,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts the submission and health endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/", h.HandleForm)
	r.Post("/submit", h.HandleSubmitPage)
	r.Post("/api/submit", h.HandleSubmitAPI)
	r.Get("/healthz", h.HandleLive)
	r.Get("/readyz", h.HandleReady)
}

// HandleForm handles GET / by rendering the submission form.
func (h *Handler) HandleForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "index.html", formPage{
		Title:        "Submit a record",
		MaxUploadMiB: h.maxUploadBytes >> 20,
	})
}

// HandleSubmitPage handles POST /submit and renders the result page.
func (h *Handler) HandleSubmitPage(w http.ResponseWriter, r *http.Request) {
	req, result, err := h.submit(w, r)
	if err != nil {
		status := dErrors.HTTPStatus(dErrors.CodeOf(err))
		message := "Your submission could not be processed. Please try again."
		var de *dErrors.Error
		if status != http.StatusInternalServerError && errors.As(err, &de) {
			message = de.Message
		}
		h.render(w, r, status, "error.html", errorPage{Title: "Submission failed", Message: message})
		return
	}
	h.render(w, r, http.StatusOK, "result.html", toResultPage(req.Name, result))
}

// HandleSubmitAPI handles POST /api/submit. The body is either a multipart
// form (optionally with a "file" part) or a JSON SubmitRequest.
func (h *Handler) HandleSubmitAPI(w http.ResponseWriter, r *http.Request) {
	req, result, err := h.submit(w, r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if result.Reason == evaluation.ReasonInvalidFileType {
		httputil.WriteJSON(w, http.StatusBadRequest, toRejectionResponse(result))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toSubmitResponse(req.Name, result))
}

// submit runs intake, stores the attachment and evaluates the submission.
// A disallowed extension yields the invalid-file-type result without
// touching the service. Returned errors carry a domain error code.
func (h *Handler) submit(w http.ResponseWriter, r *http.Request) (SubmitRequest, evaluation.Result, error) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, up, err := h.intake(w, r)
	if r.MultipartForm != nil {
		defer func() { _ = r.MultipartForm.RemoveAll() }()
	}
	if err != nil {
		h.logger.WarnContext(ctx, "submission intake failed",
			"request_id", requestID,
			"error", err,
		)
		return req, evaluation.Result{}, err
	}

	sub := req.toSubmission()
	var stored *filestore.StoredFile
	if up != nil {
		defer up.file.Close()
		if !evaluation.AllowedFile(up.header.Filename) {
			h.logger.InfoContext(ctx, "attachment rejected",
				"request_id", requestID,
				"file_name", up.header.Filename,
			)
			return req, evaluation.InvalidFileTypeResult(), nil
		}
		stored, err = h.files.Save(up.file, up.header.Filename)
		if err != nil {
			h.logger.ErrorContext(ctx, "failed to store attachment",
				"request_id", requestID,
				"error", err,
			)
			return req, evaluation.Result{}, dErrors.Wrap(err, dErrors.CodeInternal, "attachment could not be stored")
		}
		sub.Attachment = &evaluation.Attachment{FileName: up.header.Filename, Content: stored}
	}

	outcome, err := h.service.Submit(ctx, sub)
	if err != nil {
		h.logger.ErrorContext(ctx, "submission failed",
			"request_id", requestID,
			"error", err,
		)
		h.discard(ctx, stored)
		return req, evaluation.Result{}, dErrors.Wrap(err, dErrors.CodeInternal, "submission could not be evaluated")
	}

	h.logger.InfoContext(ctx, "submission handled",
		"request_id", requestID,
		"status", outcome.Result.Status,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return req, outcome.Result, nil
}

// discard removes an upload whose submission never produced a record.
func (h *Handler) discard(ctx context.Context, stored *filestore.StoredFile) {
	if stored == nil {
		return
	}
	if err := h.files.Remove(stored.Name); err != nil {
		h.logger.WarnContext(ctx, "failed to remove orphaned attachment",
			"request_id", requestcontext.RequestID(ctx),
			"stored_name", stored.Name,
			"error", err,
		)
	}
}

// intake reads the submission fields and optional file part. The whole body
// is capped at maxUploadBytes. Missing fields are empty strings.
func (h *Handler) intake(w http.ResponseWriter, r *http.Request) (SubmitRequest, *upload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	var req SubmitRequest
	if isJSON(r) {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return req, nil, h.bodyError(err, "invalid JSON body")
		}
		return req, nil, nil
	}

	err := r.ParseMultipartForm(multipartMemory)
	if errors.Is(err, http.ErrNotMultipart) {
		err = r.ParseForm()
	}
	if err != nil {
		return req, nil, h.bodyError(err, "malformed form body")
	}

	req = SubmitRequest{
		Name:           r.PostForm.Get("name"),
		Email:          r.PostForm.Get("email"),
		SubmissionType: r.PostForm.Get("submission_type"),
		Description:    r.PostForm.Get("description"),
	}
	if r.MultipartForm == nil {
		return req, nil, nil
	}

	file, header, err := r.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) {
		return req, nil, nil
	}
	if err != nil {
		return req, nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "unreadable file part")
	}
	if header.Filename == "" {
		file.Close()
		return req, nil, nil
	}
	return req, &upload{file: file, header: header}, nil
}

func (h *Handler) bodyError(err error, msg string) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return dErrors.Wrap(err, dErrors.CodePayloadTooLarge,
			fmt.Sprintf("request exceeds %d bytes", h.maxUploadBytes))
	}
	return dErrors.Wrap(err, dErrors.CodeBadRequest, msg)
}

func isJSON(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "application/json"
}

// render executes a page into a buffer first so a template failure never
// leaves a half-written response.
func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	var buf bytes.Buffer
	if err := pages.ExecuteTemplate(&buf, name, data); err != nil {
		h.logger.ErrorContext(r.Context(), "template render failed",
			"request_id", requestcontext.RequestID(r.Context()),
			"template", name,
			"error", err,
		)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
