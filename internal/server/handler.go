package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	errx "github.com/opsdesk/reportgen/internal/core/error"
	"github.com/opsdesk/reportgen/internal/report/domains"
	"github.com/opsdesk/reportgen/internal/report/model"
	"github.com/opsdesk/reportgen/internal/report/pipeline/export"
	"github.com/opsdesk/reportgen/internal/report/pipeline/session"
	logx "github.com/opsdesk/reportgen/pkg/logger"
)

const (
	// ImageTooLargeMessage is returned when an upload exceeds the configured limit.
	ImageTooLargeMessage = "사진 용량이 너무 큽니다."
	// InvalidSessionMessage is returned for malformed session identifiers.
	InvalidSessionMessage = "세션 ID가 올바르지 않습니다."
	// InvalidBodyMessage is returned when the request body cannot be read.
	InvalidBodyMessage = "요청 형식이 올바르지 않습니다."
)

// ReportService is the pipeline surface the handlers depend on.
type ReportService interface {
	Generate(ctx context.Context, sessionID string, sub model.Submission) (model.GenerationResult, error)
	Read(ctx context.Context, sessionID string, domain model.Domain) (string, error)
	Clear(ctx context.Context, sessionID string, domain model.Domain) error
	Export(ctx context.Context, sessionID string, domain model.Domain) (export.Artifact, error)
	EndSession(ctx context.Context, sessionID string) error
}

type Handler struct {
	reports        ReportService
	maxUploadBytes int64
}

func NewHandler(reports ReportService, maxUploadBytes int64) *Handler {
	return &Handler{reports: reports, maxUploadBytes: maxUploadBytes}
}

// ListDomains handles GET /domains - the form schema of every report type.
func (h *Handler) ListDomains(w http.ResponseWriter, r *http.Request) {
	all := domains.All()
	out := make([]DomainDTO, 0, len(all))
	for _, d := range all {
		out = append(out, toDomainDTO(d))
	}
	h.respondJSON(w, http.StatusOK, out)
}

// StartSession handles POST /sessions.
func (h *Handler) StartSession(w http.ResponseWriter, r *http.Request) {
	id := session.NewID()
	logx.Debug().Str("session_id", id).Msg("Session started")
	h.respondJSON(w, http.StatusCreated, SessionResponse{SessionID: id})
}

// EndSession handles DELETE /sessions/{sessionID}.
func (h *Handler) EndSession(w http.ResponseWriter, r *http.Request) {
	sessionID, err := sessionParam(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if err := h.reports.EndSession(r.Context(), sessionID); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Generate handles POST /sessions/{sessionID}/reports/{domain}.
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	sessionID, err := sessionParam(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	sub, err := h.decodeSubmission(w, r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	sub.Domain = model.Domain(chi.URLParam(r, "domain"))

	res, err := h.reports.Generate(r.Context(), sessionID, sub)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if !res.OK() {
		status := res.Failure.Status
		if status == 0 {
			status = http.StatusBadGateway
		}
		h.respondJSON(w, status, ErrorResponse{
			Error:  res.Failure.Message,
			Kind:   string(res.Failure.Kind),
			Detail: res.Failure.Detail,
		})
		return
	}
	h.respondJSON(w, http.StatusOK, ReportResponse{Domain: sub.Domain, Text: res.Text})
}

// Read handles GET /sessions/{sessionID}/reports/{domain}.
func (h *Handler) Read(w http.ResponseWriter, r *http.Request) {
	sessionID, err := sessionParam(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	domain := model.Domain(chi.URLParam(r, "domain"))
	text, err := h.reports.Read(r.Context(), sessionID, domain)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, ReportResponse{Domain: domain, Text: text})
}

// Clear handles DELETE /sessions/{sessionID}/reports/{domain}.
func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	sessionID, err := sessionParam(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if err := h.reports.Clear(r.Context(), sessionID, model.Domain(chi.URLParam(r, "domain"))); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Export handles GET /sessions/{sessionID}/reports/{domain}/export.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	sessionID, err := sessionParam(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	artifact, err := h.reports.Export(r.Context(), sessionID, model.Domain(chi.URLParam(r, "domain")))
	if err != nil {
		h.respondError(w, err)
		return
	}

	w.Header().Set("Content-Type", artifact.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": artifact.Filename}))
	w.Header().Set("Content-Length", fmt.Sprint(len(artifact.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(artifact.Data)
}

func sessionParam(r *http.Request) (string, error) {
	id := chi.URLParam(r, "sessionID")
	if _, err := uuid.Parse(id); err != nil {
		return "", errx.Validation(InvalidSessionMessage)
	}
	return id, nil
}

// decodeSubmission reads either a multipart form with an optional "image"
// file or a JSON GenerateRequest.
func (h *Handler) decodeSubmission(w http.ResponseWriter, r *http.Request) (model.Submission, error) {
	var sub model.Submission
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	switch ct {
	case "multipart/form-data":
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+1<<20)
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				return sub, errx.Validation(ImageTooLargeMessage)
			}
			return sub, errx.New(errx.KindValidation, err, http.StatusBadRequest, InvalidBodyMessage)
		}
		sub.Fields = make(map[string]string, len(r.MultipartForm.Value))
		for key, values := range r.MultipartForm.Value {
			if len(values) > 0 {
				sub.Fields[key] = values[0]
			}
		}

		file, _, err := r.FormFile("image")
		switch {
		case errors.Is(err, http.ErrMissingFile):
		case err != nil:
			return sub, errx.New(errx.KindValidation, err, http.StatusBadRequest, InvalidBodyMessage)
		default:
			defer file.Close()
			data, err := io.ReadAll(io.LimitReader(file, h.maxUploadBytes+1))
			if err != nil {
				return sub, errx.New(errx.KindValidation, err, http.StatusBadRequest, InvalidBodyMessage)
			}
			if int64(len(data)) > h.maxUploadBytes {
				return sub, errx.Validation(ImageTooLargeMessage)
			}
			sub.Image = data
		}

	case "application/json", "":
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes*2+1<<20)
		var req GenerateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			return sub, errx.New(errx.KindValidation, err, http.StatusBadRequest, InvalidBodyMessage)
		}
		if int64(len(req.Image)) > h.maxUploadBytes {
			return sub, errx.Validation(ImageTooLargeMessage)
		}
		sub.Fields = req.Fields
		sub.Image = req.Image

	default:
		return sub, errx.New(errx.KindValidation, fmt.Errorf("unsupported content type %q", ct), http.StatusUnsupportedMediaType, InvalidBodyMessage)
	}

	for key, value := range sub.Fields {
		sub.Fields[key] = strings.ToValidUTF8(value, "")
	}
	return sub, nil
}

func (h *Handler) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	appErr, ok := errx.From(err)
	if !ok {
		appErr = errx.Internal(err)
	}
	if appErr.Status >= http.StatusInternalServerError {
		logx.Error().Err(err).Str("kind", string(appErr.Kind)).Msg("Request failed")
	}
	resp := ErrorResponse{Error: appErr.Message, Kind: string(appErr.Kind)}
	if appErr.Kind != errx.KindInternal {
		resp.Detail = appErr.Detail()
	}
	h.respondJSON(w, appErr.Status, resp)
}
