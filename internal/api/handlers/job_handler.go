package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kira2406/Veritas/internal/core"
	"github.com/kira2406/Veritas/internal/core/index"
	"github.com/kira2406/Veritas/internal/services"
)

const maxUploadBytes = 32 << 20 // 32 MB

type JobHandler struct {
	svc    *services.IngestService
	logger *zap.Logger
}

func NewJobHandler(svc *services.IngestService, logger *zap.Logger) *JobHandler {
	return &JobHandler{svc: svc, logger: logger}
}

type generalResponse struct {
	Message string `json:"message"`
	Status  string `json:"status"`
	Details any    `json:"details,omitempty"`
}

type failureResponse struct {
	Status string `json:"status"`
	Stage  string `json:"stage,omitempty"`
	Reason string `json:"reason"`
}

// UploadJD handles a multipart ingestion request: job_title, company_id, and
// exactly one of file / raw_text.
func (h *JobHandler) UploadJD(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeFailure(w, http.StatusBadRequest, core.StageInput, "invalid multipart form: "+err.Error())
		return
	}

	in := services.IngestInput{
		Title:     r.FormValue("job_title"),
		CompanyID: r.FormValue("company_id"),
		RawText:   r.FormValue("raw_text"),
	}

	file, header, err := r.FormFile("file")
	switch {
	case err == nil:
		defer file.Close()
		data, readErr := io.ReadAll(file)
		if readErr != nil {
			writeFailure(w, http.StatusBadRequest, core.StageInput, "reading uploaded file: "+readErr.Error())
			return
		}
		in.Document = data
		in.MediaType = header.Header.Get("Content-Type")
	case errors.Is(err, http.ErrMissingFile):
		// raw_text path
	default:
		writeFailure(w, http.StatusBadRequest, core.StageInput, "invalid file upload: "+err.Error())
		return
	}

	rec, err := h.svc.Ingest(r.Context(), in)
	if err != nil {
		h.writeIngestError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, generalResponse{
		Message: "Job Description '" + rec.Title + "' (ID: " + rec.JobID + ") uploaded, processed, and structured successfully.",
		Status:  "success",
		Details: map[string]any{
			"job_id":      rec.JobID,
			"job_title":   rec.Title,
			"company_id":  rec.CompanyID,
			"parsed_data": rec,
		},
	})
}

// GetJob returns the stored index entry for a job id.
func (h *JobHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")

	entry, err := h.svc.Get(r.Context(), jobID)
	if errors.Is(err, core.ErrNotFound) {
		writeFailure(w, http.StatusNotFound, "", "job not found: "+jobID)
		return
	}
	if err != nil {
		h.logger.Error("index lookup failed", zap.String("job_id", jobID), zap.Error(err))
		writeFailure(w, http.StatusInternalServerError, "", "index lookup failed")
		return
	}

	writeJSON(w, http.StatusOK, entry)
}

type searchRequest struct {
	QueryText     string `json:"query_text"`
	RequiredSkill string `json:"required_skill"`
	Limit         int    `json:"limit"`
}

// SearchJobs embeds the query text and runs a metadata-filtered similarity
// query against the index.
func (h *JobHandler) SearchJobs(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFailure(w, http.StatusBadRequest, core.StageInput, "invalid request body: "+err.Error())
		return
	}
	if req.QueryText == "" {
		writeFailure(w, http.StatusBadRequest, core.StageInput, "query_text is required")
		return
	}
	if req.Limit <= 0 {
		req.Limit = 10
	}

	results, err := h.svc.Search(r.Context(), req.QueryText, req.RequiredSkill, req.Limit)
	if err != nil {
		h.logger.Error("search failed", zap.Error(err))
		writeFailure(w, http.StatusBadGateway, "", "search failed")
		return
	}
	if results == nil {
		results = []index.Entry{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

// Health is a basic liveness check.
func (h *JobHandler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeIngestError maps stage-tagged pipeline failures onto HTTP statuses so
// callers can tell input problems from transient service failures.
func (h *JobHandler) writeIngestError(w http.ResponseWriter, err error) {
	var ingestErr *core.IngestError
	if !errors.As(err, &ingestErr) {
		h.logger.Error("ingestion failed", zap.Error(err))
		writeFailure(w, http.StatusInternalServerError, "", "ingestion failed")
		return
	}

	status := http.StatusInternalServerError
	switch ingestErr.Stage {
	case core.StageInput:
		status = http.StatusBadRequest
	case core.StageExtract, core.StageNormalize:
		status = http.StatusUnprocessableEntity
	case core.StageStructure, core.StageEmbed:
		status = http.StatusBadGateway
	case core.StageStore:
		status = http.StatusInternalServerError
	}

	h.logger.Warn("ingestion failed",
		zap.String("stage", string(ingestErr.Stage)),
		zap.Error(ingestErr),
	)
	writeFailure(w, status, ingestErr.Stage, ingestErr.Reason)
}

func writeFailure(w http.ResponseWriter, status int, stage core.Stage, reason string) {
	writeJSON(w, status, failureResponse{Status: "error", Stage: string(stage), Reason: reason})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
