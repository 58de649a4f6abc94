// Package handler exposes the grading system over HTTP: upload scans,
// list stored documents, run a grading job over stored documents, and
// fetch rendered reports.
package handler

import (
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pavelanni/gradescan/internal/grading"
	"github.com/pavelanni/gradescan/internal/model"
	"github.com/pavelanni/gradescan/internal/pages"
	"github.com/pavelanni/gradescan/internal/report"
	"github.com/pavelanni/gradescan/internal/sheet"
	"github.com/pavelanni/gradescan/internal/store"
)

// maxUploadBytes bounds a single scan upload.
const maxUploadBytes = 32 << 20

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store    *store.Store
	pipeline *grading.Orchestrator
	renderer *report.Renderer
	scoreLog *sheet.Log
}

// New creates a new Handler.
func New(s *store.Store, pipeline *grading.Orchestrator, renderer *report.Renderer, scoreLog *sheet.Log) *Handler {
	return &Handler{store: s, pipeline: pipeline, renderer: renderer, scoreLog: scoreLog}
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/api/files", h.handleUpload)
	r.Get("/api/files", h.handleListFiles)
	r.Get("/api/files/{fileID}", h.handleGetFile)
	r.Post("/api/grade", h.handleGrade)
	r.Get("/api/reports/{reportID}", h.handleGetReport)
}

func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		http.Error(w, "parse upload: "+err.Error(), http.StatusBadRequest)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "missing file field", http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = pages.SniffMIME(header.Filename, data)
	}

	id, err := h.store.Put(header.Filename, contentType, data)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	slog.Info("stored upload", "id", id, "name", header.Filename, "bytes", len(data))

	writeJSON(w, http.StatusCreated, model.FileInfo{
		ID:          id,
		Name:        header.Filename,
		ContentType: contentType,
	})
}

func (h *Handler) handleListFiles(w http.ResponseWriter, r *http.Request) {
	files, err := h.store.List()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if files == nil {
		files = []model.FileInfo{}
	}
	writeJSON(w, http.StatusOK, files)
}

func (h *Handler) handleGetFile(w http.ResponseWriter, r *http.Request) {
	info, data, err := h.store.Get(chi.URLParam(r, "fileID"))
	if errors.Is(err, sql.ErrNoRows) {
		http.Error(w, "file not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", info.ContentType)
	_, _ = w.Write(data)
}

// gradeRequest selects stored documents for one grading run. File ids
// are page-ordered: the first id is page one.
type gradeRequest struct {
	SourceName   string   `json:"source_name"`
	StudentFiles []string `json:"student_files"`
	KeyFiles     []string `json:"key_files"`
}

type gradeResponse struct {
	Results      []model.ChunkResult `json:"results"`
	ReportHTMLID string              `json:"report_html_id"`
	ReportCSVID  string              `json:"report_csv_id"`
}

func (h *Handler) handleGrade(w http.ResponseWriter, r *http.Request) {
	var req gradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "parse request: "+err.Error(), http.StatusBadRequest)
		return
	}
	if len(req.StudentFiles) == 0 {
		http.Error(w, "student_files is empty", http.StatusBadRequest)
		return
	}
	if req.SourceName == "" {
		req.SourceName = "upload"
	}

	studentPages, err := h.loadPages(req.StudentFiles)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	keyPages, err := h.loadPages(req.KeyFiles)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	results := h.pipeline.Run(r.Context(), studentPages, model.SolutionKey{Pages: keyPages})

	htmlOut, err := h.renderer.HTML(req.SourceName, results)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	csvOut, err := h.renderer.CSV(results)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	htmlID, err := h.store.SaveReport(req.SourceName, "text/html; charset=utf-8", htmlOut)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	csvID, err := h.store.SaveReport(req.SourceName, "text/csv; charset=utf-8", csvOut)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if err := h.scoreLog.AppendResults(req.SourceName, results); err != nil {
		// The grading run itself succeeded; log loss is reported but
		// does not invalidate the response.
		slog.Error("score log append failed", "error", err)
	}

	writeJSON(w, http.StatusOK, gradeResponse{
		Results:      results,
		ReportHTMLID: htmlID,
		ReportCSVID:  csvID,
	})
}

func (h *Handler) handleGetReport(w http.ResponseWriter, r *http.Request) {
	format, data, err := h.store.GetReport(chi.URLParam(r, "reportID"))
	if errors.Is(err, sql.ErrNoRows) {
		http.Error(w, "report not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", format)
	_, _ = w.Write(data)
}

func (h *Handler) loadPages(ids []string) ([]model.Page, error) {
	var result []model.Page
	for _, id := range ids {
		info, data, err := h.store.Get(id)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.New("unknown file id " + id)
		}
		if err != nil {
			return nil, err
		}
		result = append(result, model.Page{Data: data, MIME: info.ContentType})
	}
	return result, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}
