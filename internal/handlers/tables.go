package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BerylCAtieno/jamabandi-table-extractor/internal/models"
	"github.com/BerylCAtieno/jamabandi-table-extractor/internal/services"
	"github.com/BerylCAtieno/jamabandi-table-extractor/internal/table"
	"github.com/BerylCAtieno/jamabandi-table-extractor/internal/utils"
	"github.com/dustin/go-humanize"
	"github.com/gorilla/mux"
)

type TableHandler struct {
	service     services.TableService
	logger      *utils.Logger
	maxFileSize int64
}

func NewTableHandler(service services.TableService, maxFileSize int64, logger *utils.Logger) *TableHandler {
	return &TableHandler{
		service:     service,
		logger:      logger,
		maxFileSize: maxFileSize,
	}
}

func (h *TableHandler) Upload(w http.ResponseWriter, r *http.Request) {
	data, filename, err := h.readPDF(w, r)
	if err != nil {
		h.respondError(w, err)
		return
	}

	resp, err := h.service.Upload(r.Context(), &models.UploadRequest{
		File:     data,
		Filename: filename,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.respondJSON(w, http.StatusCreated, resp)
}

func (h *TableHandler) GetUpload(w http.ResponseWriter, r *http.Request) {
	upload, err := h.service.GetUpload(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, upload)
}

func (h *TableHandler) Tables(w http.ResponseWriter, r *http.Request) {
	mode, err := parseMerge(r.URL.Query().Get("merge"))
	if err != nil {
		h.respondError(w, err)
		return
	}

	resp, err := h.service.Preview(r.Context(), mux.Vars(r)["id"], models.ViewOptions{Merge: mode})
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, resp)
}

func (h *TableHandler) Export(w http.ResponseWriter, r *http.Request) {
	opts, err := exportOptions(r.URL.Query().Get)
	if err != nil {
		h.respondError(w, err)
		return
	}

	file, err := h.service.Export(r.Context(), mux.Vars(r)["id"], opts)
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.respondFile(w, file)
}

// Convert turns an uploaded PDF straight into a download without keeping it.
func (h *TableHandler) Convert(w http.ResponseWriter, r *http.Request) {
	data, _, err := h.readPDF(w, r)
	if err != nil {
		h.respondError(w, err)
		return
	}

	opts, err := exportOptions(r.FormValue)
	if err != nil {
		h.respondError(w, err)
		return
	}

	file, err := h.service.Convert(r.Context(), data, opts)
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.respondFile(w, file)
}

// readPDF reads the multipart "file" field, enforcing the size limit and
// the .pdf extension.
func (h *TableHandler) readPDF(w http.ResponseWriter, r *http.Request) ([]byte, string, error) {
	limitMsg := fmt.Sprintf("File size exceeds %s limit", h.maxSizeLabel())

	if r.ContentLength > h.maxFileSize {
		return nil, "", utils.NewBadRequestError(limitMsg)
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxFileSize)

	if err := r.ParseMultipartForm(h.maxFileSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, "", utils.NewBadRequestError(limitMsg)
		}
		return nil, "", utils.NewBadRequestError("Invalid form data")
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, "", utils.NewBadRequestError("No file provided")
	}
	defer file.Close()

	h.logger.Info("File upload attempt",
		"filename", header.Filename,
		"size", header.Size,
		"reported_content_type", header.Header.Get("Content-Type"))

	if strings.ToLower(filepath.Ext(header.Filename)) != ".pdf" {
		return nil, "", utils.NewBadRequestError("Only PDF files are allowed")
	}

	data, err := io.ReadAll(io.LimitReader(file, h.maxFileSize+1))
	if err != nil {
		return nil, "", utils.NewInternalError("Failed to read file")
	}
	if int64(len(data)) > h.maxFileSize {
		return nil, "", utils.NewBadRequestError(limitMsg)
	}
	if len(data) == 0 {
		return nil, "", utils.NewBadRequestError("Uploaded file is empty")
	}

	return data, filepath.Base(header.Filename), nil
}

func (h *TableHandler) maxSizeLabel() string {
	return humanize.IBytes(uint64(h.maxFileSize))
}

func parseMerge(v string) (table.MergeMode, error) {
	mode, err := table.ParseMergeMode(v)
	if err != nil {
		return "", utils.NewBadRequestError("merge must be off, exact or align")
	}
	return mode, nil
}

// exportOptions reads format, merge and table from a query or form getter.
func exportOptions(get func(string) string) (models.ExportOptions, error) {
	mode, err := parseMerge(get("merge"))
	if err != nil {
		return models.ExportOptions{}, err
	}

	opts := models.ExportOptions{Merge: mode, Format: get("format")}
	if opts.Format == "" {
		opts.Format = "csv"
	}

	if v := get("table"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return models.ExportOptions{}, utils.NewBadRequestError("table must be a positive number")
		}
		opts.Table = n
	}

	return opts, nil
}

func (h *TableHandler) respondFile(w http.ResponseWriter, file *models.ExportFile) {
	w.Header().Set("Content-Type", file.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(file.Data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(file.Data); err != nil {
		h.logger.Error("Failed to write download", "error", err, "filename", file.Filename)
	}
}

func (h *TableHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to encode JSON response", "error", err)
	}
}

func (h *TableHandler) respondError(w http.ResponseWriter, err error) {
	status, code, message := errorResponse(err)

	if status >= http.StatusInternalServerError {
		h.logger.Error("Request error", "status", status, "code", code, "error", err)
	} else {
		h.logger.Warn("Request error", "status", status, "code", code, "error", message)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message, "code": code})
}

func errorResponse(err error) (status int, code, message string) {
	var appErr *utils.AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode, appErr.Code, appErr.Message
	}
	return http.StatusInternalServerError, utils.CodeInternal, "Internal server error"
}
