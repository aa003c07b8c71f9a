package handlers

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/BerylCAtieno/jamabandi-table-extractor/internal/export"
	"github.com/BerylCAtieno/jamabandi-table-extractor/internal/models"
	"github.com/BerylCAtieno/jamabandi-table-extractor/internal/table"
	"github.com/BerylCAtieno/jamabandi-table-extractor/internal/web"
	"github.com/gorilla/mux"
)

// UIHandler serves the browser pages on top of the same TableHandler.
type UIHandler struct {
	api      *TableHandler
	renderer *web.Renderer
}

func NewUIHandler(api *TableHandler, renderer *web.Renderer) *UIHandler {
	return &UIHandler{api: api, renderer: renderer}
}

type indexPage struct {
	Error   string
	MaxSize string
}

type download struct {
	Label string
	URL   string
}

type uploadPage struct {
	Upload    *models.Upload
	Preview   *models.PreviewResponse
	Selected  int
	Table     *table.Table
	Downloads []download
	Error     string
}

func (h *UIHandler) Index(w http.ResponseWriter, r *http.Request) {
	h.render(w, http.StatusOK, "index", indexPage{MaxSize: h.api.maxSizeLabel()})
}

// Upload accepts the form post from the index page and redirects to the
// preview of the new upload.
func (h *UIHandler) Upload(w http.ResponseWriter, r *http.Request) {
	data, filename, err := h.api.readPDF(w, r)
	if err == nil {
		var resp *models.UploadResponse
		resp, err = h.api.service.Upload(r.Context(), &models.UploadRequest{File: data, Filename: filename})
		if err == nil {
			http.Redirect(w, r, "/ui/uploads/"+resp.ID, http.StatusSeeOther)
			return
		}
	}

	status, _, message := errorResponse(err)
	h.api.logger.Warn("Upload from browser failed", "status", status, "error", err)
	h.render(w, status, "index", indexPage{Error: message, MaxSize: h.api.maxSizeLabel()})
}

func (h *UIHandler) View(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := mux.Vars(r)["id"]

	upload, err := h.api.service.GetUpload(ctx, id)
	if err != nil {
		status, _, message := errorResponse(err)
		h.render(w, status, "index", indexPage{Error: message, MaxSize: h.api.maxSizeLabel()})
		return
	}

	page := uploadPage{Upload: upload, Selected: 1}

	mode, err := parseMerge(r.URL.Query().Get("merge"))
	if err != nil {
		_, _, page.Error = errorResponse(err)
		mode = table.MergeOff
	}

	preview, err := h.api.service.Preview(ctx, id, models.ViewOptions{Merge: mode})
	if err != nil {
		status, _, message := errorResponse(err)
		h.render(w, status, "index", indexPage{Error: message, MaxSize: h.api.maxSizeLabel()})
		return
	}
	page.Preview = preview

	if v := r.URL.Query().Get("table"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > len(preview.Tables) {
			page.Error = "Table " + v + " does not exist"
		} else {
			page.Selected = n
		}
	}
	page.Table = &preview.Tables[page.Selected-1].Table

	for _, f := range export.Formats() {
		label := f.Filename(0)
		if len(preview.Tables) > 1 {
			label = f.Filename(page.Selected)
		}

		q := url.Values{}
		q.Set("format", f.Name)
		q.Set("merge", preview.Merge)
		q.Set("table", strconv.Itoa(page.Selected))
		page.Downloads = append(page.Downloads, download{
			Label: label,
			URL:   "/api/v1/uploads/" + upload.ID + "/export?" + q.Encode(),
		})
	}

	h.render(w, http.StatusOK, "upload", page)
}

func (h *UIHandler) render(w http.ResponseWriter, status int, page string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := h.renderer.Render(w, page, data); err != nil {
		h.api.logger.Error("Failed to render page", "page", page, "error", err)
	}
}
