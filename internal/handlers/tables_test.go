package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/BerylCAtieno/jamabandi-table-extractor/internal/models"
	"github.com/BerylCAtieno/jamabandi-table-extractor/internal/table"
	"github.com/BerylCAtieno/jamabandi-table-extractor/internal/utils"
	"github.com/gorilla/mux"
)

type fakeService struct {
	uploaded   *models.UploadRequest
	exportOpts models.ExportOptions
	viewOpts   models.ViewOptions
	err        error
}

func (f *fakeService) Upload(ctx context.Context, req *models.UploadRequest) (*models.UploadResponse, error) {
	f.uploaded = req
	if f.err != nil {
		return nil, f.err
	}
	return &models.UploadResponse{ID: "u1", Filename: req.Filename, TableCount: 2, Message: "Found 2 table(s)"}, nil
}

func (f *fakeService) GetUpload(ctx context.Context, id string) (*models.Upload, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.Upload{ID: id, Filename: "a.pdf", TableCount: 2}, nil
}

func (f *fakeService) Preview(ctx context.Context, id string, opts models.ViewOptions) (*models.PreviewResponse, error) {
	f.viewOpts = opts
	if f.err != nil {
		return nil, f.err
	}
	return &models.PreviewResponse{
		ID:    id,
		Merge: string(opts.Merge),
		Tables: []models.TableView{
			{Index: 1, Table: table.Table{Columns: []string{"A"}, Rows: [][]string{{"1"}}, Page: 1}},
		},
	}, nil
}

func (f *fakeService) Export(ctx context.Context, id string, opts models.ExportOptions) (*models.ExportFile, error) {
	f.exportOpts = opts
	if f.err != nil {
		return nil, f.err
	}
	return &models.ExportFile{Filename: "table.csv", ContentType: "text/csv", Data: []byte("A\n1\n")}, nil
}

func (f *fakeService) Convert(ctx context.Context, data []byte, opts models.ExportOptions) (*models.ExportFile, error) {
	f.exportOpts = opts
	if f.err != nil {
		return nil, f.err
	}
	return &models.ExportFile{Filename: "table.xlsx", ContentType: "application/x", Data: data}, nil
}

func newTestRouter(svc *fakeService, maxSize int64) *mux.Router {
	h := NewTableHandler(svc, maxSize, utils.NewLoggerTo(io.Discard, "error"))

	r := mux.NewRouter()
	r.HandleFunc("/uploads", h.Upload).Methods(http.MethodPost)
	r.HandleFunc("/uploads/{id}", h.GetUpload).Methods(http.MethodGet)
	r.HandleFunc("/uploads/{id}/tables", h.Tables).Methods(http.MethodGet)
	r.HandleFunc("/uploads/{id}/export", h.Export).Methods(http.MethodGet)
	r.HandleFunc("/convert", h.Convert).Methods(http.MethodPost)
	return r
}

func multipartBody(t *testing.T, filename string, content []byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()

	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	if filename != "" {
		fw, err := mw.CreateFormFile("file", filename)
		if err != nil {
			t.Fatal(err)
		}
		fw.Write(content)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	return body, mw.FormDataContentType()
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("error body is not JSON: %v", err)
	}
	return body
}

func TestUploadHandler(t *testing.T) {
	testCases := []struct {
		name     string
		filename string
		content  []byte
		svcErr   error
		status   int
		code     string
	}{
		{"Success", "record.pdf", []byte("%PDF-1.4"), nil, http.StatusCreated, ""},
		{"UpperCaseExtension", "RECORD.PDF", []byte("%PDF-1.4"), nil, http.StatusCreated, ""},
		{"NoFile", "", nil, nil, http.StatusBadRequest, utils.CodeBadRequest},
		{"WrongExtension", "record.docx", []byte("PK"), nil, http.StatusBadRequest, utils.CodeBadRequest},
		{"Empty", "record.pdf", []byte{}, nil, http.StatusBadRequest, utils.CodeBadRequest},
		{"TooLarge", "record.pdf", bytes.Repeat([]byte("x"), 4096), nil, http.StatusBadRequest, utils.CodeBadRequest},
		{"NoTables", "record.pdf", []byte("%PDF-1.4"), utils.NewNoTablesError(), http.StatusUnprocessableEntity, utils.CodeNoTables},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &fakeService{err: tc.svcErr}
			router := newTestRouter(svc, 1024)

			body, contentType := multipartBody(t, tc.filename, tc.content, nil)
			req := httptest.NewRequest(http.MethodPost, "/uploads", body)
			req.Header.Set("Content-Type", contentType)
			rec := httptest.NewRecorder()

			router.ServeHTTP(rec, req)

			if rec.Code != tc.status {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tc.status, rec.Body.String())
			}
			if tc.code != "" {
				if got := decodeError(t, rec)["code"]; got != tc.code {
					t.Errorf("code = %q, want %q", got, tc.code)
				}
			}
		})
	}
}

func TestTablesHandlerMerge(t *testing.T) {
	testCases := []struct {
		query  string
		status int
		want   table.MergeMode
	}{
		{"", http.StatusOK, table.MergeOff},
		{"?merge=exact", http.StatusOK, table.MergeExact},
		{"?merge=true", http.StatusOK, table.MergeExact},
		{"?merge=align", http.StatusOK, table.MergeAlign},
		{"?merge=sideways", http.StatusBadRequest, ""},
	}

	for _, tc := range testCases {
		svc := &fakeService{}
		rec := httptest.NewRecorder()
		newTestRouter(svc, 1024).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/uploads/u1/tables"+tc.query, nil))

		if rec.Code != tc.status {
			t.Errorf("%q: status = %d, want %d", tc.query, rec.Code, tc.status)
			continue
		}
		if tc.status == http.StatusOK && svc.viewOpts.Merge != tc.want {
			t.Errorf("%q: merge = %q, want %q", tc.query, svc.viewOpts.Merge, tc.want)
		}
	}
}

func TestExportHandler(t *testing.T) {
	svc := &fakeService{}
	rec := httptest.NewRecorder()
	newTestRouter(svc, 1024).ServeHTTP(rec,
		httptest.NewRequest(http.MethodGet, "/uploads/u1/export?format=csv&merge=exact&table=1", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Content-Disposition"); got != `attachment; filename="table.csv"` {
		t.Errorf("Content-Disposition = %q", got)
	}
	if got := rec.Header().Get("Content-Type"); got != "text/csv" {
		t.Errorf("Content-Type = %q", got)
	}
	want := models.ExportOptions{Merge: table.MergeExact, Table: 1, Format: "csv"}
	if svc.exportOpts != want {
		t.Errorf("options = %+v, want %+v", svc.exportOpts, want)
	}

	for _, q := range []string{"?table=0", "?table=x", "?merge=maybe"} {
		rec := httptest.NewRecorder()
		newTestRouter(&fakeService{}, 1024).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/uploads/u1/export"+q, nil))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", q, rec.Code)
		}
	}
}

func TestExportHandlerEncodingFailure(t *testing.T) {
	svc := &fakeService{err: utils.NewEncodingError("failed to encode xlsx")}
	rec := httptest.NewRecorder()
	newTestRouter(svc, 1024).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/uploads/u1/export?format=xlsx", nil))

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
	if got := decodeError(t, rec)["code"]; got != utils.CodeEncodingFailure {
		t.Errorf("code = %q", got)
	}
}

func TestConvertHandler(t *testing.T) {
	svc := &fakeService{}
	body, contentType := multipartBody(t, "record.pdf", []byte("%PDF-1.4"), map[string]string{
		"format": "xlsx",
		"merge":  "align",
		"table":  "2",
	})
	req := httptest.NewRequest(http.MethodPost, "/convert", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	newTestRouter(svc, 1024).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	want := models.ExportOptions{Merge: table.MergeAlign, Table: 2, Format: "xlsx"}
	if svc.exportOpts != want {
		t.Errorf("options = %+v, want %+v", svc.exportOpts, want)
	}
	if !strings.Contains(rec.Header().Get("Content-Disposition"), "table.xlsx") {
		t.Errorf("Content-Disposition = %q", rec.Header().Get("Content-Disposition"))
	}
}

func TestRespondErrorHidesInternalErrors(t *testing.T) {
	svc := &fakeService{err: io.ErrUnexpectedEOF}
	rec := httptest.NewRecorder()
	newTestRouter(svc, 1024).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/uploads/u1", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	body := decodeError(t, rec)
	if body["error"] != "Internal server error" || body["code"] != utils.CodeInternal {
		t.Errorf("body = %v", body)
	}
}
