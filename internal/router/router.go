package router

import (
	"net/http"

	"github.com/BerylCAtieno/jamabandi-table-extractor/internal/handlers"
	"github.com/BerylCAtieno/jamabandi-table-extractor/internal/middleware"
	"github.com/BerylCAtieno/jamabandi-table-extractor/internal/services"
	"github.com/BerylCAtieno/jamabandi-table-extractor/internal/utils"
	"github.com/BerylCAtieno/jamabandi-table-extractor/internal/web"

	"github.com/gorilla/mux"
)

func NewRouter(tableService services.TableService, renderer *web.Renderer, maxFileSize int64, logger *utils.Logger) http.Handler {
	r := mux.NewRouter()

	// Middlewares
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS())
	r.Use(middleware.Recovery(logger))

	tableHandler := handlers.NewTableHandler(tableService, maxFileSize, logger)
	uiHandler := handlers.NewUIHandler(tableHandler, renderer)

	api := r.PathPrefix("/api/v1").Subrouter()

	// Health check
	api.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	}).Methods(http.MethodGet)

	// Upload endpoints
	api.HandleFunc("/uploads", tableHandler.Upload).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/uploads/{id}", tableHandler.GetUpload).Methods(http.MethodGet)
	api.HandleFunc("/uploads/{id}/tables", tableHandler.Tables).Methods(http.MethodGet)
	api.HandleFunc("/uploads/{id}/export", tableHandler.Export).Methods(http.MethodGet)
	api.HandleFunc("/convert", tableHandler.Convert).Methods(http.MethodPost, http.MethodOptions)

	// Browser pages
	r.HandleFunc("/", uiHandler.Index).Methods(http.MethodGet)
	r.HandleFunc("/ui/uploads", uiHandler.Upload).Methods(http.MethodPost)
	r.HandleFunc("/ui/uploads/{id}", uiHandler.View).Methods(http.MethodGet)

	return r
}
