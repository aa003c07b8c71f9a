package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/BerylCAtieno/jamabandi-table-extractor/internal/cache"
	"github.com/BerylCAtieno/jamabandi-table-extractor/internal/config"
	"github.com/BerylCAtieno/jamabandi-table-extractor/internal/export"
	"github.com/BerylCAtieno/jamabandi-table-extractor/internal/extractor"
	"github.com/BerylCAtieno/jamabandi-table-extractor/internal/models"
	"github.com/BerylCAtieno/jamabandi-table-extractor/internal/repository"
	"github.com/BerylCAtieno/jamabandi-table-extractor/internal/storage"
	"github.com/BerylCAtieno/jamabandi-table-extractor/internal/table"
	"github.com/BerylCAtieno/jamabandi-table-extractor/internal/utils"
)

type TableService interface {
	Upload(ctx context.Context, req *models.UploadRequest) (*models.UploadResponse, error)
	GetUpload(ctx context.Context, id string) (*models.Upload, error)
	Preview(ctx context.Context, id string, opts models.ViewOptions) (*models.PreviewResponse, error)
	Export(ctx context.Context, id string, opts models.ExportOptions) (*models.ExportFile, error)
	Convert(ctx context.Context, data []byte, opts models.ExportOptions) (*models.ExportFile, error)
}

type tableService struct {
	repo    repository.Repository
	storage storage.Storage
	cache   *cache.TableCache
	options extractor.Options
	ttl     time.Duration
	logger  *utils.Logger
	now     func() time.Time
}

func NewService(repo repository.Repository, store storage.Storage, tableCache *cache.TableCache, cfg *config.Config, logger *utils.Logger) TableService {
	return &tableService{
		repo:    repo,
		storage: store,
		cache:   tableCache,
		options: extractor.Options{
			SnapTolerance:         cfg.Extract.SnapTolerance,
			JoinTolerance:         cfg.Extract.JoinTolerance,
			IntersectionTolerance: cfg.Extract.IntersectionTolerance,
			MinEdgeLength:         cfg.Extract.MinEdgeLength,
		},
		ttl:    cfg.UploadTTL,
		logger: logger,
		now:    time.Now,
	}
}

func (s *tableService) Upload(ctx context.Context, req *models.UploadRequest) (*models.UploadResponse, error) {
	if len(req.File) == 0 {
		return nil, utils.NewBadRequestError("Uploaded file is empty")
	}

	s.purgeExpired(ctx)

	digest := checksum(req.File)
	tables, err := s.extract(digest, req.File)
	if err != nil {
		return nil, err
	}
	if len(tables) == 0 {
		s.logger.Info("No tables detected", "filename", req.Filename, "sha256", digest)
		return nil, utils.NewNoTablesError()
	}

	id := utils.GenerateID()
	key := path.Join("uploads", id, "document.pdf")
	if err := s.storage.Upload(ctx, key, req.File, "application/pdf"); err != nil {
		s.logger.Error("Failed to store upload", "error", err, "storage_key", key)
		return nil, utils.NewInternalError("Failed to store document")
	}

	now := s.now().UTC().Truncate(time.Second)
	upload := &models.Upload{
		ID:         id,
		Filename:   req.Filename,
		FileSize:   int64(len(req.File)),
		SHA256:     digest,
		StorageKey: key,
		TableCount: len(tables),
		CreatedAt:  now,
		ExpiresAt:  now.Add(s.ttl),
	}

	if err := s.repo.Create(ctx, upload); err != nil {
		s.logger.Error("Failed to save upload to database", "error", err, "id", id)
		_ = s.storage.Delete(ctx, key)
		return nil, utils.NewInternalError("Failed to save upload metadata")
	}

	s.logger.Info("Upload stored",
		"id", id,
		"filename", req.Filename,
		"size", upload.FileSize,
		"tables", len(tables))

	return &models.UploadResponse{
		ID:         id,
		Filename:   upload.Filename,
		FileSize:   upload.FileSize,
		TableCount: upload.TableCount,
		CreatedAt:  upload.CreatedAt,
		ExpiresAt:  upload.ExpiresAt,
		Message:    fmt.Sprintf("Found %d table(s)", len(tables)),
	}, nil
}

// GetUpload returns the upload record, treating expired uploads as missing.
func (s *tableService) GetUpload(ctx context.Context, id string) (*models.Upload, error) {
	if !utils.ValidID(id) {
		return nil, utils.NewNotFoundError("Upload not found")
	}

	upload, err := s.repo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error("Failed to get upload", "error", err, "id", id)
		return nil, utils.NewInternalError("Failed to retrieve upload")
	}
	if upload == nil || !s.now().Before(upload.ExpiresAt) {
		return nil, utils.NewNotFoundError("Upload not found")
	}

	return upload, nil
}

func (s *tableService) Preview(ctx context.Context, id string, opts models.ViewOptions) (*models.PreviewResponse, error) {
	upload, err := s.GetUpload(ctx, id)
	if err != nil {
		return nil, err
	}

	tables, err := s.load(ctx, upload)
	if err != nil {
		return nil, err
	}

	result, err := s.reconcile(tables, opts.Merge)
	if err != nil {
		return nil, err
	}

	resp := &models.PreviewResponse{
		ID:       upload.ID,
		Filename: upload.Filename,
		Merge:    string(mergeMode(opts.Merge)),
		Merged:   result.Merged,
		Tables:   make([]models.TableView, len(result.Tables)),
	}
	for i, t := range result.Tables {
		resp.Tables[i] = models.TableView{Index: i + 1, Table: t}
	}
	for _, m := range result.Mismatches {
		resp.Warnings = append(resp.Warnings, m.String())
	}

	return resp, nil
}

func (s *tableService) Export(ctx context.Context, id string, opts models.ExportOptions) (*models.ExportFile, error) {
	upload, err := s.GetUpload(ctx, id)
	if err != nil {
		return nil, err
	}

	tables, err := s.load(ctx, upload)
	if err != nil {
		return nil, err
	}

	return s.render(tables, opts)
}

// Convert runs extraction, reconciliation and encoding over data without
// storing anything.
func (s *tableService) Convert(ctx context.Context, data []byte, opts models.ExportOptions) (*models.ExportFile, error) {
	if len(data) == 0 {
		return nil, utils.NewBadRequestError("Uploaded file is empty")
	}

	tables, err := s.extract(checksum(data), data)
	if err != nil {
		return nil, err
	}

	return s.render(tables, opts)
}

func (s *tableService) render(tables []table.Table, opts models.ExportOptions) (*models.ExportFile, error) {
	format, err := export.Lookup(opts.Format)
	if err != nil {
		return nil, utils.NewBadRequestError(fmt.Sprintf("Unsupported format '%s'. Use csv, xlsx or docx", opts.Format))
	}

	result, err := s.reconcile(tables, opts.Merge)
	if err != nil {
		return nil, err
	}

	index := opts.Table
	if index == 0 {
		index = 1
	}
	if index < 1 || index > len(result.Tables) {
		return nil, utils.NewBadRequestError(fmt.Sprintf("Table %d does not exist; %d table(s) available", opts.Table, len(result.Tables)))
	}

	data, err := format.Encode(result.Tables[index-1])
	if err != nil {
		s.logger.Warn("Failed to encode table", "error", err, "format", format.Name, "table", index)
		return nil, utils.NewEncodingError(err.Error())
	}

	name := format.Filename(0)
	if len(result.Tables) > 1 {
		name = format.Filename(index)
	}

	return &models.ExportFile{
		Filename:    name,
		ContentType: format.MIME,
		Data:        data,
	}, nil
}

func (s *tableService) reconcile(tables []table.Table, mode table.MergeMode) (table.Result, error) {
	result, err := table.Reconcile(tables, mergeMode(mode))
	if errors.Is(err, table.ErrNoTables) {
		return result, utils.NewNoTablesError()
	}
	if err != nil {
		return result, utils.NewBadRequestError(err.Error())
	}

	for _, m := range result.Mismatches {
		s.logger.Warn("Schema mismatch", "merge", string(mode), "detail", m.String())
	}
	return result, nil
}

// load returns the raw tables of a stored upload, re-extracting from
// storage when the cache has lost them.
func (s *tableService) load(ctx context.Context, upload *models.Upload) ([]table.Table, error) {
	if tables, ok := s.cached(upload.SHA256); ok {
		return tables, nil
	}

	data, err := s.storage.Download(ctx, upload.StorageKey)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, utils.NewNotFoundError("Upload not found")
	}
	if err != nil {
		s.logger.Error("Failed to download upload", "error", err, "id", upload.ID)
		return nil, utils.NewInternalError("Failed to retrieve document")
	}

	return s.extract(upload.SHA256, data)
}

func (s *tableService) extract(digest string, data []byte) ([]table.Table, error) {
	if tables, ok := s.cached(digest); ok {
		return tables, nil
	}

	doc, err := extractor.ExtractTables(data, s.options)
	if err != nil {
		s.logger.Warn("Failed to read PDF", "error", err, "sha256", digest)
		return nil, utils.NewBadRequestError("The file could not be read as a PDF")
	}
	for _, pe := range doc.Skipped {
		s.logger.Warn("Skipped unreadable page", "page", pe.Page, "error", pe.Err, "sha256", digest)
	}

	s.logger.Debug("Extracted tables", "sha256", digest, "pages", doc.Pages, "tables", len(doc.Tables))

	if len(doc.Tables) > 0 && s.cache != nil {
		if err := s.cache.Put(s.cacheKey(digest), doc.Tables); err != nil {
			s.logger.Warn("Failed to cache tables", "error", err, "sha256", digest)
		}
	}

	return doc.Tables, nil
}

func (s *tableService) cached(digest string) ([]table.Table, bool) {
	if s.cache == nil {
		return nil, false
	}
	tables, ok, err := s.cache.Get(s.cacheKey(digest))
	if err != nil {
		s.logger.Warn("Failed to read table cache", "error", err, "sha256", digest)
		return nil, false
	}
	return tables, ok
}

// cacheKey ties cached tables to the tolerances they were extracted with.
func (s *tableService) cacheKey(digest string) string {
	o := s.options
	return fmt.Sprintf("%s:%g:%g:%g:%g", digest, o.SnapTolerance, o.JoinTolerance, o.IntersectionTolerance, o.MinEdgeLength)
}

// purgeExpired removes expired uploads. Failures are logged and the upload
// that triggered the purge carries on.
func (s *tableService) purgeExpired(ctx context.Context) {
	expired, err := s.repo.ListExpired(ctx, s.now().UTC())
	if err != nil {
		s.logger.Warn("Failed to list expired uploads", "error", err)
		return
	}

	for _, u := range expired {
		if err := s.storage.Delete(ctx, u.StorageKey); err != nil {
			s.logger.Warn("Failed to delete expired upload", "error", err, "id", u.ID)
			continue
		}
		if err := s.repo.Delete(ctx, u.ID); err != nil {
			s.logger.Warn("Failed to delete expired upload record", "error", err, "id", u.ID)
			continue
		}
		s.evict(ctx, u)
		s.logger.Debug("Purged expired upload", "id", u.ID)
	}
}

// evict drops the cached tables of a purged upload unless a live upload of
// the same document still uses them.
func (s *tableService) evict(ctx context.Context, u models.Upload) {
	if s.cache == nil {
		return
	}

	active, err := s.repo.CountActive(ctx, u.SHA256, s.now().UTC())
	if err != nil {
		s.logger.Warn("Failed to count live uploads", "error", err, "id", u.ID)
		return
	}
	if active > 0 {
		return
	}

	if err := s.cache.Delete(s.cacheKey(u.SHA256)); err != nil {
		s.logger.Warn("Failed to evict cached tables", "error", err, "id", u.ID)
	}
}

func checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func mergeMode(m table.MergeMode) table.MergeMode {
	if m == "" {
		return table.MergeOff
	}
	return m
}
