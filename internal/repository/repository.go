package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/BerylCAtieno/jamabandi-table-extractor/internal/models"
	"github.com/jmoiron/sqlx"
)

type Repository interface {
	Create(ctx context.Context, upload *models.Upload) error
	GetByID(ctx context.Context, id string) (*models.Upload, error)
	ListExpired(ctx context.Context, now time.Time) ([]models.Upload, error)
	CountActive(ctx context.Context, sha256 string, now time.Time) (int, error)
	Delete(ctx context.Context, id string) error
}

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, upload *models.Upload) error {
	query := `
		INSERT INTO uploads (id, filename, file_size, sha256, storage_key, table_count, created_at, expires_at)
		VALUES (:id, :filename, :file_size, :sha256, :storage_key, :table_count, :created_at, :expires_at)
	`

	_, err := r.db.NamedExecContext(ctx, query, upload)
	return err
}

// GetByID returns nil, nil when no upload has the id.
func (r *repository) GetByID(ctx context.Context, id string) (*models.Upload, error) {
	var upload models.Upload

	query := `
		SELECT id, filename, file_size, sha256, storage_key, table_count, created_at, expires_at
		FROM uploads
		WHERE id = ?
	`

	err := r.db.GetContext(ctx, &upload, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &upload, nil
}

func (r *repository) ListExpired(ctx context.Context, now time.Time) ([]models.Upload, error) {
	var uploads []models.Upload

	query := `
		SELECT id, filename, file_size, sha256, storage_key, table_count, created_at, expires_at
		FROM uploads
		WHERE expires_at <= ?
		ORDER BY expires_at
	`

	if err := r.db.SelectContext(ctx, &uploads, query, now.UTC()); err != nil {
		return nil, err
	}
	return uploads, nil
}

// CountActive returns how many uploads of the document with the given digest
// have not expired at now.
func (r *repository) CountActive(ctx context.Context, sha256 string, now time.Time) (int, error) {
	var n int
	query := `SELECT COUNT(*) FROM uploads WHERE sha256 = ? AND expires_at > ?`
	if err := r.db.GetContext(ctx, &n, query, sha256, now.UTC()); err != nil {
		return 0, err
	}
	return n, nil
}

func (r *repository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM uploads WHERE id = ?`, id)
	return err
}
