package models

import (
	"time"

	"github.com/BerylCAtieno/jamabandi-table-extractor/internal/table"
)

// Upload is a stored PDF whose tables can be previewed and exported until it
// expires.
type Upload struct {
	ID         string    `json:"id" db:"id"`
	Filename   string    `json:"filename" db:"filename"`
	FileSize   int64     `json:"file_size" db:"file_size"`
	SHA256     string    `json:"sha256" db:"sha256"`
	StorageKey string    `json:"-" db:"storage_key"`
	TableCount int       `json:"table_count" db:"table_count"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	ExpiresAt  time.Time `json:"expires_at" db:"expires_at"`
}

type UploadRequest struct {
	File     []byte
	Filename string
}

type UploadResponse struct {
	ID         string    `json:"id"`
	Filename   string    `json:"filename"`
	FileSize   int64     `json:"file_size"`
	TableCount int       `json:"table_count"`
	CreatedAt  time.Time `json:"created_at"`
	ExpiresAt  time.Time `json:"expires_at"`
	Message    string    `json:"message"`
}

// ViewOptions are the user's choices when previewing an upload.
type ViewOptions struct {
	Merge table.MergeMode
}

// ExportOptions select what to download. Table is 1-based; 0 picks the
// first table.
type ExportOptions struct {
	Merge  table.MergeMode
	Table  int
	Format string
}

type TableView struct {
	Index int `json:"index"`
	table.Table
}

type PreviewResponse struct {
	ID       string      `json:"id"`
	Filename string      `json:"filename"`
	Merge    string      `json:"merge"`
	Merged   bool        `json:"merged"`
	Tables   []TableView `json:"tables"`
	Warnings []string    `json:"warnings,omitempty"`
}

// ExportFile is an encoded table ready to be sent as a download.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}
