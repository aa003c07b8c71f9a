package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/BerylCAtieno/jamabandi-table-extractor/internal/db"
	"github.com/BerylCAtieno/jamabandi-table-extractor/internal/models"
	"github.com/jmoiron/sqlx"
)

func newTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	dbFile := filepath.Join(t.TempDir(), "tables.db")
	if err := db.RunMigrations(dbFile); err != nil {
		t.Fatalf("RunMigrations: %v", err)
	}
	conn, err := db.NewSQLiteDB(dbFile)
	if err != nil {
		t.Fatalf("NewSQLiteDB: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func newUpload(id string, created time.Time, ttl time.Duration) *models.Upload {
	return &models.Upload{
		ID:         id,
		Filename:   "jamabandi.pdf",
		FileSize:   1024,
		SHA256:     "deadbeef",
		StorageKey: "uploads/" + id + "/jamabandi.pdf",
		TableCount: 2,
		CreatedAt:  created,
		ExpiresAt:  created.Add(ttl),
	}
}

func TestCreateAndGet(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(newTestDB(t))

	now := time.Now().UTC().Truncate(time.Second)
	want := newUpload("u1", now, time.Hour)
	if err := repo.Create(ctx, want); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	got, err := repo.GetByID(ctx, "u1")
	if err != nil {
		t.Fatalf("GetByID returned error: %v", err)
	}
	if got == nil {
		t.Fatal("GetByID returned nil")
	}
	if got.Filename != want.Filename || got.TableCount != 2 || got.StorageKey != want.StorageKey {
		t.Errorf("GetByID = %+v, want %+v", got, want)
	}
	if !got.ExpiresAt.Equal(want.ExpiresAt) {
		t.Errorf("ExpiresAt = %v, want %v", got.ExpiresAt, want.ExpiresAt)
	}

	missing, err := repo.GetByID(ctx, "nope")
	if err != nil || missing != nil {
		t.Errorf("GetByID(missing) = %v, %v; want nil, nil", missing, err)
	}
}

func TestListExpiredAndDelete(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(newTestDB(t))

	now := time.Now().UTC().Truncate(time.Second)
	uploads := []*models.Upload{
		newUpload("old", now.Add(-2*time.Hour), time.Hour),
		newUpload("older", now.Add(-3*time.Hour), time.Hour),
		newUpload("fresh", now, time.Hour),
	}
	for _, u := range uploads {
		if err := repo.Create(ctx, u); err != nil {
			t.Fatal(err)
		}
	}

	expired, err := repo.ListExpired(ctx, now)
	if err != nil {
		t.Fatalf("ListExpired returned error: %v", err)
	}
	if len(expired) != 2 || expired[0].ID != "older" || expired[1].ID != "old" {
		t.Fatalf("ListExpired = %+v, want [older old]", expired)
	}

	for _, u := range expired {
		if err := repo.Delete(ctx, u.ID); err != nil {
			t.Fatalf("Delete returned error: %v", err)
		}
	}

	if got, _ := repo.GetByID(ctx, "old"); got != nil {
		t.Error("old upload should be deleted")
	}
	if got, _ := repo.GetByID(ctx, "fresh"); got == nil {
		t.Error("fresh upload should remain")
	}
}

func TestCountActive(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(newTestDB(t))

	now := time.Now().UTC().Truncate(time.Second)
	uploads := []*models.Upload{
		newUpload("expired", now.Add(-2*time.Hour), time.Hour),
		newUpload("live", now, time.Hour),
		newUpload("other", now, time.Hour),
	}
	uploads[2].SHA256 = "other-digest"
	for _, u := range uploads {
		if err := repo.Create(ctx, u); err != nil {
			t.Fatal(err)
		}
	}

	n, err := repo.CountActive(ctx, uploads[0].SHA256, now)
	if err != nil {
		t.Fatalf("CountActive returned error: %v", err)
	}
	if n != 1 {
		t.Errorf("CountActive = %d, want 1", n)
	}

	if n, _ := repo.CountActive(ctx, uploads[0].SHA256, now.Add(2*time.Hour)); n != 0 {
		t.Errorf("CountActive after expiry = %d, want 0", n)
	}
}
