package history

import (
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestStore_OpenInitializesSchemaAndSaveList(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "nested", "history.db"), time.Second)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()

	base := time.Date(2026, 2, 13, 10, 0, 0, 0, time.UTC)
	records := []Record{
		{Path: "a.py", ContentHash: "h1", Timestamp: base, Result: []byte(`{"has_ellipsis":false}`)},
		{Path: "a.py", ContentHash: "h2", Timestamp: base.Add(time.Hour), DiagnosticCount: 2},
		{Path: "b.py", ContentHash: "h3", Timestamp: base},
	}
	for _, rec := range records {
		saved, err := store.Save(rec)
		if err != nil {
			t.Fatalf("save record: %v", err)
		}
		if saved.ID == "" {
			t.Fatal("expected generated id")
		}
	}

	got, err := store.ListByPath("a.py", 0)
	if err != nil {
		t.Fatalf("list records: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 records for a.py, got %d", len(got))
	}
	if got[0].ContentHash != "h2" || got[0].DiagnosticCount != 2 {
		t.Fatalf("expected newest record first, got %+v", got[0])
	}
	if string(got[0].Result) != "{}" {
		t.Fatalf("expected empty result to default to {}, got %s", got[0].Result)
	}
	if !got[1].Timestamp.Equal(base) {
		t.Fatalf("expected timestamp to roundtrip, got %v", got[1].Timestamp)
	}

	limited, err := store.ListByPath("a.py", 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 1 {
		t.Fatalf("expected limit to apply, got %d", len(limited))
	}

	hash, err := store.LatestHash("a.py")
	if err != nil {
		t.Fatal(err)
	}
	if hash != "h2" {
		t.Fatalf("expected latest hash h2, got %q", hash)
	}
	hash, err = store.LatestHash("missing.py")
	if err != nil || hash != "" {
		t.Fatalf("expected empty hash for unknown path, got %q, %v", hash, err)
	}
}

func TestStore_SaveRejectsEmptyPath(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "history.db"), 0)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	if _, err := store.Save(Record{Path: "  "}); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestStore_OpenRejectsDirectoryPath(t *testing.T) {
	_, err := Open(t.TempDir(), 0)
	if err == nil {
		t.Fatal("expected open error for directory path")
	}
	if !strings.Contains(err.Error(), "is a directory") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestStore_OpenCorruptDBPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	if err := os.WriteFile(path, []byte("this is not sqlite"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := Open(path, 0)
	if err == nil {
		t.Fatal("expected sqlite open error")
	}
	lower := strings.ToLower(err.Error())
	if !strings.Contains(lower, "not a database") && !strings.Contains(lower, "schema") {
		t.Fatalf("expected schema/open error, got: %v", err)
	}
}

func TestEnsureSchema_DetectsNewerVersionDrift(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := Open(path, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	if _, err := store.db.Exec(`INSERT OR REPLACE INTO schema_migrations(version) VALUES (?)`, SchemaVersion+1); err != nil {
		t.Fatal(err)
	}

	db, err := sql.Open(driverName, "file:"+path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	err = EnsureSchema(db)
	if err == nil {
		t.Fatal("expected drift error")
	}
	if !strings.Contains(err.Error(), "newer than supported") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestIsCorruptError(t *testing.T) {
	if !IsCorruptError(errors.New("database disk image is malformed")) {
		t.Fatal("expected malformed sqlite message to be treated as corrupt")
	}
	if IsCorruptError(nil) {
		t.Fatal("expected nil not to be corrupt")
	}
}
