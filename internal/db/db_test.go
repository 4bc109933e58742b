package db

import (
	"path/filepath"
	"testing"
	"time"
)

func TestNew_CreatesDatabase(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "nested", "test.db")

	database, err := New(dbPath, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer database.Close()

	tables := []string{"sessions", "shots", "clips", "recordings", "_migrations"}
	for _, table := range tables {
		var name string
		err := database.Conn().QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %s not found: %v", table, err)
		}
	}
}

func TestNew_WALEnabled(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	database, err := New(dbPath, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer database.Close()

	var journalMode string
	err = database.Conn().QueryRow("PRAGMA journal_mode").Scan(&journalMode)
	if err != nil {
		t.Fatalf("PRAGMA journal_mode error = %v", err)
	}

	if journalMode != "wal" {
		t.Errorf("journal_mode = %s, want wal", journalMode)
	}
}

func TestNew_InMemory(t *testing.T) {
	database, err := New(MemoryPath, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer database.Close()

	if _, err := database.Conn().Exec(`
		INSERT INTO sessions (id, created_at, updated_at) VALUES ('s1', datetime('now'), datetime('now'))
	`); err != nil {
		t.Fatalf("insert session error = %v", err)
	}

	var count int
	if err := database.Conn().QueryRow("SELECT COUNT(*) FROM sessions").Scan(&count); err != nil {
		t.Fatalf("count sessions error = %v", err)
	}
	if count != 1 {
		t.Errorf("session count = %d, want 1", count)
	}
}

func TestIsMemory(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{":memory:", true},
		{"file:studio?mode=memory&cache=shared", true},
		{"/var/lib/reelsmith/studio.db", false},
	}
	for _, tt := range tests {
		if got := IsMemory(tt.path); got != tt.want {
			t.Errorf("IsMemory(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestNew_MigrationsIdempotent(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	db1, err := New(dbPath, nil)
	if err != nil {
		t.Fatalf("first New() error = %v", err)
	}
	db1.Close()

	db2, err := New(dbPath, nil)
	if err != nil {
		t.Fatalf("second New() error = %v", err)
	}
	defer db2.Close()

	var count int
	err = db2.Conn().QueryRow("SELECT COUNT(*) FROM _migrations").Scan(&count)
	if err != nil {
		t.Fatalf("count migrations error = %v", err)
	}

	if count != 1 {
		t.Errorf("migration count = %d, want 1", count)
	}
}

func TestNew_ForeignKeysCascade(t *testing.T) {
	database, err := New(MemoryPath, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer database.Close()

	conn := database.Conn()
	conn.Exec(`INSERT INTO sessions (id, created_at, updated_at) VALUES ('s1', datetime('now'), datetime('now'))`)
	if _, err := conn.Exec(`INSERT INTO shots (session_id, shot_id, visual) VALUES ('s1', 0, 'a')`); err != nil {
		t.Fatalf("insert shot error = %v", err)
	}
	if _, err := conn.Exec(`DELETE FROM sessions WHERE id = 's1'`); err != nil {
		t.Fatalf("delete session error = %v", err)
	}

	var count int
	conn.QueryRow("SELECT COUNT(*) FROM shots").Scan(&count)
	if count != 0 {
		t.Errorf("shots left after session delete = %d, want 0", count)
	}
}

func TestMarkInterruptedRuns(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	db1, err := New(dbPath, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	_, err = db1.Conn().Exec(`
		INSERT INTO sessions (id, queue_state, created_at, updated_at)
		VALUES ('test-session', 'running', datetime('now'), datetime('now'))
	`)
	if err != nil {
		t.Fatalf("insert session error = %v", err)
	}
	db1.Close()

	db2, err := New(dbPath, nil)
	if err != nil {
		t.Fatalf("second New() error = %v", err)
	}
	defer db2.Close()

	var state, errMsg, updatedAt string
	err = db2.Conn().QueryRow("SELECT queue_state, last_error, updated_at FROM sessions WHERE id = 'test-session'").Scan(&state, &errMsg, &updatedAt)
	if err != nil {
		t.Fatalf("query session error = %v", err)
	}

	if state != "failed" {
		t.Errorf("queue_state = %s, want failed", state)
	}
	if errMsg != InterruptedMessage {
		t.Errorf("last_error = %q, want %q", errMsg, InterruptedMessage)
	}
	if _, err := time.Parse(time.RFC3339, updatedAt); err != nil {
		t.Errorf("updated_at = %q is not RFC3339: %v", updatedAt, err)
	}
}

func TestMigrate_AppliesEachFileOnce(t *testing.T) {
	database, err := New(MemoryPath, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer database.Close()

	if err := database.migrate(); err != nil {
		t.Fatalf("second migrate() error = %v", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	var count int
	if err := database.Conn().QueryRow("SELECT COUNT(*) FROM _migrations").Scan(&count); err != nil {
		t.Fatalf("count migrations: %v", err)
	}
	if count != len(entries) {
		t.Errorf("recorded migrations = %d, want %d", count, len(entries))
	}
}
