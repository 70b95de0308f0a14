package db

import (
	"database/sql"
	"path/filepath"
	"testing"
)

func testDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := OpenDB(t.TempDir() + "/test.db")
	if err != nil {
		t.Fatal(err)
	}
	if err := InitSchema(db); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestInitSchema(t *testing.T) {
	db := testDB(t)

	var name string
	err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name='messages'`).Scan(&name)
	if err != nil {
		t.Fatalf("messages table not created: %v", err)
	}
}

func TestInitSchema_Idempotent(t *testing.T) {
	db := testDB(t)
	if _, err := db.Exec(`INSERT INTO messages (user_id, role, message) VALUES (1, 'user', 'hi')`); err != nil {
		t.Fatal(err)
	}
	if err := InitSchema(db); err != nil {
		t.Fatalf("second InitSchema failed: %v", err)
	}

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM messages`).Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Fatalf("expected existing row to survive, got count=%d", count)
	}
}

func TestInitSchema_Defaults(t *testing.T) {
	db := testDB(t)
	if _, err := db.Exec(`INSERT INTO messages (user_id, role, message) VALUES (1, 'user', 'hi')`); err != nil {
		t.Fatal(err)
	}

	var chatID string
	var ts sql.NullString
	if err := db.QueryRow(`SELECT chat_id, timestamp FROM messages`).Scan(&chatID, &ts); err != nil {
		t.Fatal(err)
	}
	if chatID != "0" {
		t.Errorf("expected chat_id '0', got %q", chatID)
	}
	if !ts.Valid || ts.String == "" {
		t.Error("expected timestamp to be assigned at write time")
	}
}

func TestOpenDB_CreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "gpt.db")
	db, err := OpenDB(path)
	if err != nil {
		t.Fatalf("OpenDB failed: %v", err)
	}
	db.Close()
}

// Schema written by the first version of the bot: no id column, nullable
// chat_id.
const legacySchema = `
	CREATE TABLE IF NOT EXISTS messages (user_id INT, chat_id TEXT, role TEXT, message TEXT, timestamp TIMESTAMP DEFAULT CURRENT_TIMESTAMP);
	CREATE TABLE IF NOT EXISTS users (user_id INT, chat_id TEXT);
`

func TestInitSchema_LegacyFile(t *testing.T) {
	db, err := OpenDB(t.TempDir() + "/gpt.db")
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	if _, err := db.Exec(legacySchema); err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec(`INSERT INTO messages (user_id, chat_id, role, message) VALUES (1, 0, 'user', 'old')`); err != nil {
		t.Fatal(err)
	}

	if err := InitSchema(db); err != nil {
		t.Fatalf("InitSchema on legacy file failed: %v", err)
	}

	var message string
	if err := db.QueryRow(`SELECT message FROM messages WHERE user_id = 1 ORDER BY rowid DESC`).Scan(&message); err != nil {
		t.Fatal(err)
	}
	if message != "old" {
		t.Fatalf("expected legacy row to survive, got %q", message)
	}
}
