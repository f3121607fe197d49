package journal

import (
	"os"
	"testing"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "atelier-journal-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(f.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRecordAndRecent(t *testing.T) {
	db := testDB(t)

	if err := db.Record(ActionPublish, "commit-1", "Update portfolio content"); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := db.Record(ActionRevert, "commit-0", ""); err != nil {
		t.Fatalf("Record: %v", err)
	}

	entries, err := db.Recent(10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("len = %d, want 2", len(entries))
	}
	// Most recent first.
	if entries[0].Action != ActionRevert || entries[1].Action != ActionPublish {
		t.Errorf("order wrong: %+v", entries)
	}
	if entries[1].SHA != "commit-1" {
		t.Errorf("sha = %q", entries[1].SHA)
	}
	if entries[0].CreatedAt.IsZero() {
		t.Error("created_at should be set")
	}
}

func TestRecentLimit(t *testing.T) {
	db := testDB(t)
	for i := 0; i < 5; i++ {
		_ = db.Record(ActionPublish, "sha", "m")
	}
	entries, err := db.Recent(3)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(entries) != 3 {
		t.Errorf("len = %d, want 3", len(entries))
	}
}

func TestRecentEmpty(t *testing.T) {
	db := testDB(t)
	entries, err := db.Recent(10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("len = %d, want 0", len(entries))
	}
}
