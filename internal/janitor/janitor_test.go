package janitor

import (
	"os"
	"path/filepath"
	"testing"

	"jtxboard/store"
)

func setupTestDB(t *testing.T) *store.Database {
	t.Helper()
	db, err := store.InitInMemoryDatabase()
	if err != nil {
		t.Fatalf("failed to init in-memory database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func insertRemoteTodo(t *testing.T, db *store.Database, summary string, deleted, dirty bool) int64 {
	t.Helper()
	collection := &store.ICalCollection{
		DisplayName:   "Remote",
		AccountName:   "dav-home",
		AccountType:   "caldav",
		SupportsVTodo: true,
	}
	collections, err := db.ListCollections()
	if err != nil {
		t.Fatal(err)
	}
	var collectionID int64
	for _, c := range collections {
		if c.DisplayName == "Remote" {
			collectionID = c.ID
		}
	}
	if collectionID == 0 {
		collectionID, err = db.InsertCollection(collection)
		if err != nil {
			t.Fatal(err)
		}
	}

	todo := store.NewTodo(summary)
	todo.CollectionID = collectionID
	todo.Deleted = deleted
	todo.Dirty = dirty
	id, err := db.InsertICalObject(todo)
	if err != nil {
		t.Fatal(err)
	}
	return id
}

func TestRunOncePurgesSyncedTombstones(t *testing.T) {
	db := setupTestDB(t)

	syncedID := insertRemoteTodo(t, db, "synced tombstone", true, false)
	pendingID := insertRemoteTodo(t, db, "pending tombstone", true, true)
	liveID := insertRemoteTodo(t, db, "live", false, false)

	j := New(db, "")
	if err := j.RunOnce(); err != nil {
		t.Fatalf("RunOnce() failed: %v", err)
	}

	if _, err := db.GetICalObject(syncedID); err != store.ErrNotFound {
		t.Errorf("synced tombstone should be purged, got err=%v", err)
	}
	if _, err := db.GetICalObject(pendingID); err != nil {
		t.Errorf("unsynced tombstone must survive: %v", err)
	}
	if _, err := db.GetICalObject(liveID); err != nil {
		t.Errorf("live entry must survive: %v", err)
	}

	// Idempotence: the second run has nothing left to purge.
	if err := j.RunOnce(); err != nil {
		t.Fatalf("second RunOnce() failed: %v", err)
	}
}

func TestSweepAttachmentFiles(t *testing.T) {
	db := setupTestDB(t)
	dir := t.TempDir()

	objectID := insertRemoteTodo(t, db, "with attachment", false, false)

	keptPath := filepath.Join(dir, "kept.pdf")
	if err := os.WriteFile(keptPath, []byte("pdf bytes"), 0644); err != nil {
		t.Fatal(err)
	}
	orphanPath := filepath.Join(dir, "orphan.png")
	if err := os.WriteFile(orphanPath, []byte("png bytes"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := db.InsertPropertyRow("attachment", store.Values{
		"icalobject_id": objectID,
		"uri":           "file://" + keptPath,
		"filename":      "kept.pdf",
	})
	if err != nil {
		t.Fatal(err)
	}

	j := New(db, dir)
	removed, err := j.SweepAttachmentFiles()
	if err != nil {
		t.Fatalf("SweepAttachmentFiles() failed: %v", err)
	}
	if removed != 1 {
		t.Errorf("expected 1 removed file, got %d", removed)
	}

	if _, err := os.Stat(keptPath); err != nil {
		t.Errorf("referenced file must survive: %v", err)
	}
	if _, err := os.Stat(orphanPath); !os.IsNotExist(err) {
		t.Error("orphaned file should be removed")
	}

	// Re-run on an already clean directory.
	removed, err = j.SweepAttachmentFiles()
	if err != nil {
		t.Fatalf("second sweep failed: %v", err)
	}
	if removed != 0 {
		t.Errorf("second sweep should remove nothing, removed %d", removed)
	}
}

func TestSweepMissingDirectory(t *testing.T) {
	db := setupTestDB(t)
	j := New(db, "/nonexistent/attachment/dir")

	removed, err := j.SweepAttachmentFiles()
	if err != nil {
		t.Fatalf("sweep on missing directory should not fail: %v", err)
	}
	if removed != 0 {
		t.Errorf("expected 0 removals, got %d", removed)
	}
}
