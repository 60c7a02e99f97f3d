package provider

import (
	"strconv"
	"testing"

	"jtxboard/store"
)

func setupTestProvider(t *testing.T) (*Provider, *store.Database) {
	t.Helper()
	db, err := store.InitInMemoryDatabase()
	if err != nil {
		t.Fatalf("failed to init in-memory database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return New(db, testAuthority, t.TempDir()), db
}

func uri(path string) string {
	return "content://" + testAuthority + "/" + path
}

func syncURI(path, account, accountType string) string {
	return uri(path) + "?CALLER_IS_SYNCADAPTER=true&ACCOUNT_NAME=" + account + "&ACCOUNT_TYPE=" + accountType
}

func mustLocalCollection(t *testing.T, db *store.Database, name string) int64 {
	t.Helper()
	id, err := db.InsertCollection(store.NewLocalCollection(name))
	if err != nil {
		t.Fatal(err)
	}
	return id
}

func mustRemoteCollection(t *testing.T, db *store.Database, name, account, accountType string) int64 {
	t.Helper()
	id, err := db.InsertCollection(&store.ICalCollection{
		DisplayName:      name,
		AccountName:      account,
		AccountType:      accountType,
		SupportsVJournal: true,
		SupportsVTodo:    true,
	})
	if err != nil {
		t.Fatal(err)
	}
	return id
}

func TestInsertAndQueryLocalEntry(t *testing.T) {
	p, db := setupTestProvider(t)
	collectionID := mustLocalCollection(t, db, "Local")

	id, err := p.Insert(uri("icalobject"), store.Values{
		"collection_id": collectionID,
		"module":        "TODO",
		"summary":       "from the contract",
	})
	if err != nil {
		t.Fatalf("Insert() failed: %v", err)
	}
	if id == 0 {
		t.Fatal("insert yielded no row")
	}

	// Non-sync inserts become sync-relevant immediately.
	o, err := db.GetICalObject(id)
	if err != nil {
		t.Fatal(err)
	}
	if !o.Dirty {
		t.Error("non-sync insert should mark the entry dirty")
	}

	rows, err := p.Query(uri("icalobject"), "", nil, "")
	if err != nil {
		t.Fatalf("Query() failed: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	if rows[0].GetString("summary") != "from the contract" {
		t.Errorf("summary = %q", rows[0].GetString("summary"))
	}
	if _, ok := rows[0].GetInt64("id"); !ok {
		t.Error("row is missing the surrogate id")
	}
}

func TestInsertDanglingReferencesYieldNoRow(t *testing.T) {
	p, db := setupTestProvider(t)

	// Unknown collection: absence of a created row, not an error.
	id, err := p.Insert(uri("icalobject"), store.Values{
		"collection_id": int64(999),
		"summary":       "orphan",
	})
	if err != nil {
		t.Fatalf("Insert() with dangling collection failed: %v", err)
	}
	if id != 0 {
		t.Errorf("id = %d, want 0 for dangling collection", id)
	}

	// Unknown parent entry for a property row.
	id, err = p.Insert(uri("category"), store.Values{
		"icalobject_id": int64(999),
		"text":          "stray",
	})
	if err != nil {
		t.Fatalf("Insert() with dangling parent failed: %v", err)
	}
	if id != 0 {
		t.Errorf("id = %d, want 0 for dangling parent", id)
	}

	// Incomplete bag resolves to no entity at all.
	collectionID := mustLocalCollection(t, db, "Local")
	o, err := db.InsertICalObject(withCollection(store.NewTodo("holder"), collectionID))
	if err != nil {
		t.Fatal(err)
	}
	id, err = p.Insert(uri("category"), store.Values{"icalobject_id": o})
	if err != nil {
		t.Fatalf("Insert() with incomplete bag failed: %v", err)
	}
	if id != 0 {
		t.Errorf("id = %d, want 0 for incomplete bag", id)
	}
}

func withCollection(o *store.ICalObject, collectionID int64) *store.ICalObject {
	o.CollectionID = collectionID
	return o
}

func TestInsertRejectsMalformedRequests(t *testing.T) {
	p, db := setupTestProvider(t)
	collectionID := mustLocalCollection(t, db, "Local")

	// Insert against a row URI.
	_, err := p.Insert(uri("icalobject/5"), store.Values{"collection_id": collectionID})
	if _, ok := err.(*ArgumentError); !ok {
		t.Errorf("insert on row uri = %v, want ArgumentError", err)
	}

	// Invalid value bag.
	_, err = p.Insert(uri("icalobject"), store.Values{
		"collection_id": collectionID,
		"no_such_col":   "x",
	})
	if _, ok := err.(*ArgumentError); !ok {
		t.Errorf("insert with unknown column = %v, want ArgumentError", err)
	}
}

func TestScopingSeparatesCallers(t *testing.T) {
	p, db := setupTestProvider(t)
	localID := mustLocalCollection(t, db, "Local")
	remoteID := mustRemoteCollection(t, db, "Remote", "dav", "caldav")

	if _, err := db.InsertICalObject(withCollection(store.NewTodo("local task"), localID)); err != nil {
		t.Fatal(err)
	}
	if _, err := db.InsertICalObject(withCollection(store.NewTodo("remote task"), remoteID)); err != nil {
		t.Fatal(err)
	}

	// A plain caller sees only local rows.
	rows, err := p.Query(uri("icalobject"), "", nil, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0].GetString("summary") != "local task" {
		t.Errorf("non-sync query returned %v", rows)
	}

	// The sync adapter sees exactly its own account.
	rows, err = p.Query(syncURI("icalobject", "dav", "caldav"), "", nil, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0].GetString("summary") != "remote task" {
		t.Errorf("sync query returned %v", rows)
	}

	// A different account sees nothing.
	rows, err = p.Query(syncURI("icalobject", "other", "caldav"), "", nil, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 0 {
		t.Errorf("foreign account query returned %d rows", len(rows))
	}
}

func TestNonSyncCallerCannotWriteRemoteCollection(t *testing.T) {
	p, db := setupTestProvider(t)
	remoteID := mustRemoteCollection(t, db, "Remote", "dav", "caldav")

	_, err := p.Insert(uri("icalobject"), store.Values{
		"collection_id": remoteID,
		"summary":       "trespassing",
	})
	if _, ok := err.(*ArgumentError); !ok {
		t.Errorf("non-sync insert into remote collection = %v, want ArgumentError", err)
	}

	// The owning sync adapter may write it.
	id, err := p.Insert(syncURI("icalobject", "dav", "caldav"), store.Values{
		"collection_id": remoteID,
		"summary":       "authorized",
	})
	if err != nil || id == 0 {
		t.Errorf("sync insert into own collection = (%d, %v)", id, err)
	}

	// A foreign sync adapter may not.
	_, err = p.Insert(syncURI("icalobject", "other", "caldav"), store.Values{
		"collection_id": remoteID,
		"summary":       "foreign",
	})
	if _, ok := err.(*ArgumentError); !ok {
		t.Errorf("foreign sync insert = %v, want ArgumentError", err)
	}
}

func TestSelectionArgsStayLiteral(t *testing.T) {
	p, db := setupTestProvider(t)
	collectionID := mustLocalCollection(t, db, "Local")

	hostile := `x"; DELETE FROM icalobject; --`
	id, err := p.Insert(uri("icalobject"), store.Values{
		"collection_id": collectionID,
		"summary":       hostile,
	})
	if err != nil {
		t.Fatal(err)
	}

	// The hostile text is stored as a literal.
	o, err := db.GetICalObject(id)
	if err != nil {
		t.Fatal(err)
	}
	if o.Summary != hostile {
		t.Errorf("summary = %q, want the literal input", o.Summary)
	}

	// A selection argument carrying SQL matches (or not) as a value, with no
	// side effects.
	rows, err := p.Query(uri("icalobject"), "summary = ?", []any{"1 OR 1=1"}, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 0 {
		t.Errorf("injected selection arg matched %d rows, want 0", len(rows))
	}

	rows, err = p.Query(uri("icalobject"), "", nil, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 {
		t.Errorf("table lost rows after injection attempt: %d", len(rows))
	}
}

func TestSelectionCannotEscapeScope(t *testing.T) {
	p, db := setupTestProvider(t)
	localColl := mustLocalCollection(t, db, "Local")
	remoteColl := mustRemoteCollection(t, db, "Remote", "dav-home", "caldav")

	for _, collectionID := range []int64{localColl, remoteColl} {
		objectID, err := db.InsertICalObject(withCollection(store.NewTodo("holder"), collectionID))
		if err != nil {
			t.Fatal(err)
		}
		_, err = db.InsertPropertyRow("category", store.Values{
			"icalobject_id": objectID,
			"text":          "work",
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	// A parenthesis breakout would turn the WHERE clause into
	// "<scope> AND (1=1) OR (1=1)" and make the scope irrelevant.
	breakouts := []string{
		"1=1) OR (1=1",
		"1=1)) OR ((1=1",
		"text = 'x' --",
		"1=1; DELETE FROM category",
		"text = 'unterminated",
		"1=1) /* ",
	}
	for _, selection := range breakouts {
		affected, err := p.Delete(uri("category"), selection, nil)
		if _, ok := err.(*ArgumentError); !ok {
			t.Errorf("Delete with selection %q = (%d, %v), want ArgumentError", selection, affected, err)
		}
		if _, err := p.Query(uri("category"), selection, nil, ""); err == nil {
			t.Errorf("Query accepted breakout selection %q", selection)
		}
		if _, err := p.Update(uri("category"), store.Values{"text": "x"}, selection, nil); err == nil {
			t.Errorf("Update accepted breakout selection %q", selection)
		}
	}

	// Both rows survive, and each caller still sees exactly its own.
	rows, err := p.Query(uri("category"), "", nil, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 {
		t.Errorf("local caller sees %d category rows, want 1", len(rows))
	}
	rows, err = p.Query(syncURI("category", "dav-home", "caldav"), "", nil, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 {
		t.Errorf("remote row count after breakout attempts = %d, want 1", len(rows))
	}

	// Benign selections, including quoted literals with parentheses and the
	// '' escape, keep working.
	benign := []string{
		"text = ?",
		"(text = ? OR text = 'home)')",
		"text = 'it''s (fine)'",
	}
	for _, selection := range benign {
		if !validSelection(selection) {
			t.Errorf("validSelection(%q) = false, want true", selection)
		}
	}
	rows, err = p.Query(uri("category"), "text = ?", []any{"work"}, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 {
		t.Errorf("parameterized selection matched %d rows, want 1", len(rows))
	}
}

func TestQueryRejectsHostileOrderBy(t *testing.T) {
	p, _ := setupTestProvider(t)
	_, err := p.Query(uri("icalobject"), "", nil, "summary; DROP TABLE icalobject")
	if _, ok := err.(*ArgumentError); !ok {
		t.Errorf("hostile order-by = %v, want ArgumentError", err)
	}
}

func TestUpdateBumpsSyncBookkeeping(t *testing.T) {
	p, db := setupTestProvider(t)
	collectionID := mustLocalCollection(t, db, "Local")
	o, err := db.InsertICalObject(withCollection(store.NewTodo("editable"), collectionID))
	if err != nil {
		t.Fatal(err)
	}

	before, err := db.GetICalObject(o)
	if err != nil {
		t.Fatal(err)
	}

	affected, err := p.Update(uri("icalobject"), store.Values{"summary": "edited"}, "id = ?", []any{o})
	if err != nil {
		t.Fatalf("Update() failed: %v", err)
	}
	if affected != 1 {
		t.Fatalf("affected = %d, want 1", affected)
	}

	after, err := db.GetICalObject(o)
	if err != nil {
		t.Fatal(err)
	}
	if after.Summary != "edited" {
		t.Errorf("summary = %q", after.Summary)
	}
	if after.Sequence != before.Sequence+1 {
		t.Errorf("sequence = %d, want %d", after.Sequence, before.Sequence+1)
	}
	if !after.Dirty {
		t.Error("non-sync update should mark the entry dirty")
	}
}

func TestSyncUpdateWritesExactly(t *testing.T) {
	p, db := setupTestProvider(t)
	remoteID := mustRemoteCollection(t, db, "Remote", "dav", "caldav")

	entry := withCollection(store.NewTodo("synced"), remoteID)
	entry.Dirty = true
	id, err := db.InsertICalObject(entry)
	if err != nil {
		t.Fatal(err)
	}

	// The adapter resets dirty after a successful upload; no bookkeeping may
	// be layered on top.
	affected, err := p.Update(syncURI("icalobject", "dav", "caldav"),
		store.Values{"dirty": false, "etag": "v2"}, "id = ?", []any{id})
	if err != nil {
		t.Fatal(err)
	}
	if affected != 1 {
		t.Fatalf("affected = %d, want 1", affected)
	}

	after, err := db.GetICalObject(id)
	if err != nil {
		t.Fatal(err)
	}
	if after.Dirty {
		t.Error("dirty flag not reset by sync update")
	}
	if after.Sequence != entry.Sequence {
		t.Errorf("sequence = %d, sync update must not bump it", after.Sequence)
	}
	if after.ETag != "v2" {
		t.Errorf("etag = %q", after.ETag)
	}
}

func TestUpdateRematerializesRecurrence(t *testing.T) {
	p, db := setupTestProvider(t)
	collectionID := mustLocalCollection(t, db, "Local")

	series := withCollection(store.NewTodo("series"), collectionID)
	dtstart := int64(1704067200000)
	series.DtStart = &dtstart
	series.DtStartTimezone = store.TZAllDay
	series.RRule = "FREQ=DAILY;COUNT=3"
	id, err := db.InsertICalObject(series)
	if err != nil {
		t.Fatal(err)
	}
	if err := db.RecreateRecurring(id); err != nil {
		t.Fatal(err)
	}

	_, err = p.Update(uri("icalobject"),
		store.Values{"rrule": "FREQ=DAILY;COUNT=5"}, "id = ?", []any{id})
	if err != nil {
		t.Fatal(err)
	}

	instances, err := db.ListRecurInstances(series.UID)
	if err != nil {
		t.Fatal(err)
	}
	if len(instances) != 5 {
		t.Errorf("got %d instances after rrule update, want 5", len(instances))
	}
}

func TestUpdateEmptyBagRejected(t *testing.T) {
	p, _ := setupTestProvider(t)
	_, err := p.Update(uri("icalobject"), store.Values{}, "", nil)
	if _, ok := err.(*ArgumentError); !ok {
		t.Errorf("empty bag update = %v, want ArgumentError", err)
	}
}

func TestDeleteLocalEntryIsPhysical(t *testing.T) {
	p, db := setupTestProvider(t)
	collectionID := mustLocalCollection(t, db, "Local")
	id, err := db.InsertICalObject(withCollection(store.NewTodo("short-lived"), collectionID))
	if err != nil {
		t.Fatal(err)
	}

	affected, err := p.Delete(uri("icalobject/")+itoa(id), "", nil)
	if err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}
	if affected != 1 {
		t.Errorf("affected = %d, want 1", affected)
	}
	if _, err := db.GetICalObject(id); err != store.ErrNotFound {
		t.Errorf("lookup after delete = %v, want ErrNotFound", err)
	}
}

func TestDeleteRemoteEntryScoping(t *testing.T) {
	p, db := setupTestProvider(t)
	remoteID := mustRemoteCollection(t, db, "Remote", "dav", "caldav")
	id, err := db.InsertICalObject(withCollection(store.NewTodo("to tombstone"), remoteID))
	if err != nil {
		t.Fatal(err)
	}

	// A non-sync caller cannot even see the remote row, so nothing happens.
	affected, err := p.Delete(uri("icalobject/")+itoa(id), "", nil)
	if err != nil {
		t.Fatal(err)
	}
	if affected != 0 {
		t.Errorf("non-sync delete of invisible row affected %d", affected)
	}

	// The owning sync adapter deletes physically.
	affected, err = p.Delete(syncURI("icalobject/"+itoa(id), "dav", "caldav"), "", nil)
	if err != nil {
		t.Fatal(err)
	}
	if affected != 1 {
		t.Errorf("sync delete affected %d, want 1", affected)
	}
	if _, err := db.GetICalObject(id); err != store.ErrNotFound {
		t.Errorf("lookup after sync delete = %v, want ErrNotFound", err)
	}
}

func TestDeletePropertyRows(t *testing.T) {
	p, db := setupTestProvider(t)
	collectionID := mustLocalCollection(t, db, "Local")
	id, err := db.InsertICalObject(withCollection(store.NewTodo("tagged"), collectionID))
	if err != nil {
		t.Fatal(err)
	}
	catID, err := db.InsertPropertyRow("category", store.Values{
		"icalobject_id": id, "text": "temp",
	})
	if err != nil {
		t.Fatal(err)
	}

	affected, err := p.Delete(uri("category/")+itoa(catID), "", nil)
	if err != nil {
		t.Fatal(err)
	}
	if affected != 1 {
		t.Errorf("affected = %d, want 1", affected)
	}
}

func TestGetType(t *testing.T) {
	p, _ := setupTestProvider(t)

	got, err := p.GetType(uri("icalobject"))
	if err != nil {
		t.Fatal(err)
	}
	want := "vnd.android.cursor.dir/vnd." + testAuthority + ".icalobject"
	if got != want {
		t.Errorf("GetType(dir) = %q, want %q", got, want)
	}

	got, err = p.GetType(uri("icalobject/7"))
	if err != nil {
		t.Fatal(err)
	}
	want = "vnd.android.cursor.item/vnd." + testAuthority + ".icalobject"
	if got != want {
		t.Errorf("GetType(item) = %q, want %q", got, want)
	}

	if _, err := p.GetType(uri("bogus")); err == nil {
		t.Error("GetType on unknown table should fail")
	}
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}
