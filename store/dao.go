package store

import (
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"
)

// icalObjectColumns is the canonical column list used by every icalobject
// SELECT; scanICalObject must stay in lockstep with it.
const icalObjectColumns = `
	id, module, component, summary, description,
	dtstart, dtstart_timezone, dtend, dtend_timezone,
	due, due_timezone, completed, completed_timezone, duration,
	status, classification, priority, percent, url,
	uid, created, last_modified, dtstamp, sequence,
	rrule, rdate, exdate, recurid, is_recur_linked_instance, recur_original_id,
	collection_id, dirty, deleted, filename, etag, schedule_tag`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanICalObject(row rowScanner) (*ICalObject, error) {
	var o ICalObject
	var summary, description, dtstartTZ, dtendTZ, dueTZ, completedTZ sql.NullString
	var duration, status, classification, url, rrule, rdate, exdate sql.NullString
	var recurid, filename, etag, scheduleTag sql.NullString
	var dtstart, dtend, due, completed, recurOriginalID sql.NullInt64
	var priority, percent sql.NullInt64
	var linked, dirty, deleted int

	err := row.Scan(
		&o.ID, &o.Module, &o.Component, &summary, &description,
		&dtstart, &dtstartTZ, &dtend, &dtendTZ,
		&due, &dueTZ, &completed, &completedTZ, &duration,
		&status, &classification, &priority, &percent, &url,
		&o.UID, &o.Created, &o.LastModified, &o.DtStamp, &o.Sequence,
		&rrule, &rdate, &exdate, &recurid, &linked, &recurOriginalID,
		&o.CollectionID, &dirty, &deleted, &filename, &etag, &scheduleTag,
	)
	if err != nil {
		return nil, err
	}

	o.Summary = summary.String
	o.Description = description.String
	o.DtStartTimezone = dtstartTZ.String
	o.DtEndTimezone = dtendTZ.String
	o.DueTimezone = dueTZ.String
	o.CompletedTimezone = completedTZ.String
	o.Duration = duration.String
	o.Status = status.String
	o.Classification = classification.String
	o.URL = url.String
	o.RRule = rrule.String
	o.RDate = rdate.String
	o.ExDate = exdate.String
	o.RecurID = recurid.String
	o.FileName = filename.String
	o.ETag = etag.String
	o.ScheduleTag = scheduleTag.String
	o.IsRecurLinkedInstance = linked != 0
	o.Dirty = dirty != 0
	o.Deleted = deleted != 0

	if dtstart.Valid {
		o.DtStart = &dtstart.Int64
	}
	if dtend.Valid {
		o.DtEnd = &dtend.Int64
	}
	if due.Valid {
		o.Due = &due.Int64
	}
	if completed.Valid {
		o.Completed = &completed.Int64
	}
	if recurOriginalID.Valid {
		o.RecurOriginalID = &recurOriginalID.Int64
	}
	if priority.Valid {
		p := int(priority.Int64)
		o.Priority = &p
	}
	if percent.Valid {
		p := int(percent.Int64)
		o.Percent = &p
	}

	return &o, nil
}

// execer covers both *sql.Tx and *Database so DAO helpers compose into
// larger transactions.
type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

// InsertCollection stores a new collection and returns its id.
func (db *Database) InsertCollection(c *ICalCollection) (int64, error) {
	if c.AccountName == "" || c.AccountType == "" {
		return 0, &StoreError{Op: "InsertCollection", Err: fmt.Errorf("missing account identity")}
	}

	result, err := db.Exec(`
		INSERT INTO collection (
			url, display_name, description, color, owner,
			account_name, account_type,
			supports_vjournal, supports_vtodo, readonly, sync_version
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		nullString(c.URL), nullString(c.DisplayName), nullString(c.Description),
		nullString(c.Color), nullString(c.Owner),
		c.AccountName, c.AccountType,
		boolToInt(c.SupportsVJournal), boolToInt(c.SupportsVTodo),
		boolToInt(c.Readonly), nullString(c.SyncVersion),
	)
	if err != nil {
		return 0, &StoreError{Op: "InsertCollection", Err: err}
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, &StoreError{Op: "InsertCollection", Err: err}
	}
	c.ID = id
	return id, nil
}

// GetCollection loads a collection by id.
func (db *Database) GetCollection(id int64) (*ICalCollection, error) {
	return getCollection(db, id)
}

func getCollection(q execer, id int64) (*ICalCollection, error) {
	var c ICalCollection
	var url, displayName, description, color, owner, syncVersion sql.NullString
	var vjournal, vtodo, readonly int

	err := q.QueryRow(`
		SELECT id, url, display_name, description, color, owner,
		       account_name, account_type,
		       supports_vjournal, supports_vtodo, readonly, sync_version
		FROM collection WHERE id = ?
	`, id).Scan(
		&c.ID, &url, &displayName, &description, &color, &owner,
		&c.AccountName, &c.AccountType,
		&vjournal, &vtodo, &readonly, &syncVersion,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, &StoreError{Op: "GetCollection", CollectionID: id, Err: err}
	}

	c.URL = url.String
	c.DisplayName = displayName.String
	c.Description = description.String
	c.Color = color.String
	c.Owner = owner.String
	c.SyncVersion = syncVersion.String
	c.SupportsVJournal = vjournal != 0
	c.SupportsVTodo = vtodo != 0
	c.Readonly = readonly != 0
	return &c, nil
}

// ListCollections returns all collections ordered by display name.
func (db *Database) ListCollections() ([]ICalCollection, error) {
	rows, err := db.Query(`
		SELECT id, url, display_name, description, color, owner,
		       account_name, account_type,
		       supports_vjournal, supports_vtodo, readonly, sync_version
		FROM collection
		ORDER BY display_name ASC
	`)
	if err != nil {
		return nil, &StoreError{Op: "ListCollections", Err: err}
	}
	defer rows.Close()

	var collections []ICalCollection
	for rows.Next() {
		var c ICalCollection
		var url, displayName, description, color, owner, syncVersion sql.NullString
		var vjournal, vtodo, readonly int

		err := rows.Scan(
			&c.ID, &url, &displayName, &description, &color, &owner,
			&c.AccountName, &c.AccountType,
			&vjournal, &vtodo, &readonly, &syncVersion,
		)
		if err != nil {
			return nil, &StoreError{Op: "ListCollections", Err: err}
		}

		c.URL = url.String
		c.DisplayName = displayName.String
		c.Description = description.String
		c.Color = color.String
		c.Owner = owner.String
		c.SyncVersion = syncVersion.String
		c.SupportsVJournal = vjournal != 0
		c.SupportsVTodo = vtodo != 0
		c.Readonly = readonly != 0
		collections = append(collections, c)
	}

	return collections, rows.Err()
}

// DeleteCollection removes a collection; the schema cascade removes all its
// entries and their properties with it.
func (db *Database) DeleteCollection(id int64) error {
	result, err := db.Exec("DELETE FROM collection WHERE id = ?", id)
	if err != nil {
		return &StoreError{Op: "DeleteCollection", CollectionID: id, Err: err}
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return &StoreError{Op: "DeleteCollection", CollectionID: id, Err: err}
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// InsertICalObject validates the entry against its target collection and
// stores it inside a transaction.
func (db *Database) InsertICalObject(o *ICalObject) (int64, error) {
	tx, err := db.Begin()
	if err != nil {
		return 0, &StoreError{Op: "InsertICalObject", Err: err}
	}
	defer tx.Rollback()

	id, err := insertICalObjectTx(tx, o)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, &StoreError{Op: "InsertICalObject", Err: err}
	}
	return id, nil
}

func insertICalObjectTx(tx *sql.Tx, o *ICalObject) (int64, error) {
	if err := o.Validate(); err != nil {
		return 0, &StoreError{Op: "InsertICalObject", Err: err}
	}

	collection, err := getCollection(tx, o.CollectionID)
	if err != nil {
		return 0, err
	}
	if !collection.SupportsComponent(o.Component) {
		return 0, &StoreError{Op: "InsertICalObject", CollectionID: o.CollectionID, Err: ErrComponentNotSupported}
	}

	result, err := tx.Exec(`
		INSERT INTO icalobject (
			module, component, summary, description,
			dtstart, dtstart_timezone, dtend, dtend_timezone,
			due, due_timezone, completed, completed_timezone, duration,
			status, classification, priority, percent, url,
			uid, created, last_modified, dtstamp, sequence,
			rrule, rdate, exdate, recurid, is_recur_linked_instance, recur_original_id,
			collection_id, dirty, deleted, filename, etag, schedule_tag
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		string(o.Module), string(o.Component), nullString(o.Summary), nullString(o.Description),
		nullInt64(o.DtStart), nullString(o.DtStartTimezone), nullInt64(o.DtEnd), nullString(o.DtEndTimezone),
		nullInt64(o.Due), nullString(o.DueTimezone), nullInt64(o.Completed), nullString(o.CompletedTimezone), nullString(o.Duration),
		nullString(o.Status), nullString(o.Classification), nullIntPtr(o.Priority), nullIntPtr(o.Percent), nullString(o.URL),
		o.UID, o.Created, o.LastModified, o.DtStamp, o.Sequence,
		nullString(o.RRule), nullString(o.RDate), nullString(o.ExDate), nullString(o.RecurID),
		boolToInt(o.IsRecurLinkedInstance), nullInt64(o.RecurOriginalID),
		o.CollectionID, boolToInt(o.Dirty), boolToInt(o.Deleted),
		nullString(o.FileName), nullString(o.ETag), nullString(o.ScheduleTag),
	)
	if err != nil {
		return 0, &StoreError{Op: "InsertICalObject", CollectionID: o.CollectionID, Err: err}
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, &StoreError{Op: "InsertICalObject", Err: err}
	}
	o.ID = id
	return id, nil
}

// GetICalObject loads an entry by row id.
func (db *Database) GetICalObject(id int64) (*ICalObject, error) {
	return getICalObject(db, id)
}

func getICalObject(q execer, id int64) (*ICalObject, error) {
	o, err := scanICalObject(q.QueryRow(
		"SELECT"+icalObjectColumns+" FROM icalobject WHERE id = ?", id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, &StoreError{Op: "GetICalObject", ObjectID: id, Err: err}
	}
	return o, nil
}

// GetSeriesDefinition loads the defining (non-instance) row for a UID.
func (db *Database) GetSeriesDefinition(uid string) (*ICalObject, error) {
	return getSeriesDefinition(db, uid)
}

func getSeriesDefinition(q execer, uid string) (*ICalObject, error) {
	o, err := scanICalObject(q.QueryRow(
		"SELECT"+icalObjectColumns+` FROM icalobject
		 WHERE uid = ? AND (recurid IS NULL OR recurid = '') AND deleted = 0`, uid))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, &StoreError{Op: "GetSeriesDefinition", Err: err}
	}
	return o, nil
}

// ListRecurInstances returns the materialized instance rows for a UID,
// ordered by occurrence start.
func (db *Database) ListRecurInstances(uid string) ([]*ICalObject, error) {
	return queryObjects(db, "ListRecurInstances",
		"SELECT"+icalObjectColumns+` FROM icalobject
		 WHERE uid = ? AND recurid IS NOT NULL AND recurid != ''
		 ORDER BY dtstart ASC`, uid)
}

func queryObjects(q execer, op, query string, args ...any) ([]*ICalObject, error) {
	rows, err := q.Query(query, args...)
	if err != nil {
		return nil, &StoreError{Op: op, Err: err}
	}
	defer rows.Close()

	var objects []*ICalObject
	for rows.Next() {
		o, err := scanICalObject(rows)
		if err != nil {
			return nil, &StoreError{Op: op, Err: err}
		}
		objects = append(objects, o)
	}
	return objects, rows.Err()
}

// UpdateICalObject writes back every mutable column of the entry.
func (db *Database) UpdateICalObject(o *ICalObject) error {
	tx, err := db.Begin()
	if err != nil {
		return &StoreError{Op: "UpdateICalObject", ObjectID: o.ID, Err: err}
	}
	defer tx.Rollback()

	if err := updateICalObjectTx(tx, o); err != nil {
		return err
	}
	return tx.Commit()
}

func updateICalObjectTx(tx *sql.Tx, o *ICalObject) error {
	result, err := tx.Exec(`
		UPDATE icalobject SET
			module = ?, component = ?, summary = ?, description = ?,
			dtstart = ?, dtstart_timezone = ?, dtend = ?, dtend_timezone = ?,
			due = ?, due_timezone = ?, completed = ?, completed_timezone = ?, duration = ?,
			status = ?, classification = ?, priority = ?, percent = ?, url = ?,
			uid = ?, created = ?, last_modified = ?, dtstamp = ?, sequence = ?,
			rrule = ?, rdate = ?, exdate = ?, recurid = ?, is_recur_linked_instance = ?, recur_original_id = ?,
			collection_id = ?, dirty = ?, deleted = ?, filename = ?, etag = ?, schedule_tag = ?
		WHERE id = ?
	`,
		string(o.Module), string(o.Component), nullString(o.Summary), nullString(o.Description),
		nullInt64(o.DtStart), nullString(o.DtStartTimezone), nullInt64(o.DtEnd), nullString(o.DtEndTimezone),
		nullInt64(o.Due), nullString(o.DueTimezone), nullInt64(o.Completed), nullString(o.CompletedTimezone), nullString(o.Duration),
		nullString(o.Status), nullString(o.Classification), nullIntPtr(o.Priority), nullIntPtr(o.Percent), nullString(o.URL),
		o.UID, o.Created, o.LastModified, o.DtStamp, o.Sequence,
		nullString(o.RRule), nullString(o.RDate), nullString(o.ExDate), nullString(o.RecurID),
		boolToInt(o.IsRecurLinkedInstance), nullInt64(o.RecurOriginalID),
		o.CollectionID, boolToInt(o.Dirty), boolToInt(o.Deleted),
		nullString(o.FileName), nullString(o.ETag), nullString(o.ScheduleTag),
		o.ID,
	)
	if err != nil {
		return &StoreError{Op: "UpdateICalObject", ObjectID: o.ID, Err: err}
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return &StoreError{Op: "UpdateICalObject", ObjectID: o.ID, Err: err}
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteICalObject hard-deletes an entry; the schema cascade removes all its
// property rows.
func (db *Database) DeleteICalObject(id int64) error {
	_, err := db.Exec("DELETE FROM icalobject WHERE id = ?", id)
	if err != nil {
		return &StoreError{Op: "DeleteICalObject", ObjectID: id, Err: err}
	}
	return nil
}

// insertValuesTx builds a parameterized INSERT for a property table from a
// validated value bag. Keys are sorted so the statement shape is stable.
func insertValuesTx(tx *sql.Tx, table string, v Values) (int64, error) {
	keys := make([]string, 0, len(v))
	for key := range v {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	placeholders := make([]string, len(keys))
	args := make([]any, len(keys))
	for i, key := range keys {
		placeholders[i] = "?"
		args[i] = v[key]
	}

	query := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(keys, ", "), strings.Join(placeholders, ", "),
	)

	result, err := tx.Exec(query, args...)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// PurgeSyncedTombstones physically removes entries that were soft-deleted and
// whose tombstone the sync adapter has already pushed upstream (dirty reset).
// Idempotent: a second run finds nothing left to purge.
func (db *Database) PurgeSyncedTombstones() (int64, error) {
	result, err := db.Exec("DELETE FROM icalobject WHERE deleted = 1 AND dirty = 0")
	if err != nil {
		return 0, &StoreError{Op: "PurgeSyncedTombstones", Err: err}
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, &StoreError{Op: "PurgeSyncedTombstones", Err: err}
	}
	return affected, nil
}

// InsertPropertyRow validates and stores one property-table row from a value
// bag, returning the new row id.
func (db *Database) InsertPropertyRow(table string, v Values) (int64, error) {
	if err := v.Validate(table); err != nil {
		return 0, &StoreError{Op: "InsertPropertyRow", Err: err}
	}

	tx, err := db.Begin()
	if err != nil {
		return 0, &StoreError{Op: "InsertPropertyRow", Err: err}
	}
	defer tx.Rollback()

	id, err := insertValuesTx(tx, table, v)
	if err != nil {
		return 0, &StoreError{Op: "InsertPropertyRow", Err: err}
	}
	if err := tx.Commit(); err != nil {
		return 0, &StoreError{Op: "InsertPropertyRow", Err: err}
	}
	return id, nil
}

// readPropertyRows loads all rows of a property table for one entry as value
// bags keyed by the table's column schema.
func readPropertyRows(q execer, table string, objectID int64) ([]Values, error) {
	schema := TableSchema(table)
	if schema == nil {
		return nil, fmt.Errorf("unknown table %q", table)
	}

	cols := make([]string, 0, len(schema))
	for col := range schema {
		cols = append(cols, col)
	}
	sort.Strings(cols)

	query := fmt.Sprintf(
		"SELECT %s FROM %s WHERE icalobject_id = ? ORDER BY id ASC",
		strings.Join(cols, ", "), table,
	)

	rows, err := q.Query(query, objectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Values
	for rows.Next() {
		dest := make([]any, len(cols))
		for i := range dest {
			dest[i] = new(any)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}

		v := Values{}
		for i, col := range cols {
			val := *(dest[i].(*any))
			if val == nil {
				continue
			}
			switch schema[col] {
			case ColText:
				switch s := val.(type) {
				case string:
					if s != "" {
						v[col] = s
					}
				case []byte:
					if len(s) > 0 {
						v[col] = string(s)
					}
				}
			case ColInt:
				if n, ok := val.(int64); ok {
					v[col] = n
				}
			case ColBool:
				if n, ok := val.(int64); ok {
					v[col] = n != 0
				}
			}
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// propertyTables lists every satellite table bound to icalobject.
var propertyTables = []string{
	"attendee", "category", "comment", "contact", "organizer",
	"relatedto", "resource", "attachment", "alarm", "unknown",
}

// copyPropertiesTx duplicates property rows from one entry to another.
// Relatedto is always skipped: a generated instance never carries relations
// of its own, and moved copies get their links rewritten explicitly.
func copyPropertiesTx(tx *sql.Tx, fromID, toID int64, skipRelated bool) error {
	for _, table := range propertyTables {
		if table == "relatedto" && skipRelated {
			continue
		}
		rows, err := readPropertyRows(tx, table, fromID)
		if err != nil {
			return fmt.Errorf("failed to read %s rows: %w", table, err)
		}
		for _, v := range rows {
			v["icalobject_id"] = toID
			if _, err := insertValuesTx(tx, table, v); err != nil {
				return fmt.Errorf("failed to copy %s row: %w", table, err)
			}
		}
	}
	return nil
}

// Helper functions

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullInt64(n *int64) sql.NullInt64 {
	if n == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *n, Valid: true}
}

func nullIntPtr(n *int) sql.NullInt64 {
	if n == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*n), Valid: true}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}
