package store

import (
	"database/sql"
	"math"
	"time"

	"jtxboard/internal/utils"
)

// Parent/child relationships are carried as Relatedto rows with
// reltype=PARENT on the child, pointing at the parent's UID. The UID may
// refer to an entry that has not arrived through sync yet, so every walk here
// tolerates unresolvable links.

// parentUIDs returns the distinct UIDs the given entry declares as parents.
func parentUIDs(q execer, objectID int64) ([]string, error) {
	rows, err := q.Query(`
		SELECT DISTINCT text FROM relatedto
		WHERE icalobject_id = ? AND reltype = ?
	`, objectID, ReltypeParent)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var uids []string
	for rows.Next() {
		var uid string
		if err := rows.Scan(&uid); err != nil {
			return nil, err
		}
		uids = append(uids, uid)
	}
	return uids, rows.Err()
}

// childIDs returns the row ids of entries that declare the given UID as
// their parent. Recur instances are excluded: a generated instance cannot
// act as anyone's child.
func childIDs(q execer, parentUID string) ([]int64, error) {
	rows, err := q.Query(`
		SELECT o.id FROM icalobject o
		INNER JOIN relatedto r ON r.icalobject_id = o.id
		WHERE r.reltype = ? AND r.text = ?
		  AND (o.recurid IS NULL OR o.recurid = '')
	`, ReltypeParent, parentUID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// FindTopParent walks PARENT links upward and returns the top-most ancestor.
// Malformed sync data is answered with (nil, nil) instead of an error: a
// self-referential link, a cycle, or an entry with more than one distinct
// parent all mean there is no definitive answer.
func (db *Database) FindTopParent(id int64) (*ICalObject, error) {
	current, err := db.GetICalObject(id)
	if err != nil {
		return nil, err
	}

	visited := map[string]bool{current.UID: true}

	for {
		uids, err := parentUIDs(db, current.ID)
		if err != nil {
			return nil, &StoreError{Op: "FindTopParent", ObjectID: id, Err: err}
		}

		if len(uids) == 0 {
			return current, nil
		}
		if len(uids) > 1 {
			utils.Debugf("entry %d has %d distinct parents, hierarchy is ambiguous", current.ID, len(uids))
			return nil, nil
		}

		parentUID := uids[0]
		if parentUID == current.UID || visited[parentUID] {
			utils.Debugf("entry %d links to itself or into a cycle", current.ID)
			return nil, nil
		}
		visited[parentUID] = true

		parent, err := getSeriesDefinition(db, parentUID)
		if err == ErrNotFound {
			// The parent has not synced down yet; the chain ends here.
			return current, nil
		}
		if err != nil {
			return nil, err
		}
		current = parent
	}
}

// UpdateProgress sets an entry's progress and derives its status, then, when
// keepParentsInSync is set, recomputes every ancestor's percent as the
// rounded mean of its children and derives the ancestor's status from the
// aggregate. With keepParentsInSync false, parents are left untouched.
func (db *Database) UpdateProgress(id int64, percent int, keepParentsInSync, markDirty bool) error {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}

	tx, err := db.Begin()
	if err != nil {
		return &StoreError{Op: "UpdateProgress", ObjectID: id, Err: err}
	}
	defer tx.Rollback()

	child, err := getICalObject(tx, id)
	if err != nil {
		return err
	}

	applyProgress(child, percent, markDirty)
	if err := updateICalObjectTx(tx, child); err != nil {
		return err
	}

	if keepParentsInSync {
		if err := propagateProgress(tx, child, markDirty, map[string]bool{child.UID: true}); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func applyProgress(o *ICalObject, percent int, markDirty bool) {
	o.Percent = &percent
	o.Status = StatusFromPercent(percent)
	if percent >= 100 {
		completed := time.Now().UnixMilli()
		o.Completed = &completed
	} else {
		o.Completed = nil
	}
	o.Sequence++
	o.LastModified = time.Now().UnixMilli()
	if markDirty {
		o.Dirty = true
	}
}

// propagateProgress walks upward from the given entry, recomputing each
// parent from the mean of all its children. The visited set guards against
// cycles in malformed remote data.
func propagateProgress(tx *sql.Tx, child *ICalObject, markDirty bool, visited map[string]bool) error {
	uids, err := parentUIDs(tx, child.ID)
	if err != nil {
		return &StoreError{Op: "UpdateProgress", ObjectID: child.ID, Err: err}
	}

	for _, parentUID := range uids {
		if visited[parentUID] {
			continue
		}
		visited[parentUID] = true

		parent, err := getSeriesDefinition(tx, parentUID)
		if err == ErrNotFound {
			continue
		}
		if err != nil {
			return err
		}
		if parent.Module != ModuleTodo {
			continue
		}

		mean, err := childPercentMean(tx, parentUID)
		if err != nil {
			return &StoreError{Op: "UpdateProgress", ObjectID: parent.ID, Err: err}
		}

		applyProgress(parent, mean, markDirty)
		if err := updateICalObjectTx(tx, parent); err != nil {
			return err
		}

		if err := propagateProgress(tx, parent, markDirty, visited); err != nil {
			return err
		}
	}

	return nil
}

// childPercentMean computes the rounded arithmetic mean percent over all
// children of the given parent UID. Children without a percent count as 0.
func childPercentMean(q execer, parentUID string) (int, error) {
	rows, err := q.Query(`
		SELECT COALESCE(o.percent, 0) FROM icalobject o
		INNER JOIN relatedto r ON r.icalobject_id = o.id
		WHERE r.reltype = ? AND r.text = ?
		  AND (o.recurid IS NULL OR o.recurid = '') AND o.deleted = 0
	`, ReltypeParent, parentUID)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	var sum, count int
	for rows.Next() {
		var percent int
		if err := rows.Scan(&percent); err != nil {
			return 0, err
		}
		sum += percent
		count++
	}
	if err := rows.Err(); err != nil {
		return 0, err
	}
	if count == 0 {
		return 0, nil
	}
	return int(math.Round(float64(sum) / float64(count))), nil
}

// DeleteItemWithChildren removes an entry and its entire descendant subtree,
// depth first. Entries in a local collection are hard-deleted; entries in a
// remote collection are tombstoned (deleted=1, dirty=1) so the sync adapter
// can propagate the removal upstream first. A recur instance is always
// hard-deleted directly: it has no children and no sync identity beyond its
// series.
func (db *Database) DeleteItemWithChildren(id int64) error {
	tx, err := db.Begin()
	if err != nil {
		return &StoreError{Op: "DeleteItemWithChildren", ObjectID: id, Err: err}
	}
	defer tx.Rollback()

	if err := deleteSubtreeTx(tx, id, map[int64]bool{}); err != nil {
		return err
	}
	return tx.Commit()
}

func deleteSubtreeTx(tx *sql.Tx, id int64, visited map[int64]bool) error {
	if visited[id] {
		return nil
	}
	visited[id] = true

	o, err := getICalObject(tx, id)
	if err != nil {
		if err == ErrNotFound {
			return nil
		}
		return err
	}

	if o.IsRecurInstance() {
		_, err := tx.Exec("DELETE FROM icalobject WHERE id = ?", id)
		if err != nil {
			return &StoreError{Op: "DeleteItemWithChildren", ObjectID: id, Err: err}
		}
		return nil
	}

	children, err := childIDs(tx, o.UID)
	if err != nil {
		return &StoreError{Op: "DeleteItemWithChildren", ObjectID: id, Err: err}
	}
	for _, childID := range children {
		if err := deleteSubtreeTx(tx, childID, visited); err != nil {
			return err
		}
	}

	collection, err := getCollection(tx, o.CollectionID)
	if err != nil {
		return err
	}

	if collection.IsLocal() {
		// Hard delete; instances of this UID and property rows go with it.
		_, err = tx.Exec(`
			DELETE FROM icalobject
			WHERE id = ? OR (uid = ? AND recurid IS NOT NULL AND recurid != '')
		`, id, o.UID)
		if err != nil {
			return &StoreError{Op: "DeleteItemWithChildren", ObjectID: id, Err: err}
		}
		return nil
	}

	// Remote: tombstone so the deletion syncs upstream before the row is
	// physically purged by the janitor. Linked instances are derived state
	// and can be dropped immediately.
	_, err = tx.Exec(`
		DELETE FROM icalobject
		WHERE uid = ? AND recurid IS NOT NULL AND recurid != ''
	`, o.UID)
	if err != nil {
		return &StoreError{Op: "DeleteItemWithChildren", ObjectID: id, Err: err}
	}

	_, err = tx.Exec(`
		UPDATE icalobject
		SET deleted = 1, dirty = 1, sequence = sequence + 1, last_modified = ?
		WHERE id = ?
	`, nowMillis(), id)
	if err != nil {
		return &StoreError{Op: "DeleteItemWithChildren", ObjectID: id, Err: err}
	}
	return nil
}

// UpdateCollectionWithChildren moves an entry and its descendant subtree into
// another collection by inserting copies there and then deleting the old
// subtree. Each copy gets a fresh UID (a new sync identity in the target
// account); child links are rewritten so they keep resolving to the moved
// parent. Returns the new row id of the moved root.
func (db *Database) UpdateCollectionWithChildren(id int64, newCollectionID int64) (int64, error) {
	target, err := db.GetCollection(newCollectionID)
	if err != nil {
		return 0, err
	}
	if target.Readonly {
		return 0, &StoreError{Op: "UpdateCollectionWithChildren", CollectionID: newCollectionID, Err: ErrReadonlyCollection}
	}

	tx, err := db.Begin()
	if err != nil {
		return 0, &StoreError{Op: "UpdateCollectionWithChildren", ObjectID: id, Err: err}
	}
	defer tx.Rollback()

	newID, err := copySubtreeTx(tx, id, target, "", map[int64]bool{})
	if err != nil {
		return 0, err
	}

	if err := deleteSubtreeTx(tx, id, map[int64]bool{}); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, &StoreError{Op: "UpdateCollectionWithChildren", ObjectID: id, Err: err}
	}
	return newID, nil
}

// copySubtreeTx re-inserts an entry (and recursively its children) under the
// target collection. newParentUID, when non-empty, replaces the PARENT link
// so the copied child points at the copied parent.
func copySubtreeTx(tx *sql.Tx, id int64, target *ICalCollection, newParentUID string, visited map[int64]bool) (int64, error) {
	if visited[id] {
		return 0, nil
	}
	visited[id] = true

	o, err := getICalObject(tx, id)
	if err != nil {
		return 0, err
	}
	if !target.SupportsComponent(o.Component) {
		return 0, &StoreError{Op: "UpdateCollectionWithChildren", ObjectID: id, Err: ErrComponentNotSupported}
	}

	moved := *o
	moved.ID = 0
	moved.UID = NewUID()
	moved.CollectionID = target.ID
	moved.Sequence = 0
	moved.Dirty = true
	moved.Deleted = false
	moved.FileName = ""
	moved.ETag = ""
	moved.ScheduleTag = ""

	newID, err := insertICalObjectTx(tx, &moved)
	if err != nil {
		return 0, err
	}

	if err := copyPropertiesTx(tx, o.ID, newID, true); err != nil {
		return 0, &StoreError{Op: "UpdateCollectionWithChildren", ObjectID: id, Err: err}
	}

	// Carry non-parent relations as they are; rewrite the parent link to the
	// copied parent's UID so the subtree stays connected after the move.
	related, err := readPropertyRows(tx, "relatedto", o.ID)
	if err != nil {
		return 0, &StoreError{Op: "UpdateCollectionWithChildren", ObjectID: id, Err: err}
	}
	for _, v := range related {
		v["icalobject_id"] = newID
		if v.GetString("reltype") == ReltypeParent && newParentUID != "" {
			v["text"] = newParentUID
		}
		if _, err := insertValuesTx(tx, "relatedto", v); err != nil {
			return 0, &StoreError{Op: "UpdateCollectionWithChildren", ObjectID: id, Err: err}
		}
	}

	children, err := childIDs(tx, o.UID)
	if err != nil {
		return 0, &StoreError{Op: "UpdateCollectionWithChildren", ObjectID: id, Err: err}
	}
	for _, childID := range children {
		if _, err := copySubtreeTx(tx, childID, target, moved.UID, visited); err != nil {
			return 0, err
		}
	}

	return newID, nil
}
