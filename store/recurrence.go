package store

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/teambition/rrule-go"

	"jtxboard/internal/utils"
)

// maxRecurInstances caps how many instance rows one series materializes, so
// an unbounded RRULE cannot flood the table.
const maxRecurInstances = 100

// RecurIDFromTimestamp derives the canonical RECURRENCE-ID string for an
// occurrence start: date-only for all-day entries, UTC timestamp otherwise.
func RecurIDFromTimestamp(ts int64, timezone string) string {
	t := time.UnixMilli(ts).UTC()
	if timezone == TZAllDay {
		return t.Format("20060102")
	}
	return t.Format("20060102T150405Z")
}

// parseTimestampList splits a comma-joined epoch-millisecond list; malformed
// entries are dropped, not errors, because the list may come from a remote
// peer.
func parseTimestampList(s string) []int64 {
	if s == "" {
		return nil
	}
	var out []int64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if n, err := strconv.ParseInt(part, 10, 64); err == nil {
			out = append(out, n)
		}
	}
	return out
}

func joinTimestampList(ts []int64) string {
	parts := make([]string, len(ts))
	for i, t := range ts {
		parts[i] = strconv.FormatInt(t, 10)
	}
	return strings.Join(parts, ",")
}

// locationFor resolves a stored timezone name. Empty and ALLDAY both expand
// in UTC so regeneration is deterministic regardless of host timezone.
func locationFor(timezone string) *time.Location {
	if timezone == "" || timezone == TZAllDay {
		return time.UTC
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		utils.Warnf("unknown timezone %q, falling back to UTC", timezone)
		return time.UTC
	}
	return loc
}

// expandOccurrences computes the occurrence start times (epoch millis) for a
// series definition: RRULE occurrences plus RDATE entries, minus EXDATE
// entries. EXDATE matching is by exact millisecond equality against the
// generated start times.
func expandOccurrences(o *ICalObject) ([]int64, error) {
	if o.DtStart == nil {
		return nil, nil
	}

	loc := locationFor(o.DtStartTimezone)
	dtstart := time.UnixMilli(*o.DtStart).In(loc)

	seen := make(map[int64]bool)
	var occurrences []int64

	if o.RRule != "" {
		rule, err := rrule.StrToRRule(o.RRule)
		if err != nil {
			return nil, fmt.Errorf("failed to parse rrule %q: %w", o.RRule, err)
		}
		rule.DTStart(dtstart)

		next := rule.Iterator()
		for len(occurrences) < maxRecurInstances {
			t, ok := next()
			if !ok {
				break
			}
			ts := t.UnixMilli()
			if !seen[ts] {
				seen[ts] = true
				occurrences = append(occurrences, ts)
			}
		}
	}

	for _, ts := range parseTimestampList(o.RDate) {
		if !seen[ts] {
			seen[ts] = true
			occurrences = append(occurrences, ts)
		}
	}

	if len(occurrences) == 0 {
		return nil, nil
	}

	exdates := make(map[int64]bool)
	for _, ts := range parseTimestampList(o.ExDate) {
		exdates[ts] = true
	}

	filtered := occurrences[:0]
	for _, ts := range occurrences {
		if !exdates[ts] {
			filtered = append(filtered, ts)
		}
	}

	sort.Slice(filtered, func(i, j int) bool { return filtered[i] < filtered[j] })
	if len(filtered) > maxRecurInstances {
		filtered = filtered[:maxRecurInstances]
	}
	return filtered, nil
}

// RecreateRecurring rebuilds the materialized instance set for a series
// definition. All still-linked (unchanged) instances are dropped and fresh
// ones inserted from the current RRULE/RDATE/EXDATE; exception instances are
// left untouched. The whole regeneration runs in one transaction, so a
// failure leaves the previous instance set intact. Calling it again with
// unchanged inputs reproduces the same instance set.
func (db *Database) RecreateRecurring(originalID int64) error {
	original, err := db.GetICalObject(originalID)
	if err != nil {
		return err
	}
	if original.IsRecurInstance() {
		// Instances never define series of their own.
		return nil
	}

	occurrences, err := expandOccurrences(original)
	if err != nil {
		return &StoreError{Op: "RecreateRecurring", ObjectID: originalID, Err: err}
	}

	tx, err := db.Begin()
	if err != nil {
		return &StoreError{Op: "RecreateRecurring", ObjectID: originalID, Err: err}
	}
	defer tx.Rollback()

	// Old unchanged instances go first, in one sweep, so no transient
	// duplicate-occurrence state is ever visible.
	_, err = tx.Exec(`
		DELETE FROM icalobject
		WHERE uid = ? AND recurid IS NOT NULL AND recurid != '' AND is_recur_linked_instance = 1
	`, original.UID)
	if err != nil {
		return &StoreError{Op: "RecreateRecurring", ObjectID: originalID, Err: err}
	}

	if !original.IsRecurring() {
		// No rule, no extra dates: nothing to materialize, and existing
		// exception instances stay as they are.
		return tx.Commit()
	}

	// Exceptions keep their occurrence slot; never regenerate over them.
	taken := make(map[string]bool)
	rows, err := tx.Query(`
		SELECT recurid FROM icalobject
		WHERE uid = ? AND recurid IS NOT NULL AND recurid != ''
	`, original.UID)
	if err != nil {
		return &StoreError{Op: "RecreateRecurring", ObjectID: originalID, Err: err}
	}
	for rows.Next() {
		var recurid string
		if err := rows.Scan(&recurid); err != nil {
			rows.Close()
			return &StoreError{Op: "RecreateRecurring", ObjectID: originalID, Err: err}
		}
		taken[recurid] = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return &StoreError{Op: "RecreateRecurring", ObjectID: originalID, Err: err}
	}

	for _, occ := range occurrences {
		recurid := RecurIDFromTimestamp(occ, original.DtStartTimezone)
		if taken[recurid] {
			continue
		}

		instance := buildRecurInstance(original, occ, recurid)
		instanceID, err := insertICalObjectTx(tx, instance)
		if err != nil {
			return err
		}

		if err := copyPropertiesTx(tx, original.ID, instanceID, true); err != nil {
			return &StoreError{Op: "RecreateRecurring", ObjectID: originalID, Err: err}
		}
	}

	if err := tx.Commit(); err != nil {
		return &StoreError{Op: "RecreateRecurring", ObjectID: originalID, Err: err}
	}

	utils.Debugf("recreated %d recurring instances for uid %s", len(occurrences), original.UID)
	return nil
}

// buildRecurInstance derives one materialized occurrence row from the series
// definition, with dates shifted to the occurrence and recurrence fields
// cleared.
func buildRecurInstance(original *ICalObject, occurrence int64, recurid string) *ICalObject {
	instance := *original
	instance.ID = 0
	instance.DtStart = &occurrence
	instance.RecurID = recurid
	instance.IsRecurLinkedInstance = true
	instance.RecurOriginalID = &original.ID
	instance.RRule = ""
	instance.RDate = ""
	instance.ExDate = ""
	instance.Sequence = 0
	// Generated rows are derived local state, never pushed upstream.
	instance.Dirty = false
	instance.FileName = ""
	instance.ETag = ""
	instance.ScheduleTag = ""

	delta := occurrence - *original.DtStart
	if original.Due != nil {
		due := *original.Due + delta
		instance.Due = &due
	}
	if original.DtEnd != nil {
		dtend := *original.DtEnd + delta
		instance.DtEnd = &dtend
	}
	if original.Completed != nil {
		// Completion is per-occurrence state; a fresh instance starts open.
		instance.Completed = nil
	}

	return &instance
}

// MakeRecurringException detaches one linked instance from mechanical
// regeneration: the link flag is cleared and the occurrence date is recorded
// in the defining row's exdate list so RecreateRecurring skips that slot from
// now on. A no-op when the defining row carries no recurrence rule.
func (db *Database) MakeRecurringException(instanceID int64) error {
	instance, err := db.GetICalObject(instanceID)
	if err != nil {
		return err
	}
	if !instance.IsRecurInstance() || instance.RecurOriginalID == nil {
		return nil
	}

	original, err := db.GetICalObject(*instance.RecurOriginalID)
	if err != nil {
		if err == ErrNotFound {
			return nil
		}
		return err
	}
	if !original.IsRecurring() {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return &StoreError{Op: "MakeRecurringException", ObjectID: instanceID, Err: err}
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		UPDATE icalobject SET is_recur_linked_instance = 0, last_modified = ?
		WHERE id = ?
	`, nowMillis(), instanceID)
	if err != nil {
		return &StoreError{Op: "MakeRecurringException", ObjectID: instanceID, Err: err}
	}

	if instance.DtStart != nil {
		exdates := parseTimestampList(original.ExDate)
		exdates = append(exdates, *instance.DtStart)
		original.ExDate = joinTimestampList(exdates)
		original.MarkEdited()
		if err := updateICalObjectTx(tx, original); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// UnlinkFromSeries turns instances into standalone entries: each gets a fresh
// UID, loses its recurid and back-reference, and becomes sync-relevant in its
// own right. The series definition keeps regenerating the freed slots.
func (db *Database) UnlinkFromSeries(instanceIDs []int64) error {
	tx, err := db.Begin()
	if err != nil {
		return &StoreError{Op: "UnlinkFromSeries", Err: err}
	}
	defer tx.Rollback()

	for _, id := range instanceIDs {
		instance, err := getICalObject(tx, id)
		if err != nil {
			if err == ErrNotFound {
				continue
			}
			return err
		}
		if !instance.IsRecurInstance() {
			continue
		}

		instance.UID = NewUID()
		instance.RecurID = ""
		instance.IsRecurLinkedInstance = false
		instance.RecurOriginalID = nil
		instance.MarkEdited()

		if err := updateICalObjectTx(tx, instance); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// DeleteRecurringInstances removes every materialized instance for a UID,
// exceptions included. Used when the defining row itself goes away.
func (db *Database) DeleteRecurringInstances(uid string) error {
	_, err := db.Exec(`
		DELETE FROM icalobject
		WHERE uid = ? AND recurid IS NOT NULL AND recurid != ''
	`, uid)
	if err != nil {
		return &StoreError{Op: "DeleteRecurringInstances", Err: err}
	}
	return nil
}

// DeleteUnchangedRecurringInstances removes only the mechanically generated
// (still linked) instances for a UID, preserving exceptions.
func (db *Database) DeleteUnchangedRecurringInstances(uid string) error {
	_, err := db.Exec(`
		DELETE FROM icalobject
		WHERE uid = ? AND recurid IS NOT NULL AND recurid != '' AND is_recur_linked_instance = 1
	`, uid)
	if err != nil {
		return &StoreError{Op: "DeleteUnchangedRecurringInstances", Err: err}
	}
	return nil
}
