package store

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Module discriminates the three entry kinds the board manages.
type Module string

const (
	ModuleJournal Module = "JOURNAL"
	ModuleNote    Module = "NOTE"
	ModuleTodo    Module = "TODO"
)

// Component is the RFC 5545 component the entry serializes as.
type Component string

const (
	ComponentVJournal Component = "VJOURNAL"
	ComponentVTodo    Component = "VTODO"
)

// Task status values per RFC 5545 §3.8.1.11, plus the journal ones.
const (
	StatusNeedsAction = "NEEDS-ACTION"
	StatusInProcess   = "IN-PROCESS"
	StatusCompleted   = "COMPLETED"
	StatusCancelled   = "CANCELLED"
	StatusDraft       = "DRAFT"
	StatusFinal       = "FINAL"
)

// Classification values per RFC 5545 §3.8.1.3.
const (
	ClassPublic       = "PUBLIC"
	ClassPrivate      = "PRIVATE"
	ClassConfidential = "CONFIDENTIAL"
)

// TZAllDay marks a date-only (floating, no clock time) timestamp. An empty
// timezone string means UTC.
const TZAllDay = "ALLDAY"

// ICalObject is the central calendar component row: one journal entry, note
// or task. Recur instance rows are near-copies of their defining row with
// RecurID set and RecurOriginalID pointing back.
type ICalObject struct {
	ID          int64
	Module      Module
	Component   Component
	Summary     string
	Description string

	// Timestamps are epoch milliseconds; nil means unset. The paired
	// timezone column carries an IANA name, "" (UTC) or TZAllDay.
	DtStart           *int64
	DtStartTimezone   string
	DtEnd             *int64
	DtEndTimezone     string
	Due               *int64
	DueTimezone       string
	Completed         *int64
	CompletedTimezone string
	Duration          string

	Status         string
	Classification string
	Priority       *int
	Percent        *int
	URL            string

	UID          string
	Created      int64
	LastModified int64
	DtStamp      int64
	Sequence     int64

	RRule  string
	RDate  string
	ExDate string

	// RecurID is set only on a materialized recurrence instance and names
	// the occurrence it represents. IsRecurLinkedInstance stays true while
	// the instance is mechanically regenerated; it drops to false once the
	// instance is detached as an exception.
	RecurID               string
	IsRecurLinkedInstance bool
	RecurOriginalID       *int64

	CollectionID int64
	Dirty        bool
	Deleted      bool
	FileName     string
	ETag         string
	ScheduleTag  string
}

// NewUID returns a fresh globally unique identifier for an entry.
func NewUID() string {
	return uuid.NewString()
}

func newICalObject(module Module, component Component) *ICalObject {
	now := time.Now().UnixMilli()
	return &ICalObject{
		Module:       module,
		Component:    component,
		UID:          NewUID(),
		Created:      now,
		LastModified: now,
		DtStamp:      now,
		Dirty:        true,
	}
}

// NewJournal creates a journal entry anchored at the given start time.
func NewJournal(summary string, dtstart int64, timezone string) *ICalObject {
	o := newICalObject(ModuleJournal, ComponentVJournal)
	o.Summary = summary
	o.DtStart = &dtstart
	o.DtStartTimezone = timezone
	return o
}

// NewNote creates a note. Notes carry no date fields at all.
func NewNote(summary string) *ICalObject {
	o := newICalObject(ModuleNote, ComponentVJournal)
	o.Summary = summary
	return o
}

// NewTodo creates a task.
func NewTodo(summary string) *ICalObject {
	o := newICalObject(ModuleTodo, ComponentVTodo)
	o.Summary = summary
	o.Status = StatusNeedsAction
	return o
}

// Validate enforces the per-module field invariants. The module is a tagged
// variant: which optional fields may be set depends on it, and a violation is
// rejected at construction time instead of surfacing as bad sync data later.
func (o *ICalObject) Validate() error {
	switch o.Module {
	case ModuleJournal:
		if o.Component != ComponentVJournal {
			return fmt.Errorf("journal entry must serialize as VJOURNAL, got %s", o.Component)
		}
		if o.Due != nil || o.Completed != nil || o.Percent != nil {
			return fmt.Errorf("journal entry cannot carry due/completed/percent")
		}
		if o.DtStart == nil {
			return fmt.Errorf("journal entry requires dtstart")
		}
	case ModuleNote:
		if o.Component != ComponentVJournal {
			return fmt.Errorf("note must serialize as VJOURNAL, got %s", o.Component)
		}
		if o.DtStart != nil || o.Due != nil || o.Completed != nil || o.Percent != nil {
			return fmt.Errorf("note cannot carry date or progress fields")
		}
	case ModuleTodo:
		if o.Component != ComponentVTodo {
			return fmt.Errorf("task must serialize as VTODO, got %s", o.Component)
		}
		if o.Percent != nil && (*o.Percent < 0 || *o.Percent > 100) {
			return fmt.Errorf("percent must be within 0-100, got %d", *o.Percent)
		}
		if o.Due != nil && o.DtStart != nil && *o.Due < *o.DtStart {
			return fmt.Errorf("due cannot precede dtstart")
		}
	default:
		return fmt.Errorf("unknown module %q", o.Module)
	}

	if o.UID == "" {
		return fmt.Errorf("missing uid")
	}
	if o.CollectionID == 0 {
		return fmt.Errorf("missing collection id")
	}
	return nil
}

// IsRecurring reports whether this row defines a recurrence series.
func (o *ICalObject) IsRecurring() bool {
	return o.RRule != "" || o.RDate != ""
}

// IsRecurInstance reports whether this row is a materialized occurrence.
func (o *ICalObject) IsRecurInstance() bool {
	return o.RecurID != ""
}

// MarkEdited bumps the sync-relevant bookkeeping after a local mutation.
func (o *ICalObject) MarkEdited() {
	o.Sequence++
	o.Dirty = true
	o.LastModified = time.Now().UnixMilli()
}

// ICalObjectFromValues builds an entry from a validated value bag. Returns
// nil if a mandatory field (module, component, uid semantics are defaulted;
// collection_id is required) is absent — callers check for nil instead of
// handling an error.
func ICalObjectFromValues(v Values) *ICalObject {
	collectionID, ok := v.GetInt64("collection_id")
	if !ok || collectionID == 0 {
		return nil
	}

	module := Module(v.GetString("module"))
	component := Component(v.GetString("component"))
	if module == "" {
		module = ModuleNote
	}
	if component == "" {
		switch module {
		case ModuleTodo:
			component = ComponentVTodo
		default:
			component = ComponentVJournal
		}
	}

	now := time.Now().UnixMilli()
	o := &ICalObject{
		Module:            module,
		Component:         component,
		Summary:           v.GetString("summary"),
		Description:       v.GetString("description"),
		DtStart:           v.GetInt64Ptr("dtstart"),
		DtStartTimezone:   v.GetString("dtstart_timezone"),
		DtEnd:             v.GetInt64Ptr("dtend"),
		DtEndTimezone:     v.GetString("dtend_timezone"),
		Due:               v.GetInt64Ptr("due"),
		DueTimezone:       v.GetString("due_timezone"),
		Completed:         v.GetInt64Ptr("completed"),
		CompletedTimezone: v.GetString("completed_timezone"),
		Duration:          v.GetString("duration"),
		Status:            v.GetString("status"),
		Classification:    v.GetString("classification"),
		Priority:          v.GetIntPtr("priority"),
		Percent:           v.GetIntPtr("percent"),
		URL:               v.GetString("url"),
		UID:               v.GetString("uid"),
		Sequence:          0,
		RRule:             v.GetString("rrule"),
		RDate:             v.GetString("rdate"),
		ExDate:            v.GetString("exdate"),
		RecurID:           v.GetString("recurid"),
		RecurOriginalID:   v.GetInt64Ptr("recur_original_id"),
		CollectionID:      collectionID,
		Dirty:             v.GetBool("dirty"),
		Deleted:           v.GetBool("deleted"),
		FileName:          v.GetString("filename"),
		ETag:              v.GetString("etag"),
		ScheduleTag:       v.GetString("schedule_tag"),
		Created:           now,
		LastModified:      now,
		DtStamp:           now,
	}

	o.IsRecurLinkedInstance = v.GetBool("is_recur_linked_instance")
	if n, ok := v.GetInt64("sequence"); ok {
		o.Sequence = n
	}
	if n, ok := v.GetInt64("created"); ok {
		o.Created = n
	}
	if n, ok := v.GetInt64("last_modified"); ok {
		o.LastModified = n
	}
	if n, ok := v.GetInt64("dtstamp"); ok {
		o.DtStamp = n
	}
	if o.UID == "" {
		o.UID = NewUID()
	}

	return o
}

// ToValues converts the entry back into a value bag, the inverse of
// ICalObjectFromValues for all caller-settable columns.
func (o *ICalObject) ToValues() Values {
	v := Values{
		"module":                   string(o.Module),
		"component":                string(o.Component),
		"uid":                      o.UID,
		"collection_id":            o.CollectionID,
		"sequence":                 o.Sequence,
		"created":                  o.Created,
		"last_modified":            o.LastModified,
		"dtstamp":                  o.DtStamp,
		"dirty":                    o.Dirty,
		"deleted":                  o.Deleted,
		"is_recur_linked_instance": o.IsRecurLinkedInstance,
	}

	putString := func(key, val string) {
		if val != "" {
			v[key] = val
		}
	}
	putInt64 := func(key string, val *int64) {
		if val != nil {
			v[key] = *val
		}
	}

	putString("summary", o.Summary)
	putString("description", o.Description)
	putInt64("dtstart", o.DtStart)
	putString("dtstart_timezone", o.DtStartTimezone)
	putInt64("dtend", o.DtEnd)
	putString("dtend_timezone", o.DtEndTimezone)
	putInt64("due", o.Due)
	putString("due_timezone", o.DueTimezone)
	putInt64("completed", o.Completed)
	putString("completed_timezone", o.CompletedTimezone)
	putString("duration", o.Duration)
	putString("status", o.Status)
	putString("classification", o.Classification)
	putString("url", o.URL)
	putString("rrule", o.RRule)
	putString("rdate", o.RDate)
	putString("exdate", o.ExDate)
	putString("recurid", o.RecurID)
	putInt64("recur_original_id", o.RecurOriginalID)
	putString("filename", o.FileName)
	putString("etag", o.ETag)
	putString("schedule_tag", o.ScheduleTag)
	if o.Priority != nil {
		v["priority"] = int64(*o.Priority)
	}
	if o.Percent != nil {
		v["percent"] = int64(*o.Percent)
	}

	return v
}

// StatusFromPercent derives a task status from an aggregate percent value.
func StatusFromPercent(percent int) string {
	switch {
	case percent <= 0:
		return StatusNeedsAction
	case percent >= 100:
		return StatusCompleted
	default:
		return StatusInProcess
	}
}
