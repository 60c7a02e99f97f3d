package store

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// ColumnType is the semantic type expected for a column value.
type ColumnType int

const (
	ColText ColumnType = iota
	ColInt
	ColBool
)

// Values is a typed key→value bag used at the sync boundary, the Go rendition
// of ContentValues. Every bag is validated against the explicit column schema
// of its target table before it touches the database: unknown keys and
// mistyped values are rejected, never silently coerced.
type Values map[string]any

// columnSchemas maps table name → column name → expected type. Surrogate ids
// are intentionally absent: callers never supply them, the store assigns them.
var columnSchemas = map[string]map[string]ColumnType{
	"icalobject": {
		"module": ColText, "component": ColText, "summary": ColText,
		"description": ColText, "dtstart": ColInt, "dtstart_timezone": ColText,
		"dtend": ColInt, "dtend_timezone": ColText, "due": ColInt,
		"due_timezone": ColText, "completed": ColInt, "completed_timezone": ColText,
		"duration": ColText, "status": ColText, "classification": ColText,
		"priority": ColInt, "percent": ColInt, "url": ColText, "uid": ColText,
		"created": ColInt, "last_modified": ColInt, "dtstamp": ColInt,
		"sequence": ColInt, "rrule": ColText, "rdate": ColText, "exdate": ColText,
		"recurid": ColText, "is_recur_linked_instance": ColBool,
		"recur_original_id": ColInt, "collection_id": ColInt,
		"dirty": ColBool, "deleted": ColBool, "filename": ColText,
		"etag": ColText, "schedule_tag": ColText,
	},
	"collection": {
		"url": ColText, "display_name": ColText, "description": ColText,
		"color": ColText, "owner": ColText, "account_name": ColText,
		"account_type": ColText, "supports_vjournal": ColBool,
		"supports_vtodo": ColBool, "readonly": ColBool, "sync_version": ColText,
	},
	"attendee": {
		"icalobject_id": ColInt, "caladdress": ColText, "cutype": ColText,
		"member": ColText, "role": ColText, "partstat": ColText, "rsvp": ColBool,
		"delegatedto": ColText, "delegatedfrom": ColText, "sentby": ColText,
		"cn": ColText, "dir": ColText, "language": ColText, "other": ColText,
	},
	"category": {
		"icalobject_id": ColInt, "text": ColText, "language": ColText, "other": ColText,
	},
	"comment": {
		"icalobject_id": ColInt, "text": ColText, "altrep": ColText,
		"language": ColText, "other": ColText,
	},
	"contact": {
		"icalobject_id": ColInt, "text": ColText, "altrep": ColText,
		"language": ColText, "other": ColText,
	},
	"organizer": {
		"icalobject_id": ColInt, "caladdress": ColText, "cn": ColText,
		"dir": ColText, "sentby": ColText, "language": ColText, "other": ColText,
	},
	"relatedto": {
		"icalobject_id": ColInt, "text": ColText, "reltype": ColText, "other": ColText,
	},
	"resource": {
		"icalobject_id": ColInt, "text": ColText, "altrep": ColText,
		"language": ColText, "other": ColText,
	},
	"attachment": {
		"icalobject_id": ColInt, "uri": ColText, "binary": ColText,
		"fmttype": ColText, "filename": ColText, "filesize": ColInt,
		"extension": ColText, "other": ColText,
	},
	"alarm": {
		"icalobject_id": ColInt, "action": ColText, "description": ColText,
		"summary": ColText, "trigger_time": ColInt, "trigger_timezone": ColText,
		"trigger_relative_duration": ColText, "trigger_relative_to": ColText,
		"duration": ColText, "repeat": ColText, "attach": ColText, "other": ColText,
	},
	"unknown": {
		"icalobject_id": ColInt, "value": ColText,
	},
}

// TableSchema returns the column schema for a table, or nil if the table is
// not part of the contract.
func TableSchema(table string) map[string]ColumnType {
	return columnSchemas[table]
}

// Validate checks the bag against the column schema of the given table.
// Unknown keys and mistyped values fail the whole bag.
func (v Values) Validate(table string) error {
	schema := columnSchemas[table]
	if schema == nil {
		return fmt.Errorf("unknown table %q", table)
	}

	var bad []string
	for key, val := range v {
		colType, ok := schema[key]
		if !ok {
			bad = append(bad, fmt.Sprintf("unknown column %q", key))
			continue
		}
		if val == nil {
			continue // explicit null is valid for any column
		}
		if !valueMatches(val, colType) {
			bad = append(bad, fmt.Sprintf("column %q: unexpected value type %T", key, val))
		}
	}

	if len(bad) > 0 {
		sort.Strings(bad)
		return fmt.Errorf("invalid values for table %q: %s", table, strings.Join(bad, "; "))
	}
	return nil
}

func valueMatches(val any, colType ColumnType) bool {
	switch colType {
	case ColText:
		_, ok := val.(string)
		return ok
	case ColInt:
		switch n := val.(type) {
		case int, int64:
			return true
		case float64:
			// JSON numbers decode as float64; accept only integral ones.
			return n == math.Trunc(n)
		}
		return false
	case ColBool:
		switch n := val.(type) {
		case bool:
			return true
		case int:
			return n == 0 || n == 1
		case int64:
			return n == 0 || n == 1
		case float64:
			return n == 0 || n == 1
		}
		return false
	}
	return false
}

// GetString returns the string value for key, "" if absent or null.
func (v Values) GetString(key string) string {
	if s, ok := v[key].(string); ok {
		return s
	}
	return ""
}

// HasKey reports whether the key is present in the bag (including null).
func (v Values) HasKey(key string) bool {
	_, ok := v[key]
	return ok
}

// GetInt64 returns the integer value for key and whether it was present.
func (v Values) GetInt64(key string) (int64, bool) {
	switch n := v[key].(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		return int64(n), true
	}
	return 0, false
}

// GetInt64Ptr returns the integer value as a pointer, nil if absent or null.
func (v Values) GetInt64Ptr(key string) *int64 {
	if n, ok := v.GetInt64(key); ok {
		return &n
	}
	return nil
}

// GetIntPtr returns the integer value as an int pointer, nil if absent.
func (v Values) GetIntPtr(key string) *int {
	if n, ok := v.GetInt64(key); ok {
		i := int(n)
		return &i
	}
	return nil
}

// GetBool returns the boolean value for key, false if absent or null.
func (v Values) GetBool(key string) bool {
	switch n := v[key].(type) {
	case bool:
		return n
	case int:
		return n != 0
	case int64:
		return n != 0
	case float64:
		return n != 0
	}
	return false
}
