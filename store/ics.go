package store

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ICS payload codec for the sync boundary: one entry serializes to a
// VCALENDAR holding a single VJOURNAL or VTODO. Properties with no schema
// column round-trip through the Unknown lines untouched.

// ICSEntry bundles an entry with the satellite data that appears in its
// serialized form.
type ICSEntry struct {
	Object     *ICalObject
	Categories []string
	Related    []Relatedto
	Unknown    []string
}

const icsProdID = "-//jtxboard//EN"

// SerializeICS renders the entry as an iCalendar stream.
func SerializeICS(e ICSEntry) string {
	o := e.Object
	var b strings.Builder

	b.WriteString("BEGIN:VCALENDAR\r\n")
	b.WriteString("VERSION:2.0\r\n")
	b.WriteString("PRODID:" + icsProdID + "\r\n")
	b.WriteString("BEGIN:" + string(o.Component) + "\r\n")

	writeProp := func(key, value string) {
		if value != "" {
			b.WriteString(key + ":" + value + "\r\n")
		}
	}
	writeTime := func(key string, ts *int64, timezone string) {
		if ts == nil {
			return
		}
		if timezone == TZAllDay {
			b.WriteString(key + ";VALUE=DATE:" + time.UnixMilli(*ts).UTC().Format("20060102") + "\r\n")
			return
		}
		b.WriteString(key + ":" + time.UnixMilli(*ts).UTC().Format("20060102T150405Z") + "\r\n")
	}

	writeProp("UID", o.UID)
	writeProp("DTSTAMP", formatICalTime(o.DtStamp))
	writeProp("CREATED", formatICalTime(o.Created))
	writeProp("LAST-MODIFIED", formatICalTime(o.LastModified))
	writeProp("SUMMARY", escapeText(o.Summary))
	writeProp("DESCRIPTION", escapeText(o.Description))
	writeProp("STATUS", o.Status)
	writeProp("CLASS", o.Classification)
	writeTime("DTSTART", o.DtStart, o.DtStartTimezone)
	writeTime("DTEND", o.DtEnd, o.DtEndTimezone)
	writeTime("DUE", o.Due, o.DueTimezone)
	writeTime("COMPLETED", o.Completed, o.CompletedTimezone)
	writeProp("DURATION", o.Duration)
	writeProp("URL", o.URL)
	writeProp("RRULE", o.RRule)
	writeProp("RECURRENCE-ID", o.RecurID)
	if o.Priority != nil {
		writeProp("PRIORITY", strconv.Itoa(*o.Priority))
	}
	if o.Percent != nil {
		writeProp("PERCENT-COMPLETE", strconv.Itoa(*o.Percent))
	}
	if o.Sequence > 0 {
		writeProp("SEQUENCE", strconv.FormatInt(o.Sequence, 10))
	}
	if len(e.Categories) > 0 {
		escaped := make([]string, len(e.Categories))
		for i, c := range e.Categories {
			escaped[i] = escapeText(c)
		}
		writeProp("CATEGORIES", strings.Join(escaped, ","))
	}
	for _, r := range e.Related {
		reltype := r.Reltype
		if reltype == "" {
			reltype = ReltypeParent
		}
		b.WriteString("RELATED-TO;RELTYPE=" + reltype + ":" + r.Text + "\r\n")
	}
	for _, raw := range e.Unknown {
		b.WriteString(raw + "\r\n")
	}

	b.WriteString("END:" + string(o.Component) + "\r\n")
	b.WriteString("END:VCALENDAR\r\n")
	return b.String()
}

// ParseICS extracts the first VJOURNAL or VTODO from an iCalendar stream.
func ParseICS(data string) (*ICSEntry, error) {
	component, block := extractComponentBlock(data)
	if block == "" {
		return nil, fmt.Errorf("no VJOURNAL or VTODO component found")
	}

	o := &ICalObject{
		Component: component,
		Module:    ModuleNote,
	}
	if component == ComponentVTodo {
		o.Module = ModuleTodo
		o.Status = StatusNeedsAction
	}
	entry := &ICSEntry{Object: o}

	for _, line := range strings.Split(block, "\n") {
		line = strings.TrimRight(strings.TrimSpace(line), "\r")
		if line == "" || strings.HasPrefix(line, "BEGIN:") || strings.HasPrefix(line, "END:") {
			continue
		}

		parts := strings.SplitN(line, ":", 2)
		if len(parts) != 2 {
			continue
		}
		key := parts[0]
		value := parts[1]

		params := ""
		if idx := strings.Index(key, ";"); idx != -1 {
			params = key[idx+1:]
			key = key[:idx]
		}
		allDay := strings.Contains(params, "VALUE=DATE")

		switch key {
		case "UID":
			o.UID = value
		case "SUMMARY":
			o.Summary = unescapeText(value)
		case "DESCRIPTION":
			o.Description = unescapeText(value)
		case "STATUS":
			o.Status = value
		case "CLASS":
			o.Classification = value
		case "URL":
			o.URL = value
		case "PRIORITY":
			if p, err := strconv.Atoi(value); err == nil && p >= 0 && p <= 9 {
				o.Priority = &p
			}
		case "PERCENT-COMPLETE":
			if p, err := strconv.Atoi(value); err == nil && p >= 0 && p <= 100 {
				o.Percent = &p
			}
		case "SEQUENCE":
			if n, err := strconv.ParseInt(value, 10, 64); err == nil {
				o.Sequence = n
			}
		case "DTSTART":
			if ts, ok := parseICalTime(value); ok {
				o.DtStart = &ts
				if allDay {
					o.DtStartTimezone = TZAllDay
				}
			}
		case "DTEND":
			if ts, ok := parseICalTime(value); ok {
				o.DtEnd = &ts
				if allDay {
					o.DtEndTimezone = TZAllDay
				}
			}
		case "DUE":
			if ts, ok := parseICalTime(value); ok {
				o.Due = &ts
				if allDay {
					o.DueTimezone = TZAllDay
				}
			}
		case "COMPLETED":
			if ts, ok := parseICalTime(value); ok {
				o.Completed = &ts
			}
		case "CREATED":
			if ts, ok := parseICalTime(value); ok {
				o.Created = ts
			}
		case "LAST-MODIFIED":
			if ts, ok := parseICalTime(value); ok {
				o.LastModified = ts
			}
		case "DTSTAMP":
			if ts, ok := parseICalTime(value); ok {
				o.DtStamp = ts
			}
		case "DURATION":
			o.Duration = value
		case "RRULE":
			o.RRule = value
		case "RECURRENCE-ID":
			o.RecurID = value
		case "CATEGORIES":
			for _, c := range strings.Split(value, ",") {
				if c = strings.TrimSpace(unescapeText(c)); c != "" {
					entry.Categories = append(entry.Categories, c)
				}
			}
		case "RELATED-TO":
			reltype := ReltypeParent
			if idx := strings.Index(params, "RELTYPE="); idx != -1 {
				reltype = strings.SplitN(params[idx+len("RELTYPE="):], ";", 2)[0]
			}
			entry.Related = append(entry.Related, Relatedto{Text: value, Reltype: reltype})
		default:
			// Preserve the raw line so it survives the local round trip.
			entry.Unknown = append(entry.Unknown, line)
		}
	}

	if o.UID == "" {
		return nil, fmt.Errorf("missing UID")
	}

	// Variant repair for VJOURNAL: a dtstart-bearing entry is a journal,
	// anything else is a note.
	if component == ComponentVJournal && o.DtStart != nil {
		o.Module = ModuleJournal
	}

	return entry, nil
}

// ExportICS loads an entry with its serialized satellite data and renders it.
func (db *Database) ExportICS(id int64) (string, error) {
	o, err := db.GetICalObject(id)
	if err != nil {
		return "", err
	}

	entry := ICSEntry{Object: o}

	categories, err := readPropertyRows(db, "category", id)
	if err != nil {
		return "", &StoreError{Op: "ExportICS", ObjectID: id, Err: err}
	}
	for _, v := range categories {
		entry.Categories = append(entry.Categories, v.GetString("text"))
	}

	related, err := readPropertyRows(db, "relatedto", id)
	if err != nil {
		return "", &StoreError{Op: "ExportICS", ObjectID: id, Err: err}
	}
	for _, v := range related {
		entry.Related = append(entry.Related, Relatedto{
			Text:    v.GetString("text"),
			Reltype: v.GetString("reltype"),
		})
	}

	unknown, err := readPropertyRows(db, "unknown", id)
	if err != nil {
		return "", &StoreError{Op: "ExportICS", ObjectID: id, Err: err}
	}
	for _, v := range unknown {
		entry.Unknown = append(entry.Unknown, v.GetString("value"))
	}

	return SerializeICS(entry), nil
}

func extractComponentBlock(data string) (Component, string) {
	for _, component := range []Component{ComponentVTodo, ComponentVJournal} {
		begin := "BEGIN:" + string(component)
		end := "END:" + string(component)
		start := strings.Index(data, begin)
		if start == -1 {
			continue
		}
		stop := strings.Index(data[start:], end)
		if stop == -1 {
			continue
		}
		return component, data[start : start+stop+len(end)]
	}
	return "", ""
}

func formatICalTime(ts int64) string {
	if ts == 0 {
		return ""
	}
	return time.UnixMilli(ts).UTC().Format("20060102T150405Z")
}

// parseICalTime handles the iCal time shapes the sync boundary produces.
func parseICalTime(value string) (int64, bool) {
	formats := []string{
		"20060102T150405Z", // UTC
		"20060102T150405",  // Floating
		"20060102",         // Date only
	}
	for _, format := range formats {
		if t, err := time.Parse(format, value); err == nil {
			return t.UnixMilli(), true
		}
	}
	return 0, false
}

func escapeText(text string) string {
	text = strings.ReplaceAll(text, "\\", "\\\\")
	text = strings.ReplaceAll(text, ";", "\\;")
	text = strings.ReplaceAll(text, ",", "\\,")
	text = strings.ReplaceAll(text, "\n", "\\n")
	return text
}

func unescapeText(text string) string {
	text = strings.ReplaceAll(text, "\\n", "\n")
	text = strings.ReplaceAll(text, "\\,", ",")
	text = strings.ReplaceAll(text, "\\;", ";")
	text = strings.ReplaceAll(text, "\\\\", "\\")
	return text
}
