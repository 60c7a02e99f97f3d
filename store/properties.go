package store

// Satellite property entities. Each row belongs to exactly one ICalObject and
// is removed with it by the schema's cascade. The FromValues factories return
// nil when a mandatory field is missing; callers use them in a
// try-to-build-then-check-nil style, matching the provider's no-row-created
// contract for inserts with a broken reference.

// Reltype values for Relatedto per RFC 5545 §3.2.15.
const (
	ReltypeParent  = "PARENT"
	ReltypeChild   = "CHILD"
	ReltypeSibling = "SIBLING"
)

type Attendee struct {
	ID            int64
	ICalObjectID  int64
	CalAddress    string
	Cutype        string
	Member        string
	Role          string
	Partstat      string
	Rsvp          bool
	DelegatedTo   string
	DelegatedFrom string
	SentBy        string
	Cn            string
	Dir           string
	Language      string
	Other         string
}

func AttendeeFromValues(v Values) *Attendee {
	objectID, ok := v.GetInt64("icalobject_id")
	caladdress := v.GetString("caladdress")
	if !ok || objectID == 0 || caladdress == "" {
		return nil
	}
	return &Attendee{
		ICalObjectID:  objectID,
		CalAddress:    caladdress,
		Cutype:        v.GetString("cutype"),
		Member:        v.GetString("member"),
		Role:          v.GetString("role"),
		Partstat:      v.GetString("partstat"),
		Rsvp:          v.GetBool("rsvp"),
		DelegatedTo:   v.GetString("delegatedto"),
		DelegatedFrom: v.GetString("delegatedfrom"),
		SentBy:        v.GetString("sentby"),
		Cn:            v.GetString("cn"),
		Dir:           v.GetString("dir"),
		Language:      v.GetString("language"),
		Other:         v.GetString("other"),
	}
}

func (a *Attendee) ToValues() Values {
	v := Values{"icalobject_id": a.ICalObjectID, "caladdress": a.CalAddress}
	putNonEmpty(v, "cutype", a.Cutype)
	putNonEmpty(v, "member", a.Member)
	putNonEmpty(v, "role", a.Role)
	putNonEmpty(v, "partstat", a.Partstat)
	if a.Rsvp {
		v["rsvp"] = true
	}
	putNonEmpty(v, "delegatedto", a.DelegatedTo)
	putNonEmpty(v, "delegatedfrom", a.DelegatedFrom)
	putNonEmpty(v, "sentby", a.SentBy)
	putNonEmpty(v, "cn", a.Cn)
	putNonEmpty(v, "dir", a.Dir)
	putNonEmpty(v, "language", a.Language)
	putNonEmpty(v, "other", a.Other)
	return v
}

type Category struct {
	ID           int64
	ICalObjectID int64
	Text         string
	Language     string
	Other        string
}

func CategoryFromValues(v Values) *Category {
	objectID, ok := v.GetInt64("icalobject_id")
	text := v.GetString("text")
	if !ok || objectID == 0 || text == "" {
		return nil
	}
	return &Category{
		ICalObjectID: objectID,
		Text:         text,
		Language:     v.GetString("language"),
		Other:        v.GetString("other"),
	}
}

func (c *Category) ToValues() Values {
	v := Values{"icalobject_id": c.ICalObjectID, "text": c.Text}
	putNonEmpty(v, "language", c.Language)
	putNonEmpty(v, "other", c.Other)
	return v
}

type Comment struct {
	ID           int64
	ICalObjectID int64
	Text         string
	Altrep       string
	Language     string
	Other        string
}

func CommentFromValues(v Values) *Comment {
	objectID, ok := v.GetInt64("icalobject_id")
	text := v.GetString("text")
	if !ok || objectID == 0 || text == "" {
		return nil
	}
	return &Comment{
		ICalObjectID: objectID,
		Text:         text,
		Altrep:       v.GetString("altrep"),
		Language:     v.GetString("language"),
		Other:        v.GetString("other"),
	}
}

func (c *Comment) ToValues() Values {
	v := Values{"icalobject_id": c.ICalObjectID, "text": c.Text}
	putNonEmpty(v, "altrep", c.Altrep)
	putNonEmpty(v, "language", c.Language)
	putNonEmpty(v, "other", c.Other)
	return v
}

type Contact struct {
	ID           int64
	ICalObjectID int64
	Text         string
	Altrep       string
	Language     string
	Other        string
}

func ContactFromValues(v Values) *Contact {
	objectID, ok := v.GetInt64("icalobject_id")
	text := v.GetString("text")
	if !ok || objectID == 0 || text == "" {
		return nil
	}
	return &Contact{
		ICalObjectID: objectID,
		Text:         text,
		Altrep:       v.GetString("altrep"),
		Language:     v.GetString("language"),
		Other:        v.GetString("other"),
	}
}

func (c *Contact) ToValues() Values {
	v := Values{"icalobject_id": c.ICalObjectID, "text": c.Text}
	putNonEmpty(v, "altrep", c.Altrep)
	putNonEmpty(v, "language", c.Language)
	putNonEmpty(v, "other", c.Other)
	return v
}

type Organizer struct {
	ID           int64
	ICalObjectID int64
	CalAddress   string
	Cn           string
	Dir          string
	SentBy       string
	Language     string
	Other        string
}

func OrganizerFromValues(v Values) *Organizer {
	objectID, ok := v.GetInt64("icalobject_id")
	caladdress := v.GetString("caladdress")
	if !ok || objectID == 0 || caladdress == "" {
		return nil
	}
	return &Organizer{
		ICalObjectID: objectID,
		CalAddress:   caladdress,
		Cn:           v.GetString("cn"),
		Dir:          v.GetString("dir"),
		SentBy:       v.GetString("sentby"),
		Language:     v.GetString("language"),
		Other:        v.GetString("other"),
	}
}

func (o *Organizer) ToValues() Values {
	v := Values{"icalobject_id": o.ICalObjectID, "caladdress": o.CalAddress}
	putNonEmpty(v, "cn", o.Cn)
	putNonEmpty(v, "dir", o.Dir)
	putNonEmpty(v, "sentby", o.SentBy)
	putNonEmpty(v, "language", o.Language)
	putNonEmpty(v, "other", o.Other)
	return v
}

// Relatedto links entries by UID text, not by row id: the related entry may
// arrive later through sync, so the reference stays a weak one resolved on
// read.
type Relatedto struct {
	ID           int64
	ICalObjectID int64
	Text         string // UID of the related entry
	Reltype      string
	Other        string
}

func RelatedtoFromValues(v Values) *Relatedto {
	objectID, ok := v.GetInt64("icalobject_id")
	text := v.GetString("text")
	if !ok || objectID == 0 || text == "" {
		return nil
	}
	reltype := v.GetString("reltype")
	if reltype == "" {
		reltype = ReltypeParent
	}
	return &Relatedto{
		ICalObjectID: objectID,
		Text:         text,
		Reltype:      reltype,
		Other:        v.GetString("other"),
	}
}

func (r *Relatedto) ToValues() Values {
	v := Values{"icalobject_id": r.ICalObjectID, "text": r.Text, "reltype": r.Reltype}
	putNonEmpty(v, "other", r.Other)
	return v
}

type Resource struct {
	ID           int64
	ICalObjectID int64
	Text         string
	Altrep       string
	Language     string
	Other        string
}

func ResourceFromValues(v Values) *Resource {
	objectID, ok := v.GetInt64("icalobject_id")
	text := v.GetString("text")
	if !ok || objectID == 0 || text == "" {
		return nil
	}
	return &Resource{
		ICalObjectID: objectID,
		Text:         text,
		Altrep:       v.GetString("altrep"),
		Language:     v.GetString("language"),
		Other:        v.GetString("other"),
	}
}

func (r *Resource) ToValues() Values {
	v := Values{"icalobject_id": r.ICalObjectID, "text": r.Text}
	putNonEmpty(v, "altrep", r.Altrep)
	putNonEmpty(v, "language", r.Language)
	putNonEmpty(v, "other", r.Other)
	return v
}

type Alarm struct {
	ID                      int64
	ICalObjectID            int64
	Action                  string
	Description             string
	Summary                 string
	TriggerTime             *int64
	TriggerTimezone         string
	TriggerRelativeDuration string
	TriggerRelativeTo       string
	Duration                string
	Repeat                  string
	Attach                  string
	Other                   string
}

func AlarmFromValues(v Values) *Alarm {
	objectID, ok := v.GetInt64("icalobject_id")
	if !ok || objectID == 0 {
		return nil
	}
	return &Alarm{
		ICalObjectID:            objectID,
		Action:                  v.GetString("action"),
		Description:             v.GetString("description"),
		Summary:                 v.GetString("summary"),
		TriggerTime:             v.GetInt64Ptr("trigger_time"),
		TriggerTimezone:         v.GetString("trigger_timezone"),
		TriggerRelativeDuration: v.GetString("trigger_relative_duration"),
		TriggerRelativeTo:       v.GetString("trigger_relative_to"),
		Duration:                v.GetString("duration"),
		Repeat:                  v.GetString("repeat"),
		Attach:                  v.GetString("attach"),
		Other:                   v.GetString("other"),
	}
}

func (a *Alarm) ToValues() Values {
	v := Values{"icalobject_id": a.ICalObjectID}
	putNonEmpty(v, "action", a.Action)
	putNonEmpty(v, "description", a.Description)
	putNonEmpty(v, "summary", a.Summary)
	if a.TriggerTime != nil {
		v["trigger_time"] = *a.TriggerTime
	}
	putNonEmpty(v, "trigger_timezone", a.TriggerTimezone)
	putNonEmpty(v, "trigger_relative_duration", a.TriggerRelativeDuration)
	putNonEmpty(v, "trigger_relative_to", a.TriggerRelativeTo)
	putNonEmpty(v, "duration", a.Duration)
	putNonEmpty(v, "repeat", a.Repeat)
	putNonEmpty(v, "attach", a.Attach)
	putNonEmpty(v, "other", a.Other)
	return v
}

// Unknown keeps a raw iCalendar property line that no schema column covers.
type Unknown struct {
	ID           int64
	ICalObjectID int64
	Value        string
}

func UnknownFromValues(v Values) *Unknown {
	objectID, ok := v.GetInt64("icalobject_id")
	value := v.GetString("value")
	if !ok || objectID == 0 || value == "" {
		return nil
	}
	return &Unknown{ICalObjectID: objectID, Value: value}
}

func (u *Unknown) ToValues() Values {
	return Values{"icalobject_id": u.ICalObjectID, "value": u.Value}
}

func putNonEmpty(v Values, key, val string) {
	if val != "" {
		v[key] = val
	}
}
