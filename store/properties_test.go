package store

import (
	"testing"
)

func TestFromValuesFactoriesRejectIncompleteBags(t *testing.T) {
	// Every factory answers a broken mandatory field with nil instead of an
	// error, matching the no-row-created insert contract.
	if got := CategoryFromValues(Values{"text": "no object"}); got != nil {
		t.Error("category without icalobject_id should be nil")
	}
	if got := CategoryFromValues(Values{"icalobject_id": int64(1)}); got != nil {
		t.Error("category without text should be nil")
	}
	if got := AttendeeFromValues(Values{"icalobject_id": int64(1)}); got != nil {
		t.Error("attendee without caladdress should be nil")
	}
	if got := OrganizerFromValues(Values{"icalobject_id": int64(1)}); got != nil {
		t.Error("organizer without caladdress should be nil")
	}
	if got := RelatedtoFromValues(Values{"icalobject_id": int64(1)}); got != nil {
		t.Error("relatedto without text should be nil")
	}
	if got := UnknownFromValues(Values{"icalobject_id": int64(1)}); got != nil {
		t.Error("unknown without value should be nil")
	}
	if got := AlarmFromValues(Values{"action": "DISPLAY"}); got != nil {
		t.Error("alarm without icalobject_id should be nil")
	}
}

func TestRelatedtoDefaultsToParent(t *testing.T) {
	r := RelatedtoFromValues(Values{"icalobject_id": int64(1), "text": "some-uid"})
	if r == nil {
		t.Fatal("factory returned nil for a complete bag")
	}
	if r.Reltype != ReltypeParent {
		t.Errorf("reltype = %q, want default %q", r.Reltype, ReltypeParent)
	}

	r = RelatedtoFromValues(Values{
		"icalobject_id": int64(1), "text": "some-uid", "reltype": ReltypeChild,
	})
	if r.Reltype != ReltypeChild {
		t.Errorf("explicit reltype = %q, want %q", r.Reltype, ReltypeChild)
	}
}

func TestPropertyToValuesOmitsEmptyFields(t *testing.T) {
	a := &Attendee{ICalObjectID: 5, CalAddress: "mailto:x@example.com"}
	v := a.ToValues()
	if err := v.Validate("attendee"); err != nil {
		t.Fatalf("ToValues() produced an invalid bag: %v", err)
	}
	if v.HasKey("cn") || v.HasKey("role") || v.HasKey("rsvp") {
		t.Error("empty optional fields should be absent from the bag")
	}

	a.Rsvp = true
	a.Cn = "Someone"
	v = a.ToValues()
	if !v.GetBool("rsvp") || v.GetString("cn") != "Someone" {
		t.Error("set optional fields missing from the bag")
	}
}

func TestPropertyRowCascadeDelete(t *testing.T) {
	db := setupTestDB(t)
	collectionID := mustInsertLocalCollection(t, db, "Cascade")
	o := mustInsertTodo(t, db, collectionID, "with properties")

	for _, table := range []string{"category", "comment", "resource"} {
		_, err := db.InsertPropertyRow(table, Values{
			"icalobject_id": o.ID, "text": "payload",
		})
		if err != nil {
			t.Fatalf("failed to insert %s row: %v", table, err)
		}
	}

	if err := db.DeleteICalObject(o.ID); err != nil {
		t.Fatal(err)
	}

	for _, table := range []string{"category", "comment", "resource"} {
		rows, err := readPropertyRows(db, table, o.ID)
		if err != nil {
			t.Fatal(err)
		}
		if len(rows) != 0 {
			t.Errorf("%s rows survived entry deletion: %d", table, len(rows))
		}
	}
}
