package sqlite

// Schema version for migration management
const SchemaVersion = 1

// SQL statements for database schema creation. The schema models RFC 5545
// calendar components: one central icalobject table and one table per
// satellite property, each bound to its parent row with ON DELETE CASCADE.

// ICalObjectTableSQL creates the central calendar component table. One row is
// a journal, note or task; recur instance rows carry recurid and point back at
// their defining row through recur_original_id.
const ICalObjectTableSQL = `
CREATE TABLE IF NOT EXISTS icalobject (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    module TEXT NOT NULL,
    component TEXT NOT NULL,
    summary TEXT,
    description TEXT,
    dtstart INTEGER,
    dtstart_timezone TEXT,
    dtend INTEGER,
    dtend_timezone TEXT,
    due INTEGER,
    due_timezone TEXT,
    completed INTEGER,
    completed_timezone TEXT,
    duration TEXT,
    status TEXT,
    classification TEXT,
    priority INTEGER,
    percent INTEGER,
    url TEXT,
    uid TEXT NOT NULL,
    created INTEGER NOT NULL DEFAULT 0,
    last_modified INTEGER NOT NULL DEFAULT 0,
    dtstamp INTEGER NOT NULL DEFAULT 0,
    sequence INTEGER NOT NULL DEFAULT 0,
    rrule TEXT,
    rdate TEXT,
    exdate TEXT,
    recurid TEXT,
    is_recur_linked_instance INTEGER NOT NULL DEFAULT 0,
    recur_original_id INTEGER,
    collection_id INTEGER NOT NULL,
    dirty INTEGER NOT NULL DEFAULT 0,
    deleted INTEGER NOT NULL DEFAULT 0,
    filename TEXT,
    etag TEXT,
    schedule_tag TEXT,

    FOREIGN KEY(collection_id) REFERENCES collection(id) ON DELETE CASCADE
);
`

// CollectionTableSQL creates the collection table. A collection is an
// account-scoped container; account_type 'LOCAL' marks on-device-only data.
const CollectionTableSQL = `
CREATE TABLE IF NOT EXISTS collection (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    url TEXT,
    display_name TEXT,
    description TEXT,
    color TEXT,
    owner TEXT,
    account_name TEXT NOT NULL,
    account_type TEXT NOT NULL,
    supports_vjournal INTEGER NOT NULL DEFAULT 0,
    supports_vtodo INTEGER NOT NULL DEFAULT 0,
    readonly INTEGER NOT NULL DEFAULT 0,
    sync_version TEXT
);
`

const AttendeeTableSQL = `
CREATE TABLE IF NOT EXISTS attendee (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    icalobject_id INTEGER NOT NULL,
    caladdress TEXT NOT NULL,
    cutype TEXT,
    member TEXT,
    role TEXT,
    partstat TEXT,
    rsvp INTEGER,
    delegatedto TEXT,
    delegatedfrom TEXT,
    sentby TEXT,
    cn TEXT,
    dir TEXT,
    language TEXT,
    other TEXT,

    FOREIGN KEY(icalobject_id) REFERENCES icalobject(id) ON DELETE CASCADE
);
`

const CategoryTableSQL = `
CREATE TABLE IF NOT EXISTS category (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    icalobject_id INTEGER NOT NULL,
    text TEXT NOT NULL,
    language TEXT,
    other TEXT,

    FOREIGN KEY(icalobject_id) REFERENCES icalobject(id) ON DELETE CASCADE
);
`

const CommentTableSQL = `
CREATE TABLE IF NOT EXISTS comment (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    icalobject_id INTEGER NOT NULL,
    text TEXT NOT NULL,
    altrep TEXT,
    language TEXT,
    other TEXT,

    FOREIGN KEY(icalobject_id) REFERENCES icalobject(id) ON DELETE CASCADE
);
`

const ContactTableSQL = `
CREATE TABLE IF NOT EXISTS contact (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    icalobject_id INTEGER NOT NULL,
    text TEXT NOT NULL,
    altrep TEXT,
    language TEXT,
    other TEXT,

    FOREIGN KEY(icalobject_id) REFERENCES icalobject(id) ON DELETE CASCADE
);
`

const OrganizerTableSQL = `
CREATE TABLE IF NOT EXISTS organizer (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    icalobject_id INTEGER NOT NULL,
    caladdress TEXT NOT NULL,
    cn TEXT,
    dir TEXT,
    sentby TEXT,
    language TEXT,
    other TEXT,

    FOREIGN KEY(icalobject_id) REFERENCES icalobject(id) ON DELETE CASCADE
);
`

// RelatedtoTableSQL creates the relationship table. The link target is a UID
// string, not a row id: the related entry may not exist locally yet because
// it has not been synced down. Application code resolves UIDs on read.
const RelatedtoTableSQL = `
CREATE TABLE IF NOT EXISTS relatedto (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    icalobject_id INTEGER NOT NULL,
    text TEXT NOT NULL,
    reltype TEXT NOT NULL,
    other TEXT,

    FOREIGN KEY(icalobject_id) REFERENCES icalobject(id) ON DELETE CASCADE
);
`

const ResourceTableSQL = `
CREATE TABLE IF NOT EXISTS resource (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    icalobject_id INTEGER NOT NULL,
    text TEXT NOT NULL,
    altrep TEXT,
    language TEXT,
    other TEXT,

    FOREIGN KEY(icalobject_id) REFERENCES icalobject(id) ON DELETE CASCADE
);
`

// AttachmentTableSQL creates the attachment table. A row holds exactly one of
// an external uri, inline base64 content, or an app-managed local file path.
const AttachmentTableSQL = `
CREATE TABLE IF NOT EXISTS attachment (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    icalobject_id INTEGER NOT NULL,
    uri TEXT,
    binary TEXT,
    fmttype TEXT,
    filename TEXT,
    filesize INTEGER,
    extension TEXT,
    other TEXT,

    FOREIGN KEY(icalobject_id) REFERENCES icalobject(id) ON DELETE CASCADE
);
`

const AlarmTableSQL = `
CREATE TABLE IF NOT EXISTS alarm (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    icalobject_id INTEGER NOT NULL,
    action TEXT,
    description TEXT,
    summary TEXT,
    trigger_time INTEGER,
    trigger_timezone TEXT,
    trigger_relative_duration TEXT,
    trigger_relative_to TEXT,
    duration TEXT,
    repeat TEXT,
    attach TEXT,
    other TEXT,

    FOREIGN KEY(icalobject_id) REFERENCES icalobject(id) ON DELETE CASCADE
);
`

// UnknownTableSQL stores raw property lines the schema has no column for, so
// they survive a local round trip and go back upstream unchanged.
const UnknownTableSQL = `
CREATE TABLE IF NOT EXISTS unknown (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    icalobject_id INTEGER NOT NULL,
    value TEXT NOT NULL,

    FOREIGN KEY(icalobject_id) REFERENCES icalobject(id) ON DELETE CASCADE
);
`

const SchemaVersionTableSQL = `
CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at INTEGER NOT NULL
);
`

// Index creation statements for common queries

const ICalObjectIndexesSQL = `
CREATE INDEX IF NOT EXISTS idx_icalobject_uid ON icalobject(uid);
CREATE INDEX IF NOT EXISTS idx_icalobject_collection_id ON icalobject(collection_id);
CREATE INDEX IF NOT EXISTS idx_icalobject_module ON icalobject(module);
CREATE INDEX IF NOT EXISTS idx_icalobject_status ON icalobject(status);
CREATE INDEX IF NOT EXISTS idx_icalobject_deleted ON icalobject(deleted);
CREATE INDEX IF NOT EXISTS idx_icalobject_recur_original_id ON icalobject(recur_original_id);
`

const PropertyIndexesSQL = `
CREATE INDEX IF NOT EXISTS idx_attendee_icalobject_id ON attendee(icalobject_id);
CREATE INDEX IF NOT EXISTS idx_category_icalobject_id ON category(icalobject_id);
CREATE INDEX IF NOT EXISTS idx_comment_icalobject_id ON comment(icalobject_id);
CREATE INDEX IF NOT EXISTS idx_contact_icalobject_id ON contact(icalobject_id);
CREATE INDEX IF NOT EXISTS idx_organizer_icalobject_id ON organizer(icalobject_id);
CREATE INDEX IF NOT EXISTS idx_relatedto_icalobject_id ON relatedto(icalobject_id);
CREATE INDEX IF NOT EXISTS idx_relatedto_text ON relatedto(text);
CREATE INDEX IF NOT EXISTS idx_resource_icalobject_id ON resource(icalobject_id);
CREATE INDEX IF NOT EXISTS idx_attachment_icalobject_id ON attachment(icalobject_id);
CREATE INDEX IF NOT EXISTS idx_alarm_icalobject_id ON alarm(icalobject_id);
CREATE INDEX IF NOT EXISTS idx_unknown_icalobject_id ON unknown(icalobject_id);
`

const CollectionIndexesSQL = `
CREATE INDEX IF NOT EXISTS idx_collection_account ON collection(account_name, account_type);
`

// AllTableSchemas returns all table creation statements in dependency order
func AllTableSchemas() []string {
	return []string{
		SchemaVersionTableSQL,
		CollectionTableSQL,
		ICalObjectTableSQL,
		AttendeeTableSQL,
		CategoryTableSQL,
		CommentTableSQL,
		ContactTableSQL,
		OrganizerTableSQL,
		RelatedtoTableSQL,
		ResourceTableSQL,
		AttachmentTableSQL,
		AlarmTableSQL,
		UnknownTableSQL,
	}
}

// AllIndexes returns all index creation statements
func AllIndexes() []string {
	return []string{
		ICalObjectIndexesSQL,
		PropertyIndexesSQL,
		CollectionIndexesSQL,
	}
}

// PragmaStatements returns pragma statements to execute on database connection
func PragmaStatements() []string {
	return []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",   // Write-Ahead Logging for better concurrency
		"PRAGMA synchronous = NORMAL", // Balance between safety and performance
	}
}
