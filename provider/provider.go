package provider

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"jtxboard/internal/utils"
	"jtxboard/store"
)

// Provider exposes the local store over the content URI contract. All four
// row operations scope their visible data by caller identity: a sync adapter
// sees exactly its own account, everyone else sees local collections only.
// Every caller-supplied value travels as a bound parameter.
type Provider struct {
	db            *store.Database
	authority     string
	attachmentDir string
}

func New(db *store.Database, authority, attachmentDir string) *Provider {
	return &Provider{db: db, authority: authority, attachmentDir: attachmentDir}
}

// recurrenceKeys are the icalobject columns whose change invalidates the
// materialized instance set.
var recurrenceKeys = []string{"rrule", "rdate", "exdate", "dtstart", "dtstart_timezone", "due"}

// scopeClause builds the WHERE fragment that restricts a request to the rows
// its caller may see.
func scopeClause(req *Request) (string, []any) {
	var collScope string
	var args []any
	if req.SyncAdapter {
		collScope = "account_name = ? AND account_type = ?"
		args = []any{req.AccountName, req.AccountType}
	} else {
		collScope = "account_type = ?"
		args = []any{store.LocalAccountType}
	}

	switch req.Table {
	case "collection":
		return collScope, args
	case "icalobject":
		return "collection_id IN (SELECT id FROM collection WHERE " + collScope + ")", args
	default:
		return "icalobject_id IN (SELECT id FROM icalobject WHERE collection_id IN (SELECT id FROM collection WHERE " + collScope + "))", args
	}
}

// tableColumns returns the stable column list for a contract table: the
// surrogate id first, then the schema columns sorted.
func tableColumns(table string) []string {
	schema := store.TableSchema(table)
	cols := make([]string, 0, len(schema))
	for col := range schema {
		cols = append(cols, col)
	}
	sort.Strings(cols)
	return append([]string{"id"}, cols...)
}

// buildWhere merges the caller scope, an optional id segment and an optional
// selection fragment into one WHERE clause. Selection arguments stay bound
// parameters throughout, so injected SQL in a value has no effect, and the
// fragment itself must not be able to escape its parenthesized group.
func buildWhere(req *Request, selection string, selectionArgs []any) (string, []any, error) {
	scope, args := scopeClause(req)
	clauses := []string{scope}

	if req.HasID {
		clauses = append(clauses, "id = ?")
		args = append(args, req.ID)
	}
	if selection != "" {
		if !validSelection(selection) {
			return "", nil, argErrorf("malformed selection %q", selection)
		}
		clauses = append(clauses, "("+selection+")")
		args = append(args, selectionArgs...)
	}

	return strings.Join(clauses, " AND "), args, nil
}

// validSelection rejects selection fragments that could break out of the
// surrounding parentheses and defeat the caller scope clause: unbalanced
// parentheses, unterminated string literals, statement separators and SQL
// comments. Quoted literals are skipped, with '' as the escape.
func validSelection(selection string) bool {
	depth := 0
	inQuote := false
	for i := 0; i < len(selection); i++ {
		c := selection[i]
		if inQuote {
			if c == '\'' {
				inQuote = false
			}
			continue
		}
		switch c {
		case '\'':
			inQuote = true
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return false
			}
		case ';':
			return false
		case '-':
			if i+1 < len(selection) && selection[i+1] == '-' {
				return false
			}
		case '/':
			if i+1 < len(selection) && selection[i+1] == '*' {
				return false
			}
		}
	}
	return depth == 0 && !inQuote
}

// validOrderBy accepts only plain column references with an optional
// direction, so ORDER BY can never smuggle SQL.
func validOrderBy(table, orderBy string) bool {
	schema := store.TableSchema(table)
	for _, part := range strings.Split(orderBy, ",") {
		part = strings.TrimSpace(part)
		part = strings.TrimSuffix(part, " DESC")
		part = strings.TrimSuffix(part, " ASC")
		part = strings.TrimSpace(part)
		if part != "id" {
			if _, ok := schema[part]; !ok {
				return false
			}
		}
	}
	return true
}

// Query runs a scoped SELECT against the addressed table and returns the rows
// as value bags, each including the surrogate id.
func (p *Provider) Query(rawURI, selection string, selectionArgs []any, orderBy string) ([]store.Values, error) {
	req, err := ParseURI(p.authority, rawURI)
	if err != nil {
		return nil, err
	}

	cols := tableColumns(req.Table)
	where, args, err := buildWhere(req, selection, selectionArgs)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s",
		strings.Join(cols, ", "), req.Table, where)
	if orderBy != "" {
		if !validOrderBy(req.Table, orderBy) {
			return nil, argErrorf("invalid order-by clause %q", orderBy)
		}
		query += " ORDER BY " + orderBy
	}

	rows, err := p.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query on %s failed: %w", req.Table, err)
	}
	defer rows.Close()

	schema := store.TableSchema(req.Table)
	var out []store.Values
	for rows.Next() {
		dest := make([]any, len(cols))
		for i := range dest {
			dest[i] = new(any)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("query on %s failed: %w", req.Table, err)
		}

		v := store.Values{}
		for i, col := range cols {
			val := *(dest[i].(*any))
			if val == nil {
				continue
			}
			if col == "id" {
				if n, ok := val.(int64); ok {
					v[col] = n
				}
				continue
			}
			switch schema[col] {
			case store.ColText:
				switch s := val.(type) {
				case string:
					v[col] = s
				case []byte:
					v[col] = string(s)
				}
			case store.ColInt:
				if n, ok := val.(int64); ok {
					v[col] = n
				}
			case store.ColBool:
				if n, ok := val.(int64); ok {
					v[col] = n != 0
				}
			}
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// Insert stores one row built from the value bag. A bag that does not resolve
// to a valid entity, or whose foreign key points nowhere, yields (0, nil):
// the caller sees the absence of a created row, not a failure.
func (p *Provider) Insert(rawURI string, values store.Values) (int64, error) {
	req, err := ParseURI(p.authority, rawURI)
	if err != nil {
		return 0, err
	}
	if req.HasID {
		return 0, argErrorf("insert URI must not address a row id")
	}
	if err := values.Validate(req.Table); err != nil {
		return 0, argErrorf("%v", err)
	}

	switch req.Table {
	case "collection":
		return p.insertCollection(req, values)
	case "icalobject":
		return p.insertICalObject(req, values)
	default:
		return p.insertProperty(req, values)
	}
}

func (p *Provider) insertCollection(req *Request, values store.Values) (int64, error) {
	c := store.CollectionFromValues(values)
	if c == nil {
		return 0, nil
	}
	if err := p.checkCollectionAccess(req, c); err != nil {
		return 0, err
	}
	return p.db.InsertCollection(c)
}

func (p *Provider) insertICalObject(req *Request, values store.Values) (int64, error) {
	o := store.ICalObjectFromValues(values)
	if o == nil {
		return 0, nil
	}

	collection, err := p.db.GetCollection(o.CollectionID)
	if errors.Is(err, store.ErrNotFound) {
		// Dangling collectionId: absence of a created row, not an error.
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if err := p.checkCollectionAccess(req, collection); err != nil {
		return 0, err
	}

	if !req.SyncAdapter {
		o.Dirty = true
	}

	id, err := p.db.InsertICalObject(o)
	if err != nil {
		return 0, err
	}

	if o.IsRecurring() {
		if err := p.db.RecreateRecurring(id); err != nil {
			utils.Warnf("failed to materialize recurrence for new entry %d: %v", id, err)
		}
	}
	return id, nil
}

func (p *Provider) insertProperty(req *Request, values store.Values) (int64, error) {
	row := propertyFromValues(req.Table, values)
	if row == nil {
		return 0, nil
	}

	objectID, _ := row.GetInt64("icalobject_id")
	parent, err := p.db.GetICalObject(objectID)
	if errors.Is(err, store.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	collection, err := p.db.GetCollection(parent.CollectionID)
	if err != nil {
		return 0, err
	}
	if err := p.checkCollectionAccess(req, collection); err != nil {
		return 0, err
	}

	id, err := p.db.InsertPropertyRow(req.Table, row)
	if err != nil {
		return 0, err
	}

	if req.Table == "attachment" && row.GetString("binary") != "" {
		p.materializeAttachment(id)
	}
	return id, nil
}

// materializeAttachment moves inline base64 content of a freshly inserted
// attachment out to the attachment directory. Best effort: the inline row
// stays usable when the file write fails.
func (p *Provider) materializeAttachment(id int64) {
	a, err := p.db.GetAttachment(id)
	if err != nil {
		utils.Warnf("failed to load attachment %d for materialization: %v", id, err)
		return
	}
	if err := a.MaterializeBinary(p.attachmentDir); err != nil {
		utils.Warnf("failed to materialize attachment %d: %v", id, err)
		return
	}
	if err := p.db.UpdateAttachment(a); err != nil {
		utils.Warnf("failed to persist materialized attachment %d: %v", id, err)
	}
}

// propertyFromValues runs the per-table factory and returns the normalized
// column bag, or nil when the bag does not make a valid row.
func propertyFromValues(table string, v store.Values) store.Values {
	switch table {
	case "attendee":
		if a := store.AttendeeFromValues(v); a != nil {
			return a.ToValues()
		}
	case "category":
		if c := store.CategoryFromValues(v); c != nil {
			return c.ToValues()
		}
	case "comment":
		if c := store.CommentFromValues(v); c != nil {
			return c.ToValues()
		}
	case "contact":
		if c := store.ContactFromValues(v); c != nil {
			return c.ToValues()
		}
	case "organizer":
		if o := store.OrganizerFromValues(v); o != nil {
			return o.ToValues()
		}
	case "relatedto":
		if r := store.RelatedtoFromValues(v); r != nil {
			return r.ToValues()
		}
	case "resource":
		if r := store.ResourceFromValues(v); r != nil {
			return r.ToValues()
		}
	case "attachment":
		if a := store.AttachmentFromValues(v); a != nil {
			return a.ToValues()
		}
	case "alarm":
		if a := store.AlarmFromValues(v); a != nil {
			return a.ToValues()
		}
	case "unknown":
		if u := store.UnknownFromValues(v); u != nil {
			return u.ToValues()
		}
	}
	return nil
}

// Update applies the value bag to every row the scoped WHERE clause matches
// and returns the affected count. Non-sync updates on entries bump sequence,
// last_modified and dirty so the edit becomes sync-relevant; sync-adapter
// updates write exactly what they carry.
func (p *Provider) Update(rawURI string, values store.Values, selection string, selectionArgs []any) (int64, error) {
	req, err := ParseURI(p.authority, rawURI)
	if err != nil {
		return 0, err
	}
	if len(values) == 0 {
		return 0, argErrorf("empty value bag")
	}
	if err := values.Validate(req.Table); err != nil {
		return 0, argErrorf("%v", err)
	}

	where, whereArgs, err := buildWhere(req, selection, selectionArgs)
	if err != nil {
		return 0, err
	}

	// Recurrence-relevant edits need the affected ids before the write.
	var recurIDs []int64
	if req.Table == "icalobject" && touchesRecurrence(values) {
		recurIDs, err = p.collectIDs(req.Table, where, whereArgs)
		if err != nil {
			return 0, err
		}
	}

	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	sets := make([]string, 0, len(keys)+3)
	args := make([]any, 0, len(keys)+len(whereArgs)+1)
	for _, key := range keys {
		sets = append(sets, key+" = ?")
		args = append(args, values[key])
	}

	if req.Table == "icalobject" && !req.SyncAdapter {
		if !values.HasKey("sequence") {
			sets = append(sets, "sequence = sequence + 1")
		}
		if !values.HasKey("last_modified") {
			sets = append(sets, "last_modified = ?")
			args = append(args, utils.NowMillis())
		}
		if !values.HasKey("dirty") {
			sets = append(sets, "dirty = 1")
		}
	}

	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s",
		req.Table, strings.Join(sets, ", "), where)
	args = append(args, whereArgs...)

	result, err := p.db.Exec(query, args...)
	if err != nil {
		return 0, fmt.Errorf("update on %s failed: %w", req.Table, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}

	for _, id := range recurIDs {
		if err := p.db.RecreateRecurring(id); err != nil {
			utils.Warnf("failed to rematerialize recurrence for entry %d: %v", id, err)
		}
	}

	return affected, nil
}

func touchesRecurrence(values store.Values) bool {
	for _, key := range recurrenceKeys {
		if values.HasKey(key) {
			return true
		}
	}
	return false
}

func (p *Provider) collectIDs(table, where string, args []any) ([]int64, error) {
	rows, err := p.db.Query("SELECT id FROM "+table+" WHERE "+where, args...)
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

// Delete removes the scoped rows and returns the affected count. Entry
// deletion follows collection locality: a sync adapter's delete is physical
// (removal already confirmed upstream), a local caller's delete goes through
// the subtree rules, hard for local collections and tombstoned for remote
// ones.
func (p *Provider) Delete(rawURI, selection string, selectionArgs []any) (int64, error) {
	req, err := ParseURI(p.authority, rawURI)
	if err != nil {
		return 0, err
	}

	where, args, err := buildWhere(req, selection, selectionArgs)
	if err != nil {
		return 0, err
	}

	switch req.Table {
	case "icalobject":
		ids, err := p.collectIDs(req.Table, where, args)
		if err != nil {
			return 0, err
		}
		for _, id := range ids {
			if req.SyncAdapter {
				if err := p.hardDeleteEntry(id); err != nil {
					return 0, err
				}
			} else {
				if err := p.db.DeleteItemWithChildren(id); err != nil {
					return 0, err
				}
			}
		}
		return int64(len(ids)), nil

	default:
		result, err := p.db.Exec(
			fmt.Sprintf("DELETE FROM %s WHERE %s", req.Table, where), args...)
		if err != nil {
			return 0, fmt.Errorf("delete on %s failed: %w", req.Table, err)
		}
		return result.RowsAffected()
	}
}

// hardDeleteEntry removes a row physically together with the materialized
// instances of its series.
func (p *Provider) hardDeleteEntry(id int64) error {
	o, err := p.db.GetICalObject(id)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if !o.IsRecurInstance() {
		if err := p.db.DeleteRecurringInstances(o.UID); err != nil {
			return err
		}
	}
	return p.db.DeleteICalObject(id)
}

// GetType reports the MIME-style type for a content URI.
func (p *Provider) GetType(rawURI string) (string, error) {
	req, err := ParseURI(p.authority, rawURI)
	if err != nil {
		return "", err
	}
	if req.HasID {
		return "vnd.android.cursor.item/vnd." + p.authority + "." + req.Table, nil
	}
	return "vnd.android.cursor.dir/vnd." + p.authority + "." + req.Table, nil
}

// checkCollectionAccess enforces the write-side of the caller scoping: a sync
// adapter stays inside its own account, everyone else inside local
// collections.
func (p *Provider) checkCollectionAccess(req *Request, c *store.ICalCollection) error {
	if req.SyncAdapter {
		if c.AccountName != req.AccountName || c.AccountType != req.AccountType {
			return argErrorf("collection %d belongs to another account", c.ID)
		}
		return nil
	}
	if !c.IsLocal() {
		return argErrorf("collection %d is remote and requires a sync adapter", c.ID)
	}
	return nil
}
