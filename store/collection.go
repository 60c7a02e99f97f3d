package store

// LocalAccountType is the reserved account type for on-device-only
// collections. Entries in a LOCAL collection are never handed to a sync
// adapter and may be hard-deleted immediately.
const LocalAccountType = "LOCAL"

// LocalAccountName is the account name used for the default local account.
const LocalAccountName = "LOCAL"

// ICalCollection is an account-scoped container of entries: a remote CalDAV
// calendar mirrored locally, or a purely local collection.
type ICalCollection struct {
	ID               int64
	URL              string
	DisplayName      string
	Description      string
	Color            string
	Owner            string
	AccountName      string
	AccountType      string
	SupportsVJournal bool
	SupportsVTodo    bool
	Readonly         bool
	SyncVersion      string
}

// NewLocalCollection creates an on-device collection supporting all
// components.
func NewLocalCollection(displayName string) *ICalCollection {
	return &ICalCollection{
		DisplayName:      displayName,
		AccountName:      LocalAccountName,
		AccountType:      LocalAccountType,
		SupportsVJournal: true,
		SupportsVTodo:    true,
	}
}

// IsLocal reports whether the collection lives only on this device.
func (c *ICalCollection) IsLocal() bool {
	return c.AccountType == LocalAccountType
}

// SupportsComponent reports whether entries of the given component type may
// be created in this collection.
func (c *ICalCollection) SupportsComponent(component Component) bool {
	switch component {
	case ComponentVJournal:
		return c.SupportsVJournal
	case ComponentVTodo:
		return c.SupportsVTodo
	}
	return false
}

// CollectionFromValues builds a collection from a validated value bag.
// Returns nil when the identifying account pair is absent.
func CollectionFromValues(v Values) *ICalCollection {
	accountName := v.GetString("account_name")
	accountType := v.GetString("account_type")
	if accountName == "" || accountType == "" {
		return nil
	}

	return &ICalCollection{
		URL:              v.GetString("url"),
		DisplayName:      v.GetString("display_name"),
		Description:      v.GetString("description"),
		Color:            v.GetString("color"),
		Owner:            v.GetString("owner"),
		AccountName:      accountName,
		AccountType:      accountType,
		SupportsVJournal: v.GetBool("supports_vjournal"),
		SupportsVTodo:    v.GetBool("supports_vtodo"),
		Readonly:         v.GetBool("readonly"),
		SyncVersion:      v.GetString("sync_version"),
	}
}

// ToValues converts the collection back into a value bag.
func (c *ICalCollection) ToValues() Values {
	v := Values{
		"account_name":      c.AccountName,
		"account_type":      c.AccountType,
		"supports_vjournal": c.SupportsVJournal,
		"supports_vtodo":    c.SupportsVTodo,
		"readonly":          c.Readonly,
	}
	if c.URL != "" {
		v["url"] = c.URL
	}
	if c.DisplayName != "" {
		v["display_name"] = c.DisplayName
	}
	if c.Description != "" {
		v["description"] = c.Description
	}
	if c.Color != "" {
		v["color"] = c.Color
	}
	if c.Owner != "" {
		v["owner"] = c.Owner
	}
	if c.SyncVersion != "" {
		v["sync_version"] = c.SyncVersion
	}
	return v
}
