package accounts

import (
	"jtxboard/internal/config"
	"jtxboard/internal/utils"
	"jtxboard/store"
)

// Account identifies one sync account by the (name, type) pair collections
// are scoped to.
type Account struct {
	Name string
	Type string
}

// Registry knows which accounts currently exist: the reserved local account
// plus every enabled account from the configuration. Collections belonging to
// accounts outside this set are orphans left behind by a removed account.
type Registry struct {
	accounts []Account
}

// NewRegistry builds the registry from the configured accounts.
func NewRegistry(cfg *config.Config) *Registry {
	r := &Registry{
		accounts: []Account{
			{Name: store.LocalAccountName, Type: store.LocalAccountType},
		},
	}
	for name, account := range cfg.GetEnabledAccounts() {
		r.accounts = append(r.accounts, Account{Name: name, Type: account.Type})
	}
	return r
}

// Accounts returns the known accounts, local account included.
func (r *Registry) Accounts() []Account {
	return r.accounts
}

// Contains reports whether the (name, type) pair belongs to a known account.
// The local account always matches by type alone, so locally created
// collections never count as orphaned.
func (r *Registry) Contains(accountName, accountType string) bool {
	if accountType == store.LocalAccountType {
		return true
	}
	for _, a := range r.accounts {
		if a.Name == accountName && a.Type == accountType {
			return true
		}
	}
	return false
}

// EnsureLocalCollection guarantees that at least one local collection exists,
// so entries can always be created without configuring any account.
func (r *Registry) EnsureLocalCollection(db *store.Database) (int64, error) {
	collections, err := db.ListCollections()
	if err != nil {
		return 0, err
	}
	for _, c := range collections {
		if c.IsLocal() {
			return c.ID, nil
		}
	}

	c := store.NewLocalCollection("Local")
	id, err := db.InsertCollection(c)
	if err != nil {
		return 0, err
	}
	utils.Infof("created default local collection (id %d)", id)
	return id, nil
}

// CleanupOrphanedCollections deletes every collection whose account no longer
// exists. The schema cascade takes the collection's entries and their
// properties with it. Returns the number of removed collections.
func (r *Registry) CleanupOrphanedCollections(db *store.Database) (int, error) {
	collections, err := db.ListCollections()
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, c := range collections {
		if r.Contains(c.AccountName, c.AccountType) {
			continue
		}
		utils.Infof("removing orphaned collection %q (account %s/%s)",
			c.DisplayName, c.AccountName, c.AccountType)
		if err := db.DeleteCollection(c.ID); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}
