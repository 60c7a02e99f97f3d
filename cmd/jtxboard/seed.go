package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"jtxboard/internal/utils"
	"jtxboard/store"
)

// seedManifest describes collections and entries to load into the store.
type seedManifest struct {
	Collections []seedCollection `yaml:"collections"`
}

type seedCollection struct {
	DisplayName      string      `yaml:"display_name"`
	Description      string      `yaml:"description"`
	Color            string      `yaml:"color"`
	SupportsVJournal *bool       `yaml:"supports_vjournal"`
	SupportsVTodo    *bool       `yaml:"supports_vtodo"`
	Entries          []seedEntry `yaml:"entries"`
}

type seedEntry struct {
	Module      string   `yaml:"module"` // journal, note or todo
	Summary     string   `yaml:"summary"`
	Description string   `yaml:"description"`
	DtStart     string   `yaml:"dtstart"` // YYYY-MM-DD
	Due         string   `yaml:"due"`
	Priority    *int     `yaml:"priority"`
	Percent     *int     `yaml:"percent"`
	RRule       string   `yaml:"rrule"`
	Categories  []string    `yaml:"categories"`
	Children    []seedEntry `yaml:"children"`
}

func newSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed <manifest.yaml>",
		Short: "Load collections and entries from a YAML manifest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read manifest: %w", err)
			}

			var manifest seedManifest
			if err := yaml.Unmarshal(data, &manifest); err != nil {
				return fmt.Errorf("invalid manifest YAML: %w", err)
			}

			db, err := openDatabase(cmd)
			if err != nil {
				return err
			}
			defer db.Close()

			total := 0
			for _, sc := range manifest.Collections {
				count, err := seedOneCollection(db, sc)
				if err != nil {
					return err
				}
				total += count
			}
			fmt.Printf("Seeded %d entries across %d collection(s)\n",
				total, len(manifest.Collections))
			return nil
		},
	}
}

func seedOneCollection(db *store.Database, sc seedCollection) (int, error) {
	c := store.NewLocalCollection(sc.DisplayName)
	c.Description = sc.Description
	c.Color = sc.Color
	if sc.SupportsVJournal != nil {
		c.SupportsVJournal = *sc.SupportsVJournal
	}
	if sc.SupportsVTodo != nil {
		c.SupportsVTodo = *sc.SupportsVTodo
	}

	collectionID, err := db.InsertCollection(c)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, se := range sc.Entries {
		n, err := seedOneEntry(db, collectionID, se, "")
		if err != nil {
			return count, err
		}
		count += n
	}
	return count, nil
}

// seedOneEntry inserts one manifest entry and its children; children link to
// the parent by UID the way the store expects.
func seedOneEntry(db *store.Database, collectionID int64, se seedEntry, parentUID string) (int, error) {
	o, err := entryFromSeed(se)
	if err != nil {
		return 0, err
	}
	o.CollectionID = collectionID

	id, err := db.InsertICalObject(o)
	if err != nil {
		return 0, err
	}

	for _, category := range se.Categories {
		_, err := db.InsertPropertyRow("category", store.Values{
			"icalobject_id": id,
			"text":          category,
		})
		if err != nil {
			return 0, err
		}
	}

	if parentUID != "" {
		_, err := db.InsertPropertyRow("relatedto", store.Values{
			"icalobject_id": id,
			"text":          parentUID,
			"reltype":       store.ReltypeParent,
		})
		if err != nil {
			return 0, err
		}
	}

	if o.IsRecurring() {
		if err := db.RecreateRecurring(id); err != nil {
			return 0, err
		}
	}

	count := 1
	for _, child := range se.Children {
		n, err := seedOneEntry(db, collectionID, child, o.UID)
		if err != nil {
			return count, err
		}
		count += n
	}
	return count, nil
}

func entryFromSeed(se seedEntry) (*store.ICalObject, error) {
	var o *store.ICalObject
	switch se.Module {
	case "journal":
		dtstart, err := utils.ParseDateFlag(se.DtStart)
		if err != nil {
			return nil, utils.ErrInvalidDate(se.DtStart)
		}
		if dtstart == nil {
			return nil, fmt.Errorf("journal %q requires a dtstart", se.Summary)
		}
		o = store.NewJournal(se.Summary, dtstart.UnixMilli(), store.TZAllDay)
	case "note":
		o = store.NewNote(se.Summary)
	case "todo", "":
		o = store.NewTodo(se.Summary)
		if se.DtStart != "" {
			dtstart, err := utils.ParseDateFlag(se.DtStart)
			if err != nil {
				return nil, err
			}
			ts := dtstart.UnixMilli()
			o.DtStart = &ts
			o.DtStartTimezone = store.TZAllDay
		}
		if se.Due != "" {
			due, err := utils.ParseDateFlag(se.Due)
			if err != nil {
				return nil, err
			}
			ts := due.UnixMilli()
			o.Due = &ts
			o.DueTimezone = store.TZAllDay
		}
		if se.Percent != nil {
			o.Percent = se.Percent
			o.Status = store.StatusFromPercent(*se.Percent)
		}
	default:
		return nil, fmt.Errorf("unknown module %q for entry %q", se.Module, se.Summary)
	}

	o.Description = se.Description
	if se.Priority != nil {
		if err := utils.ValidatePriority(*se.Priority); err != nil {
			return nil, utils.ErrInvalidPriority(*se.Priority)
		}
		o.Priority = se.Priority
	}
	o.RRule = se.RRule
	return o, nil
}
