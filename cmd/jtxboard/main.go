package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"jtxboard/internal/config"
	"jtxboard/internal/utils"
	"jtxboard/store"
)

// openDatabase opens the configured database, honoring the --db override.
func openDatabase(cmd *cobra.Command) (*store.Database, error) {
	dbPath, _ := cmd.Flags().GetString("db")
	if dbPath == "" {
		dbPath = config.GetConfig().DBPath
	}
	return store.InitDatabase(dbPath)
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "jtxboard",
		Short: "Local store and sync surface for journals, notes and tasks",
		Long: `jtxboard manages an iCalendar-oriented local store for journals, notes
and tasks, materializes recurring entries, keeps task hierarchies consistent
and exposes the data to sync adapters over a content-style interface.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if configPath, _ := cmd.Flags().GetString("config"); configPath != "" {
				config.SetCustomConfigPath(configPath)
			}
			if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
				utils.SetVerboseMode(true)
			}
		},
	}

	rootCmd.PersistentFlags().String("config", "", "path to config file or directory")
	rootCmd.PersistentFlags().String("db", "", "path to database file (overrides config)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable verbose logging")

	rootCmd.AddCommand(
		newInitCmd(),
		newStatsCmd(),
		newCollectionsCmd(),
		newServeCmd(),
		newSeedCmd(),
		newExportCmd(),
		newCleanupCmd(),
		newAccountsCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the database and a default local collection",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDatabase(cmd)
			if err != nil {
				return err
			}
			defer db.Close()

			registry := newRegistry()
			id, err := registry.EnsureLocalCollection(db)
			if err != nil {
				return err
			}

			version, err := db.GetSchemaVersion()
			if err != nil {
				return err
			}
			fmt.Printf("Database ready at %s (schema v%d, local collection %d)\n",
				db.Path(), version, id)
			return nil
		},
	}
}

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show database statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDatabase(cmd)
			if err != nil {
				return err
			}
			defer db.Close()

			stats, err := db.GetStats()
			if err != nil {
				return err
			}

			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				return utils.OutputJSON(stats)
			}
			if asYAML, _ := cmd.Flags().GetBool("yaml"); asYAML {
				return utils.OutputYAML(stats)
			}
			fmt.Printf("Entries:            %d\n", stats.ObjectCount)
			fmt.Printf("Collections:        %d\n", stats.CollectionCount)
			fmt.Printf("Recur instances:    %d\n", stats.RecurInstances)
			fmt.Printf("Pending sync:       %d\n", stats.DirtyCount)
			fmt.Printf("Tombstones:         %d\n", stats.DeletedCount)
			fmt.Printf("Database size:      %d bytes\n", stats.DatabaseSize)
			return nil
		},
	}
	cmd.Flags().Bool("json", false, "output as JSON")
	cmd.Flags().Bool("yaml", false, "output as YAML")
	return cmd
}

func newCollectionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "collections",
		Short: "List collections",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDatabase(cmd)
			if err != nil {
				return err
			}
			defer db.Close()

			collections, err := db.ListCollections()
			if err != nil {
				return err
			}

			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				return utils.OutputJSON(collections)
			}
			if asYAML, _ := cmd.Flags().GetBool("yaml"); asYAML {
				return utils.OutputYAML(collections)
			}

			if len(collections) == 0 {
				fmt.Println("No collections. Run 'jtxboard init' to create one.")
				return nil
			}
			for _, c := range collections {
				kind := "remote"
				if c.IsLocal() {
					kind = "local"
				}
				components := ""
				if c.SupportsVJournal {
					components += " vjournal"
				}
				if c.SupportsVTodo {
					components += " vtodo"
				}
				fmt.Printf("%4d  %-24s %-7s %s/%s%s\n",
					c.ID, c.DisplayName, kind, c.AccountName, c.AccountType, components)
			}
			return nil
		},
	}
	cmd.Flags().Bool("json", false, "output as JSON")
	cmd.Flags().Bool("yaml", false, "output as YAML")
	return cmd
}

func newCleanupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Run the housekeeping jobs once",
		Long: `Purges entries whose deletion has been confirmed upstream, removes
collections of accounts that no longer exist and sweeps attachment files
without a backing row.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if yes, _ := cmd.Flags().GetBool("yes"); !yes {
				if !utils.PromptYesNo("Purge confirmed deletions and orphaned data?") {
					fmt.Println("Aborted.")
					return nil
				}
			}

			db, err := openDatabase(cmd)
			if err != nil {
				return err
			}
			defer db.Close()

			registry := newRegistry()
			removed, err := registry.CleanupOrphanedCollections(db)
			if err != nil {
				return err
			}
			if removed > 0 {
				fmt.Printf("Removed %d orphaned collection(s)\n", removed)
			}

			j, err := newJanitor(db)
			if err != nil {
				return err
			}
			return j.RunOnce()
		},
	}
	cmd.Flags().BoolP("yes", "y", false, "skip the confirmation prompt")
	return cmd
}
