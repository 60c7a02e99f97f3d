package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"jtxboard/internal/utils"
	"jtxboard/store"
)

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <id>",
		Short: "Export an entry as iCalendar",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid entry id %q", args[0])
			}

			db, err := openDatabase(cmd)
			if err != nil {
				return err
			}
			defer db.Close()

			ics, err := db.ExportICS(id)
			if err == store.ErrNotFound {
				return utils.ErrEntryNotFound(id)
			}
			if err != nil {
				return err
			}

			if outPath, _ := cmd.Flags().GetString("output"); outPath != "" {
				if err := os.WriteFile(outPath, []byte(ics), 0644); err != nil {
					return fmt.Errorf("failed to write %s: %w", outPath, err)
				}
				fmt.Printf("Exported entry %d to %s\n", id, outPath)
				return nil
			}

			fmt.Print(ics)
			return nil
		},
	}
	cmd.Flags().StringP("output", "o", "", "write to file instead of stdout")
	return cmd
}
