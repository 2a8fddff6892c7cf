/*
Copyright © 2025 Valentyn Solomko <valentyn.solomko@gmail.com>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/valpere/storitran/internal/store"
)

var (
	auditDBPath string
	auditLimit  int
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Inspect past translation runs",
	Long:  `List past document runs and their per-page outcomes from the SQLite run history.`,
}

var auditRunsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent translation runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := store.New(auditDBPath)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()

		runs, err := db.ListRuns(context.Background(), auditLimit)
		if err != nil {
			return fmt.Errorf("failed to list runs: %w", err)
		}

		if len(runs) == 0 {
			fmt.Println("No runs recorded.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tINPUT\tLANGS\tSERVICE\tSTATUS\tPAGES\tFAILED\tSTARTED")
		for _, r := range runs {
			fmt.Fprintf(w, "%s\t%s\t%s→%s\t%s\t%s\t%d/%d\t%d\t%s\n",
				r.ID, r.InputFile, r.SourceLang, r.TargetLang, r.Service,
				r.Status, r.PagesSucceeded, r.PagesTotal, r.PagesFailed,
				r.CreatedAt.Format("2006-01-02 15:04"))
		}
		return w.Flush()
	},
}

var auditPagesCmd = &cobra.Command{
	Use:   "pages <run-id>",
	Short: "Show per-page outcomes of a run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := store.New(auditDBPath)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()

		pages, err := db.ListPageResults(context.Background(), args[0])
		if err != nil {
			return fmt.Errorf("failed to list page results: %w", err)
		}

		if len(pages) == 0 {
			fmt.Printf("No page results for run %s.\n", args[0])
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "PAGE\tSTATUS\tATTEMPTS\tDURATION\tERROR")
		for _, p := range pages {
			errMsg := p.Error
			if len(errMsg) > 60 {
				errMsg = errMsg[:57] + "..."
			}
			fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%s\n",
				p.PageNumber, p.Status, p.Attempts,
				(time.Duration(p.DurationMs) * time.Millisecond).String(), errMsg)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.AddCommand(auditRunsCmd)
	auditCmd.AddCommand(auditPagesCmd)

	auditCmd.PersistentFlags().StringVar(&auditDBPath, "db", "./data/storitran.db", "Database path for run history")
	auditRunsCmd.Flags().IntVar(&auditLimit, "limit", 20, "Maximum number of runs to list")
}
