package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/alvesdmateus/auto-deployer/internal/state"
	"github.com/alvesdmateus/auto-deployer/pkg/config"
	"github.com/alvesdmateus/auto-deployer/pkg/database"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded pipeline runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		db, err := database.Open(cfg.State.DatabasePath)
		if err != nil {
			return fmt.Errorf("failed to open run history: %w", err)
		}
		if err := database.Migrate(db, &state.Run{}); err != nil {
			return fmt.Errorf("failed to migrate run history: %w", err)
		}

		limit, _ := cmd.Flags().GetInt("limit")

		runs, err := state.NewRepository(db).ListRuns(cmd.Context(), limit)
		if err != nil {
			return err
		}

		if len(runs) == 0 {
			fmt.Println("No runs recorded.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "WHEN\tOPERATION\tSERVICE\tSTATUS\tURL")
		for _, run := range runs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				run.CreatedAt.Format("2006-01-02 15:04"),
				run.Operation,
				run.ServiceName,
				run.Status,
				run.ServiceURL,
			)
		}
		return w.Flush()
	},
}

func init() {
	listCmd.Flags().Int("limit", 20, "Maximum number of runs to show")
}
