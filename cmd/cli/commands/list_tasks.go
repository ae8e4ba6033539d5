package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/handsofstluke/pantry/pkg/core/services"
	"github.com/handsofstluke/pantry/pkg/db"
)

// ListTasksCmd creates the listTasks command
func ListTasksCmd(app *AppContext) *cobra.Command {
	var from, to, kind string

	cmd := &cobra.Command{
		Use:   "listTasks",
		Short: "List open tasks with remaining volunteer spots",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var filter db.TaskFilter
			var err error
			if from != "" {
				filter.From, err = time.Parse("2006-01-02", from)
				if err != nil {
					return fmt.Errorf("from must be YYYY-MM-DD: %w", err)
				}
			}
			if to != "" {
				filter.To, err = time.Parse("2006-01-02", to)
				if err != nil {
					return fmt.Errorf("to must be YYYY-MM-DD: %w", err)
				}
			}
			filter.Kind = db.TaskKind(kind)

			states, err := services.ListOpportunities(app.Ctx, app.Database, app.Logger, filter)
			if err != nil {
				return err
			}

			fmt.Printf("\nFound %d open tasks:\n\n", len(states))
			for _, state := range states {
				fmt.Printf("- %s  %s-%s  %-8s  %s (%d of %d spots left)  [%s]\n",
					state.Task.Date.Format("Mon 2006-01-02"),
					state.Task.StartTime,
					state.Task.EndTime,
					state.Task.Kind,
					state.Task.Title,
					state.Remaining(),
					state.Task.Capacity,
					state.Task.ID,
				)
			}
			fmt.Println()

			return nil
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "Earliest task date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "Latest task date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&kind, "kind", "", "Filter by kind (PICKUP or DELIVERY)")

	return cmd
}
