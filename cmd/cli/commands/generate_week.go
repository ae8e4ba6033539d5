package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/handsofstluke/pantry/pkg/core/services"
)

// GenerateWeekCmd creates the generateWeek command
func GenerateWeekCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "generateWeek [week_start]",
		Short: "Generate a week of tasks from the configured templates (defaults to next Monday)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var weekStart time.Time
			if len(args) > 0 {
				var err error
				weekStart, err = time.Parse("2006-01-02", args[0])
				if err != nil {
					return fmt.Errorf("week_start must be YYYY-MM-DD: %w", err)
				}
			} else {
				weekStart = nextMonday(time.Now())
			}

			tasks, err := services.GenerateWeek(app.Ctx, app.Database, app.Cfg, app.Logger, weekStart, cliIdentity())
			if err != nil {
				return err
			}

			fmt.Printf("\n✓ Generated %d tasks for week of %s\n\n", len(tasks), weekStart.Format("2006-01-02"))
			for _, task := range tasks {
				fmt.Printf("  %s  %s-%s  %-8s  %s (capacity %d)\n",
					task.Date.Format("Mon 2006-01-02"),
					task.StartTime,
					task.EndTime,
					task.Kind,
					task.Title,
					task.Capacity,
				)
			}
			fmt.Println()

			return nil
		},
	}
}

func nextMonday(from time.Time) time.Time {
	day := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, from.Location())
	offset := (int(time.Monday) - int(day.Weekday()) + 7) % 7
	if offset == 0 {
		offset = 7
	}
	return day.AddDate(0, 0, offset)
}
