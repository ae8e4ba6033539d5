package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/handsofstluke/pantry/pkg/core/services"
	"github.com/handsofstluke/pantry/pkg/db"
)

// CreateTaskCmd creates the createTask command
func CreateTaskCmd(app *AppContext) *cobra.Command {
	var req services.CreateTaskRequest
	var kind string

	cmd := &cobra.Command{
		Use:   "createTask",
		Short: "Publish a single pickup or delivery task",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req.Kind = db.TaskKind(kind)

			task, err := services.CreateTask(app.Ctx, app.Database, app.Logger, req, cliIdentity())
			if err != nil {
				return err
			}

			fmt.Printf("\n✓ Task created!\n\n")
			fmt.Printf("Task ID:  %s\n", task.ID)
			fmt.Printf("Title:    %s\n", task.Title)
			fmt.Printf("Date:     %s %s-%s\n", task.Date.Format("2006-01-02"), task.StartTime, task.EndTime)
			fmt.Printf("Kind:     %s\n", task.Kind)
			fmt.Printf("Capacity: %d\n\n", task.Capacity)

			return nil
		},
	}

	cmd.Flags().StringVar(&req.Title, "title", "", "Task title")
	cmd.Flags().StringVar(&req.Date, "date", "", "Task date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&req.StartTime, "start", "", "Start time (HH:MM)")
	cmd.Flags().StringVar(&req.EndTime, "end", "", "End time (HH:MM)")
	cmd.Flags().StringVar(&kind, "kind", "", "Task kind (PICKUP or DELIVERY)")
	cmd.Flags().StringVar(&req.SourceID, "source", "", "Source ID (pickups)")
	cmd.Flags().StringVar(&req.RecipientID, "recipient", "", "Recipient ID (deliveries)")
	cmd.Flags().IntVar(&req.Capacity, "capacity", 1, "Number of volunteer spots")
	cmd.Flags().StringVar(&req.Notes, "notes", "", "Notes for volunteers")
	cmd.MarkFlagRequired("title")
	cmd.MarkFlagRequired("date")
	cmd.MarkFlagRequired("start")
	cmd.MarkFlagRequired("end")
	cmd.MarkFlagRequired("kind")

	return cmd
}
