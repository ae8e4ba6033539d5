package commands

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/handsofstluke/pantry/pkg/core/services"
	"github.com/handsofstluke/pantry/pkg/db"
)

// SeedCmd creates the seed command
func SeedCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load starter sources, recipients, and two weeks of tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			existing, err := app.Database.ListSources(app.Ctx)
			if err != nil {
				return fmt.Errorf("failed to check sources: %w", err)
			}
			if len(existing) > 0 {
				fmt.Println("Database already seeded, skipping.")
				return nil
			}

			sources := []db.Source{
				{Name: "FreshMart Grocery", Address: "412 Commerce St", Contact: "manager@freshmart.example", Notes: "Dock B, ask for the duty manager"},
				{Name: "Harvest Bakery", Address: "88 Mill Rd", Contact: "(555) 010-2288"},
				{Name: "Regional Food Bank", Address: "1 Depot Way", Contact: "intake@regionalfb.example"},
			}
			for i := range sources {
				sources[i].ID = uuid.New().String()
				if err := app.Database.InsertSource(app.Ctx, &sources[i]); err != nil {
					return fmt.Errorf("failed to insert source %q: %w", sources[i].Name, err)
				}
			}

			recipients := []db.Recipient{
				{Name: "St. Luke Shelter", Address: "7 Chapel Ln", Contact: "frontdesk@stlukeshelter.example"},
				{Name: "Riverside Seniors Center", Address: "230 River Ave", Contact: "(555) 010-7733", Notes: "Deliveries before 4pm"},
			}
			for i := range recipients {
				recipients[i].ID = uuid.New().String()
				if err := app.Database.InsertRecipient(app.Ctx, &recipients[i]); err != nil {
					return fmt.Errorf("failed to insert recipient %q: %w", recipients[i].Name, err)
				}
			}

			fmt.Printf("✓ Seeded %d sources and %d recipients\n", len(sources), len(recipients))

			// Two weeks of tasks from the configured templates
			total := 0
			weekStart := nextMonday(time.Now())
			for week := 0; week < 2; week++ {
				tasks, err := services.GenerateWeek(app.Ctx, app.Database, app.Cfg, app.Logger, weekStart.AddDate(0, 0, 7*week), cliIdentity())
				if err != nil {
					if errors.Is(err, services.ErrInvalidRequest) {
						app.Logger.Warn("Skipping task generation", zap.Error(err))
						break
					}
					return err
				}
				total += len(tasks)
			}
			if total > 0 {
				fmt.Printf("✓ Generated %d tasks for the next two weeks\n", total)
			}

			return nil
		},
	}
}
