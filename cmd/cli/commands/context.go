package commands

import (
	"context"

	"go.uber.org/zap"

	"github.com/handsofstluke/pantry/internal/config"
	"github.com/handsofstluke/pantry/pkg/core/services"
	"github.com/handsofstluke/pantry/pkg/db"
	"github.com/handsofstluke/pantry/pkg/postgres"
)

// AppContext holds the application dependencies shared across all commands.
// Fields are populated by the root command's PersistentPreRunE, so command
// constructors must not dereference them until RunE executes.
type AppContext struct {
	Cfg      *config.Config
	DB       *postgres.DB
	Database db.Database
	Notifier services.Notifier
	Logger   *zap.Logger
	Ctx      context.Context
}

// cliIdentity is the operator identity used for admin operations invoked
// from the command line
func cliIdentity() services.Identity {
	return services.Identity{Email: "operator@cli", Role: db.RoleAdmin}
}
