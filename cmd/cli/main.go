package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/handsofstluke/pantry/cmd/cli/commands"
	"github.com/handsofstluke/pantry/internal/config"
	"github.com/handsofstluke/pantry/pkg/clients/gmailclient"
	"github.com/handsofstluke/pantry/pkg/core/services"
	"github.com/handsofstluke/pantry/pkg/postgres"
	"github.com/handsofstluke/pantry/pkg/utils"
	"github.com/handsofstluke/pantry/pkg/utils/logging"
)

var (
	env string
	app = &commands.AppContext{}
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "pantry",
		Short: "Hands of St. Luke Pantry - volunteer task scheduling",
		Long:  `A CLI for running the pantry scheduling service: publishing pickup and delivery tasks, serving the signup API, and recording completed distributions.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initApp()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if app.DB != nil {
				app.DB.Close()
			}
			if app.Logger != nil {
				app.Logger.Sync()
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&env, "env", "e", "", "Environment (required: test, prod, etc.)")
	rootCmd.MarkPersistentFlagRequired("env")

	rootCmd.AddCommand(commands.ServeCmd(app))
	rootCmd.AddCommand(commands.MigrateCmd(app))
	rootCmd.AddCommand(commands.CreateTaskCmd(app))
	rootCmd.AddCommand(commands.GenerateWeekCmd(app))
	rootCmd.AddCommand(commands.ListTasksCmd(app))
	rootCmd.AddCommand(commands.SeedCmd(app))
	rootCmd.AddCommand(commands.PromoteCmd(app))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// initApp sets up logger, config, database, and the email notifier
func initApp() error {
	logger, err := logging.InitLogger(env)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	app.Logger = logger

	logger.Info("Starting application", zap.String("environment", env))

	cfg, err := config.LoadWithEnv(env)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	app.Cfg = cfg
	logger.Debug("Configuration loaded successfully")

	app.Ctx = context.Background()

	database, err := postgres.NewDB(app.Ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	app.DB = database
	app.Database = database
	logger.Info("Database connection established")

	// Email is optional: without OAuth credentials the service still runs,
	// signup confirmations are just logged instead of sent
	app.Notifier = logOnlyNotifier{logger: logger}
	oauthCfg, err := config.LoadOAuthClientWithEnv(env)
	if err != nil {
		logger.Warn("Gmail disabled, no OAuth client config found", zap.Error(err))
		return nil
	}

	oauthConfig, err := utils.GetOAuthConfig(oauthCfg)
	if err != nil {
		return fmt.Errorf("failed to build OAuth config: %w", err)
	}
	token, err := utils.GetTokenWithFlow(app.Ctx, oauthConfig, env)
	if err != nil {
		return fmt.Errorf("failed to obtain OAuth token: %w", err)
	}

	gmailClient, err := gmailclient.NewClient(app.Ctx, oauthCfg, token, cfg.GmailSender)
	if err != nil {
		return fmt.Errorf("failed to create gmail client: %w", err)
	}
	app.Notifier = gmailClient
	logger.Info("Gmail client initialized")

	return nil
}

// logOnlyNotifier stands in for the gmail client when email is not configured
type logOnlyNotifier struct {
	logger *zap.Logger
}

func (n logOnlyNotifier) Send(recipientEmail string, kind services.TemplateKind, data map[string]string) error {
	n.logger.Info("Email suppressed, gmail not configured",
		zap.String("recipient", recipientEmail),
		zap.String("template", string(kind)))
	return nil
}
