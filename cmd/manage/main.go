package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"cycletracker/internal/app"
	"cycletracker/internal/config"
	"cycletracker/internal/db"
	apperrors "cycletracker/internal/errors"
	"cycletracker/internal/logging"
	"cycletracker/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "manage",
		Short:        "Cycle tracker maintenance commands",
		SilenceUsage: true,
	}
	root.AddCommand(newMigrateCmd(), newCreateAdminCmd())
	return root
}

func setup() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("load config: %w", err)
	}
	return cfg, logging.New(cfg.AppName, cfg.AppEnv, cfg.LogLevel), nil
}

func newMigrateCmd() *cobra.Command {
	var reset bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			cfg.ResetDB = cfg.ResetDB || reset

			gormDB, err := app.OpenDatabase(cfg, log)
			if err != nil {
				return err
			}
			defer db.Close(gormDB)

			log.Info().Str("driver", cfg.DBDriver).Bool("reset", cfg.ResetDB).Msg("schema migrated")
			return nil
		},
	}
	cmd.Flags().BoolVar(&reset, "reset", false, "drop all tables before migrating")
	return cmd
}

func newCreateAdminCmd() *cobra.Command {
	var in service.CreateUserInput
	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create a superuser account",
		Long: `Creates an active superuser. The API can only grant the superuser
flag to an existing admin, so the first one is bootstrapped here.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}

			gormDB, err := app.OpenDatabase(cfg, log)
			if err != nil {
				return err
			}
			defer db.Close(gormDB)

			in.IsSuperuser = true
			user, err := app.NewUserService(cfg, gormDB, nil).Create(cmd.Context(), in)
			if errors.Is(err, apperrors.ErrDuplicateEmail) {
				return fmt.Errorf("%s: %w", in.Email, err)
			}
			if err != nil {
				return err
			}

			log.Info().Str("user_id", user.ID.String()).Str("email", user.Email).Msg("superuser created")
			return nil
		},
	}
	cmd.Flags().StringVar(&in.Email, "email", "", "admin email")
	cmd.Flags().StringVar(&in.Password, "password", "", "admin password")
	cmd.Flags().StringVar(&in.FirstName, "first-name", "Admin", "first name")
	cmd.Flags().StringVar(&in.LastName, "last-name", "User", "last name")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}
