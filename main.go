package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"aeternum/auth"
	"aeternum/config"
	"aeternum/controllers"
	"aeternum/db"
	"aeternum/jobs"
	"aeternum/logging"
	"aeternum/migrations"
	"aeternum/repository"
	"aeternum/server"
	"aeternum/services"
	"aeternum/util"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var startServer = runServer

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "aeternum",
		Short:        "Hospital operations backend",
		SilenceUsage: true,
	}
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedCmd())
	rootCmd.AddCommand(reconcileCmd())
	return rootCmd
}

func loadConfig() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	return cfg, logging.Setup(cfg.Env, cfg.LogLevel), nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			return startServer(cmd.Context(), cfg, logger)
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply data backfills",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}
			return withDatabase(cmd.Context(), cfg, func(ctx context.Context, database *db.Database) error {
				return migrations.Run(ctx, database.DB)
			})
		},
	}
}

func seedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create the admin user and the starter fleet",
		RunE: func(cmd *cobra.Command, args []string) error {
			email, _ := cmd.Flags().GetString("admin-email")
			password, _ := cmd.Flags().GetString("admin-password")
			name, _ := cmd.Flags().GetString("admin-name")
			if email == "" || password == "" {
				return fmt.Errorf("--admin-email and --admin-password are required")
			}

			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}
			return withDatabase(cmd.Context(), cfg, func(ctx context.Context, database *db.Database) error {
				users := services.NewUserService(repository.NewUserRepo(database.Collection(util.UserCollection)), cfg.BcryptCost)
				created, err := users.EnsureAdmin(ctx, email, password, name)
				if err != nil {
					return err
				}
				n, err := jobs.SeedFleet(ctx, repository.NewAmbulanceRepo(database.Collection(util.AmbulanceCollection)), jobs.StarterFleet)
				if err != nil {
					return err
				}
				log.Info().Bool("adminCreated", created).Int("ambulances", n).Msg("Seed complete")
				return nil
			})
		},
	}
	cmd.Flags().String("admin-email", "", "Admin account email")
	cmd.Flags().String("admin-password", "", "Admin account password")
	cmd.Flags().String("admin-name", "Administrator", "Admin display name")
	return cmd
}

func reconcileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Dispatch pending calls and release stranded ambulances once",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}
			return withDatabase(cmd.Context(), cfg, func(ctx context.Context, database *db.Database) error {
				dispatch := newDispatchService(database)
				jobs.RunReconcile(ctx, dispatch, cfg.StrandedGrace)
				jobs.RunPendingDispatch(ctx, dispatch, cfg.DispatchBatch)
				return nil
			})
		},
	}
}

func withDatabase(ctx context.Context, cfg *config.Config, fn func(context.Context, *db.Database) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	database, err := db.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase, cfg.MongoConnectTimeout)
	if err != nil {
		log.Error().Err(err).Msg(util.DB_CONNECTION_FAILED)
		return err
	}
	defer func() {
		if err := database.Disconnect(context.Background()); err != nil {
			log.Error().Err(err).Msg("Error disconnecting from mongo")
		}
	}()
	return fn(ctx, database)
}

func newDispatchService(database *db.Database) *services.DispatchService {
	return services.NewDispatchService(
		repository.NewAmbulanceRepo(database.Collection(util.AmbulanceCollection)),
		repository.NewEmergencyCallRepo(database.Collection(util.EmergencyCallCollection)),
	)
}

/*
* Connect to mongo and make sure the indexes exist
* Wire repositories, services and handlers
* Start the cron jobs when enabled
* Serve until SIGINT or SIGTERM
 */
func runServer(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return withDatabase(ctx, cfg, func(ctx context.Context, database *db.Database) error {
		if err := database.EnsureIndexes(ctx); err != nil {
			return err
		}

		ambulances := repository.NewAmbulanceRepo(database.Collection(util.AmbulanceCollection))
		users := repository.NewUserRepo(database.Collection(util.UserCollection))
		dispatch := newDispatchService(database)

		h := &controllers.Handlers{
			Ambulances:   services.NewAmbulanceService(ambulances),
			Appointments: services.NewAppointmentService(repository.NewAppointmentRepo(database.Collection(util.AppointmentCollection)), users),
			Dispatch:     dispatch,
			Users:        services.NewUserService(users, cfg.BcryptCost),
			Tokens:       auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.SessionTTL),
			Diagnostics:  database,
			Cookie:       controllers.SessionCookie{Name: cfg.SessionCookie, Secure: cfg.CookieSecure},
		}

		if cfg.JobsEnabled {
			scheduler, err := jobs.StartScheduler(dispatch, jobs.Schedule{
				DispatchSpec:  cfg.DispatchSchedule,
				ReconcileSpec: cfg.ReconcileSchedule,
				Batch:         cfg.DispatchBatch,
				Grace:         cfg.StrandedGrace,
			})
			if err != nil {
				return fmt.Errorf("start scheduler: %w", err)
			}
			defer func() { <-scheduler.Stop().Done() }()
		}

		return server.Run(ctx, ":"+cfg.Port, server.NewEngine(cfg, logger, h), cfg.ShutdownTimeout)
	})
}
