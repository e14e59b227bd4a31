package main

import (
	"context"
	"fmt"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"job-portal/config"
	"job-portal/internal/database"
	"job-portal/internal/jobs"
	"job-portal/pkg/logger"
)

var rootCmd = &cobra.Command{
	Use:   "jobctl",
	Short: "jobctl - operator tool for the job portal",
	Long: `jobctl runs maintenance tasks against the job portal database.

It reads the same .env file and environment as the API server.

Examples:
  jobctl seed                         # Create the admin account and test data
  jobctl expire                       # Persist the expired status on lapsed offers
  jobctl create-staff alice -e a@x.io # Create a staff account
  jobctl ban bob                      # Ban a user as the admin account
  jobctl ban bob --unban              # Lift the ban`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(expireCmd)
	rootCmd.AddCommand(createStaffCmd)
	rootCmd.AddCommand(banCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// app holds the wiring shared by every subcommand.
type app struct {
	cfg    *config.Config
	db     *gorm.DB
	repo   *database.Repository
	svc    *jobs.Service
	seeder *database.Seeder
	logger *zap.Logger
}

func newApp(cfg *config.Config, db *gorm.DB, log *zap.Logger) *app {
	repo := database.NewRepository(db, jobs.SystemClock)
	svc := jobs.NewService(repo, jobs.SystemClock, jobs.LogReporter{Logger: log.Named("events")}, log)
	return &app{
		cfg:    cfg,
		db:     db,
		repo:   repo,
		svc:    svc,
		seeder: database.NewSeeder(svc, repo, log),
		logger: log,
	}
}

// withApp loads configuration, opens the database and hands the wired app
// to fn. The connection is closed when fn returns.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	cfg, err := config.Load()
	if err != nil {
		return errors.Wrap(err, "load configuration")
	}

	log, err := logger.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Sync(log)

	db, err := database.Connect(cfg, log)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer func() {
		if err := database.Close(db); err != nil {
			log.Error("Failed to close database connection", zap.Error(err))
		}
	}()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return fn(ctx, newApp(cfg, db, log))
}
