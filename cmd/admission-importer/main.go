package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ehr/admissions/internal/config"
	"github.com/ehr/admissions/internal/domain/admission"
	"github.com/ehr/admissions/internal/domain/contact"
	"github.com/ehr/admissions/internal/domain/rulelog"
	"github.com/ehr/admissions/internal/domain/runstatus"
	"github.com/ehr/admissions/internal/pipeline"
	"github.com/ehr/admissions/internal/platform/db"
	"github.com/ehr/admissions/internal/platform/middleware"
	"github.com/ehr/admissions/internal/platform/notification"
	"github.com/ehr/admissions/internal/platform/registry"
	"github.com/ehr/admissions/internal/platform/scheduling"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "admission-importer",
		Short: "Hospital contact to admission importer",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run scheduled imports and the status API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one import and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			patients, _ := cmd.Flags().GetStringSlice("patient")
			return runOnce(patients)
		},
	}
	cmd.Flags().StringSlice("patient", nil, "Limit the run to these patient identifiers")
	return cmd
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	// migrate up
	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			count, err := migrator.Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	// migrate status
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			statuses, err := migrator.Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			fmt.Println("---------- ---------------------------------------- ---------- --------------------")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	return cmd
}

func newLogger() zerolog.Logger {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return logger
}

// importer bundles everything one import run needs.
type importer struct {
	runner    *pipeline.Runner
	runs      runstatus.Repository
	collector *notification.CodeCollector
	alerter   *notification.Alerter
	log       zerolog.Logger
}

func buildImporter(cfg *config.Config, pool *pgxpool.Pool, logger zerolog.Logger) *importer {
	contacts := contact.NewRepo(pool)
	admissions := admission.NewRepo(pool)
	errlog := rulelog.NewRepo(pool)
	runs := runstatus.NewRepo(pool)

	pcfg := pipeline.Config{
		SameHospitalGap:      cfg.SameHospitalGap(),
		OtherHospitalGap:     cfg.OtherHospitalGap(),
		MaxExtension:         cfg.MaxExtension(),
		SentinelHospitalCode: cfg.SentinelHospitalCode,
		KnownDiagnosisTypes:  cfg.DiagnosisTypeSet(),
		KnownProcedureTypes:  cfg.ProcedureTypeSet(),
		Workers:              cfg.Workers,
	}

	var resolver pipeline.InitialsResolver
	if cfg.RegistryBaseURL != "" {
		resolver = registry.NewClient(cfg.RegistryBaseURL, cfg.RegistryTimeout())
	} else if pcfg.SentinelHospitalCode != "" {
		logger.Warn().Msg("REGISTRY_BASE_URL not set; sentinel hospital codes will keep their raw value")
		pcfg.SentinelHospitalCode = ""
	}

	runner := pipeline.NewRunner(contacts, admissions, errlog, resolver, pcfg, logger)

	imp := &importer{runner: runner, runs: runs, log: logger}

	collector := notification.NewCodeCollector()
	runner.SetCodeAlerter(collector)
	imp.collector = collector

	if cfg.SMTPHost != "" && len(cfg.Recipients()) > 0 {
		sender := &notification.SMTPSender{
			Host: cfg.SMTPHost,
			Port: cfg.SMTPPort,
			From: cfg.SMTPFrom,
		}
		imp.alerter = notification.NewAlerter(sender, cfg.Recipients(), logger)
	} else {
		logger.Info().Msg("mail alerts disabled; unknown codes are only logged")
	}

	return imp
}

// execute runs one import, bracketed by an import_run row.
func (imp *importer) execute(ctx context.Context, patients []string) error {
	run := &runstatus.Run{
		ID:        uuid.New(),
		StartedAt: time.Now().UTC(),
		Outcome:   runstatus.OutcomeRunning,
	}
	if err := imp.runs.Begin(ctx, run); err != nil {
		return fmt.Errorf("record run start: %w", err)
	}

	var st *pipeline.Stats
	var runErr error
	if len(patients) > 0 {
		st = imp.runner.RunPatients(ctx, patients)
	} else {
		st, runErr = imp.runner.Run(ctx)
	}

	ended := time.Now().UTC()
	run.EndedAt = &ended
	run.Outcome = runstatus.OutcomeCompleted
	if runErr != nil {
		run.Outcome = runstatus.OutcomeFailed
		msg := runErr.Error()
		run.Error = &msg
	}
	if st != nil {
		run.PatientsProcessed = st.PatientsProcessed
		run.PatientsAborted = st.PatientsAborted
		run.ContactsSeen = st.ContactsSeen
		run.ContactsFailed = st.ContactsFailed
		run.AdmissionsCreated = st.AdmissionsCreated
		imp.log.Info().
			Int("patients_processed", st.PatientsProcessed).
			Int("patients_aborted", st.PatientsAborted).
			Int("contacts_seen", st.ContactsSeen).
			Int("contacts_failed", st.ContactsFailed).
			Int("admissions_created", st.AdmissionsCreated).
			Str("outcome", run.Outcome).
			Msg("import run done")
	}

	if err := imp.runs.Finish(ctx, run); err != nil {
		imp.log.Error().Err(err).Str("run_id", run.ID.String()).Msg("record run end failed")
	}

	if imp.alerter != nil {
		imp.alerter.SendUnknownCodeReport(ctx, imp.collector)
	}
	return runErr
}

func runOnce(patients []string) error {
	logger := newLogger()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return err
	}
	defer pool.Close()

	imp := buildImporter(cfg, pool, logger)
	return imp.execute(ctx, patients)
}

func runServer() error {
	logger := newLogger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	imp := buildImporter(cfg, pool, logger)

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))

	e.GET("/health", db.HealthHandler(pool))
	runstatus.NewHandler(runstatus.NewRepo(pool)).RegisterRoutes(e)

	// Scheduler
	schedCtx, schedCancel := context.WithCancel(ctx)
	defer schedCancel()
	sched := scheduling.NewInterval(cfg.ImportInterval(), func(ctx context.Context) error {
		return imp.execute(ctx, nil)
	}, logger)
	schedDone := make(chan struct{})
	go func() {
		sched.Start(schedCtx)
		close(schedDone)
	}()

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down")
	schedCancel()
	<-schedDone

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("stopped")
	return nil
}
