package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	api "github.com/mind-engage/mindengage-quiz/internal/api/http"
	auth "github.com/mind-engage/mindengage-quiz/internal/auth/middleware"
	"github.com/mind-engage/mindengage-quiz/internal/bank"
	"github.com/mind-engage/mindengage-quiz/internal/config"
	"github.com/mind-engage/mindengage-quiz/internal/db"
	"github.com/mind-engage/mindengage-quiz/internal/exam"
	"github.com/mind-engage/mindengage-quiz/internal/grading"
	"github.com/mind-engage/mindengage-quiz/internal/logging"
	"github.com/mind-engage/mindengage-quiz/internal/metrics"
	"github.com/mind-engage/mindengage-quiz/internal/ratelimit"
	"github.com/mind-engage/mindengage-quiz/internal/results"
	syncx "github.com/mind-engage/mindengage-quiz/internal/sync"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "quizd",
		Short:        "Quiz platform API server",
		SilenceUsage: true,
	}
	config.RegisterFlags(root.PersistentFlags())

	serve := serveCmd()
	root.AddCommand(serve, importCmd(), statsCmd(), eventsCmd())
	// bare `quizd` serves
	root.RunE = serve.RunE
	return root
}

// app holds what every subcommand needs.
type app struct {
	cfg   config.Config
	log   *zap.Logger
	db    *sql.DB
	store *exam.SQLStore
}

func setup(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return nil, err
	}
	log, err := logging.New(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, File: cfg.LogFile})
	if err != nil {
		return nil, err
	}
	if cfg.ConfigFile != "" {
		log.Info("loaded config file", zap.String("path", cfg.ConfigFile))
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	defer cancel()
	dbh, err := db.Open(ctx, cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return &app{cfg: cfg, log: log, db: dbh, store: exam.NewSQLStore(dbh, string(cfg.DBDriver))}, nil
}

func (a *app) close() {
	_ = a.db.Close()
	_ = a.log.Sync()
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := setup(cmd)
			if err != nil {
				return err
			}
			defer a.close()
			return a.serve(cmd.Context())
		},
	}
}

func (a *app) serve(parent context.Context) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if a.cfg.InsecureSecret() {
		a.log.Warn("using the built-in development auth secret; set AUTH_SECRET in production")
	}

	engine := grading.NewEngine(a.cfg.PassPercentage)
	m := metrics.New()
	limiter := ratelimit.New(a.cfg.AuthRate, a.cfg.AuthBurst)
	go limiter.Run(ctx)

	authSvc := auth.NewAuthService(a.cfg.AuthSecret, a.cfg.TokenTTL)
	handler := api.NewRouter(api.Deps{
		Store:    a.store,
		Auth:     authSvc,
		Accounts: auth.NewAccounts(a.store, authSvc, a.log.Named("accounts")),
		Tests:    exam.NewService(a.store, a.log.Named("tests")),
		Results: results.NewService(a.store, engine,
			results.WithEventSink(syncx.NewEventRepo(a.db, "")),
			results.WithObserver(m),
			results.WithLogger(a.log.Named("results"))),
		Metrics:     m,
		AuthLimiter: limiter,
		Logger:      a.log.Named("http"),
		CORSOrigins: a.cfg.CORSOrigins,
		TrustProxy:  a.cfg.TrustProxy,
	})

	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	a.log.Info("listening",
		zap.String("addr", a.cfg.HTTPAddr),
		zap.String("db", string(a.cfg.DBDriver)),
		zap.Int("pass_percentage", engine.PassPercentage()))

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	a.log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Import tests and questions from a YAML bank",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			fh, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer fh.Close()
			f, err := bank.Parse(fh)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			rep, err := bank.Import(cmd.Context(), a.store, exam.NewService(a.store, a.log.Named("tests")), f)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			a.log.Info("bank imported", zap.String("file", args[0]), zap.Int("tests", rep.Tests), zap.Int("questions", rep.Questions))
			return printJSON(cmd, rep)
		},
	}
}

func statsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print result statistics for one test",
		RunE: func(cmd *cobra.Command, _ []string) error {
			testID, _ := cmd.Flags().GetInt64("test-id")
			a, err := setup(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			svc := results.NewService(a.store, grading.NewEngine(a.cfg.PassPercentage), results.WithLogger(a.log))
			st, err := svc.TestStatistics(cmd.Context(), testID)
			if err != nil {
				return err
			}
			return printJSON(cmd, st)
		},
	}
	cmd.Flags().Int64("test-id", 0, "test to summarize (required)")
	_ = cmd.MarkFlagRequired("test-id")
	return cmd
}

func eventsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Print event_log entries after an offset, oldest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			since, _ := cmd.Flags().GetInt64("since")
			limit, _ := cmd.Flags().GetInt("limit")
			a, err := setup(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			events, err := syncx.NewEventRepo(a.db, "").Since(cmd.Context(), since, limit)
			if err != nil {
				return err
			}
			if events == nil {
				events = []syncx.Event{}
			}
			return printJSON(cmd, events)
		},
	}
	cmd.Flags().Int64("since", 0, "only events with a larger offset")
	cmd.Flags().Int("limit", 100, "maximum number of events (at most 1000)")
	return cmd
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
