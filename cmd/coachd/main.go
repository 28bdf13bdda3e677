package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/meetsense/coachd/internal/admin"
	"github.com/meetsense/coachd/internal/analysis"
	"github.com/meetsense/coachd/internal/auth"
	"github.com/meetsense/coachd/internal/config"
	"github.com/meetsense/coachd/internal/gateway"
	"github.com/meetsense/coachd/internal/ingest"
	"github.com/meetsense/coachd/internal/models"
	"github.com/meetsense/coachd/internal/nlp"
	"github.com/meetsense/coachd/internal/session"
	"github.com/meetsense/coachd/internal/store"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		logrus.Fatal(err)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "coachd",
		Short: "Real-time conversation coaching engine",
	}
	root.AddCommand(serveCmd())
	return root
}

func serveCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the coaching engine",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configPath)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to config file")
	return cmd
}

func runServe(configPath string) error {
	if err := godotenv.Load(); err != nil {
		logrus.Debug("no .env file found; using system environment")
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log := logrus.New()
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()
	st := store.NewRedis(rdb, cfg.Analysis.WindowSize)

	pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	if err := st.Ping(pingCtx); err != nil {
		// Degraded start: health reports it, new sessions will fail
		// until the store comes back.
		log.WithError(err).Warn("session store unreachable at startup")
	}
	cancel()

	registry := session.NewRegistry(log)
	sink := func(sessionID string, events []models.Event) {
		for _, event := range events {
			registry.Broadcast(sessionID, event)
		}
	}

	nlpClient := nlp.NewClient(cfg.NLP.URL, cfg.NLPTimeout())
	analyzers := []analysis.Analyzer{
		analysis.NewTalkTime(),
		analysis.NewPatterns(),
		analysis.NewWatcher(),
		analysis.NewSentiment(nlpClient),
	}
	dispatcher := analysis.NewDispatcher(st, analyzers, cfg.Debounce(), sink, log)
	suggester := analysis.NewSuggester(st, nlpClient, sink, log)

	manager := session.NewManager(session.ManagerOpts{
		Store: st,
		ConfigTemplate: models.SessionConfig{
			Analyzers:          cfg.Analysis.Enabled,
			Competitors:        cfg.Analysis.Competitors,
			ObjectionKeywords:  cfg.Analysis.ObjectionKeywords,
			MonologueThreshold: cfg.Analysis.MonologueThreshold,
			DominancePercent:   cfg.Analysis.DominancePercent,
		},
		GraceWindow:   cfg.GraceWindow(),
		SessionTTL:    cfg.SessionTTL(),
		SweepSchedule: cfg.Sessions.SweepSchedule,
		SweepHook: func(sessionID string) {
			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			dispatcher.Run(ctx, sessionID)
			suggester.Run(ctx, sessionID)
		},
		Log: log,
	})

	pipeline := ingest.New(st, dispatcher, registry, log)
	gw := gateway.New(auth.NewVerifier(cfg.Auth.JWTSecret), manager, registry, pipeline, log)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws/coaching", gw.HandleCoaching)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := admin.Start(ctx, admin.StartOpts{
			Store:   st,
			Manager: manager,
			Addr:    cfg.Server.AdminAddr,
		}); err != nil {
			log.WithError(err).Error("admin server failed")
		}
	}()

	srv := &http.Server{Addr: cfg.Server.ListenAddr, Handler: mux}
	go func() {
		<-ctx.Done()
		manager.SetAccepting(false)
		dispatcher.Stop()
		manager.Stop()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	manager.Start()
	manager.SetAccepting(true)
	log.WithFields(logrus.Fields{
		"listen": cfg.Server.ListenAddr,
		"admin":  cfg.Server.AdminAddr,
	}).Info("coachd started")

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
