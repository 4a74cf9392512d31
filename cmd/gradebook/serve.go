package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	api "github.com/Hansol916/OSSFinal/internal/api/http"
	auth "github.com/Hansol916/OSSFinal/internal/auth/middleware"
	"github.com/Hansol916/OSSFinal/internal/config"
	"github.com/Hansol916/OSSFinal/internal/db"
	"github.com/Hansol916/OSSFinal/internal/events"
	"github.com/Hansol916/OSSFinal/internal/gradebook"
	"github.com/Hansol916/OSSFinal/internal/metrics"
	"github.com/Hansol916/OSSFinal/internal/storage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return serve(ctx, cfg, newLogger(cfg))
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (default :8080)")
	if err := v.BindPFlag(config.KeyHTTPAddr, serveCmd.Flags().Lookup("addr")); err != nil {
		panic(err)
	}
}

func serve(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	slog.SetDefault(log)
	if err := cfg.CheckSecret(); err != nil {
		log.Warn("using the development signing secret", "err", err)
	}

	// --- DB ---
	openCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	dbh, err := db.Open(openCtx, cfg.DBDriver, cfg.DBDSN)
	cancel()
	if err != nil {
		return fmt.Errorf("db open failed: %w", err)
	}
	defer dbh.Close()
	store := gradebook.NewSQLStore(dbh)

	// --- Events ---
	var pub events.Publisher
	if cfg.NATSURL != "" {
		nc, err := events.ConnectNATS(cfg.NATSURL)
		if err != nil {
			return err
		}
		defer nc.Close()
		pub = nc
		log.Info("publishing events to nats", "url", cfg.NATSURL)
	}
	recorder := events.NewRecorder(events.NewEventRepo(dbh), pub, cfg.SiteID, log)

	m := metrics.New()
	svc := gradebook.NewService(store,
		gradebook.WithDefaultRelative(cfg.DefaultRelative),
		gradebook.WithNotifier(recorder),
		gradebook.WithObserver(m),
		gradebook.WithLogger(log),
	)

	bs, err := storage.NewFSStore(cfg.BlobBasePath)
	if err != nil {
		return fmt.Errorf("blob store: %w", err)
	}

	h := api.NewRouter(api.Deps{
		Service:     svc,
		Auth:        auth.NewAuthService(cfg.AuthSecret, cfg.TokenTTL),
		Users:       store,
		Blobs:       bs,
		Events:      recorder,
		Metrics:     m,
		CORSOrigins: cfg.CORSOrigins,
		Ready:       dbh.PingContext,
		AccessLog:   true,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", cfg.HTTPAddr, "db", cfg.DBDriver)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	log.Info("shutting down")
	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutCtx)
}
