package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/valyala/fasthttp"

	"keyrelay/internal/http/handlers"
	"keyrelay/internal/publish"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if !a.cfg.AdminSecret.IsSet() {
		slog.Warn("APP_LOGIN_PASSWD is not set; key management routes will reject every request")
	}
	if !a.cfg.PublishSecret.IsSet() {
		slog.Warn("APP_PUBLISH_PASSWORD is not set; /publish-multi will reject every request")
	}

	pub := publish.NewPublisher(publish.NewClient(), publish.Endpoints{
		DevTo:  a.cfg.DevToBaseURL,
		Medium: a.cfg.MediumBaseURL,
	})

	handler := handlers.Handler(handlers.Deps{
		Config:    a.cfg,
		Store:     a.hs,
		Keys:      a.keys,
		MediaKeys: a.mediaKeys,
		Publisher: pub,
		Metrics:   handlers.InitPrometheusMetrics(prometheus.DefaultRegisterer),
		Gatherer:  prometheus.DefaultGatherer,
	})

	srv := &fasthttp.Server{
		Handler: handler,
		Name:    "keyrelay",
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("keyrelay listening", "addr", a.cfg.ListenAddr, "store", a.cfg.StoreDriver)
		errCh <- srv.ListenAndServe(a.cfg.ListenAddr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.ShutdownWithContext(shutdownCtx)
}
