// Package cli wires configuration, storage and services into the keyrelay
// command line.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"keyrelay/internal/config"
	"keyrelay/internal/logging"
	"keyrelay/internal/service"
	"keyrelay/internal/store"
	"keyrelay/internal/token"
)

// NewRootCmd builds the command tree. Running it without a subcommand
// starts the server.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "keyrelay",
		Short: "API key management and article publishing relay",
		Long: `keyrelay issues API keys, stores per-key third-party credentials and
publishes articles to dev.to and Medium on behalf of key holders.`,
		SilenceUsage: true,
		RunE:         runServe,
	}
	root.CompletionOptions.DisableDefaultCmd = true

	root.AddCommand(newServeCmd(), newKeysCmd())
	return root
}

// Execute runs the root command. It is called by main.main.
func Execute() {
	_ = godotenv.Load()
	if err := NewRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app holds what every command needs: configuration, the open store and
// the services built on it.
type app struct {
	cfg       *config.Config
	hs        store.HashStore
	keys      *service.Keys
	mediaKeys *service.MediaKeys
}

func openApp(ctx context.Context) (*app, error) {
	cfg := config.Load()
	logging.Init(cfg)

	codec, err := token.NewCodec(cfg.JWTSecret)
	if err != nil {
		return nil, fmt.Errorf("APP_JWT_SECRET: %w", err)
	}

	hs, err := store.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", cfg.StoreDriver, err)
	}

	return &app{
		cfg:       cfg,
		hs:        hs,
		keys:      service.NewKeys(store.NewKeyStore(hs), codec),
		mediaKeys: service.NewMediaKeys(store.NewMediaKeyStore(hs)),
	}, nil
}

func (a *app) Close() error {
	return a.hs.Close()
}
