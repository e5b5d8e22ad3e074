package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nickyhof/SheetDB"
	"github.com/nickyhof/SheetDB/db"
	"github.com/nickyhof/SheetDB/ps"
)

// Version is set at build time via -ldflags
var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:          "sheetdb-server",
		Short:        "Serve a git-backed SheetDB over TCP",
		Version:      Version,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadConfig(configFile, cmd.Flags())
			if err != nil {
				return err
			}
			return run(cfg)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&configFile, "config", "", "config file (default: ./sheetdb.yaml)")
	flags.Int("port", 3306, "TCP port to listen on")
	flags.String("base-dir", "", "base directory for persistence (memory if empty)")
	flags.String("git-url", "", "git URL to clone on first start")
	flags.String("metrics-addr", "", "address for the Prometheus /metrics endpoint (disabled if empty)")
	return cmd
}

func openPersistence(cfg Config) (*ps.Persistence, error) {
	if cfg.BaseDir == "" {
		return ps.NewMemoryPersistence()
	}
	var gitURL *string
	if cfg.GitURL != "" {
		gitURL = &cfg.GitURL
	}
	return ps.NewFilePersistence(cfg.BaseDir, gitURL)
}

func run(cfg Config) error {
	logger := NewLogger(cfg.Log, os.Stderr)
	slog.SetDefault(logger)

	persistence, err := openPersistence(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize persistence: %w", err)
	}
	if cfg.BaseDir == "" {
		logger.Info("using memory persistence")
	} else {
		logger.Info("using file persistence", "base_dir", cfg.BaseDir)
	}

	instance := SheetDB.Open(persistence, db.WithLogger(logger), db.WithS3Config(cfg.S3))

	opts := []ServerOption{
		WithServerLogger(logger),
		WithAuth(cfg.Auth),
	}
	if cfg.TLS.enabled() {
		tlsConfig, err := LoadTLSConfig(cfg.TLS)
		if err != nil {
			return err
		}
		opts = append(opts, WithTLS(tlsConfig))
	}

	server := NewServer(instance, cfg.Identity.identity(), opts...)
	if err := server.Start(fmt.Sprintf(":%d", cfg.Port)); err != nil {
		return err
	}
	if cfg.MetricsAddr != "" {
		if err := server.ServeMetrics(cfg.MetricsAddr); err != nil {
			server.Stop()
			return err
		}
	}

	fmt.Println()
	fmt.Printf("SheetDB server %s\n", Version)
	fmt.Printf("Listening on port %d\n", cfg.Port)
	fmt.Println(`Send one JSON request per line, e.g. {"op":"tables"}; 'quit' to disconnect`)
	fmt.Println()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutting down")
	if err := server.Stop(); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}
