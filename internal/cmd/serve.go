package cmd

import (
	"context"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/fulmenhq/gofulmen/signals"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/asklens/asklens/internal/ailink"
	"github.com/asklens/asklens/internal/config"
	"github.com/asklens/asklens/internal/core/answer"
	"github.com/asklens/asklens/internal/core/search"
	errwrap "github.com/asklens/asklens/internal/errors"
	"github.com/asklens/asklens/internal/observability"
	"github.com/asklens/asklens/internal/server"
	"github.com/asklens/asklens/internal/server/handlers"
)

var (
	serverPort int
	serverHost string
)

// signalHealthChecker implements HealthChecker for signal system
type signalHealthChecker struct{}

func (s signalHealthChecker) CheckHealth(ctx context.Context) error {
	// Signal handlers are registered and ready
	return nil
}

// telemetryHealthChecker ensures telemetry system and exporter are available
type telemetryHealthChecker struct{}

func (telemetryHealthChecker) CheckHealth(ctx context.Context) error {
	if observability.TelemetrySystem == nil || observability.PrometheusExporter == nil {
		return errwrap.NewInternalError("telemetry system not initialized")
	}
	return nil
}

// identityHealthChecker validates app identity metadata
type identityHealthChecker struct {
	binaryName string
	envPrefix  string
	configName string
}

func (i identityHealthChecker) CheckHealth(ctx context.Context) error {
	switch {
	case i.binaryName == "":
		return errwrap.NewConfigInvalidError("app identity missing binary name")
	case i.envPrefix == "":
		return errwrap.NewConfigInvalidError("app identity missing env prefix")
	case i.configName == "":
		return errwrap.NewConfigInvalidError("app identity missing config name")
	}
	return nil
}

// providerHealthChecker verifies a completion provider is configured.
type providerHealthChecker struct {
	cfg ailink.Config
}

func (p providerHealthChecker) CheckHealth(ctx context.Context) error {
	if len(p.cfg.Providers) == 0 {
		return errwrap.NewConfigInvalidError("no completion provider configured")
	}
	return nil
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the HTTP server with graceful shutdown support.

Signal Handling:
  • Ctrl+C (SIGINT) or SIGTERM: Graceful shutdown
  • Ctrl+C twice within 2s: Force quit
  • SIGHUP: Config reload (placeholder - restart recommended)

The server will cleanly shut down the HTTP server and flush logs on shutdown.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Get app identity for telemetry namespace
		identity := GetAppIdentity()
		namespace := identity.TelemetryNamespace()

		// Initialize server logger with namespace
		logLevel := viper.GetString("logging.level")
		observability.InitServerLogger(identity.BinaryName, logLevel, namespace)

		metricsPort := viper.GetInt("metrics.port")
		if metricsPort == 0 {
			metricsPort = 9090
		}

		// Initialize metrics with namespace
		if err := observability.InitMetrics(identity.BinaryName, metricsPort, namespace); err != nil {
			observability.ServerLogger.Error("Failed to initialize metrics",
				zap.Error(err))
			return errwrap.WrapInternal(cmd.Context(), err, "metrics initialization failed")
		}

		cfg, err := config.Load(cmd.Context())
		if err != nil {
			return errwrap.WrapConfigInvalid(cmd.Context(), err, "config load failed")
		}
		applyEnvCredentialFallbacks(cfg)

		// Flags win over config when explicitly set.
		if !cmd.Flags().Changed("host") && cfg.Server.Host != "" {
			serverHost = cfg.Server.Host
		}
		if !cmd.Flags().Changed("port") && cfg.Server.Port != 0 {
			serverPort = cfg.Server.Port
		}

		observability.ServerLogger.Info("Initializing server",
			zap.String("service", identity.BinaryName),
			zap.String("namespace", namespace),
			zap.String("version", versionInfo.Version),
			zap.String("host", serverHost),
			zap.Int("port", serverPort),
			zap.Int("metrics_port", metricsPort))

		pipeline, err := buildAnswerPipeline(cfg)
		if err != nil {
			return errwrap.WrapConfigInvalid(cmd.Context(), err, "answer pipeline setup failed")
		}

		// Initialize health manager
		handlers.InitHealthManager(versionInfo.Version)
		hm := handlers.GetHealthManager()
		hm.RegisterChecker("signal_handlers", signalHealthChecker{})
		hm.RegisterChecker("telemetry", telemetryHealthChecker{})
		hm.RegisterChecker("completion_provider", providerHealthChecker{cfg: cfg.AILink})
		hm.RegisterChecker("app_identity", identityHealthChecker{
			binaryName: identity.BinaryName,
			envPrefix:  identity.EnvPrefix,
			configName: identity.ConfigName,
		})

		// Create server
		srv := server.New(serverHost, serverPort, pipeline)
		if cfg.Server.ReadTimeout > 0 {
			srv.ReadTimeout = cfg.Server.ReadTimeout
		}
		if cfg.Server.IdleTimeout > 0 {
			srv.IdleTimeout = cfg.Server.IdleTimeout
		}
		// Zero is the default here: a write timeout would cap answer stream length.
		srv.WriteTimeout = cfg.Server.WriteTimeout

		// Set app identity for handlers
		handlers.SetAppIdentity(identity)

		// Get shutdown timeout from config
		shutdownTimeout := viper.GetDuration("server.shutdown_timeout")
		if shutdownTimeout == 0 {
			shutdownTimeout = 10 * time.Second
		}

		// Register graceful shutdown handlers (LIFO order - last registered, first executed)
		// Handler 1: Flush logger (executed last)
		signals.OnShutdown(func(ctx context.Context) error {
			observability.ServerLogger.Info("Flushing logger...")
			if err := observability.ServerLogger.Sync(); err != nil {
				// Sync errors are often benign (stdout/stderr already closed)
				observability.ServerLogger.Warn("Logger sync returned error (may be benign)",
					zap.Error(err))
			}
			return nil
		})

		// Handler 2: Shutdown HTTP server (executed first)
		signals.OnShutdown(func(ctx context.Context) error {
			observability.ServerLogger.Info("Shutting down HTTP server...")
			shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				return errwrap.WrapInternal(ctx, err, "server shutdown failed")
			}

			observability.ServerLogger.Info("HTTP server stopped gracefully")
			return nil
		})

		// Register config reload handler (SIGHUP)
		signals.OnReload(func(ctx context.Context) error {
			observability.ServerLogger.Info("Received SIGHUP: attempting config reload")

			// Attempt to reload configuration
			if err := viper.ReadInConfig(); err != nil {
				if _, ok := err.(viper.ConfigFileNotFoundError); ok {
					observability.ServerLogger.Info("No config file found - using defaults and environment variables")
					return nil
				}
				observability.ServerLogger.Error("Failed to reload config file",
					zap.String("file", viper.ConfigFileUsed()),
					zap.Error(err))
				return errwrap.WrapConfigInvalid(ctx, err, "config reload failed")
			}

			observability.ServerLogger.Info("Configuration reloaded successfully",
				zap.String("file", viper.ConfigFileUsed()))

			return nil
		})

		// Enable double-tap force quit (Ctrl+C within 2 seconds)
		if err := signals.EnableDoubleTap(signals.DoubleTapConfig{
			Window:  2 * time.Second,
			Message: "Press Ctrl+C again within 2 seconds to force quit",
		}); err != nil {
			observability.ServerLogger.Warn("Failed to enable double-tap force quit",
				zap.Error(err))
		}

		// Start server in background goroutine
		errChan := make(chan error, 1)
		go func() {
			observability.ServerLogger.Info("Starting HTTP server...",
				zap.String("host", serverHost),
				zap.Int("port", serverPort))
			if err := srv.Start(); err != nil && err != http.ErrServerClosed {
				errChan <- err
			}
		}()

		// Start signal listener in background
		go func() {
			if err := signals.Listen(cmd.Context()); err != nil {
				observability.ServerLogger.Error("Signal handler error", zap.Error(err))
				errChan <- err
			}
		}()

		// Wait for error or shutdown completion
		if err := <-errChan; err != nil {
			return errwrap.WrapInternal(cmd.Context(), err, "server error")
		}

		return nil
	},
}

// buildAnswerPipeline assembles the search client, completion service, and
// pipeline from config.
func buildAnswerPipeline(cfg *config.Config) (*answer.Pipeline, error) {
	svc, err := ailink.NewService(cfg.AILink)
	if err != nil {
		return nil, err
	}

	searcher := search.NewClient(cfg.Search.BaseURL, cfg.Search.APIKey)
	if cfg.Search.Limit > 0 {
		searcher.Limit = cfg.Search.Limit
	}
	if cfg.Search.Timeout > 0 {
		searcher.Timeout = cfg.Search.Timeout
	}

	pipeline := answer.NewPipeline(searcher, svc, cfg.Answer.Role, cfg.Answer.Prompt)
	pipeline.Model = cfg.Answer.Model
	return pipeline, nil
}

// applyEnvCredentialFallbacks fills credentials from the providers' own
// conventional env vars so a bare GROQ_API_KEY / FIRECRAWL_API_KEY is enough
// to run without any config file.
func applyEnvCredentialFallbacks(cfg *config.Config) {
	if strings.TrimSpace(cfg.Search.APIKey) == "" {
		cfg.Search.APIKey = strings.TrimSpace(os.Getenv("FIRECRAWL_API_KEY"))
	}

	if len(cfg.AILink.Providers) > 0 {
		return
	}
	groqKey := strings.TrimSpace(os.Getenv("GROQ_API_KEY"))
	if groqKey == "" {
		return
	}

	if cfg.AILink.Providers == nil {
		cfg.AILink.Providers = map[string]ailink.ProviderInstanceConfig{}
	}
	cfg.AILink.Providers["groq-default"] = ailink.ProviderInstanceConfig{
		Enabled:    true,
		AIProvider: "groq",
		Roles:      []string{ailink.DefaultAnswerRole},
		Credentials: []ailink.CredentialConfig{
			{Enabled: true, Label: "env", APIKey: groqKey},
		},
	}
	if strings.TrimSpace(cfg.AILink.DefaultProvider) == "" {
		cfg.AILink.DefaultProvider = "groq-default"
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serverHost, "host", "127.0.0.1", "server host")
	serveCmd.Flags().IntVarP(&serverPort, "port", "p", 8080, "server port")

	_ = viper.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	_ = viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
}
