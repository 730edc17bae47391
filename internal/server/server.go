// Package server provides the service lifecycle runner: signal
// handling, config loading, observability init, dependency wiring, the
// HTTP surface, and graceful shutdown.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/aelexs/cognitolocal/internal/cognito"
	"github.com/aelexs/cognitolocal/internal/config"
	"github.com/aelexs/cognitolocal/internal/datastore"
	"github.com/aelexs/cognitolocal/internal/domain"
	"github.com/aelexs/cognitolocal/internal/messages"
	"github.com/aelexs/cognitolocal/internal/observability"
	"github.com/aelexs/cognitolocal/internal/otp"
	"github.com/aelexs/cognitolocal/internal/router"
	"github.com/aelexs/cognitolocal/internal/targets"
	"github.com/aelexs/cognitolocal/internal/token"
	"github.com/aelexs/cognitolocal/internal/triggers"
)

const serviceName = "cognitolocal"

// Run executes the full service lifecycle. If ln is non-nil, it is used
// instead of creating a new listener from config (enables port-0
// testing).
func Run(ctx context.Context, ln net.Listener) error {
	// Signal-based cancellation: ctx.Done() closes on SIGTERM/SIGINT.
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := observability.InitLogger(observability.LogConfig{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		ServiceName: cfg.OTEL.ServiceName,
		Environment: cfg.Environment,
	})

	// --- Startup order: tracer -> metrics -> HTTP server ---

	tracerProvider, err := observability.InitTracer(ctx, observability.TracerConfig{
		ServiceName:    cfg.OTEL.ServiceName,
		ServiceVersion: "0.1.0",
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTEL.Endpoint,
	})
	if err != nil {
		return fmt.Errorf("initialize tracer: %w", err)
	}

	metricsProvider, err := observability.InitMetrics(ctx, observability.MetricsConfig{
		ServiceName:    cfg.OTEL.ServiceName,
		ServiceVersion: "0.1.0",
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTEL.Endpoint,
	})
	if err != nil {
		return fmt.Errorf("initialize metrics: %w", err)
	}

	// Health check shutdown coordination via atomic flag.
	var shuttingDown atomic.Bool

	handler, err := buildHandler(ctx, cfg, logger, &shuttingDown)
	if err != nil {
		return err
	}

	// Bind listener (use injected listener or create from config).
	if ln == nil {
		ln, err = (&net.ListenConfig{}).Listen(ctx, "tcp", fmt.Sprintf(":%d", cfg.Server.Port))
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	}

	server := &http.Server{
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Structured concurrency via errgroup ---
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting HTTP server",
			slog.String("addr", ln.Addr().String()),
			slog.String("data_dir", cfg.Data.Dir),
			slog.String("environment", cfg.Environment),
		)
		if serveErr := server.Serve(ln); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			return serveErr
		}
		return nil
	})

	// Shutdown trigger: wait for cancellation, then drain in reverse of
	// startup: HTTP server -> metrics -> tracer.
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("received shutdown signal, starting graceful shutdown")

		shuttingDown.Store(true)
		time.Sleep(domain.ShutdownDrainDelay)

		httpCtx, httpCancel := context.WithTimeout(context.Background(), domain.ShutdownHTTPTimeout)
		defer httpCancel()
		if shutdownErr := server.Shutdown(httpCtx); shutdownErr != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", shutdownErr.Error()))
		}

		otelCtx, otelCancel := context.WithTimeout(context.Background(), domain.ShutdownOTELTimeout)
		defer otelCancel()
		if shutdownErr := metricsProvider.Shutdown(otelCtx); shutdownErr != nil {
			logger.Error("failed to shutdown metrics", slog.String("error", shutdownErr.Error()))
		}
		if shutdownErr := tracerProvider.Shutdown(otelCtx); shutdownErr != nil {
			logger.Error("failed to shutdown tracer", slog.String("error", shutdownErr.Error()))
		}

		logger.Info("shutdown complete")
		return nil
	})

	return g.Wait()
}

// buildHandler wires the dependency graph and returns the HTTP surface:
// POST / for operations, GET /health, and per-pool JWKS documents.
func buildHandler(ctx context.Context, cfg *config.Config, logger *slog.Logger, shuttingDown *atomic.Bool) (http.Handler, error) {
	clock := domain.RealClock{}

	factory := datastore.NewFactory(cfg.Data.Dir)
	cognitoService, err := cognito.NewService(ctx, cognito.ServiceConfig{
		Factory:       factory,
		Clock:         clock,
		DefaultPoolID: cfg.Pool.DefaultID,
	})
	if err != nil {
		return nil, fmt.Errorf("open datastore: %w", err)
	}

	keyStore, err := token.NewGeneratedKeyStore()
	if err != nil {
		return nil, fmt.Errorf("generate signing key: %w", err)
	}

	var hooks *triggers.Triggers
	if functions := cfg.Triggers.FunctionMap(); len(functions) > 0 {
		lambdaClient, err := triggers.NewClient(ctx, triggers.ClientConfig{
			Endpoint: cfg.AWS.Endpoint,
			Region:   cfg.AWS.Region,
			Timeout:  cfg.AWS.Timeout,
		})
		if err != nil {
			return nil, fmt.Errorf("create lambda client: %w", err)
		}
		hooks = triggers.New(triggers.NewAWSLambda(lambdaClient, functions, logger), clock, logger)
	}

	var delivery messages.MessageDelivery = messages.NewConsoleDelivery(logger)
	if cfg.Messages.Delivery == "sns" {
		snsClient, err := messages.NewSNSClient(ctx, cfg.AWS.Endpoint, cfg.AWS.Region)
		if err != nil {
			return nil, fmt.Errorf("create sns client: %w", err)
		}
		delivery = messages.NewSNSDelivery(snsClient, logger)
	}

	generatorCfg := token.GeneratorConfig{
		KeyStore:   keyStore,
		Clock:      clock,
		IssuerHost: cfg.IssuerHost(),
	}

	targetsCfg := targets.Config{
		Cognito:  cognitoService,
		Messages: messages.New(nil, delivery),
		Tokens:   nil,
		Keys:     keyStore,
		Clock:    clock,
		OTP:      otp.RandomGenerator{},
	}
	// A typed nil must not reach the interface fields; collaborators
	// treat an absent trigger subsystem as "all hooks disabled".
	if hooks != nil {
		generatorCfg.Triggers = hooks
		targetsCfg.Triggers = hooks
		targetsCfg.Messages = messages.New(hooks, delivery)
	}
	targetsCfg.Tokens = token.NewGenerator(generatorCfg)

	mux := http.NewServeMux()
	mux.Handle("POST /{$}", router.New(targets.New(targetsCfg), logger))
	mux.HandleFunc("GET /health", healthHandler(shuttingDown))
	mux.HandleFunc("GET /{poolID}/.well-known/jwks.json", jwksHandler(keyStore))
	return mux, nil
}

func healthHandler(shuttingDown *atomic.Bool) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if shuttingDown.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprintf(w, `{"status":"shutting_down","service":%q}`, serviceName)
			return
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"status":"healthy","service":%q}`, serviceName)
	}
}

// jwksHandler serves the pool-scoped JWKS document. Every pool shares
// the process signing key, so the pool id only scopes the URL.
func jwksHandler(ks token.KeyStore) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(token.BuildJWKS(ks))
	}
}
