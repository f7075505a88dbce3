// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.


// Package orchestrator wires the task agent into an HTTP service.
//
// # Description
//
// New opens the stores, builds the agent, configures tracing and metrics,
// and registers the routes. Run serves until its context is cancelled and
// then shuts down gracefully.
//
// # Extension Points
//
// ServiceOptions replaces authentication and audit logging. When no
// AuthProvider is given and Config.Auth.Tokens is non-empty, a static
// token provider is installed; otherwise every request runs as
// extensions.LocalUserID.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/AleutianAI/AleutianTasks/pkg/extensions"
	"github.com/AleutianAI/AleutianTasks/services/llm"
	"github.com/AleutianAI/AleutianTasks/services/orchestrator/handlers"
	"github.com/AleutianAI/AleutianTasks/services/orchestrator/middleware"
	"github.com/AleutianAI/AleutianTasks/services/orchestrator/routes"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// ServiceName is reported to the trace collector and the log files.
const ServiceName = "aleutian-tasks"

const shutdownTimeout = 10 * time.Second

// =============================================================================
// Service Interface
// =============================================================================

// Service is the task agent HTTP service.
type Service interface {
	// Run serves HTTP and blocks until ctx is cancelled or the server
	// fails.
	//
	// # Description
	//
	// Listens on the configured port, or on the listener given with
	// WithListener. When ctx is cancelled the server stops accepting
	// connections and in-flight requests get up to 10s to finish. The
	// service is closed on return.
	//
	// # Outputs
	//
	//   - error: Nil after a clean shutdown. Non-nil if the listener
	//     cannot be opened or the server fails.
	//
	// # Examples
	//
	//	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	//	defer stop()
	//	if err := svc.Run(ctx); err != nil {
	//	    log.Fatalf("server error: %v", err)
	//	}
	//
	// # Assumptions
	//
	//   - Run is called at most once.
	Run(ctx context.Context) error

	// Router returns the underlying Gin engine for testing.
	//
	// # Limitations
	//
	//   - Should not be used to modify routes after construction
	Router() *gin.Engine

	// Components exposes the wired stores and agent.
	Components() *Components

	// Close releases stores and flushes spans. Safe to call more than
	// once. Run calls it on return.
	Close() error
}

// Option customizes New.
type Option func(*service)

// WithLLMClient replaces the backend built from Config.LLM.
func WithLLMClient(c llm.Client) Option {
	return func(s *service) { s.model = c }
}

// WithListener serves on l instead of listening on Config.Port.
func WithListener(l net.Listener) Option {
	return func(s *service) { s.listener = l }
}

// WithLogger replaces slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *service) { s.logger = l }
}

// =============================================================================
// Implementation
// =============================================================================

type service struct {
	config        Config
	opts          extensions.ServiceOptions
	logger        *slog.Logger
	model         llm.Client
	listener      net.Listener
	components    *Components
	router        *gin.Engine
	tracerCleanup func(context.Context)
	closeOnce     sync.Once
	closeErr      error
}

var _ Service = (*service)(nil)

// New creates the service.
//
// # Description
//
//  1. Applies config defaults and validates the result
//  2. Initializes the tracer and its exporter
//  3. Opens SQLite and the confirmation session store
//  4. Builds the LLM client, the agent and the chat service
//  5. Sets up HTTP routes with extension options
//
// # Inputs
//
//   - ctx: Bounds store migration and exporter setup.
//   - cfg: Zero values use defaults.
//   - opts: Extension options. May be nil.
//   - options: WithLLMClient, WithListener, WithLogger.
//
// # Outputs
//
//   - Service: Ready to Run.
//   - error: Non-nil if any step fails. Partially opened resources are
//     released.
//
// # Examples
//
//	cfg, err := orchestrator.LoadConfig("")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	svc, err := orchestrator.New(ctx, cfg, nil)
//
// # Assumptions
//
//   - API keys for the chosen LLM backend are in the environment or
//     /run/secrets, unless WithLLMClient is given.
func New(ctx context.Context, cfg Config, opts *extensions.ServiceOptions, options ...Option) (Service, error) {
	cfg = applyConfigDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &service{config: cfg, tracerCleanup: func(context.Context) {}}
	for _, o := range options {
		o(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.opts = s.resolveOptions(opts)

	cleanup, err := s.initTracer(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracer: %w", err)
	}
	s.tracerCleanup = cleanup

	s.components, err = OpenComponents(ctx, cfg, s.opts, s.logger)
	if err != nil {
		s.tracerCleanup(context.Background())
		return nil, err
	}
	if err := s.components.EnableAgent(s.model); err != nil {
		s.Close()
		return nil, err
	}

	s.initRouter()
	return s, nil
}

// resolveOptions fills extension points the caller left unset.
func (s *service) resolveOptions(opts *extensions.ServiceOptions) extensions.ServiceOptions {
	var out extensions.ServiceOptions
	if opts != nil {
		out = *opts
	}
	if out.AuthProvider == nil && len(s.config.Auth.Tokens) > 0 {
		provider := extensions.NewStaticTokenProvider(s.config.Auth.Tokens)
		s.logger.Info("Using static bearer tokens", "tokens", provider.Len())
		out.AuthProvider = provider
	}
	if out.AuditLogger == nil {
		out.AuditLogger = extensions.NewSlogAuditLogger(s.logger)
	}
	return out.Normalize()
}

// Run implements Service.
func (s *service) Run(ctx context.Context) error {
	defer s.Close()

	ln := s.listener
	if ln == nil {
		var err error
		ln, err = net.Listen("tcp", fmt.Sprintf(":%d", s.config.Port))
		if err != nil {
			return fmt.Errorf("listen on port %d: %w", s.config.Port, err)
		}
	}

	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("Starting task agent server", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.logger.Info("Shutting down task agent server")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// Router implements Service.
func (s *service) Router() *gin.Engine {
	return s.router
}

// Components implements Service.
func (s *service) Components() *Components {
	return s.components
}

// Close implements Service.
func (s *service) Close() error {
	s.closeOnce.Do(func() {
		ctx := context.Background()
		var errs []error
		if err := s.opts.AuditLogger.Flush(ctx); err != nil {
			errs = append(errs, fmt.Errorf("flush audit log: %w", err))
		}
		if s.components != nil {
			if err := s.components.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		s.tracerCleanup(ctx)
		s.closeErr = errors.Join(errs...)
	})
	return s.closeErr
}

// =============================================================================
// Private Initialization Methods
// =============================================================================

// initTracer initializes OpenTelemetry distributed tracing.
//
// # Description
//
// Builds the exporter chosen by Config.TraceExporter and installs a global
// tracer provider around it. With "none" the global provider is left as
// is, so spans are created but go nowhere.
//
// # Outputs
//
//   - func(context.Context): Cleanup function to call on shutdown
//   - error: Non-nil if tracer setup fails
//
// # Limitations
//
//   - OTLP uses an insecure gRPC connection (appropriate for internal
//     networks)
func (s *service) initTracer(ctx context.Context) (func(context.Context), error) {
	exporter, closeConn, err := s.newSpanExporter(ctx)
	if err != nil {
		return nil, err
	}
	if exporter == nil {
		s.logger.Info("Trace export disabled")
		return func(context.Context) {}, nil
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String(ServiceName)))
	if err != nil {
		closeConn()
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	bsp := sdktrace.NewBatchSpanProcessor(exporter)
	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(bsp))

	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{}))

	cleanup := func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, time.Second*5)
		defer cancel()
		if err := traceProvider.Shutdown(ctx); err != nil {
			s.logger.Error("failed to shutdown OTel tracer provider", "error", err)
		}
		closeConn()
	}
	return cleanup, nil
}

// newSpanExporter returns a nil exporter for "none". The returned close
// function is never nil.
func (s *service) newSpanExporter(ctx context.Context) (sdktrace.SpanExporter, func(), error) {
	noop := func() {}
	switch s.config.TraceExporter {
	case TraceExporterNone:
		return nil, noop, nil

	case TraceExporterStdout:
		exporter, err := stdouttrace.New(
			stdouttrace.WithWriter(os.Stderr),
			stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, noop, fmt.Errorf("failed to create stdout exporter: %w", err)
		}
		return exporter, noop, nil

	default:
		conn, err := grpc.NewClient(s.config.OTelEndpoint,
			grpc.WithTransportCredentials(insecure.NewCredentials()))
		if err != nil {
			return nil, noop, fmt.Errorf("failed to create gRPC connection: %w", err)
		}
		exporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
		if err != nil {
			conn.Close()
			return nil, noop, fmt.Errorf("failed to create trace exporter: %w", err)
		}
		return exporter, func() { conn.Close() }, nil
	}
}

// initRouter builds the Gin engine and registers every route.
func (s *service) initRouter() {
	gin.SetMode(s.config.GinMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(ServiceName))

	c := s.components
	deps := routes.Dependencies{
		Chat:          c.Chat,
		Conversations: c.Conversations,
		Tasks:         c.Tasks,
		Health:        map[string]handlers.Pinger{"sqlite": c.DB},
		RateLimiter:   middleware.NewRateLimiter(s.config.RateLimit, c.Metrics),
		Options:       s.opts,
	}
	if s.config.EnableMetrics {
		deps.Metrics = promhttp.HandlerFor(c.Registry, promhttp.HandlerOpts{})
	}
	routes.SetupRoutes(router, deps)
	s.router = router
}
