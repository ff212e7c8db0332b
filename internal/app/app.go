package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/xenking/smartfit-shop/internal/domain/auth"
	"github.com/xenking/smartfit-shop/internal/domain/cart"
	"github.com/xenking/smartfit-shop/internal/domain/checkout"
	"github.com/xenking/smartfit-shop/internal/domain/order"
	"github.com/xenking/smartfit-shop/internal/handler"
	"github.com/xenking/smartfit-shop/pkg/health"
	"github.com/xenking/smartfit-shop/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing",
		zap.String("addr", cfg.Addr),
		zap.String("storage", cfg.Storage.Driver),
	)

	hasher := auth.NewHasher([]byte(cfg.APIKeyPepper))
	be, err := openBackend(ctx, lg, cfg, hasher)
	if err != nil {
		return err
	}
	defer be.close()

	srv, err := newServer(ctx, cfg, be, hasher, m.TracerProvider(), m.MeterProvider())
	if err != nil {
		return err
	}
	srv.start(ctx)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler:           srv.handler,
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		srv.health.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		srv.health.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}

// server is the assembled HTTP stack with the background workers it needs.
type server struct {
	handler http.Handler
	health  *health.Health
	limiter *httpmiddleware.Limiter
}

func newServer(
	ctx context.Context,
	cfg *Config,
	be *backend,
	hasher *auth.Hasher,
	tp trace.TracerProvider,
	mp metric.MeterProvider,
) (*server, error) {
	// Health check service.
	healthSvc := health.New()
	healthSvc.AddReadinessCheck("storage", 5*time.Second, health.PingCheck(be.pinger))
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.AddLivenessCheck("gc_pause", time.Second, health.GCMaxPauseCheck(time.Second))

	// Domain services.
	checkoutService, err := checkout.NewService(be.tx, be.carts, be.items, be.orders, tp, mp)
	if err != nil {
		return nil, errors.Wrap(err, "create checkout service")
	}
	h := handler.NewHandler(
		be.items,
		cart.NewService(be.tx, be.carts, be.items),
		checkoutService,
		order.NewService(be.orders, tp),
		auth.NewAuthenticator(be.apikeys, hasher),
	)

	// Router: health endpoints + API routes on one server.
	mux := chi.NewRouter()
	mux.Get("/livez", healthSvc.LiveEndpoint)
	mux.Get("/readyz", healthSvc.ReadyEndpoint)
	mux.Mount("/api", h.Routes())

	limiter := httpmiddleware.NewLimiter(httpmiddleware.RateLimitConfig{
		Max:     cfg.RateLimit.Max,
		Window:  cfg.RateLimit.Window,
		KeyFunc: httpmiddleware.APIKeyOrIP(handler.APIKeyHeader),
	})

	return &server{
		health:  healthSvc,
		limiter: limiter,
		handler: httpmiddleware.Wrap(mux,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type", "Authorization", handler.APIKeyHeader},
				ExposeHeaders:    []string{httpmiddleware.RequestIDHeader},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimit(limiter),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.Instrument("smartfit-shop", tp, mp),
			httpmiddleware.RouteContext(),
			httpmiddleware.LogRequests(),
			httpmiddleware.Labeler(),
		),
	}, nil
}

// start launches health probing and rate limiter eviction. Both stop when
// ctx is done; health.Stop waits for the probes.
func (s *server) start(ctx context.Context) {
	s.health.Start(ctx, 10*time.Second)
	s.health.SetReady(true)
	go s.limiter.Run(ctx)
}
