package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	clerk "github.com/clerk/clerk-sdk-go/v2"
	gorillaHandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"offScreenAPI/handlers"
	"offScreenAPI/internal/store"
	"offScreenAPI/middleware"
	"offScreenAPI/services"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, the expiration sweeper and the notification workers",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serve(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serve(ctx context.Context) error {
	rt, err := newRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()
	if err := rt.cfg.RequireServer(); err != nil {
		return err
	}
	clerk.SetKey(rt.cfg.ClerkSecretKey)
	log := rt.log

	orc, gen, err := rt.oracleAndGenerator(ctx)
	if err != nil {
		return err
	}
	ev, err := rt.evidenceStore(ctx)
	if err != nil {
		return err
	}
	publisher := rt.publisher(ctx)
	defer publisher.Close()
	dispatcher := rt.dispatcher(ctx)

	scoring := services.NewScoringService(rt.store, publisher, dispatcher, log)
	assignment := services.NewAssignmentService(rt.store, gen, dispatcher, log)
	submission := services.NewSubmissionService(rt.store, ev, orc, scoring, log)
	sweeper := services.NewExpirationSweeper(rt.store, dispatcher, rt.cfg.SweepInterval, rt.cfg.SweepBatch, log)

	challengeHandler := handlers.NewChallengeHandler(assignment, submission, services.NewAttemptService(rt.store), log)
	ledgerHandler := handlers.NewLedgerHandler(services.NewLedgerService(rt.store), log)
	notificationHandler := handlers.NewNotificationHandler(services.NewNotificationService(rt.store, log), log)

	middleware.InitPrometheus(prometheus.DefaultRegisterer)
	ipLimiter := middleware.NewRateLimiter(5, 30, middleware.KeyByIP)
	submitLimiter := middleware.NewRateLimiter(rate.Every(10*time.Second), 3, middleware.KeyByParticipant)
	auth := middleware.NewAuthenticator(middleware.ClerkVerifier, rt.store, log)

	r := mux.NewRouter()
	r.Use(ipLimiter.Middleware)
	r.Use(middleware.MonitorMiddleware)

	r.Handle("/metrics", middleware.BasicAuthMiddleware(rt.cfg.MetricsUser, rt.cfg.MetricsPass)(promhttp.Handler())).Methods("GET")
	r.HandleFunc("/health", healthHandler(rt.store)).Methods("GET")

	protected := r.PathPrefix("/api/v1").Subrouter()
	protected.Use(auth.ClerkAuthMiddleware)
	handlers.RegisterRoutes(protected, challengeHandler, ledgerHandler, notificationHandler, submitLimiter.Middleware)

	corsHandler := gorillaHandlers.CORS(
		gorillaHandlers.AllowedOrigins([]string{"*"}),
		gorillaHandlers.AllowedMethods([]string{"GET", "POST", "OPTIONS"}),
		gorillaHandlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
		gorillaHandlers.ExposedHeaders([]string{"Content-Length"}),
	)

	server := &http.Server{
		Addr:         rt.cfg.Addr(),
		Handler:      corsHandler(r),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: rt.cfg.Oracle.Timeout + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting server", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	g.Go(func() error { return sweeper.Run(gctx) })
	g.Go(func() error { return dispatcher.Run(gctx) })
	g.Go(func() error { return ipLimiter.Run(gctx) })
	g.Go(func() error { return submitLimiter.Run(gctx) })

	err = g.Wait()
	log.Info("server shutdown complete")
	return err
}

func healthHandler(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		w.Header().Set("Content-Type", "application/json")
		if err := st.Ping(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status": "unhealthy", "error": "database connection failed"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status": "healthy", "service": "offscreen-api"}`))
	}
}

