package cmd

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"offScreenAPI/internal/config"
	"offScreenAPI/internal/events"
	"offScreenAPI/internal/evidence"
	"offScreenAPI/internal/generation"
	"offScreenAPI/internal/llm"
	"offScreenAPI/internal/logger"
	"offScreenAPI/internal/notification"
	"offScreenAPI/internal/oracle"
	"offScreenAPI/internal/store"
	"offScreenAPI/services"
)

// runtime holds what every command needs: settings, logging and the store.
type runtime struct {
	cfg   *config.Config
	log   *logger.Logger
	pool  *pgxpool.Pool
	store *store.PostgresStore
}

func newRuntime(ctx context.Context) (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("startup: %w", err)
	}
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, err
	}
	pool, err := store.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("startup: %w", err)
	}
	log.Info("connected to database")
	return &runtime{cfg: cfg, log: log, pool: pool, store: store.NewPostgresStore(pool)}, nil
}

func (rt *runtime) Close() {
	rt.pool.Close()
	rt.log.Sync()
}

// llmClient returns nil when ORACLE_PROVIDER is none.
func (rt *runtime) llmClient(ctx context.Context) (llm.Client, error) {
	o := rt.cfg.Oracle
	switch o.Provider {
	case config.ProviderOpenAI:
		client, err := llm.NewOpenAI(llm.OpenAIConfig{
			APIKey:     o.OpenAIAPIKey,
			Model:      o.OpenAIModel,
			Endpoint:   o.OpenAIEndpoint,
			MaxRetries: o.MaxRetries,
		}, rt.log)
		if err != nil {
			return nil, err
		}
		return client, nil
	case config.ProviderGemini:
		client, err := llm.NewGemini(ctx, llm.GeminiConfig{APIKey: o.GeminiAPIKey, Model: o.GeminiModel})
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, nil
	}
}

func (rt *runtime) oracleAndGenerator(ctx context.Context) (oracle.Oracle, generation.Generator, error) {
	client, err := rt.llmClient(ctx)
	if err != nil {
		return nil, nil, err
	}
	if client == nil {
		rt.log.Warn("no oracle provider configured; evidence submissions will fail")
		return oracle.Unavailable{}, nil, nil
	}
	var gen generation.Generator
	if rt.cfg.Generator.Enabled {
		gen = generation.New(client, rt.log)
	}
	return oracle.New(client, rt.cfg.Oracle.Timeout, rt.log), gen, nil
}

func (rt *runtime) evidenceStore(ctx context.Context) (evidence.Store, error) {
	if rt.cfg.Evidence.Backend == config.EvidenceGCS {
		return evidence.NewGCSStore(ctx, rt.cfg.Evidence.Bucket, rt.log)
	}
	return evidence.NewLocalStore(rt.cfg.Evidence.Dir)
}

// publisher falls back to logging when Redis is not configured or not
// reachable at startup.
func (rt *runtime) publisher(ctx context.Context) events.Publisher {
	if rt.cfg.RedisAddr == "" {
		return events.NewLogPublisher(rt.log)
	}
	p, err := events.NewRedisPublisher(ctx, rt.cfg.RedisAddr, rt.cfg.RedisChannel, rt.log)
	if err != nil {
		rt.log.Warn("redis unavailable, ledger events will only be logged", "error", err)
		return events.NewLogPublisher(rt.log)
	}
	return p
}

func (rt *runtime) dispatcher(ctx context.Context) *services.NotificationDispatcher {
	d := services.NewNotificationDispatcher(rt.store, rt.log, 5)
	if !rt.cfg.PushConfigured() {
		return d
	}
	fcm, err := notification.NewFCMService(ctx, rt.cfg.FCMCredentialsFile, rt.cfg.FCMServiceAccountJSON, rt.log)
	if err != nil {
		rt.log.Warn("could not initialize FCM, pushes will only be logged", "error", err)
		return d
	}
	d.SetPushProvider(fcm)
	rt.log.Info("FCM push provider initialized")
	return d
}
