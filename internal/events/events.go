package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"offScreenAPI/internal/logger"
	"offScreenAPI/internal/types/ledger"
)

const DefaultChannel = "ledger"

// Publisher fans ledger changes out to leaderboard readers. Publishing
// happens after the scoring transaction commits and is best-effort.
type Publisher interface {
	PublishLedger(ctx context.Context, ev ledger.Event) error
	Close() error
}

type RedisPublisher struct {
	log     *logger.Logger
	rdb     *goredis.Client
	channel string
}

func NewRedisPublisher(ctx context.Context, addr, channel string, log *logger.Logger) (*RedisPublisher, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	if strings.TrimSpace(channel) == "" {
		channel = DefaultChannel
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &RedisPublisher{
		log:     log.With("service", "LedgerPublisher", "channel", channel),
		rdb:     rdb,
		channel: channel,
	}, nil
}

func Encode(ev ledger.Event) ([]byte, error) {
	return json.Marshal(ev)
}

func (p *RedisPublisher) PublishLedger(ctx context.Context, ev ledger.Event) error {
	raw, err := Encode(ev)
	if err != nil {
		return err
	}
	if err := p.rdb.Publish(ctx, p.channel, raw).Err(); err != nil {
		return fmt.Errorf("failed to publish ledger event: %w", err)
	}
	return nil
}

func (p *RedisPublisher) Close() error {
	return p.rdb.Close()
}

// LogPublisher is used when no broker is configured.
type LogPublisher struct {
	log *logger.Logger
}

func NewLogPublisher(log *logger.Logger) *LogPublisher {
	return &LogPublisher{log: log.With("service", "LedgerPublisher")}
}

func (p *LogPublisher) PublishLedger(ctx context.Context, ev ledger.Event) error {
	p.log.Debug("ledger changed", "team_id", ev.TeamID, "delta", ev.Delta, "points", ev.Points)
	return nil
}

func (p *LogPublisher) Close() error { return nil }
