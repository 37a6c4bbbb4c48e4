// Package cache holds the Valkey (Redis-compatible) L2 cache of rendered
// pages. Entries are keyed by parent scope and slug so a single edit can
// drop one page or every page of a parent.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/redis/go-redis/v9"
)

// ValkeyOptions locates the Valkey server.
type ValkeyOptions struct {
	Host     string
	Port     string
	Password string
	DB       int
	// DialTimeout bounds the connect and the initial ping. Zero means 5s.
	DialTimeout time.Duration
}

func (o ValkeyOptions) addr() string {
	return net.JoinHostPort(o.Host, o.Port)
}

// ConnectValkey creates a Valkey client and verifies the connection with a
// ping. The client is closed again when the ping fails.
func ConnectValkey(ctx context.Context, opts ValkeyOptions) (*redis.Client, error) {
	timeout := opts.DialTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	client := redis.NewClient(&redis.Options{
		Addr:        opts.addr(),
		Password:    opts.Password,
		DB:          opts.DB,
		DialTimeout: timeout,
	})

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("valkey ping %s: %w", opts.addr(), err)
	}

	slog.Info("valkey connected", "addr", opts.addr(), "db", opts.DB)
	return client, nil
}
