package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cpq-console/internal/common/database"
	"cpq-console/internal/common/logger"
)

// ErrNoToken is returned when no source could produce a token.
var ErrNoToken = errors.New("no access token")

// Token is a bearer-style credential for the CPQ backend.
type Token struct {
	Value     string    `json:"value"`
	ExpiresAt time.Time `json:"expiresAt,omitempty"`
}

// TokenSource yields the token sent in the backend's authorization header.
type TokenSource interface {
	Token(ctx context.Context) (Token, error)
}

// StaticTokenSource always returns the same token. Useful for tools and tests.
type StaticTokenSource string

func (s StaticTokenSource) Token(context.Context) (Token, error) {
	if s == "" {
		return Token{}, ErrNoToken
	}
	return Token{Value: string(s)}, nil
}

// KVTokenSource reads the token stored under a fixed key in Redis. The key is
// written by whoever signs the operator in (or by StoreTokenSource below).
type KVTokenSource struct {
	kv  *database.RedisClient
	key string
}

func NewKVTokenSource(kv *database.RedisClient, key string) *KVTokenSource {
	return &KVTokenSource{kv: kv, key: key}
}

func (s *KVTokenSource) Token(ctx context.Context) (Token, error) {
	var tok Token
	err := s.kv.GetJSON(ctx, s.key, &tok)
	if errors.Is(err, database.ErrKeyNotFound) {
		return Token{}, ErrNoToken
	}
	if err != nil {
		return Token{}, err
	}
	if tok.Value == "" {
		return Token{}, ErrNoToken
	}
	return tok, nil
}

// Store saves tok under the fixed key until it expires.
func (s *KVTokenSource) Store(ctx context.Context, tok Token) error {
	var ttl time.Duration
	if !tok.ExpiresAt.IsZero() {
		ttl = time.Until(tok.ExpiresAt)
		if ttl <= 0 {
			return nil
		}
	}
	return s.kv.SetJSON(ctx, s.key, tok, ttl)
}

// ChainTokenSource prefers the stored token and falls back to a refresher,
// writing fresh tokens back to the store.
type ChainTokenSource struct {
	store     *KVTokenSource
	refresher TokenSource
	logger    logger.Logger
}

func NewChainTokenSource(store *KVTokenSource, refresher TokenSource, log logger.Logger) *ChainTokenSource {
	return &ChainTokenSource{store: store, refresher: refresher, logger: log}
}

func (c *ChainTokenSource) Token(ctx context.Context) (Token, error) {
	tok, err := c.store.Token(ctx)
	if err == nil {
		return tok, nil
	}
	if !errors.Is(err, ErrNoToken) {
		c.logger.Warn("Token store unavailable, refreshing", map[string]interface{}{"error": err.Error()})
	}
	if c.refresher == nil {
		return Token{}, fmt.Errorf("%w: store empty and no refresher configured", ErrNoToken)
	}

	tok, err = c.refresher.Token(ctx)
	if err != nil {
		return Token{}, err
	}
	if err := c.store.Store(ctx, tok); err != nil {
		c.logger.Warn("Failed to cache refreshed token", map[string]interface{}{"error": err.Error()})
	}
	return tok, nil
}
