package connector

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/insightdash/syncengine/internal/models"
)

const (
	defaultCallTimeout = 30 * time.Second
	defaultTokenTTL    = 55 * time.Minute
)

// base carries the state shared by every vendor adapter: config, HTTP
// client, and the bearer token with its expiry.
type base struct {
	cfg    models.ConnectorConfig
	logger *slog.Logger
	client *resty.Client

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

func newBase(cfg models.ConnectorConfig, logger *slog.Logger) base {
	return base{
		cfg:    cfg,
		logger: logger.With("connector", cfg.ID),
		client: resty.New().SetTimeout(defaultCallTimeout),
	}
}

func (b *base) ID() string {
	return b.cfg.ID
}

func (b *base) Kind() models.ConnectorKind {
	return b.cfg.Kind
}

// Authenticate exchanges credentials for a bearer token at the vendor's
// token endpoint and records the expiry. Returns false on any failure.
func (b *base) Authenticate(ctx context.Context) bool {
	var payload struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}

	resp, err := b.client.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"grant_type":    "client_credentials",
			"client_id":     b.cfg.Setting("client_id", ""),
			"client_secret": b.cfg.Setting("client_secret", ""),
		}).
		SetResult(&payload).
		Post(b.cfg.Setting("auth_url", ""))

	if err != nil {
		b.logger.Error("authentication failed", "error", err)
		return false
	}
	if resp.IsError() {
		b.logger.Error("authentication rejected", "status", resp.Status())
		return false
	}
	if payload.AccessToken == "" {
		b.logger.Error("authentication response carried no token")
		return false
	}

	ttl := defaultTokenTTL
	if payload.ExpiresIn > 0 {
		ttl = time.Duration(payload.ExpiresIn) * time.Second
	}

	b.mu.Lock()
	b.token = payload.AccessToken
	b.tokenExpiry = time.Now().Add(ttl)
	b.mu.Unlock()

	b.logger.Debug("token refreshed", "expires_in", ttl)
	return true
}

// tokenStale reports whether the token is missing or past its expiry.
func (b *base) tokenStale() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.token == "" || !time.Now().Before(b.tokenExpiry)
}

// ensureToken refreshes the token when stale. Every fetch operation calls
// this before issuing its remote call.
func (b *base) ensureToken(ctx context.Context) error {
	if !b.tokenStale() {
		return nil
	}
	if !b.Authenticate(ctx) {
		return fmt.Errorf("authentication failed for connector %s", b.cfg.ID)
	}
	return nil
}

func (b *base) bearer() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.token
}

// get issues one authenticated GET and decodes the JSON response into out.
func (b *base) get(ctx context.Context, url string, out any) error {
	if err := b.ensureToken(ctx); err != nil {
		return err
	}

	resp, err := b.client.R().
		SetContext(ctx).
		SetAuthToken(b.bearer()).
		SetResult(out).
		Get(url)
	if err != nil {
		return fmt.Errorf("GET %s: %w", url, err)
	}
	if resp.IsError() {
		return fmt.Errorf("GET %s: unexpected status %s", url, resp.Status())
	}
	return nil
}

// syncAll runs every fetch operation, containing failures per entity type.
// A failing op logs, contributes a zero count, and never aborts the others;
// the summary succeeds as long as any op succeeded (or the connector has no
// ops at all).
func (b *base) syncAll(ctx context.Context, ops []fetchOp) SyncSummary {
	summary := SyncSummary{Details: make(map[string]int, len(ops))}
	failed := 0

	for _, op := range ops {
		records, err := op.fetch(ctx)
		if err != nil {
			b.logger.Error("fetch operation failed", "entity", op.entity, "error", err)
			summary.Details[op.entity] = 0
			summary.RecordsFailed++
			failed++
			continue
		}
		summary.Details[op.entity] = len(records)
		summary.RecordsSynced += len(records)
	}

	summary.Success = failed < len(ops) || len(ops) == 0
	return summary
}

// testConnection authenticates and issues one minimal probe call.
func (b *base) testConnection(ctx context.Context, probeURL string) bool {
	if !b.Authenticate(ctx) {
		return false
	}

	resp, err := b.client.R().
		SetContext(ctx).
		SetAuthToken(b.bearer()).
		Get(probeURL)
	if err != nil {
		b.logger.Warn("connection probe failed", "error", err)
		return false
	}
	return !resp.IsError()
}

// url joins the configured base URL with a vendor path.
func (b *base) url(path string) string {
	return b.cfg.Setting("base_url", "") + path
}
