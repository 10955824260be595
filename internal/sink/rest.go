package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"

	"github.com/gyeh/bolagsload/internal/model"
)

// REST upserts batches through a PostgREST record API (as exposed by
// Supabase) using the service role key. It is the path for sinks without
// COPY access.
type REST struct {
	client *retryablehttp.Client
	base   *url.URL
	key    string
	table  string
}

// RESTOption customizes the REST sink.
type RESTOption func(*retryablehttp.Client)

// WithRetry sets the retry budget and backoff bounds.
func WithRetry(max int, waitMin, waitMax time.Duration) RESTOption {
	return func(c *retryablehttp.Client) {
		c.RetryMax = max
		c.RetryWaitMin = waitMin
		c.RetryWaitMax = waitMax
	}
}

// WithLogger routes retry diagnostics to log.
func WithLogger(log zerolog.Logger) RESTOption {
	return func(c *retryablehttp.Client) {
		c.Logger = leveledLogger{log: log}
	}
}

// NewREST returns a REST sink for baseURL (e.g. https://xyz.supabase.co).
func NewREST(baseURL, key, table string, opts ...RESTOption) (*REST, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse rest url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("rest url %q must be absolute", baseURL)
	}

	c := retryablehttp.NewClient()
	c.RetryMax = 3
	c.Logger = nil
	c.ErrorHandler = retryablehttp.PassthroughErrorHandler
	for _, o := range opts {
		o(c)
	}
	return &REST{client: c, base: u, key: key, table: table}, nil
}

func (r *REST) endpoint(q url.Values) string {
	u := r.base.JoinPath("rest", "v1", r.table)
	u.RawQuery = q.Encode()
	return u.String()
}

func (r *REST) newRequest(ctx context.Context, method, target string, body []byte) (*retryablehttp.Request, error) {
	var raw any
	if body != nil {
		raw = body
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, method, target, raw)
	if err != nil {
		return nil, err
	}
	req.Header.Set("apikey", r.key)
	req.Header.Set("Authorization", "Bearer "+r.key)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// Ping reads at most one row to check reachability and credentials.
func (r *REST) Ping(ctx context.Context) error {
	target := r.endpoint(url.Values{
		"select": {model.KeyColumn},
		"limit":  {"1"},
	})
	req, err := r.newRequest(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("rest ping: %w", err)
	}
	return r.do(req, "rest ping")
}

// Upsert posts the batch as one JSON array with merge-duplicates resolution
// on conflictKey. Absent values are sent as JSON null.
func (r *REST) Upsert(ctx context.Context, b model.LoadBatch, conflictKey string) error {
	if len(b.Records) == 0 {
		return nil
	}
	rows := make([]map[string]any, len(b.Records))
	for i, rec := range b.Records {
		rows[i] = rec.Fields()
	}
	body, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("rest upsert: encode: %w", err)
	}

	target := r.endpoint(url.Values{"on_conflict": {conflictKey}})
	req, err := r.newRequest(ctx, http.MethodPost, target, body)
	if err != nil {
		return fmt.Errorf("rest upsert: %w", err)
	}
	req.Header.Set("Prefer", "resolution=merge-duplicates,return=minimal")
	return r.do(req, "rest upsert")
}

func (r *REST) do(req *retryablehttp.Request, op string) error {
	resp, err := r.client.Do(req)
	if resp != nil {
		defer resp.Body.Close()
	}
	if err != nil && resp == nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s: status %d: %s", op, resp.StatusCode, bytes.TrimSpace(msg))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// Close releases idle connections.
func (r *REST) Close() error {
	r.client.HTTPClient.CloseIdleConnections()
	return nil
}

var _ Upserter = (*REST)(nil)

// leveledLogger adapts zerolog to retryablehttp.LeveledLogger.
type leveledLogger struct {
	log zerolog.Logger
}

func (l leveledLogger) Error(msg string, kv ...interface{}) { l.log.Error().Fields(kv).Msg(msg) }
func (l leveledLogger) Info(msg string, kv ...interface{})  { l.log.Debug().Fields(kv).Msg(msg) }
func (l leveledLogger) Debug(msg string, kv ...interface{}) { l.log.Debug().Fields(kv).Msg(msg) }
func (l leveledLogger) Warn(msg string, kv ...interface{})  { l.log.Warn().Fields(kv).Msg(msg) }

var _ retryablehttp.LeveledLogger = leveledLogger{}
