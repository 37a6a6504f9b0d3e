package measure

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"golang.org/x/time/rate"

	"influx_events/internal/models"
)

// StatusError is returned for any non-200 response.
type StatusError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Status, e.Body)
}

// timed is the part of every /api/v1 response the harness reads.
type timed struct {
	TotalMilliseconds *float64 `json:"total_milliseconds"`
}

// Client calls the event service. It never retries.
type Client struct {
	base        string
	httpClient  *http.Client
	token       string
	clearMethod string
	limiter     *rate.Limiter
}

// NewClient builds a client for p.Host.
func NewClient(p *Plan) *Client {
	c := &Client{
		base:        p.Host,
		httpClient:  &http.Client{Timeout: p.Timeout},
		token:       p.Token,
		clearMethod: p.ClearMethod,
	}
	if p.Rate > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(p.Rate), 1)
	}
	return c
}

// do sends one request and returns the server-reported elapsed milliseconds.
// A response without the field reports 0.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any) (float64, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return 0, err
		}
	}

	var reader io.Reader
	if body != nil {
		data, err := sonic.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("encode %s body: %w", path, err)
		}
		reader = bytes.NewReader(data)
	}

	target := c.base + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return 0, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("read %s response: %w", path, err)
	}
	if resp.StatusCode != http.StatusOK {
		return 0, &StatusError{Method: method, Path: path, Status: resp.StatusCode, Body: string(raw)}
	}

	var t timed
	if err := sonic.Unmarshal(raw, &t); err != nil {
		return 0, fmt.Errorf("decode %s response: %w", path, err)
	}
	if t.TotalMilliseconds == nil {
		return 0, nil
	}
	return *t.TotalMilliseconds, nil
}

func rangeQuery(start, end time.Time) url.Values {
	q := url.Values{}
	q.Set("start_time", start.UTC().Format(time.RFC3339Nano))
	q.Set("end_time", end.UTC().Format(time.RFC3339Nano))
	return q
}

// Create writes one event.
func (c *Client) Create(ctx context.Context, e models.Event) (float64, error) {
	return c.do(ctx, http.MethodPost, "/api/v1/event", nil, e)
}

// CreateBatch writes events in one request.
func (c *Client) CreateBatch(ctx context.Context, events []models.Event) (float64, error) {
	return c.do(ctx, http.MethodPost, "/api/v1/events", nil, events)
}

// Query reads events in [start, end] narrowed by f.
func (c *Client) Query(ctx context.Context, start, end time.Time, f models.EventFilter) (float64, error) {
	q := rangeQuery(start, end)
	for k, v := range map[string]string{
		"severity":    f.Severity,
		"event_type":  f.EventType,
		"source_name": f.SourceName,
		"country":     f.LocationCountry,
		"city":        f.LocationCity,
	} {
		if v != "" {
			q.Set(k, v)
		}
	}
	return c.do(ctx, http.MethodGet, "/api/v1/events", q, nil)
}

// UpdateSeverity moves one event to a new severity.
func (c *Client) UpdateSeverity(ctx context.Context, u models.SeverityUpdate) (float64, error) {
	return c.do(ctx, http.MethodPut, "/api/v1/event/severity", nil, u)
}

// Clear deletes every event in [start, end].
func (c *Client) Clear(ctx context.Context, start, end time.Time) (float64, error) {
	return c.do(ctx, c.clearMethod, "/api/v1/events/clear", rangeQuery(start, end), nil)
}

// Generate asks the service to write n random events in [start, end].
func (c *Client) Generate(ctx context.Context, n int, start, end time.Time) (float64, error) {
	q := rangeQuery(start, end)
	q.Set("events_to_generate", strconv.Itoa(n))
	return c.do(ctx, http.MethodPost, "/api/v1/events/generate", q, nil)
}
