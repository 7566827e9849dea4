// Package remote talks to the cloudesk server over HTTP. A Slot implements
// the sync engine's view of one remote document.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/MrSnakeDoc/cloudesk/internal/guard"
	"github.com/MrSnakeDoc/cloudesk/internal/logger"
	"github.com/MrSnakeDoc/cloudesk/internal/utils"
	"github.com/MrSnakeDoc/cloudesk/internal/version"
)

const (
	DefaultTimeout       = 10 * time.Second
	DefaultBeaconTimeout = 3 * time.Second

	// maxResponseBytes bounds how much of a response body is read.
	maxResponseBytes = 32 << 20
)

var ErrUnexpectedStatus = errors.New("unexpected status")

type Options struct {
	// Timeout applies to every request except beacons.
	Timeout       time.Duration
	BeaconTimeout time.Duration
	// HTTPClient overrides the default client. Its Timeout is left alone.
	HTTPClient *http.Client
}

type Client struct {
	base          *url.URL
	http          *http.Client
	beaconTimeout time.Duration
	log           logger.Logger

	inflight sync.WaitGroup
}

func NewClient(baseURL string, opts Options, log logger.Logger) (*Client, error) {
	u, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid server url %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid server url %q: scheme must be http or https", baseURL)
	}

	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.BeaconTimeout <= 0 {
		opts.BeaconTimeout = DefaultBeaconTimeout
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: opts.Timeout}
	}

	return &Client{
		base:          u,
		http:          hc,
		beaconTimeout: opts.BeaconTimeout,
		log:           log.Named("remote"),
	}, nil
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.base
	u.Path = strings.TrimSuffix(u.Path, "/") + path
	u.RawQuery = query.Encode()
	return u.String()
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body []byte) (int, []byte, error) {
	var rd io.Reader = http.NoBody
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, query), rd)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "cloudesk-cli/"+version.Version)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer utils.Close(resp.Body)

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("%s %s: read body: %w", method, path, err)
	}
	return resp.StatusCode, data, nil
}

func unexpected(method, path string, code int, body []byte) error {
	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return fmt.Errorf("%w: %s %s returned %d: %s", ErrUnexpectedStatus, method, path, code, msg)
}

// Health checks that the server answers.
func (c *Client) Health(ctx context.Context) error {
	code, body, err := c.do(ctx, http.MethodGet, "/healthz", nil, nil)
	if err != nil {
		return err
	}
	if code != http.StatusOK {
		return unexpected(http.MethodGet, "/healthz", code, body)
	}
	return nil
}

// BaseURL returns the server URL the client talks to.
func (c *Client) BaseURL() string { return c.base.String() }

// Slot returns the remote document of kind k.
func (c *Client) Slot(k guard.Kind) *Slot {
	return &Slot{client: c, kind: k, path: "/api/" + k.Name}
}

// Wait blocks until in-flight beacons finish or timeout elapses. It reports
// whether they all finished.
func (c *Client) Wait(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		c.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}

// Slot is one remote document. It satisfies syncengine.Remote.
type Slot struct {
	client *Client
	kind   guard.Kind
	path   string
}

// Read fetches the stored snapshot. The server answers a JSON null when the
// slot is empty, which is reported as found == false.
func (s *Slot) Read(ctx context.Context) ([]byte, bool, error) {
	code, body, err := s.client.do(ctx, http.MethodGet, s.path, nil, nil)
	if err != nil {
		return nil, false, err
	}
	if code != http.StatusOK {
		return nil, false, unexpected(http.MethodGet, s.path, code, body)
	}
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, false, nil
	}
	return trimmed, true, nil
}

// Write pushes raw. A 409 is decoded into the returned conflict.
func (s *Slot) Write(ctx context.Context, raw []byte) (*guard.Conflict, error) {
	code, body, err := s.client.do(ctx, http.MethodPost, s.path, nil, raw)
	if err != nil {
		return nil, err
	}

	switch code {
	case http.StatusOK, http.StatusCreated, http.StatusNoContent:
		return nil, nil
	case http.StatusConflict:
		var c guard.Conflict
		if err := json.Unmarshal(body, &c); err != nil {
			return nil, fmt.Errorf("decode conflict: %w", err)
		}
		if len(c.ServerData) == 0 || string(c.ServerData) == "null" {
			return nil, fmt.Errorf("%w: conflict without server data", ErrUnexpectedStatus)
		}
		return &c, nil
	default:
		return nil, unexpected(http.MethodPost, s.path, code, body)
	}
}

func (s *Slot) Delete(ctx context.Context) error {
	code, body, err := s.client.do(ctx, http.MethodDelete, s.path, nil, nil)
	if err != nil {
		return err
	}
	if code != http.StatusOK && code != http.StatusNoContent {
		return unexpected(http.MethodDelete, s.path, code, body)
	}
	return nil
}

// Beacon posts raw in the background and returns at once. The response is
// discarded and a failure is only logged; there is no retry.
func (s *Slot) Beacon(raw []byte) {
	c := s.client
	body := bytes.Clone(raw)

	c.inflight.Add(1)
	go func() {
		defer c.inflight.Done()

		ctx, cancel := context.WithTimeout(context.Background(), c.beaconTimeout)
		defer cancel()

		if _, _, err := c.do(ctx, http.MethodPost, s.path, nil, body); err != nil {
			c.log.Debug("teardown push not delivered", logger.String("kind", s.kind.Name), logger.Error(err))
		}
	}()
}
