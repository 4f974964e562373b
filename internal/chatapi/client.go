// Package chatapi talks to the Safe Traveller web backend: the chat
// endpoint, the session end endpoint and the theme preference endpoint.
package chatapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"safe-traveller/internal/chat"
	"safe-traveller/internal/metrics"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	ChatPath  = "/translate/chat/"
	EndPath   = "/translate/voice/end/"
	ThemePath = "/users/toggle-theme/"

	CSRFCookie    = "csrftoken"
	CSRFHeader    = "X-CSRFToken"
	SessionCookie = "sessionid"
	RequestHeader = "X-Request-ID"

	maxBodyBytes = 1 << 20
)

type Options struct {
	BaseURL       string
	CSRFToken     string
	SessionCookie string
	Timeout       time.Duration
	Logger        *zap.Logger
}

type Client struct {
	base      *url.URL
	http      *http.Client
	csrfToken string
	log       *zap.Logger
}

func New(opts Options) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("base url %q: scheme must be http or https", opts.BaseURL)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}
	if opts.SessionCookie != "" {
		jar.SetCookies(base, []*http.Cookie{{Name: SessionCookie, Value: opts.SessionCookie, Path: "/"}})
	}

	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return &Client{
		base:      base,
		http:      &http.Client{Jar: jar, Timeout: opts.Timeout},
		csrfToken: strings.TrimSpace(opts.CSRFToken),
		log:       log,
	}, nil
}

// Prime fetches the site root so the server can set the csrftoken cookie.
func (c *Client) Prime(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("/"), nil)
	if err != nil {
		return fmt.Errorf("build prime request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("prime csrf cookie: %w", err)
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
	_ = resp.Body.Close()
	return nil
}

// CSRFToken returns the csrftoken cookie for the backend, falling back to
// the configured token.
func (c *Client) CSRFToken() string {
	for _, ck := range c.http.Jar.Cookies(c.base) {
		if ck.Name == CSRFCookie && ck.Value != "" {
			return ck.Value
		}
	}
	return c.csrfToken
}

// Send performs one chat exchange. A decoded reply whose status is not
// "success" is returned together with a KindApplication error.
func (c *Client) Send(ctx context.Context, in chat.Request) (chat.Reply, error) {
	start := time.Now()
	reqID := uuid.NewString()

	var reply chat.Reply
	err := c.postJSON(ctx, ChatPath, reqID, in, &reply)
	if err == nil && reply.Status != chat.StatusSuccess {
		err = &Error{Kind: KindApplication, Err: fmt.Errorf("%w: %q", ErrNotSuccess, reply.Status)}
	}

	kind := KindOf(err)
	metrics.ObserveChat(string(kind), time.Since(start))
	if err != nil {
		c.log.Warn("chat exchange failed",
			zap.String("request_id", reqID),
			zap.String("kind", string(kind)),
			zap.Bool("has_session", in.SessionID != nil),
			zap.Error(err),
		)
		return reply, err
	}
	c.log.Debug("chat exchange",
		zap.String("request_id", reqID),
		zap.String("session_id", reply.SessionID),
		zap.Duration("elapsed", time.Since(start)),
	)
	return reply, nil
}

// End marks a chat session inactive on the server.
func (c *Client) End(ctx context.Context, sessionID string) error {
	var out struct {
		Status string `json:"status"`
	}
	err := c.postJSON(ctx, EndPath, uuid.NewString(), map[string]string{"session_id": sessionID}, &out)
	if err == nil && out.Status != chat.StatusSuccess {
		err = &Error{Kind: KindApplication, Err: fmt.Errorf("%w: %q", ErrNotSuccess, out.Status)}
	}
	metrics.BackendCalls.WithLabelValues("session_end", string(KindOf(err))).Inc()
	if err != nil {
		return fmt.Errorf("end session: %w", err)
	}
	return nil
}

// NotifyTheme reports a theme change. The response body is not inspected.
func (c *Client) NotifyTheme(ctx context.Context, theme string) error {
	err := c.postJSON(ctx, ThemePath, uuid.NewString(), map[string]string{"theme": theme}, nil)
	metrics.BackendCalls.WithLabelValues("toggle_theme", string(KindOf(err))).Inc()
	if err != nil {
		return fmt.Errorf("notify theme: %w", err)
	}
	return nil
}

func (c *Client) postJSON(ctx context.Context, path, reqID string, in any, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return &Error{Kind: KindTransport, Err: fmt.Errorf("encode request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(path), bytes.NewReader(body))
	if err != nil {
		return &Error{Kind: KindTransport, Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(CSRFHeader, c.CSRFToken())
	req.Header.Set(RequestHeader, reqID)

	resp, err := c.http.Do(req)
	if err != nil {
		return &Error{Kind: KindTransport, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return &Error{Kind: KindTransport, HTTPStatus: resp.StatusCode, Err: fmt.Errorf("read response: %w", err)}
	}
	if out == nil {
		if resp.StatusCode >= 300 {
			return &Error{Kind: KindTransport, HTTPStatus: resp.StatusCode, Err: fmt.Errorf("unexpected status %s", resp.Status)}
		}
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		if resp.StatusCode >= 300 {
			return &Error{Kind: KindTransport, HTTPStatus: resp.StatusCode, Err: fmt.Errorf("unexpected status %s", resp.Status)}
		}
		return &Error{Kind: KindMalformed, HTTPStatus: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func (c *Client) endpoint(path string) string {
	u := *c.base
	u.Path = strings.TrimRight(c.base.Path, "/") + path
	return u.String()
}
