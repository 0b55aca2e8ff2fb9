package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	maxResponseBytes = 1 << 20
	maxMessageBytes  = 200
)

// TokenSource gives the adapter read access to the stored bearer token and
// lets it evict the token on 401
type TokenSource interface {
	Token() (string, error)
	Clear() error
}

// Options Client construction options
type Options struct {
	BaseURL        string
	Tokens         TokenSource
	HTTPClient     *http.Client
	Timeout        time.Duration
	Logger         *logrus.Logger
	OnUnauthorized func()
}

// Client wraps every outgoing call to the Memo API: it attaches the bearer
// token when one is stored and evicts it on 401. It never retries.
type Client struct {
	baseURL        string
	tokens         TokenSource
	http           *http.Client
	logger         *logrus.Logger
	onUnauthorized func()
}

// Response is a fully read HTTP response
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// New creates a client
func New(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	return &Client{
		baseURL:        strings.TrimRight(opts.BaseURL, "/"),
		tokens:         opts.Tokens,
		http:           httpClient,
		logger:         log,
		onUnauthorized: opts.OnUnauthorized,
	}
}

// Do sends a JSON request. Non-2xx statuses other than 401 are returned as a
// Response with a nil error so the caller can classify them.
func (c *Client) Do(ctx context.Context, method, path string, body any) (*Response, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	requestID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)

	authenticated, err := c.authorize(req)
	if err != nil {
		return nil, err
	}

	entry := c.logger.WithFields(logrus.Fields{
		"method":        method,
		"path":          path,
		"request_id":    requestID,
		"authenticated": authenticated,
	})

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		entry.WithError(err).Warn("Memo APIへの接続に失敗")
		return nil, &TransportError{Method: method, Path: path, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		entry.WithError(err).Warn("レスポンスの読み込みに失敗")
		return nil, &TransportError{Method: method, Path: path, Status: resp.StatusCode, Err: err}
	}

	entry = entry.WithFields(logrus.Fields{
		"status_code": resp.StatusCode,
		"latency_ms":  time.Since(start).Milliseconds(),
	})

	out := &Response{Status: resp.StatusCode, Header: resp.Header, Body: data}

	if resp.StatusCode == http.StatusUnauthorized {
		entry.Warn("認証エラー: トークンを破棄してログインへ誘導します")
		c.handleUnauthorized()
		return nil, &TransportError{
			Method:  method,
			Path:    path,
			Status:  resp.StatusCode,
			Message: out.ErrorMessage(),
			Err:     ErrUnauthorized,
		}
	}

	entry.Debug("Memo APIのレスポンスを受信")
	return out, nil
}

func (c *Client) authorize(req *http.Request) (bool, error) {
	if c.tokens == nil {
		return false, nil
	}
	token, err := c.tokens.Token()
	if err != nil {
		return false, fmt.Errorf("read access token: %w", err)
	}
	if token == "" {
		return false, nil
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return true, nil
}

func (c *Client) handleUnauthorized() {
	if c.tokens != nil {
		if err := c.tokens.Clear(); err != nil {
			c.logger.WithError(err).Error("トークンの削除に失敗")
		}
	}
	if c.onUnauthorized != nil {
		c.onUnauthorized()
	}
}

// OK reports a 2xx status
func (r *Response) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

// DecodeJSON decodes the body into v
func (r *Response) DecodeJSON(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("decode response body: %w", err)
	}
	return nil
}

// ErrorMessage extracts a message from an {"error","message"} body, falling
// back to the trimmed raw body
func (r *Response) ErrorMessage() string {
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(r.Body, &payload); err == nil {
		switch {
		case payload.Message != "":
			return payload.Message
		case payload.Error != "":
			return payload.Error
		}
	}
	return truncateMessage(strings.TrimSpace(string(r.Body)), maxMessageBytes)
}

// truncateMessage cuts msg to at most limit bytes on a rune boundary
func truncateMessage(msg string, limit int) string {
	if len(msg) <= limit {
		return msg
	}
	end := limit
	for end > 0 && !utf8.RuneStart(msg[end]) {
		end--
	}
	return msg[:end]
}
