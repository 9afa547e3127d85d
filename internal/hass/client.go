// Package hass reads registries and states from a running Home Assistant
// over its websocket API.
package hass

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"haca/internal/models"
	"haca/internal/utils"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
)

var (
	ErrAuthInvalid = errors.New("home assistant rejected the access token")
	ErrCommand     = errors.New("home assistant command failed")
)

// Config of the websocket client
type Config struct {
	URL        string // http(s):// or ws(s):// base URL of Home Assistant
	Token      string // long-lived access token
	MaxElapsed time.Duration
	Timeout    time.Duration
}

type message struct {
	ID      int             `json:"id,omitempty"`
	Type    string          `json:"type"`
	Success bool            `json:"success,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Message string          `json:"message,omitempty"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Client is a registry provider backed by the websocket API. Commands are
// sent one at a time over a single connection that is re-dialed after any
// failure.
type Client struct {
	cfg    Config
	wsURL  string
	dialer *websocket.Dialer

	mu     sync.Mutex
	conn   *websocket.Conn
	nextID int
}

// WebsocketURL derives the websocket endpoint from a Home Assistant base URL
func WebsocketURL(base string) (string, error) {
	u, err := url.Parse(strings.TrimRight(base, "/"))
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if !strings.HasSuffix(u.Path, "/api/websocket") {
		u.Path += "/api/websocket"
	}
	return u.String(), nil
}

// NewClient creates a client. No connection is made until the first call.
func NewClient(cfg Config) (*Client, error) {
	wsURL, err := WebsocketURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("hass url: %w", err)
	}
	if cfg.MaxElapsed == 0 {
		cfg.MaxElapsed = 30 * time.Second
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		cfg:    cfg,
		wsURL:  wsURL,
		dialer: &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
	}, nil
}

// Close drops the connection
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dropLocked()
}

func (c *Client) dropLocked() error {
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

// connectLocked dials and authenticates, retrying transient failures with
// exponential backoff. A rejected token is not retried.
func (c *Client) connectLocked(ctx context.Context) error {
	if c.conn != nil {
		return nil
	}
	log := utils.Logger("HASS")

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = c.cfg.MaxElapsed
	return backoff.Retry(func() error {
		conn, _, err := c.dialer.DialContext(ctx, c.wsURL, nil)
		if err != nil {
			log.Warnf("Connect to %s failed: %v", c.wsURL, err)
			return err
		}
		if err := authenticate(conn, c.cfg.Token, c.cfg.Timeout); err != nil {
			conn.Close()
			if errors.Is(err, ErrAuthInvalid) {
				return backoff.Permanent(err)
			}
			return err
		}
		c.conn = conn
		c.nextID = 0
		log.Infof("Connected to %s", c.wsURL)
		return nil
	}, backoff.WithContext(bo, ctx))
}

func authenticate(conn *websocket.Conn, token string, timeout time.Duration) error {
	_ = conn.SetReadDeadline(time.Now().Add(timeout))
	defer conn.SetReadDeadline(time.Time{})

	var msg message
	if err := conn.ReadJSON(&msg); err != nil {
		return fmt.Errorf("read auth_required: %w", err)
	}
	if msg.Type != "auth_required" {
		return fmt.Errorf("unexpected %q before auth", msg.Type)
	}
	if err := conn.WriteJSON(map[string]string{"type": "auth", "access_token": token}); err != nil {
		return fmt.Errorf("send auth: %w", err)
	}
	if err := conn.ReadJSON(&msg); err != nil {
		return fmt.Errorf("read auth result: %w", err)
	}
	switch msg.Type {
	case "auth_ok":
		return nil
	case "auth_invalid":
		return fmt.Errorf("%w: %s", ErrAuthInvalid, msg.Message)
	}
	return fmt.Errorf("unexpected %q after auth", msg.Type)
}

// Call sends one command and decodes its result into out
func (c *Client) Call(ctx context.Context, command string, out any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.connectLocked(ctx); err != nil {
		return err
	}
	res, err := c.roundTripLocked(ctx, command)
	if err != nil {
		_ = c.dropLocked()
		return err
	}
	if !res.Success {
		msg := "unknown error"
		if res.Error != nil {
			msg = res.Error.Code + ": " + res.Error.Message
		}
		return fmt.Errorf("%w: %s: %s", ErrCommand, command, msg)
	}
	if err := json.Unmarshal(res.Result, out); err != nil {
		return fmt.Errorf("decode %s: %w", command, err)
	}
	return nil
}

func (c *Client) roundTripLocked(ctx context.Context, command string) (*message, error) {
	c.nextID++
	id := c.nextID

	deadline := time.Now().Add(c.cfg.Timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = c.conn.SetWriteDeadline(deadline)
	_ = c.conn.SetReadDeadline(deadline)

	if err := c.conn.WriteJSON(message{ID: id, Type: command}); err != nil {
		return nil, fmt.Errorf("send %s: %w", command, err)
	}
	for {
		var msg message
		if err := c.conn.ReadJSON(&msg); err != nil {
			return nil, fmt.Errorf("read %s: %w", command, err)
		}
		// Events and replies to abandoned commands are skipped
		if msg.Type == "result" && msg.ID == id {
			return &msg, nil
		}
	}
}

func (c *Client) Entities(ctx context.Context) ([]models.EntityEntry, error) {
	var out []models.EntityEntry
	if err := c.Call(ctx, "config/entity_registry/list", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Devices(ctx context.Context) ([]models.DeviceEntry, error) {
	var out []models.DeviceEntry
	if err := c.Call(ctx, "config/device_registry/list", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ConfigEntries(ctx context.Context) ([]models.ConfigEntry, error) {
	var out []models.ConfigEntry
	if err := c.Call(ctx, "config_entries/get", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) States(ctx context.Context) ([]models.State, error) {
	var out []models.State
	if err := c.Call(ctx, "get_states", &out); err != nil {
		return nil, err
	}
	return out, nil
}
