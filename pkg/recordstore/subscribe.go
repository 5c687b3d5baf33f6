package recordstore

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/abrezinsky/voterreg/internal/models"
	"github.com/abrezinsky/voterreg/internal/retry"
)

// realtimeURL converts the base URL to the realtime WebSocket endpoint
func (c *HTTPClient) realtimeURL(table string) (string, error) {
	u, err := url.Parse(c.baseURL + "/realtime")
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	q := u.Query()
	q.Set("table", table)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Subscribe connects to the realtime feed and calls handler for each change
// event on table. Dropped connections are re-established with backoff. It
// returns when ctx ends.
func (c *HTTPClient) Subscribe(ctx context.Context, table string, handler func(models.ChangeEvent)) error {
	endpoint, err := c.realtimeURL(table)
	if err != nil {
		return err
	}

	failures := 0
	for {
		connected, err := c.listen(ctx, endpoint, table, handler)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if connected {
			failures = 0
		}
		failures++
		delay := c.reconnect.Delay(failures)
		c.log.Warn("Realtime feed disconnected, reconnecting", "table", table, "error", err, "retry_in", delay)
		if err := retry.SleepContext(ctx, delay); err != nil {
			return err
		}
	}
}

// listen holds one connection open until it fails or ctx ends
func (c *HTTPClient) listen(ctx context.Context, endpoint, table string, handler func(models.ChangeEvent)) (bool, error) {
	header := http.Header{}
	header.Set(APIKeyHeader, c.apiKey)

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, endpoint, header)
	if err != nil {
		return false, err
	}
	defer conn.Close()

	c.log.Info("Subscribed to record store changes", "table", table)

	// unblock ReadMessage when ctx ends
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
			conn.Close()
		case <-stop:
		}
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return true, err
		}

		var msg struct {
			Type    string             `json:"type"`
			Payload models.ChangeEvent `json:"payload"`
		}
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.log.Warn("Ignoring malformed realtime message", "error", err)
			continue
		}
		if msg.Type != models.MessageChange {
			continue
		}
		if msg.Payload.Table != "" && !strings.EqualFold(msg.Payload.Table, table) {
			continue
		}
		handler(msg.Payload)
	}
}
