package firebase

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"livetask/internal/service"
)

// maxEventSize bounds a single server-sent event line.
const maxEventSize = 16 << 20

var errAuthRevoked = errors.New("auth revoked")

// cancelledError is sent by the server when the security rules no longer
// allow reading the location. It ends the subscription.
type cancelledError struct {
	reason string
}

func (e *cancelledError) Error() string {
	return "subscription cancelled: " + e.reason
}

type event struct {
	name string
	data []byte
}

type eventPayload struct {
	Path string          `json:"path"`
	Data json.RawMessage `json:"data"`
}

// Listen implements service.Database. It streams the location at path and
// calls fn with the full ordered child set after every data event. Dropped
// streams are reconnected with exponential backoff. Listen returns nil when
// ctx is cancelled, or an error if the first attach is rejected or the
// server cancels the subscription.
func (c *Client) Listen(ctx context.Context, path string, fn func(service.Snapshot)) error {
	backoff := c.minBackoff
	attached := false

	for {
		var t tree
		received, err := c.stream(ctx, path, &t, fn)
		if ctx.Err() != nil {
			return nil
		}
		attached = attached || received

		var cancelled *cancelledError
		if errors.As(err, &cancelled) {
			return err
		}
		if !attached && isTerminal(err) {
			return wrapError(err)
		}
		if received {
			backoff = c.minBackoff
		}

		c.log.Warn("stream dropped, reconnecting",
			zap.String("path", path), zap.Error(err), zap.Duration("backoff", backoff))

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
		backoff = min(backoff*2, c.maxBackoff)
	}
}

// isTerminal reports whether retrying err cannot succeed.
func isTerminal(err error) bool {
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		return false
	}
	return httpErr.Status >= 400 && httpErr.Status < 500 && httpErr.Status != http.StatusTooManyRequests
}

// stream runs one streaming connection until it ends. received reports
// whether any data event was applied.
func (c *Client) stream(ctx context.Context, path string, t *tree, fn func(service.Snapshot)) (received bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url(path), nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.http.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return false, readHTTPError(resp)
	}
	c.log.Debug("stream attached", zap.String("path", path))

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), maxEventSize)

	var ev event
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			if ev.name != "" {
				applied, err := c.handle(ev, t)
				if err != nil {
					return received, err
				}
				if applied {
					received = true
					fn(t.snapshot())
				}
			}
			ev = event{}
			continue
		}

		field, value, _ := bytes.Cut(line, []byte(":"))
		value = bytes.TrimPrefix(value, []byte(" "))
		switch string(field) {
		case "event":
			ev.name = string(value)
		case "data":
			if ev.data != nil {
				ev.data = append(ev.data, '\n')
			}
			ev.data = append(ev.data, value...)
		}
	}
	if err := scanner.Err(); err != nil {
		return received, err
	}
	return received, errors.New("stream closed by server")
}

// handle applies one event to t. applied reports whether t changed.
func (c *Client) handle(ev event, t *tree) (applied bool, err error) {
	switch ev.name {
	case "put", "patch":
		var p eventPayload
		if err := json.Unmarshal(ev.data, &p); err != nil {
			return false, fmt.Errorf("decode %s event: %w", ev.name, err)
		}
		value, err := decodeValue(p.Data)
		if err != nil {
			return false, fmt.Errorf("decode %s data: %w", ev.name, err)
		}

		if ev.name == "put" {
			t.set(p.Path, value)
			return true, nil
		}
		fields, ok := value.(map[string]any)
		if !ok {
			return false, fmt.Errorf("patch data at %s is not an object", p.Path)
		}
		t.merge(p.Path, fields)
		return true, nil

	case "keep-alive":
		return false, nil

	case "cancel":
		var reason string
		if json.Unmarshal(ev.data, &reason) != nil || reason == "" {
			reason = strings.TrimSpace(string(ev.data))
		}
		return false, &cancelledError{reason: reason}

	case "auth_revoked":
		return false, errAuthRevoked

	default:
		c.log.Debug("ignoring event", zap.String("event", ev.name))
		return false, nil
	}
}

func decodeValue(raw json.RawMessage) (any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}
