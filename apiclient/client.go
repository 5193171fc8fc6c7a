package apiclient

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/replaypad/replaypad/apitypes"
	"github.com/replaypad/replaypad/engine"
)

// Client provides a high-level interface to the control API, handling request
// formatting, response parsing, and error handling.
type Client struct{ transport *Transport }

// New constructs a high-level API client using the internal low-level
// Transport. The addr parameter specifies the TCP address (host:port) of the
// API server.
func New(addr string) *Client { return &Client{transport: NewTransport(addr)} }

// NewWithPassword constructs a client that authenticates with the given password.
func NewWithPassword(addr, password string) *Client {
	return &Client{transport: NewTransportWithPassword(addr, password)}
}

// NewWithConfig constructs a client with custom transport timeouts.
func NewWithConfig(addr string, cfg *Config) *Client {
	return &Client{transport: NewTransportWithConfig(addr, cfg)}
}

// WithTransport constructs a Client using a custom Transport implementation.
// This is primarily useful for testing.
func WithTransport(t *Transport) *Client { return &Client{transport: t} }

// Ping returns the version and identity of the server.
func (c *Client) Ping() (*apitypes.PingResponse, error) {
	return c.PingCtx(context.Background())
}

// PingCtx is the context-aware version of Ping.
func (c *Client) PingCtx(ctx context.Context) (*apitypes.PingResponse, error) {
	const path = "ping"
	raw, err := c.transport.DoCtx(ctx, path, nil, nil)
	if err != nil {
		return nil, err
	}
	return parse[apitypes.PingResponse](raw)
}

// Status retrieves the full observable engine state.
func (c *Client) Status() (*apitypes.StatusResponse, error) {
	return c.StatusCtx(context.Background())
}

func (c *Client) StatusCtx(ctx context.Context) (*apitypes.StatusResponse, error) {
	const path = "status"
	raw, err := c.transport.DoCtx(ctx, path, nil, nil)
	if err != nil {
		return nil, err
	}
	return parse[apitypes.StatusResponse](raw)
}

// DeviceConnect plugs in a virtual device of the given kind (e.g. "xbox360").
func (c *Client) DeviceConnect(kind string) (*apitypes.ConnectResponse, error) {
	return c.DeviceConnectCtx(context.Background(), kind)
}

func (c *Client) DeviceConnectCtx(ctx context.Context, kind string) (*apitypes.ConnectResponse, error) {
	const path = "device/connect"
	raw, err := c.transport.DoCtx(ctx, path, kind, nil)
	if err != nil {
		return nil, err
	}
	return parse[apitypes.ConnectResponse](raw)
}

// DeviceDisconnect unplugs the virtual device.
func (c *Client) DeviceDisconnect() (*apitypes.ConnectResponse, error) {
	return c.DeviceDisconnectCtx(context.Background())
}

func (c *Client) DeviceDisconnectCtx(ctx context.Context) (*apitypes.ConnectResponse, error) {
	const path = "device/disconnect"
	raw, err := c.transport.DoCtx(ctx, path, nil, nil)
	if err != nil {
		return nil, err
	}
	return parse[apitypes.ConnectResponse](raw)
}

// SequenceLoad uploads a run-length CSV table and replaces the loaded
// sequence wholesale.
func (c *Client) SequenceLoad(csv string) (*apitypes.SequenceLoadResponse, error) {
	return c.SequenceLoadCtx(context.Background(), csv)
}

func (c *Client) SequenceLoadCtx(ctx context.Context, csv string) (*apitypes.SequenceLoadResponse, error) {
	const path = "sequence/load"
	raw, err := c.transport.DoCtx(ctx, path, csv, nil)
	if err != nil {
		return nil, err
	}
	return parse[apitypes.SequenceLoadResponse](raw)
}

// SequenceButtons parses a run-length CSV table and returns its button
// column names without loading it.
func (c *Client) SequenceButtons(csv string) (*apitypes.SequenceButtonsResponse, error) {
	return c.SequenceButtonsCtx(context.Background(), csv)
}

func (c *Client) SequenceButtonsCtx(ctx context.Context, csv string) (*apitypes.SequenceButtonsResponse, error) {
	const path = "sequence/buttons"
	raw, err := c.transport.DoCtx(ctx, path, csv, nil)
	if err != nil {
		return nil, err
	}
	return parse[apitypes.SequenceButtonsResponse](raw)
}

// MappingLoad uploads a mapping document (JSON) and replaces the active
// button mapping.
func (c *Client) MappingLoad(doc string) (*apitypes.MappingLoadResponse, error) {
	return c.MappingLoadCtx(context.Background(), doc)
}

func (c *Client) MappingLoadCtx(ctx context.Context, doc string) (*apitypes.MappingLoadResponse, error) {
	const path = "mapping/load"
	raw, err := c.transport.DoCtx(ctx, path, doc, nil)
	if err != nil {
		return nil, err
	}
	return parse[apitypes.MappingLoadResponse](raw)
}

// Playback issues a transport command: "start", "stop", "pause" or "resume".
func (c *Client) Playback(action string) (*apitypes.PlaybackResponse, error) {
	return c.PlaybackCtx(context.Background(), action)
}

func (c *Client) PlaybackCtx(ctx context.Context, action string) (*apitypes.PlaybackResponse, error) {
	pathParams := map[string]string{"action": action}
	const path = "playback/{action}"
	raw, err := c.transport.DoCtx(ctx, path, nil, pathParams)
	if err != nil {
		return nil, err
	}
	return parse[apitypes.PlaybackResponse](raw)
}

// RateSet configures the scheduler tick rate in Hz (1-240).
func (c *Client) RateSet(rate uint32) (*apitypes.RateResponse, error) {
	return c.RateSetCtx(context.Background(), rate)
}

func (c *Client) RateSetCtx(ctx context.Context, rate uint32) (*apitypes.RateResponse, error) {
	const path = "rate/set"
	raw, err := c.transport.DoCtx(ctx, path, fmt.Sprintf("%d", rate), nil)
	if err != nil {
		return nil, err
	}
	return parse[apitypes.RateResponse](raw)
}

// RateGet reports the configured tick rate.
func (c *Client) RateGet() (*apitypes.RateResponse, error) {
	return c.RateGetCtx(context.Background())
}

func (c *Client) RateGetCtx(ctx context.Context) (*apitypes.RateResponse, error) {
	const path = "rate/get"
	raw, err := c.transport.DoCtx(ctx, path, nil, nil)
	if err != nil {
		return nil, err
	}
	return parse[apitypes.RateResponse](raw)
}

// LoopSet toggles sequence looping.
func (c *Client) LoopSet(enabled bool) (*apitypes.FlagResponse, error) {
	return c.LoopSetCtx(context.Background(), enabled)
}

func (c *Client) LoopSetCtx(ctx context.Context, enabled bool) (*apitypes.FlagResponse, error) {
	const path = "loop/set"
	raw, err := c.transport.DoCtx(ctx, path, fmt.Sprintf("%t", enabled), nil)
	if err != nil {
		return nil, err
	}
	return parse[apitypes.FlagResponse](raw)
}

// InvertSet toggles the horizontal direction swap.
func (c *Client) InvertSet(enabled bool) (*apitypes.FlagResponse, error) {
	return c.InvertSetCtx(context.Background(), enabled)
}

func (c *Client) InvertSetCtx(ctx context.Context, enabled bool) (*apitypes.FlagResponse, error) {
	const path = "invert/set"
	raw, err := c.transport.DoCtx(ctx, path, fmt.Sprintf("%t", enabled), nil)
	if err != nil {
		return nil, err
	}
	return parse[apitypes.FlagResponse](raw)
}

// ManualInput applies a live input event to the device immediately.
func (c *Client) ManualInput(req apitypes.ManualInputRequest) error {
	return c.ManualInputCtx(context.Background(), req)
}

func (c *Client) ManualInputCtx(ctx context.Context, req apitypes.ManualInputRequest) error {
	const path = "manual"
	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal manual input request: %w", err)
	}
	raw, err := c.transport.DoCtx(ctx, path, string(payload), nil)
	if err != nil {
		return err
	}
	_, err = parse[struct{}](raw)
	return err
}

// Events opens the notification stream and delivers decoded events on the
// returned channel until ctx is cancelled or the connection drops, at which
// point the channel is closed.
func (c *Client) Events(ctx context.Context) (<-chan engine.Event, error) {
	const path = "events"
	conn, err := c.transport.Stream(ctx, path, nil)
	if err != nil {
		return nil, err
	}
	ch := make(chan engine.Event, 16)
	go func() {
		defer close(ch)
		defer conn.Close()
		go func() {
			<-ctx.Done()
			conn.Close()
		}()
		scanner := bufio.NewScanner(conn)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			var ev engine.Event
			if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil {
				continue
			}
			select {
			case ch <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}

func parse[T any](data string) (*T, error) {
	if data == "" {
		return nil, errors.New("empty response")
	}
	var problem apitypes.ApiError
	if err := json.Unmarshal([]byte(data), &problem); err == nil && (problem.Status != 0 || problem.Title != "") {
		return nil, &problem
	}
	var out T
	dec := json.NewDecoder(bytes.NewReader([]byte(data)))
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return &out, nil
}
