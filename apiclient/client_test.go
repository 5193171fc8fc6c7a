package apiclient_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/replaypad/replaypad/apiclient"
	"github.com/replaypad/replaypad/apitypes"
)

// testClient constructs a client backed by a simple in-memory responder.
// responses maps path patterns (as registered, before path param
// substitution) to raw JSON payloads. If err is non-nil, every request
// returns that error, simulating dial failures.
func testClient(responses map[string]string, err error) *apiclient.Client {
	return apiclient.WithTransport(apiclient.NewMockTransport(func(path string, _ any, _ map[string]string) (string, error) {
		if err != nil {
			return "", err
		}
		if out, ok := responses[path]; ok {
			return out, nil
		}
		return "", nil
	}))
}

func TestHighLevelClient(t *testing.T) {
	tests := []struct {
		name       string
		setup      func(responses map[string]string) (err error)
		call       func(c *apiclient.Client) (any, error)
		wantErr    string
		assertFunc func(t *testing.T, got any)
	}{
		{
			name: "status success",
			setup: func(responses map[string]string) error {
				responses["status"] = `{"connected":true,"state":"playing","step":3,"total":9,"rate":60,"loop":false,"invertHorizontal":false}`
				return nil
			},
			call: func(c *apiclient.Client) (any, error) { return c.Status() },
			assertFunc: func(t *testing.T, got any) {
				resp := got.(*apitypes.StatusResponse)
				assert.True(t, resp.Connected)
				assert.Equal(t, "playing", resp.State)
				assert.Equal(t, 3, resp.Step)
				assert.Equal(t, uint32(60), resp.Rate)
			},
		},
		{
			name: "connect success",
			setup: func(responses map[string]string) error {
				responses["device/connect"] = `{"kind":"xbox360"}`
				return nil
			},
			call: func(c *apiclient.Client) (any, error) { return c.DeviceConnect("xbox360") },
			assertFunc: func(t *testing.T, got any) {
				resp := got.(*apitypes.ConnectResponse)
				assert.Equal(t, "xbox360", resp.Kind)
			},
		},
		{
			name: "connect error structured",
			setup: func(responses map[string]string) error {
				responses["device/connect"] = `{"status":400,"title":"Bad Request","detail":"dualshock4 is not yet supported"}`
				return nil
			},
			call:    func(c *apiclient.Client) (any, error) { return c.DeviceConnect("dualshock4") },
			wantErr: "400 Bad Request: dualshock4 is not yet supported",
		},
		{
			name: "sequence load",
			setup: func(responses map[string]string) error {
				responses["sequence/load"] = `{"steps":2,"totalFrames":5}`
				return nil
			},
			call: func(c *apiclient.Client) (any, error) {
				return c.SequenceLoad("duration,direction,button1\n3,5,0\n2,8,1")
			},
			assertFunc: func(t *testing.T, got any) {
				resp := got.(*apitypes.SequenceLoadResponse)
				assert.Equal(t, 2, resp.Steps)
				assert.Equal(t, uint64(5), resp.TotalFrames)
			},
		},
		{
			name: "playback transport command",
			setup: func(responses map[string]string) error {
				responses["playback/{action}"] = `{"state":"playing","step":0,"total":2}`
				return nil
			},
			call: func(c *apiclient.Client) (any, error) { return c.Playback("start") },
			assertFunc: func(t *testing.T, got any) {
				resp := got.(*apitypes.PlaybackResponse)
				assert.Equal(t, "playing", resp.State)
			},
		},
		{
			name: "rate rejected",
			setup: func(responses map[string]string) error {
				responses["rate/set"] = `{"status":400,"title":"Bad Request","detail":"invalid rate: 300 not in 1-240 Hz"}`
				return nil
			},
			call:    func(c *apiclient.Client) (any, error) { return c.RateSet(300) },
			wantErr: "400 Bad Request",
		},
		{
			name:    "transport failure",
			setup:   func(responses map[string]string) error { return errors.New("dial fail") },
			call:    func(c *apiclient.Client) (any, error) { return c.Status() },
			wantErr: "dial fail",
		},
		{
			name:    "blank response error",
			setup:   func(responses map[string]string) error { return nil },
			call:    func(c *apiclient.Client) (any, error) { return c.Status() },
			wantErr: "empty response",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			responses := map[string]string{}
			errInject := error(nil)
			if tt.setup != nil {
				if e := tt.setup(responses); e != nil {
					errInject = e
				}
			}
			c := testClient(responses, errInject)
			got, err := tt.call(c)
			if tt.wantErr != "" {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			assert.NoError(t, err)
			if tt.assertFunc != nil {
				tt.assertFunc(t, got)
			}
		})
	}
}

func TestContextCancellation(t *testing.T) {
	c := apiclient.WithTransport(apiclient.NewTransport("127.0.0.1:9")) // address irrelevant due to early cancel
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.StatusCtx(ctx)
	assert.Error(t, err)
}

func TestManualInputError(t *testing.T) {
	responses := map[string]string{
		"manual": `{"status":409,"title":"Conflict","detail":"sequence playback active"}`,
	}
	c := testClient(responses, nil)
	err := c.ManualInput(apitypes.ManualInputRequest{Direction: 5})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "409 Conflict")
}
