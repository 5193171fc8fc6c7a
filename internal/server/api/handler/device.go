package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/replaypad/replaypad/apitypes"
	"github.com/replaypad/replaypad/device"
	"github.com/replaypad/replaypad/engine"
	"github.com/replaypad/replaypad/internal/server/api"
)

// DeviceConnect returns a handler that plugs in a virtual device. The payload
// is either a bare kind string or a ConnectRequest JSON document.
func DeviceConnect(eng *engine.Engine) api.HandlerFunc {
	return func(req *api.Request, res *api.Response, logger *slog.Logger) error {
		payload := strings.TrimSpace(req.Payload)
		if payload == "" {
			return api.ErrBadRequest("missing device kind")
		}

		kindStr := payload
		if strings.HasPrefix(payload, "{") {
			var cr apitypes.ConnectRequest
			if err := json.Unmarshal([]byte(payload), &cr); err != nil {
				return api.ErrBadRequest(fmt.Sprintf("invalid JSON payload: %v", err))
			}
			kindStr = cr.Kind
		}

		kind, err := device.ParseKind(strings.ToLower(kindStr))
		if err != nil {
			return api.ErrBadRequest(err.Error())
		}
		if err := eng.Connect(req.Ctx, kind); err != nil {
			if errors.Is(err, device.ErrUnsupportedKind) {
				return api.ErrBadRequest(err.Error())
			}
			return api.ErrConflict(fmt.Sprintf("connect failed: %v", err))
		}

		out, err := json.Marshal(apitypes.ConnectResponse{Kind: string(kind)})
		if err != nil {
			return api.ErrInternal(fmt.Sprintf("failed to marshal response: %v", err))
		}
		res.JSON = string(out)
		return nil
	}
}

// DeviceDisconnect returns a handler that unplugs the virtual device. A no-op
// when already disconnected.
func DeviceDisconnect(eng *engine.Engine) api.HandlerFunc {
	return func(req *api.Request, res *api.Response, logger *slog.Logger) error {
		if err := eng.Disconnect(); err != nil {
			return api.ErrInternal(fmt.Sprintf("disconnect failed: %v", err))
		}
		res.JSON = "{}"
		return nil
	}
}
