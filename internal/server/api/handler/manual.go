package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/replaypad/replaypad/apitypes"
	"github.com/replaypad/replaypad/device"
	"github.com/replaypad/replaypad/engine"
	"github.com/replaypad/replaypad/internal/server/api"
)

// ManualInput applies a live input event to the device, bypassing the
// scheduler. Rejected with 409 while a sequence is playing.
func ManualInput(eng *engine.Engine) api.HandlerFunc {
	return func(req *api.Request, res *api.Response, logger *slog.Logger) error {
		var in apitypes.ManualInputRequest
		if err := json.Unmarshal([]byte(req.Payload), &in); err != nil {
			return api.ErrBadRequest(fmt.Sprintf("invalid manual input payload: %v", err))
		}
		buttons := make(map[string]bool, len(in.Buttons))
		for name, v := range in.Buttons {
			buttons[name] = v != 0
		}
		if err := eng.ManualInput(in.Direction, buttons); err != nil {
			switch {
			case errors.Is(err, engine.ErrSequenceActive):
				return api.ErrConflict(err.Error())
			case errors.Is(err, device.ErrNotConnected):
				return api.ErrConflict(err.Error())
			default:
				return api.ErrBadRequest(err.Error())
			}
		}
		res.JSON = "{}"
		return nil
	}
}
