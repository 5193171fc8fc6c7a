package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/replaypad/replaypad/apitypes"
	"github.com/replaypad/replaypad/engine"
	"github.com/replaypad/replaypad/internal/server/api"
)

// Playback returns a handler for "playback/{action}" transport commands.
// Pause and resume are aliases for stop and start: no paused position is
// preserved and resuming restarts from step 0.
func Playback(eng *engine.Engine) api.HandlerFunc {
	return func(req *api.Request, res *api.Response, logger *slog.Logger) error {
		action, ok := req.Params["action"]
		if !ok {
			return api.ErrBadRequest("missing action parameter")
		}
		switch action {
		case "start":
			eng.Start()
		case "stop":
			eng.Stop()
		case "pause":
			eng.Pause()
		case "resume":
			eng.Resume()
		default:
			return api.ErrBadRequest(fmt.Sprintf("unknown playback action: %s", action))
		}

		st := eng.Status()
		out, err := json.Marshal(apitypes.PlaybackResponse{
			State: st.State.String(),
			Step:  st.Step,
			Total: st.Total,
		})
		if err != nil {
			return api.ErrInternal(fmt.Sprintf("failed to marshal response: %v", err))
		}
		res.JSON = string(out)
		return nil
	}
}
