package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/replaypad/replaypad/apitypes"
	"github.com/replaypad/replaypad/engine"
	"github.com/replaypad/replaypad/internal/server/api"
)

// Status returns a handler that snapshots connection and playback state.
func Status(eng *engine.Engine) api.HandlerFunc {
	return func(req *api.Request, res *api.Response, logger *slog.Logger) error {
		st := eng.Status()
		out, err := json.Marshal(apitypes.StatusResponse{
			Connected:        st.Connected,
			State:            st.State.String(),
			Step:             st.Step,
			Total:            st.Total,
			Rate:             st.Rate,
			Loop:             st.Loop,
			InvertHorizontal: st.InvertHorizontal,
		})
		if err != nil {
			return api.ErrInternal(fmt.Sprintf("failed to marshal response: %v", err))
		}
		res.JSON = string(out)
		return nil
	}
}
