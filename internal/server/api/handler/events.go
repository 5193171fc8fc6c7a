package handler

import (
	"encoding/json"
	"log/slog"
	"net"

	"github.com/replaypad/replaypad/engine"
	"github.com/replaypad/replaypad/internal/server/api"
)

// Events streams engine change notifications as newline-delimited JSON for
// the lifetime of the connection. A snapshot of the current state is sent
// first so clients never start blind.
func Events(eng *engine.Engine) api.StreamHandlerFunc {
	return func(conn net.Conn, logger *slog.Logger) error {
		defer conn.Close()

		ch, cancel := eng.Subscribe()
		defer cancel()

		st := eng.Status()
		snapshot := engine.Event{
			Kind:      engine.EventPlayback,
			State:     st.State.String(),
			Connected: st.Connected,
			Step:      st.Step,
			Total:     st.Total,
		}
		if err := writeEvent(conn, snapshot); err != nil {
			return nil
		}

		logger.Debug("event stream attached")
		for ev := range ch {
			if err := writeEvent(conn, ev); err != nil {
				// Client went away.
				logger.Debug("event stream detached", "error", err)
				return nil
			}
		}
		return nil
	}
}

func writeEvent(conn net.Conn, ev engine.Event) error {
	out, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	out = append(out, '\n')
	_, err = conn.Write(out)
	return err
}
