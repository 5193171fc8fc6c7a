package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/replaypad/replaypad/apitypes"
	"github.com/replaypad/replaypad/engine"
	"github.com/replaypad/replaypad/internal/server/api"
	"github.com/replaypad/replaypad/mapping"
)

// MappingLoad returns a handler that validates and installs a button-mapping
// document. Unknown controller buttons or duplicate user buttons reject the
// whole document; the previous mapping stays active.
func MappingLoad(eng *engine.Engine) api.HandlerFunc {
	return func(req *api.Request, res *api.Response, logger *slog.Logger) error {
		if req.Payload == "" {
			return api.ErrBadRequest("missing mapping document payload")
		}
		table, doc, err := mapping.ParseJSON([]byte(req.Payload))
		if err != nil {
			return api.ErrBadRequest(err.Error())
		}
		eng.LoadMapping(table)

		out, err := json.Marshal(apitypes.MappingLoadResponse{
			ControllerType: doc.ControllerType,
			Buttons:        table.Len(),
			SequenceOrder:  table.SequenceColumns(),
		})
		if err != nil {
			return api.ErrInternal(fmt.Sprintf("failed to marshal response: %v", err))
		}
		res.JSON = string(out)
		return nil
	}
}
