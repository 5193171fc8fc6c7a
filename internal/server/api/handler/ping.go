// Package handler contains the control API operation handlers, one file per
// concern.
package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/replaypad/replaypad/apitypes"
	"github.com/replaypad/replaypad/internal/server/api"
)

const (
	serverName    = "replaypad"
	serverVersion = "0.3.0"
)

// Ping returns a handler that reports server identity and version.
func Ping() api.HandlerFunc {
	return func(req *api.Request, res *api.Response, logger *slog.Logger) error {
		out, err := json.Marshal(apitypes.PingResponse{Server: serverName, Version: serverVersion})
		if err != nil {
			return api.ErrInternal(fmt.Sprintf("failed to marshal response: %v", err))
		}
		res.JSON = string(out)
		return nil
	}
}
