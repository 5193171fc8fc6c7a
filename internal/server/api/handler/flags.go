package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/replaypad/replaypad/apitypes"
	"github.com/replaypad/replaypad/engine"
	"github.com/replaypad/replaypad/internal/server/api"
)

// LoopSet toggles sequence looping. The payload is a boolean.
func LoopSet(eng *engine.Engine) api.HandlerFunc {
	return func(req *api.Request, res *api.Response, logger *slog.Logger) error {
		enabled, err := parseFlag(req.Payload)
		if err != nil {
			return err
		}
		eng.SetLoop(enabled)
		logger.Info("loop changed", "enabled", enabled)
		return writeFlag(enabled, res)
	}
}

// InvertSet toggles the left/right direction swap applied to sequence frames.
func InvertSet(eng *engine.Engine) api.HandlerFunc {
	return func(req *api.Request, res *api.Response, logger *slog.Logger) error {
		enabled, err := parseFlag(req.Payload)
		if err != nil {
			return err
		}
		eng.SetInvertHorizontal(enabled)
		logger.Info("invert changed", "enabled", enabled)
		return writeFlag(enabled, res)
	}
}

func parseFlag(payload string) (bool, error) {
	raw := strings.TrimSpace(payload)
	if raw == "" {
		return false, api.ErrBadRequest("missing flag payload")
	}
	enabled, err := strconv.ParseBool(raw)
	if err != nil {
		return false, api.ErrBadRequest(fmt.Sprintf("invalid flag value: %s", raw))
	}
	return enabled, nil
}

func writeFlag(enabled bool, res *api.Response) error {
	out, err := json.Marshal(apitypes.FlagResponse{Enabled: enabled})
	if err != nil {
		return api.ErrInternal(fmt.Sprintf("failed to marshal response: %v", err))
	}
	res.JSON = string(out)
	return nil
}
