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

// RateSet configures the scheduler tick rate. The payload is the rate in Hz
// as a decimal string.
func RateSet(eng *engine.Engine) api.HandlerFunc {
	return func(req *api.Request, res *api.Response, logger *slog.Logger) error {
		raw := strings.TrimSpace(req.Payload)
		if raw == "" {
			return api.ErrBadRequest("missing rate payload")
		}
		rate, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			return api.ErrBadRequest(fmt.Sprintf("invalid rate: %s", raw))
		}
		if err := eng.SetRate(uint32(rate)); err != nil {
			return api.ErrBadRequest(err.Error())
		}
		logger.Info("rate changed", "rate", rate)
		return writeRate(eng, res)
	}
}

// RateGet reports the configured tick rate.
func RateGet(eng *engine.Engine) api.HandlerFunc {
	return func(req *api.Request, res *api.Response, logger *slog.Logger) error {
		return writeRate(eng, res)
	}
}

func writeRate(eng *engine.Engine, res *api.Response) error {
	out, err := json.Marshal(apitypes.RateResponse{Rate: eng.Rate()})
	if err != nil {
		return api.ErrInternal(fmt.Sprintf("failed to marshal response: %v", err))
	}
	res.JSON = string(out)
	return nil
}
