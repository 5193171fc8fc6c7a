package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/replaypad/replaypad/apitypes"
	"github.com/replaypad/replaypad/engine"
	"github.com/replaypad/replaypad/frame"
	"github.com/replaypad/replaypad/internal/server/api"
)

// SequenceLoad returns a handler that decodes a run-length table from the
// payload and loads it into the engine. A malformed table is rejected
// wholesale and the previously loaded sequence stays playable.
func SequenceLoad(eng *engine.Engine) api.HandlerFunc {
	return func(req *api.Request, res *api.Response, logger *slog.Logger) error {
		if req.Payload == "" {
			return api.ErrBadRequest("missing input table payload")
		}
		seq, err := frame.DecodeString(req.Payload)
		if err != nil {
			if errors.Is(err, frame.ErrMalformedInput) || errors.Is(err, frame.ErrParse) {
				return api.ErrBadRequest(err.Error())
			}
			return api.ErrInternal(fmt.Sprintf("decode failed: %v", err))
		}
		eng.LoadSequence(seq)

		out, err := json.Marshal(apitypes.SequenceLoadResponse{
			Steps:       seq.Len(),
			TotalFrames: seq.TotalDuration(),
		})
		if err != nil {
			return api.ErrInternal(fmt.Sprintf("failed to marshal response: %v", err))
		}
		res.JSON = string(out)
		return nil
	}
}

// SequenceButtons returns a handler that lists the button columns of an
// input table without loading it.
func SequenceButtons() api.HandlerFunc {
	return func(req *api.Request, res *api.Response, logger *slog.Logger) error {
		if req.Payload == "" {
			return api.ErrBadRequest("missing input table payload")
		}
		names, err := frame.ButtonColumns(strings.NewReader(req.Payload))
		if err != nil {
			return api.ErrBadRequest(err.Error())
		}
		out, err := json.Marshal(apitypes.SequenceButtonsResponse{Buttons: names})
		if err != nil {
			return api.ErrInternal(fmt.Sprintf("failed to marshal response: %v", err))
		}
		res.JSON = string(out)
		return nil
	}
}
