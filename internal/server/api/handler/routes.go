package handler

import (
	"github.com/replaypad/replaypad/engine"
	"github.com/replaypad/replaypad/internal/server/api"
)

// Register installs every control API route on the router.
func Register(r *api.Router, eng *engine.Engine) {
	r.Register("ping", Ping())
	r.Register("status", Status(eng))
	r.Register("device/connect", DeviceConnect(eng))
	r.Register("device/disconnect", DeviceDisconnect(eng))
	r.Register("sequence/load", SequenceLoad(eng))
	r.Register("sequence/buttons", SequenceButtons())
	r.Register("mapping/load", MappingLoad(eng))
	r.Register("playback/{action}", Playback(eng))
	r.Register("rate/set", RateSet(eng))
	r.Register("rate/get", RateGet(eng))
	r.Register("loop/set", LoopSet(eng))
	r.Register("invert/set", InvertSet(eng))
	r.Register("manual", ManualInput(eng))
	r.RegisterStream("events", Events(eng))
}
