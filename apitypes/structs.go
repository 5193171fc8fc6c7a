// Package apitypes defines the wire DTOs of the control API, shared by the
// server and the client.
package apitypes

import "fmt"

// ApiError represents an RFC 7807 (problem+json) error response.
type ApiError struct {
	// Status is the HTTP-style status code (e.g., 400, 404, 500)
	Status int `json:"status"`
	// Title is a short, human-readable summary of the problem type
	Title string `json:"title"`
	// Detail is a human-readable explanation specific to this occurrence
	Detail string `json:"detail"`
}

func (e ApiError) Error() string {
	if e.Status == 0 && e.Title == "" {
		return "unknown error"
	}
	if e.Status == 0 {
		return fmt.Sprintf("%s: %s", e.Title, e.Detail)
	}
	return fmt.Sprintf("%d %s: %s", e.Status, e.Title, e.Detail)
}

// --

type PingResponse struct {
	Server  string `json:"server"`
	Version string `json:"version"`
}

// StatusResponse is the full observable engine state.
type StatusResponse struct {
	Connected        bool   `json:"connected"`
	State            string `json:"state"`
	Step             int    `json:"step"`
	Total            int    `json:"total"`
	Rate             uint32 `json:"rate"`
	Loop             bool   `json:"loop"`
	InvertHorizontal bool   `json:"invertHorizontal"`
}

type ConnectRequest struct {
	Kind string `json:"kind"`
}

type ConnectResponse struct {
	Kind string `json:"kind"`
}

// SequenceLoadResponse reports the shape of a freshly loaded sequence.
type SequenceLoadResponse struct {
	Steps int `json:"steps"`
	// TotalFrames is the summed duration in target-frame ticks.
	TotalFrames uint64 `json:"totalFrames"`
}

type SequenceButtonsResponse struct {
	Buttons []string `json:"buttons"`
}

type MappingLoadResponse struct {
	ControllerType string   `json:"controllerType"`
	Buttons        int      `json:"buttons"`
	SequenceOrder  []string `json:"sequenceOrder"`
}

// PlaybackResponse echoes the playback state after a transport command.
type PlaybackResponse struct {
	State string `json:"state"`
	Step  int    `json:"step"`
	Total int    `json:"total"`
}

type RateResponse struct {
	Rate uint32 `json:"rate"`
}

type FlagResponse struct {
	Enabled bool `json:"enabled"`
}

// ManualInputRequest is a live input event applied immediately, independent
// of any loaded sequence. Button values follow the run-length table encoding
// (0 released, anything else pressed).
type ManualInputRequest struct {
	Direction uint8            `json:"direction"`
	Buttons   map[string]uint8 `json:"buttons"`
}
