// Package frame defines the run-length input model: a Frame is one logical
// controller state held for a number of target-frame ticks, and a Sequence is
// the ordered list of Frames loaded for playback.
package frame

import "fmt"

// Numpad-style 8-way directions plus neutral. The values match the layout of
// a numeric keypad, which is how upstream analysis tools emit them.
const (
	DirDownLeft  uint8 = 1
	DirDown      uint8 = 2
	DirDownRight uint8 = 3
	DirLeft      uint8 = 4
	DirNeutral   uint8 = 5
	DirRight     uint8 = 6
	DirUpLeft    uint8 = 7
	DirUp        uint8 = 8
	DirUpRight   uint8 = 9
)

// Frame is one run-length row. Duration counts target-frame ticks and must be
// at least 1. Buttons maps logical button identifiers to pressed state.
// Analog fields are unused by sequence playback and stay neutral unless a
// caller fills them in for manual input.
type Frame struct {
	Duration  uint32          `json:"duration"`
	Direction uint8           `json:"direction"`
	Buttons   map[string]bool `json:"buttons"`

	ThumbLX int16 `json:"thumbLx,omitempty"`
	ThumbLY int16 `json:"thumbLy,omitempty"`
	ThumbRX int16 `json:"thumbRx,omitempty"`
	ThumbRY int16 `json:"thumbRy,omitempty"`

	LeftTrigger  uint8 `json:"leftTrigger,omitempty"`
	RightTrigger uint8 `json:"rightTrigger,omitempty"`
}

// Validate reports whether the frame satisfies the model invariants.
func (f *Frame) Validate() error {
	if f.Duration < 1 {
		return fmt.Errorf("%w: duration must be >= 1", ErrMalformedInput)
	}
	if f.Direction < DirDownLeft || f.Direction > DirUpRight {
		return fmt.Errorf("%w: direction %d out of range 1..9", ErrMalformedInput, f.Direction)
	}
	return nil
}

// Pressed returns whether the named logical button is held in this frame.
// Buttons absent from the map are released.
func (f *Frame) Pressed(name string) bool {
	return f.Buttons[name]
}

// Sequence is an ordered list of Frames. Order is playback order. A Sequence
// is immutable once built; reloading replaces it wholesale.
type Sequence struct {
	frames []Frame
	total  uint64
}

// NewSequence validates every frame and builds a Sequence. The whole input is
// rejected on the first invalid frame; no partial sequence is ever returned.
func NewSequence(frames []Frame) (*Sequence, error) {
	var total uint64
	for i := range frames {
		if err := frames[i].Validate(); err != nil {
			return nil, fmt.Errorf("frame %d: %w", i, err)
		}
		total += uint64(frames[i].Duration)
	}
	return &Sequence{frames: frames, total: total}, nil
}

// Len returns the number of steps (run-length rows).
func (s *Sequence) Len() int {
	if s == nil {
		return 0
	}
	return len(s.frames)
}

// At returns the frame at step i.
func (s *Sequence) At(i int) *Frame { return &s.frames[i] }

// TotalDuration returns the summed duration of all frames in target-frame
// ticks.
func (s *Sequence) TotalDuration() uint64 {
	if s == nil {
		return 0
	}
	return s.total
}

// CumulativeDuration returns the summed duration of frames [0..=step]. The
// player derives step deadlines from this, never from per-step increments.
func (s *Sequence) CumulativeDuration(step int) uint64 {
	var cum uint64
	for i := 0; i <= step && i < len(s.frames); i++ {
		cum += uint64(s.frames[i].Duration)
	}
	return cum
}
