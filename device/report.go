package device

import (
	"encoding/binary"
	"fmt"

	"github.com/replaypad/replaypad/frame"
)

// Button bitmasks (XInput compatible).
const (
	ButtonDPadUp    uint16 = 0x0001
	ButtonDPadDown  uint16 = 0x0002
	ButtonDPadLeft  uint16 = 0x0004
	ButtonDPadRight uint16 = 0x0008
	ButtonStart     uint16 = 0x0010
	ButtonBack      uint16 = 0x0020
	ButtonLThumb    uint16 = 0x0040
	ButtonRThumb    uint16 = 0x0080
	ButtonLShoulder uint16 = 0x0100 // Left bumper (LB)
	ButtonRShoulder uint16 = 0x0200 // Right bumper (RB)
	ButtonGuide     uint16 = 0x0400
	ButtonA         uint16 = 0x1000
	ButtonB         uint16 = 0x2000
	ButtonX         uint16 = 0x4000
	ButtonY         uint16 = 0x8000
)

// TriggerSide selects an analog trigger target.
type TriggerSide uint8

const (
	TriggerNone TriggerSide = iota
	TriggerLeft
	TriggerRight
)

// Target is one physical control a logical button can resolve to: either a
// discrete button bit, or an analog trigger driven to full scale on press.
type Target struct {
	Bit     uint16
	Trigger TriggerSide
}

// Physical control identifiers accepted in mapping documents.
var targetsByName = map[string]Target{
	"a":      {Bit: ButtonA},
	"b":      {Bit: ButtonB},
	"x":      {Bit: ButtonX},
	"y":      {Bit: ButtonY},
	"lb":     {Bit: ButtonLShoulder},
	"rb":     {Bit: ButtonRShoulder},
	"back":   {Bit: ButtonBack},
	"start":  {Bit: ButtonStart},
	"lthumb": {Bit: ButtonLThumb},
	"rthumb": {Bit: ButtonRThumb},
	"guide":  {Bit: ButtonGuide},
	"lt":     {Trigger: TriggerLeft},
	"rt":     {Trigger: TriggerRight},
}

// TargetByName resolves a physical control identifier (case-sensitive,
// lowercase). The bool result is false for unknown identifiers.
func TargetByName(name string) (Target, bool) {
	t, ok := targetsByName[name]
	return t, ok
}

// ButtonSet is the resolved physical side of a frame's logical buttons:
// OR-combined button bits plus trigger magnitudes.
type ButtonSet struct {
	Bits   uint16
	LT, RT uint8
}

// Press ORs a target into the set. Trigger targets drive the magnitude to
// full scale; repeated presses combine via max and never decrement.
func (s *ButtonSet) Press(t Target) {
	switch t.Trigger {
	case TriggerLeft:
		s.LT = maxU8(s.LT, 255)
	case TriggerRight:
		s.RT = maxU8(s.RT, 255)
	default:
		s.Bits |= t.Bit
	}
}

func maxU8(a, b uint8) uint8 {
	if a > b {
		return a
	}
	return b
}

// Report is the wire-level controller snapshot: direction and button bits,
// two trigger magnitudes and four analog axes. A fresh Report is built for
// every update; it is never persisted.
type Report struct {
	Buttons uint16
	LT, RT  uint8
	LX, LY  int16
	RX, RY  int16
}

// ReportSize is the encoded report length in bytes.
const ReportSize = 20

// Neutral returns the all-released report sent on every stop so the physical
// device never latches a stale state.
func Neutral() *Report { return &Report{} }

// DirectionFlags decodes a numpad-style direction into four half-axis flags,
// optionally swapping left and right.
func DirectionFlags(dir uint8, invertHorizontal bool) (up, down, left, right bool) {
	switch dir {
	case frame.DirUp:
		up = true
	case frame.DirDown:
		down = true
	case frame.DirLeft:
		left = true
	case frame.DirRight:
		right = true
	case frame.DirUpLeft:
		up, left = true, true
	case frame.DirUpRight:
		up, right = true, true
	case frame.DirDownLeft:
		down, left = true, true
	case frame.DirDownRight:
		down, right = true, true
	default:
		// 5 and anything else: neutral
	}
	if invertHorizontal {
		left, right = right, left
	}
	return up, down, left, right
}

// SetDirection ORs the direction's D-Pad bits into the report.
func (r *Report) SetDirection(dir uint8, invertHorizontal bool) {
	up, down, left, right := DirectionFlags(dir, invertHorizontal)
	if up {
		r.Buttons |= ButtonDPadUp
	}
	if down {
		r.Buttons |= ButtonDPadDown
	}
	if left {
		r.Buttons |= ButtonDPadLeft
	}
	if right {
		r.Buttons |= ButtonDPadRight
	}
}

// SetButtons applies a resolved ButtonSet to the report.
func (r *Report) SetButtons(s ButtonSet) {
	r.Buttons |= s.Bits
	r.LT = maxU8(r.LT, s.LT)
	r.RT = maxU8(r.RT, s.RT)
}

// Build encodes the report into the 20-byte XInput-style wire layout.
// Layout (indices in the returned slice):
//
//	 0: 0x00              - Report ID
//	 1: 0x14              - Payload size (20 bytes)
//	 2-3: Buttons (little-endian uint16)
//	 4: LT (0-255)
//	 5: RT (0-255)
//	 6-7: LX (little-endian int16)
//	 8-9: LY (little-endian int16)
//	10-11: RX (little-endian int16)
//	12-13: RY (little-endian int16)
//	14-19: Reserved / zero
func (r *Report) Build() []byte {
	b := make([]byte, ReportSize)
	b[0] = 0x00
	b[1] = 0x14
	binary.LittleEndian.PutUint16(b[2:4], r.Buttons)
	b[4] = r.LT
	b[5] = r.RT
	binary.LittleEndian.PutUint16(b[6:8], uint16(r.LX))
	binary.LittleEndian.PutUint16(b[8:10], uint16(r.LY))
	binary.LittleEndian.PutUint16(b[10:12], uint16(r.RX))
	binary.LittleEndian.PutUint16(b[12:14], uint16(r.RY))
	return b
}

// String renders a compact debug form used by trace logging.
func (r *Report) String() string {
	return fmt.Sprintf("buttons=0x%04x lt=%d rt=%d lx=%d ly=%d rx=%d ry=%d",
		r.Buttons, r.LT, r.RT, r.LX, r.LY, r.RX, r.RY)
}
