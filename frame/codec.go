package frame

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Codec errors. ErrMalformedInput covers structural problems (missing
// duration/direction columns, invariant violations); ErrParse covers cell
// values that fail to parse. Either way the whole decode fails.
var (
	ErrMalformedInput = errors.New("malformed input table")
	ErrParse          = errors.New("parse error")
)

// Table column layout: the first two columns are always duration and
// direction; every remaining column is a logical button keyed by its header.
const (
	colDuration  = "duration"
	colDirection = "direction"
	fixedColumns = 2
)

// Decode parses a run-length input table into a Sequence. The reader must
// yield a header row naming at least the duration and direction columns.
// Unknown button cells that fail to parse are treated as released, matching
// what upstream analysis emits for columns it cannot classify.
func Decode(r io.Reader) (*Sequence, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("%w: empty table", ErrMalformedInput)
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}
	if err := checkHeader(header); err != nil {
		return nil, err
	}

	var frames []Frame
	row := 0
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %v", ErrMalformedInput, row, err)
		}
		if len(rec) < fixedColumns {
			return nil, fmt.Errorf("%w: row %d: missing duration/direction", ErrMalformedInput, row)
		}

		duration, err := strconv.ParseUint(strings.TrimSpace(rec[0]), 10, 32)
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: duration %q: %v", ErrParse, row, rec[0], err)
		}
		direction, err := strconv.ParseUint(strings.TrimSpace(rec[1]), 10, 8)
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: direction %q: %v", ErrParse, row, rec[1], err)
		}

		buttons := make(map[string]bool, len(header)-fixedColumns)
		for i := fixedColumns; i < len(header) && i < len(rec); i++ {
			v, err := strconv.ParseUint(strings.TrimSpace(rec[i]), 10, 8)
			if err != nil {
				continue
			}
			buttons[header[i]] = v != 0
		}

		frames = append(frames, Frame{
			Duration:  uint32(duration),
			Direction: uint8(direction),
			Buttons:   buttons,
		})
		row++
	}

	return NewSequence(frames)
}

// DecodeString is a convenience wrapper over Decode for in-memory tables.
func DecodeString(s string) (*Sequence, error) {
	return Decode(strings.NewReader(s))
}

// Encode writes a Sequence back out as a run-length table. columnOrder fixes
// the button column order (normally the mapping table's sequence subset) so
// round trips are byte-stable regardless of map iteration order.
func Encode(w io.Writer, seq *Sequence, columnOrder []string) error {
	cw := csv.NewWriter(w)

	header := make([]string, 0, fixedColumns+len(columnOrder))
	header = append(header, colDuration, colDirection)
	header = append(header, columnOrder...)
	if err := cw.Write(header); err != nil {
		return err
	}

	rec := make([]string, len(header))
	for i := 0; i < seq.Len(); i++ {
		f := seq.At(i)
		rec[0] = strconv.FormatUint(uint64(f.Duration), 10)
		rec[1] = strconv.FormatUint(uint64(f.Direction), 10)
		for j, name := range columnOrder {
			if f.Pressed(name) {
				rec[fixedColumns+j] = "1"
			} else {
				rec[fixedColumns+j] = "0"
			}
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ButtonColumns returns the logical button names of an input table, i.e. every
// header column after duration and direction.
func ButtonColumns(r io.Reader) ([]string, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("%w: empty table", ErrMalformedInput)
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}
	if err := checkHeader(header); err != nil {
		return nil, err
	}
	names := make([]string, len(header)-fixedColumns)
	copy(names, header[fixedColumns:])
	return names, nil
}

func checkHeader(header []string) error {
	if len(header) < fixedColumns {
		return fmt.Errorf("%w: header needs duration and direction columns", ErrMalformedInput)
	}
	if !strings.EqualFold(strings.TrimSpace(header[0]), colDuration) {
		return fmt.Errorf("%w: first column must be %q, got %q", ErrMalformedInput, colDuration, header[0])
	}
	if !strings.EqualFold(strings.TrimSpace(header[1]), colDirection) {
		return fmt.Errorf("%w: second column must be %q, got %q", ErrMalformedInput, colDirection, header[1])
	}
	return nil
}
