// Package replay feeds recorded face landmark frames through a fatigue
// session, for offline evaluation of thresholds against captured footage.
package replay

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/ayusman/vigil/internal/detector"
	"github.com/ayusman/vigil/internal/fatigue"
)

// maxLineSize bounds one JSON line. A refined face mesh is ~30 KB.
const maxLineSize = 4 << 20

// ErrNoTimestamp is returned for a line without a positive timestamp_ms.
var ErrNoTimestamp = errors.New("missing timestamp_ms")

// Line is one recorded frame. Faces use the same encoding the face-mesh
// subprocess emits.
type Line struct {
	TimestampMS int64                    `json:"timestamp_ms"`
	Faces       []detector.FaceLandmarks `json:"faces"`
}

// Frame converts l into a session frame.
func (l Line) Frame() fatigue.Frame {
	return fatigue.Frame{
		Faces:     l.Faces,
		Timestamp: time.UnixMilli(l.TimestampMS).UTC(),
	}
}

// Reader decodes JSON lines. Blank lines are skipped.
type Reader struct {
	scanner *bufio.Scanner
	line    int
}

// NewReader returns a Reader over r.
func NewReader(r io.Reader) *Reader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &Reader{scanner: scanner}
}

// Next returns the next frame, or io.EOF when the input is exhausted.
func (r *Reader) Next() (fatigue.Frame, error) {
	for r.scanner.Scan() {
		r.line++
		data := r.scanner.Bytes()
		if len(bytes.TrimSpace(data)) == 0 {
			continue
		}

		var l Line
		if err := json.Unmarshal(data, &l); err != nil {
			return fatigue.Frame{}, fmt.Errorf("line %d: %w", r.line, err)
		}
		if l.TimestampMS <= 0 {
			return fatigue.Frame{}, fmt.Errorf("line %d: %w", r.line, ErrNoTimestamp)
		}
		return l.Frame(), nil
	}
	if err := r.scanner.Err(); err != nil {
		return fatigue.Frame{}, fmt.Errorf("line %d: %w", r.line+1, err)
	}
	return fatigue.Frame{}, io.EOF
}

// ReadAll decodes every frame in r.
func ReadAll(r io.Reader) ([]fatigue.Frame, error) {
	reader := NewReader(r)
	var frames []fatigue.Frame
	for {
		frame, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return frames, nil
		}
		if err != nil {
			return nil, err
		}
		frames = append(frames, frame)
	}
}

// Write encodes frames as JSON lines.
func Write(w io.Writer, frames []fatigue.Frame) error {
	enc := json.NewEncoder(w)
	for _, f := range frames {
		if err := enc.Encode(Line{TimestampMS: f.Timestamp.UnixMilli(), Faces: f.Faces}); err != nil {
			return err
		}
	}
	return nil
}
