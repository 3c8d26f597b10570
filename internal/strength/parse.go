package strength

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Channel names.
const (
	ChannelPalm   = "palm"
	ChannelIndex  = "index"
	ChannelMiddle = "middle"
)

// ErrBadLine is returned by parsers for lines that carry no reading.
var ErrBadLine = errors.New("unparsable reading")

// Parser turns one sensor line into channel readings.
type Parser func(line string) (map[string]float64, error)

const gripPrefix = "SensorValue:"

// ParseGripLine parses "SensorValue:<n>" into the palm channel.
func ParseGripLine(line string) (map[string]float64, error) {
	i := strings.Index(line, gripPrefix)
	if i < 0 {
		return nil, fmt.Errorf("%w: %q", ErrBadLine, line)
	}
	raw := strings.TrimSpace(line[i+len(gripPrefix):])
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrBadLine, line)
	}
	return map[string]float64{ChannelPalm: v}, nil
}

// ParseChannelLine parses comma-separated "name:value" pairs such as
// "index: 1.5, middle: 2". Pieces that are not pairs are ignored; a pair with
// a bad number rejects the whole line.
func ParseChannelLine(line string) (map[string]float64, error) {
	out := make(map[string]float64)
	for _, piece := range strings.Split(line, ",") {
		key, raw, ok := strings.Cut(piece, ":")
		if !ok || strings.Contains(raw, ":") {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		if key == "" {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrBadLine, line)
		}
		out[key] = v
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrBadLine, line)
	}
	return out, nil
}
