// Package overlay draws the tracker HUD onto preview frames.
package overlay

import (
	"bytes"
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/ayusman/ptrack/internal/tracker"
)

var (
	textColor    = color.RGBA{R: 255, G: 255, B: 255, A: 0}
	armedColor   = color.RGBA{G: 200, A: 0}
	waitColor    = color.RGBA{R: 160, G: 160, B: 160, A: 0}
	warnColor    = color.RGBA{R: 255, A: 0}
	levelColor   = color.RGBA{R: 255, G: 215, A: 0}
	successColor = color.RGBA{G: 255, B: 255, A: 0}
	handColor    = color.RGBA{B: 255, G: 128, A: 0}
)

const (
	font      = gocv.FontHersheySimplex
	lineStep  = 28
	marginX   = 12
	textScale = 0.7
)

// Lines returns the status text shown in the top-left corner.
func Lines(s tracker.Snapshot) []string {
	angle := "--"
	if s.Angle != nil {
		angle = fmt.Sprintf("%.0f", *s.Angle)
	}
	armed := "return to neutral"
	if s.Armed {
		armed = "ready"
	}
	return []string{
		fmt.Sprintf("Angle: %s", angle),
		fmt.Sprintf("Direction: %s (%s hand)", s.Direction, s.Handedness),
		fmt.Sprintf("Target: fwd %d / back %d", s.TargetForward, s.TargetBackward),
		fmt.Sprintf("Reps: %d (last %d)", s.Reps, s.RepsLast),
		armed,
	}
}

// Draw renders the snapshot and, when present, the measured wrist and
// fingertip onto frame in place.
func Draw(frame *gocv.Mat, s tracker.Snapshot, m tracker.Measurement) {
	if frame == nil || frame.Empty() {
		return
	}

	if m.Wrist != nil && m.Fingertip != nil {
		wrist := image.Pt(int(m.Wrist.X), int(m.Wrist.Y))
		tip := image.Pt(int(m.Fingertip.X), int(m.Fingertip.Y))
		c := handColor
		if s.Success {
			c = successColor
		}
		gocv.Line(frame, wrist, tip, c, 3)
		gocv.Circle(frame, wrist, 6, c, -1)
		gocv.Circle(frame, tip, 6, c, -1)
	}

	lines := Lines(s)
	for i, line := range lines {
		c := textColor
		if i == len(lines)-1 {
			c = waitColor
			if s.Armed {
				c = armedColor
			}
		}
		gocv.PutText(frame, line, image.Pt(marginX, lineStep*(i+1)), font, textScale, c, 2)
	}

	rows := frame.Rows()
	if s.Warning != nil {
		gocv.PutText(frame, *s.Warning, image.Pt(marginX, rows-lineStep), font, textScale, warnColor, 2)
	}
	if s.LevelUp {
		cols := frame.Cols()
		gocv.PutText(frame, "LEVEL UP!", image.Pt(cols/2-90, rows/2), font, 1.4, levelColor, 3)
	}
}

// Encode compresses frame to JPEG.
func Encode(frame *gocv.Mat) ([]byte, error) {
	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *frame)
	if err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	defer buf.Close()
	return bytes.Clone(buf.GetBytes()), nil
}
