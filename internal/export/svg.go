package export

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"gonum.org/v1/gonum/floats"
)

var ErrTooFewPoints = errors.New("export: profile needs at least two points")

// ProfileSVG draws temperature against depth, with depth increasing down
// the image.
func ProfileSVG(w io.Writer, depths, temps []float64, width, height int, strokeColor string) error {
	if len(depths) != len(temps) {
		return fmt.Errorf("export: %d depths, %d temperatures", len(depths), len(temps))
	}
	if len(depths) < 2 {
		return ErrTooFewPoints
	}

	minT, maxT := floats.Min(temps), floats.Max(temps)
	minD, maxD := floats.Min(depths), floats.Max(depths)

	// Add padding
	rangeT := maxT - minT
	if rangeT == 0 {
		rangeT = 1
	}
	minT -= rangeT * 0.1
	maxT += rangeT * 0.1
	rangeT = maxT - minT
	rangeD := maxD - minD
	if rangeD == 0 {
		rangeD = 1
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
<path fill="none" stroke="%s" stroke-width="1.5" d="M`,
		width, height, width, height, strokeColor))

	for i := range depths {
		x := (temps[i] - minT) / rangeT * float64(width)
		y := (depths[i] - minD) / rangeD * float64(height)

		if i == 0 {
			sb.WriteString(fmt.Sprintf("%.1f,%.1f", x, y))
		} else {
			sb.WriteString(fmt.Sprintf(" L%.1f,%.1f", x, y))
		}
	}

	sb.WriteString(`"/>
<text x="4" y="14" fill="#888888" font-family="monospace" font-size="12">`)
	sb.WriteString(fmt.Sprintf("T %.4g .. %.4g, depth %.4g .. %.4g", floats.Min(temps), floats.Max(temps), minD, maxD))
	sb.WriteString(`</text>
</svg>
`)
	_, err := io.WriteString(w, sb.String())
	return err
}
