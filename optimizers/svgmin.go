package optimizers

import (
	"bytes"
	"encoding/xml"
	"io"
	"regexp"
	"strconv"
	"strings"
)

// SVG minification in the scour mold: drop the prolog, comments, and
// descriptive elements, shorten IDs, and round coordinate precision.

// numericAttrs lists the geometry attributes whose numbers get rounded.
var numericAttrs = map[string]bool{
	"d": true, "points": true, "transform": true,
	"x": true, "y": true, "x1": true, "y1": true, "x2": true, "y2": true,
	"cx": true, "cy": true, "r": true, "rx": true, "ry": true,
	"width": true, "height": true, "dx": true, "dy": true,
	"stroke-width": true, "stroke-dasharray": true, "stroke-dashoffset": true,
	"offset": true, "opacity": true, "fill-opacity": true, "stroke-opacity": true,
}

var floatRe = regexp.MustCompile(`-?\d+\.\d+(?:[eE][-+]?\d+)?`)

// roundNumbers rewrites every decimal literal in s at the given precision,
// trimming trailing zeros.
func roundNumbers(s string, precision int) string {
	return floatRe.ReplaceAllStringFunc(s, func(num string) string {
		f, err := strconv.ParseFloat(num, 64)
		if err != nil {
			return num
		}
		out := strconv.FormatFloat(f, 'f', precision, 64)
		if strings.Contains(out, ".") {
			out = strings.TrimRight(out, "0")
			out = strings.TrimRight(out, ".")
		}
		if out == "-0" || out == "" {
			out = "0"
		}
		return out
	})
}

// svgPrecision maps request quality to decimal places kept.
func svgPrecision(quality int) int {
	switch {
	case quality < 50:
		return 3
	case quality < 70:
		return 5
	}
	return 0 // full precision
}

// collectIDRenames walks the document once and maps every id to a short
// replacement (a, b, ..., z, aa, ab, ...).  IDs already at minimum length
// keep their names.
func collectIDRenames(data []byte) map[string]string {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Strict = false
	dec.Entity = xml.HTMLEntity

	var ids []string
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil
		}
		if t, ok := tok.(xml.StartElement); ok {
			for _, attr := range t.Attr {
				if strings.ToLower(attr.Name.Local) == "id" && attr.Name.Space == "" {
					ids = append(ids, attr.Value)
				}
			}
		}
	}

	// Original names stay reserved so a generated short name can never
	// collide with an id that keeps its own.
	renames := make(map[string]string, len(ids))
	used := make(map[string]bool, len(ids))
	for _, id := range ids {
		used[id] = true
	}
	next := 0
	for _, id := range ids {
		if _, seen := renames[id]; seen {
			continue
		}
		short := shortID(next)
		for used[short] {
			next++
			short = shortID(next)
		}
		if len(short) >= len(id) {
			renames[id] = id
			continue
		}
		next++
		renames[id] = short
		used[short] = true
	}
	return renames
}

// shortID yields base-26 names: a..z, aa..az, ba...
func shortID(n int) string {
	var b []byte
	for {
		b = append([]byte{byte('a' + n%26)}, b...)
		n = n/26 - 1
		if n < 0 {
			break
		}
	}
	return string(b)
}

// MinifySVG sanitizes and minifies in one pass over the token stream.
func MinifySVG(data []byte, quality int, stripMetadata bool) ([]byte, error) {
	return transformSVG(data, svgTransformOptions{
		stripMetadata: stripMetadata,
		stripProlog:   true,
		collapseText:  true,
		precision:     svgPrecision(quality),
		idRenames:     collectIDRenames(data),
	})
}
