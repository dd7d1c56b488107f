// Package estimation predicts optimization outcomes without paying for a
// full optimization: header analysis picks a sampling strategy, a small
// sample encodes in bounded time, and bits-per-pixel extrapolation scales
// the sample back up to the original.
package estimation

import (
	"bytes"
	"encoding/binary"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"
	"golang.org/x/image/tiff"

	"github.com/amitray007/pare/adapters/pngx"
	"github.com/amitray007/pare/adapters/webpx"
	"github.com/amitray007/pare/core"
)

// HeaderInfo is what a cheap, decode-free parse reveals about an image.
type HeaderInfo struct {
	Format           core.Format
	Dimensions       core.Dimensions
	ColorType        string // "rgb", "rgba", "palette", "grayscale", "cmyk"
	BitDepth         int
	HasICC           bool
	HasEXIF          bool
	EstimatedQuality int  // JPEG only; 0 = unknown
	Progressive      bool // JPEG only
	PaletteColors    int  // PNG palette mode only
	HasMetadata      bool // text chunks, comments, editor namespaces
	FrameCount       int
	FileSize         int
}

// AnalyzeHeader extracts HeaderInfo from the leading bytes of data.  It
// never decodes pixel data, so it is safe on truncated input (range-request
// prefixes included).
func AnalyzeHeader(data []byte, format core.Format) HeaderInfo {
	info := HeaderInfo{Format: format, FileSize: len(data), FrameCount: 1}
	switch format {
	case core.FormatPNG, core.FormatAPNG:
		analyzePNG(data, &info)
	case core.FormatJPEG:
		analyzeJPEG(data, &info)
	case core.FormatGIF:
		analyzeGIF(data, &info)
	case core.FormatBMP:
		analyzeBMP(data, &info)
	case core.FormatTIFF:
		analyzeTIFF(data, &info)
	case core.FormatWebP:
		analyzeWebP(data, &info)
	case core.FormatSVG:
		analyzeSVG(data, &info)
	case core.FormatSVGZ:
		if text, err := gunzipPrefix(data, 1<<20); err == nil {
			analyzeSVG(text, &info)
		}
	}
	return info
}

// ── PNG ───────────────────────────────────────────────────────────────────────

func analyzePNG(data []byte, info *HeaderInfo) {
	_ = pngx.ForEachChunk(data, func(c pngx.Chunk) bool {
		switch c.Type {
		case "IHDR":
			if len(c.Data) >= 13 {
				info.Dimensions.Width = int(binary.BigEndian.Uint32(c.Data[0:4]))
				info.Dimensions.Height = int(binary.BigEndian.Uint32(c.Data[4:8]))
				info.BitDepth = int(c.Data[8])
				switch c.Data[9] {
				case 0:
					info.ColorType = "grayscale"
				case 2:
					info.ColorType = "rgb"
				case 3:
					info.ColorType = "palette"
				case 4:
					info.ColorType = "grayscale"
				case 6:
					info.ColorType = "rgba"
				}
			}
		case "PLTE":
			info.PaletteColors = len(c.Data) / 3
		case "acTL":
			if len(c.Data) >= 4 {
				info.FrameCount = int(binary.BigEndian.Uint32(c.Data[0:4]))
			}
		case "iCCP":
			info.HasICC = true
		case "tEXt", "iTXt", "zTXt":
			info.HasMetadata = true
		case "eXIf":
			info.HasEXIF = true
		case "IDAT":
			return false
		}
		return true
	})
}

// ── JPEG ──────────────────────────────────────────────────────────────────────

func analyzeJPEG(data []byte, info *HeaderInfo) {
	if len(data) < 4 || data[0] != 0xFF || data[1] != 0xD8 {
		return
	}
	pos := 2
	for pos+4 <= len(data) {
		if data[pos] != 0xFF {
			return
		}
		marker := data[pos+1]
		if marker == 0x01 || (marker >= 0xD0 && marker <= 0xD9) {
			pos += 2
			continue
		}
		segLen := int(binary.BigEndian.Uint16(data[pos+2 : pos+4]))
		end := pos + 2 + segLen
		if segLen < 2 || end > len(data) {
			return
		}
		payload := data[pos+4 : end]

		switch {
		case marker == 0xDA: // SOS: header region ends
			return
		case isSOF(marker):
			if len(payload) >= 6 {
				info.BitDepth = int(payload[0])
				info.Dimensions.Height = int(binary.BigEndian.Uint16(payload[1:3]))
				info.Dimensions.Width = int(binary.BigEndian.Uint16(payload[3:5]))
				switch payload[5] {
				case 1:
					info.ColorType = "grayscale"
				case 3:
					info.ColorType = "rgb"
				case 4:
					info.ColorType = "cmyk"
				}
			}
			if marker == 0xC2 || marker == 0xC6 || marker == 0xCA || marker == 0xCE {
				info.Progressive = true
			}
		case marker == 0xDB: // DQT
			if info.EstimatedQuality == 0 {
				info.EstimatedQuality = qualityFromDQT(payload)
			}
		case marker == 0xE1:
			if bytes.HasPrefix(payload, []byte("Exif\x00\x00")) {
				info.HasEXIF = true
			}
		case marker == 0xE2:
			if bytes.HasPrefix(payload, []byte("ICC_PROFILE\x00")) {
				info.HasICC = true
			}
		case marker == 0xFE:
			info.HasMetadata = true
		}
		pos = end
	}
}

func isSOF(marker byte) bool {
	// SOF0-SOF15 excluding DHT (C4), JPG (C8), DAC (CC).
	return marker >= 0xC0 && marker <= 0xCF && marker != 0xC4 && marker != 0xC8 && marker != 0xCC
}

// baseLuminanceAvg is the mean of the unscaled IJG luminance quantization
// table (sum 3688 over 64 entries).
const baseLuminanceAvg = 57.625

// qualityFromDQT estimates source JPEG quality from the first quantization
// table by inverting the IJG scaling formula: scaled = base * scale / 100,
// with scale = 200 - 2q above q50 and 5000/q below.
func qualityFromDQT(payload []byte) int {
	if len(payload) < 65 {
		return 0
	}
	precision := payload[0] >> 4
	table := payload[1:65]
	if precision != 0 {
		return 0 // 16-bit tables: rare, skip
	}
	sum := 0
	for _, v := range table {
		sum += int(v)
	}
	avg := float64(sum) / 64
	if avg <= 0.5 {
		return 100
	}
	scale := (avg / baseLuminanceAvg) * 100.0
	var quality int
	if scale < 100 {
		quality = int((200 - scale) / 2)
	} else {
		quality = int(5000 / scale)
	}
	return core.ClampQuality(quality)
}

// ── GIF ───────────────────────────────────────────────────────────────────────

func analyzeGIF(data []byte, info *HeaderInfo) {
	if len(data) < 13 {
		return
	}
	info.Dimensions.Width = int(binary.LittleEndian.Uint16(data[6:8]))
	info.Dimensions.Height = int(binary.LittleEndian.Uint16(data[8:10]))
	info.ColorType = "palette"
	info.BitDepth = 8

	packed := data[10]
	pos := 13
	if packed&0x80 != 0 { // global color table
		info.PaletteColors = 2 << (packed & 0x07)
		pos += 3 * info.PaletteColors
	}

	frames := 0
	for pos < len(data) {
		switch data[pos] {
		case 0x2C: // image descriptor
			frames++
			if pos+10 > len(data) {
				pos = len(data)
				break
			}
			local := data[pos+9]
			pos += 10
			if local&0x80 != 0 {
				pos += 3 * (2 << (local & 0x07))
			}
			pos++ // LZW minimum code size
			pos = skipSubBlocks(data, pos)
		case 0x21: // extension
			if pos+2 <= len(data) && data[pos+1] == 0xFE {
				info.HasMetadata = true
			}
			pos = skipSubBlocks(data, pos+2)
		case 0x3B: // trailer
			pos = len(data)
		default:
			pos = len(data)
		}
	}
	if frames > 0 {
		info.FrameCount = frames
	}
}

func skipSubBlocks(data []byte, pos int) int {
	for pos < len(data) {
		size := int(data[pos])
		pos++
		if size == 0 {
			return pos
		}
		pos += size
	}
	return pos
}

// ── BMP / TIFF / WebP ─────────────────────────────────────────────────────────

func analyzeBMP(data []byte, info *HeaderInfo) {
	if len(data) < 30 {
		return
	}
	info.Dimensions.Width = int(int32(binary.LittleEndian.Uint32(data[18:22])))
	h := int(int32(binary.LittleEndian.Uint32(data[22:26])))
	if h < 0 {
		h = -h
	}
	info.Dimensions.Height = h
	info.BitDepth = int(binary.LittleEndian.Uint16(data[28:30]))
	if info.BitDepth <= 8 {
		info.ColorType = "palette"
	} else {
		info.ColorType = "rgb"
	}
}

func analyzeTIFF(data []byte, info *HeaderInfo) {
	cfg, err := tiff.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return
	}
	info.Dimensions.Width = cfg.Width
	info.Dimensions.Height = cfg.Height
	info.ColorType = "rgb"
	info.BitDepth = 8
}

func analyzeWebP(data []byte, info *HeaderInfo) {
	wi, err := webpx.Inspect(data)
	if err != nil {
		return
	}
	info.Dimensions.Width = wi.Width
	info.Dimensions.Height = wi.Height
	info.BitDepth = 8
	if wi.HasAlpha {
		info.ColorType = "rgba"
	} else {
		info.ColorType = "rgb"
	}
	info.HasICC = wi.HasICC
	info.HasEXIF = wi.HasEXIF
	info.HasMetadata = wi.HasEXIF || wi.HasXMP
	if wi.FrameCount > 0 {
		info.FrameCount = wi.FrameCount
	}
}

// ── SVG ───────────────────────────────────────────────────────────────────────

var (
	viewBoxRe = regexp.MustCompile(`viewBox="([^"]*)"`)
	widthRe   = regexp.MustCompile(`<svg[^>]*\swidth="([0-9.]+)`)
	heightRe  = regexp.MustCompile(`<svg[^>]*\sheight="([0-9.]+)`)
)

func analyzeSVG(data []byte, info *HeaderInfo) {
	text := string(data)
	if m := viewBoxRe.FindStringSubmatch(text); m != nil {
		parts := strings.Fields(m[1])
		if len(parts) == 4 {
			if w, err := strconv.ParseFloat(parts[2], 64); err == nil {
				info.Dimensions.Width = int(w)
			}
			if h, err := strconv.ParseFloat(parts[3], 64); err == nil {
				info.Dimensions.Height = int(h)
			}
		}
	}
	if info.Dimensions.Width == 0 {
		if m := widthRe.FindStringSubmatch(text); m != nil {
			if w, err := strconv.ParseFloat(m[1], 64); err == nil {
				info.Dimensions.Width = int(w)
			}
		}
		if m := heightRe.FindStringSubmatch(text); m != nil {
			if h, err := strconv.ParseFloat(m[1], 64); err == nil {
				info.Dimensions.Height = int(h)
			}
		}
	}
	lower := strings.ToLower(text)
	info.HasMetadata = strings.Contains(text, "<!--") ||
		strings.Contains(lower, "<metadata") ||
		strings.Contains(text, "xmlns:inkscape") ||
		strings.Contains(text, "xmlns:sodipodi") ||
		strings.Contains(lower, "adobe")
}

func gunzipPrefix(data []byte, limit int64) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	out, err := io.ReadAll(io.LimitReader(zr, limit))
	if err != nil && len(out) == 0 {
		return nil, err
	}
	// Truncated input is fine: the header region is all we need.
	return out, nil
}
