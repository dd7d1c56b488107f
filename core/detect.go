package core

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/klauspost/compress/gzip"
)

// ── Format detection ──────────────────────────────────────────────────────────

var (
	pngSignature  = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}
	jxlContainer  = []byte{0x00, 0x00, 0x00, 0x0C, 'J', 'X', 'L', ' ', 0x0D, 0x0A, 0x87, 0x0A}
	gzipSignature = []byte{0x1F, 0x8B}
)

// DetectFormat sniffs data and returns the image format.  Detection relies on
// magic bytes only; it never trusts file names or declared content types.
// Returns FormatUnknown when no signature matches.
func DetectFormat(data []byte) Format {
	if len(data) < 4 {
		return FormatUnknown
	}

	// JPEG XL bare codestream: FF 0A.  Checked before JPEG so a truncated
	// marker scan can never misclassify it.
	if data[0] == 0xFF && data[1] == 0x0A {
		return FormatJXL
	}
	// JPEG XL ISOBMFF container.
	if bytes.HasPrefix(data, jxlContainer) {
		return FormatJXL
	}
	// JPEG: FF D8 FF
	if data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF {
		return FormatJPEG
	}
	// PNG family: full 8-byte signature, then split on the acTL chunk.
	if bytes.HasPrefix(data, pngSignature) {
		if IsAPNG(data) {
			return FormatAPNG
		}
		return FormatPNG
	}
	// GIF: GIF87a / GIF89a
	if bytes.HasPrefix(data, []byte("GIF87a")) || bytes.HasPrefix(data, []byte("GIF89a")) {
		return FormatGIF
	}
	// WebP: RIFF....WEBP
	if len(data) >= 12 && bytes.HasPrefix(data, []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WEBP")) {
		return FormatWebP
	}
	// BMP: BM
	if data[0] == 'B' && data[1] == 'M' {
		return FormatBMP
	}
	// TIFF: II*\0 (little endian) or MM\0* (big endian)
	if bytes.HasPrefix(data, []byte{'I', 'I', 0x2A, 0x00}) || bytes.HasPrefix(data, []byte{'M', 'M', 0x00, 0x2A}) {
		return FormatTIFF
	}
	// ISOBMFF ftyp brands: AVIF / HEIC / JXL.
	if f := detectISOBMFF(data); f != FormatUnknown {
		return f
	}
	// SVGZ: gzip wrapper around an SVG document.
	if bytes.HasPrefix(data, gzipSignature) {
		if isGzippedSVG(data) {
			return FormatSVGZ
		}
		return FormatUnknown
	}
	// SVG: XML prolog or bare <svg element.
	if isSVGText(data) {
		return FormatSVG
	}
	return FormatUnknown
}

// IsAPNG reports whether PNG data contains an acTL chunk before the first
// IDAT, which marks it as animated.  Chunks are length(4) + type(4) +
// payload + CRC(4), big endian.
func IsAPNG(data []byte) bool {
	if !bytes.HasPrefix(data, pngSignature) {
		return false
	}
	offset := len(pngSignature)
	for offset+8 <= len(data) {
		length := binary.BigEndian.Uint32(data[offset : offset+4])
		chunkType := string(data[offset+4 : offset+8])
		switch chunkType {
		case "acTL":
			return true
		case "IDAT", "IEND":
			return false
		}
		next := offset + 8 + int(length) + 4
		if next <= offset || next > len(data) {
			return false
		}
		offset = next
	}
	return false
}

// detectISOBMFF walks the ftyp box brand list.  The major brand sits at
// offset 8; compatible brands follow from offset 16 to the end of the box.
func detectISOBMFF(data []byte) Format {
	if len(data) < 16 || !bytes.Equal(data[4:8], []byte("ftyp")) {
		return FormatUnknown
	}
	boxSize := int(binary.BigEndian.Uint32(data[0:4]))
	if boxSize < 16 || boxSize > len(data) {
		boxSize = len(data)
	}
	brands := []string{string(data[8:12])}
	for off := 16; off+4 <= boxSize; off += 4 {
		brands = append(brands, string(data[off:off+4]))
	}
	for _, b := range brands {
		switch b {
		case "avif", "avis":
			return FormatAVIF
		case "jxl ":
			return FormatJXL
		case "heic", "heix", "hevc", "hevx", "heim", "heis", "hevm", "hevs", "mif1", "msf1":
			return FormatHEIC
		}
	}
	return FormatUnknown
}

// isSVGText checks for an SVG document start after an optional UTF-8 BOM and
// leading whitespace.
func isSVGText(data []byte) bool {
	head := bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})
	head = bytes.TrimLeft(head, " \t\r\n")
	if len(head) > 512 {
		head = head[:512]
	}
	if bytes.HasPrefix(head, []byte("<svg")) {
		return true
	}
	if bytes.HasPrefix(head, []byte("<?xml")) || bytes.HasPrefix(head, []byte("<!DOCTYPE svg")) {
		// Prolog alone is not enough; the svg element must follow.
		return bytes.Contains(data, []byte("<svg"))
	}
	return false
}

// isGzippedSVG decompresses up to 4 KiB and re-runs the SVG text check.
func isGzippedSVG(data []byte) bool {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return false
	}
	defer zr.Close()
	head := make([]byte, 4096)
	n, err := io.ReadFull(zr, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return false
	}
	return isSVGText(head[:n])
}

// FormatFromContentType maps MIME types to Format values, used as a hint
// only; byte detection always wins.
func FormatFromContentType(ct string) Format {
	switch ct {
	case "image/jpeg", "image/jpg":
		return FormatJPEG
	case "image/png":
		return FormatPNG
	case "image/apng":
		return FormatAPNG
	case "image/webp":
		return FormatWebP
	case "image/gif":
		return FormatGIF
	case "image/svg+xml":
		return FormatSVG
	case "image/avif":
		return FormatAVIF
	case "image/heic", "image/heif":
		return FormatHEIC
	case "image/tiff":
		return FormatTIFF
	case "image/bmp", "image/x-ms-bmp":
		return FormatBMP
	case "image/jxl":
		return FormatJXL
	}
	return FormatUnknown
}
