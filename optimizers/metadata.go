package optimizers

import (
	"bytes"
	"encoding/binary"
	"errors"

	"github.com/amitray007/pare/adapters/pngx"
)

// ── JPEG segment-level metadata strip ─────────────────────────────────────────

var errNotJPEG = errors.New("optimizers: not a jpeg stream")

const (
	markerSOI  = 0xD8
	markerSOS  = 0xDA
	markerAPP0 = 0xE0
	markerAPP1 = 0xE1
	markerAPP2 = 0xE2
	markerCOM  = 0xFE
)

// StripJPEGMetadata rewrites the segment stream keeping structural segments,
// the JFIF APP0, and the ICC profile.  A full EXIF block is replaced with a
// minimal one carrying only the orientation tag, so rotation survives while
// GPS positions, timestamps, and thumbnails do not.
func StripJPEGMetadata(data []byte) ([]byte, error) {
	if len(data) < 4 || data[0] != 0xFF || data[1] != markerSOI {
		return nil, errNotJPEG
	}
	out := bytes.NewBuffer(make([]byte, 0, len(data)))
	out.Write(data[:2])

	pos := 2
	for pos+4 <= len(data) {
		if data[pos] != 0xFF {
			return nil, errNotJPEG
		}
		marker := data[pos+1]

		// Standalone markers carry no length.
		if marker == 0x01 || (marker >= 0xD0 && marker <= 0xD9) {
			out.Write(data[pos : pos+2])
			pos += 2
			continue
		}

		segLen := int(binary.BigEndian.Uint16(data[pos+2 : pos+4]))
		end := pos + 2 + segLen
		if segLen < 2 || end > len(data) {
			return nil, errNotJPEG
		}
		segment := data[pos:end]
		payload := segment[4:]

		switch {
		case marker == markerSOS:
			// Entropy-coded data follows; copy the rest verbatim.
			out.Write(data[pos:])
			return out.Bytes(), nil
		case marker == markerAPP0:
			out.Write(segment)
		case marker == markerAPP1 && bytes.HasPrefix(payload, []byte("Exif\x00\x00")):
			if orientation := exifOrientation(payload[6:]); orientation > 1 {
				out.Write(minimalEXIFSegment(orientation))
			}
		case marker == markerAPP2 && bytes.HasPrefix(payload, []byte("ICC_PROFILE\x00")):
			out.Write(segment)
		case marker >= markerAPP1 && marker <= 0xEF:
			// Other APPn: XMP, IPTC, Adobe, thumbnails. Dropped.
		case marker == markerCOM:
			// Comments dropped.
		default:
			out.Write(segment)
		}
		pos = end
	}
	return nil, errNotJPEG
}

// exifOrientation walks IFD0 of a TIFF block and returns the orientation
// tag value, or 0 when absent or malformed.
func exifOrientation(tiff []byte) int {
	if len(tiff) < 8 {
		return 0
	}
	var order binary.ByteOrder
	switch {
	case tiff[0] == 'I' && tiff[1] == 'I':
		order = binary.LittleEndian
	case tiff[0] == 'M' && tiff[1] == 'M':
		order = binary.BigEndian
	default:
		return 0
	}
	if order.Uint16(tiff[2:4]) != 0x2A {
		return 0
	}
	ifdOff := int(order.Uint32(tiff[4:8]))
	if ifdOff < 8 || ifdOff+2 > len(tiff) {
		return 0
	}
	count := int(order.Uint16(tiff[ifdOff : ifdOff+2]))
	for i := 0; i < count; i++ {
		entry := ifdOff + 2 + i*12
		if entry+12 > len(tiff) {
			return 0
		}
		tag := order.Uint16(tiff[entry : entry+2])
		typ := order.Uint16(tiff[entry+2 : entry+4])
		if tag == 0x0112 && typ == 3 { // orientation, SHORT
			v := int(order.Uint16(tiff[entry+8 : entry+10]))
			if v >= 1 && v <= 8 {
				return v
			}
			return 0
		}
	}
	return 0
}

// minimalEXIFSegment builds an APP1 segment whose TIFF block holds a single
// IFD0 entry: the orientation tag.
func minimalEXIFSegment(orientation int) []byte {
	tiff := make([]byte, 0, 26)
	tiff = append(tiff, 'I', 'I', 0x2A, 0x00) // little endian, magic
	tiff = binary.LittleEndian.AppendUint32(tiff, 8)
	tiff = binary.LittleEndian.AppendUint16(tiff, 1)      // one entry
	tiff = binary.LittleEndian.AppendUint16(tiff, 0x0112) // orientation
	tiff = binary.LittleEndian.AppendUint16(tiff, 3)      // SHORT
	tiff = binary.LittleEndian.AppendUint32(tiff, 1)
	tiff = binary.LittleEndian.AppendUint16(tiff, uint16(orientation))
	tiff = append(tiff, 0x00, 0x00)                 // value padding
	tiff = binary.LittleEndian.AppendUint32(tiff, 0) // no next IFD

	payload := append([]byte("Exif\x00\x00"), tiff...)
	seg := make([]byte, 0, 4+len(payload))
	seg = append(seg, 0xFF, markerAPP1)
	seg = binary.BigEndian.AppendUint16(seg, uint16(2+len(payload)))
	return append(seg, payload...)
}

// ── PNG chunk-level metadata strip ────────────────────────────────────────────

// StripPNGMetadata drops text chunks while keeping the color profile and all
// structural and animation chunks; safe on APNG input.  On parse failure the
// original bytes are returned unchanged.
func StripPNGMetadata(data []byte) []byte {
	out, err := pngx.StripText(data)
	if err != nil || len(out) >= len(data) {
		return data
	}
	return out
}
