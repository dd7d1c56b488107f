package optimizers

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
)

// 8-bit BMP writers.  The standard library and x/image only emit 24/32-bit
// BMPs, so the paletted and RLE8 containers are written by hand:
// BITMAPFILEHEADER + BITMAPINFOHEADER + 256-entry BGRA palette + pixel data.

const (
	bmpHeaderSize   = 14
	bmpInfoSize     = 40
	bmpPaletteSize  = 256 * 4
	bmpCompressRGB  = 0
	bmpCompressRLE8 = 1
)

func writeBMPHeaders(out *bytes.Buffer, width, height, compression, imageSize int, palette color.Palette) {
	dataOffset := bmpHeaderSize + bmpInfoSize + bmpPaletteSize

	// BITMAPFILEHEADER
	out.WriteString("BM")
	binary.Write(out, binary.LittleEndian, uint32(dataOffset+imageSize))
	binary.Write(out, binary.LittleEndian, uint32(0))
	binary.Write(out, binary.LittleEndian, uint32(dataOffset))

	// BITMAPINFOHEADER
	binary.Write(out, binary.LittleEndian, uint32(bmpInfoSize))
	binary.Write(out, binary.LittleEndian, int32(width))
	binary.Write(out, binary.LittleEndian, int32(height)) // positive: bottom-up
	binary.Write(out, binary.LittleEndian, uint16(1))     // planes
	binary.Write(out, binary.LittleEndian, uint16(8))     // bits per pixel
	binary.Write(out, binary.LittleEndian, uint32(compression))
	binary.Write(out, binary.LittleEndian, uint32(imageSize))
	binary.Write(out, binary.LittleEndian, int32(2835)) // 72 DPI
	binary.Write(out, binary.LittleEndian, int32(2835))
	binary.Write(out, binary.LittleEndian, uint32(256))
	binary.Write(out, binary.LittleEndian, uint32(0))

	// Palette, BGRA order, zero-filled to 256 entries.
	for i := 0; i < 256; i++ {
		if i < len(palette) {
			r, g, b, _ := palette[i].RGBA()
			out.Write([]byte{byte(b >> 8), byte(g >> 8), byte(r >> 8), 0})
		} else {
			out.Write([]byte{0, 0, 0, 0})
		}
	}
}

// EncodeBMP8 writes an uncompressed 8-bit paletted BMP.  Rows are stored
// bottom-up and padded to 4-byte boundaries.
func EncodeBMP8(p *image.Paletted) []byte {
	w := p.Bounds().Dx()
	h := p.Bounds().Dy()
	rowSize := (w + 3) &^ 3

	out := bytes.NewBuffer(make([]byte, 0, bmpHeaderSize+bmpInfoSize+bmpPaletteSize+rowSize*h))
	writeBMPHeaders(out, w, h, bmpCompressRGB, rowSize*h, p.Palette)

	pad := make([]byte, rowSize-w)
	for y := h - 1; y >= 0; y-- {
		out.Write(p.Pix[y*p.Stride : y*p.Stride+w])
		out.Write(pad)
	}
	return out.Bytes()
}

// EncodeBMPRLE8 writes a BI_RLE8 compressed 8-bit paletted BMP.  Each row
// encodes as encoded-mode runs ([count, index]) with absolute mode
// ([0, count, indices..., pad]) for heterogeneous spans, terminated by the
// end-of-line marker; the stream ends with end-of-bitmap.
func EncodeBMPRLE8(p *image.Paletted) []byte {
	w := p.Bounds().Dx()
	h := p.Bounds().Dy()

	out := bytes.NewBuffer(make([]byte, 0, bmpHeaderSize+bmpInfoSize+bmpPaletteSize+w*h/4))
	var body bytes.Buffer
	for y := h - 1; y >= 0; y-- {
		encodeRLE8Row(&body, p.Pix[y*p.Stride:y*p.Stride+w])
		body.Write([]byte{0x00, 0x00}) // end of line
	}
	body.Write([]byte{0x00, 0x01}) // end of bitmap

	writeBMPHeaders(out, w, h, bmpCompressRLE8, body.Len(), p.Palette)
	out.Write(body.Bytes())
	return out.Bytes()
}

func encodeRLE8Row(out *bytes.Buffer, row []byte) {
	i := 0
	for i < len(row) {
		run := runLength(row[i:])
		if run >= 2 {
			out.Write([]byte{byte(run), row[i]})
			i += run
			continue
		}
		// Literal span: extend until a run of 3+ starts or the row ends.
		start := i
		for i < len(row) && i-start < 255 {
			if r := runLength(row[i:]); r >= 3 {
				break
			}
			i++
		}
		span := row[start:i]
		if len(span) >= 3 {
			out.Write([]byte{0x00, byte(len(span))})
			out.Write(span)
			if len(span)%2 == 1 {
				out.WriteByte(0x00) // word-align absolute mode
			}
		} else {
			for _, v := range span {
				out.Write([]byte{0x01, v})
			}
		}
	}
}

// runLength counts leading identical bytes, capped at 255.
func runLength(b []byte) int {
	n := 1
	for n < len(b) && n < 255 && b[n] == b[0] {
		n++
	}
	return n
}
