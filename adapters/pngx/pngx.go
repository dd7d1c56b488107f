// Package pngx is a chunk-level PNG toolkit: it walks chunk sequences, drops
// text metadata, and re-deflates IDAT streams without decoding pixel data.
// Animation chunks (acTL/fcTL/fdAT) pass through untouched, so every
// operation is safe on APNG input.
package pngx

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"

	"github.com/klauspost/compress/zlib"

	"github.com/amitray007/pare/utils"
)

// Signature is the 8-byte PNG file signature.
var Signature = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}

var errNotPNG = errors.New("pngx: not a png stream")

// Chunk is one decoded chunk. Data aliases the input buffer.
type Chunk struct {
	Type string
	Data []byte
}

// ForEachChunk walks every chunk in order, calling fn for each.  Returning
// false from fn stops the walk early.
func ForEachChunk(data []byte, fn func(c Chunk) bool) error {
	if !bytes.HasPrefix(data, Signature) {
		return errNotPNG
	}
	offset := len(Signature)
	for offset+8 <= len(data) {
		length := int(binary.BigEndian.Uint32(data[offset : offset+4]))
		chunkType := string(data[offset+4 : offset+8])
		end := offset + 8 + length
		if length < 0 || end+4 > len(data) {
			return fmt.Errorf("pngx: truncated chunk %s at offset %d", chunkType, offset)
		}
		if !fn(Chunk{Type: chunkType, Data: data[offset+8 : end]}) {
			return nil
		}
		if chunkType == "IEND" {
			return nil
		}
		offset = end + 4
	}
	return io.ErrUnexpectedEOF
}

// textChunks are the metadata chunks dropped by StripText.  Everything else
// (iCCP, pHYs, gAMA, acTL, fcTL, fdAT, tRNS, ...) is structural or visual
// and survives.
var textChunks = map[string]bool{
	"tEXt": true,
	"iTXt": true,
	"zTXt": true,
}

// StripText rewrites the stream without text metadata chunks.  The color
// profile (iCCP) is kept.  Input that is not a valid PNG returns an error
// and the caller should fall back to the original bytes.
func StripText(data []byte) ([]byte, error) {
	out := bytes.NewBuffer(make([]byte, 0, len(data)))
	out.Write(Signature)
	err := ForEachChunk(data, func(c Chunk) bool {
		if textChunks[c.Type] {
			return true
		}
		writeChunk(out, c.Type, c.Data)
		return true
	})
	if err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// HasTextChunks reports whether any text metadata chunk appears before IDAT.
func HasTextChunks(data []byte) bool {
	found := false
	_ = ForEachChunk(data, func(c Chunk) bool {
		if textChunks[c.Type] {
			found = true
			return false
		}
		return c.Type != "IDAT"
	})
	return found
}

// Recompress inflates the concatenated IDAT payload and re-deflates it at
// maximum compression, leaving every other chunk in place.  It serves as the
// in-process stand-in when the oxipng binary is absent.  APNG frame data
// (fdAT) is left untouched.
func Recompress(data []byte) ([]byte, error) {
	var idat bytes.Buffer
	var chunks []Chunk
	err := ForEachChunk(data, func(c Chunk) bool {
		if c.Type == "IDAT" {
			idat.Write(c.Data)
		}
		chunks = append(chunks, c)
		return true
	})
	if err != nil {
		return nil, err
	}
	if idat.Len() == 0 {
		return nil, errors.New("pngx: no IDAT data")
	}

	zr, err := zlib.NewReader(bytes.NewReader(idat.Bytes()))
	if err != nil {
		return nil, err
	}
	raw, err := io.ReadAll(zr)
	zr.Close()
	if err != nil {
		return nil, err
	}

	packed := utils.AcquireBuffer()
	defer utils.ReleaseBuffer(packed)
	zw, err := zlib.NewWriterLevel(packed, zlib.BestCompression)
	if err != nil {
		return nil, err
	}
	if _, err := zw.Write(raw); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}

	out := bytes.NewBuffer(make([]byte, 0, len(data)))
	out.Write(Signature)
	wroteIDAT := false
	for _, c := range chunks {
		if c.Type == "IDAT" {
			if !wroteIDAT {
				writeChunk(out, "IDAT", packed.Bytes())
				wroteIDAT = true
			}
			continue
		}
		writeChunk(out, c.Type, c.Data)
	}
	return out.Bytes(), nil
}

func writeChunk(w *bytes.Buffer, chunkType string, data []byte) {
	var header [8]byte
	binary.BigEndian.PutUint32(header[0:4], uint32(len(data)))
	copy(header[4:8], chunkType)
	w.Write(header[:])
	w.Write(data)

	crc := crc32.NewIEEE()
	crc.Write(header[4:8])
	crc.Write(data)
	var sum [4]byte
	binary.BigEndian.PutUint32(sum[:], crc.Sum32())
	w.Write(sum[:])
}
