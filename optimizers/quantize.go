package optimizers

import (
	"image"
	"image/color"
	"sort"
)

// Median-cut palette quantization.  Exact palettes are preferred: when the
// image already has few enough distinct colors they are kept verbatim and
// quantization is loss-free.

// Quantize reduces img to at most maxColors and returns a paletted image.
func Quantize(img image.Image, maxColors int) *image.Paletted {
	if maxColors > 256 {
		maxColors = 256
	}
	nrgba := toNRGBA(img)
	if exact := exactPalette(nrgba, maxColors); exact != nil {
		return exact
	}
	return medianCut(nrgba, maxColors)
}

// toNRGBA normalizes any image into NRGBA for direct pixel access.
func toNRGBA(img image.Image) *image.NRGBA {
	if n, ok := img.(*image.NRGBA); ok {
		return n
	}
	b := img.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			out.Set(x-b.Min.X, y-b.Min.Y, color.NRGBAModel.Convert(img.At(x, y)))
		}
	}
	return out
}

// exactPalette builds a loss-free paletted copy, or nil when the image has
// more than maxColors distinct colors.
func exactPalette(img *image.NRGBA, maxColors int) *image.Paletted {
	w := img.Bounds().Dx()
	h := img.Bounds().Dy()

	colorIndex := make(map[[4]uint8]uint8, maxColors)
	var palette color.Palette
	for y := 0; y < h; y++ {
		off := y * img.Stride
		for x := 0; x < w; x++ {
			i := off + x*4
			key := [4]uint8{img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3]}
			if _, ok := colorIndex[key]; !ok {
				if len(palette) >= maxColors {
					return nil
				}
				colorIndex[key] = uint8(len(palette))
				palette = append(palette, color.NRGBA{key[0], key[1], key[2], key[3]})
			}
		}
	}

	out := image.NewPaletted(image.Rect(0, 0, w, h), palette)
	for y := 0; y < h; y++ {
		srcOff := y * img.Stride
		dstOff := y * out.Stride
		for x := 0; x < w; x++ {
			i := srcOff + x*4
			key := [4]uint8{img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3]}
			out.Pix[dstOff+x] = colorIndex[key]
		}
	}
	return out
}

type colorBox struct {
	colors [][4]uint8
}

func (b *colorBox) widestChannel() int {
	var min, max [4]int
	for i := range min {
		min[i], max[i] = 255, 0
	}
	for _, c := range b.colors {
		for ch := 0; ch < 4; ch++ {
			v := int(c[ch])
			if v < min[ch] {
				min[ch] = v
			}
			if v > max[ch] {
				max[ch] = v
			}
		}
	}
	widest, span := 0, -1
	for ch := 0; ch < 4; ch++ {
		if s := max[ch] - min[ch]; s > span {
			widest, span = ch, s
		}
	}
	return widest
}

// medianCut recursively splits color boxes along their widest channel until
// maxColors boxes exist, then averages each box into a palette entry.
func medianCut(img *image.NRGBA, maxColors int) *image.Paletted {
	w := img.Bounds().Dx()
	h := img.Bounds().Dy()

	seen := make(map[[4]uint8]bool)
	var unique [][4]uint8
	for y := 0; y < h; y++ {
		off := y * img.Stride
		for x := 0; x < w; x++ {
			i := off + x*4
			key := [4]uint8{img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3]}
			if !seen[key] {
				seen[key] = true
				unique = append(unique, key)
			}
		}
	}

	boxes := []*colorBox{{colors: unique}}
	for len(boxes) < maxColors {
		// Split the most populated box.
		idx := -1
		for i, b := range boxes {
			if len(b.colors) > 1 && (idx == -1 || len(b.colors) > len(boxes[idx].colors)) {
				idx = i
			}
		}
		if idx == -1 {
			break
		}
		box := boxes[idx]
		ch := box.widestChannel()
		sort.Slice(box.colors, func(i, j int) bool { return box.colors[i][ch] < box.colors[j][ch] })
		mid := len(box.colors) / 2
		boxes[idx] = &colorBox{colors: box.colors[:mid]}
		boxes = append(boxes, &colorBox{colors: box.colors[mid:]})
	}

	palette := make(color.Palette, len(boxes))
	for i, b := range boxes {
		var r, g, bl, a int
		for _, c := range b.colors {
			r += int(c[0])
			g += int(c[1])
			bl += int(c[2])
			a += int(c[3])
		}
		n := len(b.colors)
		if n == 0 {
			n = 1
		}
		palette[i] = color.NRGBA{uint8(r / n), uint8(g / n), uint8(bl / n), uint8(a / n)}
	}

	out := image.NewPaletted(image.Rect(0, 0, w, h), palette)
	cache := make(map[[4]uint8]uint8, len(unique))
	for y := 0; y < h; y++ {
		srcOff := y * img.Stride
		dstOff := y * out.Stride
		for x := 0; x < w; x++ {
			i := srcOff + x*4
			key := [4]uint8{img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3]}
			idx, ok := cache[key]
			if !ok {
				idx = uint8(palette.Index(color.NRGBA{key[0], key[1], key[2], key[3]}))
				cache[key] = idx
			}
			out.Pix[dstOff+x] = idx
		}
	}
	return out
}
