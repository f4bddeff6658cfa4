package vision

import (
	"image"
	"image/color"
	"image/draw"
)

// ToGray converts any image to 8-bit grayscale. Images that are already
// *image.Gray are returned as-is.
func ToGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return g
	}
	bounds := img.Bounds()
	gray := image.NewGray(bounds)
	draw.Draw(gray, bounds, img, bounds.Min, draw.Src)
	return gray
}

// gaussianBlur applies a fixed 5x5 Gaussian kernel (sigma ~1), matching the
// smoothing used before thresholding and edge detection.
func gaussianBlur(src *image.Gray) *image.Gray {
	kernel := [5]int{1, 4, 6, 4, 1} // separable binomial approximation, sum 16
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()

	tmp := image.NewGray(b)
	dst := image.NewGray(b)

	// Horizontal pass.
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var acc int
			for k := -2; k <= 2; k++ {
				xx := clamp(x+k, 0, w-1)
				acc += int(src.GrayAt(b.Min.X+xx, b.Min.Y+y).Y) * kernel[k+2]
			}
			tmp.SetGray(b.Min.X+x, b.Min.Y+y, grayVal(acc/16))
		}
	}
	// Vertical pass.
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var acc int
			for k := -2; k <= 2; k++ {
				yy := clamp(y+k, 0, h-1)
				acc += int(tmp.GrayAt(b.Min.X+x, b.Min.Y+yy).Y) * kernel[k+2]
			}
			dst.SetGray(b.Min.X+x, b.Min.Y+y, grayVal(acc/16))
		}
	}
	return dst
}

// otsuThreshold computes the Otsu binarization threshold for a grayscale
// image from its histogram.
func otsuThreshold(src *image.Gray) uint8 {
	var hist [256]int
	b := src.Bounds()
	total := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			hist[src.GrayAt(x, y).Y]++
			total++
		}
	}
	if total == 0 {
		return 128
	}

	var sum float64
	for i, c := range hist {
		sum += float64(i) * float64(c)
	}

	var sumB, wB float64
	var maxVar float64
	var threshold uint8
	for i := 0; i < 256; i++ {
		wB += float64(hist[i])
		if wB == 0 {
			continue
		}
		wF := float64(total) - wB
		if wF == 0 {
			break
		}
		sumB += float64(i) * float64(hist[i])
		mB := sumB / wB
		mF := (sum - sumB) / wF
		between := wB * wF * (mB - mF) * (mB - mF)
		if between > maxVar {
			maxVar = between
			threshold = uint8(i)
		}
	}
	return threshold
}

// binarizeInverted blurs and thresholds the image with Otsu, producing a
// binary mask where dark source pixels (ink) become true.
func binarizeInverted(src *image.Gray) *bitmap {
	blurred := gaussianBlur(src)
	thresh := otsuThreshold(blurred)
	b := blurred.Bounds()
	mask := newBitmap(b.Dx(), b.Dy())
	for y := 0; y < mask.h; y++ {
		for x := 0; x < mask.w; x++ {
			if blurred.GrayAt(b.Min.X+x, b.Min.Y+y).Y <= thresh {
				mask.set(x, y)
			}
		}
	}
	return mask
}

// sobelEdges produces a binary edge mask from gradient magnitude, then
// dilates it so broken page outlines close into one contour.
func sobelEdges(src *image.Gray, magThreshold int) *bitmap {
	blurred := gaussianBlur(src)
	b := blurred.Bounds()
	w, h := b.Dx(), b.Dy()
	mask := newBitmap(w, h)

	at := func(x, y int) int {
		return int(blurred.GrayAt(b.Min.X+clamp(x, 0, w-1), b.Min.Y+clamp(y, 0, h-1)).Y)
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			gx := -at(x-1, y-1) - 2*at(x-1, y) - at(x-1, y+1) +
				at(x+1, y-1) + 2*at(x+1, y) + at(x+1, y+1)
			gy := -at(x-1, y-1) - 2*at(x, y-1) - at(x+1, y-1) +
				at(x-1, y+1) + 2*at(x, y+1) + at(x+1, y+1)
			if abs(gx)+abs(gy) >= magThreshold {
				mask.set(x, y)
			}
		}
	}
	return dilate(dilate(mask))
}

// dilate grows a binary mask by one pixel in the 4-neighborhood.
func dilate(src *bitmap) *bitmap {
	dst := newBitmap(src.w, src.h)
	for y := 0; y < src.h; y++ {
		for x := 0; x < src.w; x++ {
			if src.get(x, y) ||
				(x > 0 && src.get(x-1, y)) || (x < src.w-1 && src.get(x+1, y)) ||
				(y > 0 && src.get(x, y-1)) || (y < src.h-1 && src.get(x, y+1)) {
				dst.set(x, y)
			}
		}
	}
	return dst
}

// bitmap is a dense binary mask.
type bitmap struct {
	w, h int
	bits []bool
}

func newBitmap(w, h int) *bitmap {
	return &bitmap{w: w, h: h, bits: make([]bool, w*h)}
}

func (m *bitmap) get(x, y int) bool { return m.bits[y*m.w+x] }
func (m *bitmap) set(x, y int)      { m.bits[y*m.w+x] = true }

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func grayVal(v int) color.Gray {
	return color.Gray{Y: uint8(clamp(v, 0, 255))}
}
