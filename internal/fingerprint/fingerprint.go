// Package fingerprint computes perceptual average-hash fingerprints used to
// match a captured photo against registered cosmetics. The hash is a coarse
// intensity signature: the image is squashed onto a small fixed grid and each
// cell contributes one bit depending on whether it is brighter than the mean.
package fingerprint

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
)

// ErrDecode is returned when the input bytes are not a decodable raster image.
var ErrDecode = errors.New("undecodable image")

// DefaultGridSize is the default edge length of the hash grid (8x8 = 64 bits).
const DefaultGridSize = 8

// Fingerprint is a fixed-length bit string summarizing an image's coarse
// intensity pattern. Bits are stored in row-major raster order.
type Fingerprint struct {
	words []uint64
	bits  int
}

// Len returns the number of bits in the fingerprint.
func (f Fingerprint) Len() int {
	return f.bits
}

// Bit returns the bit at position i (row-major order).
func (f Fingerprint) Bit(i int) bool {
	if i < 0 || i >= f.bits {
		return false
	}
	return f.words[i/64]&(1<<(i%64)) != 0
}

// String renders the fingerprint as a hex string, most significant bit first.
func (f Fingerprint) String() string {
	var sb strings.Builder
	for i := 0; i < f.bits; i += 4 {
		nibble := 0
		for j := 0; j < 4 && i+j < f.bits; j++ {
			if f.Bit(i + j) {
				nibble |= 1 << (3 - j)
			}
		}
		fmt.Fprintf(&sb, "%x", nibble)
	}
	return sb.String()
}

// Hasher computes average-hash fingerprints on a fixed grid.
// The zero value is not usable; use NewHasher or DefaultHasher.
type Hasher struct {
	width  int
	height int
}

// NewHasher creates a hasher with the given grid dimensions.
func NewHasher(width, height int) Hasher {
	if width <= 0 {
		width = DefaultGridSize
	}
	if height <= 0 {
		height = DefaultGridSize
	}
	return Hasher{width: width, height: height}
}

// DefaultHasher returns the standard 8x8 (64-bit) hasher.
func DefaultHasher() Hasher {
	return Hasher{width: DefaultGridSize, height: DefaultGridSize}
}

// Bits returns the fingerprint bit length this hasher produces.
func (h Hasher) Bits() int {
	return h.width * h.height
}

// Compute decodes an image and returns its average-hash fingerprint.
// The image is resized onto the grid without preserving aspect ratio; only
// the coarse intensity layout matters for matching. The output length is
// always width*height bits regardless of input resolution.
func (h Hasher) Compute(imageData []byte) (Fingerprint, error) {
	img, _, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		return Fingerprint{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	gray := h.downsample(img)

	var sum float64
	for _, v := range gray {
		sum += v
	}
	mean := sum / float64(len(gray))

	fp := Fingerprint{
		words: make([]uint64, (h.Bits()+63)/64),
		bits:  h.Bits(),
	}
	for i, v := range gray {
		if v >= mean {
			fp.words[i/64] |= 1 << (i % 64)
		}
	}
	return fp, nil
}

// downsample resizes the image onto the hash grid and returns per-cell
// grayscale intensities in row-major order.
func (h Hasher) downsample(img image.Image) []float64 {
	dst := image.NewRGBA(image.Rect(0, 0, h.width, h.height))
	draw.BiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)

	gray := make([]float64, 0, h.width*h.height)
	for y := 0; y < h.height; y++ {
		for x := 0; x < h.width; x++ {
			r, g, b, _ := dst.At(x, y).RGBA()
			// ITU-R BT.601 luma formula.
			luma := 0.299*float64(r>>8) + 0.587*float64(g>>8) + 0.114*float64(b>>8)
			gray = append(gray, luma)
		}
	}
	return gray
}

// Distance returns the Hamming distance between two fingerprints over their
// overlapping bit range, plus the difference in lengths as a penalty so that
// fingerprints from differently configured hashers compare as maximally far
// apart rather than being silently truncated. For same-length fingerprints
// the penalty term is always zero.
func Distance(a, b Fingerprint) int {
	short, long := a, b
	if b.bits < a.bits {
		short, long = b, a
	}

	dist := 0
	for i, w := range short.words {
		x := w ^ long.words[i]
		if rem := short.bits - i*64; rem < 64 {
			x &= (1 << rem) - 1
		}
		for x != 0 {
			dist++
			x &= x - 1 // Clear lowest set bit
		}
	}
	return dist + (long.bits - short.bits)
}
