// Package fingerprint computes perceptual hashes of analyzed images.
//
// The run log stores the hash so repeat analyses of the same photo can be
// told apart from new faces without keeping the image itself.
package fingerprint

import (
	"bytes"
	"fmt"
	"image"
	"math"
	"math/bits"
	"slices"
	"strconv"

	_ "image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"
)

const (
	dctSize  = 32
	lowFreq  = 8
	hashBits = 64

	// DefaultThreshold is the Hamming distance under which two hashes are
	// considered the same photo.
	DefaultThreshold = 10
)

// Hash is a 64-bit DCT perceptual hash.
type Hash uint64

// String renders the hash as 16 hex digits.
func (h Hash) String() string {
	return fmt.Sprintf("%016x", uint64(h))
}

// Parse reads a hash written by String.
func Parse(s string) (Hash, error) {
	v, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid hash %q: %w", s, err)
	}
	return Hash(v), nil
}

// Distance is the number of differing bits.
func Distance(a, b Hash) int {
	return bits.OnesCount64(uint64(a ^ b))
}

// Near reports whether two hashes are within threshold bits of each other.
func (h Hash) Near(other Hash, threshold int) bool {
	return Distance(h, other) <= threshold
}

// Compute decodes an image and returns its perceptual hash.
func Compute(data []byte) (Hash, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return 0, fmt.Errorf("failed to decode image: %w", err)
	}
	return Of(img), nil
}

// Of hashes an already decoded image.
func Of(img image.Image) Hash {
	gray := luma(scale(img, dctSize))
	coeffs := dct(gray)

	// Low frequencies without the DC term, padded with the next row.
	values := make([]float64, 0, hashBits)
	for u := range lowFreq + 1 {
		for v := range lowFreq {
			if u == 0 && v == 0 {
				continue
			}
			if len(values) == hashBits {
				break
			}
			values = append(values, coeffs[u][v])
		}
	}

	median := median(values)
	var h uint64
	for i, v := range values {
		if v > median {
			h |= 1 << (hashBits - 1 - i)
		}
	}
	return Hash(h)
}

func scale(img image.Image, size int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.BiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Over, nil)
	return dst
}

// luma converts to BT.601 grayscale indexed [x][y].
func luma(img *image.RGBA) [][]float64 {
	b := img.Bounds()
	gray := make([][]float64, b.Dx())
	for x := range b.Dx() {
		gray[x] = make([]float64, b.Dy())
		for y := range b.Dy() {
			r, g, bl, _ := img.At(x, y).RGBA()
			gray[x][y] = 0.299*float64(r>>8) + 0.587*float64(g>>8) + 0.114*float64(bl>>8)
		}
	}
	return gray
}

// dct is a separable DCT-II over a square matrix.
func dct(in [][]float64) [][]float64 {
	n := len(in)
	cos := make([][]float64, n)
	for k := range n {
		cos[k] = make([]float64, n)
		for i := range n {
			cos[k][i] = math.Cos(math.Pi * float64(k) * (2*float64(i) + 1) / (2 * float64(n)))
		}
	}

	rows := make([][]float64, n)
	for x := range n {
		rows[x] = make([]float64, n)
		for v := range n {
			var sum float64
			for y := range n {
				sum += in[x][y] * cos[v][y]
			}
			rows[x][v] = sum
		}
	}

	out := make([][]float64, n)
	for u := range n {
		out[u] = make([]float64, n)
		for v := range n {
			var sum float64
			for x := range n {
				sum += rows[x][v] * cos[u][x]
			}
			out[u][v] = sum
		}
	}
	return out
}

func median(values []float64) float64 {
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n%2 == 0 {
		return (sorted[n/2-1] + sorted[n/2]) / 2
	}
	return sorted[n/2]
}
