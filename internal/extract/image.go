package extract

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"math"
	"os"

	"golang.org/x/image/draw"
)

// PrepareImage reads path and returns a JPEG data URL of the image scaled by
// scale in each dimension. A scale of 1 re-encodes without resampling.
func PrepareImage(path string, scale float64, quality int) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read image: %w", err)
	}
	encoded, err := Downscale(data, scale, quality)
	if err != nil {
		return "", err
	}
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(encoded), nil
}

// Downscale decodes a JPEG or PNG, resamples it with Catmull-Rom, and
// re-encodes it as JPEG at quality.
func Downscale(data []byte, scale float64, quality int) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	out := src
	if scale > 0 && scale < 1 {
		bounds := src.Bounds()
		width := max(1, int(math.Round(float64(bounds.Dx())*scale)))
		height := max(1, int(math.Round(float64(bounds.Dy())*scale)))
		dst := image.NewRGBA(image.Rect(0, 0, width, height))
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Src, nil)
		out = dst
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, out, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}
	return buf.Bytes(), nil
}
