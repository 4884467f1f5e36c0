package visual

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
	"image/png"

	"github.com/Rosh-10/automated-analysis-project/internal/utils"
)

// compress re-encodes PNG bytes as a JPEG next to pngPath and returns the new path.
// Transparent areas are flattened onto white.
func compress(pngPath string, data []byte, quality int) (string, error) {
	src, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("decode png: %w", err)
	}
	flat := image.NewRGBA(src.Bounds())
	draw.Draw(flat, flat.Bounds(), image.White, image.Point{}, draw.Src)
	draw.Draw(flat, flat.Bounds(), src, src.Bounds().Min, draw.Over)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, flat, &jpeg.Options{Quality: min(max(quality, 1), 100)}); err != nil {
		return "", fmt.Errorf("encode jpeg: %w", err)
	}
	out := utils.ReplaceExt(pngPath, ".jpg")
	if err := utils.SafeWriteFile(out, buf.Bytes()); err != nil {
		return "", err
	}
	return out, nil
}
