package vision

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"net/http"

	// Decoders for image.Decode.
	_ "image/gif"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"golang.org/x/image/draw"

	"github.com/your-org/faceaccess/internal/models"
)

// decodeImage decodes any registered format into an image.Image.
func decodeImage(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty input", models.ErrUnreadableImage)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrUnreadableImage, err)
	}
	if b := img.Bounds(); b.Dx() == 0 || b.Dy() == 0 {
		return nil, fmt.Errorf("%w: empty image", models.ErrUnreadableImage)
	}
	return img, nil
}

// asJPEG returns data unchanged when it already is a JPEG and re-encodes it otherwise.
func asJPEG(data []byte) ([]byte, error) {
	if http.DetectContentType(data) == "image/jpeg" {
		return data, nil
	}
	img, err := decodeImage(data)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 95}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// resize scales img to exactly w x h with bilinear interpolation.
func resize(img image.Image, w, h int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.BiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst
}

// cropFace cuts the box out of img with 10% padding on each side, clamped to
// the image bounds. It returns nil for an empty box.
func cropFace(img image.Image, box image.Rectangle) image.Image {
	bounds := img.Bounds()
	box = box.Intersect(bounds)
	if box.Empty() {
		return nil
	}

	padW, padH := box.Dx()/10, box.Dy()/10
	box = image.Rect(box.Min.X-padW, box.Min.Y-padH, box.Max.X+padW, box.Max.Y+padH).Intersect(bounds)

	crop := image.NewRGBA(image.Rect(0, 0, box.Dx(), box.Dy()))
	draw.Draw(crop, crop.Bounds(), img, box.Min, draw.Src)
	return crop
}

// toCHW converts an RGBA image to planar float32 with (pixel - mean) / std per channel.
func toCHW(img *image.RGBA, mean, std float32) []float32 {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	plane := w * h
	data := make([]float32, 3*plane)

	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride:]
		for x := 0; x < w; x++ {
			px := row[x*4:]
			idx := y*w + x
			data[idx] = (float32(px[0]) - mean) / std
			data[plane+idx] = (float32(px[1]) - mean) / std
			data[2*plane+idx] = (float32(px[2]) - mean) / std
		}
	}
	return data
}
