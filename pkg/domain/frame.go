package domain

import (
	"fmt"
	"math"
)

// Intrinsics are the pinhole parameters of the capture camera.
type Intrinsics struct {
	Fx          float64 `json:"fx"`
	ImageWidth  int     `json:"image_width"`
	ImageHeight int     `json:"image_height"`
}

// RGBImage is an uncompressed 8-bit RGB pixel buffer, row-major.
type RGBImage struct {
	Width  int
	Height int
	Pix    []uint8
}

// Frame is one recorded timestep as produced by a frame source.
type Frame struct {
	Points     [][3]float32
	Colors     [][3]uint8
	CameraPose Mat4
	Image      RGBImage
	Intrinsics Intrinsics
}

// Validate checks that the point and color counts match and that the image
// buffer holds Width*Height RGB pixels.
func (f *Frame) Validate() error {
	if len(f.Points) != len(f.Colors) {
		return fmt.Errorf("%w: %d points but %d colors", ErrValidation, len(f.Points), len(f.Colors))
	}
	return f.Image.Validate()
}

// Validate checks the buffer size against the dimensions.
func (img RGBImage) Validate() error {
	if img.Width < 0 || img.Height < 0 {
		return fmt.Errorf("%w: image size %dx%d", ErrValidation, img.Width, img.Height)
	}
	if want := img.Width * img.Height * 3; len(img.Pix) != want {
		return fmt.Errorf("%w: %dx%d RGB image needs %d bytes, got %d", ErrValidation, img.Width, img.Height, want, len(img.Pix))
	}
	return nil
}

// PointCloud returns every downsample-th point with its color.
// The frame must be valid.
func (f *Frame) PointCloud(downsample int) ([][3]float32, [][3]uint8) {
	if downsample <= 1 {
		return f.Points, f.Colors
	}
	n := (len(f.Points) + downsample - 1) / downsample
	pts := make([][3]float32, 0, n)
	cols := make([][3]uint8, 0, n)
	for i := 0; i < len(f.Points) && i < len(f.Colors); i += downsample {
		pts = append(pts, f.Points[i])
		cols = append(cols, f.Colors[i])
	}
	return pts, cols
}

// Fov is the vertical field of view derived from the intrinsics.
func (f *Frame) Fov() float64 {
	return 2 * math.Atan2(float64(f.Intrinsics.ImageHeight)/2, f.Intrinsics.Fx)
}

// Aspect is the image width over height.
func (f *Frame) Aspect() float64 {
	if f.Intrinsics.ImageHeight == 0 {
		return 1
	}
	return float64(f.Intrinsics.ImageWidth) / float64(f.Intrinsics.ImageHeight)
}

// Downsample keeps every step-th pixel along both axes. The image must be valid.
func (img RGBImage) Downsample(step int) RGBImage {
	if step <= 1 || img.Width == 0 || img.Height == 0 {
		return img
	}
	w := (img.Width + step - 1) / step
	h := (img.Height + step - 1) / step
	out := RGBImage{Width: w, Height: h, Pix: make([]uint8, 0, w*h*3)}
	for y := 0; y < img.Height; y += step {
		for x := 0; x < img.Width; x += step {
			i := (y*img.Width + x) * 3
			out.Pix = append(out.Pix, img.Pix[i], img.Pix[i+1], img.Pix[i+2])
		}
	}
	return out
}
