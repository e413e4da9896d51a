package memory

import (
	"math"

	"github.com/aretw0/tableau/pkg/domain"
)

// SyntheticConfig shapes a generated capture.
type SyntheticConfig struct {
	Frames      int
	Points      int
	FPS         float64
	ImageWidth  int
	ImageHeight int
}

// NewSynthetic generates a demo capture: a colored helix of points slowly
// turning in front of a camera that orbits it. Each frame is computed once,
// up front, so the source behaves like a loaded recording.
func NewSynthetic(cfg SyntheticConfig) *Source {
	if cfg.ImageWidth <= 0 {
		cfg.ImageWidth = 64
	}
	if cfg.ImageHeight <= 0 {
		cfg.ImageHeight = 48
	}
	frames := make([]*domain.Frame, cfg.Frames)
	for i := range frames {
		frames[i] = syntheticFrame(i, cfg)
	}
	return NewSource(cfg.FPS, frames...)
}

func syntheticFrame(i int, cfg SyntheticConfig) *domain.Frame {
	phase := 2 * math.Pi * float64(i) / float64(max(cfg.Frames, 1))

	f := &domain.Frame{
		Points: make([][3]float32, cfg.Points),
		Colors: make([][3]uint8, cfg.Points),
		Intrinsics: domain.Intrinsics{
			Fx:          float64(cfg.ImageWidth),
			ImageWidth:  cfg.ImageWidth,
			ImageHeight: cfg.ImageHeight,
		},
	}
	for j := range f.Points {
		t := float64(j) / float64(max(cfg.Points, 1))
		a := 4*math.Pi*t + phase
		f.Points[j] = [3]float32{float32(0.5 * math.Cos(a)), float32(t - 0.5), float32(0.5 * math.Sin(a))}
		f.Colors[j] = [3]uint8{uint8(255 * t), uint8(128 + 127*math.Sin(a)), uint8(255 * (1 - t))}
	}

	// Camera on a circle of radius 2 around the origin, looking at it.
	eye := domain.Vec3{2 * math.Sin(phase), 0, 2 * math.Cos(phase)}
	rot := domain.QuatExp(domain.Vec3{0, phase, 0})
	f.CameraPose = poseMatrix(rot, eye)

	f.Image = domain.RGBImage{
		Width:  cfg.ImageWidth,
		Height: cfg.ImageHeight,
		Pix:    make([]uint8, cfg.ImageWidth*cfg.ImageHeight*3),
	}
	for y := 0; y < cfg.ImageHeight; y++ {
		for x := 0; x < cfg.ImageWidth; x++ {
			k := (y*cfg.ImageWidth + x) * 3
			f.Image.Pix[k] = uint8(255 * x / max(cfg.ImageWidth-1, 1))
			f.Image.Pix[k+1] = uint8(255 * y / max(cfg.ImageHeight-1, 1))
			f.Image.Pix[k+2] = uint8(255 * i / max(cfg.Frames-1, 1))
		}
	}
	return f
}

// poseMatrix builds a rigid transform from a rotation and a translation.
func poseMatrix(q domain.Quat, t domain.Vec3) domain.Mat4 {
	x := q.Rotate(domain.Vec3{1, 0, 0})
	y := q.Rotate(domain.Vec3{0, 1, 0})
	z := q.Rotate(domain.Vec3{0, 0, 1})
	return domain.Mat4{
		{x[0], y[0], z[0], t[0]},
		{x[1], y[1], z[1], t[1]},
		{x[2], y[2], z[2], t[2]},
		{0, 0, 0, 1},
	}
}
