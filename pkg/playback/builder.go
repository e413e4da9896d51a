package playback

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"math"

	"github.com/aretw0/tableau/pkg/domain"
	"github.com/aretw0/tableau/pkg/scene"
)

// FramesPath is the parent of every frame subtree.
const FramesPath = "/frames"

// FramePath returns the root path of frame i's subtree.
func FramePath(i int) string {
	return fmt.Sprintf("%s/t%d", FramesPath, i)
}

var frustumColor = [3]uint8{20, 20, 20}

func (c *Controller) build(ctx context.Context, n int) error {
	err := c.scene.Atomic(ctx, func(ctx context.Context, tx *scene.Tx) error {
		root, err := domain.NewNode(FramesPath, domain.NodeTypeFrame, hiddenAxes())
		if err != nil {
			return err
		}
		root.Transform.Wxyz = domain.QuatExp(domain.Vec3{math.Pi / 2, 0, 0})
		return tx.UpsertNode(root)
	})
	if err != nil {
		return err
	}

	c.logger.Info("Loading frames", "total", n)
	for i := 0; i < n; i++ {
		frame, err := c.source.GetFrame(i)
		if err != nil {
			return fmt.Errorf("load frame %d: %w", i, err)
		}
		if err := c.buildFrame(ctx, i, frame); err != nil {
			return fmt.Errorf("build frame %d: %w", i, err)
		}
		c.logger.Debug("Frame loaded", "index", i, "points", len(frame.Points))
		if c.progress != nil {
			c.progress(i+1, n)
		}
	}
	return nil
}

// buildFrame adds the subtree of frame i in one transaction: the frame root,
// its point cloud, the camera frustum at the capture pose, axes on the
// frustum and the captured image inside it.
func (c *Controller) buildFrame(ctx context.Context, i int, f *domain.Frame) error {
	if err := f.Validate(); err != nil {
		return err
	}
	var encoded []byte
	small := f.Image.Downsample(c.downsample)
	if small.Width > 0 && small.Height > 0 {
		var err error
		if encoded, err = encodePNG(small); err != nil {
			return err
		}
	}

	return c.scene.Atomic(ctx, func(ctx context.Context, tx *scene.Tx) error {
		path := FramePath(i)

		root, err := domain.NewNode(path, domain.NodeTypeFrame, hiddenAxes())
		if err != nil {
			return err
		}
		root.Visible = i == int(c.current.Load())
		if err := tx.UpsertNode(root); err != nil {
			return err
		}

		pts, cols := f.PointCloud(c.downsample)
		cloud := domain.PointCloudPayload{
			Points:    append([][3]float32(nil), pts...),
			Colors:    append([][3]uint8(nil), cols...),
			PointSize: c.pointSize,
		}
		if err := tx.Upsert(path+"/point_cloud", domain.NodeTypePointCloud, cloud); err != nil {
			return err
		}

		fov, aspect := f.Fov(), f.Aspect()
		frustum, err := domain.NewNode(path+"/frustum", domain.NodeTypeCameraFrustum, domain.FrustumPayload{
			Fov:    fov,
			Aspect: aspect,
			Scale:  c.frustumScale,
			Color:  frustumColor,
		})
		if err != nil {
			return err
		}
		frustum.Transform = domain.Transform{
			Wxyz:     domain.QuatFromMatrix(f.CameraPose),
			Position: f.CameraPose.Translation(),
		}
		if err := tx.UpsertNode(frustum); err != nil {
			return err
		}

		axes := domain.FramePayload{ShowAxes: true, AxesLength: 0.05, AxesRadius: 0.005}
		if err := tx.Upsert(path+"/frustum/axes", domain.NodeTypeFrame, axes); err != nil {
			return err
		}

		if encoded == nil {
			return nil
		}
		height := c.frustumScale * math.Tan(fov/2) * 2
		img, err := domain.NewNode(path+"/frustum/image", domain.NodeTypeImage, domain.ImagePayload{
			Format:       "png",
			Data:         encoded,
			Width:        small.Width,
			Height:       small.Height,
			RenderWidth:  height * aspect,
			RenderHeight: height,
		})
		if err != nil {
			return err
		}
		img.Transform = domain.Transform{
			Wxyz:     domain.QuatExp(domain.Vec3{math.Pi, 0, 0}),
			Position: domain.Vec3{0, 0, c.frustumScale},
		}
		return tx.UpsertNode(img)
	})
}

func hiddenAxes() domain.FramePayload {
	p := domain.DefaultPayload(domain.NodeTypeFrame).(domain.FramePayload)
	p.ShowAxes = false
	return p
}

func encodePNG(img domain.RGBImage) ([]byte, error) {
	rgba := image.NewNRGBA(image.Rect(0, 0, img.Width, img.Height))
	for i, j := 0, 0; i+2 < len(img.Pix) && j+3 < len(rgba.Pix); i, j = i+3, j+4 {
		rgba.Pix[j] = img.Pix[i]
		rgba.Pix[j+1] = img.Pix[i+1]
		rgba.Pix[j+2] = img.Pix[i+2]
		rgba.Pix[j+3] = 0xff
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, rgba); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
