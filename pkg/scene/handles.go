package scene

import (
	"context"
	"fmt"

	"github.com/aretw0/tableau/pkg/domain"
)

// NodeHandle is a non-owning reference to a node: its path and expected type.
// Getters return the last committed value. Setters join the transaction
// carried by ctx, or commit a single-mutation transaction of their own.
type NodeHandle struct {
	scene *Scene
	path  string
	typ   domain.NodeType
}

// Path returns the node's path.
func (h NodeHandle) Path() string { return h.path }

// Type returns the node's type.
func (h NodeHandle) Type() domain.NodeType { return h.typ }

// Node returns the committed node.
func (h NodeHandle) Node() (domain.Node, error) {
	n, err := h.scene.registry.Get(h.path)
	if err != nil {
		return domain.Node{}, err
	}
	if n.Type != h.typ {
		return domain.Node{}, fmt.Errorf("%w: %s is now a %q node, handle expects %q", domain.ErrTypeMismatch, h.path, n.Type, h.typ)
	}
	return n, nil
}

// Visible returns the committed visibility.
func (h NodeHandle) Visible() (bool, error) {
	n, err := h.Node()
	return n.Visible, err
}

// Wxyz returns the committed rotation.
func (h NodeHandle) Wxyz() (domain.Quat, error) {
	n, err := h.Node()
	return n.Transform.Wxyz, err
}

// Position returns the committed translation.
func (h NodeHandle) Position() (domain.Vec3, error) {
	n, err := h.Node()
	return n.Transform.Position, err
}

// SetVisible shows or hides the node and, for viewers, its subtree.
func (h NodeHandle) SetVisible(ctx context.Context, visible bool) error {
	return h.set(ctx, domain.FieldVisible, visible)
}

// SetWxyz sets the rotation. It is normalized; a zero quaternion is rejected.
func (h NodeHandle) SetWxyz(ctx context.Context, q domain.Quat) error {
	if _, err := q.Normalized(); err != nil {
		return err
	}
	return h.set(ctx, domain.FieldWxyz, q)
}

// SetPosition sets the translation.
func (h NodeHandle) SetPosition(ctx context.Context, p domain.Vec3) error {
	if !p.Finite() {
		return fmt.Errorf("%w: position must be finite", domain.ErrValidation)
	}
	return h.set(ctx, domain.FieldPosition, p)
}

// Remove deletes the node and its subtree.
func (h NodeHandle) Remove(ctx context.Context) error {
	return h.scene.Remove(ctx, h.path)
}

func (h NodeHandle) set(ctx context.Context, field domain.Field, value any) error {
	return h.scene.mutate(ctx, func(tx *Tx) error {
		if _, err := h.staged(tx); err != nil {
			return err
		}
		return tx.SetField(h.path, field, value)
	})
}

type fieldValue struct {
	field domain.Field
	value any
}

// setAll queues the fields in order, or none of them: every value is first
// applied to a copy of the staged node.
func (h NodeHandle) setAll(ctx context.Context, fields ...fieldValue) error {
	return h.scene.mutate(ctx, func(tx *Tx) error {
		n, err := h.staged(tx)
		if err != nil {
			return err
		}
		for _, fv := range fields {
			if n, err = n.WithField(fv.field, fv.value); err != nil {
				return fmt.Errorf("%s: %w", h.path, err)
			}
		}
		if err := n.Validate(); err != nil {
			return fmt.Errorf("%s: %w", h.path, err)
		}
		for _, fv := range fields {
			if err := tx.SetField(h.path, fv.field, fv.value); err != nil {
				return err
			}
		}
		return nil
	})
}

// staged returns the node as the transaction sees it, checking the type.
func (h NodeHandle) staged(tx *Tx) (domain.Node, error) {
	n, err := tx.Get(h.path)
	if err != nil {
		return n, err
	}
	if n.Type != h.typ {
		return n, fmt.Errorf("%w: %s is now a %q node, handle expects %q", domain.ErrTypeMismatch, h.path, n.Type, h.typ)
	}
	return n, nil
}

// FrameHandle controls a coordinate frame node.
type FrameHandle struct {
	NodeHandle
}

// SetShowAxes toggles the axes drawing.
func (h *FrameHandle) SetShowAxes(ctx context.Context, show bool) error {
	return h.set(ctx, domain.FieldShowAxes, show)
}

// PointCloudHandle controls a point cloud node.
type PointCloudHandle struct {
	NodeHandle
}

// Cloud returns the committed points and colors.
func (h *PointCloudHandle) Cloud() ([][3]float32, [][3]uint8, error) {
	n, err := h.Node()
	if err != nil {
		return nil, nil, err
	}
	p := n.Payload.(domain.PointCloudPayload)
	return p.Points, p.Colors, nil
}

// SetPoints replaces the positions. The count must match the current colors.
func (h *PointCloudHandle) SetPoints(ctx context.Context, points [][3]float32) error {
	return h.scene.mutate(ctx, func(tx *Tx) error {
		n, err := h.staged(tx)
		if err != nil {
			return err
		}
		if colors := len(n.Payload.(domain.PointCloudPayload).Colors); colors != len(points) {
			return fmt.Errorf("%w: %d points for %d colors", domain.ErrValidation, len(points), colors)
		}
		return tx.SetField(h.path, domain.FieldPoints, points)
	})
}

// SetColors replaces the colors. The count must match the current points.
func (h *PointCloudHandle) SetColors(ctx context.Context, colors [][3]uint8) error {
	return h.scene.mutate(ctx, func(tx *Tx) error {
		n, err := h.staged(tx)
		if err != nil {
			return err
		}
		if points := len(n.Payload.(domain.PointCloudPayload).Points); points != len(colors) {
			return fmt.Errorf("%w: %d colors for %d points", domain.ErrValidation, len(colors), points)
		}
		return tx.SetField(h.path, domain.FieldColors, colors)
	})
}

// SetCloud replaces points and colors together, changing the point count.
func (h *PointCloudHandle) SetCloud(ctx context.Context, points [][3]float32, colors [][3]uint8) error {
	if len(points) != len(colors) {
		return fmt.Errorf("%w: %d points but %d colors", domain.ErrValidation, len(points), len(colors))
	}
	return h.setAll(ctx,
		fieldValue{domain.FieldPoints, points},
		fieldValue{domain.FieldColors, colors},
	)
}

// SetPointSize sets the rendered point size.
func (h *PointCloudHandle) SetPointSize(ctx context.Context, size float32) error {
	return h.set(ctx, domain.FieldPointSize, size)
}

// FrustumHandle controls a camera frustum node.
type FrustumHandle struct {
	NodeHandle
}

// SetFov sets the vertical field of view in radians, in (0, pi).
func (h *FrustumHandle) SetFov(ctx context.Context, fov float64) error {
	return h.set(ctx, domain.FieldFov, fov)
}

// SetAspect sets the width over height ratio.
func (h *FrustumHandle) SetAspect(ctx context.Context, aspect float64) error {
	return h.set(ctx, domain.FieldAspect, aspect)
}

// SetScale sets the drawn size of the frustum.
func (h *FrustumHandle) SetScale(ctx context.Context, scale float64) error {
	return h.set(ctx, domain.FieldScale, scale)
}

// ImageHandle controls an image node.
type ImageHandle struct {
	NodeHandle
}

// SetImage replaces the encoded image.
func (h *ImageHandle) SetImage(ctx context.Context, img domain.EncodedImage) error {
	return h.set(ctx, domain.FieldImage, img)
}

// SetRenderSize sets the plane size in scene units, in one transaction.
func (h *ImageHandle) SetRenderSize(ctx context.Context, width, height float64) error {
	return h.setAll(ctx,
		fieldValue{domain.FieldRenderWidth, width},
		fieldValue{domain.FieldRenderHeight, height},
	)
}
