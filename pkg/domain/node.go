package domain

import (
	"fmt"
	"math"
)

// NodeType is the discriminant of a scene node's payload.
type NodeType string

const (
	// NodeTypeGeneric is a bare transform node with no payload.
	NodeTypeGeneric NodeType = "generic"
	// NodeTypeFrame is a coordinate frame, optionally drawn as axes.
	NodeTypeFrame NodeType = "frame"
	// NodeTypePointCloud holds colored point positions.
	NodeTypePointCloud NodeType = "point_cloud"
	// NodeTypeCameraFrustum draws a camera frustum.
	NodeTypeCameraFrustum NodeType = "camera_frustum"
	// NodeTypeImage places an encoded image on a plane.
	NodeTypeImage NodeType = "image"
)

// Valid reports whether t is a known node type.
func (t NodeType) Valid() bool {
	switch t {
	case NodeTypeGeneric, NodeTypeFrame, NodeTypePointCloud, NodeTypeCameraFrustum, NodeTypeImage:
		return true
	}
	return false
}

// Node is a single entry of the scene graph.
// Nodes are values: the registry stores copies and payload slices are never
// modified in place once a node has been committed.
type Node struct {
	Path      string    `json:"path"`
	Type      NodeType  `json:"type"`
	Transform Transform `json:"transform"`
	Visible   bool      `json:"visible"`
	Payload   Payload   `json:"payload"`
}

// NewNode creates a visible node with an identity transform.
// A nil payload is replaced by the zero payload of the given type.
func NewNode(path string, typ NodeType, payload Payload) (Node, error) {
	if !typ.Valid() {
		return Node{}, fmt.Errorf("%w: unknown node type %q", ErrValidation, typ)
	}
	if payload == nil {
		payload = DefaultPayload(typ)
	}
	if payload.Type() != typ {
		return Node{}, fmt.Errorf("%w: payload %q does not match node type %q", ErrTypeMismatch, payload.Type(), typ)
	}
	if err := payload.Validate(); err != nil {
		return Node{}, err
	}
	return Node{
		Path:      path,
		Type:      typ,
		Transform: IdentityTransform(),
		Visible:   true,
		Payload:   payload,
	}, nil
}

// Validate checks the node's transform and payload.
func (n Node) Validate() error {
	if err := n.Transform.Validate(); err != nil {
		return fmt.Errorf("%s: %w", n.Path, err)
	}
	if n.Payload == nil {
		return fmt.Errorf("%w: %s: missing payload", ErrValidation, n.Path)
	}
	if n.Payload.Type() != n.Type {
		return fmt.Errorf("%w: %s: payload %q on %q node", ErrTypeMismatch, n.Path, n.Payload.Type(), n.Type)
	}
	if err := n.Payload.Validate(); err != nil {
		return fmt.Errorf("%s: %w", n.Path, err)
	}
	return nil
}

// WithField returns a copy of n with field set to value.
// It fails with ErrTypeMismatch when the field does not exist on the node's
// type and with ErrValidation when value has the wrong shape.
func (n Node) WithField(field Field, value any) (Node, error) {
	switch field {
	case FieldWxyz:
		q, ok := value.(Quat)
		if !ok {
			return n, invalidValue(field, value)
		}
		nq, err := q.Normalized()
		if err != nil {
			return n, err
		}
		n.Transform.Wxyz = nq
		return n, nil
	case FieldPosition:
		v, ok := value.(Vec3)
		if !ok {
			return n, invalidValue(field, value)
		}
		if !v.Finite() {
			return n, fmt.Errorf("%w: position must be finite", ErrValidation)
		}
		n.Transform.Position = v
		return n, nil
	case FieldVisible:
		b, ok := value.(bool)
		if !ok {
			return n, invalidValue(field, value)
		}
		n.Visible = b
		return n, nil
	}

	if n.Payload == nil {
		return n, fmt.Errorf("%w: field %q on %q node", ErrTypeMismatch, field, n.Type)
	}
	p, err := n.Payload.withField(field, value)
	if err != nil {
		return n, err
	}
	n.Payload = p
	return n, nil
}

// Payload is the type-specific part of a node.
type Payload interface {
	Type() NodeType
	Validate() error
	withField(field Field, value any) (Payload, error)
}

// DefaultPayload returns the zero-configuration payload for a node type.
func DefaultPayload(t NodeType) Payload {
	switch t {
	case NodeTypeFrame:
		return FramePayload{ShowAxes: true, AxesLength: 0.5, AxesRadius: 0.025}
	case NodeTypePointCloud:
		return PointCloudPayload{PointSize: 0.02}
	case NodeTypeCameraFrustum:
		return FrustumPayload{Fov: math.Pi / 3, Aspect: 1, Scale: 0.3, Color: [3]uint8{20, 20, 20}}
	case NodeTypeImage:
		return ImagePayload{Format: "png", RenderWidth: 1, RenderHeight: 1}
	default:
		return GenericPayload{}
	}
}

// GenericPayload carries no data.
type GenericPayload struct{}

func (GenericPayload) Type() NodeType  { return NodeTypeGeneric }
func (GenericPayload) Validate() error { return nil }

func (p GenericPayload) withField(field Field, _ any) (Payload, error) {
	return p, fmt.Errorf("%w: field %q on %q node", ErrTypeMismatch, field, NodeTypeGeneric)
}

// FramePayload draws a coordinate frame.
type FramePayload struct {
	ShowAxes   bool    `json:"show_axes"`
	AxesLength float64 `json:"axes_length"`
	AxesRadius float64 `json:"axes_radius"`
}

func (FramePayload) Type() NodeType { return NodeTypeFrame }

func (p FramePayload) Validate() error {
	if !positive(p.AxesLength) || !positive(p.AxesRadius) {
		return fmt.Errorf("%w: axes length and radius must be positive", ErrValidation)
	}
	return nil
}

func (p FramePayload) withField(field Field, value any) (Payload, error) {
	switch field {
	case FieldShowAxes:
		b, ok := value.(bool)
		if !ok {
			return p, invalidValue(field, value)
		}
		p.ShowAxes = b
	case FieldAxesLength:
		f, ok := value.(float64)
		if !ok {
			return p, invalidValue(field, value)
		}
		p.AxesLength = f
	case FieldAxesRadius:
		f, ok := value.(float64)
		if !ok {
			return p, invalidValue(field, value)
		}
		p.AxesRadius = f
	default:
		return p, fmt.Errorf("%w: field %q on %q node", ErrTypeMismatch, field, NodeTypeFrame)
	}
	return p, p.Validate()
}

// PointCloudPayload holds N points and N RGB colors.
type PointCloudPayload struct {
	Points    [][3]float32 `json:"points"`
	Colors    [][3]uint8   `json:"colors"`
	PointSize float32      `json:"point_size"`
}

func (PointCloudPayload) Type() NodeType { return NodeTypePointCloud }

func (p PointCloudPayload) Validate() error {
	if len(p.Points) != len(p.Colors) {
		return fmt.Errorf("%w: %d points but %d colors", ErrValidation, len(p.Points), len(p.Colors))
	}
	if !positive(float64(p.PointSize)) {
		return fmt.Errorf("%w: point size must be positive", ErrValidation)
	}
	return validatePoints(p.Points)
}

// withField checks element shape only. Point/color count consistency is a
// property of the whole node and is checked when a transaction commits, so
// a transaction may update both arrays one after the other.
func (p PointCloudPayload) withField(field Field, value any) (Payload, error) {
	switch field {
	case FieldPoints:
		pts, ok := value.([][3]float32)
		if !ok {
			return p, invalidValue(field, value)
		}
		if err := validatePoints(pts); err != nil {
			return p, err
		}
		p.Points = pts
	case FieldColors:
		cs, ok := value.([][3]uint8)
		if !ok {
			return p, invalidValue(field, value)
		}
		p.Colors = cs
	case FieldPointSize:
		f, ok := value.(float32)
		if !ok {
			return p, invalidValue(field, value)
		}
		if !positive(float64(f)) {
			return p, fmt.Errorf("%w: point size must be positive", ErrValidation)
		}
		p.PointSize = f
	default:
		return p, fmt.Errorf("%w: field %q on %q node", ErrTypeMismatch, field, NodeTypePointCloud)
	}
	return p, nil
}

// FrustumPayload describes a camera frustum. Fov is the vertical field of
// view in radians.
type FrustumPayload struct {
	Fov    float64  `json:"fov"`
	Aspect float64  `json:"aspect"`
	Scale  float64  `json:"scale"`
	Color  [3]uint8 `json:"color"`
}

func (FrustumPayload) Type() NodeType { return NodeTypeCameraFrustum }

func (p FrustumPayload) Validate() error {
	if !(p.Fov > 0 && p.Fov < math.Pi) {
		return fmt.Errorf("%w: fov %v outside (0, pi)", ErrValidation, p.Fov)
	}
	if !positive(p.Aspect) || !positive(p.Scale) {
		return fmt.Errorf("%w: aspect and scale must be positive", ErrValidation)
	}
	return nil
}

func (p FrustumPayload) withField(field Field, value any) (Payload, error) {
	if field == FieldColor {
		c, ok := value.([3]uint8)
		if !ok {
			return p, invalidValue(field, value)
		}
		p.Color = c
		return p, nil
	}
	f, isFloat := value.(float64)
	switch field {
	case FieldFov:
		p.Fov = f
	case FieldAspect:
		p.Aspect = f
	case FieldScale:
		p.Scale = f
	default:
		return p, fmt.Errorf("%w: field %q on %q node", ErrTypeMismatch, field, NodeTypeCameraFrustum)
	}
	if !isFloat {
		return p, invalidValue(field, value)
	}
	return p, p.Validate()
}

// EncodedImage is a compressed image buffer.
type EncodedImage struct {
	Format string `json:"format"`
	Data   []byte `json:"data"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// ImagePayload places an encoded image on a RenderWidth x RenderHeight plane.
type ImagePayload struct {
	Format       string  `json:"format"`
	Data         []byte  `json:"data"`
	Width        int     `json:"width"`
	Height       int     `json:"height"`
	RenderWidth  float64 `json:"render_width"`
	RenderHeight float64 `json:"render_height"`
}

func (ImagePayload) Type() NodeType { return NodeTypeImage }

func (p ImagePayload) Validate() error {
	if p.Format != "png" && p.Format != "jpeg" {
		return fmt.Errorf("%w: unsupported image format %q", ErrValidation, p.Format)
	}
	if p.Width < 0 || p.Height < 0 {
		return fmt.Errorf("%w: negative image size", ErrValidation)
	}
	if !positive(p.RenderWidth) || !positive(p.RenderHeight) {
		return fmt.Errorf("%w: render size must be positive", ErrValidation)
	}
	return nil
}

func (p ImagePayload) withField(field Field, value any) (Payload, error) {
	switch field {
	case FieldImage:
		img, ok := value.(EncodedImage)
		if !ok {
			return p, invalidValue(field, value)
		}
		p.Format, p.Data, p.Width, p.Height = img.Format, img.Data, img.Width, img.Height
	case FieldRenderWidth:
		f, ok := value.(float64)
		if !ok {
			return p, invalidValue(field, value)
		}
		p.RenderWidth = f
	case FieldRenderHeight:
		f, ok := value.(float64)
		if !ok {
			return p, invalidValue(field, value)
		}
		p.RenderHeight = f
	default:
		return p, fmt.Errorf("%w: field %q on %q node", ErrTypeMismatch, field, NodeTypeImage)
	}
	return p, p.Validate()
}

func validatePoints(pts [][3]float32) error {
	for i, pt := range pts {
		for _, c := range pt {
			f := float64(c)
			if math.IsNaN(f) || math.IsInf(f, 0) {
				return fmt.Errorf("%w: point %d is not finite", ErrValidation, i)
			}
		}
	}
	return nil
}

func positive(f float64) bool {
	return f > 0 && !math.IsInf(f, 0)
}

func invalidValue(field Field, value any) error {
	return fmt.Errorf("%w: field %q does not accept %T", ErrValidation, field, value)
}
