package scene

import (
	"context"

	"github.com/aretw0/tableau/pkg/domain"
)

// Scene is the mutation front-end of a registry: it creates typed nodes and
// hands out handles, routing every write through its Manager.
type Scene struct {
	registry *Registry
	manager  *Manager
}

// New creates an empty scene (root only).
func New(opts ...Option) *Scene {
	reg := NewRegistry()
	return &Scene{
		registry: reg,
		manager:  NewManager(reg, opts...),
	}
}

// Registry returns the committed node store.
func (s *Scene) Registry() *Registry {
	return s.registry
}

// Manager returns the transaction manager.
func (s *Scene) Manager() *Manager {
	return s.manager
}

// Snapshot returns the committed scene, parents first.
func (s *Scene) Snapshot() domain.Snapshot {
	return s.registry.Snapshot()
}

// Atomic runs fn as a single transaction; see Manager.WithTransaction.
func (s *Scene) Atomic(ctx context.Context, fn func(ctx context.Context, tx *Tx) error) error {
	return s.manager.WithTransaction(ctx, fn)
}

// mutate joins the transaction carried by ctx, or opens a new one.
func (s *Scene) mutate(ctx context.Context, fn func(tx *Tx) error) error {
	if tx := activeTx(ctx, s.manager); tx != nil {
		return fn(tx)
	}
	return s.manager.WithTransaction(ctx, func(_ context.Context, tx *Tx) error {
		return fn(tx)
	})
}

// NodeOption adjusts a node before it is created.
type NodeOption func(*domain.Node)

// WithWxyz sets the initial rotation.
func WithWxyz(q domain.Quat) NodeOption {
	return func(n *domain.Node) {
		n.Transform.Wxyz = q
	}
}

// WithPosition sets the initial translation.
func WithPosition(p domain.Vec3) NodeOption {
	return func(n *domain.Node) {
		n.Transform.Position = p
	}
}

// WithVisible sets the initial visibility (default true).
func WithVisible(visible bool) NodeOption {
	return func(n *domain.Node) {
		n.Visible = visible
	}
}

func (s *Scene) add(ctx context.Context, path string, typ domain.NodeType, payload domain.Payload, opts []NodeOption) (NodeHandle, error) {
	n, err := domain.NewNode(path, typ, payload)
	if err != nil {
		return NodeHandle{}, err
	}
	for _, opt := range opts {
		opt(&n)
	}
	if q, err := n.Transform.Wxyz.Normalized(); err == nil {
		n.Transform.Wxyz = q
	}
	clean, err := domain.CleanPath(path)
	if err != nil {
		return NodeHandle{}, err
	}
	if err := s.mutate(ctx, func(tx *Tx) error { return tx.UpsertNode(n) }); err != nil {
		return NodeHandle{}, err
	}
	return NodeHandle{scene: s, path: clean, typ: typ}, nil
}

// AddGeneric adds a bare transform node.
func (s *Scene) AddGeneric(ctx context.Context, path string, opts ...NodeOption) (NodeHandle, error) {
	return s.add(ctx, path, domain.NodeTypeGeneric, nil, opts)
}

// AddFrame adds a coordinate frame.
func (s *Scene) AddFrame(ctx context.Context, path string, frame domain.FramePayload, opts ...NodeOption) (*FrameHandle, error) {
	h, err := s.add(ctx, path, domain.NodeTypeFrame, frame, opts)
	if err != nil {
		return nil, err
	}
	return &FrameHandle{NodeHandle: h}, nil
}

// AddPointCloud adds a point cloud. Points and colors are copied.
func (s *Scene) AddPointCloud(ctx context.Context, path string, cloud domain.PointCloudPayload, opts ...NodeOption) (*PointCloudHandle, error) {
	cloud.Points = append([][3]float32(nil), cloud.Points...)
	cloud.Colors = append([][3]uint8(nil), cloud.Colors...)
	h, err := s.add(ctx, path, domain.NodeTypePointCloud, cloud, opts)
	if err != nil {
		return nil, err
	}
	return &PointCloudHandle{NodeHandle: h}, nil
}

// AddCameraFrustum adds a camera frustum.
func (s *Scene) AddCameraFrustum(ctx context.Context, path string, frustum domain.FrustumPayload, opts ...NodeOption) (*FrustumHandle, error) {
	h, err := s.add(ctx, path, domain.NodeTypeCameraFrustum, frustum, opts)
	if err != nil {
		return nil, err
	}
	return &FrustumHandle{NodeHandle: h}, nil
}

// AddImage adds an image plane. The encoded data is copied.
func (s *Scene) AddImage(ctx context.Context, path string, image domain.ImagePayload, opts ...NodeOption) (*ImageHandle, error) {
	image.Data = append([]byte(nil), image.Data...)
	h, err := s.add(ctx, path, domain.NodeTypeImage, image, opts)
	if err != nil {
		return nil, err
	}
	return &ImageHandle{NodeHandle: h}, nil
}

// Handle returns a handle to an existing node.
func (s *Scene) Handle(path string) (NodeHandle, error) {
	n, err := s.registry.Get(path)
	if err != nil {
		return NodeHandle{}, err
	}
	return NodeHandle{scene: s, path: n.Path, typ: n.Type}, nil
}

// Remove deletes path and its subtree.
func (s *Scene) Remove(ctx context.Context, path string) error {
	return s.mutate(ctx, func(tx *Tx) error { return tx.Remove(path) })
}
