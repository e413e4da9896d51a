package domain

// Field names a mutable attribute of a node. The names double as the JSON
// keys viewers receive in published batches.
type Field string

// Common fields, valid on every node type.
const (
	FieldWxyz     Field = "wxyz"
	FieldPosition Field = "position"
	FieldVisible  Field = "visible"
)

// Type-specific fields.
const (
	FieldShowAxes   Field = "show_axes"
	FieldAxesLength Field = "axes_length"
	FieldAxesRadius Field = "axes_radius"

	FieldPoints    Field = "points"
	FieldColors    Field = "colors"
	FieldPointSize Field = "point_size"

	FieldFov    Field = "fov"
	FieldAspect Field = "aspect"
	FieldScale  Field = "scale"
	FieldColor  Field = "color"

	FieldImage        Field = "image"
	FieldRenderWidth  Field = "render_width"
	FieldRenderHeight Field = "render_height"
)

// RootPath is the designated root of every scene graph.
const RootPath = "/"
