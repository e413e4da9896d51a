package domain

// PlaybackState is the transport state of the playback controller.
type PlaybackState struct {
	// CurrentIndex is the frame whose subtree is visible.
	CurrentIndex int     `json:"current_index"`
	Playing      bool    `json:"playing"`
	FPS          float64 `json:"fps"`
	NumFrames    int     `json:"num_frames"`
}

// ControlKind is the value type of a GUI control.
type ControlKind string

const (
	ControlInt      ControlKind = "int"
	ControlFloat    ControlKind = "float"
	ControlCheckbox ControlKind = "checkbox"
	ControlButton   ControlKind = "button"
)

// ControlState is the observable state of one GUI control, as shipped to viewers.
type ControlState struct {
	Label    string      `json:"label"`
	Kind     ControlKind `json:"kind"`
	Value    any         `json:"value,omitempty"`
	Min      *float64    `json:"min,omitempty"`
	Max      *float64    `json:"max,omitempty"`
	Step     *float64    `json:"step,omitempty"`
	Disabled bool        `json:"disabled"`
}
