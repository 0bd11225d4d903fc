package presenter

// State is the lifecycle state of a popup instance.
type State int

const (
	StateNone State = iota
	StatePendingDelay
	StateGenerating
	StateResolved
	StateFailed
	StateDismissed
)

func (s State) String() string {
	switch s {
	case StateNone:
		return "none"
	case StatePendingDelay:
		return "pendingDelay"
	case StateGenerating:
		return "generating"
	case StateResolved:
		return "resolved"
	case StateFailed:
		return "failed"
	case StateDismissed:
		return "dismissed"
	}
	return "unknown"
}

// Mode selects what the panel shows.
type Mode int

const (
	// ModeCritique shows a generated critique.
	ModeCritique Mode = iota
	// ModeManual shows the prompt for the user to copy.
	ModeManual
)

// EventKind is a user interaction with the panel.
type EventKind string

const (
	EventClose        EventKind = "close"
	EventCopy         EventKind = "copy"
	EventPointerEnter EventKind = "pointerenter"
	EventToggle       EventKind = "toggle"
	EventRelay        EventKind = "relay"
)

// UIEvent is delivered by the renderer.
type UIEvent struct {
	InstanceID string    `json:"id"`
	Kind       EventKind `json:"kind"`
}

// View is everything a renderer needs to draw the panel.
type View struct {
	InstanceID string `json:"id"`
	State      string `json:"state"`
	Manual     bool   `json:"manual"`
	Working    bool   `json:"working"`
	Prompt     string `json:"prompt,omitempty"`
	Summary    string `json:"summary,omitempty"`
	Detail     string `json:"detail,omitempty"`
	ShowToggle bool   `json:"showToggle"`
	Expanded   bool   `json:"expanded"`
	Error      string `json:"error,omitempty"`
}

// CopyText is what a copy action places on the clipboard.
func (v View) CopyText() string {
	switch {
	case v.Manual:
		return v.Prompt
	case v.Error != "":
		return v.Error
	case v.Detail != "":
		return v.Summary + "\n" + v.Detail
	}
	return v.Summary
}

// Renderer draws the panel in the host page.
type Renderer interface {
	Show(v View) error
	Update(v View) error
	Remove(instanceID string) error
	RelayToInput(text string) error
}
