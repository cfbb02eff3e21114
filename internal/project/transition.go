package project

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// TransitionType is the visual transition played into a scene.
type TransitionType int

const (
	TransitionNone TransitionType = iota
	TransitionFade
	TransitionDissolve
	TransitionWipeLeft
	TransitionWipeRight
	TransitionSlideLeft
	TransitionSlideRight
	TransitionZoomIn
)

// Transition pairs a type with its overlap in seconds.
type Transition struct {
	Type     TransitionType `yaml:"type"`
	Duration float64        `yaml:"duration"`
}

// XfadeName returns the xfade transition name. None has no mapping and
// reports false; callers must normalise it before building a graph.
func (t TransitionType) XfadeName() (string, bool) {
	switch t {
	case TransitionFade:
		return "fade", true
	case TransitionDissolve:
		return "dissolve", true
	case TransitionWipeLeft:
		return "wipeleft", true
	case TransitionWipeRight:
		return "wiperight", true
	case TransitionSlideLeft:
		return "slideleft", true
	case TransitionSlideRight:
		return "slideright", true
	case TransitionZoomIn:
		return "zoomin", true
	case TransitionNone:
		return "", false
	}
	return "", false
}

func (t TransitionType) String() string {
	switch t {
	case TransitionNone:
		return "none"
	case TransitionFade:
		return "fade"
	case TransitionDissolve:
		return "dissolve"
	case TransitionWipeLeft:
		return "wipe_left"
	case TransitionWipeRight:
		return "wipe_right"
	case TransitionSlideLeft:
		return "slide_left"
	case TransitionSlideRight:
		return "slide_right"
	case TransitionZoomIn:
		return "zoom_in"
	}
	return fmt.Sprintf("TransitionType(%d)", int(t))
}

// ParseTransitionType accepts the names printed by String, plus the
// xfade spellings ("wipeleft") and an empty string for none.
func ParseTransitionType(s string) (TransitionType, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.NewReplacer("_", "", "-", "", " ", "").Replace(key)
	switch key {
	case "", "none", "cut":
		return TransitionNone, nil
	case "fade":
		return TransitionFade, nil
	case "dissolve":
		return TransitionDissolve, nil
	case "wipeleft":
		return TransitionWipeLeft, nil
	case "wiperight":
		return TransitionWipeRight, nil
	case "slideleft":
		return TransitionSlideLeft, nil
	case "slideright":
		return TransitionSlideRight, nil
	case "zoomin":
		return TransitionZoomIn, nil
	}
	return TransitionNone, fmt.Errorf("unknown transition %q", s)
}

// MarshalYAML implements yaml.Marshaler.
func (t TransitionType) MarshalYAML() (interface{}, error) {
	return t.String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (t *TransitionType) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	v, err := ParseTransitionType(s)
	if err != nil {
		return err
	}
	*t = v
	return nil
}
