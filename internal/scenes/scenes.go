package scenes

import (
	"slices"
	"strings"
)

// Scene is one narrated beat of a video: a script read by TTS and an image
// description handed to the image provider. Index is fixed at creation and
// defines timeline order.
type Scene struct {
	ID               string `yaml:"id" json:"id"`
	Index            int    `yaml:"index" json:"index"`
	Script           string `yaml:"script" json:"script"`
	ImageDescription string `yaml:"image_description" json:"imageDescription"`
}

// HasScript reports whether the scene has narration text.
func (s Scene) HasScript() bool {
	return strings.TrimSpace(s.Script) != ""
}

// HasImageDescription reports whether the scene has an image prompt.
func (s Scene) HasImageDescription() bool {
	return strings.TrimSpace(s.ImageDescription) != ""
}

// Source supplies the current scene list. Implementations return a copy the
// caller may keep.
type Source interface {
	Scenes() []Scene
}

// List is a static Source.
type List []Scene

// Scenes returns the scenes sorted by Index.
func (l List) Scenes() []Scene {
	return Ordered(l)
}

// Ordered returns a copy of scenes sorted by Index.
func Ordered(in []Scene) []Scene {
	out := slices.Clone(in)
	slices.SortStableFunc(out, func(a, b Scene) int { return a.Index - b.Index })
	return out
}

// Find returns the scene with the given id.
func Find(list []Scene, id string) (Scene, bool) {
	for _, s := range list {
		if s.ID == id {
			return s, true
		}
	}
	return Scene{}, false
}

// Neighbours returns the scripts of the scenes immediately before and after
// id in Index order. Missing neighbours yield empty strings.
func Neighbours(ordered []Scene, id string) (previous, next string) {
	for i, s := range ordered {
		if s.ID != id {
			continue
		}
		if i > 0 {
			previous = ordered[i-1].Script
		}
		if i+1 < len(ordered) {
			next = ordered[i+1].Script
		}
		return previous, next
	}
	return "", ""
}
