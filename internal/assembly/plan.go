package assembly

import (
	"errors"

	"slopreel/internal/assets"
	"slopreel/internal/scenes"
)

// DefaultImageDuration is used when a clip has neither timing nor a duration.
const DefaultImageDuration = 3.0

// ErrNoUsableScenes is returned when no scene has both a complete image and a
// complete audio asset.
var ErrNoUsableScenes = errors.New("no scene has both a complete image and audio")

// Resolution is the output frame size.
type Resolution struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Segment is one scene in timeline order.
type Segment struct {
	SceneID       string
	Index         int
	Image         assets.Asset
	Audio         assets.Asset
	ImageDuration float64
}

// Plan is everything the assembly service needs for one render.
type Plan struct {
	Segments   []Segment
	Dropped    []string
	Resolution Resolution
	FrameRate  int
}

// Duration is the sum of segment durations in seconds.
func (p Plan) Duration() float64 {
	var total float64
	for _, s := range p.Segments {
		total += s.ImageDuration
	}
	return total
}

// BuildPlan orders the usable scenes by Index. A scene is usable when both of
// its assets are complete; the rest are listed in Dropped. Each image is held
// for the length of its narration: timing total, else the asset duration,
// else DefaultImageDuration.
func BuildPlan(list []scenes.Scene, snapshot []assets.Asset, timings map[string]assets.AudioTiming, frameRate, width, height int) (Plan, error) {
	type pair struct{ image, audio *assets.Asset }
	byScene := make(map[string]*pair, len(list))
	for i := range snapshot {
		a := &snapshot[i]
		p := byScene[a.SceneID]
		if p == nil {
			p = &pair{}
			byScene[a.SceneID] = p
		}
		switch a.Type {
		case assets.TypeImage:
			p.image = a
		case assets.TypeAudio:
			p.audio = a
		}
	}

	plan := Plan{Resolution: Resolution{Width: width, Height: height}, FrameRate: frameRate}
	for _, scene := range scenes.Ordered(list) {
		p := byScene[scene.ID]
		if p == nil || !usable(p.image) || !usable(p.audio) {
			plan.Dropped = append(plan.Dropped, scene.ID)
			continue
		}
		plan.Segments = append(plan.Segments, Segment{
			SceneID:       scene.ID,
			Index:         scene.Index,
			Image:         *p.image,
			Audio:         *p.audio,
			ImageDuration: clipDuration(*p.audio, timings),
		})
	}
	if len(plan.Segments) == 0 {
		return plan, ErrNoUsableScenes
	}
	return plan, nil
}

func usable(a *assets.Asset) bool {
	return a != nil && a.Status == assets.StatusComplete && len(a.Data) > 0
}

func clipDuration(audio assets.Asset, timings map[string]assets.AudioTiming) float64 {
	if t, ok := timings[audio.ID]; ok && t.TotalDuration > 0 {
		return t.TotalDuration
	}
	if audio.DurationSeconds > 0 {
		return audio.DurationSeconds
	}
	return DefaultImageDuration
}
