package assets

import "time"

// Type identifies what an asset holds.
type Type string

const (
	TypeImage Type = "image"
	TypeAudio Type = "audio"
)

// Types lists asset types in display order.
var Types = []Type{TypeImage, TypeAudio}

// Status is the lifecycle state of an asset.
//
//	pending -> generating -> complete | failed
//	failed | complete -> generating (manual retry)
type Status string

const (
	StatusPending    Status = "pending"
	StatusGenerating Status = "generating"
	StatusComplete   Status = "complete"
	StatusFailed     Status = "failed"
)

// Terminal reports whether no generation is pending or running.
func (s Status) Terminal() bool {
	return s == StatusComplete || s == StatusFailed
}

// Asset is a generated image or narration clip for one scene. Data is
// replaced wholesale on completion and never mutated in place, so copies may
// share it.
type Asset struct {
	ID              string    `json:"id"`
	SceneID         string    `json:"scene_id"`
	Type            Type      `json:"type"`
	Status          Status    `json:"status"`
	Data            []byte    `json:"-"`
	MimeType        string    `json:"mime_type,omitempty"`
	DurationSeconds float64   `json:"duration_seconds,omitempty"`
	Error           string    `json:"error,omitempty"`
	RetryCount      int       `json:"retry_count"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Size returns the payload length in bytes.
func (a Asset) Size() int {
	return len(a.Data)
}

// WordTiming is the spoken interval of one word, in seconds from clip start.
type WordTiming struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// AudioTiming is word-level alignment for an audio asset.
type AudioTiming struct {
	AssetID       string       `json:"asset_id"`
	Words         []WordTiming `json:"words"`
	TotalDuration float64      `json:"total_duration"`
}

// Result is what a successful generation stores on an asset.
type Result struct {
	Data            []byte
	MimeType        string
	DurationSeconds float64
}
