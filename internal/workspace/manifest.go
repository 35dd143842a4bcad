package workspace

import (
	"time"

	"slopreel/internal/gate"
)

// Manifest summarizes a run directory for humans and tooling.
type Manifest struct {
	RunID     string          `json:"run_id"`
	Topic     string          `json:"topic,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	Scenes    []ManifestScene `json:"scenes"`
	Gate      *gate.Verdict   `json:"gate,omitempty"`
	Video     *ManifestVideo  `json:"video,omitempty"`
}

// ManifestScene lists one scene's exported files.
type ManifestScene struct {
	ID         string         `json:"id"`
	Index      int            `json:"index"`
	Image      *ManifestAsset `json:"image,omitempty"`
	Audio      *ManifestAsset `json:"audio,omitempty"`
	TimingPath string         `json:"timing,omitempty"`
}

// ManifestAsset describes one asset and, when complete, its exported file.
type ManifestAsset struct {
	ID              string  `json:"id"`
	Status          string  `json:"status"`
	Path            string  `json:"path,omitempty"`
	MimeType        string  `json:"mime_type,omitempty"`
	Bytes           int     `json:"bytes,omitempty"`
	SHA256          string  `json:"sha256,omitempty"`
	DurationSeconds float64 `json:"duration_seconds,omitempty"`
	RetryCount      int     `json:"retry_count,omitempty"`
	Error           string  `json:"error,omitempty"`
}

// ManifestVideo records the assembled output.
type ManifestVideo struct {
	Path            string   `json:"path"`
	Bytes           int64    `json:"bytes"`
	DurationSeconds float64  `json:"duration_seconds,omitempty"`
	DroppedScenes   []string `json:"dropped_scenes,omitempty"`
}

// ManifestExtra carries run-level fields the workspace does not own.
type ManifestExtra struct {
	Topic string
	Gate  *gate.Verdict
	Video *ManifestVideo
}
