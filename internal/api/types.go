package api

import (
	"time"

	"slopreel/internal/assets"
)

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Asset describes one generated asset without its bytes.
type Asset struct {
	ID              string  `json:"id"`
	SceneID         string  `json:"sceneId"`
	Type            string  `json:"type"`
	Status          string  `json:"status"`
	MimeType        string  `json:"mimeType,omitempty"`
	Bytes           int     `json:"bytes"`
	DurationSeconds float64 `json:"durationSeconds,omitempty"`
	Error           string  `json:"error,omitempty"`
	RetryCount      int     `json:"retryCount"`
	HasTiming       bool    `json:"hasTiming,omitempty"`
	UpdatedAt       string  `json:"updatedAt,omitempty"`
}

// TypeProgress is the progress of one asset type.
type TypeProgress struct {
	Total      int     `json:"total"`
	Complete   int     `json:"complete"`
	Failed     int     `json:"failed"`
	Generating int     `json:"generating"`
	Pending    int     `json:"pending"`
	Percent    float64 `json:"percent"`
	Settled    bool    `json:"settled"`
	Running    int     `json:"running"`
	Queued     int     `json:"queued"`
	MaxWorkers int     `json:"maxConcurrent"`
}

// ProgressResponse reports generation progress for both asset types.
type ProgressResponse struct {
	RunID string       `json:"runId,omitempty"`
	Image TypeProgress `json:"image"`
	Audio TypeProgress `json:"audio"`
}

// AssetListResponse wraps a collection of assets.
type AssetListResponse struct {
	Items []Asset `json:"items"`
}

// RetryResponse acknowledges a retry request.
type RetryResponse struct {
	AssetID  string `json:"assetId"`
	Accepted bool   `json:"accepted"`
	Status   string `json:"status"`
}

// ErrorResponse is returned with every non-2xx status.
type ErrorResponse struct {
	Error string `json:"error"`
}

// FromAsset converts a store asset into its transport form.
func FromAsset(a assets.Asset, hasTiming bool) Asset {
	return Asset{
		ID:              a.ID,
		SceneID:         a.SceneID,
		Type:            string(a.Type),
		Status:          string(a.Status),
		MimeType:        a.MimeType,
		Bytes:           a.Size(),
		DurationSeconds: a.DurationSeconds,
		Error:           a.Error,
		RetryCount:      a.RetryCount,
		HasTiming:       hasTiming,
		UpdatedAt:       formatTime(a.UpdatedAt),
	}
}

func fromProgress(p assets.Progress) TypeProgress {
	return TypeProgress{
		Total:      p.Total,
		Complete:   p.Complete,
		Failed:     p.Failed,
		Generating: p.Generating,
		Pending:    p.Pending,
		Percent:    p.Percent(),
		Settled:    p.Settled(),
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}
