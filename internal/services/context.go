package services

import "context"

type contextKey string

const (
	runIDKey     contextKey = "run_id"
	sceneIDKey   contextKey = "scene_id"
	assetIDKey   contextKey = "asset_id"
	assetTypeKey contextKey = "asset_type"
	stageKey     contextKey = "stage"
	requestIDKey contextKey = "request_id"
)

func withString(ctx context.Context, key contextKey, value string) context.Context {
	if value == "" {
		return ctx
	}
	return context.WithValue(ctx, key, value)
}

func stringFrom(ctx context.Context, key contextKey) (string, bool) {
	if v, ok := ctx.Value(key).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithRunID annotates context with the generation run identifier.
func WithRunID(ctx context.Context, id string) context.Context {
	return withString(ctx, runIDKey, id)
}

// RunIDFromContext extracts the run identifier if present.
func RunIDFromContext(ctx context.Context) (string, bool) {
	return stringFrom(ctx, runIDKey)
}

// WithSceneID annotates context with the scene an asset belongs to.
func WithSceneID(ctx context.Context, id string) context.Context {
	return withString(ctx, sceneIDKey, id)
}

// SceneIDFromContext returns the scene identifier if present.
func SceneIDFromContext(ctx context.Context) (string, bool) {
	return stringFrom(ctx, sceneIDKey)
}

// WithAsset annotates context with the asset identifier and type.
func WithAsset(ctx context.Context, id, assetType string) context.Context {
	ctx = withString(ctx, assetIDKey, id)
	return withString(ctx, assetTypeKey, assetType)
}

// AssetIDFromContext returns the asset identifier if present.
func AssetIDFromContext(ctx context.Context) (string, bool) {
	return stringFrom(ctx, assetIDKey)
}

// AssetTypeFromContext returns the asset type (image/audio) if present.
func AssetTypeFromContext(ctx context.Context) (string, bool) {
	return stringFrom(ctx, assetTypeKey)
}

// WithStage annotates context with the pipeline stage name.
func WithStage(ctx context.Context, stage string) context.Context {
	return withString(ctx, stageKey, stage)
}

// StageFromContext returns the stage name if present.
func StageFromContext(ctx context.Context) (string, bool) {
	return stringFrom(ctx, stageKey)
}

// WithRequestID annotates context with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	return withString(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	return stringFrom(ctx, requestIDKey)
}
