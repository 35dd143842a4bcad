package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"slopreel/internal/assets"
	"slopreel/internal/gate"
	"slopreel/internal/ledger"
	"slopreel/internal/limiter"
	"slopreel/internal/logging"
	"slopreel/internal/providers/image"
	"slopreel/internal/providers/tts"
	"slopreel/internal/scenes"
)

// JobLimiter bounds concurrent generation jobs for one provider.
type JobLimiter = limiter.Limiter[assets.Asset]

// NewJobLimiter builds a limiter for one provider.
func NewJobLimiter(name string, maxConcurrent int, logger *slog.Logger) *JobLimiter {
	return limiter.New[assets.Asset](maxConcurrent, limiter.WithName(name), limiter.WithLogger(logger))
}

// ImageProcessor post-processes generated images before they are stored.
type ImageProcessor interface {
	Process(ctx context.Context, data []byte, mimeType string) ([]byte, string, error)
}

// Recorder receives one start and one finish per provider attempt.
type Recorder interface {
	RecordStart(ctx context.Context, attempt ledger.Attempt) (int64, error)
	RecordFinish(ctx context.Context, id int64, finish ledger.Finish) error
}

// Deps are the collaborators the orchestrator drives. Images, Speech, Store,
// Scenes and both limiters are required.
type Deps struct {
	Scenes       scenes.Source
	Store        *assets.Store
	ImageLimiter *JobLimiter
	AudioLimiter *JobLimiter
	Images       image.Generator
	Speech       tts.Synthesizer
	PostProcess  ImageProcessor
	Recorder     Recorder
	Logger       *slog.Logger
}

// Settings are the per-run provider parameters.
type Settings struct {
	RunID         string
	ImageProvider string
	ImageModel    string
	ImageQuality  string
	Width         int
	Height        int
	TTSProvider   string
	VoiceID       string
	TTSModel      string
	Speed         float64
}

// Summary counts what a batch call did.
type Summary struct {
	Submitted  int `json:"submitted"`
	Succeeded  int `json:"succeeded"`
	Failed     int `json:"failed"`
	Skipped    int `json:"skipped"`
	Superseded int `json:"superseded"`
	Cancelled  int `json:"cancelled"`
}

// Add merges other into s.
func (s Summary) Add(other Summary) Summary {
	s.Submitted += other.Submitted
	s.Succeeded += other.Succeeded
	s.Failed += other.Failed
	s.Skipped += other.Skipped
	s.Superseded += other.Superseded
	s.Cancelled += other.Cancelled
	return s
}

// Observer is told about every asset that reaches complete or failed.
type Observer func(assets.Asset)

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithObserver registers fn for terminal asset transitions.
func WithObserver(fn Observer) Option {
	return func(o *Orchestrator) {
		if fn != nil {
			o.observers = append(o.observers, fn)
		}
	}
}

// WithClock overrides the time source used for attempt durations.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// Orchestrator coordinates asset generation for one run.
type Orchestrator struct {
	deps      Deps
	settings  Settings
	logger    *slog.Logger
	observers []Observer
	now       func() time.Time
}

// New validates deps and returns an orchestrator.
func New(deps Deps, settings Settings, opts ...Option) (*Orchestrator, error) {
	switch {
	case deps.Scenes == nil:
		return nil, errors.New("orchestrator: scene source is required")
	case deps.Store == nil:
		return nil, errors.New("orchestrator: asset store is required")
	case deps.ImageLimiter == nil || deps.AudioLimiter == nil:
		return nil, errors.New("orchestrator: image and audio limiters are required")
	case deps.Images == nil:
		return nil, errors.New("orchestrator: image generator is required")
	case deps.Speech == nil:
		return nil, errors.New("orchestrator: speech synthesizer is required")
	}
	o := &Orchestrator{
		deps:     deps,
		settings: settings,
		logger:   logging.NewComponentLogger(deps.Logger, "orchestrator"),
		now:      time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o, nil
}

// Store exposes the asset store the orchestrator writes to.
func (o *Orchestrator) Store() *assets.Store { return o.deps.Store }

// Scenes returns the current scene list in Index order.
func (o *Orchestrator) Scenes() []scenes.Scene {
	return scenes.Ordered(o.deps.Scenes.Scenes())
}

// GenerateImages submits an image job for every scene whose image asset is
// pending or failed and waits for all of them.
func (o *Orchestrator) GenerateImages(ctx context.Context) Summary {
	return o.generate(ctx, assets.TypeImage)
}

// GenerateAudio submits a narration job for every scene whose audio asset is
// pending or failed and waits for all of them.
func (o *Orchestrator) GenerateAudio(ctx context.Context) Summary {
	return o.generate(ctx, assets.TypeAudio)
}

// GenerateAll runs GenerateImages and GenerateAudio concurrently.
func (o *Orchestrator) GenerateAll(ctx context.Context) (images, audio Summary) {
	var g errgroup.Group
	g.Go(func() error {
		images = o.GenerateImages(ctx)
		return nil
	})
	g.Go(func() error {
		audio = o.GenerateAudio(ctx)
		return nil
	})
	_ = g.Wait()
	return images, audio
}

// Progress returns per-type counts derived from the current store contents.
func (o *Orchestrator) Progress() assets.Overview {
	return assets.ComputeProgress(o.deps.Store.Snapshot())
}

// Readiness evaluates the assembly gate.
func (o *Orchestrator) Readiness(action gate.Action) gate.Verdict {
	return gate.Evaluate(o.deps.Scenes.Scenes(), o.deps.Store.Snapshot(), action)
}

// Limiter returns the limiter for typ.
func (o *Orchestrator) Limiter(typ assets.Type) *JobLimiter {
	if typ == assets.TypeAudio {
		return o.deps.AudioLimiter
	}
	return o.deps.ImageLimiter
}

// Load is a point-in-time view of one limiter.
type Load struct {
	Running       int `json:"running"`
	Pending       int `json:"pending"`
	MaxConcurrent int `json:"max_concurrent"`
}

// Load reports the limiter occupancy for typ.
func (o *Orchestrator) Load(typ assets.Type) Load {
	l := o.Limiter(typ)
	return Load{Running: l.Running(), Pending: l.Pending(), MaxConcurrent: l.MaxConcurrent()}
}

// Assets returns a copy of every asset in the store.
func (o *Orchestrator) Assets() []assets.Asset {
	return o.deps.Store.Snapshot()
}

// Timing returns the word timing recorded for an audio asset.
func (o *Orchestrator) Timing(assetID string) (assets.AudioTiming, bool) {
	return o.deps.Store.Timing(assetID)
}

func (o *Orchestrator) generate(ctx context.Context, typ assets.Type) Summary {
	ordered := o.Scenes()
	o.deps.Store.EnsureScenes(ordered)
	lim := o.Limiter(typ)

	var (
		summary Summary
		futures []*limiter.Future[assets.Asset]
	)
	for _, scene := range ordered {
		if !hasInput(scene, typ) {
			summary.Skipped++
			continue
		}
		asset, ok := o.deps.Store.ForScene(scene.ID, typ)
		if !ok || (asset.Status != assets.StatusPending && asset.Status != assets.StatusFailed) {
			continue
		}
		j := job{scene: scene, ordered: ordered, assetID: asset.ID, typ: typ}
		futures = append(futures, lim.Add(ctx, func(ctx context.Context) (assets.Asset, error) {
			return o.run(ctx, j)
		}))
		summary.Submitted++
	}

	o.logger.Info("generation batch submitted",
		logging.String(logging.FieldEventType, "batch_submitted"),
		logging.String(logging.FieldAssetType, string(typ)),
		logging.Int("submitted", summary.Submitted),
		logging.Int("skipped", summary.Skipped),
		logging.Int("max_concurrent", lim.MaxConcurrent()),
	)
	summary = summary.Add(collect(futures))
	o.logBatch(typ, summary)
	return summary
}

// RetryFailed resubmits every failed asset through its provider limiter with
// retry semantics and waits for all of them.
func (o *Orchestrator) RetryFailed(ctx context.Context) Summary {
	ordered := o.Scenes()
	var (
		summary Summary
		futures []*limiter.Future[assets.Asset]
	)
	for _, asset := range o.deps.Store.Snapshot() {
		if asset.Status != assets.StatusFailed {
			continue
		}
		scene, ok := scenes.Find(ordered, asset.SceneID)
		if !ok || !hasInput(scene, asset.Type) {
			summary.Skipped++
			continue
		}
		j := job{scene: scene, ordered: ordered, assetID: asset.ID, typ: asset.Type, retry: true}
		futures = append(futures, o.Limiter(asset.Type).Add(ctx, func(ctx context.Context) (assets.Asset, error) {
			return o.run(ctx, j)
		}))
		summary.Submitted++
	}
	summary = summary.Add(collect(futures))
	o.logger.Info("retry round finished",
		logging.String(logging.FieldEventType, "retry_round_finished"),
		logging.Int("submitted", summary.Submitted),
		logging.Int("succeeded", summary.Succeeded),
		logging.Int("failed", summary.Failed),
	)
	return summary
}

// RetryAsset regenerates one asset immediately, outside the limiters. Unknown
// assets, assets whose scene is gone or has no input, and assets already
// generating are ignored. The returned error is the generation failure, which
// is also recorded on the asset.
func (o *Orchestrator) RetryAsset(ctx context.Context, assetID string) error {
	asset, ok := o.deps.Store.Get(assetID)
	if !ok {
		o.logger.Debug("retry ignored: unknown asset", logging.String(logging.FieldAssetID, assetID))
		return nil
	}
	ordered := o.Scenes()
	scene, ok := scenes.Find(ordered, asset.SceneID)
	if !ok {
		o.logger.Debug("retry ignored: scene not found",
			logging.String(logging.FieldAssetID, assetID),
			logging.String(logging.FieldSceneID, asset.SceneID),
		)
		return nil
	}
	if !hasInput(scene, asset.Type) {
		o.logger.Debug("retry ignored: scene has no input",
			logging.String(logging.FieldAssetID, assetID),
			logging.String(logging.FieldAssetType, string(asset.Type)),
		)
		return nil
	}
	_, err := o.run(ctx, job{scene: scene, ordered: ordered, assetID: assetID, typ: asset.Type, retry: true})
	if errors.Is(err, errSuperseded) {
		return nil
	}
	return err
}

func (o *Orchestrator) logBatch(typ assets.Type, s Summary) {
	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "batch_finished"),
		logging.String(logging.FieldAssetType, string(typ)),
		logging.Int("submitted", s.Submitted),
		logging.Int("succeeded", s.Succeeded),
		logging.Int("failed", s.Failed),
		logging.Int("skipped", s.Skipped),
	}
	if s.Superseded > 0 {
		attrs = append(attrs, logging.Int("superseded", s.Superseded))
	}
	if s.Cancelled > 0 {
		attrs = append(attrs, logging.Int("cancelled", s.Cancelled))
	}
	o.logger.Info("generation batch finished", logging.Args(attrs...)...)
}

func hasInput(scene scenes.Scene, typ assets.Type) bool {
	if typ == assets.TypeAudio {
		return scene.HasScript()
	}
	return scene.HasImageDescription()
}

// collect waits for every future regardless of caller cancellation and tallies them.
func collect(futures []*limiter.Future[assets.Asset]) Summary {
	var s Summary
	for _, f := range futures {
		<-f.Done()
		asset, err := f.Wait(context.Background())
		switch {
		case errors.Is(err, errSuperseded):
			s.Superseded++
		case err != nil && asset.ID == "" && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)):
			s.Cancelled++
		case asset.Status == assets.StatusComplete:
			s.Succeeded++
		default:
			s.Failed++
		}
	}
	return s
}
