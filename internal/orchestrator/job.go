package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"slopreel/internal/assets"
	"slopreel/internal/ledger"
	"slopreel/internal/logging"
	"slopreel/internal/providers/image"
	"slopreel/internal/providers/tts"
	"slopreel/internal/scenes"
	"slopreel/internal/services"
)

// errSuperseded marks a job that found its asset no longer eligible: already
// generating elsewhere, or completed by a retry while the job was queued.
var errSuperseded = errors.New("asset generation superseded")

type job struct {
	scene   scenes.Scene
	ordered []scenes.Scene
	assetID string
	typ     assets.Type
	retry   bool
}

// run is the job boundary: whatever happens inside, the asset ends complete
// or failed unless the store refused to start it.
func (o *Orchestrator) run(ctx context.Context, j job) (result assets.Asset, err error) {
	store := o.deps.Store
	var begun assets.Asset
	if j.retry {
		begun, err = store.MarkRetrying(j.assetID)
	} else {
		begun, err = store.MarkGenerating(j.assetID)
	}
	if err != nil {
		if errors.Is(err, assets.ErrInFlight) || errors.Is(err, assets.ErrNotEligible) {
			o.logger.Debug("generation skipped",
				logging.String(logging.FieldAssetID, j.assetID),
				logging.String("status", string(begun.Status)),
				logging.Error(err),
			)
			return begun, errSuperseded
		}
		return begun, err
	}

	ctx = services.WithRunID(ctx, o.settings.RunID)
	ctx = services.WithSceneID(ctx, j.scene.ID)
	ctx = services.WithAsset(ctx, j.assetID, string(j.typ))
	logger := logging.WithContext(ctx, o.logger)
	started := o.now()
	attemptID := o.recordStart(ctx, j, begun)

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: generation panicked: %v", services.ErrTransient, r)
			logger.Error("generation panicked",
				logging.String(logging.FieldEventType, "job_panic"),
				logging.String(logging.FieldErrorHint, "report this as a bug with the log file attached"),
				logging.Any("panic", r),
				logging.String("stack", string(debug.Stack())),
			)
			result = o.fail(ctx, j, attemptID, started, err)
		}
	}()

	logger.Debug("generation started", logging.Bool("retry", j.retry), logging.Int("retry_count", begun.RetryCount))

	var out assets.Result
	switch j.typ {
	case assets.TypeImage:
		out, err = o.renderImage(ctx, j.scene)
	case assets.TypeAudio:
		out, err = o.renderAudio(ctx, j)
	default:
		err = services.Wrap(services.ErrValidation, "orchestrator", "dispatch", "unknown asset type "+string(j.typ), nil)
	}
	if err != nil {
		return o.fail(ctx, j, attemptID, started, err), err
	}

	done, storeErr := store.Complete(j.assetID, out)
	if storeErr != nil {
		return done, storeErr
	}
	elapsed := o.now().Sub(started)
	o.recordFinish(ctx, attemptID, ledger.Finish{
		Status:   ledger.StatusSucceeded,
		Bytes:    int64(len(out.Data)),
		Duration: elapsed,
	})
	logger.Info("asset generated",
		logging.String(logging.FieldEventType, "asset_complete"),
		logging.Int("bytes", len(out.Data)),
		logging.String("mime_type", out.MimeType),
		logging.Duration("elapsed", elapsed),
	)
	o.notify(done)
	return done, nil
}

func (o *Orchestrator) fail(ctx context.Context, j job, attemptID int64, started time.Time, cause error) assets.Asset {
	reason := services.FailureReason(cause)
	failed, err := o.deps.Store.Fail(j.assetID, reason)
	if err != nil {
		o.logger.Debug("fail on missing asset", logging.String(logging.FieldAssetID, j.assetID), logging.Error(err))
	}
	if j.typ == assets.TypeAudio {
		o.deps.Store.ClearTiming(j.assetID)
	}
	o.recordFinish(ctx, attemptID, ledger.Finish{
		Status:       ledger.StatusFailed,
		Outcome:      services.Classify(cause),
		ErrorMessage: reason,
		Duration:     o.now().Sub(started),
	})
	logging.WarnWithContext(logging.WithContext(ctx, o.logger), "asset generation failed", "asset_failed",
		logging.String("reason", reason),
		logging.String("outcome", services.Classify(cause)),
		logging.String(logging.FieldErrorHint, failureHint(cause)),
		logging.String(logging.FieldImpact, "scene will be left out of assembly until retried"),
	)
	o.notify(failed)
	return failed
}

func (o *Orchestrator) renderImage(ctx context.Context, scene scenes.Scene) (assets.Result, error) {
	s := o.settings
	dims := image.Negotiate(s.ImageModel, s.Width, s.Height)
	res, err := o.deps.Images.Generate(ctx, image.Request{
		Prompt:      strings.TrimSpace(scene.ImageDescription),
		Model:       s.ImageModel,
		Size:        dims.Size,
		AspectRatio: dims.AspectRatio,
		Quality:     s.ImageQuality,
		Width:       dims.Width,
		Height:      dims.Height,
	})
	if err != nil {
		return assets.Result{}, err
	}
	if len(res.Bytes) == 0 {
		return assets.Result{}, services.Wrap(services.ErrProvider, "image", "generate", "provider returned no image data", nil)
	}
	data, mime := res.Bytes, res.MimeType
	if o.deps.PostProcess != nil {
		data, mime, err = o.deps.PostProcess.Process(ctx, data, mime)
		if err != nil {
			return assets.Result{}, err
		}
	}
	return assets.Result{Data: data, MimeType: mime}, nil
}

func (o *Orchestrator) renderAudio(ctx context.Context, j job) (assets.Result, error) {
	s := o.settings
	previous, next := scenes.Neighbours(j.ordered, j.scene.ID)
	res, err := o.deps.Speech.Synthesize(ctx, tts.Request{
		Text:         strings.TrimSpace(j.scene.Script),
		VoiceID:      s.VoiceID,
		Model:        s.TTSModel,
		Speed:        s.Speed,
		PreviousText: previous,
		NextText:     next,
	})
	if err != nil {
		return assets.Result{}, err
	}
	if len(res.Bytes) == 0 {
		return assets.Result{}, services.Wrap(services.ErrProvider, "tts", "synthesize", "provider returned no audio data", nil)
	}

	duration := res.DurationSeconds
	if res.Timing != nil && len(res.Timing.Words) > 0 {
		words := make([]assets.WordTiming, 0, len(res.Timing.Words))
		for _, w := range res.Timing.Words {
			words = append(words, assets.WordTiming{Word: w.Text, Start: w.Start, End: w.End})
		}
		if err := o.deps.Store.SetTiming(assets.AudioTiming{
			AssetID:       j.assetID,
			Words:         words,
			TotalDuration: res.Timing.TotalDuration,
		}); err != nil {
			return assets.Result{}, err
		}
		if duration <= 0 {
			duration = res.Timing.TotalDuration
		}
	} else {
		o.deps.Store.ClearTiming(j.assetID)
	}
	mime := res.MimeType
	if mime == "" {
		mime = "audio/mpeg"
	}
	return assets.Result{Data: res.Bytes, MimeType: mime, DurationSeconds: duration}, nil
}

func (o *Orchestrator) recordStart(ctx context.Context, j job, asset assets.Asset) int64 {
	if o.deps.Recorder == nil {
		return 0
	}
	provider := o.settings.ImageProvider
	if j.typ == assets.TypeAudio {
		provider = o.settings.TTSProvider
	}
	id, err := o.deps.Recorder.RecordStart(context.WithoutCancel(ctx), ledger.Attempt{
		RunID:      o.settings.RunID,
		AssetID:    asset.ID,
		SceneID:    j.scene.ID,
		SceneIndex: j.scene.Index,
		AssetType:  string(j.typ),
		Provider:   provider,
		Retry:      j.retry,
		StartedAt:  o.now().UTC(),
	})
	if err != nil {
		logging.WarnWithContext(o.logger, "ledger start failed", "ledger_write_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check ledger_path permissions and free disk space"),
			logging.String(logging.FieldImpact, "attempt history will be incomplete"),
		)
		return 0
	}
	return id
}

func (o *Orchestrator) recordFinish(ctx context.Context, id int64, finish ledger.Finish) {
	if o.deps.Recorder == nil || id == 0 {
		return
	}
	if err := o.deps.Recorder.RecordFinish(context.WithoutCancel(ctx), id, finish); err != nil {
		logging.WarnWithContext(o.logger, "ledger finish failed", "ledger_write_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check ledger_path permissions and free disk space"),
			logging.String(logging.FieldImpact, "attempt history will be incomplete"),
		)
	}
}

func (o *Orchestrator) notify(asset assets.Asset) {
	for _, fn := range o.observers {
		fn(asset)
	}
}

func failureHint(err error) string {
	switch services.Classify(err) {
	case services.OutcomeContentRefused:
		return "reword the scene's image description and retry the asset"
	case services.OutcomeTimeout:
		return "raise the provider timeout_seconds or retry later"
	case services.OutcomePostProcess:
		return "check the postprocess settings or disable post-processing"
	case services.OutcomeCancelled:
		return "rerun generate to finish the remaining assets"
	case services.OutcomeConfiguration:
		return "check provider credentials and base_url"
	default:
		return "retry the asset; persistent failures point at the provider"
	}
}
