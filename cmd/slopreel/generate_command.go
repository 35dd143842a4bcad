package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"slopreel/internal/api"
	"slopreel/internal/assembly"
	"slopreel/internal/assets"
	"slopreel/internal/config"
	"slopreel/internal/gate"
	"slopreel/internal/ledger"
	"slopreel/internal/logging"
	"slopreel/internal/notifications"
	"slopreel/internal/orchestrator"
	"slopreel/internal/preflight"
	"slopreel/internal/scenes"
	"slopreel/internal/workspace"
)

type generateOptions struct {
	retryRounds      int
	proceed          bool
	assemble         bool
	serve            bool
	ttsConcurrency   int
	imageConcurrency int
	output           string
	jsonOutput       bool
}

func newGenerateCommand(ctx *commandContext) *cobra.Command {
	var opts generateOptions
	cmd := &cobra.Command{
		Use:   "generate SCENES_FILE",
		Short: "Generate images and narration for every scene",
		Long: `Generate renders an image and a narration clip for every scene in
SCENES_FILE, bounded per provider, and exports them to a run directory.
Failed assets can be retried in extra rounds; --assemble hands the
finished scenes to the assembly service and writes the MP4.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			return runGenerate(cmd.Context(), cmd.OutOrStdout(), cfg, logger, args[0], opts)
		},
	}
	cmd.Flags().IntVar(&opts.retryRounds, "retry-failed", 0, "Retry failed assets up to N extra rounds")
	cmd.Flags().BoolVar(&opts.proceed, "proceed-with-available", false, "Let the gate pass even when every asset failed")
	cmd.Flags().BoolVar(&opts.assemble, "assemble", false, "Assemble the video once the gate allows it")
	cmd.Flags().BoolVar(&opts.serve, "serve", false, "Serve the progress API on paths.api_bind and keep running until interrupted")
	cmd.Flags().IntVar(&opts.ttsConcurrency, "tts-concurrency", 0, "Override tts.max_concurrent")
	cmd.Flags().IntVar(&opts.imageConcurrency, "image-concurrency", 0, "Override image.max_concurrent")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Run directory to write into (default: new directory under paths.output_dir)")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Print the run summary as JSON")
	return cmd
}

// generateReport is the --json output.
type generateReport struct {
	RunID     string                   `json:"run_id"`
	Directory string                   `json:"directory"`
	Images    orchestrator.Summary     `json:"images"`
	Audio     orchestrator.Summary     `json:"audio"`
	Retries   orchestrator.Summary     `json:"retries"`
	Gate      gate.Verdict             `json:"gate"`
	Assets    []api.Asset              `json:"assets"`
	Video     *workspace.ManifestVideo `json:"video,omitempty"`
}

type generateRun struct {
	cfg      *config.Config
	opts     generateOptions
	out      io.Writer
	logger   *slog.Logger
	color    bool
	doc      scenes.Document
	ws       *workspace.Workspace
	ledger   *ledger.Store
	orch     *orchestrator.Orchestrator
	notifier notifications.Service

	printMu sync.Mutex
}

func runGenerate(ctx context.Context, out io.Writer, cfg *config.Config, logger *slog.Logger, scenesPath string, opts generateOptions) (err error) {
	if opts.retryRounds < 0 {
		return fmt.Errorf("--retry-failed must be >= 0")
	}
	if opts.ttsConcurrency > 0 {
		cfg.TTS.MaxConcurrent = opts.ttsConcurrency
	}
	if opts.imageConcurrency > 0 {
		cfg.Image.MaxConcurrent = opts.imageConcurrency
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	run := &generateRun{
		cfg:      cfg,
		opts:     opts,
		out:      out,
		logger:   logger,
		color:    !opts.jsonOutput && shouldColorize(out),
		notifier: notifications.NewService(cfg),
	}
	defer func() {
		if err != nil && !errors.Is(err, context.Canceled) {
			run.publish(notifications.EventError, notifications.Payload{"context": "generate", "error": err})
		}
	}()

	if failed := preflight.Failed(preflight.RunAll(ctx, cfg, preflight.Options{Assembly: opts.assemble})); len(failed) > 0 {
		for _, r := range failed {
			run.println(renderStatusLine(r.Name, statusError, r.Detail, run.color))
		}
		return fmt.Errorf("preflight failed: %s", failed[0].Detail)
	}

	run.doc, err = scenes.LoadFile(scenesPath)
	if err != nil {
		return err
	}
	if err := run.open(); err != nil {
		return err
	}
	defer run.close()

	return run.execute(ctx)
}

func (r *generateRun) open() error {
	var err error
	if dir := strings.TrimSpace(r.opts.output); dir != "" {
		dir, err = config.ExpandPath(dir)
		if err != nil {
			return fmt.Errorf("resolve output directory: %w", err)
		}
		r.ws, err = workspace.Open(dir)
	} else {
		r.ws, err = workspace.Create(r.cfg.Paths.OutputDir, r.doc.Topic)
	}
	if err != nil {
		return err
	}
	if err := r.ws.WriteScenes(r.doc); err != nil {
		return err
	}

	r.ledger, err = ledger.Open(r.cfg.Paths.LedgerPath)
	if err != nil {
		return err
	}

	images, err := newImageGenerator(r.cfg)
	if err != nil {
		return err
	}
	speech, err := newSynthesizer(r.cfg)
	if err != nil {
		return err
	}
	post, err := newPostProcessor(r.cfg)
	if err != nil {
		return err
	}
	imageLimiter, audioLimiter := newLimiters(r.cfg, r.logger)

	r.logger = r.logger.With(logging.String(logging.FieldRunID, r.ws.RunID()))
	r.orch, err = orchestrator.New(orchestrator.Deps{
		Scenes:       scenes.List(r.doc.Scenes),
		Store:        assets.NewStore(),
		ImageLimiter: imageLimiter,
		AudioLimiter: audioLimiter,
		Images:       images,
		Speech:       speech,
		PostProcess:  post,
		Recorder:     r.ledger,
		Logger:       r.logger,
	}, orchestratorSettings(r.cfg, r.ws.RunID()), orchestrator.WithObserver(r.observe))
	return err
}

func (r *generateRun) close() {
	if r.ledger != nil {
		_ = r.ledger.Close()
	}
	if r.ws != nil {
		_ = r.ws.Close()
	}
}

func (r *generateRun) execute(ctx context.Context) error {
	runID := r.ws.RunID()
	list := r.orch.Scenes()
	if err := r.ledger.StartRun(ctx, ledger.Run{
		ID:         runID,
		Topic:      r.doc.Topic,
		OutputDir:  r.ws.Root(),
		SceneCount: len(list),
	}); err != nil {
		return err
	}

	var server *api.Server
	if r.opts.serve {
		server = api.New(api.Config{
			Bind:  r.cfg.Paths.APIBind,
			Token: r.cfg.Paths.APIToken,
			RunID: runID,
		}, r.orch, r.logger)
		if err := server.Start(ctx); err != nil {
			r.finishRun(ledger.RunAborted, "")
			return err
		}
		defer server.Stop()
	}

	if !r.opts.jsonOutput {
		for _, line := range renderSectionHeader("Generating "+r.topic(), r.color) {
			r.println(line)
		}
		r.println(renderStatusLine("Run directory", statusInfo, r.ws.Root(), r.color))
		if server != nil {
			r.println(renderStatusLine("Progress API", statusInfo, "http://"+server.Addr()+"/api/progress", r.color))
		}
	}
	r.publish(notifications.EventGenerationStarted, notifications.Payload{"topic": r.doc.Topic, "scenes": len(list)})

	started := time.Now()
	report := generateReport{RunID: runID, Directory: r.ws.Root()}
	report.Images, report.Audio = r.orch.GenerateAll(ctx)
	for round := 1; round <= r.opts.retryRounds && ctx.Err() == nil; round++ {
		progress := r.orch.Progress()
		if progress.Image.Failed+progress.Audio.Failed == 0 {
			break
		}
		r.logger.Info("retrying failed assets",
			logging.String(logging.FieldEventType, "retry_round_started"),
			logging.Int("round", round),
			logging.Int("failed", progress.Image.Failed+progress.Audio.Failed),
		)
		report.Retries = report.Retries.Add(r.orch.RetryFailed(ctx))
	}
	if err := ctx.Err(); err != nil {
		r.finishRun(ledger.RunAborted, "")
		return err
	}

	verdict := r.orch.Readiness(gate.ParseAction(r.opts.proceed))
	report.Gate = verdict
	store := r.orch.Store()
	if _, err := r.ws.Export(list, store.Snapshot(), store.Timings(), workspace.ManifestExtra{Topic: r.doc.Topic, Gate: &verdict}); err != nil {
		r.finishRun(ledger.RunAborted, "")
		return err
	}

	progress := r.orch.Progress()
	r.publish(notifications.EventGenerationCompleted, notifications.Payload{
		"topic":    r.doc.Topic,
		"complete": progress.Image.Complete + progress.Audio.Complete,
		"total":    progress.Image.Total + progress.Audio.Total,
		"failed":   progress.Image.Failed + progress.Audio.Failed,
		"duration": time.Since(started),
	})

	if r.opts.assemble {
		video, err := r.assemble(ctx, list, verdict)
		if err != nil {
			status := ledger.RunCompleted
			if ctx.Err() != nil {
				status = ledger.RunAborted
			}
			r.finishRun(status, "")
			_ = r.printSummary(report)
			return err
		}
		report.Video = video
		r.finishRun(ledger.RunAssembled, video.Path)
	} else {
		r.finishRun(ledger.RunCompleted, "")
	}

	report.Assets = r.assetRows()
	if err := r.printSummary(report); err != nil {
		return err
	}

	if server != nil {
		r.println(renderStatusLine("Progress API", statusInfo, "serving until interrupted", r.color))
		<-ctx.Done()
	}
	return nil
}

func (r *generateRun) assemble(ctx context.Context, list []scenes.Scene, verdict gate.Verdict) (*workspace.ManifestVideo, error) {
	if !verdict.CanProceed {
		return nil, fmt.Errorf("assembly gate %s: %s", verdict.State, verdict.Reason)
	}
	store := r.orch.Store()
	snapshot := store.Snapshot()
	timings := store.Timings()
	plan, err := assembly.BuildPlan(list, snapshot, timings, r.cfg.Video.FrameRate, r.cfg.Video.Width, r.cfg.Video.Height)
	if err != nil {
		return nil, err
	}
	if len(plan.Dropped) > 0 {
		logging.WarnWithContext(r.logger, "scenes dropped from assembly", "assembly_scenes_dropped",
			logging.Int("dropped", len(plan.Dropped)),
			logging.String("scene_ids", strings.Join(plan.Dropped, ",")),
			logging.String(logging.FieldImpact, "the video omits scenes without a complete image and narration"),
			logging.String(logging.FieldErrorHint, "rerun with --retry-failed to regenerate failed assets"),
		)
	}

	client := assembly.NewClient(assembly.Config{
		URL:     r.cfg.Assembly.URL,
		Timeout: r.cfg.AssemblyTimeout(),
	}, assembly.WithLogger(r.logger))

	var result assembly.Result
	written, err := r.ws.WriteVideo(func(w io.Writer) error {
		var assembleErr error
		result, assembleErr = client.Assemble(ctx, plan, w)
		return assembleErr
	})
	if err != nil {
		return nil, fmt.Errorf("assemble video: %w", err)
	}

	duration := result.DurationSeconds
	if duration <= 0 {
		duration = plan.Duration()
	}
	video := &workspace.ManifestVideo{
		Path:            r.ws.VideoPath(),
		Bytes:           written,
		DurationSeconds: duration,
		DroppedScenes:   plan.Dropped,
	}
	if _, err := r.ws.Export(list, snapshot, timings, workspace.ManifestExtra{Topic: r.doc.Topic, Gate: &verdict, Video: video}); err != nil {
		return nil, err
	}
	r.publish(notifications.EventAssemblyCompleted, notifications.Payload{
		"topic":   r.doc.Topic,
		"path":    video.Path,
		"seconds": duration,
	})
	return video, nil
}

func (r *generateRun) observe(a assets.Asset) {
	if r.opts.jsonOutput {
		return
	}
	label := fmt.Sprintf("Scene %s %s", r.sceneLabel(a.SceneID), a.Type)
	switch a.Status {
	case assets.StatusComplete:
		r.println(renderStatusLine(label, statusOK, formatBytes(a.Size()), r.color))
	case assets.StatusFailed:
		r.println(renderStatusLine(label, statusError, a.Error, r.color))
	}
}

func (r *generateRun) printSummary(report generateReport) error {
	if report.Assets == nil {
		report.Assets = r.assetRows()
	}
	if r.opts.jsonOutput {
		enc := json.NewEncoder(r.out)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	rows := make([][]string, 0, len(report.Assets))
	for _, a := range report.Assets {
		duration := ""
		if a.DurationSeconds > 0 {
			duration = fmt.Sprintf("%.1fs", a.DurationSeconds)
		}
		rows = append(rows, []string{
			r.sceneLabel(a.SceneID),
			a.Type,
			a.Status,
			formatBytes(a.Bytes),
			duration,
			fmt.Sprintf("%d", a.RetryCount),
			truncate(a.Error, 48),
		})
	}
	r.println("")
	r.println(renderTable(
		[]string{"Scene", "Type", "Status", "Size", "Length", "Retries", "Error"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignRight, alignRight},
	))

	progress := r.orch.Progress()
	r.println(renderStatusLine("Images", progressKind(progress.Image), progressText(progress.Image), r.color))
	r.println(renderStatusLine("Narration", progressKind(progress.Audio), progressText(progress.Audio), r.color))
	gateKind := statusOK
	switch {
	case !report.Gate.CanProceed:
		gateKind = statusError
	case report.Gate.State != gate.StateReady:
		gateKind = statusWarn
	}
	r.println(renderStatusLine("Assembly gate", gateKind, report.Gate.Reason, r.color))
	if report.Video != nil {
		r.println(renderStatusLine("Video", statusOK, fmt.Sprintf("%s (%.1fs)", report.Video.Path, report.Video.DurationSeconds), r.color))
	}
	return nil
}

func (r *generateRun) assetRows() []api.Asset {
	store := r.orch.Store()
	list := r.orch.Assets()
	order := make(map[string]int, len(list))
	for _, s := range r.orch.Scenes() {
		order[s.ID] = s.Index
	}
	rows := make([]api.Asset, 0, len(list))
	for _, a := range list {
		_, hasTiming := store.Timing(a.ID)
		rows = append(rows, api.FromAsset(a, hasTiming))
	}
	sortAssetRows(rows, order)
	return rows
}

// sortAssetRows orders rows by scene index, images before audio.
func sortAssetRows(rows []api.Asset, order map[string]int) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if order[a.SceneID] != order[b.SceneID] {
			return order[a.SceneID] < order[b.SceneID]
		}
		return a.Type == string(assets.TypeImage) && b.Type != string(assets.TypeImage)
	})
}

func (r *generateRun) sceneLabel(sceneID string) string {
	for _, s := range r.orch.Scenes() {
		if s.ID == sceneID {
			return fmt.Sprintf("%d", s.Index+1)
		}
	}
	return sceneID
}

func (r *generateRun) topic() string {
	if t := strings.TrimSpace(r.doc.Topic); t != "" {
		return t
	}
	return "untitled"
}

func (r *generateRun) finishRun(status, videoPath string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.ledger.FinishRun(ctx, r.ws.RunID(), status, videoPath); err != nil {
		logging.WarnWithContext(r.logger, "failed to record run outcome", "ledger_finish_run_failed",
			logging.Error(err),
			logging.String("status", status),
			logging.String(logging.FieldImpact, "history shows the run as active"),
		)
	}
}

func (r *generateRun) publish(event notifications.Event, payload notifications.Payload) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := r.notifier.Publish(ctx, event, payload); err != nil {
		logging.WarnWithContext(r.logger, "notification failed", "notification_failed",
			logging.Error(err),
			logging.String("event", string(event)),
			logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic"),
		)
	}
}

func (r *generateRun) println(line string) {
	r.printMu.Lock()
	defer r.printMu.Unlock()
	fmt.Fprintln(r.out, line)
}

func progressKind(p assets.Progress) statusKind {
	switch {
	case p.Failed > 0 && p.Complete == 0:
		return statusError
	case p.Failed > 0 || !p.Settled():
		return statusWarn
	default:
		return statusOK
	}
}

func progressText(p assets.Progress) string {
	text := fmt.Sprintf("%d/%d complete", p.Complete, p.Total)
	if p.Failed > 0 {
		text += fmt.Sprintf(", %d failed", p.Failed)
	}
	if pending := p.Pending + p.Generating; pending > 0 {
		text += fmt.Sprintf(", %d unsettled", pending)
	}
	return text
}

func formatBytes(n int) string {
	switch {
	case n <= 0:
		return ""
	case n < 1024:
		return fmt.Sprintf("%d B", n)
	case n < 1024*1024:
		return fmt.Sprintf("%.1f KiB", float64(n)/1024)
	default:
		return fmt.Sprintf("%.1f MiB", float64(n)/(1024*1024))
	}
}
