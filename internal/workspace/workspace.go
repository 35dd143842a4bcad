package workspace

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"slopreel/internal/assets"
	"slopreel/internal/fileutil"
	"slopreel/internal/scenes"
)

const (
	lockFileName     = ".slopreel.lock"
	scenesFileName   = "scenes.yaml"
	manifestFileName = "manifest.json"
	videoFileName    = "video.mp4"
	imagesDir        = "images"
	audioDir         = "audio"
	timingDir        = "timing"
)

// ErrLocked is returned when another process holds the workspace.
var ErrLocked = errors.New("workspace is in use by another slopreel process")

// Workspace is an open, locked run directory.
type Workspace struct {
	root  string
	runID string
	lock  *flock.Flock
}

// Create makes a fresh run directory under baseDir named after topic and
// locks it.
func Create(baseDir, topic string) (*Workspace, error) {
	runID := uuid.NewString()
	dir := filepath.Join(baseDir, Slug(topic)+"-"+runID[:8])
	return open(dir, runID)
}

// Open locks dir, creating it when missing, under a fresh run id. Files from
// an earlier run in the same directory are overwritten as assets complete.
func Open(dir string) (*Workspace, error) {
	return open(dir, uuid.NewString())
}

func open(dir, runID string) (*Workspace, error) {
	for _, sub := range []string{"", imagesDir, audioDir, timingDir} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return nil, fmt.Errorf("create workspace: %w", err)
		}
	}
	lock := flock.New(filepath.Join(dir, lockFileName))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire workspace lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLocked, dir)
	}
	return &Workspace{root: dir, runID: runID, lock: lock}, nil
}

// Close releases the lock. The directory stays.
func (w *Workspace) Close() error {
	if w == nil || w.lock == nil {
		return nil
	}
	return w.lock.Unlock()
}

// Root returns the run directory.
func (w *Workspace) Root() string { return w.root }

// RunID identifies the run in the ledger and logs.
func (w *Workspace) RunID() string { return w.runID }

// ScenesPath is where the scene document is written.
func (w *Workspace) ScenesPath() string { return filepath.Join(w.root, scenesFileName) }

// ManifestPath is where the manifest is written.
func (w *Workspace) ManifestPath() string { return filepath.Join(w.root, manifestFileName) }

// VideoPath is where the assembled video is written.
func (w *Workspace) VideoPath() string { return filepath.Join(w.root, videoFileName) }

// WriteScenes saves the scene document used for this run.
func (w *Workspace) WriteScenes(doc scenes.Document) error {
	return scenes.SaveFile(w.ScenesPath(), doc)
}

// AssetPath returns the file an asset of typ for the scene at position is
// exported to.
func (w *Workspace) AssetPath(position int, typ assets.Type, mimeType string) string {
	switch typ {
	case assets.TypeAudio:
		return filepath.Join(w.root, audioDir, fmt.Sprintf("scene_%03d%s", position, assets.ExtensionOr(mimeType, ".mp3")))
	default:
		return filepath.Join(w.root, imagesDir, fmt.Sprintf("scene_%03d%s", position, assets.ExtensionOr(mimeType, ".jpg")))
	}
}

// TimingPath returns the timing file for the scene at position.
func (w *Workspace) TimingPath(position int) string {
	return filepath.Join(w.root, timingDir, fmt.Sprintf("scene_%03d.json", position))
}

// Export writes every complete asset and stored timing, then the manifest.
// Failed and pending assets are listed in the manifest only.
func (w *Workspace) Export(list []scenes.Scene, snapshot []assets.Asset, timings map[string]assets.AudioTiming, extra ManifestExtra) (Manifest, error) {
	byKey := make(map[string]assets.Asset, len(snapshot))
	for _, a := range snapshot {
		byKey[a.SceneID+"/"+string(a.Type)] = a
	}

	manifest := Manifest{
		RunID:     w.runID,
		Topic:     extra.Topic,
		CreatedAt: time.Now().UTC(),
		Gate:      extra.Gate,
		Video:     extra.Video,
	}
	for pos, scene := range scenes.Ordered(list) {
		entry := ManifestScene{ID: scene.ID, Index: scene.Index}
		for _, typ := range assets.Types {
			a, ok := byKey[scene.ID+"/"+string(typ)]
			if !ok {
				continue
			}
			file := ManifestAsset{
				ID:              a.ID,
				Status:          string(a.Status),
				Error:           a.Error,
				RetryCount:      a.RetryCount,
				MimeType:        a.MimeType,
				DurationSeconds: a.DurationSeconds,
			}
			if a.Status == assets.StatusComplete && len(a.Data) > 0 {
				path := w.AssetPath(pos, typ, a.MimeType)
				if err := fileutil.WriteAtomic(path, a.Data, 0o644); err != nil {
					return manifest, fmt.Errorf("export %s asset for scene %d: %w", typ, scene.Index, err)
				}
				file.Path = w.rel(path)
				file.Bytes = len(a.Data)
				file.SHA256 = fileutil.SHA256(a.Data)
			}
			if typ == assets.TypeAudio {
				if t, ok := timings[a.ID]; ok {
					path := w.TimingPath(pos)
					if err := fileutil.WriteJSON(path, t); err != nil {
						return manifest, fmt.Errorf("export timing for scene %d: %w", scene.Index, err)
					}
					entry.TimingPath = w.rel(path)
				}
				entry.Audio = &file
			} else {
				entry.Image = &file
			}
		}
		manifest.Scenes = append(manifest.Scenes, entry)
	}
	if err := fileutil.WriteJSON(w.ManifestPath(), manifest); err != nil {
		return manifest, err
	}
	return manifest, nil
}

// WriteVideo streams the assembled video into place through fill.
func (w *Workspace) WriteVideo(fill func(io.Writer) error) (int64, error) {
	return fileutil.StreamAtomic(w.VideoPath(), 0o644, fill)
}

func (w *Workspace) rel(path string) string {
	if r, err := filepath.Rel(w.root, path); err == nil && !strings.HasPrefix(r, "..") {
		return filepath.ToSlash(r)
	}
	return path
}
