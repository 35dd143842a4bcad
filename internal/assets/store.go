package assets

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"slopreel/internal/scenes"
)

var (
	// ErrNotFound is returned for unknown asset ids.
	ErrNotFound = errors.New("asset not found")
	// ErrInFlight is returned when a generation is already running for the asset.
	ErrInFlight = errors.New("asset generation already in flight")
	// ErrNotEligible is returned when a batch job finds the asset already complete.
	ErrNotEligible = errors.New("asset not eligible for batch generation")
)

// Store owns every asset and timing record. All mutation goes through its
// methods; readers receive copies.
type Store struct {
	mu      sync.Mutex
	assets  map[string]Asset
	order   []string
	byScene map[sceneKey]string
	timings map[string]AudioTiming
	now     func() time.Time
	newID   func() string
}

type sceneKey struct {
	sceneID string
	typ     Type
}

// StoreOption customizes a Store.
type StoreOption func(*Store)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator overrides asset id generation.
func WithIDGenerator(fn func() string) StoreOption {
	return func(s *Store) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// NewStore returns an empty store.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		assets:  make(map[string]Asset),
		byScene: make(map[sceneKey]string),
		timings: make(map[string]AudioTiming),
		now:     time.Now,
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// EnsureScenes creates a pending image and audio asset for every scene that
// lacks one and returns how many were created.
func (s *Store) EnsureScenes(list []scenes.Scene) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	created := 0
	for _, scene := range list {
		for _, typ := range Types {
			key := sceneKey{sceneID: scene.ID, typ: typ}
			if _, ok := s.byScene[key]; ok {
				continue
			}
			id := s.newID()
			s.assets[id] = Asset{
				ID:        id,
				SceneID:   scene.ID,
				Type:      typ,
				Status:    StatusPending,
				UpdatedAt: s.now(),
			}
			s.order = append(s.order, id)
			s.byScene[key] = id
			created++
		}
	}
	return created
}

// Get returns a copy of the asset.
func (s *Store) Get(id string) (Asset, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.assets[id]
	return a, ok
}

// ForScene returns the asset of typ for a scene.
func (s *Store) ForScene(sceneID string, typ Type) (Asset, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byScene[sceneKey{sceneID: sceneID, typ: typ}]
	if !ok {
		return Asset{}, false
	}
	return s.assets[id], true
}

// Snapshot returns copies of every asset in creation order.
func (s *Store) Snapshot() []Asset {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Asset, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.assets[id])
	}
	return out
}

// MarkGenerating moves a pending or failed asset to generating for a batch
// job. A complete asset yields ErrNotEligible; a generating one ErrInFlight.
func (s *Store) MarkGenerating(id string) (Asset, error) {
	return s.begin(id, false)
}

// MarkRetrying moves any non-generating asset to generating and bumps its
// retry count.
func (s *Store) MarkRetrying(id string) (Asset, error) {
	return s.begin(id, true)
}

func (s *Store) begin(id string, retry bool) (Asset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.assets[id]
	if !ok {
		return Asset{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	switch a.Status {
	case StatusGenerating:
		return a, ErrInFlight
	case StatusComplete:
		if !retry {
			return a, ErrNotEligible
		}
	}
	a.Status = StatusGenerating
	a.Error = ""
	if retry {
		a.RetryCount++
	}
	a.UpdatedAt = s.now()
	s.assets[id] = a
	return a, nil
}

// Complete stores a successful result.
func (s *Store) Complete(id string, result Result) (Asset, error) {
	return s.update(id, func(a *Asset) {
		a.Status = StatusComplete
		a.Data = slices.Clone(result.Data)
		a.MimeType = result.MimeType
		a.DurationSeconds = result.DurationSeconds
		a.Error = ""
	})
}

// Fail records a failure message. Previously generated data is dropped so a
// failed asset never feeds assembly.
func (s *Store) Fail(id, message string) (Asset, error) {
	if message == "" {
		message = "generation failed"
	}
	return s.update(id, func(a *Asset) {
		a.Status = StatusFailed
		a.Error = message
		a.Data = nil
		a.MimeType = ""
		a.DurationSeconds = 0
	})
}

func (s *Store) update(id string, mutate func(*Asset)) (Asset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.assets[id]
	if !ok {
		return Asset{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	mutate(&a)
	a.UpdatedAt = s.now()
	s.assets[id] = a
	return a, nil
}

// SetTiming stores word timing for an audio asset.
func (s *Store) SetTiming(timing AudioTiming) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.assets[timing.AssetID]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, timing.AssetID)
	}
	timing.Words = slices.Clone(timing.Words)
	s.timings[timing.AssetID] = timing
	return nil
}

// ClearTiming drops any timing stored for the asset.
func (s *Store) ClearTiming(assetID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.timings, assetID)
}

// Timing returns a copy of the timing for an asset.
func (s *Store) Timing(assetID string) (AudioTiming, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.timings[assetID]
	if !ok {
		return AudioTiming{}, false
	}
	t.Words = slices.Clone(t.Words)
	return t, true
}

// Timings returns a copy of every stored timing keyed by asset id.
func (s *Store) Timings() map[string]AudioTiming {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]AudioTiming, len(s.timings))
	for id, t := range s.timings {
		t.Words = slices.Clone(t.Words)
		out[id] = t
	}
	return out
}
