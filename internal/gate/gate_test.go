package gate_test

import (
	"testing"

	"slopreel/internal/assets"
	"slopreel/internal/gate"
	"slopreel/internal/scenes"
)

var twoScenes = []scenes.Scene{{ID: "a", Index: 0}, {ID: "b", Index: 1}}

func snapshot(statuses ...assets.Status) []assets.Asset {
	// statuses: image a, audio a, image b, audio b
	ids := []string{"a", "a", "b", "b"}
	types := []assets.Type{assets.TypeImage, assets.TypeAudio, assets.TypeImage, assets.TypeAudio}
	out := make([]assets.Asset, 0, len(statuses))
	for i, st := range statuses {
		out = append(out, assets.Asset{ID: ids[i] + string(types[i]), SceneID: ids[i], Type: types[i], Status: st})
	}
	return out
}

func TestEvaluateStates(t *testing.T) {
	const (
		c = assets.StatusComplete
		f = assets.StatusFailed
		g = assets.StatusGenerating
		p = assets.StatusPending
	)
	tests := []struct {
		name    string
		snap    []assets.Asset
		action  gate.Action
		state   gate.State
		proceed bool
	}{
		{"all complete", snapshot(c, c, c, c), gate.ActionWait, gate.StateReady, true},
		{"one generating", snapshot(c, c, c, g), gate.ActionWait, gate.StateBlocked, false},
		{"pending blocks even with proceed", snapshot(c, c, f, p), gate.ActionProceedWithAvailable, gate.StateBlocked, false},
		{"missing asset blocks", snapshot(c, c, c), gate.ActionWait, gate.StateBlocked, false},
		{"partial", snapshot(c, f, f, c), gate.ActionWait, gate.StatePartial, true},
		{"all failed waits", snapshot(f, f, f, f), gate.ActionWait, gate.StateAllFailed, false},
		{"all failed proceed", snapshot(f, f, f, f), gate.ActionProceedWithAvailable, gate.StateAllFailed, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := gate.Evaluate(twoScenes, tt.snap, tt.action)
			if v.State != tt.state || v.CanProceed != tt.proceed {
				t.Fatalf("got state=%s proceed=%v, want %s %v (%s)", v.State, v.CanProceed, tt.state, tt.proceed, v.Reason)
			}
			if v.Reason == "" {
				t.Fatal("expected a reason")
			}
		})
	}
}

func TestEvaluateListsMissingScenes(t *testing.T) {
	v := gate.Evaluate(twoScenes, snapshot(assets.StatusComplete, assets.StatusFailed, assets.StatusFailed, assets.StatusComplete), gate.ActionWait)
	if len(v.NoAudio) != 1 || v.NoAudio[0] != "a" {
		t.Fatalf("unexpected scenes missing audio %v", v.NoAudio)
	}
	if len(v.NoImage) != 1 || v.NoImage[0] != "b" {
		t.Fatalf("unexpected scenes missing image %v", v.NoImage)
	}
	if v.Progress.Image.Complete != 1 || v.Progress.Audio.Failed != 1 {
		t.Fatalf("unexpected progress %+v", v.Progress)
	}
}

func TestEvaluateNoScenes(t *testing.T) {
	v := gate.Evaluate(nil, nil, gate.ActionProceedWithAvailable)
	if v.State != gate.StateBlocked || v.CanProceed {
		t.Fatalf("expected blocked verdict for empty run, got %+v", v)
	}
}

func TestEvaluateDoesNotMutateInputs(t *testing.T) {
	snap := snapshot(assets.StatusFailed, assets.StatusFailed, assets.StatusFailed, assets.StatusFailed)
	before := append([]assets.Asset(nil), snap...)
	gate.Evaluate(twoScenes, snap, gate.ActionProceedWithAvailable)
	for i := range snap {
		if snap[i].ID != before[i].ID || snap[i].Status != before[i].Status {
			t.Fatalf("snapshot mutated at %d", i)
		}
	}
}
