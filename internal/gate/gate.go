package gate

import (
	"fmt"

	"slopreel/internal/assets"
	"slopreel/internal/scenes"
)

// Action is the caller's choice when assets are incomplete.
type Action string

const (
	// ActionWait proceeds only when at least one asset completed.
	ActionWait Action = "wait"
	// ActionProceedWithAvailable also accepts a run where every asset failed,
	// leaving assembly to reject it.
	ActionProceedWithAvailable Action = "proceed_with_available"
)

// State summarizes the run for assembly.
type State string

const (
	StateBlocked   State = "blocked"
	StateReady     State = "ready"
	StatePartial   State = "partial"
	StateAllFailed State = "all_failed"
)

// Verdict is the outcome of Evaluate.
type Verdict struct {
	State      State           `json:"state"`
	CanProceed bool            `json:"can_proceed"`
	Reason     string          `json:"reason"`
	Unsettled  int             `json:"unsettled"`
	NoImage    []string        `json:"scenes_missing_image,omitempty"`
	NoAudio    []string        `json:"scenes_missing_audio,omitempty"`
	Progress   assets.Overview `json:"progress"`
}

// Evaluate decides whether assembly may start. It only reads its inputs.
//
// An asset counts as unsettled when it is missing from the snapshot or not yet
// complete or failed; any unsettled asset blocks. Scene ids whose image or
// audio is not complete are listed in NoImage and NoAudio.
func Evaluate(list []scenes.Scene, snapshot []assets.Asset, action Action) Verdict {
	byKey := make(map[string]assets.Asset, len(snapshot))
	for _, a := range snapshot {
		byKey[key(a.SceneID, a.Type)] = a
	}

	v := Verdict{Progress: assets.ComputeProgress(snapshot)}
	complete, failed := 0, 0
	for _, scene := range scenes.Ordered(list) {
		for _, typ := range assets.Types {
			a, ok := byKey[key(scene.ID, typ)]
			switch {
			case !ok || !a.Status.Terminal():
				v.Unsettled++
			case a.Status == assets.StatusComplete:
				complete++
			default:
				failed++
			}
			if !ok || a.Status != assets.StatusComplete {
				if typ == assets.TypeImage {
					v.NoImage = append(v.NoImage, scene.ID)
				} else {
					v.NoAudio = append(v.NoAudio, scene.ID)
				}
			}
		}
	}

	switch {
	case len(list) == 0:
		v.State = StateBlocked
		v.Reason = "no scenes to assemble"
	case v.Unsettled > 0:
		v.State = StateBlocked
		v.Reason = fmt.Sprintf("%d asset(s) still pending or generating", v.Unsettled)
	case failed == 0:
		v.State = StateReady
		v.CanProceed = true
		v.Reason = "all assets complete"
	case complete > 0:
		v.State = StatePartial
		v.CanProceed = true
		v.Reason = fmt.Sprintf("%d asset(s) failed; proceeding with %d complete", failed, complete)
	default:
		v.State = StateAllFailed
		v.CanProceed = action == ActionProceedWithAvailable
		if v.CanProceed {
			v.Reason = "every asset failed; proceeding with available assets as requested"
		} else {
			v.Reason = "every asset failed; retry or choose proceed-with-available"
		}
	}
	return v
}

// ParseAction maps a flag value to an Action, defaulting to ActionWait.
func ParseAction(proceedWithAvailable bool) Action {
	if proceedWithAvailable {
		return ActionProceedWithAvailable
	}
	return ActionWait
}

func key(sceneID string, typ assets.Type) string {
	return sceneID + "\x00" + string(typ)
}
