package assembly_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"slopreel/internal/assembly"
	"slopreel/internal/assets"
	"slopreel/internal/scenes"
	"slopreel/internal/services"
)

func sampleInputs() ([]scenes.Scene, []assets.Asset, map[string]assets.AudioTiming) {
	list := []scenes.Scene{{ID: "b", Index: 1}, {ID: "a", Index: 0}, {ID: "c", Index: 2}}
	snapshot := []assets.Asset{
		{ID: "ai", SceneID: "a", Type: assets.TypeImage, Status: assets.StatusComplete, Data: []byte("img-a"), MimeType: "image/jpeg"},
		{ID: "aa", SceneID: "a", Type: assets.TypeAudio, Status: assets.StatusComplete, Data: []byte("aud-a"), MimeType: "audio/mpeg", DurationSeconds: 2.5},
		{ID: "bi", SceneID: "b", Type: assets.TypeImage, Status: assets.StatusComplete, Data: []byte("img-b"), MimeType: "image/png"},
		{ID: "ba", SceneID: "b", Type: assets.TypeAudio, Status: assets.StatusComplete, Data: []byte("aud-b"), MimeType: "audio/mpeg", DurationSeconds: 9},
		{ID: "ci", SceneID: "c", Type: assets.TypeImage, Status: assets.StatusFailed, Error: "refused"},
		{ID: "ca", SceneID: "c", Type: assets.TypeAudio, Status: assets.StatusComplete, Data: []byte("aud-c"), MimeType: "audio/mpeg"},
	}
	timings := map[string]assets.AudioTiming{"ba": {AssetID: "ba", TotalDuration: 4.25}}
	return list, snapshot, timings
}

func TestBuildPlanOrdersUsableScenes(t *testing.T) {
	list, snapshot, timings := sampleInputs()
	plan, err := assembly.BuildPlan(list, snapshot, timings, 30, 1080, 1920)
	if err != nil {
		t.Fatalf("BuildPlan failed: %v", err)
	}
	if len(plan.Segments) != 2 || plan.Segments[0].SceneID != "a" || plan.Segments[1].SceneID != "b" {
		t.Fatalf("unexpected segments %+v", plan.Segments)
	}
	if plan.Segments[0].ImageDuration != 2.5 {
		t.Fatalf("expected asset duration, got %v", plan.Segments[0].ImageDuration)
	}
	if plan.Segments[1].ImageDuration != 4.25 {
		t.Fatalf("expected timing total to win, got %v", plan.Segments[1].ImageDuration)
	}
	if len(plan.Dropped) != 1 || plan.Dropped[0] != "c" {
		t.Fatalf("unexpected dropped %v", plan.Dropped)
	}
	if plan.Duration() != 6.75 {
		t.Fatalf("unexpected total duration %v", plan.Duration())
	}
}

func TestBuildPlanDefaultDurationAndEmpty(t *testing.T) {
	list := []scenes.Scene{{ID: "a"}}
	snapshot := []assets.Asset{
		{ID: "i", SceneID: "a", Type: assets.TypeImage, Status: assets.StatusComplete, Data: []byte("x")},
		{ID: "u", SceneID: "a", Type: assets.TypeAudio, Status: assets.StatusComplete, Data: []byte("y")},
	}
	plan, err := assembly.BuildPlan(list, snapshot, nil, 30, 1, 1)
	if err != nil || plan.Segments[0].ImageDuration != assembly.DefaultImageDuration {
		t.Fatalf("expected default duration, got %+v %v", plan, err)
	}

	snapshot[1].Status = assets.StatusFailed
	if _, err := assembly.BuildPlan(list, snapshot, nil, 30, 1, 1); !errors.Is(err, assembly.ErrNoUsableScenes) {
		t.Fatalf("expected ErrNoUsableScenes, got %v", err)
	}
}

func TestAssembleSendsMultipartPlan(t *testing.T) {
	list, snapshot, timings := sampleInputs()
	plan, err := assembly.BuildPlan(list, snapshot, timings, 24, 720, 1280)
	if err != nil {
		t.Fatalf("BuildPlan failed: %v", err)
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/assemble-video" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
			return
		}
		var meta struct {
			Scenes []struct {
				ImageDuration float64 `json:"imageDuration"`
			} `json:"scenes"`
			Resolution struct{ Width, Height int } `json:"resolution"`
			FrameRate  int                         `json:"frameRate"`
		}
		if err := json.Unmarshal([]byte(r.FormValue("metadata")), &meta); err != nil {
			t.Errorf("metadata: %v", err)
		}
		if len(meta.Scenes) != 2 || meta.Scenes[1].ImageDuration != 4.25 || meta.FrameRate != 24 || meta.Resolution.Width != 720 {
			t.Errorf("unexpected metadata %+v", meta)
		}
		images := r.MultipartForm.File["images"]
		audio := r.MultipartForm.File["audio"]
		if len(images) != 2 || len(audio) != 2 {
			t.Errorf("expected 2 images and 2 audio parts, got %d/%d", len(images), len(audio))
			return
		}
		if images[0].Filename != "scene_000.jpg" || images[1].Filename != "scene_001.png" {
			t.Errorf("unexpected image filenames %s %s", images[0].Filename, images[1].Filename)
		}
		f, _ := images[1].Open()
		data, _ := io.ReadAll(f)
		f.Close()
		if string(data) != "img-b" {
			t.Errorf("second image should be scene b, got %q", data)
		}
		w.Header().Set("Content-Type", "video/mp4")
		w.Header().Set("X-Video-Duration", "6.75")
		w.Header().Set("Content-Disposition", `attachment; filename="slop-video-2026-10-18.mp4"`)
		_, _ = w.Write([]byte("mp4-bytes"))
	}))
	defer server.Close()

	var out bytes.Buffer
	client := assembly.NewClient(assembly.Config{URL: server.URL})
	result, err := client.Assemble(context.Background(), plan, &out)
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}
	if out.String() != "mp4-bytes" || result.Bytes != 9 {
		t.Fatalf("unexpected output %q (%d bytes)", out.String(), result.Bytes)
	}
	if result.DurationSeconds != 6.75 || result.Filename != "slop-video-2026-10-18.mp4" {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestAssembleMapsServiceErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		code   string
		marker error
	}{
		{"metadata", 400, `{"detail":{"error":"INVALID_METADATA","message":"bad json"}}`, assembly.CodeInvalidMetadata, services.ErrValidation},
		{"ffmpeg", 500, `{"detail":{"error":"FFMPEG_ERROR","message":"exit 1"}}`, assembly.CodeFFmpeg, services.ErrProvider},
		{"timeout", 504, `{"detail":{"error":"TIMEOUT","message":"Video assembly timed out"}}`, assembly.CodeTimeout, services.ErrTimeout},
		{"plain", 504, `upstream timeout`, assembly.CodeTimeout, services.ErrTimeout},
		{"string detail", 422, `{"detail":"field required"}`, "", services.ErrProvider},
	}
	list, snapshot, _ := sampleInputs()
	plan, _ := assembly.BuildPlan(list, snapshot, nil, 30, 1080, 1920)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := assembly.NewClient(assembly.Config{URL: server.URL}).Assemble(context.Background(), plan, io.Discard)
			var se *assembly.ServiceError
			if !errors.As(err, &se) {
				t.Fatalf("expected ServiceError, got %v", err)
			}
			if se.Code != tt.code || se.StatusCode != tt.status {
				t.Fatalf("unexpected service error %+v", se)
			}
			if !errors.Is(err, tt.marker) {
				t.Fatalf("expected marker %v, got %v", tt.marker, err)
			}
		})
	}
}
