package scenes_test

import (
	"errors"
	"path/filepath"
	"testing"

	"slopreel/internal/scenes"
)

func TestParseAssignsIDsAndIndexes(t *testing.T) {
	doc, err := scenes.Parse([]byte(`
topic: Octopus facts
scenes:
  - script: "  Octopuses have three hearts. "
    image_description: An octopus on a reef
  - id: custom
    script: They can change colour.
`))
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if doc.Topic != "Octopus facts" || len(doc.Scenes) != 2 {
		t.Fatalf("unexpected document %+v", doc)
	}
	if doc.Scenes[0].ID == "" || doc.Scenes[1].ID != "custom" {
		t.Fatalf("unexpected ids %q %q", doc.Scenes[0].ID, doc.Scenes[1].ID)
	}
	if doc.Scenes[0].Index != 0 || doc.Scenes[1].Index != 1 {
		t.Fatalf("unexpected indexes %+v", doc.Scenes)
	}
	if doc.Scenes[0].Script != "Octopuses have three hearts." {
		t.Fatalf("script not trimmed: %q", doc.Scenes[0].Script)
	}
	if doc.Scenes[1].HasImageDescription() {
		t.Fatal("second scene has no image description")
	}
}

func TestParseAcceptsJSON(t *testing.T) {
	doc, err := scenes.Parse([]byte(`{"topic":"t","scenes":[{"id":"a","script":"s","image_description":"i"}]}`))
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if doc.Scenes[0].ImageDescription != "i" {
		t.Fatalf("unexpected scene %+v", doc.Scenes[0])
	}
}

func TestParseRejectsEmptyAndDuplicates(t *testing.T) {
	if _, err := scenes.Parse([]byte("topic: nothing\n")); !errors.Is(err, scenes.ErrNoScenes) {
		t.Fatalf("expected ErrNoScenes, got %v", err)
	}
	if _, err := scenes.Parse([]byte("scenes:\n  - id: a\n  - id: a\n")); err == nil {
		t.Fatal("expected duplicate id error")
	}
}

func TestSaveAndLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "scenes.yaml")
	in := scenes.Document{Topic: "t", Scenes: []scenes.Scene{{ID: "a", Script: "one"}, {ID: "b", Script: "two"}}}
	if err := scenes.SaveFile(path, in); err != nil {
		t.Fatalf("SaveFile: %v", err)
	}
	out, err := scenes.LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if len(out.Scenes) != 2 || out.Scenes[1].ID != "b" || out.Scenes[1].Index != 1 {
		t.Fatalf("unexpected scenes %+v", out.Scenes)
	}
}

func TestNeighboursFollowIndexOrder(t *testing.T) {
	list := scenes.List{
		{ID: "c", Index: 2, Script: "third"},
		{ID: "a", Index: 0, Script: "first"},
		{ID: "b", Index: 1, Script: "second"},
	}
	ordered := list.Scenes()
	prev, next := scenes.Neighbours(ordered, "b")
	if prev != "first" || next != "third" {
		t.Fatalf("unexpected neighbours %q %q", prev, next)
	}
	prev, next = scenes.Neighbours(ordered, "a")
	if prev != "" || next != "second" {
		t.Fatalf("unexpected boundary neighbours %q %q", prev, next)
	}
	if _, ok := scenes.Find(ordered, "missing"); ok {
		t.Fatal("expected missing scene lookup to fail")
	}
}
