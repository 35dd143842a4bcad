package scenes

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// ErrNoScenes is returned when a scene file contains no scenes.
var ErrNoScenes = errors.New("scene file contains no scenes")

// Document is the on-disk scene file.
type Document struct {
	Topic  string  `yaml:"topic" json:"topic"`
	Scenes []Scene `yaml:"scenes" json:"scenes"`
}

// LoadFile reads a YAML or JSON scene file. Scenes keep file order; missing
// ids are filled with random UUIDs and indexes are renumbered from zero.
func LoadFile(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("read scene file: %w", err)
	}
	return Parse(data)
}

// Parse decodes scene file contents. YAML is a superset of JSON so both
// formats share the decoder.
func Parse(data []byte) (Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("parse scene file: %w", err)
	}
	if err := Normalize(&doc); err != nil {
		return Document{}, err
	}
	return doc, nil
}

// Normalize trims text, assigns ids and indexes, and rejects duplicates.
func Normalize(doc *Document) error {
	doc.Topic = strings.TrimSpace(doc.Topic)
	if len(doc.Scenes) == 0 {
		return ErrNoScenes
	}
	seen := make(map[string]int, len(doc.Scenes))
	for i := range doc.Scenes {
		s := &doc.Scenes[i]
		s.ID = strings.TrimSpace(s.ID)
		if s.ID == "" {
			s.ID = uuid.NewString()
		}
		if prev, dup := seen[s.ID]; dup {
			return fmt.Errorf("scene %d reuses id %q from scene %d", i, s.ID, prev)
		}
		seen[s.ID] = i
		s.Index = i
		s.Script = strings.TrimSpace(s.Script)
		s.ImageDescription = strings.TrimSpace(s.ImageDescription)
	}
	return nil
}

// SaveFile writes doc as YAML, creating parent directories.
func SaveFile(path string, doc Document) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create scene directory: %w", err)
		}
	}
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode scene file: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write scene file: %w", err)
	}
	return nil
}
