package llm

import (
	"context"
	"fmt"
	"strings"

	"slopreel/internal/scenes"
	"slopreel/internal/services"
)

const (
	// MinDraftScenes and MaxDraftScenes bound the scene count of one draft.
	MinDraftScenes = 1
	MaxDraftScenes = 30
)

// SceneDraftPrompt instructs the model to return a scene list as JSON.
const SceneDraftPrompt = `You write scripts for short narrated videos. Each video is a sequence of scenes; every scene has one spoken paragraph and one still image.

Respond with ONLY valid JSON, no markdown and no commentary, using this shape:
{"scenes":[{"script":"...","imageDescription":"..."}]}

Rules:
- "script" is the exact narration for the scene, 1-3 sentences, plain text with no stage directions.
- "imageDescription" is a concrete visual prompt for an image generator: subject, setting, composition, lighting and style. Never ask for text or captions inside the image.
- Scenes follow each other as one continuous story; the first scene hooks the viewer and the last one lands the point.
- Return exactly the number of scenes requested.`

type draftPayload struct {
	Scenes []struct {
		Script           string `json:"script"`
		ImageDescription string `json:"imageDescription"`
		// Some models answer in snake_case despite the prompt.
		ImageDescriptionAlt string `json:"image_description"`
	} `json:"scenes"`
}

// DraftScenes asks the model for count scenes about topic. The result has
// fresh ids and indexes in narrative order.
func (c *Client) DraftScenes(ctx context.Context, topic string, count int) ([]scenes.Scene, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, services.Wrap(services.ErrValidation, "llm", "draft", "Topic is required", nil)
	}
	if count < MinDraftScenes || count > MaxDraftScenes {
		return nil, services.Wrap(services.ErrValidation, "llm", "draft",
			fmt.Sprintf("Scene count must be between %d and %d", MinDraftScenes, MaxDraftScenes), nil)
	}
	user := fmt.Sprintf("Topic: %s\nNumber of scenes: %d", topic, count)
	content, err := c.CompleteJSON(ctx, SceneDraftPrompt, user)
	if err != nil {
		return nil, err
	}
	var payload draftPayload
	if err := DecodeLLMJSON(content, &payload); err != nil {
		return nil, services.Wrap(services.ErrProvider, "llm", "draft", "Model returned malformed scene JSON", err)
	}

	doc := scenes.Document{Topic: topic}
	for _, raw := range payload.Scenes {
		desc := raw.ImageDescription
		if strings.TrimSpace(desc) == "" {
			desc = raw.ImageDescriptionAlt
		}
		if strings.TrimSpace(raw.Script) == "" && strings.TrimSpace(desc) == "" {
			continue
		}
		doc.Scenes = append(doc.Scenes, scenes.Scene{Script: raw.Script, ImageDescription: desc})
	}
	if len(doc.Scenes) > count {
		doc.Scenes = doc.Scenes[:count]
	}
	if err := scenes.Normalize(&doc); err != nil {
		return nil, services.Wrap(services.ErrProvider, "llm", "draft", "Model returned no usable scenes", err)
	}
	return doc.Scenes, nil
}
