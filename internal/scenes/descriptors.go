package scenes

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	apperrors "github.com/codebuildervaibhav/news-shorts/internal/errors"
	"github.com/codebuildervaibhav/news-shorts/internal/llm"
	"github.com/codebuildervaibhav/news-shorts/internal/types"
)

const descriptorPrompt = `You are a video editing assistant.
From the narration script, produce a list of scenes to be searched on a stock footage site.
Return ONLY a JSON array of objects with:
- text: short scene description in English
- priority: importance of the scene (1-5, 5 is the most important)
- weight: narrative weight (1-5, 5 for scenes that deserve more screen time)

Example:
[
  { "text": "Indigenous people in traditional clothing", "priority": 5, "weight": 4 },
  { "text": "Amazon rainforest aerial view", "priority": 4, "weight": 3 }
]

Return between %d and %d scenes, favoring quality and relevance.`

// Descriptors asks the model for the scene list of script and validates it
func (p *Planner) Descriptors(ctx context.Context, script string) ([]types.SceneDescriptor, error) {
	log.Printf("[scenes] Requesting %d-%d scene descriptors from %s", p.policy.MinScenes, p.policy.MaxScenes, p.model)

	raw, err := p.llm.Complete(ctx, p.model, fmt.Sprintf(descriptorPrompt, p.policy.MinScenes, p.policy.MaxScenes), script)
	if err != nil {
		return nil, fmt.Errorf("scene descriptors: %w", err)
	}

	return ParseDescriptors(raw, p.policy.MinScenes, p.policy.MaxScenes)
}

// ParseDescriptors decodes a fenced or bare JSON array and checks every entry
func ParseDescriptors(raw string, minScenes, maxScenes int) ([]types.SceneDescriptor, error) {
	var descriptors []types.SceneDescriptor
	if err := json.Unmarshal([]byte(llm.StripFences(raw)), &descriptors); err != nil {
		return nil, apperrors.NewMalformedModelOutputError(
			fmt.Sprintf("scene list is not a JSON array: %q", truncate(raw, 200)), err)
	}

	if len(descriptors) < minScenes || len(descriptors) > maxScenes {
		return nil, apperrors.NewMalformedModelOutputError(
			fmt.Sprintf("got %d scenes, want %d-%d", len(descriptors), minScenes, maxScenes), nil)
	}

	for i := range descriptors {
		d := &descriptors[i]
		d.Text = strings.TrimSpace(d.Text)
		if d.Text == "" {
			return nil, apperrors.NewMalformedModelOutputError(fmt.Sprintf("scene %d has no text", i+1), nil)
		}
		if d.Priority < 1 || d.Priority > 5 {
			return nil, apperrors.NewMalformedModelOutputError(fmt.Sprintf("scene %d priority %d out of range", i+1, d.Priority), nil)
		}
		if d.Weight < 1 || d.Weight > 5 {
			return nil, apperrors.NewMalformedModelOutputError(fmt.Sprintf("scene %d weight %d out of range", i+1, d.Weight), nil)
		}
	}

	return descriptors, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
