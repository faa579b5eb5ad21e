package scenes

import (
	"fmt"
	"strings"
	"testing"

	apperrors "github.com/codebuildervaibhav/news-shorts/internal/errors"
)

func descriptorJSON(n int) string {
	items := make([]string, n)
	for i := range items {
		items[i] = fmt.Sprintf(`{"text":"scene %d","priority":%d,"weight":%d}`, i+1, i%5+1, (i+2)%5+1)
	}
	return "[" + strings.Join(items, ",") + "]"
}

func TestParseDescriptorsFenced(t *testing.T) {
	got, err := ParseDescriptors("```json\n"+descriptorJSON(6)+"\n```", 6, 10)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(got) != 6 || got[0].Text != "scene 1" || got[0].Priority != 1 || got[0].Weight != 3 {
		t.Fatalf("got %+v", got)
	}
}

func TestParseDescriptorsRejects(t *testing.T) {
	cases := map[string]string{
		"not json":     "here are your scenes",
		"object":       `{"scenes":[]}`,
		"too few":      descriptorJSON(5),
		"too many":     descriptorJSON(11),
		"empty":        "[]",
		"blank text":   strings.Replace(descriptorJSON(6), `"scene 3"`, `"  "`, 1),
		"bad priority": strings.Replace(descriptorJSON(6), `"priority":1`, `"priority":0`, 1),
		"bad weight":   strings.Replace(descriptorJSON(6), `"weight":3`, `"weight":9`, 1),
	}
	for name, raw := range cases {
		_, err := ParseDescriptors(raw, 6, 10)
		if !apperrors.IsMalformedModelOutput(err) {
			t.Fatalf("%s: expected malformed output, got %v", name, err)
		}
	}
}
