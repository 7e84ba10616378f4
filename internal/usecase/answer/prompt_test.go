package answer

import (
	"testing"

	"github.com/kailas-cloud/collegebuddy/internal/domain"
)

func TestBuildPrompt(t *testing.T) {
	msgs := BuildPrompt("Persona.", "calm", "Where is the library?", hits("first", "second"))

	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	want := "Persona.\nTone: calm\n\n" +
		"Use the following pieces of context to answer the user's question.\n" +
		"----------------\n" +
		"first\n\nsecond"
	if msgs[0].Role != domain.RoleSystem || msgs[0].Content != want {
		t.Errorf("system message:\n got %q\nwant %q", msgs[0].Content, want)
	}
	if msgs[1].Role != domain.RoleUser || msgs[1].Content != "Where is the library?" {
		t.Errorf("unexpected user message: %+v", msgs[1])
	}
}

func TestBuildPrompt_NoChunks(t *testing.T) {
	msgs := BuildPrompt(DefaultPersona, "supportive", "q", nil)
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[1].Content != "q" {
		t.Errorf("unexpected user message: %q", msgs[1].Content)
	}
}
