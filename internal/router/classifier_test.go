package router

import (
	"strings"
	"testing"

	"github.com/supra-heroes/zorgbot/internal/config"
	"github.com/supra-heroes/zorgbot/internal/types"
)

func userMsg(content string) []types.Message {
	return []types.Message{{Role: types.RoleUser, Content: content}}
}

func TestClassify_SimpleMessage(t *testing.T) {
	if got := Classify(userMsg("Hey, what's up?")); got != config.TierSmall {
		t.Errorf("expected small tier, got %s", got)
	}
}

func TestClassify_LengthBoundary(t *testing.T) {
	// Boundary is strictly greater than 300 characters
	at300 := strings.Repeat("a", 300)
	if got := Classify(userMsg(at300)); got != config.TierSmall {
		t.Errorf("300 chars: expected small tier, got %s", got)
	}

	at301 := strings.Repeat("a", 301)
	if got := Classify(userMsg(at301)); got != config.TierLarge {
		t.Errorf("301 chars: expected large tier, got %s", got)
	}
}

func TestClassify_LengthCountsCharactersNotBytes(t *testing.T) {
	// 200 characters, 400 bytes: still under the threshold
	multibyte := strings.Repeat("é", 200)
	if got := Classify(userMsg(multibyte)); got != config.TierSmall {
		t.Errorf("200 multibyte chars: expected small tier, got %s", got)
	}

	over := strings.Repeat("é", 301)
	if got := Classify(userMsg(over)); got != config.TierLarge {
		t.Errorf("301 multibyte chars: expected large tier, got %s", got)
	}
}

func TestClassify_Keywords(t *testing.T) {
	tests := []struct {
		content string
		want    string
	}{
		{"Can you analyze and explain the architecture of a distributed caching system?", config.TierLarge},
		{"Please DEBUG this for me", config.TierLarge},
		{"compare these two options", config.TierLarge},
		{"give me a comprehensive overview", config.TierLarge},
		{"explain in detail how this works", config.TierLarge},
		{"what's the weather like", config.TierSmall},
		{"gm frens", config.TierSmall},
	}

	for _, tt := range tests {
		if got := Classify(userMsg(tt.content)); got != tt.want {
			t.Errorf("Classify(%q) = %s, want %s", tt.content, got, tt.want)
		}
	}
}

func TestClassify_CodePatterns(t *testing.T) {
	tests := []string{
		"what does this do?\n```\nx = 1\n```",
		"fix this: function foo() { return 1 }",
		"class Foo has a bug",
		"import os is failing",
		"def handler(): pass",
	}
	for _, content := range tests {
		if got := Classify(userMsg(content)); got != config.TierLarge {
			t.Errorf("Classify(%q) = %s, want large", content, got)
		}
	}
}

func TestClassify_NoUserMessage(t *testing.T) {
	if got := Classify(nil); got != config.TierSmall {
		t.Errorf("empty conversation: expected small tier, got %s", got)
	}

	systemOnly := []types.Message{{Role: types.RoleSystem, Content: "analyze everything in comprehensive detail"}}
	if got := Classify(systemOnly); got != config.TierSmall {
		t.Errorf("system-only conversation: expected small tier, got %s", got)
	}
}

func TestClassify_UsesLastUserMessage(t *testing.T) {
	messages := []types.Message{
		{Role: types.RoleUser, Content: "analyze this complex architecture please"},
		{Role: types.RoleAssistant, Content: "sure, here goes..."},
		{Role: types.RoleUser, Content: "thanks!"},
	}
	if got := Classify(messages); got != config.TierSmall {
		t.Errorf("only the latest user turn should count, got %s", got)
	}
}
