// Package router decides which model tier serves a request.
package router

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/supra-heroes/zorgbot/internal/config"
	"github.com/supra-heroes/zorgbot/internal/types"
)

// Messages longer than this route to the large tier. Strictly greater:
// a 300-character message is still "simple". Measured in characters,
// not bytes.
const complexLengthThreshold = 300

// complexKeywords signal analytical or technical intent. Matched
// case-insensitively as substrings of the last user message.
var complexKeywords = []string{
	"analyze", "explain in detail", "complex", "architecture",
	"debug", "code", "algorithm", "technical", "deep dive",
	"compare", "evaluate", "comprehensive",
}

// codePattern matches fenced code blocks and common declaration tokens.
var codePattern = regexp.MustCompile("```|function |class |import |def ")

// Classify inspects the most recent user message and returns the tier that
// should serve it. With no user message it defaults to the cheap tier.
// Classify is pure: routing counters are the engine's concern.
func Classify(messages []types.Message) string {
	last := lastUserMessage(messages)
	if last == "" {
		return config.TierSmall
	}

	if utf8.RuneCountInString(last) > complexLengthThreshold {
		return config.TierLarge
	}

	lower := strings.ToLower(last)
	for _, kw := range complexKeywords {
		if strings.Contains(lower, kw) {
			return config.TierLarge
		}
	}

	if codePattern.MatchString(last) {
		return config.TierLarge
	}

	return config.TierSmall
}

func lastUserMessage(messages []types.Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == types.RoleUser {
			return messages[i].Content
		}
	}
	return ""
}
