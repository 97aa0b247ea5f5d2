package engine

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/supra-heroes/zorgbot/internal/types"
)

// KeyPrefix namespaces all cache keys written by the engine.
const KeyPrefix = "zorgbot:chat:"

// Fingerprint derives the cache key for a request. The serialization is
// byte-exact: message order and text are preserved without normalization,
// so two prompts differing only in whitespace cache separately. That is
// expected behavior, not a bug.
func Fingerprint(messages []types.Message, model string, temperature float64, maxTokens int) (string, error) {
	payload := struct {
		Messages    []types.Message `json:"messages"`
		Model       string          `json:"model"`
		Temperature float64         `json:"temperature"`
		MaxTokens   int             `json:"max_tokens"`
	}{messages, model, temperature, maxTokens}

	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	sum := sha256.Sum256(data)
	return KeyPrefix + hex.EncodeToString(sum[:]), nil
}
