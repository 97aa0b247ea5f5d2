package engine

import (
	"strings"
	"testing"

	"github.com/supra-heroes/zorgbot/internal/types"
)

func msgs(contents ...string) []types.Message {
	var out []types.Message
	for i, c := range contents {
		role := types.RoleUser
		if i%2 == 1 {
			role = types.RoleAssistant
		}
		out = append(out, types.Message{Role: role, Content: c})
	}
	return out
}

func TestFingerprint_Deterministic(t *testing.T) {
	m := msgs("hello", "hi", "how are you?")

	k1, err := Fingerprint(m, "mistral-small-latest", 0.7, 1000)
	if err != nil {
		t.Fatal(err)
	}
	k2, err := Fingerprint(m, "mistral-small-latest", 0.7, 1000)
	if err != nil {
		t.Fatal(err)
	}
	if k1 != k2 {
		t.Errorf("identical inputs produced different keys: %s vs %s", k1, k2)
	}
}

func TestFingerprint_KeyShape(t *testing.T) {
	k, err := Fingerprint(msgs("hello"), "m", 0.7, 1000)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(k, KeyPrefix) {
		t.Errorf("key %q missing namespace prefix", k)
	}
	// sha256 hex digest
	if len(k) != len(KeyPrefix)+64 {
		t.Errorf("unexpected key length %d", len(k))
	}
}

func TestFingerprint_SensitiveToEveryField(t *testing.T) {
	base, _ := Fingerprint(msgs("hello"), "mistral-small-latest", 0.7, 1000)

	variants := []struct {
		name string
		key  func() (string, error)
	}{
		{"message text", func() (string, error) {
			return Fingerprint(msgs("hello!"), "mistral-small-latest", 0.7, 1000)
		}},
		{"whitespace", func() (string, error) {
			return Fingerprint(msgs("hello "), "mistral-small-latest", 0.7, 1000)
		}},
		{"message order", func() (string, error) {
			return Fingerprint(msgs("a", "b"), "mistral-small-latest", 0.7, 1000)
		}},
		{"model", func() (string, error) {
			return Fingerprint(msgs("hello"), "mistral-large-latest", 0.7, 1000)
		}},
		{"temperature", func() (string, error) {
			return Fingerprint(msgs("hello"), "mistral-small-latest", 0.71, 1000)
		}},
		{"max tokens", func() (string, error) {
			return Fingerprint(msgs("hello"), "mistral-small-latest", 0.7, 1001)
		}},
	}

	for _, v := range variants {
		k, err := v.key()
		if err != nil {
			t.Fatalf("%s: %v", v.name, err)
		}
		if k == base {
			t.Errorf("changing %s did not change the key", v.name)
		}
	}
}

func TestFingerprint_OrderMatters(t *testing.T) {
	ab, _ := Fingerprint(msgs("a", "b"), "m", 0.7, 1000)
	ba, _ := Fingerprint(msgs("b", "a"), "m", 0.7, 1000)
	if ab == ba {
		t.Error("swapping message order must change the key")
	}
}
