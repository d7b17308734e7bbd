package logger

import (
	"strings"
	"testing"
)

func TestSanitizeKVs(t *testing.T) {
	kv := sanitizeKVs([]interface{}{
		"user_id", "u-123",
		"jwt_token", "abc",
		"engine", "shift_to_sleep",
		"dangling",
	})
	if len(kv) != 7 {
		t.Fatalf("len: want=7 got=%d", len(kv))
	}
	hashed, _ := kv[1].(string)
	if !strings.HasPrefix(hashed, "hash:") || strings.Contains(hashed, "u-123") {
		t.Fatalf("user_id: want hashed value got=%v", kv[1])
	}
	if kv[3] != "[REDACTED]" {
		t.Fatalf("jwt_token: want=[REDACTED] got=%v", kv[3])
	}
	if kv[5] != "shift_to_sleep" {
		t.Fatalf("engine: want passthrough got=%v", kv[5])
	}
	if kv[6] != "dangling" {
		t.Fatalf("dangling key: want kept got=%v", kv[6])
	}
}

func TestHashValueStable(t *testing.T) {
	a := hashValue("user-1")
	b := hashValue("user-1")
	if a != b {
		t.Fatalf("hash not stable: %s vs %s", a, b)
	}
	if a == hashValue("user-2") {
		t.Fatalf("distinct ids hashed to the same value")
	}
}

func TestNewModes(t *testing.T) {
	for _, mode := range []string{"test", "development", "production"} {
		l, err := New(mode)
		if err != nil {
			t.Fatalf("New(%q): %v", mode, err)
		}
		l.With("component", "test").Debug("hello", "k", "v")
	}
	Nop().Info("discarded")
}

func TestClassify(t *testing.T) {
	cases := map[string]keyAction{
		"user":            hash,
		"target_user_id":  hash,
		"authorization":   redact,
		"redis_password":  redact,
		"engine":          keep,
		"users_processed": keep,
	}
	for key, want := range cases {
		if got := classify(key); got != want {
			t.Fatalf("classify(%q): want=%v got=%v", key, want, got)
		}
	}
}

func TestSanitizeNestedMap(t *testing.T) {
	kv := sanitizeKVs([]interface{}{"params", map[string]interface{}{"Secret": "s", "days": 7}})
	m, ok := kv[1].(map[string]interface{})
	if !ok {
		t.Fatalf("params: want map got=%T", kv[1])
	}
	if m["Secret"] != "[REDACTED]" || m["days"] != 7 {
		t.Fatalf("nested: got=%v", m)
	}
}
