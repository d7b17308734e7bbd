package cache

import (
	"testing"

	"github.com/yungbote/shiftsleep-backend/internal/domain"
)

func TestKeyStringParseRoundTrip(t *testing.T) {
	cases := []struct {
		key  Key
		want string
	}{
		{Key{Engine: domain.EngineShiftToSleep, UserID: "u1"}, "engine#shift_to_sleep:user#u1"},
		{Key{Engine: domain.EngineFatigueRisk, UserID: "u1", Date: "2024-01-10"}, "engine#fatigue_risk:user#u1:date#2024-01-10"},
		{Key{Engine: domain.EngineCaffeineCutoff, UserID: "abc-123", Date: "2024-01-10", ParamsHash: "0a1b2c3d"}, "engine#caffeine_cutoff:user#abc-123:date#2024-01-10:params#0a1b2c3d"},
		{Key{Engine: domain.EngineCaffeineCutoff, UserID: "u2", ParamsHash: "deadbeef"}, "engine#caffeine_cutoff:user#u2:params#deadbeef"},
	}
	for _, tc := range cases {
		if got := tc.key.String(); got != tc.want {
			t.Fatalf("String: want=%s got=%s", tc.want, got)
		}
		parsed, err := ParseKey(tc.want)
		if err != nil {
			t.Fatalf("ParseKey(%s): %v", tc.want, err)
		}
		if parsed != tc.key {
			t.Fatalf("ParseKey(%s): want=%+v got=%+v", tc.want, tc.key, parsed)
		}
	}
}

func TestParseKeyRejects(t *testing.T) {
	bad := []string{
		"",
		"engine#shift_to_sleep",
		"user#u1:engine#shift_to_sleep",
		"engine#nap:user#u1",
		"engine#shift_to_sleep:user#u1:date#2024-13-40",
		"engine#shift_to_sleep:user#u1:params#xyz",
		"engine#shift_to_sleep:user#u1:params#deadbeef:date#2024-01-10",
		"engine#shift_to_sleep:user#u1:date#2024-01-10:meta",
		"engine#shift_to_sleep:user#:date#2024-01-10",
	}
	for _, s := range bad {
		if _, err := ParseKey(s); err == nil {
			t.Fatalf("ParseKey(%q): expected error", s)
		}
	}
}

func TestValidateUserIDRejectsGlobChars(t *testing.T) {
	for _, id := range []string{"u*", "u?", "a:b", "a#b", "[x]", "a b"} {
		if err := ValidateUserID(id); err == nil {
			t.Fatalf("ValidateUserID(%q): expected error", id)
		}
	}
	if err := ValidateUserID("7b0d5e8e-1c1a-4b1e-9a57-1f0e2f0c9a11"); err != nil {
		t.Fatalf("uuid rejected: %v", err)
	}
}

func TestParamsHash(t *testing.T) {
	a := Params{"sleepDurationHours": 8.0, "bufferMinutes": 30}
	b := Params{"bufferMinutes": 30, "sleepDurationHours": 8.0}
	c := Params{"sleepDurationHours": 7.5, "bufferMinutes": 30}
	if a.Hash() != b.Hash() {
		t.Fatalf("hash depends on map order: %s vs %s", a.Hash(), b.Hash())
	}
	if a.Hash() == c.Hash() {
		t.Fatalf("distinct params collided: %s", a.Hash())
	}
	if !isHex8(a.Hash()) {
		t.Fatalf("hash not 8 hex: %s", a.Hash())
	}
	if (Params{}).Hash() != "" {
		t.Fatalf("empty params should hash to empty")
	}
}
