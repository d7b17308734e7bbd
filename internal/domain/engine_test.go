package domain

import (
	"encoding/json"
	"testing"
	"time"
)

type samplePayload struct {
	Value int `json:"value"`
}

func TestEngineResponseExactlyOneSide(t *testing.T) {
	at := time.Date(2024, 1, 10, 3, 0, 0, 0, time.UTC)

	ok := NewResponse(Ok(samplePayload{Value: 7}), at, "req-1-abcdef01")
	raw, err := json.Marshal(ok)
	if err != nil {
		t.Fatalf("marshal ok: %v", err)
	}
	var m map[string]any
	_ = json.Unmarshal(raw, &m)
	if _, has := m["result"]; !has {
		t.Fatalf("ok response missing result: %s", raw)
	}
	if _, has := m["whyNotShown"]; has {
		t.Fatalf("ok response carries whyNotShown: %s", raw)
	}
	if m["generatedAt"] != "2024-01-10T12:00:00+09:00" {
		t.Fatalf("generatedAt: want=+09:00 form got=%v", m["generatedAt"])
	}

	failed := NewResponse(Unavailable[samplePayload](WhyCalculationError), at, "req-1-abcdef01")
	raw, _ = json.Marshal(failed)
	m = map[string]any{}
	_ = json.Unmarshal(raw, &m)
	if _, has := m["result"]; has {
		t.Fatalf("failed response carries result: %s", raw)
	}
	if m["whyNotShown"] != string(WhyCalculationError) {
		t.Fatalf("whyNotShown: want=%s got=%v", WhyCalculationError, m["whyNotShown"])
	}
	if dm, ok := m["dataMissing"].([]any); !ok || len(dm) != 0 {
		t.Fatalf("dataMissing: want empty list got=%v", m["dataMissing"])
	}
}

func TestMissingCarriesReasons(t *testing.T) {
	r := Missing[samplePayload](MissingUserProfile, MissingShiftScheduleDay)
	if r.OK() {
		t.Fatalf("missing result reported OK")
	}
	if r.WhyNotShown() != WhyInsufficientData {
		t.Fatalf("why: want=%s got=%s", WhyInsufficientData, r.WhyNotShown())
	}
	got := r.DataMissing()
	if len(got) != 2 || got[0] != MissingUserProfile || got[1] != MissingShiftScheduleDay {
		t.Fatalf("dataMissing: got=%v", got)
	}
	got[0] = "mutated"
	if r.DataMissing()[0] != MissingUserProfile {
		t.Fatalf("DataMissing leaked internal slice")
	}
}

func TestParseEngineType(t *testing.T) {
	for in, want := range map[string]EngineType{
		"shift_to_sleep":  EngineShiftToSleep,
		"caffeine-cutoff": EngineCaffeineCutoff,
		" FATIGUE_RISK ":  EngineFatigueRisk,
	} {
		got, ok := ParseEngineType(in)
		if !ok || got != want {
			t.Fatalf("ParseEngineType(%q): want=%s got=%s ok=%v", in, want, got, ok)
		}
	}
	if _, ok := ParseEngineType("nap"); ok {
		t.Fatalf("unknown engine accepted")
	}
}
