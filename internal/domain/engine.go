package domain

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/yungbote/shiftsleep-backend/internal/platform/timeutil"
)

type EngineType string

const (
	EngineShiftToSleep   EngineType = "shift_to_sleep"
	EngineCaffeineCutoff EngineType = "caffeine_cutoff"
	EngineFatigueRisk    EngineType = "fatigue_risk"
)

// AllEngines is in dashboard display order.
var AllEngines = []EngineType{EngineShiftToSleep, EngineCaffeineCutoff, EngineFatigueRisk}

func ParseEngineType(s string) (EngineType, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "-", "_")
	for _, e := range AllEngines {
		if string(e) == s {
			return e, true
		}
	}
	return "", false
}

type DataMissingReason string

const (
	MissingUserProfile       DataMissingReason = "USER_PROFILE"
	MissingShiftScheduleDay  DataMissingReason = "SHIFT_SCHEDULE_TODAY"
	MissingShiftScheduleSpan DataMissingReason = "SHIFT_SCHEDULE_RANGE"
	MissingTargetSleepTime   DataMissingReason = "TARGET_SLEEP_TIME"
	MissingInvalidSleepTime  DataMissingReason = "INVALID_SLEEP_TIME"
	MissingCommuteMinutes    DataMissingReason = "COMMUTE_MIN"
	MissingShiftType         DataMissingReason = "SHIFT_TYPE"
)

type WhyNotShown string

const (
	WhyInsufficientData  WhyNotShown = "INSUFFICIENT_DATA"
	WhyCalculationError  WhyNotShown = "CALCULATION_ERROR"
	WhyInvalidParameters WhyNotShown = "INVALID_PARAMETERS"
	WhyTimeout           WhyNotShown = "TIMEOUT"
)

// Result is either a computed payload or the reason there is none. The zero
// value is an unavailable result with no reason and should not be used.
type Result[T any] struct {
	payload *T
	why     WhyNotShown
	missing []DataMissingReason
}

func Ok[T any](payload T) Result[T] {
	return Result[T]{payload: &payload}
}

func Unavailable[T any](why WhyNotShown, missing ...DataMissingReason) Result[T] {
	if why == "" {
		why = WhyInsufficientData
	}
	return Result[T]{why: why, missing: append([]DataMissingReason{}, missing...)}
}

// Missing is the data-missing form of Unavailable.
func Missing[T any](missing ...DataMissingReason) Result[T] {
	return Unavailable[T](WhyInsufficientData, missing...)
}

func (r Result[T]) OK() bool { return r.payload != nil }

func (r Result[T]) Payload() (T, bool) {
	if r.payload == nil {
		var zero T
		return zero, false
	}
	return *r.payload, true
}

func (r Result[T]) WhyNotShown() WhyNotShown { return r.why }

func (r Result[T]) DataMissing() []DataMissingReason {
	return append([]DataMissingReason{}, r.missing...)
}

// EngineResponse is the wire envelope. Exactly one of Result or
// (WhyNotShown, DataMissing) is set.
type EngineResponse[T any] struct {
	Result        *T                  `json:"result,omitempty"`
	WhyNotShown   WhyNotShown         `json:"whyNotShown,omitempty"`
	DataMissing   []DataMissingReason `json:"dataMissing,omitempty"`
	GeneratedAt   string              `json:"generatedAt"`
	CorrelationID string              `json:"correlationId"`

	Cached bool `json:"-"`
}

func NewResponse[T any](r Result[T], generatedAt time.Time, correlationID string) EngineResponse[T] {
	resp := EngineResponse[T]{
		GeneratedAt:   timeutil.FormatISO(generatedAt),
		CorrelationID: correlationID,
	}
	if p, ok := r.Payload(); ok {
		resp.Result = &p
		return resp
	}
	resp.WhyNotShown = r.WhyNotShown()
	if resp.WhyNotShown == "" {
		resp.WhyNotShown = WhyCalculationError
	}
	resp.DataMissing = r.DataMissing()
	return resp
}

func (e EngineResponse[T]) Available() bool { return e.Result != nil }

type engineResponseWire[T any] struct {
	Result        *T                   `json:"result,omitempty"`
	WhyNotShown   WhyNotShown          `json:"whyNotShown,omitempty"`
	DataMissing   *[]DataMissingReason `json:"dataMissing,omitempty"`
	GeneratedAt   string               `json:"generatedAt"`
	CorrelationID string               `json:"correlationId"`
}

// MarshalJSON always emits dataMissing (possibly empty) alongside whyNotShown.
func (e EngineResponse[T]) MarshalJSON() ([]byte, error) {
	w := engineResponseWire[T]{
		Result:        e.Result,
		GeneratedAt:   e.GeneratedAt,
		CorrelationID: e.CorrelationID,
	}
	if e.Result == nil {
		missing := e.DataMissing
		if missing == nil {
			missing = []DataMissingReason{}
		}
		w.WhyNotShown = e.WhyNotShown
		w.DataMissing = &missing
	}
	return json.Marshal(w)
}
