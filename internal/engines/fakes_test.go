package engines

import (
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/yungbote/shiftsleep-backend/internal/cache"
	types "github.com/yungbote/shiftsleep-backend/internal/domain"
	"github.com/yungbote/shiftsleep-backend/internal/platform/dbctx"
	"github.com/yungbote/shiftsleep-backend/internal/platform/logger"
	"github.com/yungbote/shiftsleep-backend/internal/platform/timeutil"
)

var errStorage = errors.New("storage unavailable")

type fakeProfiles struct {
	rows  map[string]*types.UserProfile
	err   error
	panic bool
	calls int
}

func (f *fakeProfiles) GetByUserID(dbc dbctx.Context, userID string) (*types.UserProfile, error) {
	f.calls++
	if f.panic {
		panic("profile decoder exploded")
	}
	if err := dbc.Ctx.Err(); err != nil {
		return nil, err
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.rows[userID], nil
}

type fakeSchedules struct {
	rows []*types.ShiftSchedule
	err  error
}

func (f *fakeSchedules) GetByDate(dbc dbctx.Context, userID, date string) (*types.ShiftSchedule, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, s := range f.rows {
		if s.UserID == userID && s.Date == date {
			return s, nil
		}
	}
	return nil, nil
}

func (f *fakeSchedules) ListRange(dbc dbctx.Context, userID, from, to string) ([]*types.ShiftSchedule, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []*types.ShiftSchedule
	for _, s := range f.sorted() {
		if s.UserID == userID && s.Date >= from && s.Date <= to {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeSchedules) ListUpcoming(dbc dbctx.Context, userID, after string, limit int) ([]*types.ShiftSchedule, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []*types.ShiftSchedule
	for _, s := range f.sorted() {
		if s.UserID == userID && s.Date > after && len(out) < limit {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeSchedules) sorted() []*types.ShiftSchedule {
	out := append([]*types.ShiftSchedule(nil), f.rows...)
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

type fixture struct {
	profiles  *fakeProfiles
	schedules *fakeSchedules
	cache     *cache.Service
	deps      Deps
}

func fixedClock() time.Time { return time.Date(2024, 1, 10, 9, 0, 0, 0, timeutil.KST) }

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		profiles:  &fakeProfiles{rows: map[string]*types.UserProfile{}},
		schedules: &fakeSchedules{},
	}
	f.cache = cache.NewService(cache.NewMemoryStore(fixedClock), logger.Nop(), cache.Options{Enabled: true, Clock: fixedClock})
	f.deps = Deps{
		Profiles:  f.profiles,
		Schedules: f.schedules,
		Cache:     f.cache,
		Log:       logger.Nop(),
		Clock:     fixedClock,
		Defaults:  DefaultParams(),
	}
	return f
}

func (f *fixture) profile(userID string, pattern types.ShiftPattern, commute int) {
	f.profiles.rows[userID] = &types.UserProfile{UserID: userID, ShiftType: pattern, CommuteMinutes: &commute}
}

// shift adds a worked entry starting at startHour on date and lasting hours.
func (f *fixture) shift(userID, date string, kind types.ShiftType, startHour, hours float64) *types.ShiftSchedule {
	d, err := timeutil.ParseDate(date)
	if err != nil {
		panic(err)
	}
	start := d.Add(timeutil.Hours(startHour))
	end := start.Add(timeutil.Hours(hours))
	s := &types.ShiftSchedule{UserID: userID, Date: date, ShiftType: kind, StartAt: &start, EndAt: &end}
	f.schedules.rows = append(f.schedules.rows, s)
	return s
}

func (f *fixture) off(userID, date string) {
	f.schedules.rows = append(f.schedules.rows, &types.ShiftSchedule{UserID: userID, Date: date, ShiftType: types.ShiftOff})
}

func ptrF(v float64) *float64 { return &v }
func ptrI(v int) *int         { return &v }

func sameReasons(got []types.DataMissingReason, want ...types.DataMissingReason) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}
