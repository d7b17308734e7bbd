package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	types "github.com/yungbote/shiftsleep-backend/internal/domain"
	"github.com/yungbote/shiftsleep-backend/internal/domain/user"
	"github.com/yungbote/shiftsleep-backend/internal/platform/apierr"
	"github.com/yungbote/shiftsleep-backend/internal/platform/dbctx"
	"github.com/yungbote/shiftsleep-backend/internal/platform/logger"
	"github.com/yungbote/shiftsleep-backend/internal/platform/timeutil"
)

const maxNoteLength = 500

type ScheduleStore interface {
	GetByDate(dbc dbctx.Context, userID, date string) (*types.ShiftSchedule, error)
	ListRange(dbc dbctx.Context, userID, from, to string) ([]*types.ShiftSchedule, error)
	Upsert(dbc dbctx.Context, row *types.ShiftSchedule) (*types.ShiftSchedule, error)
	DeleteByDate(dbc dbctx.Context, userID, date string) (bool, error)
}

// ScheduleChangePropagator drops cached engine output that depends on a
// changed schedule day.
type ScheduleChangePropagator interface {
	PropagateScheduleChange(ctx context.Context, userID, date string) (int, error)
}

type ScheduleInput struct {
	ShiftType      string `json:"shiftType"`
	StartAt        string `json:"startAt,omitempty"`
	EndAt          string `json:"endAt,omitempty"`
	CommuteMinutes *int   `json:"commuteMinutes,omitempty"`
	Note           string `json:"note,omitempty"`
}

type ScheduleChange struct {
	Date        string `json:"date"`
	Deleted     bool   `json:"deleted,omitempty"`
	Invalidated int    `json:"invalidatedKeys"`
	// Propagated is false when the write landed but cache invalidation
	// failed. Cached results then expire on their TTL.
	Propagated bool `json:"propagated"`
}

type ScheduleService interface {
	Get(ctx context.Context, userID, date string) (*types.ShiftSchedule, error)
	List(ctx context.Context, userID, from, to string) ([]*types.ShiftSchedule, error)
	Upsert(ctx context.Context, userID, date string, in ScheduleInput) (*types.ShiftSchedule, ScheduleChange, error)
	Delete(ctx context.Context, userID, date string) (ScheduleChange, error)
}

type scheduleService struct {
	log        *logger.Logger
	store      ScheduleStore
	propagator ScheduleChangePropagator
}

func NewScheduleService(log *logger.Logger, store ScheduleStore, propagator ScheduleChangePropagator) ScheduleService {
	return &scheduleService{
		log:        log.With("service", "ScheduleService"),
		store:      store,
		propagator: propagator,
	}
}

func (s *scheduleService) Get(ctx context.Context, userID, date string) (*types.ShiftSchedule, error) {
	if _, err := timeutil.ParseDate(date); err != nil {
		return nil, apierr.BadRequest(err)
	}
	row, err := s.store.GetByDate(dbctx.From(ctx), userID, date)
	if err != nil {
		return nil, apierr.Internal(fmt.Errorf("get schedule: %w", err))
	}
	return row, nil
}

// List returns entries in [from, to]. The range is capped at 62 days.
func (s *scheduleService) List(ctx context.Context, userID, from, to string) ([]*types.ShiftSchedule, error) {
	days, err := timeutil.DateRange(from, to)
	if err != nil {
		return nil, apierr.BadRequest(err)
	}
	if len(days) > 62 {
		return nil, apierr.BadRequest(fmt.Errorf("date range too long (%d days, max 62)", len(days)))
	}
	rows, err := s.store.ListRange(dbctx.From(ctx), userID, from, to)
	if err != nil {
		return nil, apierr.Internal(fmt.Errorf("list schedules: %w", err))
	}
	return rows, nil
}

func (s *scheduleService) Upsert(ctx context.Context, userID, date string, in ScheduleInput) (*types.ShiftSchedule, ScheduleChange, error) {
	row, err := buildSchedule(userID, date, in)
	if err != nil {
		return nil, ScheduleChange{}, apierr.BadRequest(err)
	}
	stored, err := s.store.Upsert(dbctx.From(ctx), row)
	if err != nil {
		return nil, ScheduleChange{}, apierr.Internal(fmt.Errorf("upsert schedule: %w", err))
	}
	change := s.propagate(ctx, userID, date)
	s.log.Info("Schedule saved", "user_id", userID, "date", date, "shift_type", row.ShiftType, "invalidated", change.Invalidated)
	return stored, change, nil
}

func (s *scheduleService) Delete(ctx context.Context, userID, date string) (ScheduleChange, error) {
	if _, err := timeutil.ParseDate(date); err != nil {
		return ScheduleChange{}, apierr.BadRequest(err)
	}
	deleted, err := s.store.DeleteByDate(dbctx.From(ctx), userID, date)
	if err != nil {
		return ScheduleChange{}, apierr.Internal(fmt.Errorf("delete schedule: %w", err))
	}
	// Invalidate even when nothing was deleted: a stale cache entry may
	// outlive a row removed out of band.
	change := s.propagate(ctx, userID, date)
	change.Deleted = deleted
	s.log.Info("Schedule deleted", "user_id", userID, "date", date, "deleted", deleted, "invalidated", change.Invalidated)
	return change, nil
}

func (s *scheduleService) propagate(ctx context.Context, userID, date string) ScheduleChange {
	change := ScheduleChange{Date: date}
	if s.propagator == nil {
		return change
	}
	n, err := s.propagator.PropagateScheduleChange(ctx, userID, date)
	if err != nil {
		s.log.Error("Schedule change propagation failed", "user_id", userID, "date", date, "error", err)
		return change
	}
	change.Invalidated = n
	change.Propagated = true
	return change
}

func buildSchedule(userID, date string, in ScheduleInput) (*types.ShiftSchedule, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("missing user id")
	}
	if _, err := timeutil.ParseDate(date); err != nil {
		return nil, err
	}
	st := types.ShiftType(strings.ToUpper(strings.TrimSpace(in.ShiftType)))
	if !st.Valid() {
		return nil, fmt.Errorf("invalid shiftType %q", in.ShiftType)
	}
	if in.CommuteMinutes != nil && (*in.CommuteMinutes < 0 || *in.CommuteMinutes > user.MaxCommuteMinutes) {
		return nil, fmt.Errorf("commuteMinutes must be within 0..%d", user.MaxCommuteMinutes)
	}
	note := strings.TrimSpace(in.Note)
	if len([]rune(note)) > maxNoteLength {
		return nil, fmt.Errorf("note longer than %d characters", maxNoteLength)
	}

	row := &types.ShiftSchedule{
		UserID:         userID,
		Date:           date,
		ShiftType:      st,
		CommuteMinutes: in.CommuteMinutes,
		Note:           note,
	}
	if st != types.ShiftOff {
		start, err := timeutil.ParseDateTime(in.StartAt, date)
		if err != nil {
			return nil, fmt.Errorf("startAt: %w", err)
		}
		end, err := timeutil.ParseDateTime(in.EndAt, date)
		if err != nil {
			return nil, fmt.Errorf("endAt: %w", err)
		}
		// A clock-only end at or before the start belongs to the next day.
		if !end.After(start) {
			end = end.Add(24 * time.Hour)
		}
		row.StartAt = &start
		row.EndAt = &end
	}
	if err := row.Validate(); err != nil {
		return nil, err
	}
	return row, nil
}
