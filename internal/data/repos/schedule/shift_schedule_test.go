package schedule

import (
	"context"
	"testing"
	"time"

	"github.com/yungbote/shiftsleep-backend/internal/data/repos/testutil"
	types "github.com/yungbote/shiftsleep-backend/internal/domain"
	"github.com/yungbote/shiftsleep-backend/internal/platform/dbctx"
)

func at(date string, hour int) *time.Time {
	d, _ := time.Parse("2006-01-02", date)
	v := d.Add(time.Duration(hour) * time.Hour).UTC()
	return &v
}

func TestShiftScheduleRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	repo := NewShiftScheduleRepo(db, testutil.Logger(t))
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}

	testutil.SeedShift(t, ctx, tx, "sched-user", "2024-01-08", types.ShiftNight, at("2024-01-08", 22), at("2024-01-09", 6))
	testutil.SeedShift(t, ctx, tx, "sched-user", "2024-01-09", types.ShiftNight, at("2024-01-09", 22), at("2024-01-10", 6))
	testutil.SeedShift(t, ctx, tx, "sched-user", "2024-01-11", types.ShiftOff, nil, nil)
	testutil.SeedShift(t, ctx, tx, "other-user", "2024-01-09", types.ShiftDay, at("2024-01-09", 9), at("2024-01-09", 17))

	got, err := repo.GetByDate(dbc, "sched-user", "2024-01-09")
	if err != nil {
		t.Fatalf("GetByDate: %v", err)
	}
	if got == nil || got.ShiftType != types.ShiftNight || got.WorkHours() != 8 {
		t.Fatalf("GetByDate: unexpected %+v", got)
	}
	none, err := repo.GetByDate(dbc, "sched-user", "2024-01-10")
	if err != nil || none != nil {
		t.Fatalf("GetByDate(missing): want nil got=%+v err=%v", none, err)
	}

	rng, err := repo.ListRange(dbc, "sched-user", "2024-01-08", "2024-01-10")
	if err != nil {
		t.Fatalf("ListRange: %v", err)
	}
	if len(rng) != 2 || rng[0].Date != "2024-01-08" || rng[1].Date != "2024-01-09" {
		t.Fatalf("ListRange: unexpected %+v", rng)
	}

	up, err := repo.ListUpcoming(dbc, "sched-user", "2024-01-08", 7)
	if err != nil {
		t.Fatalf("ListUpcoming: %v", err)
	}
	if len(up) != 2 || up[0].Date != "2024-01-09" || up[1].Date != "2024-01-11" {
		t.Fatalf("ListUpcoming: unexpected %+v", up)
	}
}

func TestShiftScheduleUpsertAndDelete(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	repo := NewShiftScheduleRepo(db, testutil.Logger(t))
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}

	first, err := repo.Upsert(dbc, &types.ShiftSchedule{
		UserID: "upsert-user", Date: "2024-01-10", ShiftType: types.ShiftDay,
		StartAt: at("2024-01-10", 9), EndAt: at("2024-01-10", 17),
	})
	if err != nil {
		t.Fatalf("Upsert(insert): %v", err)
	}
	second, err := repo.Upsert(dbc, &types.ShiftSchedule{
		UserID: "upsert-user", Date: "2024-01-10", ShiftType: types.ShiftNight,
		StartAt: at("2024-01-10", 22), EndAt: at("2024-01-11", 7), CommuteMinutes: testutil.PtrInt(20),
	})
	if err != nil {
		t.Fatalf("Upsert(update): %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("Upsert: row replaced instead of updated: %s vs %s", first.ID, second.ID)
	}
	if second.ShiftType != types.ShiftNight || second.WorkHours() != 9 {
		t.Fatalf("Upsert: unexpected %+v", second)
	}

	deleted, err := repo.DeleteByDate(dbc, "upsert-user", "2024-01-10")
	if err != nil || !deleted {
		t.Fatalf("DeleteByDate: deleted=%v err=%v", deleted, err)
	}
	deleted, err = repo.DeleteByDate(dbc, "upsert-user", "2024-01-10")
	if err != nil || deleted {
		t.Fatalf("DeleteByDate(again): deleted=%v err=%v", deleted, err)
	}
}
