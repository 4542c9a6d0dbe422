package loadtest

import (
	"testing"
	"time"
)

func TestRampUpScheduleStepsAndSustain(t *testing.T) {
	plan := BuildSchedule(ScheduleRampUp, Params{
		InitialUsers: 0,
		MaxUsers:     100,
		RampDuration: 100 * time.Second,
		TestDuration: 150 * time.Second,
	})

	if len(plan) != 11 {
		t.Fatalf("expected 10 ramp steps + 1 sustain step, got %d", len(plan))
	}
	if plan[0].TargetUsers != 10 || plan[0].Hold != 10*time.Second {
		t.Fatalf("unexpected first step: %+v", plan[0])
	}
	if plan[9].TargetUsers != 100 {
		t.Fatalf("expected final ramp step at max users, got %d", plan[9].TargetUsers)
	}
	if plan[10].TargetUsers != 100 || plan[10].Hold != 50*time.Second {
		t.Fatalf("unexpected sustain step: %+v", plan[10])
	}
}

func TestSpikeScheduleHoldJumpHalve(t *testing.T) {
	plan := BuildSchedule(ScheduleSpike, Params{
		InitialUsers: 10,
		MaxUsers:     100,
		TestDuration: 90 * time.Second,
	})

	if len(plan) != 3 {
		t.Fatalf("expected 3 spike steps, got %d", len(plan))
	}
	if plan[0].TargetUsers != 10 || plan[0].Hold != 30*time.Second {
		t.Fatalf("unexpected hold step: %+v", plan[0])
	}
	if plan[1].TargetUsers != 100 || plan[1].Hold != 30*time.Second {
		t.Fatalf("unexpected spike step: %+v", plan[1])
	}
	if plan[2].TargetUsers != 50 {
		t.Fatalf("expected halved users in final step, got %d", plan[2].TargetUsers)
	}
}

func TestSoakScheduleHalfUsersFullDuration(t *testing.T) {
	plan := BuildSchedule(ScheduleSoak, Params{MaxUsers: 100, TestDuration: 60 * time.Second})
	if len(plan) != 1 || plan[0].TargetUsers != 50 || plan[0].Hold != 60*time.Second {
		t.Fatalf("unexpected soak plan: %+v", plan)
	}
}

func TestStressScheduleStopsOnFailureExplosion(t *testing.T) {
	calls := 0
	plan := BuildSchedule(ScheduleStress, Params{
		MaxUsers:     100,
		TestDuration: 50 * time.Second,
		FailureRate: func() float64 {
			calls++
			if calls >= 2 {
				return 0.9
			}
			return 0
		},
	})
	if len(plan) != 2 {
		t.Fatalf("expected stress to halt after failure rate exploded, got %d steps: %+v", len(plan), plan)
	}
}

func TestStressScheduleReachesMaxWithoutFailures(t *testing.T) {
	plan := BuildSchedule(ScheduleStress, Params{
		MaxUsers:     100,
		TestDuration: 50 * time.Second,
		FailureRate:  func() float64 { return 0 },
	})
	if len(plan) != 5 {
		t.Fatalf("expected 5 stress steps to reach max users, got %d", len(plan))
	}
	if plan[4].TargetUsers != 100 {
		t.Fatalf("expected final step at max users, got %d", plan[4].TargetUsers)
	}
}

func TestBurstScheduleSpikeAndCooldown(t *testing.T) {
	plan := BuildSchedule(ScheduleBurst, Params{
		BurstSize:    50,
		TestDuration: 30 * time.Second,
	})
	if len(plan) != 6 {
		t.Fatalf("expected 3 windows x 2 steps = 6, got %d", len(plan))
	}
	if plan[0].TargetUsers != 50 || plan[0].Hold != time.Second {
		t.Fatalf("unexpected burst step: %+v", plan[0])
	}
	if plan[1].TargetUsers != 0 || plan[1].Hold != 9*time.Second {
		t.Fatalf("unexpected cooldown step: %+v", plan[1])
	}
}
