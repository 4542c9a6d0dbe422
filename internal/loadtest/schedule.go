package loadtest

import "time"

// ScheduleKind selects one of the five virtual-user ramp patterns.
type ScheduleKind string

const (
	ScheduleRampUp ScheduleKind = "ramp_up"
	ScheduleSpike  ScheduleKind = "spike"
	ScheduleSoak   ScheduleKind = "soak"
	ScheduleStress ScheduleKind = "stress"
	ScheduleBurst  ScheduleKind = "burst"
)

// Plan is one instant in a schedule's timeline: hold TargetUsers active
// virtual users for Hold before moving to the next step.
type Plan struct {
	TargetUsers int
	Hold        time.Duration
}

// Params configures a schedule. Not every field applies to every kind;
// see the comment on each builder below.
type Params struct {
	InitialUsers int
	MaxUsers     int
	RampDuration time.Duration
	TestDuration time.Duration
	BurstSize    int
	FailureRate  func() float64 // stress schedule's failure probe, sampled once per step
}

// BuildSchedule returns the step-by-step plan for kind given params.
func BuildSchedule(kind ScheduleKind, p Params) []Plan {
	switch kind {
	case ScheduleRampUp:
		return rampUpSchedule(p)
	case ScheduleSpike:
		return spikeSchedule(p)
	case ScheduleSoak:
		return soakSchedule(p)
	case ScheduleStress:
		return stressSchedule(p)
	case ScheduleBurst:
		return burstSchedule(p)
	default:
		return soakSchedule(p)
	}
}

// rampUpSchedule: 10 steps of (max-initial)/10 users, each step
// ramp_up_duration/10 seconds, then sustain to test_duration.
func rampUpSchedule(p Params) []Plan {
	const steps = 10
	stepUsers := (p.MaxUsers - p.InitialUsers) / steps
	stepDur := p.RampDuration / steps

	var plan []Plan
	for i := 1; i <= steps; i++ {
		users := p.InitialUsers + stepUsers*i
		plan = append(plan, Plan{TargetUsers: users, Hold: stepDur})
	}

	elapsed := p.RampDuration
	if remaining := p.TestDuration - elapsed; remaining > 0 {
		plan = append(plan, Plan{TargetUsers: p.MaxUsers, Hold: remaining})
	}
	return plan
}

// spikeSchedule: hold initial_users for 30s, jump to max_users for
// test_duration/3, then halve users for the remainder.
func spikeSchedule(p Params) []Plan {
	const holdPeriod = 30 * time.Second
	spikeDur := p.TestDuration / 3
	remainder := p.TestDuration - holdPeriod - spikeDur
	if remainder < 0 {
		remainder = 0
	}

	return []Plan{
		{TargetUsers: p.InitialUsers, Hold: holdPeriod},
		{TargetUsers: p.MaxUsers, Hold: spikeDur},
		{TargetUsers: p.MaxUsers / 2, Hold: remainder},
	}
}

// soakSchedule: hold max_users/2 for the full duration.
func soakSchedule(p Params) []Plan {
	return []Plan{{TargetUsers: p.MaxUsers / 2, Hold: p.TestDuration}}
}

// stressSchedule: increase by max_users/5 every test_duration/5 until the
// failure probe fires or max is reached.
func stressSchedule(p Params) []Plan {
	const steps = 5
	stepUsers := p.MaxUsers / steps
	stepDur := p.TestDuration / steps

	var plan []Plan
	users := 0
	for i := 0; i < steps; i++ {
		users += stepUsers
		if users > p.MaxUsers {
			users = p.MaxUsers
		}
		plan = append(plan, Plan{TargetUsers: users, Hold: stepDur})
		if p.FailureRate != nil && p.FailureRate() > failureExplodeThreshold {
			break
		}
		if users >= p.MaxUsers {
			break
		}
	}
	return plan
}

// failureExplodeThreshold is the error-rate fraction that halts a stress
// schedule early.
const failureExplodeThreshold = 0.5

// burstSchedule: for each 10s window, spike burst_size for 1s then cool
// down to zero for the rest of the window, repeated for test_duration.
func burstSchedule(p Params) []Plan {
	const window = 10 * time.Second
	const spike = 1 * time.Second
	cooldown := window - spike

	windows := int(p.TestDuration / window)
	if windows == 0 {
		windows = 1
	}

	var plan []Plan
	for i := 0; i < windows; i++ {
		plan = append(plan, Plan{TargetUsers: p.BurstSize, Hold: spike})
		plan = append(plan, Plan{TargetUsers: 0, Hold: cooldown})
	}
	return plan
}
