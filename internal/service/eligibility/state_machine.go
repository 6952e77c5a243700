package eligibility

import (
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/schedule"
)

// Input is everything one evaluation depends on.
type Input struct {
	Groups []schedule.ShiftGroup
	Policy schedule.TolerancePolicy
	Day    attendance.DayState
	// Now must already be in the employee's local time zone.
	Now time.Time
}

// Evaluate decides whether the next check-in or check-out can be registered at in.Now.
// It performs no I/O and returns the same result for the same input.
func Evaluate(in Input) attendance.EligibilityResult {
	next := attendance.ActionEntrada
	if in.Day.LastRecord != nil && in.Day.LastRecord.Type == attendance.ActionEntrada {
		next = attendance.ActionSalida
	}

	if len(in.Groups) == 0 {
		return attendance.EligibilityResult{
			NextActionType: next,
			State:          attendance.StateFueraHorario,
			WaitMessage:    NoShiftsMessage,
			Reason:         attendance.ReasonNoShifts,
		}
	}

	if next == attendance.ActionSalida {
		return evaluateExit(in)
	}
	return evaluateEntry(in)
}

func evaluateEntry(in Input) attendance.EligibilityResult {
	minute := int(schedule.ClockOf(in.Now))
	completed := in.Day.NextGroupIndex()

	result := attendance.EligibilityResult{
		NextActionType: attendance.ActionEntrada,
		State:          attendance.StateFueraHorario,
		GroupIndex:     -1,
	}

	closedGroup := -1
	for i := completed; i < len(in.Groups); i++ {
		group := in.Groups[i]
		if in.Day.LastCheckOutMinute != nil && int(group.Entry()) <= *in.Day.LastCheckOutMinute {
			continue
		}

		w := Calculate(group, in.Policy)
		if minute < w.AnticipatedStart {
			// Groups are ordered, so every later group is in the future as well.
			wait := w.AnticipatedStart - minute
			result.GroupIndex = i
			result.HasFutureShift = true
			result.Reason = attendance.ReasonFutureShift
			result.MinutesUntilStart = wait
			result.WaitMessage = WaitMessage(wait)
			return result
		}
		if !w.IsActive(minute) {
			continue
		}

		if class, ok := w.ClassifyEntry(minute); ok {
			c := class
			result.CanRegister = true
			result.State = stateFor(class)
			result.Classification = &c
			result.Reason = attendance.ReasonAllowed
			result.GroupIndex = i
			return result
		}
		if closedGroup < 0 {
			closedGroup = i
		}
	}

	if closedGroup >= 0 {
		result.GroupIndex = closedGroup
		result.Reason = attendance.ReasonEntryWindowClosed
		return result
	}

	if completed >= len(in.Groups) {
		result.State = attendance.StateCompletado
		result.DayComplete = true
		result.Reason = attendance.ReasonDayComplete
		return result
	}

	result.Reason = attendance.ReasonShiftsPassed
	return result
}

func evaluateExit(in Input) attendance.EligibilityResult {
	index := in.Day.OpenGroupIndex(len(in.Groups))
	w := Calculate(in.Groups[index], in.Policy)

	result := attendance.EligibilityResult{
		NextActionType: attendance.ActionSalida,
		State:          attendance.StateFueraHorario,
		GroupIndex:     index,
	}

	elapsed := elapsedMinutes(in.Day.LastRecord.Timestamp, in.Now)
	if elapsed < w.MinimumWorked {
		remaining := w.MinimumWorked - elapsed
		result.State = attendance.StateTiempoInsuficiente
		result.Reason = attendance.ReasonInsufficientTime
		result.MinutesRemaining = remaining
		result.WaitMessage = RemainingMessage(remaining)
		return result
	}

	minute := int(schedule.ClockOf(in.Now))
	switch {
	case minute < w.ExitWindowStart:
		wait := w.ExitWindowStart - minute
		result.Reason = attendance.ReasonExitWindowNotOpen
		result.MinutesUntilStart = wait
		result.WaitMessage = WaitMessage(wait)
	case minute > w.ExitWindowEnd:
		result.Reason = attendance.ReasonExitWindowClosed
	default:
		c := attendance.ClassificationPuntual
		result.CanRegister = true
		result.State = attendance.StatePuntual
		result.Classification = &c
		result.Reason = attendance.ReasonAllowed
	}
	return result
}

// elapsedMinutes counts whole minutes between the minute marks of from and to.
func elapsedMinutes(from, to time.Time) int {
	return int(to.Truncate(time.Minute).Sub(from.Truncate(time.Minute)) / time.Minute)
}

func stateFor(c attendance.Classification) attendance.EligibilityState {
	switch c {
	case attendance.ClassificationRetardo:
		return attendance.StateRetardo
	case attendance.ClassificationFalta:
		return attendance.StateFalta
	default:
		return attendance.StatePuntual
	}
}
