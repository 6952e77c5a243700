package eligibility

import "fmt"

const NoShiftsMessage = "no turnos configurados"

func formatDuration(minutes int) string {
	if minutes >= 60 {
		return fmt.Sprintf("%dh %dmin", minutes/60, minutes%60)
	}
	return fmt.Sprintf("%d min", minutes)
}

// WaitMessage is shown while a window has not opened yet, e.g. "Espera 1h 5min".
func WaitMessage(minutes int) string {
	return "Espera " + formatDuration(minutes)
}

// RemainingMessage is shown while the worked-time guard blocks a check-out.
func RemainingMessage(minutes int) string {
	return "Faltan " + formatDuration(minutes)
}
