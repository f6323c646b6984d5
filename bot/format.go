package bot

import "fmt"

// FormatTime renders s seconds as MM:SS, or HH:MM:SS when there is at least one hour.
func FormatTime(s uint64) string {
	hours := s / 3600
	minutes := (s / 60) % 60
	seconds := s % 60

	if hours > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}

// secondsOf truncates a player timestamp to whole seconds, clamping negatives to zero.
func secondsOf(f float64) uint64 {
	if f <= 0 {
		return 0
	}
	return uint64(f)
}
