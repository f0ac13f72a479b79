package models

// ValidWeekdays reports whether every entry is a weekday number, 0 (Sunday) to 6.
func ValidWeekdays(days []int) bool {
	for _, d := range days {
		if d < 0 || d > 6 {
			return false
		}
	}
	return true
}
