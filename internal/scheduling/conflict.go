package scheduling

// WindowCovers reports whether any declared window admits a booking at the
// given time. Windows are half-open: a time equal to EndTime is outside.
// Granularity (e.g. 30-minute increments) is the caller's concern; any time
// inside an open window passes.
func WindowCovers(windows []AvailabilitySlot, at TimeOfDay) bool {
	for _, w := range windows {
		if w.IsAvailable && w.StartTime <= at && at < w.EndTime {
			return true
		}
	}
	return false
}

// IsBookable is the pure conflict decision: the time falls inside an open
// window and no active booking occupies the exact slot. It must be evaluated
// inside the same critical section as the subsequent write.
func IsBookable(windows []AvailabilitySlot, at TimeOfDay, active *Booking) bool {
	if active != nil {
		return false
	}
	return WindowCovers(windows, at)
}
