package scheduling

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func window(start, end TimeOfDay) AvailabilitySlot {
	return AvailabilitySlot{StartTime: start, EndTime: end, IsAvailable: true}
}

func TestWindowCovers(t *testing.T) {
	windows := []AvailabilitySlot{window(9*60, 12*60)}

	// Half-open window: start is inside, end is not.
	assert.True(t, WindowCovers(windows, 9*60))
	assert.True(t, WindowCovers(windows, 11*60+59))
	assert.False(t, WindowCovers(windows, 12*60))
	assert.False(t, WindowCovers(windows, 8*60+59))
}

func TestWindowCoversMultipleWindows(t *testing.T) {
	windows := []AvailabilitySlot{
		window(9*60, 12*60),
		window(13*60, 17*60),
	}

	assert.True(t, WindowCovers(windows, 14*60))
	assert.False(t, WindowCovers(windows, 12*60+30))
}

func TestWindowCoversIgnoresClosedWindows(t *testing.T) {
	closed := window(9*60, 12*60)
	closed.IsAvailable = false

	assert.False(t, WindowCovers([]AvailabilitySlot{closed}, 10*60))
	assert.False(t, WindowCovers(nil, 10*60))
}

func TestIsBookable(t *testing.T) {
	windows := []AvailabilitySlot{window(9*60, 12*60)}

	assert.True(t, IsBookable(windows, 10*60, nil))
	assert.False(t, IsBookable(windows, 10*60, &Booking{Status: StatusBooked}))
	assert.False(t, IsBookable(windows, 12*60, nil))
	assert.False(t, IsBookable(nil, 10*60, nil))
}
