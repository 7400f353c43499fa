package givmodbus

import (
	"fmt"
	"strconv"
)

// TimeOfDay is a wall-clock minute-of-day value, independent of any date.
type TimeOfDay struct {
	Hour   int
	Minute int
}

func (t TimeOfDay) minutes() int { return t.Hour*60 + t.Minute }

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// hhmm renders the value the device expects: hour*100+minute.
func (t TimeOfDay) hhmm() uint16 {
	return uint16(t.Hour*100 + t.Minute)
}

func timeOfDayFromHHMM(v uint16) (TimeOfDay, error) {
	hour := int(v / 100)
	minute := int(v % 100)
	if hour > 23 || minute > 59 {
		return TimeOfDay{}, fmt.Errorf("%w: %04d is not a valid HHMM time", ErrInvalidParameter, v)
	}
	return TimeOfDay{Hour: hour, Minute: minute}, nil
}

// ParseHHMM parses either an int (e.g. 130 for 01:30) or a numeric string
// ("0130") in the device's HHMM convention.
func ParseHHMM(v interface{}) (TimeOfDay, error) {
	switch x := v.(type) {
	case int:
		return timeOfDayFromHHMM(uint16(x))
	case uint16:
		return timeOfDayFromHHMM(x)
	case string:
		n, err := strconv.Atoi(x)
		if err != nil {
			return TimeOfDay{}, fmt.Errorf("%w: %q is not numeric", ErrInvalidParameter, x)
		}
		return timeOfDayFromHHMM(uint16(n))
	default:
		return TimeOfDay{}, ErrInvalidParameter
	}
}

// TimeSlot is a start/end pair of times of day, used for charge/discharge
// scheduling. End may be numerically before Start, meaning the slot wraps
// past midnight (e.g. 23:30-05:30).
type TimeSlot struct {
	Start TimeOfDay
	End   TimeOfDay
}

// NewTimeSlot builds a TimeSlot from two HHMM-style values (int or string).
func NewTimeSlot(start, end interface{}) (TimeSlot, error) {
	s, err := ParseHHMM(start)
	if err != nil {
		return TimeSlot{}, err
	}
	e, err := ParseHHMM(end)
	if err != nil {
		return TimeSlot{}, err
	}
	return TimeSlot{Start: s, End: e}, nil
}

func (t TimeSlot) String() string {
	return fmt.Sprintf("%s-%s", t.Start, t.End)
}

// wraps reports whether the slot's end is numerically before its start,
// meaning it spans midnight.
func (t TimeSlot) wraps() bool { return t.End.minutes() < t.Start.minutes() }

// Contains reports whether the given time of day falls within the slot,
// inclusive of Start and exclusive of End. Wraparound slots (End before
// Start, e.g. 23:30-05:30) are handled by splitting the day at midnight:
// a wraparound slot contains every time from Start through 23:59 and every
// time from 00:00 up to (not including) End.
//
// This predicate is not present in the upstream client this system is
// grounded on; it is designed fresh here, following the same
// inclusive-start/exclusive-end convention the device's own slot
// semantics imply (a slot ending at HHMM does not itself run at HHMM).
func (t TimeSlot) Contains(tod TimeOfDay) bool {
	m := tod.minutes()
	if !t.wraps() {
		return m >= t.Start.minutes() && m < t.End.minutes()
	}
	return m >= t.Start.minutes() || m < t.End.minutes()
}

// DateTime is the six-word (year, month, day, hour, minute, second)
// timestamp tuple read back from HR(35)-HR(40).
type DateTime struct {
	Year, Month, Day, Hour, Minute, Second int
}

func (d DateTime) String() string {
	return fmt.Sprintf("%04d-%02d-%02d %02d:%02d:%02d", d.Year, d.Month, d.Day, d.Hour, d.Minute, d.Second)
}
