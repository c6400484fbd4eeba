package format

import (
	"fmt"

	"tokenclock/timer"
)

// TierOf returns the update tier of a token kind: the cadence of the finest
// unit the kind displays.
func TierOf(k Kind) (timer.Tier, error) {
	switch k {
	case Millisecond:
		return timer.Immediate, nil
	case SecondPadded, Second:
		return timer.Lazy, nil
	case HourPadded, HourUnpadded, MinutePadded, Minute, Meridiem, MeridiemLower,
		YearFull, YearShort, MonthName, MonthShort, MonthPadded, Month,
		DayPadded, Day, WeekdayName, WeekdayShort:
		return timer.Late, nil
	}
	return 0, fmt.Errorf("%w: %q has no update tier", ErrUnknownToken, k)
}
