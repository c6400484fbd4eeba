package format

import (
	"fmt"
	"strconv"
	"time"
)

// layouts maps directives onto Go reference-time layouts.
var layouts = map[string]string{
	"YYYY": "2006",
	"YY":   "06",
	"MMMM": "January",
	"MMM":  "Jan",
	"MM":   "01",
	"M":    "1",
	"DD":   "02",
	"D":    "2",
	"dddd": "Monday",
	"ddd":  "Mon",
	"HH":   "15",
	"hh":   "03",
	"h":    "3",
	"mm":   "04",
	"m":    "4",
	"ss":   "05",
	"s":    "5",
	"A":    "PM",
	"a":    "pm",
}

// Render formats t with one directive. Unknown directives render as
// themselves.
func Render(directive string, t time.Time) string {
	switch directive {
	case "H":
		// Go layouts have no unpadded 24-hour form.
		return strconv.Itoa(t.Hour())
	case "SSS":
		return fmt.Sprintf("%03d", t.Nanosecond()/int(time.Millisecond))
	}
	if layout, ok := layouts[directive]; ok {
		return t.Format(layout)
	}
	return directive
}

// RenderRail renders a whole active rail at t, using the same layout rules
// as CompileFormatString.
func RenderRail(active []FormatToken, c Convention, style DelimiterStyle, t time.Time) string {
	return walk(active, c, style, func(_ FormatToken, literal string) string {
		return Render(literal, t)
	})
}
