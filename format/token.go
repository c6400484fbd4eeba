// Package format owns the ordered format tokens of the date and time axes
// and compiles them into the format string shown on the bar.
package format

import "fmt"

// Axis is one format pipeline. Both axes use the same logic and are
// configured independently.
type Axis string

const (
	DateAxis Axis = "date"
	TimeAxis Axis = "time"
)

func (a Axis) Valid() bool { return a == DateAxis || a == TimeAxis }

// Kind is the symbolic code of a content token. Plain kinds are format
// directives as they appear in the compiled string; dynamic kinds are
// placeholders resolved against the clock convention.
type Kind string

const (
	YearFull     Kind = "YYYY"
	YearShort    Kind = "YY"
	MonthName    Kind = "MMMM"
	MonthShort   Kind = "MMM"
	MonthPadded  Kind = "MM"
	Month        Kind = "M"
	DayPadded    Kind = "DD"
	Day          Kind = "D"
	WeekdayName  Kind = "dddd"
	WeekdayShort Kind = "ddd"

	HourPadded    Kind = "HOUR_PADDED"
	HourUnpadded  Kind = "HOUR_UNPADDED"
	MinutePadded  Kind = "mm"
	Minute        Kind = "m"
	SecondPadded  Kind = "ss"
	Second        Kind = "s"
	Millisecond   Kind = "SSS"
	Meridiem      Kind = "A"
	MeridiemLower Kind = "a"
)

type kindInfo struct {
	axis        Axis
	dynamic     bool
	meridiem    bool
	description string
}

var kinds = map[Kind]kindInfo{
	YearFull:     {axis: DateAxis, description: "four-digit year"},
	YearShort:    {axis: DateAxis, description: "two-digit year"},
	MonthName:    {axis: DateAxis, description: "full month name"},
	MonthShort:   {axis: DateAxis, description: "abbreviated month name"},
	MonthPadded:  {axis: DateAxis, description: "month, 01-12"},
	Month:        {axis: DateAxis, description: "month, 1-12"},
	DayPadded:    {axis: DateAxis, description: "day of month, 01-31"},
	Day:          {axis: DateAxis, description: "day of month, 1-31"},
	WeekdayName:  {axis: DateAxis, description: "full weekday name"},
	WeekdayShort: {axis: DateAxis, description: "abbreviated weekday name"},

	HourPadded:    {axis: TimeAxis, dynamic: true, description: "hour, zero padded"},
	HourUnpadded:  {axis: TimeAxis, dynamic: true, description: "hour, no padding"},
	MinutePadded:  {axis: TimeAxis, description: "minute, 00-59"},
	Minute:        {axis: TimeAxis, description: "minute, 0-59"},
	SecondPadded:  {axis: TimeAxis, description: "second, 00-59"},
	Second:        {axis: TimeAxis, description: "second, 0-59"},
	Millisecond:   {axis: TimeAxis, description: "millisecond, 000-999"},
	Meridiem:      {axis: TimeAxis, meridiem: true, description: "AM/PM"},
	MeridiemLower: {axis: TimeAxis, meridiem: true, description: "am/pm"},
}

// catalog order of each axis; the inactive rail of a fresh axis follows it.
var catalog = map[Axis][]Kind{
	DateAxis: {WeekdayName, WeekdayShort, MonthName, MonthShort, MonthPadded, Month, DayPadded, Day, YearFull, YearShort},
	TimeAxis: {HourPadded, HourUnpadded, MinutePadded, Minute, SecondPadded, Second, Millisecond, Meridiem, MeridiemLower},
}

func init() {
	for axis, list := range catalog {
		for _, k := range list {
			if info, ok := kinds[k]; !ok || info.axis != axis {
				panic(fmt.Sprintf("format: catalog kind %q misfiled under %s", k, axis))
			}
			if _, err := TierOf(k); err != nil {
				panic(err)
			}
		}
	}
}

func (k Kind) Valid() bool {
	_, ok := kinds[k]
	return ok
}

func (k Kind) Axis() Axis { return kinds[k].axis }

// Dynamic reports whether the directive depends on the clock convention.
func (k Kind) Dynamic() bool { return kinds[k].dynamic }

// Meridiem reports whether the kind only applies to the 12-hour convention.
func (k Kind) Meridiem() bool { return kinds[k].meridiem }

func (k Kind) Description() string { return kinds[k].description }

// Kinds returns the kinds of an axis in catalog order.
func Kinds(axis Axis) []Kind {
	return append([]Kind(nil), catalog[axis]...)
}

// FormatToken is one slot on a rail: either a delimiter or a content token.
type FormatToken struct {
	Index       int    `yaml:"index"`
	Token       Kind   `yaml:"token,omitempty"`
	Dynamic     bool   `yaml:"dynamic,omitempty"`
	Delimiter   bool   `yaml:"delimiter,omitempty"`
	Disabled    bool   `yaml:"disabled,omitempty"`
	Description string `yaml:"description,omitempty"`
}

// NewToken returns the content token for k at index.
func NewToken(index int, k Kind) FormatToken {
	return FormatToken{
		Index:       index,
		Token:       k,
		Dynamic:     k.Dynamic(),
		Description: k.Description(),
	}
}

// NewDelimiter returns an empty delimiter slot at index.
func NewDelimiter(index int) FormatToken {
	return FormatToken{Index: index, Delimiter: true, Description: "delimiter"}
}

// Validate checks the token against its contract on axis.
func (t FormatToken) Validate(axis Axis) error {
	if t.Delimiter {
		if t.Token != "" || t.Dynamic {
			return fmt.Errorf("%w: delimiter %d carries token %q", ErrMalformedToken, t.Index, t.Token)
		}
		return nil
	}
	if t.Token == "" {
		return fmt.Errorf("%w: token %d is neither delimiter nor content", ErrMalformedToken, t.Index)
	}
	if !t.Token.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownToken, t.Token)
	}
	if t.Token.Axis() != axis {
		return fmt.Errorf("%w: %q belongs to the %s axis", ErrMalformedToken, t.Token, t.Token.Axis())
	}
	if t.Dynamic != t.Token.Dynamic() {
		return fmt.Errorf("%w: token %d dynamic flag %t does not match %q", ErrMalformedToken, t.Index, t.Dynamic, t.Token)
	}
	return nil
}

// Convention is the clock display mode.
type Convention string

const (
	Hour12 Convention = "12h"
	Hour24 Convention = "24h"
)

func (c Convention) Valid() bool { return c == Hour12 || c == Hour24 }

// Toggle returns the other convention.
func (c Convention) Toggle() Convention {
	if c == Hour12 {
		return Hour24
	}
	return Hour12
}

// DelimiterStyle selects the glyph every delimiter slot of an axis renders as.
type DelimiterStyle string

const (
	Comma DelimiterStyle = "comma"
	Colon DelimiterStyle = "colon"
	Slash DelimiterStyle = "slash"
	Space DelimiterStyle = "space"
	Dash  DelimiterStyle = "dash"
	Dot   DelimiterStyle = "dot"
)

var delimiterStyles = []DelimiterStyle{Comma, Colon, Slash, Space, Dash, Dot}

var glyphs = map[DelimiterStyle]string{
	Comma: ",",
	Colon: ":",
	Slash: "/",
	Space: " ",
	Dash:  "-",
	Dot:   ".",
}

// DelimiterStyles lists the styles in cycling order.
func DelimiterStyles() []DelimiterStyle {
	return append([]DelimiterStyle(nil), delimiterStyles...)
}

func (s DelimiterStyle) Valid() bool {
	_, ok := glyphs[s]
	return ok
}

// Glyph returns the separator text of the style.
func (s DelimiterStyle) Glyph() (string, bool) {
	g, ok := glyphs[s]
	return g, ok
}

// Next returns the style after s, wrapping around.
func (s DelimiterStyle) Next() DelimiterStyle {
	for i, cur := range delimiterStyles {
		if cur == s {
			return delimiterStyles[(i+1)%len(delimiterStyles)]
		}
	}
	return delimiterStyles[0]
}

// Rail names one of the two token lists of an axis.
type Rail int

const (
	Active Rail = iota
	Inactive
)

func (r Rail) String() string {
	if r == Active {
		return "active"
	}
	return "inactive"
}
