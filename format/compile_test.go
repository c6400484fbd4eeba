package format

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func timeRail(kinds ...string) []FormatToken {
	var rail []FormatToken
	for i, k := range kinds {
		if k == DelimiterSlot {
			rail = append(rail, NewDelimiter(i))
			continue
		}
		rail = append(rail, NewToken(i, Kind(k)))
	}
	return rail
}

func TestCompileExampleRail(t *testing.T) {
	rail := timeRail("HOUR_PADDED", "|", "mm", "|", "ss")
	assert.Equal(t, "HH:mm:ss", CompileFormatString(rail, Hour24, Colon))
	assert.Equal(t, "hh:mm:ss", CompileFormatString(rail, Hour12, Colon))
}

func TestCompileFormatString(t *testing.T) {
	disabledMeridiem := NewToken(1, Meridiem)
	disabledMeridiem.Disabled = true

	tests := []struct {
		name  string
		rail  []FormatToken
		conv  Convention
		style DelimiterStyle
		want  string
	}{
		{"empty", nil, Hour24, Colon, ""},
		{"adjacent tokens get a space", timeRail("HOUR_UNPADDED", "mm"), Hour24, Colon, "H mm"},
		{"delimiter suppresses the space", timeRail("HOUR_UNPADDED", "|", "mm"), Hour12, Dot, "h.mm"},
		{"space style", timeRail("mm", "|", "ss"), Hour24, Space, "mm ss"},
		{"leading and trailing delimiters", timeRail("|", "ss", "|"), Hour24, Dash, "-ss-"},
		{"meridiem enabled", timeRail("HOUR_PADDED", "|", "mm", "A"), Hour12, Colon, "hh:mm A"},
		{
			// The next raw entry decides the space even when it is suppressed.
			name:  "space before suppressed token is kept",
			rail:  []FormatToken{NewToken(0, SecondPadded), disabledMeridiem},
			conv:  Hour24,
			style: Colon,
			want:  "ss ",
		},
		{
			name:  "suppressed token adds no space itself",
			rail:  []FormatToken{disabledMeridiem, NewToken(2, SecondPadded)},
			conv:  Hour24,
			style: Colon,
			want:  "ss",
		},
		{"date axis", []FormatToken{NewToken(0, WeekdayShort), NewToken(1, DayPadded), NewDelimiter(2), NewToken(3, MonthShort)}, Hour24, Slash, "ddd DD/MMM"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CompileFormatString(tt.rail, tt.conv, tt.style))
		})
	}
}

func TestCompileIsDeterministic(t *testing.T) {
	rail := timeRail("HOUR_PADDED", "|", "mm", "|", "ss", "A")
	first := CompileFormatString(rail, Hour12, Colon)
	CompileFormatString(rail, Hour24, Dash)
	CompileFormatString(timeRail("ss"), Hour12, Dot)
	assert.Equal(t, first, CompileFormatString(rail, Hour12, Colon))
}

func TestResolveDynamicToken(t *testing.T) {
	tests := []struct {
		kind Kind
		conv Convention
		want string
		ok   bool
	}{
		{HourUnpadded, Hour12, "h", true},
		{HourUnpadded, Hour24, "H", true},
		{HourPadded, Hour12, "hh", true},
		{HourPadded, Hour24, "HH", true},
		{HourPadded, Convention("36h"), "", false},
		{MinutePadded, Hour24, "", false},
	}
	for _, tt := range tests {
		got, ok := ResolveDynamicToken(tt.kind, tt.conv)
		assert.Equal(t, tt.ok, ok, "%s/%s", tt.kind, tt.conv)
		assert.Equal(t, tt.want, got, "%s/%s", tt.kind, tt.conv)
	}
}

func TestLiteralSuppressesDisabled(t *testing.T) {
	tok := NewToken(0, Meridiem)
	lit, ok := Literal(tok, Hour12)
	require.True(t, ok)
	assert.Equal(t, "A", lit)

	tok.Disabled = true
	_, ok = Literal(tok, Hour12)
	assert.False(t, ok)

	_, ok = Literal(NewDelimiter(1), Hour12)
	assert.False(t, ok)
}

func TestRender(t *testing.T) {
	// Wednesday
	at := time.Date(2026, 3, 4, 21, 5, 7, 42*int(time.Millisecond), time.UTC)
	tests := map[string]string{
		"YYYY": "2026",
		"YY":   "26",
		"MMMM": "March",
		"MMM":  "Mar",
		"MM":   "03",
		"M":    "3",
		"DD":   "04",
		"D":    "4",
		"dddd": "Wednesday",
		"ddd":  "Wed",
		"HH":   "21",
		"H":    "21",
		"hh":   "09",
		"h":    "9",
		"mm":   "05",
		"m":    "5",
		"ss":   "07",
		"s":    "7",
		"SSS":  "042",
		"A":    "PM",
		"a":    "pm",
		"?":    "?",
	}
	for directive, want := range tests {
		assert.Equal(t, want, Render(directive, at), directive)
	}

	morning := time.Date(2026, 3, 4, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, "9", Render("H", morning))
	assert.Equal(t, "09", Render("HH", morning))
	assert.Equal(t, "AM", Render("A", morning))
}

func TestRenderRail(t *testing.T) {
	at := time.Date(2026, 3, 4, 21, 5, 7, 0, time.UTC)
	rail := timeRail("HOUR_PADDED", "|", "mm", "|", "ss")
	assert.Equal(t, "21:05:07", RenderRail(rail, Hour24, Colon, at))

	rail = timeRail("HOUR_UNPADDED", "|", "mm", "A")
	assert.Equal(t, "9:05 PM", RenderRail(rail, Hour12, Colon, at))
}
