// Package theme holds the color policy: only abnormal states are colored.
// Normal blocks omit the Color field so the bar theme handles appearance.
package theme

type Palette struct {
	Stale  string // showing the last good text instead of live values
	Danger string
}

var DefaultPalette = Palette{
	Stale:  "#ebcb8b", // yellow
	Danger: "#bf616a", // red
}

// Current holds the active palette.
var Current = DefaultPalette

// Severity is how a block's current text should be read.
type Severity int

const (
	SeverityNormal Severity = iota // live text, bar default color
	SeverityStale
	SeverityDanger
)

// ColorFor returns the hex color and true if severity maps to a color.
func ColorFor(sev Severity) (string, bool) {
	switch sev {
	case SeverityStale:
		return Current.Stale, true
	case SeverityDanger:
		return Current.Danger, true
	default:
		return "", false
	}
}
