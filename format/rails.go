package format

import (
	"fmt"
	"slices"
)

// DelimiterSlot marks a delimiter in a list of active kinds.
const DelimiterSlot = "|"

// NewRails builds the token universe of an axis. active lists kinds and
// DelimiterSlot entries in display order; every catalog kind not named
// there lands on the inactive rail, followed by spare delimiter slots.
// Indexes are assigned in that order starting at zero.
func NewRails(axis Axis, active []string, spare int) (act, inact []FormatToken, err error) {
	if !axis.Valid() {
		return nil, nil, fmt.Errorf("%w: axis %q", ErrInvalidSetting, axis)
	}
	index := 0
	used := make(map[Kind]bool)
	for _, name := range active {
		if name == DelimiterSlot {
			act = append(act, NewDelimiter(index))
			index++
			continue
		}
		k := Kind(name)
		tok := NewToken(index, k)
		if err := tok.Validate(axis); err != nil {
			return nil, nil, err
		}
		if used[k] {
			return nil, nil, fmt.Errorf("%w: %q", ErrDuplicateToken, k)
		}
		used[k] = true
		act = append(act, tok)
		index++
	}
	for _, k := range catalog[axis] {
		if used[k] {
			continue
		}
		inact = append(inact, NewToken(index, k))
		index++
	}
	for range max(spare, 0) {
		inact = append(inact, NewDelimiter(index))
		index++
	}
	return act, inact, nil
}

// Limits bounds how many delimiters an axis may hold.
type Limits struct {
	MaxOverall  int // delimiters across both rails
	MaxInactive int // delimiters parked on the inactive rail
}

var DefaultLimits = Limits{MaxOverall: 10, MaxInactive: 3}

func countDelimiters(rail []FormatToken) int {
	n := 0
	for _, tok := range rail {
		if tok.Delimiter {
			n++
		}
	}
	return n
}

// validateRails checks the universe invariants of an axis.
func validateRails(axis Axis, active, inactive []FormatToken, lim Limits) error {
	seenIndex := make(map[int]bool)
	seenKind := make(map[Kind]bool)
	for _, rail := range [][]FormatToken{active, inactive} {
		for _, tok := range rail {
			if err := tok.Validate(axis); err != nil {
				return err
			}
			if seenIndex[tok.Index] {
				return fmt.Errorf("%w: index %d", ErrDuplicateToken, tok.Index)
			}
			seenIndex[tok.Index] = true
			if tok.Delimiter {
				continue
			}
			if seenKind[tok.Token] {
				return fmt.Errorf("%w: %q", ErrDuplicateToken, tok.Token)
			}
			seenKind[tok.Token] = true
		}
	}
	if n := countDelimiters(inactive); n > lim.MaxInactive {
		return fmt.Errorf("%w: %d inactive delimiters, at most %d", ErrDelimiterLimit, n, lim.MaxInactive)
	}
	if n := countDelimiters(active) + countDelimiters(inactive); n > lim.MaxOverall {
		return fmt.Errorf("%w: %d delimiters, at most %d", ErrDelimiterLimit, n, lim.MaxOverall)
	}
	return nil
}

// newestDelimiter returns the position of the delimiter with the highest
// index on rail, or -1.
func newestDelimiter(rail []FormatToken) int {
	pos := -1
	for i, tok := range rail {
		if tok.Delimiter && (pos < 0 || tok.Index > rail[pos].Index) {
			pos = i
		}
	}
	return pos
}

func maxIndex(rails ...[]FormatToken) int {
	m := -1
	for _, rail := range rails {
		for _, tok := range rail {
			m = max(m, tok.Index)
		}
	}
	return m
}

func findIndex(rail []FormatToken, index int) int {
	return slices.IndexFunc(rail, func(tok FormatToken) bool { return tok.Index == index })
}
