package format

import "strings"

// ResolveDynamicToken maps a convention-dependent kind to its directive.
// ok is false for kinds that are not dynamic.
func ResolveDynamicToken(k Kind, c Convention) (string, bool) {
	switch k {
	case HourUnpadded:
		switch c {
		case Hour12:
			return "h", true
		case Hour24:
			return "H", true
		}
	case HourPadded:
		switch c {
		case Hour12:
			return "hh", true
		case Hour24:
			return "HH", true
		}
	}
	return "", false
}

// Literal returns the directive tok contributes under c. ok is false when
// the token contributes nothing: delimiters, disabled tokens and dynamic
// kinds that do not resolve.
func Literal(tok FormatToken, c Convention) (string, bool) {
	switch {
	case tok.Delimiter, tok.Disabled, tok.Token == "":
		return "", false
	case tok.Dynamic:
		return ResolveDynamicToken(tok.Token, c)
	}
	return string(tok.Token), true
}

// CompileFormatString concatenates the active rail left to right. Each
// delimiter emits the style glyph. Each visible content token emits its
// directive, followed by a space when the next rail entry exists and is not
// a delimiter. The check looks at the raw next entry, so a visible token
// followed only by a suppressed one still gets the space.
func CompileFormatString(active []FormatToken, c Convention, style DelimiterStyle) string {
	return walk(active, c, style, func(_ FormatToken, literal string) string {
		return literal
	})
}

// walk drives CompileFormatString and rendering alike; value turns a visible
// content token into its output.
func walk(active []FormatToken, c Convention, style DelimiterStyle, value func(FormatToken, string) string) string {
	glyph, _ := style.Glyph()
	var b strings.Builder
	for i, tok := range active {
		if tok.Delimiter {
			b.WriteString(glyph)
			continue
		}
		literal, ok := Literal(tok, c)
		if !ok {
			continue
		}
		b.WriteString(value(tok, literal))
		if i+1 < len(active) && !active[i+1].Delimiter {
			b.WriteByte(' ')
		}
	}
	return b.String()
}
