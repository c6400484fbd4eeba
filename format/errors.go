package format

import "errors"

var (
	ErrMalformedToken = errors.New("malformed format token")
	ErrUnknownToken   = errors.New("unknown format token")
	ErrDuplicateToken = errors.New("duplicate format token")
	ErrUnknownIndex   = errors.New("no format token with that index")
	ErrDelimiterLimit = errors.New("delimiter limit reached")
	ErrNoDelimiter    = errors.New("no delimiter to remove")
	ErrInvalidSetting = errors.New("invalid format setting")
)
