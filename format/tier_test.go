package format

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tokenclock/timer"
)

func TestTierOf(t *testing.T) {
	tests := []struct {
		kind Kind
		want timer.Tier
	}{
		{Millisecond, timer.Immediate},
		{SecondPadded, timer.Lazy},
		{Second, timer.Lazy},
		{MinutePadded, timer.Late},
		{HourUnpadded, timer.Late},
		{Meridiem, timer.Late},
		{WeekdayName, timer.Late},
		{YearFull, timer.Late},
	}
	for _, tt := range tests {
		got, err := TierOf(tt.kind)
		require.NoError(t, err, tt.kind)
		assert.Equal(t, tt.want, got, tt.kind)
	}

	_, err := TierOf(Kind("QQ"))
	assert.ErrorIs(t, err, ErrUnknownToken)
}

func TestEveryCatalogKindHasATier(t *testing.T) {
	for _, axis := range []Axis{DateAxis, TimeAxis} {
		for _, k := range Kinds(axis) {
			_, err := TierOf(k)
			assert.NoError(t, err, "%s/%s", axis, k)
			assert.Equal(t, axis, k.Axis())
			assert.NotEmpty(t, k.Description())
		}
	}
}
