package timer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tokenclock/clock"
)

func TestTierTable(t *testing.T) {
	tests := []struct {
		tier     Tier
		name     string
		interval time.Duration
		aligned  bool
	}{
		{Immediate, "immediate", time.Millisecond, false},
		{Lazy, "lazy", time.Second, true},
		{Late, "late", time.Minute, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.tier.Valid())
			assert.Equal(t, tt.name, tt.tier.GroupName())
			assert.Equal(t, tt.interval, tt.tier.Interval())
			assert.Equal(t, tt.aligned, len(tt.tier.Options()) > 0)
		})
	}

	bogus := Tier(7)
	assert.False(t, bogus.Valid())
	assert.Equal(t, "Tier(7)", bogus.String())
	assert.Zero(t, bogus.Interval())
	assert.Nil(t, bogus.Options())
}

func TestLateTierAlignsToMinute(t *testing.T) {
	s, fake, _ := newTestScheduler(t)
	require.NoError(t, StartTiers(s))

	var fired []time.Time
	s.AddGroupFunction(Late.GroupName(), func(now time.Time) { fired = append(fired, now) })

	// 09:30:17.500 + 42.499s is still before the boundary.
	fake.Advance(42*time.Second + 499*time.Millisecond)
	drain(s)
	assert.Empty(t, fired)

	fake.Advance(time.Millisecond)
	drain(s)
	require.Len(t, fired, 1)
	assert.True(t, fired[0].Equal(time.Date(2026, 3, 14, 9, 31, 0, 0, time.UTC)), "first tick at %v", fired[0])

	fake.Advance(time.Minute)
	drain(s)
	require.Len(t, fired, 2)
	assert.True(t, fired[1].Equal(time.Date(2026, 3, 14, 9, 32, 0, 0, time.UTC)))
}

func TestLazyTierAlignsToSecond(t *testing.T) {
	s, fake, _ := newTestScheduler(t)
	require.NoError(t, StartTiers(s))

	var fired []time.Time
	s.AddGroupFunction(Lazy.GroupName(), func(now time.Time) { fired = append(fired, now) })

	fake.Advance(500 * time.Millisecond)
	drain(s)
	fake.Advance(time.Second)
	drain(s)
	require.Len(t, fired, 2)
	assert.True(t, fired[0].Equal(time.Date(2026, 3, 14, 9, 30, 18, 0, time.UTC)))
	assert.True(t, fired[1].Equal(time.Date(2026, 3, 14, 9, 30, 19, 0, time.UTC)))
}

func TestStartTiersTwiceFails(t *testing.T) {
	s, fake, _ := newTestScheduler(t)
	require.NoError(t, StartTiers(s))
	assert.Equal(t, 3, fake.Pending())
	assert.Error(t, StartTiers(s))
	assert.Equal(t, []string{"immediate", "late", "lazy"}, s.Groups())
}

// stuckClock hands out timers whose Stop cannot cancel the callback, the way
// a real timer behaves once its callback has already been scheduled.
type stuckClock struct{ *clock.Fake }

type stuckTimer struct{}

func (stuckTimer) Stop() bool { return false }

func (c stuckClock) AfterFunc(d time.Duration, f func()) clock.Timer {
	c.Fake.AfterFunc(d, f)
	return stuckTimer{}
}

func TestRemovedGroupIsNotArmedByPendingAlignment(t *testing.T) {
	fake := clock.NewFake(epoch)
	s := New(stuckClock{fake}, zap.NewNop())
	defer s.Close()

	start := s.AddTimerGroup(Late.GroupName(), Late.Interval(), Late.Options()...)
	calls := 0
	s.AddGroupFunction(Late.GroupName(), func(time.Time) { calls++ })
	start()
	require.Equal(t, 1, fake.Pending())

	s.RemoveTimerGroup(Late.GroupName())
	fake.Advance(5 * time.Minute)

	assert.Equal(t, 0, fake.Pending(), "deferral must not arm a repeating timer")
	assert.Empty(t, drain(s))
	assert.Equal(t, 0, calls)
}

func TestRemovedGroupDeferralDoesNotHijackNewGroup(t *testing.T) {
	fake := clock.NewFake(epoch)
	s := New(stuckClock{fake}, zap.NewNop())
	defer s.Close()

	s.AddTimerGroup("g", time.Minute, AlignEvery(time.Minute))()
	s.RemoveTimerGroup("g")

	// Same name, not started: the stale deferral must not start it.
	s.AddTimerGroup("g", time.Second)
	calls := 0
	s.AddGroupFunction("g", func(time.Time) { calls++ })

	fake.Advance(2 * time.Minute)
	drain(s)
	assert.Equal(t, 0, calls)
	assert.Equal(t, 0, fake.Pending())
}
