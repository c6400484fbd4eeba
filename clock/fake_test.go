package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2026, 1, 1, 9, 30, 17, 500*int(time.Millisecond), time.UTC)

func TestFakeNowMovesOnlyOnAdvance(t *testing.T) {
	c := NewFake(epoch)
	assert.True(t, c.Now().Equal(epoch))

	c.Advance(5 * time.Second)
	assert.True(t, c.Now().Equal(epoch.Add(5*time.Second)))
}

func TestFakeAfterFuncFiresAtDeadline(t *testing.T) {
	c := NewFake(epoch)
	var firedAt time.Time
	c.AfterFunc(2*time.Second, func() { firedAt = c.Now() })

	c.Advance(time.Second)
	assert.True(t, firedAt.IsZero(), "fired before deadline")
	assert.Equal(t, 1, c.Pending())

	c.Advance(3 * time.Second)
	require.False(t, firedAt.IsZero())
	assert.True(t, firedAt.Equal(epoch.Add(2*time.Second)), "callback saw %v", firedAt)
	assert.True(t, c.Now().Equal(epoch.Add(4*time.Second)))
	assert.Equal(t, 0, c.Pending())
}

func TestFakeAfterFuncNonPositiveRunsImmediately(t *testing.T) {
	c := NewFake(epoch)
	fired := false
	tm := c.AfterFunc(0, func() { fired = true })
	assert.True(t, fired)
	assert.False(t, tm.Stop())
}

func TestFakeStop(t *testing.T) {
	c := NewFake(epoch)
	fired := false
	tm := c.AfterFunc(time.Second, func() { fired = true })

	assert.True(t, tm.Stop())
	assert.False(t, tm.Stop())
	c.Advance(time.Minute)
	assert.False(t, fired)
}

func TestFakeFiresInDeadlineOrder(t *testing.T) {
	c := NewFake(epoch)
	var order []int
	c.AfterFunc(3*time.Second, func() { order = append(order, 3) })
	c.AfterFunc(1*time.Second, func() { order = append(order, 1) })
	c.AfterFunc(2*time.Second, func() { order = append(order, 2) })
	c.AfterFunc(2*time.Second, func() { order = append(order, 22) })

	c.Advance(10 * time.Second)
	assert.Equal(t, []int{1, 2, 22, 3}, order)
}

func TestFakeRearmWithinOneAdvance(t *testing.T) {
	c := NewFake(epoch)
	var ticks []time.Time
	var arm func()
	arm = func() {
		c.AfterFunc(time.Second, func() {
			ticks = append(ticks, c.Now())
			arm()
		})
	}
	arm()

	c.Advance(3500 * time.Millisecond)
	require.Len(t, ticks, 3)
	for i, tick := range ticks {
		assert.True(t, tick.Equal(epoch.Add(time.Duration(i+1)*time.Second)))
	}
	assert.Equal(t, 1, c.Pending())
}

func TestFakeSet(t *testing.T) {
	c := NewFake(epoch)
	fired := false
	c.AfterFunc(time.Minute, func() { fired = true })

	c.Set(epoch.Add(-time.Hour))
	assert.False(t, fired)
	assert.True(t, c.Now().Equal(epoch.Add(-time.Hour)))

	c.Set(epoch.Add(2 * time.Minute))
	assert.True(t, fired)
	assert.True(t, c.Now().Equal(epoch.Add(2*time.Minute)))
}
