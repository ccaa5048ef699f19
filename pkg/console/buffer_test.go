package console_test

import (
	"testing"
	"time"

	"github.com/aretw0/tether/internal/testutils"
	"github.com/aretw0/tether/pkg/console"
	"github.com/stretchr/testify/assert"
)

func TestBuffer_DebouncedClear(t *testing.T) {
	clock := testutils.NewFakeScheduler()
	b := console.New(console.WithScheduler(clock), console.WithDelay(2000*time.Millisecond))

	b.Extend("one ")
	clock.Advance(40 * time.Millisecond)
	b.Extend("two ")
	clock.Advance(40 * time.Millisecond)
	b.Extend("three")

	clock.Advance(1820 * time.Millisecond)
	assert.Equal(t, 1900*time.Millisecond, clock.Now())
	assert.Equal(t, "one two three", b.Text())
	assert.Equal(t, 1, clock.Pending(), "a single pending clear")

	clock.Advance(200 * time.Millisecond)
	assert.Equal(t, 2100*time.Millisecond, clock.Now())
	assert.Empty(t, b.Text())
	assert.False(t, b.Pending())
}

func TestBuffer_BurstWithinWindow(t *testing.T) {
	clock := testutils.NewFakeScheduler()
	b := console.New(console.WithScheduler(clock))

	b.Extend("a")
	clock.Advance(30 * time.Millisecond)
	b.Extend("b")
	clock.Advance(30 * time.Millisecond)
	b.Extend("c")

	// The delay runs from the last append.
	clock.Advance(1990 * time.Millisecond)
	assert.Equal(t, "abc", b.Text())

	clock.Advance(20 * time.Millisecond)
	assert.Empty(t, b.Text())
}

func TestBuffer_ClearAndClose(t *testing.T) {
	clock := testutils.NewFakeScheduler()
	var changes []string
	b := console.New(console.WithScheduler(clock), console.WithOnChange(func(s string) {
		changes = append(changes, s)
	}))

	b.Extend("hello")
	b.Clear()
	assert.Empty(t, b.Text())
	assert.Zero(t, clock.Pending())

	b.Extend("again")
	b.Close()
	assert.Zero(t, clock.Pending(), "close abandons the timer")
	b.Extend("ignored")
	clock.Advance(5 * time.Second)
	assert.Equal(t, "again", b.Text())

	assert.Equal(t, []string{"hello", "", "again"}, changes)
}

func TestBuffer_NoAutoClear(t *testing.T) {
	clock := testutils.NewFakeScheduler()
	b := console.New(console.WithScheduler(clock), console.WithDelay(0))

	b.Extend("sticky")
	clock.Advance(time.Hour)
	assert.Equal(t, "sticky", b.Text())
}
