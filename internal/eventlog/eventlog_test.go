package eventlog

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLog_RecentNewestFirst(t *testing.T) {
	l := New(5)
	l.Append("a")
	l.Append("b")
	l.Appendf("room %s", "c")

	got := l.Recent()
	require.Len(t, got, 3)
	assert.Equal(t, "room c", got[0].Message)
	assert.Equal(t, "b", got[1].Message)
	assert.Equal(t, "a", got[2].Message)
}

func TestLog_EvictsOldest(t *testing.T) {
	l := New(DefaultCapacity)
	for i := 0; i < DefaultCapacity+7; i++ {
		l.Append(fmt.Sprintf("e%d", i))
	}

	got := l.Recent()
	require.Len(t, got, DefaultCapacity)
	assert.Equal(t, fmt.Sprintf("e%d", DefaultCapacity+6), got[0].Message)
	assert.Equal(t, "e7", got[len(got)-1].Message)
	assert.Equal(t, DefaultCapacity, l.Len())
}

func TestLog_EmptyAndDefaultCapacity(t *testing.T) {
	l := New(0)
	assert.Empty(t, l.Recent())
	assert.NotNil(t, l.Recent())

	for i := 0; i < 100; i++ {
		l.Append("x")
	}
	assert.Equal(t, DefaultCapacity, l.Len())
}

func TestLog_RecentIsCopy(t *testing.T) {
	l := New(3)
	l.Append("a")

	got := l.Recent()
	got[0].Message = "mutated"

	assert.Equal(t, "a", l.Recent()[0].Message)
}

func TestLog_ConcurrentAppend(t *testing.T) {
	l := New(10)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			l.Appendf("event %d", i)
			_ = l.Recent()
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 10, l.Len())
}
