package service

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoomLocks_SerializesSameRoom(t *testing.T) {
	l := newRoomLocks()

	var (
		wg      sync.WaitGroup
		counter int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := l.lock("R")
			counter++
			unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, counter)
	assert.Zero(t, l.size())
}

func TestRoomLocks_DifferentRoomsIndependent(t *testing.T) {
	l := newRoomLocks()

	unlockA := l.lock("A")
	done := make(chan struct{})
	go func() {
		unlockB := l.lock("B")
		unlockB()
		close(done)
	}()
	<-done
	unlockA()

	assert.Zero(t, l.size())
}
