package vertexfsm

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestExtendedStateStore_ReadAndCommit(t *testing.T) {
	s := NewExtendedStateStore("initial")
	assert.Equal(t, "initial", s.Read())
	assert.Equal(t, uint64(0), s.Version())

	assert.Equal(t, uint64(1), s.commit("second"))
	assert.Equal(t, "second", s.Read())
	assert.Equal(t, uint64(1), s.Version())
}

func TestExtendedStateStore_WholesaleReplacement(t *testing.T) {
	type payload struct{ items []int }
	s := NewExtendedStateStore(payload{items: []int{1}})

	before := s.Read()
	s.commit(payload{items: []int{1, 2}})

	assert.Equal(t, []int{1}, before.items)
	assert.Equal(t, []int{1, 2}, s.Read().items)
}

func TestExtendedStateStore_ConcurrentCommits(t *testing.T) {
	s := NewExtendedStateStore(0)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.commit(i)
			_ = s.Read()
		}()
	}
	wg.Wait()
	assert.Equal(t, uint64(50), s.Version())
}

func TestDetachedStoreDoesNotAffectOriginal(t *testing.T) {
	s := NewExtendedStateStore(1)
	d := detached(2)
	d.commit(3)

	assert.Equal(t, 1, s.Read())
	assert.Equal(t, 3, d.Read())
}

func TestExtendedStateStore_ViewsDoNotLoseUpdates(t *testing.T) {
	s := NewExtendedStateStore(0)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v := s.view()
			defer v.release()
			n := v.Read()
			time.Sleep(time.Millisecond)
			v.publish(n + 1)
		}()
	}
	wg.Wait()
	assert.Equal(t, 20, s.Read())
	assert.Equal(t, uint64(20), s.Version())
}

func TestExtendedStateStore_ViewRelease(t *testing.T) {
	s := NewExtendedStateStore("a")

	dropped := s.view()
	assert.Equal(t, "a", dropped.Read())
	dropped.release()

	blind := s.view()
	assert.Equal(t, uint64(1), blind.publish("b"))
	blind.release()
	blind.release()

	assert.Equal(t, "b", s.Read())
	assert.Equal(t, "b", dropped.Read(), "reads after release do not claim the commit slot")
	assert.Equal(t, uint64(2), s.commit("c"))
}
