package breaker

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRegistry_OpensAfterThreshold(t *testing.T) {
	r := NewRegistry()

	for i := 0; i < 4; i++ {
		r.RecordFailure("src")
		assert.True(t, r.Admit("src"), "circuit stays closed below threshold")
	}

	r.RecordFailure("src")
	assert.False(t, r.Admit("src"), "fifth failure opens the circuit")

	snap := r.Snapshot()
	assert.True(t, snap["src"].Open)
	assert.Equal(t, 5, snap["src"].Failures)
}

func TestRegistry_CooldownProbe(t *testing.T) {
	r := NewRegistry()
	current := time.Now()
	r.now = func() time.Time { return current }

	for i := 0; i < 5; i++ {
		r.RecordFailure("src")
	}
	assert.False(t, r.Admit("src"))

	// just inside the cooldown window stays blocked
	current = current.Add(5 * time.Minute)
	assert.False(t, r.Admit("src"))

	// past the cooldown the entry is discarded, next call probes
	current = current.Add(time.Second)
	assert.True(t, r.Admit("src"))
	assert.Empty(t, r.Snapshot(), "entry discarded on probe admission")

	// a single new failure starts counting from scratch
	r.RecordFailure("src")
	assert.True(t, r.Admit("src"))
	assert.Equal(t, 1, r.Snapshot()["src"].Failures)
}

func TestRegistry_SuccessClears(t *testing.T) {
	r := NewRegistry()
	r.RecordFailure("src")
	r.RecordFailure("src")
	r.RecordSuccess("src")
	assert.Empty(t, r.Snapshot())
	assert.True(t, r.Admit("src"))
}

func TestRegistry_Reset(t *testing.T) {
	r := NewRegistry()
	for i := 0; i < 5; i++ {
		r.RecordFailure("src")
	}
	assert.False(t, r.Admit("src"))

	r.Reset("src")
	assert.True(t, r.Admit("src"))
	assert.Empty(t, r.Snapshot())
}

func TestRegistry_PerSourceIsolation(t *testing.T) {
	r := NewRegistry()
	for i := 0; i < 5; i++ {
		r.RecordFailure("bad")
	}
	assert.False(t, r.Admit("bad"))
	assert.True(t, r.Admit("good"))
}

func TestRegistry_Concurrent(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				r.RecordFailure("src")
				r.Admit("src")
				r.Snapshot()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 2000, r.Snapshot()["src"].Failures)
}
