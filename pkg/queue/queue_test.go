package queue

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/briefwire/briefwire/pkg/domain"
)

func flatScore(domain.Article) float64 { return 0 }

func article(id, title string, cat domain.Category) domain.Article {
	return domain.Article{ID: id, Title: title, URL: "https://example.com/" + id, Category: cat}
}

func TestHolding_FIFO(t *testing.T) {
	h := NewHolding(100, flatScore)
	h.Enqueue([]domain.Article{article("a", "one", domain.CategoryUSNational)})
	h.Enqueue([]domain.Article{article("b", "two", domain.CategoryInternational)})

	assert.Equal(t, 2, h.Size())
	assert.Equal(t, map[domain.Category]int{
		domain.CategoryUSNational:    1,
		domain.CategoryInternational: 1,
	}, h.ByCategory())

	drained := h.Drain()
	require.Len(t, drained, 2)
	assert.Equal(t, "a", drained[0].ID)
	assert.Equal(t, "b", drained[1].ID)
	assert.Equal(t, 0, h.Size())
}

func TestHolding_Clear(t *testing.T) {
	h := NewHolding(100, flatScore)
	h.Enqueue([]domain.Article{article("a", "one", domain.CategoryUSNational)})
	h.Clear()
	assert.Equal(t, 0, h.Size())
	assert.Empty(t, h.Drain())
}

func TestHolding_Preemption(t *testing.T) {
	t.Run("breaking title signals once", func(t *testing.T) {
		h := NewHolding(100, flatScore)
		h.Enqueue([]domain.Article{article("a", "BREAKING: major earthquake in Region Y", domain.CategoryInternational)})

		select {
		case <-h.Preempt():
		default:
			t.Fatal("expected preemption signal")
		}

		// second breaking item within the same cycle does not signal again
		h.Enqueue([]domain.Article{article("b", "URGENT: follow-up", domain.CategoryInternational)})
		select {
		case <-h.Preempt():
			t.Fatal("expected at most one signal per batch cycle")
		default:
		}
	})

	t.Run("breaking content signals", func(t *testing.T) {
		h := NewHolding(100, flatScore)
		a := article("a", "calm headline", domain.CategoryUSNational)
		a.Content = "officials declared a state of emergency overnight"
		h.Enqueue([]domain.Article{a})

		select {
		case <-h.Preempt():
		default:
			t.Fatal("expected preemption signal from content match")
		}
	})

	t.Run("drain re-arms the signal", func(t *testing.T) {
		h := NewHolding(100, flatScore)
		h.Enqueue([]domain.Article{article("a", "breaking: one", domain.CategoryUSNational)})
		<-h.Preempt()
		h.Drain()

		h.Enqueue([]domain.Article{article("b", "breaking: two", domain.CategoryUSNational)})
		select {
		case <-h.Preempt():
		default:
			t.Fatal("expected signal after drain")
		}
	})

	t.Run("drain discards an unconsumed signal", func(t *testing.T) {
		h := NewHolding(100, flatScore)
		h.Enqueue([]domain.Article{article("a", "breaking: one", domain.CategoryUSNational)})

		// an interval batch drains the queue before the scheduler ever
		// selects on the signal; no empty follow-up batch may fire
		h.Drain()
		select {
		case <-h.Preempt():
			t.Fatal("stale signal survived the drain")
		default:
		}
	})

	t.Run("ordinary items do not signal", func(t *testing.T) {
		h := NewHolding(100, flatScore)
		h.Enqueue([]domain.Article{article("a", "quiet afternoon in parliament", domain.CategoryInternational)})
		select {
		case <-h.Preempt():
			t.Fatal("unexpected preemption")
		default:
		}
	})
}

func TestHolding_Backpressure(t *testing.T) {
	// score by numeric suffix so low ids are the low-value items
	scoreFn := func(a domain.Article) float64 {
		var n float64
		fmt.Sscanf(a.ID, "id-%f", &n)
		return n
	}

	h := NewHolding(10, scoreFn)
	items := make([]domain.Article, 15)
	for i := range items {
		items[i] = article(fmt.Sprintf("id-%02d", i), fmt.Sprintf("item %d", i), domain.CategoryUSNational)
	}
	h.Enqueue(items)

	assert.Equal(t, 10, h.Size())
	drained := h.Drain()
	require.Len(t, drained, 10)
	// lowest five scores evicted, survivors keep FIFO order
	assert.Equal(t, "id-05", drained[0].ID)
	assert.Equal(t, "id-14", drained[9].ID)
}
