package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsPrimarySource(t *testing.T) {
	tests := []struct {
		url     string
		primary bool
	}{
		{"https://www.congress.gov/bill/hr1234", true},
		{"https://www.federalreserve.gov/newsevents/pressreleases", true},
		{"https://news.un.org/en/story/2026/02/1180001", true},
		{"https://www.supremecourt.gov/opinions", true},
		{"https://www.reuters.com/world/story", true},
		{"https://apnews.com/article/x", false}, // apnews.com is not ap.org
		{"https://www.ap.org/press-releases/2026/x", true},
		{"https://www.bbc.co.uk/news/world-123", true},
		{"https://www.mit.edu/research/paper", true},
		{"https://arxiv.org/abs/2602.01234", true},
		{"https://someblog.example.com/hot-take", false},
		{"https://medium.com/@pundit/opinion", false},
		{"not a url", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.primary, isPrimarySource(tt.url), tt.url)
	}
}

func TestHasPrimarySource(t *testing.T) {
	assert.False(t, hasPrimarySource(nil))
	assert.False(t, hasPrimarySource([]string{"https://blog.example.com/a"}))
	assert.True(t, hasPrimarySource([]string{"https://blog.example.com/a", "https://www.justice.gov/opa/pr"}))
}
