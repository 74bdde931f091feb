package storage

import (
	"sync"
	"testing"
	"time"

	"github.com/lehigh-university-libraries/magma/internal/models"
	"github.com/lehigh-university-libraries/magma/internal/providers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionStore(t *testing.T) {
	s := New()
	now := time.Now()
	s.Set("b", &models.ChatSession{ID: "b", CreatedAt: now.Add(time.Second)})
	s.Set("a", &models.ChatSession{ID: "a", CreatedAt: now})

	got, ok := s.Get("a")
	require.True(t, ok)
	assert.Equal(t, "a", got.ID)

	list := s.List()
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].ID)
	assert.Equal(t, "b", list[1].ID)

	assert.True(t, s.Delete("a"))
	assert.False(t, s.Delete("a"))
	_, ok = s.Get("a")
	assert.False(t, ok)
}

func TestSessionStoreUpdate(t *testing.T) {
	s := New()
	s.Set("a", &models.ChatSession{ID: "a"})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Update("a", func(cs *models.ChatSession) {
				cs.History = append(cs.History, providers.Exchange{User: "q", Assistant: "a"})
			})
		}()
	}
	wg.Wait()

	got, _ := s.Get("a")
	assert.Len(t, got.History, 20)
	assert.False(t, s.Update("missing", func(*models.ChatSession) {}))
}

func TestSessionStoreReturnsCopies(t *testing.T) {
	s := New()
	s.Set("a", &models.ChatSession{ID: "a", History: []providers.Exchange{{User: "q", Assistant: "a"}}})

	listed := s.List()
	require.Len(t, listed, 1)
	listed[0].History[0].User = "changed"
	listed[0].History = append(listed[0].History, providers.Exchange{User: "extra"})

	got, ok := s.Get("a")
	require.True(t, ok)
	got.Model = "changed"

	again, _ := s.Get("a")
	assert.Equal(t, []providers.Exchange{{User: "q", Assistant: "a"}}, again.History)
	assert.Empty(t, again.Model)
}
