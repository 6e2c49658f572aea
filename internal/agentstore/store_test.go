package agentstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentforge/agentforge/internal/model"
)

func put(s *Store, id, project string, status model.Status) {
	s.Put(&model.Agent{ID: id, Project: project, Status: status})
}

func TestGet_ReturnsCloneNotLiveEntry(t *testing.T) {
	s := New()
	put(s, "a1", "alpha", model.StatusWorking)

	got := s.Get("a1")
	require.NotNil(t, got)
	got.Status = model.StatusError

	assert.Equal(t, model.StatusWorking, s.Get("a1").Status)
}

func TestGet_MissingReturnsNil(t *testing.T) {
	assert.Nil(t, New().Get("nope"))
}

func TestMutate_UpdatesLiveEntry(t *testing.T) {
	s := New()
	put(s, "a1", "alpha", model.StatusStarting)

	ok := s.Mutate("a1", func(a *model.Agent) { a.Status = model.StatusIdle })
	assert.True(t, ok)
	assert.Equal(t, model.StatusIdle, s.Get("a1").Status)

	assert.False(t, s.Mutate("nope", func(a *model.Agent) {}))
}

func TestCountActive_ExcludesStopped(t *testing.T) {
	s := New()
	put(s, "a1", "alpha", model.StatusWorking)
	put(s, "a2", "alpha", model.StatusIdle)
	put(s, "a3", "alpha", model.StatusStopped)
	put(s, "b1", "beta", model.StatusWorking)

	assert.Equal(t, 2, s.CountActive("alpha"))
	assert.Equal(t, 1, s.CountActive("beta"))
	assert.Equal(t, 0, s.CountActive("gamma"))
}

func TestByProject_SortedByID(t *testing.T) {
	s := New()
	put(s, "zz", "alpha", model.StatusIdle)
	put(s, "aa", "alpha", model.StatusIdle)
	put(s, "mm", "beta", model.StatusIdle)

	got := s.ByProject("alpha")
	require.Len(t, got, 2)
	assert.Equal(t, "aa", got[0].ID)
	assert.Equal(t, "zz", got[1].ID)
}

func TestRemove(t *testing.T) {
	s := New()
	put(s, "a1", "alpha", model.StatusIdle)
	s.Remove("a1")
	assert.False(t, s.Exists("a1"))
	assert.Empty(t, s.All())
}
