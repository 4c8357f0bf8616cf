package memory

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddAssignsKeywordsAndClampsImportance(t *testing.T) {
	s := NewStream("alice")

	m := s.Add("Met the new contractor about the quarterly budget review", KindObservation, 15, 3)
	assert.Equal(t, 10, m.Importance)
	assert.Equal(t, 3, m.CreatedStep)
	assert.Equal(t, 3, m.LastAccessed)
	assert.Contains(t, m.Keywords, "contractor")
	assert.Contains(t, m.Keywords, "quarterly")
	assert.NotContains(t, m.Keywords, "the", "short words are dropped")

	low := s.Add("hm", KindObservation, 0, 3)
	assert.Equal(t, 1, low.Importance)
	assert.Empty(t, low.Keywords)
}

func TestKeywordCap(t *testing.T) {
	var long string
	for i := 0; i < 20; i++ {
		long += fmt.Sprintf("keyword%02d ", i)
	}
	m := NewStream("a").Add(long, KindObservation, 5, 0)
	assert.Len(t, m.Keywords, 10)
}

func TestRetrieveRanksByRelevance(t *testing.T) {
	s := NewStream("alice")
	s.Add("watered the office plants this morning", KindObservation, 3, 1)
	target := s.Add("urgent request about bank account verification", KindConversation, 7, 1)
	s.Add("lunch plans with marcus at the cafe", KindObservation, 3, 1)

	got := s.Retrieve("bank account verification request", 5, 1)
	require.Len(t, got, 1)
	assert.Equal(t, target.ID, got[0].ID)
}

func TestRetrieveUpdatesLastAccessed(t *testing.T) {
	s := NewStream("alice")
	m := s.Add("saw a colleague in the park", KindObservation, 5, 2)

	got := s.Retrieve("colleague park", 9, 1)
	require.Len(t, got, 1)
	assert.Equal(t, 9, m.LastAccessed)
	assert.GreaterOrEqual(t, m.LastAccessed, m.CreatedStep)

	// Access never moves backwards relative to creation.
	s.Retrieve("colleague", 9, 1)
	assert.Equal(t, 9, m.LastAccessed)
}

func TestRetrievePrefersRecentAndImportant(t *testing.T) {
	s := NewStream("alice")
	old := s.Add("routine standup notes from engineering", KindObservation, 2, 0)
	fresh := s.Add("routine standup notes from engineering", KindObservation, 2, 100)

	got := s.Retrieve("", 100, 2)
	require.Len(t, got, 2)
	assert.Equal(t, fresh.ID, got[0].ID, "fresher memory wins on recency decay")
	assert.Equal(t, old.ID, got[1].ID)
}

func TestRecencyAnchoredToCreation(t *testing.T) {
	s := NewStream("alice")
	old := s.Add("quarterly forecast draft numbers", KindObservation, 5, 0)
	fresh := s.Add("quarterly forecast draft numbers", KindObservation, 5, 50)

	// An early retrieval touches both; age must still come from creation,
	// so the later memory keeps outranking the older one.
	s.Retrieve("quarterly forecast", 50, 2)
	got := s.Retrieve("quarterly forecast", 100, 2)
	require.Len(t, got, 2)
	assert.Equal(t, fresh.ID, got[0].ID, "newer memory ranks first (created 50 vs 0)")
	assert.Equal(t, old.ID, got[1].ID)
}

func TestRetrieveStableOrderOnTies(t *testing.T) {
	s := NewStream("alice")
	first := s.Add("identical content here", KindObservation, 5, 1)
	second := s.Add("identical content here", KindObservation, 5, 1)

	got := s.Retrieve("identical content", 1, 2)
	require.Len(t, got, 2)
	assert.Equal(t, first.ID, got[0].ID, "equal scores keep creation order")
	assert.Equal(t, second.ID, got[1].ID)
}

func TestRetrieveEmbeddedUsesCosine(t *testing.T) {
	s := NewStream("alice")
	aligned := s.AddFull("vector aligned", KindObservation, 5, 1, "", "", []float32{1, 0, 0})
	s.AddFull("vector opposed", KindObservation, 5, 1, "", "", []float32{0, 1, 0})

	got := s.RetrieveEmbedded("unrelated words", []float32{1, 0, 0}, 1, 1)
	require.Len(t, got, 1)
	assert.Equal(t, aligned.ID, got[0].ID)
}

func TestByKindAndByAgent(t *testing.T) {
	s := NewStream("alice")
	s.AddFull("message from mallory", KindConversation, 5, 1, "mallory", "sms", nil)
	s.Add("walked to the cafe", KindObservation, 2, 1)
	s.AddFull("another message from mallory", KindConversation, 5, 2, "mallory", "email", nil)

	assert.Len(t, s.ByKind(KindConversation), 2)
	assert.Len(t, s.ByKind(KindReflection), 0)
	assert.Len(t, s.ByAgent("mallory"), 2)
	assert.Empty(t, s.ByAgent("bob"))
}

func TestReflectionAccumulator(t *testing.T) {
	s := NewStream("alice")
	for i := 0; i < 7; i++ {
		s.Add("something notable happened today", KindObservation, 7, i)
	}
	assert.False(t, s.ShouldReflect(), "49 accumulated importance stays below the trigger")

	s.Add("one more observation", KindObservation, 1, 8)
	assert.True(t, s.ShouldReflect())

	s.ResetReflection()
	assert.False(t, s.ShouldReflect())
}

func TestRecent(t *testing.T) {
	s := NewStream("alice")
	for i := 0; i < 5; i++ {
		s.Add(fmt.Sprintf("observation number %d", i), KindObservation, 3, i)
	}
	got := s.Recent(2)
	require.Len(t, got, 2)
	assert.Equal(t, 3, got[0].CreatedStep)
	assert.Equal(t, 4, got[1].CreatedStep)
	assert.Len(t, s.Recent(50), 5)
	assert.Nil(t, s.Recent(0))
}
