package state

import (
	"testing"
	"time"

	"github.com/futig/advisor-backend/internal/entity"
	"github.com/stretchr/testify/assert"
)

func TestStore(t *testing.T) {
	s := NewStore(time.Hour)

	assert.Equal(t, ChatState{}, s.Get(1))

	s.PinCategory(1, entity.CategoryLegal)
	s.SetLastQuery(1, "q-1")
	assert.Equal(t, ChatState{Category: entity.CategoryLegal, LastQueryID: "q-1"}, s.Get(1))
	assert.Equal(t, ChatState{}, s.Get(2), "chats are isolated")

	s.ClearCategory(1)
	assert.Equal(t, ChatState{LastQueryID: "q-1"}, s.Get(1))
}

func TestStore_Expires(t *testing.T) {
	s := NewStore(20 * time.Millisecond)

	s.PinCategory(1, entity.CategoryTravel)
	assert.Eventually(t, func() bool {
		return s.Get(1).Category == ""
	}, time.Second, 10*time.Millisecond)
}
