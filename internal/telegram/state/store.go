package state

import (
	"strconv"
	"time"

	"github.com/futig/advisor-backend/internal/entity"
	"github.com/patrickmn/go-cache"
)

// ChatState is the per-chat UI state of the bot
type ChatState struct {
	// Category is pinned by the user; empty means automatic classification
	Category    entity.Category
	LastQueryID string
}

// Store keeps chat state in memory and forgets idle chats after the TTL
type Store struct {
	cache *cache.Cache
	ttl   time.Duration
}

func NewStore(ttl time.Duration) *Store {
	return &Store{
		cache: cache.New(ttl, ttl/2),
		ttl:   ttl,
	}
}

// Get returns the state of a chat, zero value when unknown or expired
func (s *Store) Get(chatID int64) ChatState {
	if v, ok := s.cache.Get(key(chatID)); ok {
		return v.(ChatState)
	}
	return ChatState{}
}

func (s *Store) PinCategory(chatID int64, category entity.Category) {
	st := s.Get(chatID)
	st.Category = category
	s.cache.SetDefault(key(chatID), st)
}

// ClearCategory switches the chat back to automatic classification
func (s *Store) ClearCategory(chatID int64) {
	st := s.Get(chatID)
	st.Category = ""
	s.cache.SetDefault(key(chatID), st)
}

func (s *Store) SetLastQuery(chatID int64, queryID string) {
	st := s.Get(chatID)
	st.LastQueryID = queryID
	s.cache.SetDefault(key(chatID), st)
}

func key(chatID int64) string {
	return "chat:" + strconv.FormatInt(chatID, 10)
}
