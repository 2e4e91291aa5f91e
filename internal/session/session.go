// Package session tracks per-chat conversation state between updates.
package session

import (
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/kairosbot/kairos/internal/config"
)

// State names the conversation step a chat is waiting on.
type State string

// Conversation states armed by commands and inline buttons.
const (
	StateNone                  State = ""
	AwaitingAddTask            State = "awaiting_add_task"
	AwaitingQuery              State = "awaiting_query"
	AwaitingDoneID             State = "awaiting_done_id"
	AwaitingDoneSearch         State = "awaiting_done_search"
	AwaitingEditID             State = "awaiting_edit_id"
	AwaitingEditSearch         State = "awaiting_edit_search"
	AwaitingEditInstruction    State = "awaiting_edit_instruction"
	AwaitingCustomCompleteTime State = "awaiting_custom_complete_time"
	AwaitingSchedule           State = "awaiting_schedule"
	AwaitingClarification      State = "awaiting_clarification"
)

// Data is the mutable conversation state of one chat.
type Data struct {
	State State
	// PendingTodoID is the task a clarification or edit refers to.
	PendingTodoID int64
	// PendingDoneID is the task waiting for a custom completion time.
	PendingDoneID int64
}

// Store keeps conversation state per chat in a bounded LRU cache.
type Store struct {
	cache  *lru.Cache[int64, *Data]
	logger *zap.Logger
}

// NewStore creates the session store sized from config.
func NewStore(cfg *config.Config, logger *zap.Logger) (*Store, error) {
	cache, err := lru.New[int64, *Data](cfg.SessionSize)
	if err != nil {
		return nil, err
	}

	return &Store{cache: cache, logger: logger.Named("session")}, nil
}

// Get returns the chat's state, creating a blank entry on first contact.
func (s *Store) Get(chatID int64) *Data {
	if data, ok := s.cache.Get(chatID); ok {
		return data
	}

	data := &Data{}
	s.cache.Add(chatID, data)

	return data
}

// SetState arms a conversation state for the chat.
func (s *Store) SetState(chatID int64, state State) {
	data := s.Get(chatID)
	data.State = state
	s.logger.Debug("Conversation state changed",
		zap.Int64("chatID", chatID),
		zap.String("state", string(state)))
}

// State reports the chat's current conversation state.
func (s *Store) State(chatID int64) State {
	return s.Get(chatID).State
}

// Clear resets the chat back to the idle state.
func (s *Store) Clear(chatID int64) {
	s.cache.Add(chatID, &Data{})
}

// Busy reports whether the chat is mid-conversation. Check-in sends are
// deferred while this is true.
func (s *Store) Busy(chatID int64) bool {
	return s.State(chatID) != StateNone
}
