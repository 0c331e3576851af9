// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package chat

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/parley-im/parley/lib/clock"
)

// JoinSuppressionWindow is how long after a recorded join notice a
// repeat join for the same room and user is coalesced instead of
// appended. The check is synchronous at join time — there is no timer
// whose firing order could race a second join.
const JoinSuppressionWindow = 5 * time.Second

// Store owns per-room ordered message history. Insertion order is
// arrival order; appends are idempotent on message ID. Histories are
// never discarded while the session lives — only ClearAll (logout)
// drops them.
//
// Store is safe for concurrent use.
type Store struct {
	clock clock.Clock

	mu        sync.RWMutex
	histories map[string]*roomHistory
	current   string
}

// roomHistory is one room's append-only message sequence plus the
// bookkeeping for duplicate and join-flood suppression.
type roomHistory struct {
	messages []Message
	seen     map[string]struct{}
	// lastJoin records, per user ID, when a join notice was last
	// appended for this room.
	lastJoin map[string]time.Time
}

// NewStore creates an empty Store. A nil clk means clock.Real().
func NewStore(clk clock.Clock) *Store {
	if clk == nil {
		clk = clock.Real()
	}
	return &Store{
		clock:     clk,
		histories: make(map[string]*roomHistory),
	}
}

// EnsureRoom creates an empty history for roomID if absent. Idempotent:
// an existing history is never altered.
func (s *Store) EnsureRoom(roomID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLocked(roomID)
}

func (s *Store) ensureLocked(roomID string) *roomHistory {
	history, ok := s.histories[roomID]
	if !ok {
		history = &roomHistory{
			seen:     make(map[string]struct{}),
			lastJoin: make(map[string]time.Time),
		}
		s.histories[roomID] = history
	}
	return history
}

// AppendIfNew inserts message at the tail of roomID's history unless a
// message with the same ID is already present. Reports whether an
// insertion occurred. The room's history is created if absent.
func (s *Store) AppendIfNew(roomID string, message Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	history := s.ensureLocked(roomID)
	if _, duplicate := history.seen[message.ID]; duplicate {
		return false
	}
	history.seen[message.ID] = struct{}{}
	history.messages = append(history.messages, message)
	return true
}

// RecordJoin appends a system-kind join notice for userID in roomID,
// unless one was already recorded for the same room and user within
// JoinSuppressionWindow. Reports whether a notice was appended.
func (s *Store) RecordJoin(roomID, userID, text string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	history := s.ensureLocked(roomID)
	now := s.clock.Now()
	if last, ok := history.lastJoin[userID]; ok && now.Sub(last) < JoinSuppressionWindow {
		return false
	}
	history.lastJoin[userID] = now

	message := Message{
		ID:        uuid.NewString(),
		Text:      text,
		Sender:    SystemSender,
		RoomID:    roomID,
		Timestamp: now.Format(timeFormat),
		Kind:      KindSystem,
	}
	history.seen[message.ID] = struct{}{}
	history.messages = append(history.messages, message)
	return true
}

// Messages returns a snapshot of roomID's history in arrival order.
// Pure at call time: repeated calls with no intervening mutation return
// equal sequences, and the caller may retain the slice. An unknown room
// yields nil.
func (s *Store) Messages(roomID string) []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history, ok := s.histories[roomID]
	if !ok || len(history.messages) == 0 {
		return nil
	}
	snapshot := make([]Message, len(history.messages))
	copy(snapshot, history.messages)
	return snapshot
}

// SetCurrentRoom switches the active-room pointer. Histories are not
// touched: every room stays addressable by ID regardless of which one
// is current.
func (s *Store) SetCurrentRoom(roomID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = roomID
}

// CurrentRoom returns the active room ID, empty before any join.
func (s *Store) CurrentRoom() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// ClearAll drops every history and the current-room pointer. Called
// explicitly on logout, never implicitly.
func (s *Store) ClearAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.histories = make(map[string]*roomHistory)
	s.current = ""
}
