// Package session is the per-chat key/value blackboard that carries state
// across conversation turns (chosen car, dates, contact details, flow phase).
//
// Entries live in memory until overwritten, removed or cleared. Readers treat
// a missing field and a field of another kind the same way: absent.
package session

import (
	"math/big"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/garyellow/rentcar-bot/internal/flow"
	"github.com/garyellow/rentcar-bot/internal/rental"
)

// Field names shared by the handler modules.
const (
	FieldPhase         = "flow_phase"
	FieldCategory      = "category"
	FieldBrowseMode    = "browse_mode"
	FieldCarID         = "car_id"
	FieldBookingID     = "booking_id"
	FieldStartDate     = "start_date"
	FieldEndDate       = "end_date"
	FieldCalendarMonth = "calendar_month"
	FieldPhone         = "phone"
	FieldEmail         = "email"
	FieldAwaiting      = "awaiting"
	FieldQuote         = "quote"
)

type entry struct {
	mu     sync.RWMutex
	fields map[string]Value
	// dead is set once the entry has been unlinked by Clear; writers that
	// raced with Clear retry against a fresh entry.
	dead bool
}

// Store holds one entry per chat. Operations on a single chat are
// linearizable; there is no atomicity across fields.
type Store struct {
	chats sync.Map // int64 -> *entry
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{}
}

// Put stores v under field, replacing any previous value. Invalid values are
// ignored.
func (s *Store) Put(chatID int64, field string, v Value) {
	if !v.IsValid() {
		return
	}
	for {
		actual, _ := s.chats.LoadOrStore(chatID, &entry{fields: make(map[string]Value)})
		e := actual.(*entry)
		e.mu.Lock()
		if e.dead {
			e.mu.Unlock()
			continue
		}
		e.fields[field] = v
		e.mu.Unlock()
		return
	}
}

// Get returns the value of field if present and of the wanted kind.
func (s *Store) Get(chatID int64, field string, want Kind) (Value, bool) {
	raw, ok := s.chats.Load(chatID)
	if !ok {
		return Value{}, false
	}
	e := raw.(*entry)
	e.mu.RLock()
	v, ok := e.fields[field]
	dead := e.dead
	e.mu.RUnlock()
	if dead || !ok || v.kind != want {
		return Value{}, false
	}
	return v, true
}

// Remove deletes a single field.
func (s *Store) Remove(chatID int64, field string) {
	raw, ok := s.chats.Load(chatID)
	if !ok {
		return
	}
	e := raw.(*entry)
	e.mu.Lock()
	delete(e.fields, field)
	e.mu.Unlock()
}

// Clear drops every field of the chat, including its phase.
func (s *Store) Clear(chatID int64) {
	raw, ok := s.chats.Load(chatID)
	if !ok {
		return
	}
	e := raw.(*entry)
	e.mu.Lock()
	e.dead = true
	s.chats.CompareAndDelete(chatID, e)
	e.mu.Unlock()
}

// Len returns the number of fields set for the chat.
func (s *Store) Len(chatID int64) int {
	raw, ok := s.chats.Load(chatID)
	if !ok {
		return 0
	}
	e := raw.(*entry)
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.fields)
}

// ActiveChats counts chats with a live entry.
func (s *Store) ActiveChats() int {
	n := 0
	s.chats.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Typed helpers.

func (s *Store) String(chatID int64, field string) (string, bool) {
	v, ok := s.Get(chatID, field, KindString)
	if !ok {
		return "", false
	}
	return v.AsString()
}

func (s *Store) Int(chatID int64, field string) (int64, bool) {
	v, ok := s.Get(chatID, field, KindInt)
	if !ok {
		return 0, false
	}
	return v.AsInt()
}

func (s *Store) Decimal(chatID int64, field string) (*big.Rat, bool) {
	v, ok := s.Get(chatID, field, KindDecimal)
	if !ok {
		return nil, false
	}
	return v.AsDecimal()
}

func (s *Store) Date(chatID int64, field string) (time.Time, bool) {
	v, ok := s.Get(chatID, field, KindDate)
	if !ok {
		return time.Time{}, false
	}
	return v.AsDate()
}

func (s *Store) ID(chatID int64, field string) (uuid.UUID, bool) {
	v, ok := s.Get(chatID, field, KindID)
	if !ok {
		return uuid.Nil, false
	}
	return v.AsID()
}

func (s *Store) Category(chatID int64, field string) (rental.Category, bool) {
	v, ok := s.Get(chatID, field, KindCategory)
	if !ok {
		return "", false
	}
	return v.AsCategory()
}

func (s *Store) Mode(chatID int64, field string) (rental.BrowseMode, bool) {
	v, ok := s.Get(chatID, field, KindMode)
	if !ok {
		return "", false
	}
	return v.AsMode()
}

// Phase returns the chat's current flow phase. It satisfies flow.PhaseReader.
func (s *Store) Phase(chatID int64) (flow.Phase, bool) {
	v, ok := s.Get(chatID, FieldPhase, KindPhase)
	if !ok {
		return "", false
	}
	return v.AsPhase()
}

// SetPhase enters a flow phase.
func (s *Store) SetPhase(chatID int64, p flow.Phase) {
	s.Put(chatID, FieldPhase, PhaseValue(p))
}

// ClearPhase leaves the current flow without touching other fields.
func (s *Store) ClearPhase(chatID int64) {
	s.Remove(chatID, FieldPhase)
}
