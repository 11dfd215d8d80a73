// Package navigation keeps a per-chat history of rendered screens so the
// "back" button can re-render the previous one.
package navigation

import "sync"

type history struct {
	mu     sync.Mutex
	frames []string
}

// Stack is safe for concurrent use. Each chat has an independent history.
type Stack struct {
	chats sync.Map // int64 -> *history
}

// NewStack creates an empty stack.
func NewStack() *Stack {
	return &Stack{}
}

func (s *Stack) history(chatID int64) *history {
	h, _ := s.chats.LoadOrStore(chatID, &history{})
	return h.(*history)
}

// Push records screen as the current one. Pushing the screen already on top
// is a no-op.
func (s *Stack) Push(chatID int64, screen string) {
	h := s.history(chatID)
	h.mu.Lock()
	defer h.mu.Unlock()
	if n := len(h.frames); n > 0 && h.frames[n-1] == screen {
		return
	}
	h.frames = append(h.frames, screen)
}

// Pop discards the current screen and returns the one now on top.
// It returns false when the stack is empty after the pop, or was already empty.
func (s *Stack) Pop(chatID int64) (string, bool) {
	raw, ok := s.chats.Load(chatID)
	if !ok {
		return "", false
	}
	h := raw.(*history)
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.frames) == 0 {
		return "", false
	}
	h.frames = h.frames[:len(h.frames)-1]
	if len(h.frames) == 0 {
		return "", false
	}
	return h.frames[len(h.frames)-1], true
}

// Peek returns the current screen without removing it.
func (s *Stack) Peek(chatID int64) (string, bool) {
	raw, ok := s.chats.Load(chatID)
	if !ok {
		return "", false
	}
	h := raw.(*history)
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.frames) == 0 {
		return "", false
	}
	return h.frames[len(h.frames)-1], true
}

// Clear discards the chat's whole history.
func (s *Stack) Clear(chatID int64) {
	s.chats.Delete(chatID)
}

// Len returns the depth of the chat's history.
func (s *Stack) Len(chatID int64) int {
	raw, ok := s.chats.Load(chatID)
	if !ok {
		return 0
	}
	h := raw.(*history)
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.frames)
}

// Frames returns a copy of the chat's history, bottom first.
func (s *Stack) Frames(chatID int64) []string {
	raw, ok := s.chats.Load(chatID)
	if !ok {
		return nil
	}
	h := raw.(*history)
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, len(h.frames))
	copy(out, h.frames)
	return out
}

// ActiveChats counts chats with a history.
func (s *Stack) ActiveChats() int {
	n := 0
	s.chats.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
