package retrieval

import (
	"encoding/json"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Turn is one answered question.
type Turn struct {
	Question string    `json:"question"`
	Answer   string    `json:"answer"`
	AskedAt  time.Time `json:"asked_at,omitempty"`
}

// Session is a caller-owned conversation. Turns are append-only apart from
// Clear.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu    sync.RWMutex
	turns []Turn
}

func NewSession() *Session {
	return &Session{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
	}
}

func (s *Session) Append(question, answer string) Turn {
	t := Turn{Question: question, Answer: answer, AskedAt: time.Now().UTC()}
	s.mu.Lock()
	s.turns = append(s.turns, t)
	s.mu.Unlock()
	return t
}

func (s *Session) Turns() []Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.turns)
}

func (s *Session) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.turns)
}

// Recent returns a copy of the last n turns in order.
func (s *Session) Recent(n int) []Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return RecentTurns(s.turns, n)
}

func (s *Session) Clear() {
	s.mu.Lock()
	s.turns = nil
	s.mu.Unlock()
}

func (s *Session) MarshalJSON() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	turns := s.turns
	if turns == nil {
		turns = []Turn{}
	}
	return json.Marshal(struct {
		ID        string    `json:"id"`
		CreatedAt time.Time `json:"created_at"`
		Turns     []Turn    `json:"turns"`
	}{s.ID, s.CreatedAt, turns})
}

// RecentTurns copies the last n turns. The result never aliases turns.
func RecentTurns(turns []Turn, n int) []Turn {
	if n <= 0 || len(turns) == 0 {
		return []Turn{}
	}
	start := max(len(turns)-n, 0)
	return slices.Clone(turns[start:])
}
