package dialogue

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultSessionTTL is how long an idle conversation is kept.
const DefaultSessionTTL = 5 * time.Minute

// Conversation is one user's dialogue: a form and the slots gathered so far.
type Conversation struct {
	ID   string `json:"id"`
	Form string `json:"form"`
	// SatelliteID is the device that heard the conversation, if known.
	SatelliteID string    `json:"satellite_id,omitempty"`
	Slots       Slots     `json:"slots"`
	Status      Status    `json:"status,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Sessions keeps conversations in memory and forgets idle ones.
//
// Thread Safety:
//   - All methods are safe for concurrent use. Callers get copies, so one
//     conversation's slots are never shared with another caller.
type Sessions struct {
	mu    sync.Mutex
	convs map[string]*Conversation
	ttl   time.Duration
	now   func() time.Time
}

// NewSessions creates an empty store. ttl <= 0 means DefaultSessionTTL.
func NewSessions(ttl time.Duration) *Sessions {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &Sessions{
		convs: make(map[string]*Conversation),
		ttl:   ttl,
		now:   time.Now,
	}
}

// Create starts a conversation with fresh slots.
func (s *Sessions) Create(form, satelliteID, satelliteArea string) Conversation {
	now := s.now()
	c := &Conversation{
		ID:          uuid.NewString(),
		Form:        form,
		SatelliteID: satelliteID,
		Slots:       Slots{Satellite: satelliteArea},
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	s.mu.Lock()
	s.convs[c.ID] = c
	s.mu.Unlock()

	return copyConversation(c)
}

// Get returns a conversation. Expired conversations are not found.
func (s *Sessions) Get(id string) (Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.convs[id]
	if !ok {
		return Conversation{}, ErrConversationNotFound
	}
	if s.now().Sub(c.UpdatedAt) > s.ttl {
		delete(s.convs, id)
		return Conversation{}, ErrConversationNotFound
	}
	return copyConversation(c), nil
}

// Save stores new slots and status for an existing conversation.
func (s *Sessions) Save(id string, slots Slots, status Status) (Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.convs[id]
	if !ok {
		return Conversation{}, ErrConversationNotFound
	}
	c.Slots = slots.Clone()
	c.Status = status
	c.UpdatedAt = s.now()
	return copyConversation(c), nil
}

// Delete forgets a conversation. It reports whether it existed.
func (s *Sessions) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.convs[id]
	delete(s.convs, id)
	return ok
}

// Len returns the number of stored conversations, expired or not.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.convs)
}

// Sweep removes conversations idle for longer than the TTL and returns how
// many were removed.
func (s *Sessions) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for id, c := range s.convs {
		if now.Sub(c.UpdatedAt) > s.ttl {
			delete(s.convs, id)
			removed++
		}
	}
	return removed
}

// Run sweeps every interval until ctx is cancelled.
func (s *Sessions) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = s.ttl
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

func copyConversation(c *Conversation) Conversation {
	out := *c
	out.Slots = c.Slots.Clone()
	return out
}
