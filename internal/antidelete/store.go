package antidelete

import "sync"

// Store keeps every observed message per conversation in arrival order.
// With maxPerConversation <= 0 it grows without bound for the life of the
// process; otherwise each conversation keeps its newest N records.
type Store struct {
	mu     sync.RWMutex
	maxPer int
	convs  map[string]*conversation
}

type conversation struct {
	mu   sync.RWMutex
	recs []MessageRecord
}

func NewStore(maxPerConversation int) *Store {
	if maxPerConversation < 0 {
		maxPerConversation = 0
	}
	return &Store{maxPer: maxPerConversation, convs: make(map[string]*conversation)}
}

func (s *Store) conversation(id string, create bool) *conversation {
	s.mu.RLock()
	c, ok := s.convs[id]
	s.mu.RUnlock()
	if ok || !create {
		return c
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok = s.convs[id]; !ok {
		c = &conversation{}
		s.convs[id] = c
	}
	return c
}

// Append adds rec to the end of its conversation, creating the conversation
// on first sight.
func (s *Store) Append(conversationID string, rec MessageRecord) {
	c := s.conversation(conversationID, true)
	c.mu.Lock()
	defer c.mu.Unlock()
	if s.maxPer > 0 && len(c.recs) >= s.maxPer {
		n := copy(c.recs, c.recs[len(c.recs)-s.maxPer+1:])
		c.recs = c.recs[:n]
	}
	c.recs = append(c.recs, rec)
}

// FindByID returns the first record in the conversation whose id equals id.
// Deletion markers are never returned. Absence is a normal outcome.
func (s *Store) FindByID(conversationID, id string) (MessageRecord, bool) {
	c := s.conversation(conversationID, false)
	if c == nil || id == "" {
		return MessageRecord{}, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, r := range c.recs {
		if r.ID == id && !r.IsDeletionMarker() {
			return r, true
		}
	}
	return MessageRecord{}, false
}

// Records returns a copy of the conversation's history.
func (s *Store) Records(conversationID string) []MessageRecord {
	c := s.conversation(conversationID, false)
	if c == nil {
		return nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]MessageRecord, len(c.recs))
	copy(out, c.recs)
	return out
}

func (s *Store) Len(conversationID string) int {
	c := s.conversation(conversationID, false)
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.recs)
}

// Stats returns the number of conversations and retained records.
func (s *Store) Stats() (conversations, records int) {
	s.mu.RLock()
	convs := make([]*conversation, 0, len(s.convs))
	for _, c := range s.convs {
		convs = append(convs, c)
	}
	s.mu.RUnlock()

	for _, c := range convs {
		c.mu.RLock()
		records += len(c.recs)
		c.mu.RUnlock()
	}
	return len(convs), records
}
