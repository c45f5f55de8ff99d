package antidelete

// Deletion is a revoke notification matched to the message it removed.
type Deletion struct {
	ConversationID string
	// Deleter is the participant that issued the revoke, or the
	// conversation id for private chats.
	Deleter  string
	Marker   MessageRecord
	Original MessageRecord
}

// Correlator resolves deletion markers against the store.
type Correlator struct {
	store *Store
}

func NewCorrelator(store *Store) *Correlator {
	return &Correlator{store: store}
}

// Correlate looks up the message referenced by marker. It reports false when
// marker is not a revoke or when the original was never observed, which is
// the common case for messages sent before this process started.
func (c *Correlator) Correlate(marker MessageRecord) (Deletion, bool) {
	p, ok := marker.Content.(Protocol)
	if !ok || !p.IsRevoke() {
		return Deletion{}, false
	}
	orig, ok := c.store.FindByID(marker.ConversationID, p.RefID)
	if !ok {
		return Deletion{}, false
	}
	return Deletion{
		ConversationID: marker.ConversationID,
		Deleter:        marker.Sender,
		Marker:         marker,
		Original:       orig,
	}, true
}
