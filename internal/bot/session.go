package bot

import "sync"

// sessionState tracks where a requester is in a conversation flow.
type sessionState int

const (
	stateIdle sessionState = iota
	stateCollecting      // checkout started, scanning items
	stateAwaitingDecision // batch sent to admins, waiting for their click
	stateAwaitHistoryScan // waiting for a photo to show an item's history
	stateAwaitPersonRef   // waiting for a handle or id to show a person's history
	stateAwaitPeriod      // waiting for two dates to show period history
)

// session is the per-requester conversation state. It exists only while a
// flow is in progress and is dropped on any terminal transition; nothing in
// it is persisted.
type session struct {
	state   sessionState
	batchID string
	scanned map[int64]bool // equipment ids already in the batch
}

// sessionTable maps requester ids to their in-progress sessions. Access is
// guarded because the dispatcher may run different requesters concurrently.
type sessionTable struct {
	mu sync.Mutex
	m  map[int64]*session
}

func newSessionTable() *sessionTable {
	return &sessionTable{m: make(map[int64]*session)}
}

// get returns the requester's session, creating an idle one if absent.
func (s *sessionTable) get(chatID int64) *session {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.m[chatID]
	if !ok {
		sess = &session{state: stateIdle}
		s.m[chatID] = sess
	}
	return sess
}

// drop removes the requester's session.
func (s *sessionTable) drop(chatID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, chatID)
}
