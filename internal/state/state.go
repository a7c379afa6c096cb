package state

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vk/dashlink/internal/links"
	"github.com/vk/dashlink/internal/model"
	"github.com/vk/dashlink/internal/view"
)

// Session couples a view tree with the document it renders into. Mu
// serializes mutations of the session's models; the model tree itself
// is unsynchronized.
type Session struct {
	ID        string
	Root      *view.Element
	Doc       *model.Model
	CreatedAt time.Time

	Mu sync.Mutex
}

// Store is the index of all currently active sessions.
type Store struct {
	sessions sync.Map // Key: session ID string, Value: *Session
}

// NewStore creates an empty session store.
func NewStore() *Store {
	return &Store{}
}

// Open registers a new session for the given view tree and document.
func (s *Store) Open(root *view.Element, doc *model.Model) *Session {
	session := &Session{
		ID:        uuid.NewString(),
		Root:      root,
		Doc:       doc,
		CreatedAt: time.Now(),
	}
	s.sessions.Store(session.ID, session)
	return session
}

// Get retrieves an active session by ID.
func (s *Store) Get(id string) (*Session, bool) {
	v, ok := s.sessions.Load(id)
	if !ok {
		return nil, false
	}
	return v.(*Session), true
}

// List returns the active sessions ordered by creation time.
func (s *Store) List() []*Session {
	var out []*Session
	s.sessions.Range(func(_, v any) bool {
		out = append(out, v.(*Session))
		return true
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Close tears down a session: the per-document models are discarded and
// every link registered under one of the session's elements is dropped
// from the registry. Closing an unknown session is a no-op.
func (s *Store) Close(id string, reg *links.Registry) {
	v, ok := s.sessions.LoadAndDelete(id)
	if !ok {
		return
	}
	session := v.(*Session)
	if session.Root == nil {
		return
	}
	if session.Doc != nil {
		session.Root.DropModels(session.Doc.Ref())
	}
	if reg != nil {
		for _, el := range session.Root.Select(nil) {
			reg.DropElement(el)
		}
	}
}

// CloseAll closes every active session.
func (s *Store) CloseAll(reg *links.Registry) {
	for _, session := range s.List() {
		s.Close(session.ID, reg)
	}
}
