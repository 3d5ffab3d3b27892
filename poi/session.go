package poi

import (
	"context"
	"sync"
)

// EditSession is an edit in progress on one point. It remembers the point's
// id so that Save and Delete act on the same point even if the collection
// is reordered or shrunk in the meantime.
type EditSession struct {
	m *Manager

	Index    int
	ID       string
	Name     string
	Category string

	mu     sync.Mutex
	closed bool
}

// BeginEdit opens a session on the point at index.
func (m *Manager) BeginEdit(index int) (*EditSession, error) {
	cur := m.feed.peek()
	if index < 0 || index >= cur.Len() {
		return nil, ErrIndexOutOfRange
	}
	f := cur.Features[index]
	return &EditSession{
		m:        m,
		Index:    index,
		ID:       f.ID(),
		Name:     f.Name(),
		Category: f.Category(),
	}, nil
}

// CurrentIndex is the point's present position, or -1 if it is gone.
func (s *EditSession) CurrentIndex() int {
	return s.m.IndexOf(s.ID)
}

// Save writes Name and Category to the point and closes the session.
func (s *EditSession) Save(ctx context.Context) error {
	if err := s.close(); err != nil {
		return err
	}
	found, err := s.m.UpdatePointByID(ctx, s.ID, Update{Name: &s.Name, Category: &s.Category})
	if err != nil {
		return err
	}
	if !found {
		return ErrPointNotFound
	}
	return nil
}

// Delete removes the point and closes the session.
func (s *EditSession) Delete(ctx context.Context) error {
	if err := s.close(); err != nil {
		return err
	}
	found, err := s.m.DeletePointByID(ctx, s.ID)
	if err != nil {
		return err
	}
	if !found {
		return ErrPointNotFound
	}
	return nil
}

// Cancel closes the session without changes.
func (s *EditSession) Cancel() {
	_ = s.close()
}

func (s *EditSession) close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	s.closed = true
	return nil
}
