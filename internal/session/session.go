package session

import (
	"image"
	"sync"

	"github.com/Brownie44l1/safe-skin/internal/diagnosis"
	"github.com/Brownie44l1/safe-skin/internal/navigation"
)

// Upload is a decoded image waiting to be classified.
type Upload struct {
	Image  image.Image
	Format string
	Size   int
}

// Session is the per-user context: navigation plus the ephemeral upload and
// the last prediction. Nothing here outlives the process.
type Session struct {
	ID string

	mu         sync.Mutex
	nav        *navigation.State
	upload     *Upload
	result     *diagnosis.Result
	generation uint64
}

// New creates a session on the Home view.
func New(id string) *Session {
	return &Session{
		ID:  id,
		nav: navigation.New(),
	}
}

// View returns the active view.
func (s *Session) View() navigation.View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nav.Current()
}

// Navigate selects a view. A real change drops the upload and last result.
func (s *Session) Navigate(target navigation.View) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed, err := s.nav.Select(target)
	if err != nil || !changed {
		return changed, err
	}
	s.clearLocked()
	return true, nil
}

// Reset drops the upload and result without leaving the current view.
func (s *Session) Reset() {
	s.mu.Lock()
	s.clearLocked()
	s.mu.Unlock()
}

func (s *Session) clearLocked() {
	s.upload = nil
	s.result = nil
	s.generation++
}

// SetUpload replaces the pending upload and forgets the previous result.
// A classification still running for the old upload will not be stored.
func (s *Session) SetUpload(u *Upload) {
	s.mu.Lock()
	s.upload = u
	s.result = nil
	s.generation++
	s.mu.Unlock()
}

// Upload returns the pending upload and the generation it belongs to.
func (s *Session) Upload() (*Upload, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.upload, s.generation
}

// StoreResult keeps res only if no navigation, reset or new upload happened
// since gen.
func (s *Session) StoreResult(gen uint64, res diagnosis.Result) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		return false
	}
	s.result = &res
	return true
}

// Result returns the last stored prediction, if any.
func (s *Session) Result() (diagnosis.Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.result == nil {
		return diagnosis.Result{}, false
	}
	return *s.result, true
}
