package media

import "sync"

// Session owns one live audio or video stream handle and its lifecycle
// state. Sessions are created by an [Acquirer] and must be released exactly
// once; Release on an already-released session is a no-op.
//
// All methods are safe for concurrent use.
type Session struct {
	kind   Kind
	facing Facing

	mu     sync.Mutex
	stream Stream
	active bool
}

// Kind returns whether this is an audio or a video session.
func (s *Session) Kind() Kind { return s.kind }

// Facing returns the camera facing mode. Meaningful only for video sessions.
func (s *Session) Facing() Facing { return s.facing }

// Active reports whether the underlying stream is still live.
func (s *Session) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Audio returns the underlying audio stream, or nil for video sessions or
// released sessions.
func (s *Session) Audio() AudioStream {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return nil
	}
	as, _ := s.stream.(AudioStream)
	return as
}

// Video returns the underlying video stream, or nil for audio sessions or
// released sessions.
func (s *Session) Video() VideoStream {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return nil
	}
	vs, _ := s.stream.(VideoStream)
	return vs
}

// release stops every track and marks the session inactive. Idempotent.
func (s *Session) release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return
	}
	s.active = false
	s.stream.Stop()
}
