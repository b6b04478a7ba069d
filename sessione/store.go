// Package sessione is the single source of truth for per-customer
// state: the cached user, the kitchen bearer token and the cart. A
// session is created at login and torn down at logout; nothing here
// survives a restart.
package sessione

import (
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/taldoflemis/trattoria/carrello"
	"github.com/taldoflemis/trattoria/cucina"
)

type Session struct {
	ID        string
	User      cucina.User
	Token     string
	Cart      *carrello.Cart
	CreatedAt time.Time

	mu      sync.Mutex
	placing bool
}

func (s *Session) IsAdmin() bool {
	return s.User.IsAdmin
}

// StartCheckout is the single-flight guard around order submission: it
// returns false while another placement on this session is in flight.
// Cooperative only; the backend remains the serialization point.
func (s *Session) StartCheckout() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.placing {
		return false
	}
	s.placing = true
	return true
}

func (s *Session) FinishCheckout() {
	s.mu.Lock()
	s.placing = false
	s.mu.Unlock()
}

type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	now      func() time.Time
}

func NewStore() *Store {
	return &Store{
		sessions: make(map[string]*Session),
		now:      time.Now,
	}
}

// Begin creates a session with a fresh empty cart and returns it. The
// id doubles as the cookie value handed to the browser.
func (st *Store) Begin(user cucina.User, token string) *Session {
	session := &Session{
		ID:        uuid.NewString(),
		User:      user,
		Token:     token,
		Cart:      carrello.New(),
		CreatedAt: st.now(),
	}

	st.mu.Lock()
	st.sessions[session.ID] = session
	st.mu.Unlock()
	return session
}

// Get looks a session up by id. A session whose bearer token has
// expired is treated as gone and removed, so the caller sees the same
// thing a backend 401 would force anyway.
func (st *Store) Get(id string) (*Session, bool) {
	st.mu.RLock()
	session, ok := st.sessions[id]
	st.mu.RUnlock()
	if !ok {
		return nil, false
	}

	if exp, ok := tokenExpiry(session.Token); ok && !st.now().Before(exp) {
		st.End(session.ID)
		return nil, false
	}
	return session, true
}

// End clears the cart and drops the session. Safe to call twice.
func (st *Store) End(id string) {
	st.mu.Lock()
	session, ok := st.sessions[id]
	delete(st.sessions, id)
	st.mu.Unlock()

	if ok {
		session.Cart.Clear()
	}
}

func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// tokenExpiry reads the exp claim without verifying the signature; the
// kitchen owns the key and verifies on every call. A token that is not
// a JWT simply has no client-side expiry.
func tokenExpiry(token string) (time.Time, bool) {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return time.Time{}, false
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
