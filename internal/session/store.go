// Package session owns the authenticated-identity lifecycle: it tracks who
// is signed in, resolves their application profile, and exposes the result
// as a single subscribable state object.
package session

import (
	"context"
	"log"
	"sync"

	"github.com/rkgupta29/assignment-story-creation-app/internal/auth"
	"github.com/rkgupta29/assignment-story-creation-app/internal/docstore"
	"github.com/rkgupta29/assignment-story-creation-app/internal/types"
)

// Collections consulted during profile resolution, in order. The first hit
// wins; a ghost record in a later collection is never consulted.
const (
	CandidatesCollection    = "candidates"
	OrganizationsCollection = "organizations"
)

// AuthGateway is the slice of the auth service the session store needs.
type AuthGateway interface {
	SignOut(ctx context.Context) error
	OnAuthStateChange(cb auth.StateListener) auth.Unsubscribe
}

// State is the renderable session snapshot. "Authenticated with a nil
// profile" is a valid, displayable state, not an error state.
type State struct {
	Loading         bool
	IsAuthenticated bool
	Credential      *types.Credential
	Profile         *types.Profile
	Error           string
}

// Store is the session state store. One instance per composition root; all
// teardown goes through Close rather than package-level globals.
type Store struct {
	gateway AuthGateway
	docs    docstore.Store

	mu          sync.Mutex
	state       State
	initialized bool
	unsubscribe auth.Unsubscribe

	watchers    map[int]func(State)
	nextWatchID int
}

// NewStore creates a session store wired to the auth gateway and the
// document store used for profile resolution.
func NewStore(gateway AuthGateway, docs docstore.Store) *Store {
	return &Store{
		gateway:  gateway,
		docs:     docs,
		state:    State{Loading: true},
		watchers: make(map[int]func(State)),
	}
}

// Initialize subscribes to the auth-state feed. Idempotent: calls after the
// first are no-ops.
func (s *Store) Initialize(ctx context.Context) {
	s.mu.Lock()
	if s.initialized {
		s.mu.Unlock()
		return
	}
	s.initialized = true
	s.state.Loading = true
	s.mu.Unlock()

	unsub := s.gateway.OnAuthStateChange(func(cred *types.Credential) {
		s.onCredentialChanged(ctx, cred)
	})

	s.mu.Lock()
	s.unsubscribe = unsub
	s.mu.Unlock()
}

// onCredentialChanged is the feed callback. A nil credential clears the
// session synchronously; a non-nil credential marks the session
// authenticated and resolves the profile.
func (s *Store) onCredentialChanged(ctx context.Context, cred *types.Credential) {
	if cred == nil {
		s.setState(func(st *State) {
			st.IsAuthenticated = false
			st.Credential = nil
			st.Profile = nil
			st.Loading = false
			st.Error = ""
		})
		return
	}

	s.setState(func(st *State) {
		st.IsAuthenticated = true
		st.Credential = cred
		st.Error = ""
		st.Loading = true
	})
	s.FetchUserProfile(ctx, cred)
}

// FetchUserProfile resolves the profile for a credential and publishes the
// result. Resolution failures degrade to a synthesized minimal profile; they
// never propagate to callers.
func (s *Store) FetchUserProfile(ctx context.Context, cred *types.Credential) {
	profile, err := s.resolveProfile(ctx, cred)
	if err != nil {
		log.Printf("[session] profile resolution failed for %s: %v", cred.ID, err)
		profile = synthesizeProfile(cred)
	}
	s.setState(func(st *State) {
		st.Profile = profile
		st.Loading = false
	})
}

// resolveProfile tries the candidate collection first, then organizations.
// No hit in either synthesizes a minimal profile from the credential.
func (s *Store) resolveProfile(ctx context.Context, cred *types.Credential) (*types.Profile, error) {
	if doc, err := s.docs.Get(ctx, CandidatesCollection, cred.ID); err != nil {
		return nil, err
	} else if doc != nil {
		var cp types.CandidateProfile
		if err := docstore.Decode(doc, &cp); err != nil {
			return nil, err
		}
		fullName := cp.FullName
		if fullName == "" {
			fullName = cred.DisplayName
		}
		return &types.Profile{
			ID:            cred.ID,
			Type:          types.AccountCandidate,
			Email:         cred.Email,
			EmailVerified: cred.EmailVerified,
			Candidate:     &types.Candidate{FullName: fullName},
			CreatedAt:     cp.CreatedAt,
			UpdatedAt:     cp.UpdatedAt,
		}, nil
	}

	if doc, err := s.docs.Get(ctx, OrganizationsCollection, cred.ID); err != nil {
		return nil, err
	} else if doc != nil {
		var org struct {
			CompanyName string `json:"company_name"`
			WebsiteURL  string `json:"website_url"`
		}
		if err := docstore.Decode(doc, &org); err != nil {
			return nil, err
		}
		return &types.Profile{
			ID:            cred.ID,
			Type:          types.AccountOrganization,
			Email:         cred.Email,
			EmailVerified: cred.EmailVerified,
			Organization:  &types.Organization{CompanyName: org.CompanyName, WebsiteURL: org.WebsiteURL},
		}, nil
	}

	return synthesizeProfile(cred), nil
}

// synthesizeProfile builds the minimal fallback profile shown when no
// profile document exists yet.
func synthesizeProfile(cred *types.Credential) *types.Profile {
	name := cred.DisplayName
	if name == "" {
		name = "User"
	}
	return &types.Profile{
		ID:            cred.ID,
		Type:          types.AccountCandidate,
		Email:         cred.Email,
		EmailVerified: cred.EmailVerified,
		Candidate:     &types.Candidate{FullName: name},
	}
}

// SignOut invokes the gateway sign-out. On failure the identity state is
// left untouched and the error is surfaced; a failed remote sign-out must
// never silently log the user out locally.
func (s *Store) SignOut(ctx context.Context) {
	s.setState(func(st *State) { st.Loading = true })

	if err := s.gateway.SignOut(ctx); err != nil {
		s.setState(func(st *State) {
			st.Error = auth.FormatAuthError(err)
			st.Loading = false
		})
		return
	}

	// Success: the gateway broadcasts the nil credential, which clears the
	// session through onCredentialChanged. Clear here as well so callers
	// that have not initialized the feed still observe the transition.
	s.setState(func(st *State) {
		st.IsAuthenticated = false
		st.Credential = nil
		st.Profile = nil
		st.Loading = false
	})
}

// ClearError clears the error without other side effects.
func (s *Store) ClearError() {
	s.setState(func(st *State) { st.Error = "" })
}

// State returns a snapshot of the current session state.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Watch registers a callback fired with every state change. The callback
// runs synchronously with the mutation that caused it.
func (s *Store) Watch(cb func(State)) func() {
	s.mu.Lock()
	id := s.nextWatchID
	s.nextWatchID++
	s.watchers[id] = cb
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.watchers, id)
			s.mu.Unlock()
		})
	}
}

// Close tears down the auth-feed subscription. Safe to call more than once.
func (s *Store) Close() {
	s.mu.Lock()
	unsub := s.unsubscribe
	s.unsubscribe = nil
	s.mu.Unlock()
	if unsub != nil {
		unsub()
	}
}

func (s *Store) setState(mutate func(*State)) {
	s.mu.Lock()
	mutate(&s.state)
	snapshot := s.state
	watchers := make([]func(State), 0, len(s.watchers))
	for _, cb := range s.watchers {
		watchers = append(watchers, cb)
	}
	s.mu.Unlock()
	for _, cb := range watchers {
		cb(snapshot)
	}
}
