package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rkgupta29/assignment-story-creation-app/internal/config"
	"github.com/rkgupta29/assignment-story-creation-app/internal/docstore"
	"github.com/rkgupta29/assignment-story-creation-app/internal/types"
)

// CredentialsCollection is where credential documents live. Password hashes
// never leave this package.
const CredentialsCollection = "credentials"

// StateListener receives the new credential on sign-in and nil on sign-out.
type StateListener func(cred *types.Credential)

// Unsubscribe removes a state listener. Safe to call more than once.
type Unsubscribe func()

type credentialDoc struct {
	Email         string `json:"email"`
	DisplayName   string `json:"display_name,omitempty"`
	EmailVerified bool   `json:"email_verified"`
	PasswordHash  string `json:"password_hash"`
	ResetCode     string `json:"reset_code,omitempty"`
	CreatedAt     string `json:"created_at"`
	UpdatedAt     string `json:"updated_at"`
}

// Service is the auth gateway. It stores credentials in the document store
// and broadcasts auth-state transitions to registered listeners.
type Service struct {
	store    docstore.Store
	password *config.PasswordConfig
	tokens   *JWTService

	mu         sync.Mutex
	listeners  map[int]StateListener
	nextListID int
}

// NewService creates the auth gateway.
func NewService(store docstore.Store, password *config.PasswordConfig, tokens *JWTService) *Service {
	return &Service{
		store:     store,
		password:  password,
		tokens:    tokens,
		listeners: make(map[int]StateListener),
	}
}

// OnAuthStateChange registers a listener for sign-in/sign-out transitions.
func (s *Service) OnAuthStateChange(cb StateListener) Unsubscribe {
	s.mu.Lock()
	id := s.nextListID
	s.nextListID++
	s.listeners[id] = cb
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

func (s *Service) broadcast(cred *types.Credential) {
	s.mu.Lock()
	listeners := make([]StateListener, 0, len(s.listeners))
	for _, cb := range s.listeners {
		listeners = append(listeners, cb)
	}
	s.mu.Unlock()
	for _, cb := range listeners {
		cb(cred)
	}
}

// SignUp registers a new credential, broadcasts the signed-in state, and
// returns the credential. Duplicate emails are a typed error.
func (s *Service) SignUp(ctx context.Context, email, password, displayName string) (*types.Credential, error) {
	existing, err := s.findByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, &ErrEmailAlreadyExists{Email: email}
	}

	hash, err := s.password.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	id := uuid.NewString()
	doc, err := docstore.Encode(credentialDoc{
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return nil, err
	}
	if err := s.store.Set(ctx, CredentialsCollection, id, doc); err != nil {
		return nil, fmt.Errorf("failed to create credential: %w", err)
	}

	cred := &types.Credential{ID: id, Email: email, DisplayName: displayName}
	s.broadcast(cred)
	return cred, nil
}

// SignIn verifies the password and broadcasts the signed-in state.
func (s *Service) SignIn(ctx context.Context, email, password string) (*types.Credential, error) {
	snap, err := s.findSnapshotByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if snap == nil {
		return nil, &ErrInvalidCredentials{}
	}

	var doc credentialDoc
	if err := docstore.Decode(snap.Data, &doc); err != nil {
		return nil, err
	}
	if !s.password.VerifyPassword(password, doc.PasswordHash) {
		return nil, &ErrInvalidCredentials{}
	}

	cred := &types.Credential{
		ID:            snap.ID,
		Email:         doc.Email,
		DisplayName:   doc.DisplayName,
		EmailVerified: doc.EmailVerified,
	}
	s.broadcast(cred)
	return cred, nil
}

// SignOut broadcasts the signed-out state.
func (s *Service) SignOut(_ context.Context) error {
	s.broadcast(nil)
	return nil
}

// ResetPassword issues a reset code for the email and stores it on the
// credential. Delivery (email) is outside this service; the code is
// returned to the caller that owns delivery.
func (s *Service) ResetPassword(ctx context.Context, email string) (string, error) {
	snap, err := s.findSnapshotByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	if snap == nil {
		return "", &ErrCredentialNotFound{Key: email}
	}

	code := uuid.NewString()
	err = s.store.Update(ctx, CredentialsCollection, snap.ID, docstore.Document{
		"reset_code": code,
		"updated_at": time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return "", fmt.Errorf("failed to store reset code: %w", err)
	}
	return code, nil
}

// ConfirmPasswordReset redeems a reset code for a new password. The code is
// single-use: it is cleared on success.
func (s *Service) ConfirmPasswordReset(ctx context.Context, code, newPassword string) error {
	if code == "" {
		return &ErrInvalidResetCode{}
	}
	snaps, err := s.store.List(ctx, CredentialsCollection, docstore.Where("reset_code", code))
	if err != nil {
		return fmt.Errorf("failed to look up reset code: %w", err)
	}
	if len(snaps) == 0 {
		return &ErrInvalidResetCode{}
	}

	hash, err := s.password.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	err = s.store.Update(ctx, CredentialsCollection, snaps[0].ID, docstore.Document{
		"password_hash": hash,
		"reset_code":    "",
		"updated_at":    time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return nil
}

// GetCredential loads a credential by id, or (nil, nil) when absent.
func (s *Service) GetCredential(ctx context.Context, id string) (*types.Credential, error) {
	raw, err := s.store.Get(ctx, CredentialsCollection, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get credential: %w", err)
	}
	if raw == nil {
		return nil, nil
	}
	var doc credentialDoc
	if err := docstore.Decode(raw, &doc); err != nil {
		return nil, err
	}
	return &types.Credential{
		ID:            id,
		Email:         doc.Email,
		DisplayName:   doc.DisplayName,
		EmailVerified: doc.EmailVerified,
	}, nil
}

// Tokens exposes the token service for handlers and middleware.
func (s *Service) Tokens() *JWTService {
	return s.tokens
}

func (s *Service) findByEmail(ctx context.Context, email string) (*types.Credential, error) {
	snap, err := s.findSnapshotByEmail(ctx, email)
	if err != nil || snap == nil {
		return nil, err
	}
	var doc credentialDoc
	if err := docstore.Decode(snap.Data, &doc); err != nil {
		return nil, err
	}
	return &types.Credential{ID: snap.ID, Email: doc.Email, DisplayName: doc.DisplayName}, nil
}

func (s *Service) findSnapshotByEmail(ctx context.Context, email string) (*docstore.Snapshot, error) {
	snaps, err := s.store.List(ctx, CredentialsCollection, docstore.Where("email", email), docstore.Limit(1))
	if err != nil {
		return nil, fmt.Errorf("failed to look up email: %w", err)
	}
	if len(snaps) == 0 {
		return nil, nil
	}
	return &snaps[0], nil
}
