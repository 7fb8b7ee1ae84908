package domain

import "context"

// Role distinguishes a guest session from a signed-in user.
type Role string

// Session roles.
const (
	RoleGuest         Role = "guest"
	RoleAuthenticated Role = "authenticated"
)

// Identity is the current user as seen by this client.
// swagger:model Identity
type Identity struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role Role   `json:"role"`
}

// GuestID and GuestName identify the synthetic guest session.
const (
	GuestID   = "guest"
	GuestName = "Guest"
)

// GuestIdentity returns the synthetic, non-persisted guest identity.
func GuestIdentity() Identity {
	return Identity{ID: GuestID, Name: GuestName, Role: RoleGuest}
}

// IsGuest reports whether the identity is a guest.
func (i Identity) IsGuest() bool { return i.Role != RoleAuthenticated }

// Ref returns the identity as a UserRef.
func (i Identity) Ref() UserRef { return UserRef{ID: i.ID, Name: i.Name} }

// Session is the identity plus its opaque bearer credential. It is built once at startup
// and handed to the components that need it.
type Session struct {
	Identity   Identity
	Credential string
}

// NewGuestSession returns a guest session with no credential.
func NewGuestSession() *Session {
	return &Session{Identity: GuestIdentity()}
}

// NewAuthenticatedSession returns a session for a signed-in user.
func NewAuthenticatedSession(id, name, credential string) *Session {
	return &Session{
		Identity:   Identity{ID: id, Name: name, Role: RoleAuthenticated},
		Credential: credential,
	}
}

// BearerCredential returns the credential for authenticated sessions and "" for guests.
func (s *Session) BearerCredential() string {
	if s == nil || s.Identity.IsGuest() {
		return ""
	}
	return s.Credential
}

// SessionRepository persists sessions under a caller-chosen key.
type SessionRepository interface {
	Get(ctx context.Context, key string) (*Session, error)
	Save(ctx context.Context, key string, session *Session) error
	Delete(ctx context.Context, key string) error
}

// CredentialReader derives an identity from a bearer credential.
type CredentialReader interface {
	IdentityFromToken(token string) (Identity, error)
}
