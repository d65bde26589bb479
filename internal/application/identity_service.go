package application

import (
	"context"
	"fmt"
	"strings"
)

// IdentityService resolves opaque identity tokens to principals. Tokens carry
// the person id directly; the roster supplies the role. Full credential
// handling is expected to live at the gateway in front of this service.
type IdentityService struct {
	roster RosterDirectory
}

// NewIdentityService wires the roster lookup used during resolution.
func NewIdentityService(roster RosterDirectory) *IdentityService {
	return &IdentityService{roster: roster}
}

// Resolve maps a token to the principal it identifies. Unknown or malformed
// tokens resolve to ErrUnauthorized.
func (s *IdentityService) Resolve(ctx context.Context, token string) (Principal, error) {
	if s == nil || s.roster == nil {
		return Principal{}, fmt.Errorf("roster directory not configured")
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return Principal{}, ErrUnauthorized
	}

	person, err := s.roster.GetPerson(ctx, token)
	if err != nil {
		if isNotFoundError(err) {
			return Principal{}, ErrUnauthorized
		}
		return Principal{}, err
	}

	role := Role(person.Role)
	if !role.Valid() {
		return Principal{}, ErrUnauthorized
	}
	return Principal{UserID: person.ID, Role: role}, nil
}
