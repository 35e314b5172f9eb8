package auth

import (
	"context"
	"time"

	"github.com/phrazzld/temba-api/internal/domain"
)

// JWTService issues and validates the bearer tokens API clients send.
type JWTService interface {
	// GenerateToken creates a signed token acting as userID within orgID.
	GenerateToken(ctx context.Context, userID domain.UserID, orgID domain.OrgID) (string, error)

	// ValidateToken checks the signature and lifetime of tokenString and
	// returns its claims.
	ValidateToken(ctx context.Context, tokenString string) (*Claims, error)
}

// Claims are the application claims of a validated token.
type Claims struct {
	UserID domain.UserID
	OrgID  domain.OrgID

	Subject   string
	IssuedAt  time.Time
	ExpiresAt time.Time
	ID        string
}
