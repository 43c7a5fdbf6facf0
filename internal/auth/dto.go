package auth

import (
	"time"

	"github.com/google/uuid"

	"github.com/minimartapp/minimart-backend/pkg/enums"
)

// RegisterInput captures a new owner sign-up.
type RegisterInput struct {
	FullName string
	Email    string
	Password string
}

// LoginInput captures a credential check for either auth path.
type LoginInput struct {
	Email    string
	Password string
}

// TokenPair is the credential set handed to a signed-in caller.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Identity is the resolved caller handed back alongside tokens.
type Identity struct {
	UserID    uuid.UUID        `json:"user_id"`
	Email     string           `json:"email"`
	FullName  string           `json:"full_name"`
	Role      enums.MemberRole `json:"role"`
	StoreID   *uuid.UUID       `json:"store_id,omitempty"`
	StoreName string           `json:"store_name,omitempty"`
}

// AuthResult bundles the identity with its session tokens.
type AuthResult struct {
	Identity Identity  `json:"identity"`
	Tokens   TokenPair `json:"tokens"`
}

// RegisterResult carries the pending identity plus the verification token
// for the delivery layer. The API response never includes the token; the
// account stays locked until it is confirmed.
type RegisterResult struct {
	Identity              Identity
	VerificationToken     string
	VerificationExpiresAt time.Time
}
