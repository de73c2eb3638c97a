package domain

import (
	"context"
	"errors"
	"log/slog"
)

// User is an account as known to the identity provider.
type User struct {
	UID           string `json:"uid"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"emailVerified"`
	DisplayName   string `json:"displayName,omitempty"`
}

// IdentityProvider looks up reporting accounts.
type IdentityProvider interface {
	// GetUser returns the account for uid, or an error wrapping ErrNotFound.
	GetUser(ctx context.Context, uid string) (User, error)
}

var errNoIdentityProvider = errors.New("identity provider not configured")

// ResolveReporterEmail returns the email of the reporting account. When the
// input has no uid the raw email is used as is; when the lookup fails the raw
// email is substituted and the outcome is degraded.
func ResolveReporterEmail(ctx context.Context, idp IdentityProvider, in ReportInput, logger *slog.Logger) Outcome[string] {
	if in.UID == "" {
		return OK(in.Email)
	}
	if idp == nil {
		return Degraded(in.Email, errNoIdentityProvider)
	}

	user, err := idp.GetUser(ctx, in.UID)
	if err != nil {
		logger.Warn("identity lookup failed, using submitted email",
			"uid", in.UID,
			"error", err,
		)
		return Degraded(in.Email, err)
	}
	return OK(user.Email)
}
