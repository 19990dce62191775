package model

import "context"

type ResultRepository interface {
	// Load returns the stored result for the session and domain, or nil when none exists.
	Load(ctx context.Context, sessionID string, domain Domain) (*StoredResult, error)

	// Save overwrites the stored result for result.Domain and refreshes the session TTL.
	Save(ctx context.Context, sessionID string, result *StoredResult) error

	// Delete removes the stored result for one domain.
	Delete(ctx context.Context, sessionID string, domain Domain) error

	// DeleteSession removes every stored result of the session.
	DeleteSession(ctx context.Context, sessionID string) error
}
