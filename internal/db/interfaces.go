package db

import (
	"context"

	"codequest-backend-go/internal/models"
)

// ProfileSnapshot is one observation of a user's profile document as
// delivered by the live subscription. Exists is false when the
// document has not been created yet; Raw is nil in that case.
type ProfileSnapshot struct {
	Exists bool
	Raw    *models.RawProfileDocument
	Err    error
}

// ProfileRepository defines the storage operations for the single
// per-user profile document. Implementations must surface write
// failures to the caller; nothing is silently dropped.
type ProfileRepository interface {
	// Create writes a brand-new profile document. Fails if one
	// already exists for the UID.
	Create(ctx context.Context, profile *models.UserProfile) error

	// GetByID fetches the raw document, or ErrNotFound.
	GetByID(ctx context.Context, uid string) (*models.RawProfileDocument, error)

	// Update applies a partial field update to an existing document.
	Update(ctx context.Context, uid string, updates []ProfileUpdate) error

	// Watch establishes a live subscription to the document and sends
	// successive snapshots on the returned channel until ctx is
	// cancelled. The channel is closed on teardown, so a stale user's
	// snapshot is never delivered after cancellation.
	Watch(ctx context.Context, uid string) (<-chan ProfileSnapshot, error)

	// ListProfiles returns up to limit raw profile documents, for
	// admin aggregation.
	ListProfiles(ctx context.Context, limit int) ([]*models.RawProfileDocument, error)
}

// UpdateOp selects how a field-path mutation is applied.
type UpdateOp int

const (
	// OpSet overwrites the field with Value.
	OpSet UpdateOp = iota
	// OpIncrement adds Value (an int) to the numeric field server-side.
	OpIncrement
	// OpArrayUnion appends Value (a string) to the array field if absent.
	OpArrayUnion
)

// ProfileUpdate is one field-path mutation within a partial update.
// The Firestore implementation maps OpIncrement and OpArrayUnion to the
// store's server-side transforms; fakes in tests interpret them directly.
type ProfileUpdate struct {
	Path  string
	Op    UpdateOp
	Value interface{}
}
