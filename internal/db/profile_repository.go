package db

import (
	"context"
	"errors"
	"fmt"
	"log"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"codequest-backend-go/internal/models"
)

const usersCollection = "users"

// ErrNotFound is a common error for when a document is not found in Firestore.
var ErrNotFound = errors.New("document not found")

// firestoreProfileRepository implements ProfileRepository using Firestore.
type firestoreProfileRepository struct {
	client *firestore.Client
}

// NewFirestoreProfileRepository creates a new instance of firestoreProfileRepository.
func NewFirestoreProfileRepository(client *firestore.Client) ProfileRepository {
	if client == nil {
		log.Fatal("Firestore client is not initialized for ProfileRepository.")
	}
	return &firestoreProfileRepository{client: client}
}

// Create adds a new profile document to Firestore. The profile's UID
// (Firebase Auth UID) is used as the Firestore document ID.
func (r *firestoreProfileRepository) Create(ctx context.Context, profile *models.UserProfile) error {
	if profile.UID == "" {
		return errors.New("profile UID cannot be empty for Create operation")
	}
	_, err := r.client.Collection(usersCollection).Doc(profile.UID).Create(ctx, profile)
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return fmt.Errorf("profile for UID '%s' already exists: %w", profile.UID, err)
		}
		return fmt.Errorf("failed to create profile for UID '%s': %w", profile.UID, err)
	}
	return nil
}

// GetByID retrieves a raw profile document from Firestore by UID.
func (r *firestoreProfileRepository) GetByID(ctx context.Context, uid string) (*models.RawProfileDocument, error) {
	if uid == "" {
		return nil, errors.New("uid cannot be empty for GetByID operation")
	}
	docSnap, err := r.client.Collection(usersCollection).Doc(uid).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("profile for UID '%s' not found: %w", uid, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get profile for UID '%s': %w", uid, err)
	}
	return decodeSnapshot(docSnap)
}

// Update applies a partial field update to an existing profile
// document. OpIncrement and OpArrayUnion map to Firestore's server-side
// transforms, so a coin debit and a progress-set union land atomically
// in a single write.
func (r *firestoreProfileRepository) Update(ctx context.Context, uid string, updates []ProfileUpdate) error {
	if uid == "" {
		return errors.New("uid cannot be empty for Update operation")
	}
	if len(updates) == 0 {
		return errors.New("no updates supplied for Update operation")
	}

	fsUpdates := make([]firestore.Update, 0, len(updates))
	for _, u := range updates {
		switch u.Op {
		case OpIncrement:
			n, ok := u.Value.(int)
			if !ok {
				return fmt.Errorf("OpIncrement on path '%s' requires an int value", u.Path)
			}
			fsUpdates = append(fsUpdates, firestore.Update{Path: u.Path, Value: firestore.Increment(n)})
		case OpArrayUnion:
			fsUpdates = append(fsUpdates, firestore.Update{Path: u.Path, Value: firestore.ArrayUnion(u.Value)})
		default:
			fsUpdates = append(fsUpdates, firestore.Update{Path: u.Path, Value: u.Value})
		}
	}

	_, err := r.client.Collection(usersCollection).Doc(uid).Update(ctx, fsUpdates)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return fmt.Errorf("profile for UID '%s' not found: %w", uid, ErrNotFound)
		}
		return fmt.Errorf("failed to update profile for UID '%s': %w", uid, err)
	}
	return nil
}

// Watch establishes a live snapshot subscription to the user's profile
// document. Snapshots are delivered on the returned channel until ctx
// is cancelled, after which the channel is closed; the receiving side
// never observes a snapshot delivered past teardown.
func (r *firestoreProfileRepository) Watch(ctx context.Context, uid string) (<-chan ProfileSnapshot, error) {
	if uid == "" {
		return nil, errors.New("uid cannot be empty for Watch operation")
	}

	iter := r.client.Collection(usersCollection).Doc(uid).Snapshots(ctx)
	out := make(chan ProfileSnapshot)

	go func() {
		defer close(out)
		defer iter.Stop()
		for {
			docSnap, err := iter.Next()
			if err != nil {
				// Context cancellation is normal teardown; anything
				// else is surfaced to the consumer before closing.
				if ctx.Err() != nil {
					return
				}
				select {
				case out <- ProfileSnapshot{Err: err}:
				case <-ctx.Done():
				}
				return
			}

			snap := ProfileSnapshot{Exists: docSnap.Exists()}
			if snap.Exists {
				raw, decodeErr := decodeSnapshot(docSnap)
				if decodeErr != nil {
					snap.Err = decodeErr
				} else {
					snap.Raw = raw
				}
			}
			select {
			case out <- snap:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

// ListProfiles returns up to limit raw profile documents for admin
// aggregation.
func (r *firestoreProfileRepository) ListProfiles(ctx context.Context, limit int) ([]*models.RawProfileDocument, error) {
	if limit <= 0 {
		return nil, errors.New("limit must be positive for ListProfiles operation")
	}
	docs, err := r.client.Collection(usersCollection).Limit(limit).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	profiles := make([]*models.RawProfileDocument, 0, len(docs))
	for _, docSnap := range docs {
		raw, decodeErr := decodeSnapshot(docSnap)
		if decodeErr != nil {
			return nil, decodeErr
		}
		profiles = append(profiles, raw)
	}
	return profiles, nil
}

func decodeSnapshot(docSnap *firestore.DocumentSnapshot) (*models.RawProfileDocument, error) {
	var raw models.RawProfileDocument
	if err := docSnap.DataTo(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode profile data for ID '%s': %w", docSnap.Ref.ID, err)
	}
	if raw.UID == "" {
		raw.UID = docSnap.Ref.ID
	}
	return &raw, nil
}
