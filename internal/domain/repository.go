package domain

import "context"

// KeyValueStore persists opaque values under string keys.
// Get returns ErrKeyNotFound for keys that were never written or were deleted.
type KeyValueStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// PredictionClient sends an image to the remote classifier
type PredictionClient interface {
	Predict(ctx context.Context, imageRef string) (*Prediction, error)
}

// PlantCatalog is the bundled reference library.
// Every returned profile is a copy; callers may mutate it freely.
type PlantCatalog interface {
	All() []PlantProfile
	Get(id string) (PlantProfile, error)
	Search(query string) []PlantProfile
}

// SessionProvider reports the currently authenticated user.
// It returns ErrNotAuthenticated when nobody is logged in.
type SessionProvider interface {
	CurrentSession(ctx context.Context) (*User, error)
}
