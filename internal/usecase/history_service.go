package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/herbalscanner/backend/internal/domain"
)

const (
	historyKeyPrefix = "herbalscanner:history:"

	// GuestPartition holds history recorded while nobody is logged in.
	// Real user ids are UUIDs so they never collide with it.
	GuestPartition = "guest"
)

// HistoryService owns the scan history of the current session's user.
//
// Every mutation rewrites the whole partition. The new sequence becomes
// visible only after the store accepted it, so a failed write leaves the
// previous history in place. Mutations are serialized by mu.
type HistoryService struct {
	store    domain.KeyValueStore
	sessions domain.SessionProvider
	logger   *slog.Logger

	mu    sync.Mutex
	cache map[string][]domain.ScanResult
}

// NewHistoryService creates a history service backed by store.
// sessions decides which partition each call operates on.
func NewHistoryService(store domain.KeyValueStore, sessions domain.SessionProvider, logger *slog.Logger) *HistoryService {
	if logger == nil {
		logger = slog.Default()
	}
	return &HistoryService{
		store:    store,
		sessions: sessions,
		logger:   logger.With("component", "history"),
		cache:    make(map[string][]domain.ScanResult),
	}
}

// HistoryKey returns the storage key of a user's partition
func HistoryKey(userID string) string {
	return historyKeyPrefix + userID
}

// Load returns the full history, newest first. A partition that was never
// written is empty, not an error.
func (s *HistoryService) Load(ctx context.Context) ([]domain.ScanResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, scans, err := s.current(ctx)
	if err != nil {
		return nil, err
	}
	return cloneScans(scans), nil
}

// Add prepends scan and persists the partition
func (s *HistoryService) Add(ctx context.Context, scan domain.ScanResult) error {
	if scan.ID == "" {
		return fmt.Errorf("%w: scan id is required", domain.ErrInvalidRequest)
	}

	return s.mutate(ctx, "add", scan.ID, func(scans []domain.ScanResult) ([]domain.ScanResult, error) {
		if indexOf(scans, scan.ID) >= 0 {
			return nil, fmt.Errorf("%w: duplicate scan id %s", domain.ErrInvalidRequest, scan.ID)
		}

		added := scan.Clone()
		added.PlantProfile.Normalize()

		next := make([]domain.ScanResult, 0, len(scans)+1)
		next = append(next, added)
		return append(next, scans...), nil
	})
}

// ToggleBookmark flips the bookmark flag of one scan and returns the updated scan
func (s *HistoryService) ToggleBookmark(ctx context.Context, id string) (*domain.ScanResult, error) {
	return s.update(ctx, "toggle_bookmark", id, func(scan *domain.ScanResult) {
		scan.IsBookmarked = !scan.IsBookmarked
	})
}

// UpdateNotes replaces the notes of one scan and returns the updated scan
func (s *HistoryService) UpdateNotes(ctx context.Context, id, notes string) (*domain.ScanResult, error) {
	return s.update(ctx, "update_notes", id, func(scan *domain.ScanResult) {
		scan.Notes = notes
	})
}

// Delete removes exactly one scan; the others keep their order
func (s *HistoryService) Delete(ctx context.Context, id string) error {
	return s.mutate(ctx, "delete", id, func(scans []domain.ScanResult) ([]domain.ScanResult, error) {
		i := indexOf(scans, id)
		if i < 0 {
			return nil, domain.ErrScanNotFound
		}

		next := make([]domain.ScanResult, 0, len(scans)-1)
		next = append(next, scans[:i]...)
		return append(next, scans[i+1:]...), nil
	})
}

// Bookmarked returns the bookmarked scans in history order
func (s *HistoryService) Bookmarked(ctx context.Context) ([]domain.ScanResult, error) {
	scans, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]domain.ScanResult, 0)
	for _, scan := range scans {
		if scan.IsBookmarked {
			out = append(out, scan)
		}
	}
	return out, nil
}

// Get returns one scan by id
func (s *HistoryService) Get(ctx context.Context, id string) (*domain.ScanResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, scans, err := s.current(ctx)
	if err != nil {
		return nil, err
	}

	i := indexOf(scans, id)
	if i < 0 {
		return nil, domain.ErrScanNotFound
	}
	scan := scans[i].Clone()
	return &scan, nil
}

// Stats summarizes the history for the profile screen
func (s *HistoryService) Stats(ctx context.Context) (*domain.HistoryStats, error) {
	scans, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}

	stats := &domain.HistoryStats{TotalScans: len(scans)}
	plants := make(map[string]struct{}, len(scans))
	for _, scan := range scans {
		if scan.IsBookmarked {
			stats.Bookmarks++
		}
		plants[scan.PlantProfile.CommonName] = struct{}{}
	}
	stats.UniquePlants = len(plants)

	return stats, nil
}

// update applies fn to a copy of the scan with the given id
func (s *HistoryService) update(ctx context.Context, op, id string, fn func(*domain.ScanResult)) (*domain.ScanResult, error) {
	var updated domain.ScanResult

	err := s.mutate(ctx, op, id, func(scans []domain.ScanResult) ([]domain.ScanResult, error) {
		i := indexOf(scans, id)
		if i < 0 {
			return nil, domain.ErrScanNotFound
		}

		next := make([]domain.ScanResult, len(scans))
		copy(next, scans)
		updated = next[i].Clone()
		fn(&updated)
		next[i] = updated
		return next, nil
	})
	if err != nil {
		return nil, err
	}

	out := updated.Clone()
	return &out, nil
}

// mutate computes the next sequence, persists it and only then publishes it
func (s *HistoryService) mutate(
	ctx context.Context,
	op, id string,
	fn func([]domain.ScanResult) ([]domain.ScanResult, error),
) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key, scans, err := s.current(ctx)
	if err != nil {
		return err
	}

	next, err := fn(scans)
	if err != nil {
		return err
	}

	data, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}

	if err := s.store.Set(ctx, key, data); err != nil {
		s.logger.Error("failed to persist history",
			"op", op,
			"scan_id", id,
			"partition", key,
			"error", err,
		)
		return fmt.Errorf("persist history: %w", err)
	}

	s.cache[key] = next
	s.logger.Info("history updated",
		"op", op,
		"scan_id", id,
		"partition", key,
		"size", len(next),
	)
	return nil
}

// current returns the partition key and cached sequence, loading it on first use.
// Callers must hold mu.
func (s *HistoryService) current(ctx context.Context) (string, []domain.ScanResult, error) {
	key, err := s.partitionKey(ctx)
	if err != nil {
		return "", nil, err
	}

	if scans, ok := s.cache[key]; ok {
		return key, scans, nil
	}

	scans, err := s.read(ctx, key)
	if err != nil {
		return "", nil, err
	}
	s.cache[key] = scans
	return key, scans, nil
}

func (s *HistoryService) partitionKey(ctx context.Context) (string, error) {
	user, err := s.sessions.CurrentSession(ctx)
	if errors.Is(err, domain.ErrNotAuthenticated) {
		return HistoryKey(GuestPartition), nil
	}
	if err != nil {
		return "", fmt.Errorf("resolve session: %w", err)
	}
	return HistoryKey(user.ID), nil
}

func (s *HistoryService) read(ctx context.Context, key string) ([]domain.ScanResult, error) {
	data, err := s.store.Get(ctx, key)
	if errors.Is(err, domain.ErrKeyNotFound) {
		return []domain.ScanResult{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	var scans []domain.ScanResult
	if err := json.Unmarshal(data, &scans); err != nil {
		return nil, fmt.Errorf("%w: decode history %s: %v", domain.ErrStorageUnavailable, key, err)
	}
	if scans == nil {
		scans = []domain.ScanResult{}
	}
	for i := range scans {
		scans[i].PlantProfile.Normalize()
	}

	s.logger.Debug("history loaded", "partition", key, "size", len(scans))
	return scans, nil
}

func indexOf(scans []domain.ScanResult, id string) int {
	for i := range scans {
		if scans[i].ID == id {
			return i
		}
	}
	return -1
}

func cloneScans(scans []domain.ScanResult) []domain.ScanResult {
	out := make([]domain.ScanResult, len(scans))
	for i, scan := range scans {
		out[i] = scan.Clone()
	}
	return out
}
