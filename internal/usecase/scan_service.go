package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/herbalscanner/backend/internal/domain"
)

// ScanService runs the identification pipeline for one captured image
type ScanService struct {
	predictor domain.PredictionClient
	catalog   domain.PlantCatalog
	matcher   *MatchingService
	resolver  *ProfileResolver
	history   *HistoryService
	logger    *slog.Logger
	now       func() time.Time
	newID     func() string
}

// NewScanService wires the pipeline
func NewScanService(
	predictor domain.PredictionClient,
	catalog domain.PlantCatalog,
	history *HistoryService,
	logger *slog.Logger,
) *ScanService {
	if logger == nil {
		logger = slog.Default()
	}

	return &ScanService{
		predictor: predictor,
		catalog:   catalog,
		matcher:   NewMatchingService(logger),
		resolver:  NewProfileResolver(),
		history:   history,
		logger:    logger.With("component", "scan"),
		now:       time.Now,
		newID:     NewScanID,
	}
}

// Identify sends the image to the classifier, resolves the label against the
// library and records the scan at the head of the current user's history.
// Flow: predict -> round confidence -> match -> resolve -> history.Add
//
// Classifier errors are returned unchanged. An unknown plant is not an error.
func (s *ScanService) Identify(ctx context.Context, imageRef string) (*domain.ScanResult, error) {
	if imageRef == "" {
		return nil, fmt.Errorf("%w: image reference is required", domain.ErrInvalidRequest)
	}

	prediction, err := s.predictor.Predict(ctx, imageRef)
	if err != nil {
		s.logger.Warn("prediction failed", "image", imageRef, "error", err)
		return nil, err
	}

	confidence := math.Round(prediction.Confidence)
	s.logger.Info("prediction received", "label", prediction.Label, "confidence", confidence)

	match, found := s.matcher.FindMatch(prediction.Label, s.catalog.All())
	if !found {
		s.logger.Info("no library entry for label, synthesizing profile", "label", prediction.Label)
	}

	scan := domain.ScanResult{
		ID:           s.newID(),
		PlantProfile: s.resolver.Resolve(prediction.Label, match, imageRef),
		Confidence:   confidence,
		ScannedAt:    s.now().UTC().Format(domain.TimestampLayout),
		ImageURI:     imageRef,
		Notes:        "",
		IsBookmarked: false,
	}

	if err := s.history.Add(ctx, scan); err != nil {
		return nil, fmt.Errorf("record scan: %w", err)
	}

	return &scan, nil
}
