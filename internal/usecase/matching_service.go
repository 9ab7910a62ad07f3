package usecase

import (
	"log/slog"
	"strings"

	"github.com/herbalscanner/backend/internal/domain"
)

// MatchingService maps a free-text classifier label onto the plant library
type MatchingService struct {
	logger *slog.Logger
}

// NewMatchingService creates a matcher; a nil logger falls back to slog.Default
func NewMatchingService(logger *slog.Logger) *MatchingService {
	if logger == nil {
		logger = slog.Default()
	}
	return &MatchingService{logger: logger.With("component", "matcher")}
}

// FindMatch returns a copy of the first plant, in library order, that the label
// qualifies for. There is no ranking: when several plants qualify the earliest wins.
//
// With label normalized to lowercase and trimmed, a plant qualifies when
//   - its lowercased common name contains the label
//   - the label contains the common name cut at the first "(" (e.g. "holy basil")
//   - its lowercased scientific name contains the label
//   - the label contains the first space-separated token of the scientific name (the genus)
func (s *MatchingService) FindMatch(label string, plants []domain.PlantProfile) (*domain.PlantProfile, bool) {
	normalized := strings.ToLower(strings.TrimSpace(label))

	for i := range plants {
		if rule := matchRule(normalized, &plants[i]); rule != "" {
			match := plants[i].Clone()
			s.logger.Debug("library match",
				"label", label,
				"plant_id", match.ID,
				"common_name", match.CommonName,
				"rule", rule,
			)
			return &match, true
		}
	}

	s.logger.Debug("no library match", "label", label, "candidates", len(plants))
	return nil, false
}

// matchRule reports which rule made the plant qualify, or "" if none did
func matchRule(normalized string, p *domain.PlantProfile) string {
	common := strings.ToLower(p.CommonName)
	scientific := strings.ToLower(p.ScientificName)

	switch {
	case strings.Contains(common, normalized):
		return "common_name_contains_label"
	case strings.Contains(normalized, commonAlias(common)):
		return "label_contains_common_alias"
	case strings.Contains(scientific, normalized):
		return "scientific_name_contains_label"
	case strings.Contains(normalized, genus(scientific)):
		return "label_contains_genus"
	default:
		return ""
	}
}

// commonAlias drops any parenthetical suffix: "holy basil (tulsi)" -> "holy basil"
func commonAlias(common string) string {
	if i := strings.Index(common, "("); i >= 0 {
		common = common[:i]
	}
	return strings.TrimSpace(common)
}

// genus is the text before the first space; the whole name when there is none
func genus(scientific string) string {
	return strings.SplitN(scientific, " ", 2)[0]
}
