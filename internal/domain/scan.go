package domain

// TimestampLayout renders UTC instants with millisecond precision, e.g. 2024-05-01T09:30:00.000Z
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Confidence tiers used when presenting a scan
const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
	ConfidenceLow    = "low"
)

// Prediction is the canonical answer of the remote classifier
type Prediction struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"` // 0-100, as supplied by the classifier
}

// ScanResult is one identification event stored in a user's history
type ScanResult struct {
	ID           string       `json:"id"`
	PlantProfile PlantProfile `json:"plantProfile"`
	Confidence   float64      `json:"confidence"`
	ScannedAt    string       `json:"scannedAt"` // RFC 3339, UTC
	ImageURI     string       `json:"imageUri"`
	Notes        string       `json:"notes"`
	IsBookmarked bool         `json:"isBookmarked"`
}

// ConfidenceLevel buckets the confidence score for display
func (s ScanResult) ConfidenceLevel() string {
	switch {
	case s.Confidence >= 80:
		return ConfidenceHigh
	case s.Confidence >= 50:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// Clone returns a copy whose profile shares no slices with s
func (s ScanResult) Clone() ScanResult {
	c := s
	c.PlantProfile = s.PlantProfile.Clone()
	return c
}

// HistoryStats summarizes a history partition
type HistoryStats struct {
	TotalScans   int `json:"totalScans"`
	Bookmarks    int `json:"bookmarks"`
	UniquePlants int `json:"uniquePlants"`
}
