package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/herbalscanner/backend/internal/domain"
)

var errDiskFull = errors.New("disk full")

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// MockKeyValueStore is a mock implementation of domain.KeyValueStore
type MockKeyValueStore struct {
	data     map[string][]byte
	getError error
	setError error
	getCalls int
	setCalls int
}

func NewMockKeyValueStore() *MockKeyValueStore {
	return &MockKeyValueStore{
		data: make(map[string][]byte),
	}
}

func (m *MockKeyValueStore) Get(ctx context.Context, key string) ([]byte, error) {
	m.getCalls++
	if m.getError != nil {
		return nil, m.getError
	}
	if value, ok := m.data[key]; ok {
		return append([]byte(nil), value...), nil
	}
	return nil, domain.ErrKeyNotFound
}

func (m *MockKeyValueStore) Set(ctx context.Context, key string, value []byte) error {
	m.setCalls++
	if m.setError != nil {
		return m.setError
	}
	m.data[key] = append([]byte(nil), value...)
	return nil
}

func (m *MockKeyValueStore) Delete(ctx context.Context, key string) error {
	delete(m.data, key)
	return nil
}

// MockSessionProvider is a mock implementation of domain.SessionProvider
type MockSessionProvider struct {
	user *domain.User
	err  error
}

func (m *MockSessionProvider) CurrentSession(ctx context.Context) (*domain.User, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.user == nil {
		return nil, domain.ErrNotAuthenticated
	}
	u := *m.user
	return &u, nil
}

// MockPredictionClient is a mock implementation of domain.PredictionClient
type MockPredictionClient struct {
	prediction *domain.Prediction
	err        error
	calls      []string
}

func (m *MockPredictionClient) Predict(ctx context.Context, imageRef string) (*domain.Prediction, error) {
	m.calls = append(m.calls, imageRef)
	if m.err != nil {
		return nil, m.err
	}
	p := *m.prediction
	return &p, nil
}

// MockPlantCatalog is a mock implementation of domain.PlantCatalog
type MockPlantCatalog struct {
	plants []domain.PlantProfile
}

func (m *MockPlantCatalog) All() []domain.PlantProfile {
	out := make([]domain.PlantProfile, len(m.plants))
	for i, p := range m.plants {
		out[i] = p.Clone()
	}
	return out
}

func (m *MockPlantCatalog) Get(id string) (domain.PlantProfile, error) {
	for _, p := range m.plants {
		if p.ID == id {
			return p.Clone(), nil
		}
	}
	return domain.PlantProfile{}, domain.ErrPlantNotFound
}

func (m *MockPlantCatalog) Search(query string) []domain.PlantProfile {
	q := strings.ToLower(query)
	var out []domain.PlantProfile
	for _, p := range m.plants {
		if strings.Contains(strings.ToLower(p.CommonName), q) {
			out = append(out, p.Clone())
		}
	}
	return out
}

func testLibrary() []domain.PlantProfile {
	return []domain.PlantProfile{
		{
			ID:                 "tulsi",
			CommonName:         "Holy Basil (Tulsi)",
			ScientificName:     "Ocimum tenuiflorum",
			Family:             "Lamiaceae",
			ImageURL:           "catalog/tulsi.jpg",
			MedicinalUses:      []string{"Adaptogen", "Respiratory support"},
			CulinaryUses:       []string{"Herbal tea"},
			ActiveConstituents: []string{"Eugenol"},
			SafetyPrecautions:  []string{"May lower blood sugar"},
			Contraindications:  []string{"Pregnancy"},
		},
		{
			ID:                 "neem",
			CommonName:         "Neem",
			ScientificName:     "Azadirachta indica",
			Family:             "Meliaceae",
			ImageURL:           "catalog/neem.jpg",
			MedicinalUses:      []string{"Skin conditions"},
			CulinaryUses:       []string{},
			ActiveConstituents: []string{"Azadirachtin"},
			SafetyPrecautions:  []string{"Not for infants"},
			Contraindications:  []string{"Pregnancy"},
		},
		{
			ID:                 "ginger",
			CommonName:         "Ginger",
			ScientificName:     "Zingiber officinale",
			Family:             "Zingiberaceae",
			ImageURL:           "catalog/ginger.jpg",
			MedicinalUses:      []string{"Nausea"},
			CulinaryUses:       []string{"Spice"},
			ActiveConstituents: []string{"Gingerol"},
			SafetyPrecautions:  []string{"May thin blood"},
			Contraindications:  []string{"Gallstones"},
		},
		{
			ID:                 "wild-ginger",
			CommonName:         "Wild Ginger",
			ScientificName:     "Asarum canadense",
			Family:             "Aristolochiaceae",
			ImageURL:           "catalog/wild-ginger.jpg",
			MedicinalUses:      []string{},
			CulinaryUses:       []string{},
			ActiveConstituents: []string{},
			SafetyPrecautions:  []string{},
			Contraindications:  []string{},
		},
	}
}
