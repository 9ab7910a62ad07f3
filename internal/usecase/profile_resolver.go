package usecase

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/herbalscanner/backend/internal/domain"
)

// Boilerplate carried by a profile synthesized for an unknown plant
const (
	UnknownMedicinalNote    = "Detailed information not available for this plant"
	UnknownSafetyNote       = "Consult a qualified herbalist before use"
	UnknownContraindication = "Consult a healthcare professional"
)

// ProfileResolver turns a match-or-none outcome into a complete profile
type ProfileResolver struct {
	newID func() string
}

// NewProfileResolver creates a resolver that keys profiles with scan_<uuidv7>
func NewProfileResolver() *ProfileResolver {
	return &ProfileResolver{newID: NewScanID}
}

// NewScanID returns a time-ordered unique identifier prefixed with "scan_"
func NewScanID() string {
	id, err := uuid.NewV7()
	if err != nil {
		// V7 only fails when the random source does
		return "scan_" + uuid.NewString()
	}
	return "scan_" + id.String()
}

// Resolve never fails. A library match is cloned, re-keyed and pointed at the
// captured image. Without a match a placeholder profile carries the raw label.
func (r *ProfileResolver) Resolve(label string, match *domain.PlantProfile, imageRef string) domain.PlantProfile {
	if match != nil {
		profile := match.Clone()
		profile.Normalize()
		profile.ID = r.newID()
		profile.ImageURL = imageRef
		return profile
	}

	return domain.PlantProfile{
		ID:             r.newID(),
		CommonName:     label,
		ScientificName: domain.NotAvailable,
		Family:         domain.NotAvailable,
		ImageURL:       imageRef,
		OrganolepticCharacters: domain.OrganolepticCharacters{
			Taste:   domain.NotAvailable,
			Odor:    domain.NotAvailable,
			Texture: domain.NotAvailable,
			Color:   domain.NotAvailable,
		},
		MedicinalUses:      []string{UnknownMedicinalNote},
		CulinaryUses:       []string{},
		ActiveConstituents: []string{},
		SafetyPrecautions:  []string{UnknownSafetyNote},
		Contraindications:  []string{UnknownContraindication},
		Habitat:            domain.NotAvailable,
		Distribution:       domain.NotAvailable,
		Description: fmt.Sprintf(
			`This plant was identified as "%s" by the ML model. Detailed profile data is not yet available in the local database.`,
			label,
		),
	}
}
