package domain

// NotAvailable fills every field of a synthesized profile that the library cannot supply
const NotAvailable = "Not available"

// OrganolepticCharacters describes how a plant presents to the senses
type OrganolepticCharacters struct {
	Taste   string `json:"taste"`
	Odor    string `json:"odor"`
	Texture string `json:"texture"`
	Color   string `json:"color"`
}

// PlantProfile is the reference sheet for one plant species.
// List fields are always non-nil so they serialize as [] rather than null.
type PlantProfile struct {
	ID                     string                 `json:"id"`
	CommonName             string                 `json:"commonName"`
	ScientificName         string                 `json:"scientificName"`
	Family                 string                 `json:"family"`
	ImageURL               string                 `json:"imageUrl"`
	OrganolepticCharacters OrganolepticCharacters `json:"organolepticCharacters"`
	MedicinalUses          []string               `json:"medicinalUses"`
	CulinaryUses           []string               `json:"culinaryUses"`
	ActiveConstituents     []string               `json:"activeConstituents"`
	SafetyPrecautions      []string               `json:"safetyPrecautions"`
	Contraindications      []string               `json:"contraindications"`
	Habitat                string                 `json:"habitat"`
	Distribution           string                 `json:"distribution"`
	Description            string                 `json:"description"`
}

// Clone returns a deep copy that shares no slices with p
func (p PlantProfile) Clone() PlantProfile {
	c := p
	c.MedicinalUses = cloneStrings(p.MedicinalUses)
	c.CulinaryUses = cloneStrings(p.CulinaryUses)
	c.ActiveConstituents = cloneStrings(p.ActiveConstituents)
	c.SafetyPrecautions = cloneStrings(p.SafetyPrecautions)
	c.Contraindications = cloneStrings(p.Contraindications)
	return c
}

// Normalize replaces nil list fields with empty lists
func (p *PlantProfile) Normalize() {
	for _, list := range []*[]string{
		&p.MedicinalUses,
		&p.CulinaryUses,
		&p.ActiveConstituents,
		&p.SafetyPrecautions,
		&p.Contraindications,
	} {
		if *list == nil {
			*list = []string{}
		}
	}
}

func cloneStrings(s []string) []string {
	out := make([]string, len(s))
	copy(out, s)
	return out
}
