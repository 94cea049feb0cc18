// Package refdata holds the consolidated reference data shared by input
// validation, feature encoding, and the category-listing endpoint. The table
// is immutable after load; all lookups are read-only.
package refdata

import (
	"errors"
	"os"

	"gopkg.in/yaml.v3"
)

// GenericRegion substitutes admin1 when a country has no known regions.
const GenericRegion = "Capital"

// Defaults are the documented substitution values for unrecognised categories.
type Defaults struct {
	Country   string `yaml:"country"`
	Admin1    string `yaml:"admin1"`
	EventType string `yaml:"eventType"`
	Actor     string `yaml:"actor"`
}

// Table is the versioned reference-data structure.
type Table struct {
	Version          int                 `yaml:"version"`
	EventTypes       []string            `yaml:"eventTypes"`
	Countries        []string            `yaml:"countries"`
	Actors           []string            `yaml:"actors"`
	RegionsByCountry map[string][]string `yaml:"regions"`
	Defaults         Defaults            `yaml:"defaults"`
}

// Default returns the compiled-in reference data derived from the training dataset.
func Default() *Table {
	return &Table{
		Version: 1,
		EventTypes: []string{
			"Violence against civilians",
			"Remote violence",
			"Battle-No change of territory",
			"Battle-Government regains territory",
			"Riots/Protests",
			"Non-violent transfer of territory",
			"Strategic development",
		},
		Countries: []string{
			"Algeria", "Angola", "Benin", "Botswana", "Burkina Faso",
			"Burundi", "Somalia", "Nigeria", "Sudan", "Ethiopia",
			"Kenya", "DR Congo",
		},
		Actors: []string{
			"GIA: Armed Islamic Group",
			"UNITA: National Union for the Total Independence of Angola",
			"Military Forces",
			"Hutu Rebels",
			"Boko Haram",
			"Al-Shabaab",
			"Civilians",
			"Government forces",
		},
		RegionsByCountry: map[string][]string{
			"Algeria":  {"Bordj Bou Arreridj", "Alger", "Mascara", "Medea", "Boumerdes", "Saida", "Blida", "Djelfa", "Tiaret", "Ain Defla"},
			"Somalia":  {"Mogadishu", "Kismayo", "Baidoa", "Galkayo"},
			"Nigeria":  {"Borno", "Lagos", "Abuja", "Kano", "Kaduna"},
			"Ethiopia": {"Addis Ababa", "Tigray", "Amhara", "Oromia"},
			"Sudan":    {"Khartoum", "Darfur", "Blue Nile", "South Kordofan"},
		},
		Defaults: Defaults{
			Country:   "Somalia",
			Admin1:    GenericRegion,
			EventType: "Violence against civilians",
			Actor:     "Al-Shabaab",
		},
	}
}

// Load reads a reference-data pack from path. An empty or missing path yields
// the compiled-in table, matching how rule packs are resolved elsewhere.
func Load(path string) (*Table, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, err
	}
	table := Default()
	if err := yaml.Unmarshal(data, table); err != nil {
		return nil, err
	}
	return table, nil
}

// KnownCountry reports whether country appears in the reference set.
func (t *Table) KnownCountry(country string) bool {
	return contains(t.Countries, country)
}

// KnownEventType reports whether eventType appears in the reference set.
func (t *Table) KnownEventType(eventType string) bool {
	return contains(t.EventTypes, eventType)
}

// KnownActor reports whether actor appears in the reference set.
func (t *Table) KnownActor(actor string) bool {
	return contains(t.Actors, actor)
}

// RegionsFor returns the known regions for a country, or nil.
func (t *Table) RegionsFor(country string) []string {
	return t.RegionsByCountry[country]
}

// RepairRegion returns admin1 if it is a valid region of country. Otherwise it
// returns the country's first known region, or GenericRegion when the country
// has no region list. The second return reports whether admin1 was kept.
func (t *Table) RepairRegion(country, admin1 string) (string, bool) {
	regions := t.RegionsByCountry[country]
	if len(regions) == 0 {
		return GenericRegion, false
	}
	if contains(regions, admin1) {
		return admin1, true
	}
	return regions[0], false
}

func contains(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
