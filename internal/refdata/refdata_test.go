package refdata

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRepairRegionKeepsValidRegion(t *testing.T) {
	table := Default()
	region, kept := table.RepairRegion("Nigeria", "Borno")
	if !kept || region != "Borno" {
		t.Fatalf("expected Borno kept, got %q kept=%v", region, kept)
	}
}

func TestRepairRegionSubstitutesInvalidRegion(t *testing.T) {
	table := Default()
	region, kept := table.RepairRegion("Nigeria", "InvalidRegion")
	if kept {
		t.Fatal("expected substitution for invalid region")
	}
	found := false
	for _, r := range table.RegionsFor("Nigeria") {
		if r == region {
			found = true
		}
	}
	if !found {
		t.Fatalf("repaired region %q not in Nigeria's region list", region)
	}
}

func TestRepairRegionUnknownCountry(t *testing.T) {
	table := Default()
	region, kept := table.RepairRegion("Atlantis", "Somewhere")
	if kept || region != GenericRegion {
		t.Fatalf("expected generic region, got %q kept=%v", region, kept)
	}
}

func TestLoadMissingPathFallsBackToDefault(t *testing.T) {
	table, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !table.KnownCountry("Somalia") {
		t.Fatal("expected compiled-in defaults")
	}
}

func TestLoadOverridePack(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "refdata.yaml")
	body := []byte("defaults:\n  country: Nigeria\n")
	if err := os.WriteFile(path, body, 0o644); err != nil {
		t.Fatalf("write pack: %v", err)
	}

	table, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if table.Defaults.Country != "Nigeria" {
		t.Fatalf("expected overridden default country, got %s", table.Defaults.Country)
	}
	// Untouched sections keep compiled-in values.
	if !table.KnownEventType("Riots/Protests") {
		t.Fatal("expected default event types retained")
	}
}
