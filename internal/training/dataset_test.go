package training

import (
	"testing"
)

func TestLoadDatasetImputesMissingValues(t *testing.T) {
	path := writeCSV(t,
		"LATITUDE,LONGITUDE,ACTOR1,EVENT_TYPE,CONFLICT_RISK",
		"10.0,40.0,Al-Shabaab,Riots/Protests,1",
		"20.0,50.0,Al-Shabaab,Riots/Protests,1",
		",45.0,,Riots/Protests,0",
	)
	ds, err := loadDataset(path, discardLogger())
	if err != nil {
		t.Fatalf("loadDataset: %v", err)
	}
	if len(ds.Records) != 3 {
		t.Fatalf("len(Records) = %d, want 3", len(ds.Records))
	}

	imputed := ds.Records[2]
	if imputed.Latitude != 15.0 {
		t.Fatalf("Latitude = %v, want mean 15.0", imputed.Latitude)
	}
	if imputed.Actor1 != "Unknown" {
		t.Fatalf("Actor1 = %q, want Unknown", imputed.Actor1)
	}
	if imputed.Country != "Unknown" {
		t.Fatalf("Country = %q, want Unknown", imputed.Country)
	}
}

func TestLoadDatasetDropsNonBinaryTargets(t *testing.T) {
	path := writeCSV(t,
		"LATITUDE,LONGITUDE,ACTOR1,EVENT_TYPE,CONFLICT_RISK",
		"10.0,40.0,Al-Shabaab,Riots/Protests,1",
		"11.0,41.0,Al-Shabaab,Riots/Protests,2",
		"12.0,42.0,Al-Shabaab,Riots/Protests,high",
		"13.0,43.0,Al-Shabaab,Riots/Protests,0",
	)
	ds, err := loadDataset(path, discardLogger())
	if err != nil {
		t.Fatalf("loadDataset: %v", err)
	}
	if len(ds.Records) != 2 {
		t.Fatalf("len(Records) = %d, want 2 after dropping invalid targets", len(ds.Records))
	}
}
