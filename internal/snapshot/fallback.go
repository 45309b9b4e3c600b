package snapshot

import (
	"time"

	"github.com/vicrego/vicrego/internal/rego"
)

// Fallback returns the hard-coded VIC fee snapshot used when neither the
// store nor the importer can produce one. Figures mirror the published
// schedules at the time they were captured; the importer supersedes them.
func Fallback() *rego.FeeSnapshot {
	return &rego.FeeSnapshot{
		Jurisdiction: "VIC",
		RefreshedAt:  time.Now().UTC(),
		Sources: []string{
			"https://www.vicroads.vic.gov.au/",
			"https://www.sro.vic.gov.au/motor-vehicle-duty",
		},
		LightVehicleFee: map[string]float64{"3": 251.10, "6": 493.22, "12": 930.0},
		TACChargeByTerm: map[string]float64{"3": 132.50, "6": 265.0, "12": 530.0},
		TransferFee:     46.7,
		NumberPlateFee:  41.2,
		HeavyVehicleBaseFee: map[string]float64{
			"heavy_vehicle_truck": 1510.0,
			"bus":                 1200.0,
			"trailer":             430.0,
			"caravan":             320.0,
		},
		DutyRates: []rego.DutyBand{
			{Threshold: 0, Rate: 0.042},
			{Threshold: 69000, Rate: 0.048},
			{Threshold: 100000, Rate: 0.052},
		},
		ConcessionRules: map[string]float64{
			"pensioner":        0.5,
			"veteran":          0.6,
			"primary_producer": 0.7,
		},
	}
}
