package rego

import (
	"fmt"
	"math"
	"strconv"
)

// Assumed market value bounds used when a transfer omits market_value_aud.
const (
	assumedMarketValueFloor   = 10000.0
	assumedMarketValueCeiling = 45000.0
)

// businessAdminFee is the flat business processing surcharge.
const businessAdminFee = 18.40

// uncertainty scoring constants: each unknown input (and a ranged total)
// costs one point worth 0.15 of confidence, floored at 0.3.
const (
	confidencePenaltyPerPoint = 0.15
	confidenceFloor           = 0.3
)

// SnapshotError reports a snapshot missing a fee key the estimate needs.
// It distinguishes stale or incomplete configuration data from a bug.
type SnapshotError struct {
	Key string
}

func (e *SnapshotError) Error() string {
	return fmt.Sprintf("snapshot is missing required fee key %q", e.Key)
}

// Estimate computes an itemized cost estimate from a normalized request and a
// fee snapshot. It is a pure function: identical inputs yield identical
// results, and no state outlives the call.
func Estimate(norm *NormalizedVehicleRequest, snapshot *FeeSnapshot) (*EstimateResult, error) {
	termKey := strconv.Itoa(norm.TermMonths)

	assumptions := append([]string(nil), norm.Assumptions...)
	concessionsApplied := []string{}
	var lines []FeeLineItem

	regFee, err := registrationFee(norm, snapshot, termKey)
	if err != nil {
		return nil, err
	}

	tac, ok := snapshot.TACChargeByTerm[termKey]
	if !ok {
		return nil, &SnapshotError{Key: "tac_charge_by_term." + termKey}
	}

	// Most generous enabled concession wins; the discount applies to the
	// registration fee only.
	discount := 1.0
	for _, flag := range sortedFlags(norm.ConcessionFlags) {
		multiplier, ok := snapshot.ConcessionRules[flag]
		if !ok {
			continue
		}
		discount = math.Min(discount, multiplier)
		concessionsApplied = append(concessionsApplied, flag)
	}
	regFee *= discount

	lines = append(lines, FeeLineItem{
		Key:       "registration_fee",
		Label:     "Registration fee",
		AmountMin: round2(regFee),
		AmountMax: round2(regFee),
		Source:    sourceAt(snapshot, 0),
		Mandatory: true,
	})
	lines = append(lines, FeeLineItem{
		Key:       "tac_charge",
		Label:     "TAC charge",
		AmountMin: round2(tac),
		AmountMax: round2(tac),
		Source:    sourceAt(snapshot, 0),
		Mandatory: true,
	})

	if norm.TransactionType == TransactionTransfer {
		lines = append(lines, FeeLineItem{
			Key:       "transfer_fee",
			Label:     "Transfer fee",
			AmountMin: snapshot.TransferFee,
			AmountMax: snapshot.TransferFee,
			Source:    sourceAt(snapshot, 2),
			Mandatory: true,
		})

		var dutyMin, dutyMax float64
		if norm.MarketValueAUD == nil {
			dutyMin = dutyAmount(assumedMarketValueFloor, snapshot.DutyRates)
			dutyMax = dutyAmount(assumedMarketValueCeiling, snapshot.DutyRates)
			assumptions = append(assumptions, "Used $10k-$45k market value range for duty.")
		} else {
			dutyMin = dutyAmount(*norm.MarketValueAUD, snapshot.DutyRates)
			dutyMax = dutyMin
		}
		lines = append(lines, FeeLineItem{
			Key:       "motor_vehicle_duty",
			Label:     "Motor vehicle duty (stamp duty)",
			AmountMin: dutyMin,
			AmountMax: dutyMax,
			Source:    sourceAt(snapshot, 3),
			Mandatory: true,
		})
	}

	if norm.TransactionType == TransactionNewRegistration {
		lines = append(lines, FeeLineItem{
			Key:       "number_plate_fee",
			Label:     "Number plate fee",
			AmountMin: snapshot.NumberPlateFee,
			AmountMax: snapshot.NumberPlateFee,
			Source:    sourceAt(snapshot, 0),
			Mandatory: true,
		})
	}

	if norm.UseType == UseBusiness {
		lines = append(lines, FeeLineItem{
			Key:       "business_admin",
			Label:     "Business processing surcharge",
			AmountMin: businessAdminFee,
			AmountMax: businessAdminFee,
			Source:    sourceAt(snapshot, 0),
			Mandatory: true,
			Notes:     "May vary by channel.",
		})
	}

	for i := range lines {
		if value, ok := norm.ManualOverrides[lines[i].Key]; ok {
			lines[i].AmountMin = value
			lines[i].AmountMax = value
			lines[i].Notes = "Manually overridden in widget"
		}
	}

	var totalMin, totalMax float64
	for _, line := range lines {
		totalMin += line.AmountMin
		totalMax += line.AmountMax
	}
	totalMin = round2(totalMin)
	totalMax = round2(totalMax)

	points := len(norm.UnknownFields)
	if totalMin != totalMax {
		points++
	}
	confidence := ConfidenceLow
	switch {
	case points == 0:
		confidence = ConfidenceHigh
	case points <= 2:
		confidence = ConfidenceMedium
	}
	score := math.Max(confidenceFloor, round2(1-float64(points)*confidencePenaltyPerPoint))

	return &EstimateResult{
		TransactionType:    norm.TransactionType,
		VehicleCategory:    norm.VehicleCategory,
		TotalMin:           totalMin,
		TotalMax:           totalMax,
		Confidence:         confidence,
		ConfidenceScore:    score,
		LineItems:          lines,
		Assumptions:        assumptions,
		ConcessionsApplied: concessionsApplied,
		LastRefresh:        snapshot.RefreshedAt,
		SourceURLs:         snapshot.Sources,
	}, nil
}

// registrationFee resolves the base registration fee before concessions.
// Heavy classes scale their 12-month base fee by term; light classes use the
// flat per-term table.
func registrationFee(norm *NormalizedVehicleRequest, snapshot *FeeSnapshot, termKey string) (float64, error) {
	if IsHeavyCategory(norm.VehicleCategory) {
		base, ok := snapshot.HeavyVehicleBaseFee[string(norm.VehicleCategory)]
		if !ok {
			return 0, &SnapshotError{Key: "heavy_vehicle_base_fee." + string(norm.VehicleCategory)}
		}
		return base * float64(norm.TermMonths) / 12, nil
	}
	fee, ok := snapshot.LightVehicleFee[termKey]
	if !ok {
		return 0, &SnapshotError{Key: "light_vehicle_fee." + termKey}
	}
	return fee, nil
}

// dutyAmount applies the progressive threshold bands: the last band whose
// threshold is <= value supplies the rate.
func dutyAmount(value float64, bands []DutyBand) float64 {
	if len(bands) == 0 {
		return 0
	}
	rate := bands[0].Rate
	for _, band := range bands {
		if value >= band.Threshold {
			rate = band.Rate
		}
	}
	return round2(value * rate)
}

// sourceAt returns the snapshot source at index i, clamped to the last entry
// so a short source list never panics.
func sourceAt(snapshot *FeeSnapshot, i int) string {
	if len(snapshot.Sources) == 0 {
		return ""
	}
	if i >= len(snapshot.Sources) {
		i = len(snapshot.Sources) - 1
	}
	return snapshot.Sources[i]
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
