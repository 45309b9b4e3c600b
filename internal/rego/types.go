package rego

import "time"

// TransactionType identifies the registration transaction being priced.
type TransactionType string

const (
	TransactionNewRegistration TransactionType = "new_registration"
	TransactionRenewal         TransactionType = "renewal"
	TransactionTransfer        TransactionType = "transfer"
)

// VehicleCategory identifies the vehicle class used for fee lookups.
type VehicleCategory string

const (
	CategoryPassengerCar       VehicleCategory = "passenger_car"
	CategoryMotorcycle         VehicleCategory = "motorcycle"
	CategoryLightCommercialUte VehicleCategory = "light_commercial_ute"
	CategoryHeavyVehicleTruck  VehicleCategory = "heavy_vehicle_truck"
	CategoryTrailer            VehicleCategory = "trailer"
	CategoryCaravan            VehicleCategory = "caravan"
	CategoryBus                VehicleCategory = "bus"
)

// UseType distinguishes private from business registrations.
type UseType string

const (
	UsePrivate  UseType = "private"
	UseBusiness UseType = "business"
)

// heavyCategories are priced from the per-category heavy vehicle base fee
// scaled by term, instead of the flat per-term light vehicle table.
var heavyCategories = map[VehicleCategory]bool{
	CategoryHeavyVehicleTruck: true,
	CategoryBus:               true,
	CategoryTrailer:           true,
	CategoryCaravan:           true,
}

// IsHeavyCategory reports whether the category uses heavy vehicle base fees.
func IsHeavyCategory(c VehicleCategory) bool {
	return heavyCategories[c]
}

// ValidTransactionType reports whether t is one of the supported transaction types.
func ValidTransactionType(t TransactionType) bool {
	switch t {
	case TransactionNewRegistration, TransactionRenewal, TransactionTransfer:
		return true
	}
	return false
}

// ValidVehicleCategory reports whether c is one of the supported vehicle categories.
func ValidVehicleCategory(c VehicleCategory) bool {
	switch c {
	case CategoryPassengerCar, CategoryMotorcycle, CategoryLightCommercialUte,
		CategoryHeavyVehicleTruck, CategoryTrailer, CategoryCaravan, CategoryBus:
		return true
	}
	return false
}

// VehicleRequest is the raw, user-supplied tool input. Optional fields are
// pointers so that "not supplied" is distinguishable from a zero value.
type VehicleRequest struct {
	TransactionType TransactionType `json:"transaction_type"`
	VehicleCategory VehicleCategory `json:"vehicle_category"`

	Make     *string  `json:"make,omitempty"`
	Model    *string  `json:"model,omitempty"`
	Year     *int     `json:"year,omitempty"`
	BodyType *string  `json:"body_type,omitempty"`
	FuelType *string  `json:"fuel_type,omitempty"`
	TareKg   *float64 `json:"tare_kg,omitempty"`
	GVMKg    *float64 `json:"gvm_kg,omitempty"`
	Seats    *int     `json:"seats,omitempty"`
	Postcode *string  `json:"postcode,omitempty"`
	Suburb   *string  `json:"suburb,omitempty"`

	UseType        UseType  `json:"use_type,omitempty"`
	TermMonths     int      `json:"term_months,omitempty"`
	MarketValueAUD *float64 `json:"market_value_aud,omitempty"`

	ConcessionFlags map[string]bool    `json:"concession_flags,omitempty"`
	ManualOverrides map[string]float64 `json:"manual_overrides,omitempty"`
}

// NormalizedVehicleRequest is a VehicleRequest with category defaults applied
// and the bookkeeping the estimator and the assumptions tool rely on. Every
// field the estimator reads is populated after normalization.
type NormalizedVehicleRequest struct {
	VehicleRequest

	// InferredFields maps each defaulted field name to the value it received.
	InferredFields map[string]any `json:"inferred_fields"`
	// UnknownFields lists inputs that were neither supplied nor defaultable,
	// sorted and deduplicated.
	UnknownFields []string `json:"unknown_fields"`
	// Assumptions holds human-readable explanations of every inference made.
	Assumptions []string `json:"assumptions"`
}

// FeeLineItem is a single priced component of an estimate. Min and max differ
// only when the underlying input is a genuine range.
type FeeLineItem struct {
	Key       string  `json:"key"`
	Label     string  `json:"label"`
	AmountMin float64 `json:"amount_min"`
	AmountMax float64 `json:"amount_max"`
	Source    string  `json:"source"`
	Mandatory bool    `json:"mandatory"`
	Notes     string  `json:"notes,omitempty"`
}

// FeeSnapshot is a versioned table of fee constants. Snapshots are immutable
// once constructed; a refresh produces a new snapshot rather than mutating one.
type FeeSnapshot struct {
	Jurisdiction string    `json:"jurisdiction"`
	RefreshedAt  time.Time `json:"refreshed_at"`
	Sources      []string  `json:"sources"`

	// LightVehicleFee maps a registration term ("3", "6", "12" months) to the
	// flat registration fee for non-heavy categories.
	LightVehicleFee map[string]float64 `json:"light_vehicle_fee"`
	// TACChargeByTerm maps a term to the TAC charge.
	TACChargeByTerm map[string]float64 `json:"tac_charge_by_term"`

	TransferFee    float64 `json:"transfer_fee"`
	NumberPlateFee float64 `json:"number_plate_fee"`

	// HeavyVehicleBaseFee maps a heavy category to its 12-month base fee.
	HeavyVehicleBaseFee map[string]float64 `json:"heavy_vehicle_base_fee"`

	// DutyRates are progressive motor vehicle duty bands in ascending
	// threshold order; the last band whose threshold is <= value applies.
	DutyRates []DutyBand `json:"duty_rates"`

	// ConcessionRules maps a concession flag to its registration fee
	// multiplier (smaller is more generous).
	ConcessionRules map[string]float64 `json:"concession_rules"`
}

// DutyBand is one motor vehicle duty threshold band.
type DutyBand struct {
	Threshold float64 `json:"threshold"`
	Rate      float64 `json:"rate"`
}

// Confidence tiers for an estimate.
const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
	ConfidenceLow    = "low"
)

// EstimateResult is the itemized output of the estimation engine. It is
// derived entirely from a normalized request and a snapshot.
type EstimateResult struct {
	TransactionType TransactionType `json:"transaction_type"`
	VehicleCategory VehicleCategory `json:"vehicle_category"`

	TotalMin float64 `json:"total_min"`
	TotalMax float64 `json:"total_max"`

	Confidence      string  `json:"confidence"`
	ConfidenceScore float64 `json:"confidence_score"`

	LineItems          []FeeLineItem `json:"line_items"`
	Assumptions        []string      `json:"assumptions"`
	ConcessionsApplied []string      `json:"concessions_applied"`

	LastRefresh time.Time `json:"last_refresh"`
	SourceURLs  []string  `json:"source_urls"`
}
