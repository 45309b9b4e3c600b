package rego

import (
	"fmt"
	"sort"
)

// categoryDefaults supplies per-category values for fields the estimator needs
// when the caller leaves them unset.
var categoryDefaults = map[VehicleCategory]map[string]any{
	CategoryPassengerCar:       {"body_type": "sedan", "tare_kg": 1500.0, "seats": 5},
	CategoryMotorcycle:         {"body_type": "motorcycle", "tare_kg": 220.0, "seats": 2},
	CategoryLightCommercialUte: {"body_type": "ute", "tare_kg": 2100.0, "seats": 2},
	CategoryHeavyVehicleTruck:  {"body_type": "truck", "gvm_kg": 12000.0, "seats": 2},
	CategoryTrailer:            {"body_type": "trailer", "tare_kg": 750.0, "seats": 0},
	CategoryCaravan:            {"body_type": "caravan", "tare_kg": 2000.0, "seats": 0},
	CategoryBus:                {"body_type": "bus", "gvm_kg": 8000.0, "seats": 20},
}

// concessionHints explains known concession flags to the caller.
var concessionHints = map[string]string{
	"pensioner":        "Pensioner concession may reduce registration components for eligible private vehicles.",
	"veteran":          "Eligible veterans may receive fee reductions depending on vehicle class.",
	"primary_producer": "Primary producer concessions may apply for qualifying business-use vehicles.",
}

// ValidationError reports an invalid raw request field value.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// Normalize validates a raw request, fills category defaults for unset fields,
// and records inferred fields, unknown fields, and assumption text. Every
// field the estimator references is non-nil on the returned request.
func Normalize(req VehicleRequest) (*NormalizedVehicleRequest, error) {
	if !ValidTransactionType(req.TransactionType) {
		return nil, &ValidationError{Field: "transaction_type", Message: fmt.Sprintf("unknown value %q", string(req.TransactionType))}
	}
	if !ValidVehicleCategory(req.VehicleCategory) {
		return nil, &ValidationError{Field: "vehicle_category", Message: fmt.Sprintf("unknown value %q", string(req.VehicleCategory))}
	}
	if req.UseType == "" {
		req.UseType = UsePrivate
	}
	if req.UseType != UsePrivate && req.UseType != UseBusiness {
		return nil, &ValidationError{Field: "use_type", Message: fmt.Sprintf("unknown value %q", string(req.UseType))}
	}
	if req.TermMonths == 0 {
		req.TermMonths = 12
	}
	if req.TermMonths != 3 && req.TermMonths != 6 && req.TermMonths != 12 {
		return nil, &ValidationError{Field: "term_months", Message: fmt.Sprintf("must be 3, 6 or 12, got %d", req.TermMonths)}
	}

	norm := &NormalizedVehicleRequest{
		VehicleRequest: req,
		InferredFields: map[string]any{},
		UnknownFields:  []string{},
		Assumptions:    []string{},
	}

	applyCategoryDefaults(norm)

	if req.Postcode == nil && req.Suburb == nil {
		norm.UnknownFields = append(norm.UnknownFields, "postcode_or_suburb")
		norm.Assumptions = append(norm.Assumptions, "Geographic rating zone unknown; used metro baseline and widened TAC range.")
	}

	if req.TransactionType == TransactionTransfer && req.MarketValueAUD == nil {
		norm.UnknownFields = append(norm.UnknownFields, "market_value_aud")
		norm.Assumptions = append(norm.Assumptions, "Market value unknown; motor vehicle duty estimated as a range.")
	}

	for _, flag := range sortedFlags(req.ConcessionFlags) {
		if hint, ok := concessionHints[flag]; ok {
			norm.Assumptions = append(norm.Assumptions, hint)
		}
	}

	// Descriptive fields are tracked as unknown without an assumption; they
	// affect confidence, not arithmetic.
	if req.Make == nil {
		norm.UnknownFields = append(norm.UnknownFields, "make")
	}
	if req.Model == nil {
		norm.UnknownFields = append(norm.UnknownFields, "model")
	}
	if req.Year == nil {
		norm.UnknownFields = append(norm.UnknownFields, "year")
	}
	if req.FuelType == nil {
		norm.UnknownFields = append(norm.UnknownFields, "fuel_type")
	}

	norm.UnknownFields = dedupeSorted(norm.UnknownFields)
	return norm, nil
}

func applyCategoryDefaults(norm *NormalizedVehicleRequest) {
	defaults := categoryDefaults[norm.VehicleCategory]
	for _, field := range []string{"body_type", "tare_kg", "gvm_kg", "seats"} {
		value, ok := defaults[field]
		if !ok {
			continue
		}
		if !setDefault(norm, field, value) {
			continue
		}
		norm.InferredFields[field] = value
		norm.Assumptions = append(norm.Assumptions,
			fmt.Sprintf("Defaulted %s to %v based on vehicle category.", field, value))
	}
}

// setDefault assigns value to the named field when it is unset. Returns false
// when the caller already supplied the field.
func setDefault(norm *NormalizedVehicleRequest, field string, value any) bool {
	switch field {
	case "body_type":
		if norm.BodyType != nil {
			return false
		}
		s := value.(string)
		norm.BodyType = &s
	case "tare_kg":
		if norm.TareKg != nil {
			return false
		}
		f := value.(float64)
		norm.TareKg = &f
	case "gvm_kg":
		if norm.GVMKg != nil {
			return false
		}
		f := value.(float64)
		norm.GVMKg = &f
	case "seats":
		if norm.Seats != nil {
			return false
		}
		n := value.(int)
		norm.Seats = &n
	}
	return true
}

func sortedFlags(flags map[string]bool) []string {
	enabled := make([]string, 0, len(flags))
	for flag, on := range flags {
		if on {
			enabled = append(enabled, flag)
		}
	}
	sort.Strings(enabled)
	return enabled
}

func dedupeSorted(values []string) []string {
	sort.Strings(values)
	out := values[:0]
	for i, v := range values {
		if i == 0 || values[i-1] != v {
			out = append(out, v)
		}
	}
	return out
}
