package rego_tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vicrego/vicrego/internal/protocol"
	"github.com/vicrego/vicrego/internal/rego"
	"github.com/vicrego/vicrego/internal/snapshot"
)

func testRegistry(t *testing.T) *protocol.Registry {
	t.Helper()
	registry := protocol.NewRegistry()
	RegisterRegoTools(registry, snapshot.NewService(snapshot.NopStore{}, nil, nil))
	return registry
}

func callTool(t *testing.T, registry *protocol.Registry, name string, args map[string]any) (*protocol.Envelope, error) {
	t.Helper()
	def, ok := registry.Get(name)
	require.True(t, ok, "tool %s not registered", name)
	return def.Handler(context.Background(), args)
}

func TestRegisterRegoToolsCatalogue(t *testing.T) {
	registry := testRegistry(t)

	tools := registry.List()
	names := make([]string, 0, len(tools))
	for _, def := range tools {
		names = append(names, def.Name)
		assert.Equal(t, true, def.Annotations["readOnlyHint"], "%s should be read-only", def.Name)
		require.Len(t, def.SecuritySchemes, 1)
		assert.Equal(t, "noauth", def.SecuritySchemes[0].Type)
		assert.NotEmpty(t, def.Description)
	}
	assert.Equal(t, []string{
		"normalize_vehicle_request",
		"get_fee_snapshot",
		"estimate_registration_cost",
		"explain_assumptions",
	}, names)
}

func TestNormalizeVehicleRequestTool(t *testing.T) {
	envelope, err := callTool(t, testRegistry(t), "normalize_vehicle_request", map[string]any{
		"transaction_type": "renewal",
		"vehicle_category": "passenger_car",
		"term_months":      float64(12),
	})
	require.NoError(t, err)

	assert.Equal(t, "Normalized request for passenger_car renewal.", envelope.Content)
	normalized, ok := envelope.StructuredContent["normalizedRequest"].(*rego.NormalizedVehicleRequest)
	require.True(t, ok)
	assert.Equal(t, rego.CategoryPassengerCar, normalized.VehicleCategory)
	assert.Equal(t, "sedan", *normalized.BodyType)
	assert.Equal(t, "n/a", envelope.Meta.DataFreshness.Status)
}

func TestNormalizeVehicleRequestToolRejectsBadInput(t *testing.T) {
	registry := testRegistry(t)

	t.Run("unknown category", func(t *testing.T) {
		_, err := callTool(t, registry, "normalize_vehicle_request", map[string]any{
			"transaction_type": "renewal",
			"vehicle_category": "spaceship",
		})
		var fault *protocol.Fault
		require.ErrorAs(t, err, &fault)
		assert.Equal(t, protocol.KindBadArguments, fault.Kind)
	})

	t.Run("mistyped field", func(t *testing.T) {
		_, err := callTool(t, registry, "normalize_vehicle_request", map[string]any{
			"transaction_type": "renewal",
			"vehicle_category": "passenger_car",
			"tare_kg":          "heavy",
		})
		var fault *protocol.Fault
		require.ErrorAs(t, err, &fault)
		assert.Equal(t, protocol.KindBadArguments, fault.Kind)
		assert.Equal(t, "Tool arguments do not match the vehicle request schema.", fault.Detail)
	})
}

func TestGetFeeSnapshotToolFallsBack(t *testing.T) {
	envelope, err := callTool(t, testRegistry(t), "get_fee_snapshot", nil)
	require.NoError(t, err)

	assert.Contains(t, envelope.Content, "Loaded VIC fee snapshot (fallback)")
	snap, ok := envelope.StructuredContent["snapshot"].(*rego.FeeSnapshot)
	require.True(t, ok)
	assert.Equal(t, 930.0, snap.LightVehicleFee["12"])
	assert.Equal(t, "fallback", envelope.Meta.DataFreshness.Status)
	assert.Equal(t, "monthly", envelope.Meta.DataFreshness.RefreshPolicy)
}

func TestEstimateRegistrationCostTool(t *testing.T) {
	envelope, err := callTool(t, testRegistry(t), "estimate_registration_cost", map[string]any{
		"transaction_type": "renewal",
		"vehicle_category": "passenger_car",
		"term_months":      float64(12),
		"make":             "Toyota",
		"model":            "Corolla",
		"year":             float64(2020),
		"fuel_type":        "petrol",
		"postcode":         "3000",
	})
	require.NoError(t, err)

	assert.Equal(t, "Estimated VIC cost 1460.00-1460.00 AUD (high confidence).", envelope.Content)
	result, ok := envelope.StructuredContent["estimate"].(*rego.EstimateResult)
	require.True(t, ok)
	assert.Equal(t, 1460.0, result.TotalMin)
	assert.Equal(t, 1460.0, result.TotalMax)
	assert.Equal(t, "snapshot", envelope.Meta.DataFreshness.Status)
}

func TestEstimateRegistrationCostToolMinimalRequest(t *testing.T) {
	envelope, err := callTool(t, testRegistry(t), "estimate_registration_cost", map[string]any{
		"transaction_type": "renewal",
		"vehicle_category": "passenger_car",
		"term_months":      float64(12),
	})
	require.NoError(t, err)

	// Five descriptive fields are unknown here, so the totals still land on
	// 1460.00 but the confidence tier drops.
	assert.Equal(t, "Estimated VIC cost 1460.00-1460.00 AUD (low confidence).", envelope.Content)
	result, ok := envelope.StructuredContent["estimate"].(*rego.EstimateResult)
	require.True(t, ok)
	assert.Equal(t, 1460.0, result.TotalMin)
	assert.Equal(t, 1460.0, result.TotalMax)
	assert.Equal(t, rego.ConfidenceLow, result.Confidence)
}

func TestExplainAssumptionsTool(t *testing.T) {
	registry := testRegistry(t)

	t.Run("low confidence with unknowns", func(t *testing.T) {
		envelope, err := callTool(t, registry, "explain_assumptions", map[string]any{
			"transaction_type": "transfer",
			"vehicle_category": "passenger_car",
		})
		require.NoError(t, err)

		assert.Equal(t, "Generated assumptions with low confidence.", envelope.Content)
		assert.Equal(t, "low", envelope.StructuredContent["confidence"])
		unknowns := envelope.StructuredContent["unknownFields"].([]string)
		assert.Contains(t, unknowns, "market_value_aud")
	})

	t.Run("high confidence when fully specified", func(t *testing.T) {
		envelope, err := callTool(t, registry, "explain_assumptions", map[string]any{
			"transaction_type": "renewal",
			"vehicle_category": "passenger_car",
			"make":             "Toyota",
			"model":            "Corolla",
			"year":             float64(2020),
			"fuel_type":        "petrol",
			"postcode":         "3000",
		})
		require.NoError(t, err)

		assert.Equal(t, "Generated assumptions with high confidence.", envelope.Content)
		assert.Equal(t, "high", envelope.StructuredContent["confidence"])
	})
}
