package rego_tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/vicrego/vicrego/internal/protocol"
	"github.com/vicrego/vicrego/internal/rego"
	"github.com/vicrego/vicrego/internal/snapshot"
)

// RegisterRegoTools registers the vehicle registration tools with the
// protocol registry. All tools are read-only.
func RegisterRegoTools(registry *protocol.Registry, snapshots *snapshot.Service) {
	noauth := []protocol.SecurityScheme{{Type: "noauth"}}
	readOnly := map[string]any{"readOnlyHint": true}
	vehicleSchema := map[string]any{
		"type":     "object",
		"required": []string{"transaction_type", "vehicle_category"},
	}

	registry.Register(&protocol.ToolDef{
		Name:            "normalize_vehicle_request",
		Description:     "Normalize user vehicle request and infer missing fields.",
		InputSchema:     vehicleSchema,
		Annotations:     readOnly,
		SecuritySchemes: noauth,
		Handler:         normalizeVehicleRequest,
	})
	registry.Register(&protocol.ToolDef{
		Name:            "get_fee_snapshot",
		Description:     "Load latest scraped fee snapshot from blob storage with fallback.",
		InputSchema:     map[string]any{"type": "object", "properties": map[string]any{}},
		Annotations:     readOnly,
		SecuritySchemes: noauth,
		Handler:         getFeeSnapshot(snapshots),
	})
	registry.Register(&protocol.ToolDef{
		Name:            "estimate_registration_cost",
		Description:     "Estimate itemised Victorian vehicle registration costs.",
		InputSchema:     vehicleSchema,
		Annotations:     readOnly,
		SecuritySchemes: noauth,
		Handler:         estimateRegistrationCost(snapshots),
	})
	registry.Register(&protocol.ToolDef{
		Name:            "explain_assumptions",
		Description:     "Explain assumptions and uncertainty from unknown inputs.",
		InputSchema:     vehicleSchema,
		Annotations:     readOnly,
		SecuritySchemes: noauth,
		Handler:         explainAssumptions,
	})
}

func normalizeVehicleRequest(_ context.Context, args map[string]any) (*protocol.Envelope, error) {
	normalized, err := normalize(args)
	if err != nil {
		return nil, err
	}

	return &protocol.Envelope{
		Content: fmt.Sprintf("Normalized request for %s %s.",
			normalized.VehicleCategory, normalized.TransactionType),
		StructuredContent: map[string]any{"normalizedRequest": normalized},
		Meta:              protocol.NewMeta("n/a", time.Now().UTC()),
	}, nil
}

func getFeeSnapshot(snapshots *snapshot.Service) protocol.Handler {
	return func(ctx context.Context, _ map[string]any) (*protocol.Envelope, error) {
		snap, freshness := snapshots.Resolve(ctx)

		return &protocol.Envelope{
			Content: fmt.Sprintf("Loaded VIC fee snapshot (%s) refreshed %s.",
				freshness, snap.RefreshedAt.Format("2006-01-02")),
			StructuredContent: map[string]any{"snapshot": snap},
			Meta:              protocol.NewMeta(string(freshness), snap.RefreshedAt),
		}, nil
	}
}

func estimateRegistrationCost(snapshots *snapshot.Service) protocol.Handler {
	return func(_ context.Context, args map[string]any) (*protocol.Envelope, error) {
		normalized, err := normalize(args)
		if err != nil {
			return nil, err
		}

		result, err := rego.Estimate(normalized, snapshots.Current())
		if err != nil {
			var snapErr *rego.SnapshotError
			if errors.As(err, &snapErr) {
				return nil, protocol.NewFault(protocol.KindSnapshotIncomplete, snapErr.Error())
			}
			return nil, err
		}

		return &protocol.Envelope{
			Content: fmt.Sprintf("Estimated VIC cost %.2f-%.2f AUD (%s confidence).",
				result.TotalMin, result.TotalMax, result.Confidence),
			StructuredContent: map[string]any{"estimate": result},
			Meta:              protocol.NewMeta("snapshot", result.LastRefresh),
		}, nil
	}
}

func explainAssumptions(_ context.Context, args map[string]any) (*protocol.Envelope, error) {
	normalized, err := normalize(args)
	if err != nil {
		return nil, err
	}

	confidence := rego.ConfidenceHigh
	if len(normalized.UnknownFields) > 0 {
		confidence = rego.ConfidenceLow
	}

	return &protocol.Envelope{
		Content: fmt.Sprintf("Generated assumptions with %s confidence.", confidence),
		StructuredContent: map[string]any{
			"assumptions":   normalized.Assumptions,
			"unknownFields": normalized.UnknownFields,
			"confidence":    confidence,
		},
		Meta: protocol.NewMeta("n/a", time.Now().UTC()),
	}, nil
}

// normalize decodes raw call arguments into a vehicle request and runs
// validation. Decode and validation failures surface as bad arguments.
func normalize(args map[string]any) (*rego.NormalizedVehicleRequest, error) {
	raw, err := json.Marshal(args)
	if err != nil {
		return nil, protocol.NewFault(protocol.KindBadArguments, "Tool arguments do not match the vehicle request schema.")
	}

	var req rego.VehicleRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, protocol.NewFault(protocol.KindBadArguments, "Tool arguments do not match the vehicle request schema.")
	}

	normalized, err := rego.Normalize(req)
	if err != nil {
		var validationErr *rego.ValidationError
		if errors.As(err, &validationErr) {
			return nil, protocol.NewFault(protocol.KindBadArguments, validationErr.Error())
		}
		return nil, err
	}
	return normalized, nil
}
