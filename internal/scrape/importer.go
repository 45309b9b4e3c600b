package scrape

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/vicrego/vicrego/internal/logging"
	"github.com/vicrego/vicrego/internal/rego"
)

const fetchTimeout = 20 * time.Second

// maxPageBytes bounds how much of a fee page is read; schedules are small and
// this keeps a misbehaving endpoint from ballooning memory.
const maxPageBytes = 4 << 20

// Importer scrapes the published fee schedule pages into a FeeSnapshot.
type Importer struct {
	client  *http.Client
	sources []Source
	logger  *slog.Logger
}

// NewImporter builds an importer over the VIC sources. client may be nil.
func NewImporter(client *http.Client, logger *slog.Logger) *Importer {
	if client == nil {
		client = &http.Client{Timeout: fetchTimeout}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{client: client, sources: VICSources, logger: logger}
}

// Fetch downloads every source page and assembles a fresh snapshot. Any
// fetch or read failure fails the whole import; the caller decides whether
// to fall back.
func (imp *Importer) Fetch(ctx context.Context) (*rego.FeeSnapshot, error) {
	parsed := parsedFees{}
	urls := make([]string, 0, len(imp.sources))

	for _, source := range imp.sources {
		urls = append(urls, source.URL)
		body, err := imp.get(ctx, source.URL)
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", source.Name, err)
		}
		var fees parsedFees
		if strings.Contains(source.URL, "heavy") {
			fees = parseHeavyVehiclePage(body)
		} else {
			fees = parseLightVehiclePage(body)
		}
		for key, value := range fees {
			parsed[key] = value
		}
		imp.logger.Debug("parsed fee source",
			logging.Operation("snapshot_import"), slog.String("source", source.Name))
	}

	return buildSnapshot(parsed, urls), nil
}

func (imp *Importer) get(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := imp.client.Do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// buildSnapshot derives the full fee table from the parsed page figures.
// Shorter terms are fixed fractions of the 12-month fees; duty bands and
// concession multipliers are statutory constants rather than scraped values.
func buildSnapshot(parsed parsedFees, urls []string) *rego.FeeSnapshot {
	reg12 := parsed.getOr("registration_fee_12", 930.0)
	tac12 := parsed.getOr("tac_12", 530.0)

	return &rego.FeeSnapshot{
		Jurisdiction: "VIC",
		RefreshedAt:  time.Now().UTC(),
		Sources:      urls,
		LightVehicleFee: map[string]float64{
			"3":  round2(reg12 * 0.27),
			"6":  round2(reg12 * 0.53),
			"12": reg12,
		},
		TACChargeByTerm: map[string]float64{
			"3":  round2(tac12 * 0.25),
			"6":  round2(tac12 * 0.5),
			"12": tac12,
		},
		TransferFee:    parsed.getOr("transfer_fee", 46.7),
		NumberPlateFee: parsed.getOr("number_plate_fee", 41.2),
		HeavyVehicleBaseFee: map[string]float64{
			"heavy_vehicle_truck": parsed.getOr("heavy_truck_base", 1510.0),
			"bus":                 parsed.getOr("bus_base", 1200.0),
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

func (p parsedFees) getOr(key string, fallback float64) float64 {
	if value, ok := p[key]; ok {
		return value
	}
	return fallback
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
