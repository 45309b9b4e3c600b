package scrape

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const feesPage = `<html><body>
<h1>Registration fees</h1>
<table><tr><td>12 months</td><td>$865.50</td></tr></table>
<p>TAC charge: $540.00 per year.</p>
<p>Transfer of registration costs $47.10.</p>
<p>New number plate fee is $42.90.</p>
<script>var ignored = "$99999";</script>
</body></html>`

const heavyPage = `<html><body>
<p>Heavy vehicle truck base fee $1,600.00 per annum.</p>
<p>Bus operators pay $1,250.00.</p>
</body></html>`

func TestFirstCurrency(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		fallback float64
		want     float64
	}{
		{name: "plain", text: "costs $930.00 per year", fallback: 1, want: 930.0},
		{name: "thousands separator", text: "base fee $1,510.00", fallback: 1, want: 1510.0},
		{name: "space after sign", text: "$ 46.70", fallback: 1, want: 46.7},
		{name: "no figure", text: "fees vary", fallback: 42.0, want: 42.0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, firstCurrency(tc.text, tc.fallback))
		})
	}
}

func TestCurrencyAfterAnchors(t *testing.T) {
	text := "rego is $930.00 and the TAC charge is $530.00"
	assert.Equal(t, 530.0, currencyAfter(text, "TAC", 0))
	assert.Equal(t, 930.0, currencyAfter(text, "rego", 0))
	assert.Equal(t, 7.0, currencyAfter(text, "nonexistent", 7.0))
}

func TestPageTextSkipsScripts(t *testing.T) {
	text := pageText(feesPage)
	assert.Contains(t, text, "Registration fees")
	assert.NotContains(t, text, "99999")
}

func TestParseLightVehiclePage(t *testing.T) {
	fees := parseLightVehiclePage(feesPage)
	assert.Equal(t, 865.5, fees["registration_fee_12"])
	assert.Equal(t, 540.0, fees["tac_12"])
	assert.Equal(t, 47.1, fees["transfer_fee"])
	assert.Equal(t, 42.9, fees["number_plate_fee"])
}

func TestParseHeavyVehiclePage(t *testing.T) {
	fees := parseHeavyVehiclePage(heavyPage)
	assert.Equal(t, 1600.0, fees["heavy_truck_base"])
	assert.Equal(t, 1250.0, fees["bus_base"])
}

func TestImporterFetchBuildsSnapshot(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "heavy") {
			_, _ = w.Write([]byte(heavyPage))
			return
		}
		_, _ = w.Write([]byte(feesPage))
	}))
	defer srv.Close()

	imp := NewImporter(srv.Client(), nil)
	imp.sources = []Source{
		{Name: "light", URL: srv.URL + "/light"},
		{Name: "heavy", URL: srv.URL + "/heavy-vehicle-fees"},
	}

	snapshot, err := imp.Fetch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 865.5, snapshot.LightVehicleFee["12"])
	assert.Equal(t, 233.69, snapshot.LightVehicleFee["3"]) // 865.50 * 0.27
	assert.Equal(t, 458.72, snapshot.LightVehicleFee["6"]) // 865.50 * 0.53
	assert.Equal(t, 540.0, snapshot.TACChargeByTerm["12"])
	assert.Equal(t, 135.0, snapshot.TACChargeByTerm["3"])
	assert.Equal(t, 1600.0, snapshot.HeavyVehicleBaseFee["heavy_vehicle_truck"])
	assert.Equal(t, 1250.0, snapshot.HeavyVehicleBaseFee["bus"])
	assert.Equal(t, []string{srv.URL + "/light", srv.URL + "/heavy-vehicle-fees"}, snapshot.Sources)
	require.Len(t, snapshot.DutyRates, 3)
	assert.Equal(t, 0.042, snapshot.DutyRates[0].Rate)
}

func TestImporterFetchFailsOnBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	imp := NewImporter(srv.Client(), nil)
	imp.sources = []Source{{Name: "light", URL: srv.URL}}

	_, err := imp.Fetch(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status")
}
