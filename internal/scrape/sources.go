package scrape

// Source is one external fee schedule page the importer reads.
type Source struct {
	Name string
	URL  string
}

// VICSources are the Victorian fee schedule pages, in the order their figures
// are referenced by estimate line items.
var VICSources = []Source{
	{Name: "VicRoads light vehicle fees", URL: "https://www.vicroads.vic.gov.au/registration/fees-and-payments"},
	{Name: "VicRoads heavy vehicle fees", URL: "https://www.vicroads.vic.gov.au/registration/registration-fees/heavy-vehicle-fees"},
	{Name: "VicRoads transfer and duty guidance", URL: "https://www.vicroads.vic.gov.au/registration/fees-and-payments/transfer-fees"},
	{Name: "SRO motor vehicle duty rates", URL: "https://www.sro.vic.gov.au/motor-vehicle-duty"},
}
