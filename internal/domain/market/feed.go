// Package market holds marketplace listings surfaced by the feed endpoint.
package market

// Listing is a marketplace item with its AI yield estimate.
type Listing struct {
	ID         string
	Title      string
	Price      float64
	YieldPct   float64
	Confidence float64
}

// Feed returns the curated listing shown to clients.
func Feed() []Listing {
	return []Listing{
		{ID: "macbook", Title: "MacBook Pro M3", Price: 950, YieldPct: 42.1, Confidence: 0.82},
		{ID: "jordan1", Title: "Jordan 1 Retro", Price: 180, YieldPct: 77.8, Confidence: 0.74},
	}
}
