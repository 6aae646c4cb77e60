package weather

import (
	"context"
	"log"
	"strings"
)

// ChainGeocoder asks each geocoder in order and returns the first match.
type ChainGeocoder []Geocoder

func (c ChainGeocoder) Geocode(ctx context.Context, query string) (*Place, error) {
	var lastErr error
	for _, g := range c {
		if g == nil {
			continue
		}
		place, err := g.Geocode(ctx, query)
		if err != nil {
			lastErr = err
			continue
		}
		if place != nil {
			return place, nil
		}
	}
	return nil, lastErr
}

// Resolve is the best-effort lookup used by the query paths: provider errors are
// logged and reported as no match.
func Resolve(ctx context.Context, g Geocoder, text string) *Place {
	text = strings.TrimSpace(text)
	if g == nil || text == "" {
		return nil
	}
	place, err := g.Geocode(ctx, text)
	if err != nil {
		log.Printf("ERROR: geocoding %q failed: %v", text, err)
		return nil
	}
	return place
}
