package codec

import (
	"fmt"
	"strconv"
	"strings"
)

// EncodeGeoPoint renders a (lat, lon) pair in RediSearch's GEO wire order,
// "lon,lat" (spec.md §3.3's "geographic point (lat,lon string)" field
// reverses to that order on the wire, same as RediSearch's own convention).
func EncodeGeoPoint(lat, lon float64) string {
	return fmt.Sprintf("%s,%s", EncodeFloat(lon), EncodeFloat(lat))
}

// DecodeGeoPoint parses a "lon,lat" wire string back into (lat, lon).
func DecodeGeoPoint(s string) (lat, lon float64, err error) {
	parts := strings.SplitN(s, ",", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("codec: malformed geo point %q", s)
	}
	lon, err = strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("codec: malformed geo longitude %q: %w", parts[0], err)
	}
	lat, err = strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("codec: malformed geo latitude %q: %w", parts[1], err)
	}
	return lat, lon, nil
}
