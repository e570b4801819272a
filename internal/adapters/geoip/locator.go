// Package geoip suggests a destination country from the caller's address
// using a MaxMind GeoLite2/GeoIP2 country database.
package geoip

import (
	"fmt"
	"net"
	"strings"

	"github.com/oschwald/geoip2-golang"

	"github.com/samirrijal/wayfarer/internal/core/domain"
)

// Locator implements ports.CountryLocator.
type Locator struct {
	db *geoip2.Reader
}

// Open loads the database at path.
func Open(path string) (*Locator, error) {
	db, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open geoip db: %w", err)
	}
	return &Locator{db: db}, nil
}

// CountryCode returns the lower-case ISO alpha-2 code for ip. Private,
// unparsable and unknown addresses yield domain.ErrNotFound.
func (l *Locator) CountryCode(ip string) (string, error) {
	addr := net.ParseIP(strings.TrimSpace(ip))
	if addr == nil || addr.IsLoopback() || addr.IsPrivate() || addr.IsUnspecified() {
		return "", domain.ErrNotFound
	}
	rec, err := l.db.Country(addr)
	if err != nil {
		return "", fmt.Errorf("geoip lookup: %w", err)
	}
	if rec.Country.IsoCode == "" {
		return "", domain.ErrNotFound
	}
	return strings.ToLower(rec.Country.IsoCode), nil
}

// Close releases the database.
func (l *Locator) Close() error {
	return l.db.Close()
}
