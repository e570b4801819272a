package boundary

import (
	"time"

	"github.com/samirrijal/wayfarer/internal/core/ports"
	"github.com/samirrijal/wayfarer/internal/pkg/config"
)

// FromConfig picks the provider for cfg and returns it with its metrics label.
// A configured shapefile wins over the URL template.
func FromConfig(cfg config.BoundaryConfig) (ports.BoundaryProvider, string) {
	if cfg.ShapefilePath != "" {
		return NewShapefileProvider(cfg.ShapefilePath), "shapefile"
	}
	return NewHTTPProvider(cfg.URLTemplate, time.Duration(cfg.TimeoutSeconds)*time.Second), "http"
}
