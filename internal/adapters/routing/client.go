// Package routing implements ports.RoutingProvider against an
// OpenRouteService-compatible directions API.
package routing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	geojson "github.com/paulmach/go.geojson"
	"github.com/valyala/fasthttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/samirrijal/wayfarer/internal/core/domain"
	"github.com/samirrijal/wayfarer/internal/pkg/config"
	"github.com/samirrijal/wayfarer/internal/pkg/geospatial"
	"github.com/samirrijal/wayfarer/internal/pkg/metrics"
	"github.com/samirrijal/wayfarer/internal/pkg/telemetry"
)

// Config configures the directions client.
type Config struct {
	BaseURL string
	Profile string
	APIKey  string
	Timeout time.Duration
	// AnchorToleranceMeters is how far the returned path may start or end
	// from the requested endpoints before they are spliced in.
	AnchorToleranceMeters float64
}

// Client calls the directions endpoint. It neither retries nor caches.
type Client struct {
	cfg  Config
	http *fasthttp.Client
}

// New creates a new Client.
func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{
		cfg: cfg,
		http: &fasthttp.Client{
			Name:                "wayfarer",
			ReadTimeout:         cfg.Timeout,
			WriteTimeout:        cfg.Timeout,
			MaxIdleConnDuration: 30 * time.Second,
		},
	}
}

type directionsRequest struct {
	Coordinates [][2]float64 `json:"coordinates"`
}

type errorBody struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Route requests a leg through coords in order.
func (c *Client) Route(ctx context.Context, coords []domain.GeoPoint) (*domain.Leg, error) {
	if len(coords) < 2 {
		return nil, nil
	}

	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanRoute)
	defer span.End()
	span.SetAttributes(attribute.Int(telemetry.AttrWaypoints, len(coords)))

	start := time.Now()
	leg, status, err := c.do(ctx, coords)
	if status != 0 {
		span.SetAttributes(attribute.Int(telemetry.AttrUpstream, status))
	}
	if err != nil {
		metrics.ObserveRoute("unavailable", time.Since(start))
		span.RecordError(err)
		span.SetStatus(codes.Error, "route unavailable")
		slog.Warn("route unavailable", "waypoints", len(coords), "status", status, "error", err)
		return nil, &domain.RouteUnavailableError{Status: status, Err: err}
	}
	metrics.ObserveRoute("ok", time.Since(start))
	return leg, nil
}

func (c *Client) do(ctx context.Context, coords []domain.GeoPoint) (*domain.Leg, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	body := directionsRequest{Coordinates: make([][2]float64, len(coords))}
	for i, p := range coords {
		body.Coordinates[i] = [2]float64{p.Lon, p.Lat}
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, 0, fmt.Errorf("encode request: %w", err)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.cfg.BaseURL + "/v2/directions/" + c.cfg.Profile + "/geojson")
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.Header.Set("Accept", "application/geo+json, application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", c.cfg.APIKey)
	}
	req.SetBody(payload)

	deadline := time.Now().Add(c.cfg.Timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := c.http.DoDeadline(req, resp, deadline); err != nil {
		return nil, 0, fmt.Errorf("directions request: %w", err)
	}

	status := resp.StatusCode()
	if status < 200 || status > 299 {
		var eb errorBody
		if json.Unmarshal(resp.Body(), &eb) == nil && eb.Error.Message != "" {
			return nil, status, errors.New(eb.Error.Message)
		}
		return nil, status, fmt.Errorf("unexpected status %d", status)
	}

	leg, err := c.decode(resp.Body(), coords)
	if err != nil {
		return nil, status, err
	}
	return leg, status, nil
}

// decode reads the first feature of a directions FeatureCollection.
func (c *Client) decode(body []byte, coords []domain.GeoPoint) (*domain.Leg, error) {
	fc, err := geojson.UnmarshalFeatureCollection(body)
	if err != nil {
		return nil, fmt.Errorf("decode directions: %w", err)
	}
	if len(fc.Features) == 0 || fc.Features[0].Geometry == nil {
		return nil, errors.New("no route in response")
	}
	f := fc.Features[0]
	if !f.Geometry.IsLineString() {
		return nil, fmt.Errorf("unexpected geometry %s", f.Geometry.Type)
	}

	path := make([]domain.GeoPoint, 0, len(f.Geometry.LineString)+2)
	for _, pos := range f.Geometry.LineString {
		if len(pos) < 2 {
			continue
		}
		path = append(path, domain.GeoPoint{Lat: pos[1], Lon: pos[0]})
	}
	from, to := coords[0], coords[len(coords)-1]
	path = anchor(path, from, to, c.cfg.AnchorToleranceMeters)

	leg := &domain.Leg{From: from, To: to, Path: path}
	distance, duration, ok := summary(f.Properties)
	if ok {
		leg.DistanceMeters = distance
		leg.DurationSeconds = duration
	} else {
		leg.DistanceMeters = pathLength(path)
	}
	return leg, nil
}

// summary reads properties.summary.{distance,duration}. Providers omit the
// block for zero-length routes.
func summary(props map[string]interface{}) (distance, duration float64, ok bool) {
	s, found := props["summary"].(map[string]interface{})
	if !found {
		return 0, 0, false
	}
	distance, ok = s["distance"].(float64)
	duration, _ = s["duration"].(float64)
	return distance, duration, ok
}

// anchor makes the path start at from and end at to. Endpoints already within
// tolerance are replaced so snapped road positions never show as a gap.
func anchor(path []domain.GeoPoint, from, to domain.GeoPoint, tolerance float64) []domain.GeoPoint {
	if len(path) == 0 {
		return []domain.GeoPoint{from, to}
	}
	first := path[0]
	if geospatial.Within(first.Lat, first.Lon, from.Lat, from.Lon, tolerance) {
		path[0] = from
	} else {
		path = append([]domain.GeoPoint{from}, path...)
	}
	last := path[len(path)-1]
	if len(path) > 1 && geospatial.Within(last.Lat, last.Lon, to.Lat, to.Lon, tolerance) {
		path[len(path)-1] = to
	} else {
		path = append(path, to)
	}
	return path
}

func pathLength(path []domain.GeoPoint) float64 {
	pts := make([][2]float64, len(path))
	for i, p := range path {
		pts[i] = [2]float64{p.Lat, p.Lon}
	}
	return geospatial.PathLength(pts)
}

// FromConfig builds a Client from the routing section of the process config.
func FromConfig(cfg config.RoutingConfig) *Client {
	return New(Config{
		BaseURL:               cfg.BaseURL,
		Profile:               cfg.Profile,
		APIKey:                cfg.APIKey,
		Timeout:               time.Duration(cfg.TimeoutSeconds) * time.Second,
		AnchorToleranceMeters: cfg.AnchorToleranceMeters,
	})
}
