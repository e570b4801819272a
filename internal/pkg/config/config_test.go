package config

import (
	"strings"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("wayfarer-test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Telemetry.ServiceName != "wayfarer-test" {
		t.Errorf("expected service name wayfarer-test, got %s", cfg.Telemetry.ServiceName)
	}
	if cfg.Routing.Profile != "driving-car" {
		t.Errorf("expected driving-car, got %s", cfg.Routing.Profile)
	}
	if cfg.Boundary.ViewportWidth != 800 || cfg.Boundary.ViewportHeight != 600 {
		t.Errorf("expected 800x600 boundary viewport, got %vx%v", cfg.Boundary.ViewportWidth, cfg.Boundary.ViewportHeight)
	}
	if len(cfg.MapView.Palette) != len(DefaultPalette) {
		t.Errorf("expected default palette, got %v", cfg.MapView.Palette)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("WAYFARER_ROUTING_PROFILE", "foot-walking")
	t.Setenv("WAYFARER_SERVER_PORT", "9090")

	cfg, err := Load("wayfarer-test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Routing.Profile != "foot-walking" {
		t.Errorf("expected foot-walking, got %s", cfg.Routing.Profile)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Server.Port)
	}
}

func TestLoad_InvalidEnvFailsValidation(t *testing.T) {
	t.Setenv("WAYFARER_MAPVIEW_MAX_ZOOM", "40")

	_, err := Load("wayfarer-test")
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "mapview.max_zoom") {
		t.Errorf("expected max_zoom in error, got %v", err)
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := &Config{}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"server.port", "database.host", "nats.url", "routing.base_url", "boundary.url_template", "temporal.task_queue"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected %q in error, got %v", want, err)
		}
	}
}

func TestValidate_ShapefileReplacesTemplate(t *testing.T) {
	cfg, err := Load("wayfarer-test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cfg.Boundary.URLTemplate = ""
	cfg.Boundary.ShapefilePath = "/data/ne_10m_admin_1_states_provinces.shp"
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestDSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", DBName: "wayfarer", SSLMode: "disable"}
	want := "postgres://u:p@db:5432/wayfarer?sslmode=disable"
	if got := d.DSN(); got != want {
		t.Errorf("expected %s, got %s", want, got)
	}
}
