package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Valkey    ValkeyConfig    `mapstructure:"valkey"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Routing   RoutingConfig   `mapstructure:"routing"`
	Boundary  BoundaryConfig  `mapstructure:"boundary"`
	MapView   MapViewConfig   `mapstructure:"mapview"`
	GeoIP     GeoIPConfig     `mapstructure:"geoip"`
	Temporal  TemporalConfig  `mapstructure:"temporal"`
}

type ServerConfig struct {
	Port         int    `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
	OpenAPIPath  string `mapstructure:"openapi_path"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type NATSConfig struct {
	URL string `mapstructure:"url"`
}

type ValkeyConfig struct {
	Addr string `mapstructure:"addr"`
}

type TelemetryConfig struct {
	ServiceName string  `mapstructure:"service_name"`
	Exporter    string  `mapstructure:"exporter"` // otlp | stdout
	Endpoint    string  `mapstructure:"endpoint"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
	Enabled     bool    `mapstructure:"enabled"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// RoutingConfig configures the OpenRouteService-compatible directions client.
type RoutingConfig struct {
	BaseURL               string  `mapstructure:"base_url"`
	Profile               string  `mapstructure:"profile"`
	APIKey                string  `mapstructure:"api_key"`
	TimeoutSeconds        int     `mapstructure:"timeout_seconds"`
	CacheTTLSeconds       int     `mapstructure:"cache_ttl_seconds"`
	MaxConcurrent         int     `mapstructure:"max_concurrent"`
	AnchorToleranceMeters float64 `mapstructure:"anchor_tolerance_meters"`
}

// BoundaryConfig selects the boundary dataset source. A non-empty
// ShapefilePath takes precedence over URLTemplate.
type BoundaryConfig struct {
	URLTemplate     string  `mapstructure:"url_template"`
	ShapefilePath   string  `mapstructure:"shapefile_path"`
	CacheTTLSeconds int     `mapstructure:"cache_ttl_seconds"`
	ViewportWidth   float64 `mapstructure:"viewport_width"`
	ViewportHeight  float64 `mapstructure:"viewport_height"`
	Padding         float64 `mapstructure:"padding"`
	TimeoutSeconds  int     `mapstructure:"timeout_seconds"`
}

type MapViewConfig struct {
	ViewportWidth  float64  `mapstructure:"viewport_width"`
	ViewportHeight float64  `mapstructure:"viewport_height"`
	Padding        float64  `mapstructure:"padding"`
	MaxZoom        int      `mapstructure:"max_zoom"`
	Palette        []string `mapstructure:"palette"`
}

type GeoIPConfig struct {
	DBPath string `mapstructure:"db_path"`
}

type TemporalConfig struct {
	HostPort  string `mapstructure:"host_port"`
	Namespace string `mapstructure:"namespace"`
	TaskQueue string `mapstructure:"task_queue"`
}

// DefaultPalette colours days in order; day N uses entry (N-1) mod len.
var DefaultPalette = []string{"#e11d48", "#2563eb", "#16a34a", "#d97706", "#7c3aed", "#0891b2", "#db2777"}

// Load reads configuration from file and environment variables.
func Load(service string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 10)
	v.SetDefault("server.openapi_path", "api/openapi.yaml")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "wayfarer")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "wayfarer")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("valkey.addr", "localhost:6379")
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.exporter", "otlp")
	v.SetDefault("telemetry.endpoint", "tempo:4317")
	v.SetDefault("telemetry.sample_ratio", 1.0)
	v.SetDefault("telemetry.enabled", true)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("routing.base_url", "https://api.openrouteservice.org")
	v.SetDefault("routing.profile", "driving-car")
	v.SetDefault("routing.api_key", "")
	v.SetDefault("routing.timeout_seconds", 10)
	v.SetDefault("routing.cache_ttl_seconds", 86400)
	v.SetDefault("routing.max_concurrent", 4)
	v.SetDefault("routing.anchor_tolerance_meters", 25.0)
	v.SetDefault("boundary.url_template", "https://code.highcharts.com/mapdata/countries/{code}/{code}-all.topo.json")
	v.SetDefault("boundary.shapefile_path", "")
	v.SetDefault("boundary.cache_ttl_seconds", 604800)
	v.SetDefault("boundary.viewport_width", 800.0)
	v.SetDefault("boundary.viewport_height", 600.0)
	v.SetDefault("boundary.padding", 0.0)
	v.SetDefault("boundary.timeout_seconds", 15)
	v.SetDefault("mapview.viewport_width", 800.0)
	v.SetDefault("mapview.viewport_height", 600.0)
	v.SetDefault("mapview.padding", 48.0)
	v.SetDefault("mapview.max_zoom", 15)
	v.SetDefault("mapview.palette", DefaultPalette)
	v.SetDefault("geoip.db_path", "")
	v.SetDefault("temporal.host_port", "localhost:7233")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("temporal.task_queue", "wayfarer-prefetch")

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	// Environment variables: WAYFARER_ROUTING_API_KEY → routing.api_key
	v.SetEnvPrefix("WAYFARER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks that required configuration fields are present and sane.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Database.Host == "" {
		errs = append(errs, "database.host is required")
	}
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", c.Database.Port))
	}
	if c.Database.User == "" {
		errs = append(errs, "database.user is required")
	}
	if c.Database.DBName == "" {
		errs = append(errs, "database.dbname is required")
	}
	if c.NATS.URL == "" {
		errs = append(errs, "nats.url is required")
	}
	if c.Valkey.Addr == "" {
		errs = append(errs, "valkey.addr is required")
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, "server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, "server.write_timeout must be positive")
	}
	if c.Telemetry.Enabled {
		switch c.Telemetry.Exporter {
		case "otlp", "stdout":
		default:
			errs = append(errs, fmt.Sprintf("telemetry.exporter must be otlp or stdout, got %q", c.Telemetry.Exporter))
		}
		if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
			errs = append(errs, fmt.Sprintf("telemetry.sample_ratio must be within [0,1], got %v", c.Telemetry.SampleRatio))
		}
	}
	if c.Routing.BaseURL == "" {
		errs = append(errs, "routing.base_url is required")
	}
	if c.Routing.Profile == "" {
		errs = append(errs, "routing.profile is required")
	}
	if c.Routing.TimeoutSeconds <= 0 {
		errs = append(errs, "routing.timeout_seconds must be positive")
	}
	if c.Routing.MaxConcurrent <= 0 {
		errs = append(errs, "routing.max_concurrent must be positive")
	}
	if c.Routing.AnchorToleranceMeters < 0 {
		errs = append(errs, "routing.anchor_tolerance_meters must not be negative")
	}
	if c.Boundary.ShapefilePath == "" && !strings.Contains(c.Boundary.URLTemplate, "{code}") {
		errs = append(errs, "boundary.url_template must contain {code} when no shapefile_path is set")
	}
	if c.Boundary.ViewportWidth <= 0 || c.Boundary.ViewportHeight <= 0 {
		errs = append(errs, "boundary viewport must have positive width and height")
	}
	if c.Boundary.Padding < 0 || 2*c.Boundary.Padding >= c.Boundary.ViewportWidth || 2*c.Boundary.Padding >= c.Boundary.ViewportHeight {
		errs = append(errs, "boundary.padding must leave a drawable area")
	}
	if c.MapView.ViewportWidth <= 0 || c.MapView.ViewportHeight <= 0 {
		errs = append(errs, "mapview viewport must have positive width and height")
	}
	if c.MapView.MaxZoom <= 0 || c.MapView.MaxZoom > 22 {
		errs = append(errs, fmt.Sprintf("mapview.max_zoom must be 1-22, got %d", c.MapView.MaxZoom))
	}
	if len(c.MapView.Palette) == 0 {
		errs = append(errs, "mapview.palette must not be empty")
	}
	if c.Temporal.TaskQueue == "" {
		errs = append(errs, "temporal.task_queue is required")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
