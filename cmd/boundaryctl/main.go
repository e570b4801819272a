// Command boundaryctl inspects and renders country subdivision datasets
// without the API stack. Downloaded documents are kept in an on-disk cache.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"

	"github.com/samirrijal/wayfarer/internal/adapters/badger"
	"github.com/samirrijal/wayfarer/internal/adapters/boundary"
	"github.com/samirrijal/wayfarer/internal/core/domain"
	"github.com/samirrijal/wayfarer/internal/core/usecases"
	"github.com/samirrijal/wayfarer/internal/pkg/config"
	"github.com/samirrijal/wayfarer/internal/pkg/country"
	"github.com/samirrijal/wayfarer/internal/pkg/geospatial"
	"github.com/samirrijal/wayfarer/internal/pkg/logging"
)

// Globals are shared by every command.
type Globals struct {
	CacheDir string `help:"Directory of the boundary document cache." default:".boundaries" type:"path" env:"WAYFARER_BOUNDARY_CACHE_DIR"`
	LogLevel string `help:"Log level." default:"warn" enum:"debug,info,warn,error"`
}

type CLI struct {
	Globals

	Resolve ResolveCmd `cmd:"" help:"Resolve a country name or code to its ISO alpha-2 code."`
	Fetch   FetchCmd   `cmd:"" help:"Download a country's subdivisions into the cache."`
	Render  RenderCmd  `cmd:"" help:"Write a country's subdivisions as an SVG choropleth."`
	Cached  CachedCmd  `cmd:"" help:"List countries present in the cache."`
}

type ResolveCmd struct {
	Country string `arg:"" help:"Country name, alias or ISO code."`
}

func (c *ResolveCmd) Run(g *Globals) error {
	code := country.Resolve(c.Country)
	if len(code) != 2 {
		return fmt.Errorf("unknown country %q", c.Country)
	}
	fmt.Printf("%s\t%s\n", code, country.Name(code))
	return nil
}

type FetchCmd struct {
	Country string `arg:"" help:"Country name, alias or ISO code."`
	Refresh bool   `help:"Ignore any cached copy."`
}

func (c *FetchCmd) Run(g *Globals) error {
	env, err := open(g)
	if err != nil {
		return err
	}
	defer env.close()

	ctx := context.Background()
	if c.Refresh {
		_ = env.store.Delete(ctx, usecases.BoundaryCachePrefix+country.Resolve(c.Country))
	}
	set, err := env.boundaries.Build(ctx, c.Country)
	if err != nil {
		return err
	}
	fmt.Printf("%s\t%d subdivisions\n", set.Code, len(set.Subdivisions))
	for _, name := range set.Names() {
		fmt.Printf("  %s\n", name)
	}
	return nil
}

type RenderCmd struct {
	Country  string   `arg:"" help:"Country name, alias or ISO code."`
	Out      string   `short:"o" help:"Output file; - writes to stdout." default:"map.svg"`
	Selected []string `help:"Subdivisions to draw as selected."`
	Visited  []string `help:"Subdivisions to draw as visited."`
	Width    float64  `help:"Viewport width; 0 uses the configured width."`
	Height   float64  `help:"Viewport height; 0 uses the configured height."`
}

func (c *RenderCmd) Run(g *Globals) error {
	env, err := open(g, func(vp *geospatial.Viewport) {
		if c.Width > 0 {
			vp.Width = c.Width
		}
		if c.Height > 0 {
			vp.Height = c.Height
		}
	})
	if err != nil {
		return err
	}
	defer env.close()

	set, err := env.boundaries.Build(context.Background(), c.Country)
	if err != nil {
		return err
	}

	st := domain.NewRegionVisitState(set.Code)
	st.Bind(set.Names())
	var unknown []string
	for _, name := range c.Visited {
		if !st.MarkVisited(name, true) {
			unknown = append(unknown, name)
		}
	}
	for _, name := range c.Selected {
		if !st.Known(name) {
			unknown = append(unknown, name)
			continue
		}
		if !st.ToggleSelected(name) {
			// Listed twice; keep it selected.
			st.ToggleSelected(name)
		}
	}
	if len(unknown) > 0 {
		return fmt.Errorf("unknown subdivisions for %s: %s", set.Code, strings.Join(unknown, ", "))
	}

	view := set.View(st, domain.DefaultRegionPalette)
	if c.Out == "-" {
		return writeSVG(os.Stdout, view, country.Name(set.Code))
	}
	f, err := os.Create(c.Out)
	if err != nil {
		return err
	}
	if err := writeSVG(f, view, country.Name(set.Code)); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "wrote %d subdivisions to %s\n", len(view.Regions), c.Out)
	return nil
}

type CachedCmd struct{}

func (c *CachedCmd) Run(g *Globals) error {
	store, err := badger.Open(g.CacheDir)
	if err != nil {
		return err
	}
	defer store.Close()

	keys, err := store.Keys(usecases.BoundaryCachePrefix)
	if err != nil {
		return err
	}
	sort.Strings(keys)
	for _, k := range keys {
		code := strings.TrimPrefix(k, usecases.BoundaryCachePrefix)
		fmt.Printf("%s\t%s\n", code, country.Name(code))
	}
	return nil
}

// cmdEnv is the boundary stack a command runs against.
type cmdEnv struct {
	store      *badger.Store
	boundaries *usecases.BoundaryService
}

func (e *cmdEnv) close() { _ = e.store.Close() }

func open(g *Globals, tweaks ...func(*geospatial.Viewport)) (*cmdEnv, error) {
	cfg, err := config.Load("wayfarer-boundaryctl")
	if err != nil {
		return nil, err
	}
	store, err := badger.Open(g.CacheDir)
	if err != nil {
		return nil, err
	}

	vp := geospatial.Viewport{
		Width:   cfg.Boundary.ViewportWidth,
		Height:  cfg.Boundary.ViewportHeight,
		Padding: cfg.Boundary.Padding,
	}
	for _, t := range tweaks {
		t(&vp)
	}
	provider, source := boundary.FromConfig(cfg.Boundary)
	svc := usecases.NewBoundaryService(provider, store, cfg.Boundary.CacheTTLSeconds, vp, source)
	return &cmdEnv{store: store, boundaries: svc}, nil
}

func main() {
	_ = godotenv.Load()

	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("boundaryctl"),
		kong.Description("Inspect and render country subdivision boundaries."),
		kong.UsageOnError(),
	)
	// stdout may carry the rendered map.
	slog.SetDefault(logging.New(os.Stderr, cli.LogLevel, "text"))
	ctx.FatalIfErrorf(ctx.Run(&cli.Globals))
}
