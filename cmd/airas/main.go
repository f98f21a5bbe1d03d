// Command airas prints air quality guidance for outdoor breathwork and
// sound-healing sessions.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/airas/airas/internal/airquality"
	"github.com/airas/airas/internal/airquality/openmeteo"
	"github.com/airas/airas/internal/banding"
	"github.com/airas/airas/internal/config"
	"github.com/airas/airas/internal/geocoding"
	"github.com/airas/airas/internal/location"
)

// Version is set at compile time via ldflags.
var Version = "dev"

// CLI is the command line surface.
type CLI struct {
	At      string           `help:"Coordinates as LAT,LON." placeholder:"LAT,LON"`
	Place   string           `short:"p" help:"Look up a place by name and use the best match."`
	Locate  bool             `help:"Approximate position from the public IP address."`
	Scale   string           `enum:"european,us" default:"european" help:"Headline AQI scale (${enum})."`
	NoColor bool             `help:"Disable colour output."`
	Debug   bool             `help:"Log debug output to stderr."`
	Version kong.VersionFlag `help:"Print version and exit."`

	Report   ReportCmd   `cmd:"" default:"1" help:"Current conditions and session guidance."`
	Forecast ForecastCmd `cmd:"" help:"Daily outlook, session windows and warnings."`
	Search   SearchCmd   `cmd:"" help:"Search for places by name."`
}

// reportSource fetches reports.
type reportSource interface {
	GetReport(ctx context.Context, loc airquality.Location) (*airquality.Report, error)
}

// resolver approximates the caller's position.
type resolver interface {
	Resolve(ctx context.Context) (airquality.Location, bool)
}

// app carries what every command needs.
type app struct {
	ctx      context.Context
	fallback airquality.Location
	ipLookup bool
	reports  reportSource
	finder   geocoding.Finder
	resolver resolver
	in       io.Reader
	out      io.Writer
	styles   styles
	log      zerolog.Logger
	now      func() time.Time
}

func main() {
	// A local .env is optional
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "airas: reading .env: %v\n", err)
	}

	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("airas"),
		kong.Description("Air quality guidance for outdoor breathwork and sound healing."),
		kong.UsageOnError(),
		kong.Vars{"version": Version},
	)

	level := zerolog.WarnLevel
	if cli.Debug {
		level = zerolog.DebugLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(level).
		With().
		Timestamp().
		Logger()

	cfg, err := config.Load()
	kctx.FatalIfErrorf(err)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a := &app{
		ctx:      ctx,
		fallback: cfg.Location.Location(),
		ipLookup: cfg.Location.IPLookup,
		reports: airquality.NewService(airquality.ServiceConfig{
			Provider: openmeteo.NewClient(openmeteo.ClientConfig{
				BaseURL: cfg.AirQuality.BaseURL,
				Timeout: cfg.AirQuality.Timeout,
			}),
			Logger:   log,
			CacheTTL: cfg.AirQuality.CacheTTL,
		}),
		finder: geocoding.NewClient(geocoding.ClientConfig{
			BaseURL:  cfg.Geocoding.BaseURL,
			Language: cfg.Geocoding.Language,
			Timeout:  cfg.Geocoding.Timeout,
		}),
		resolver: location.NewResolver(location.ResolverConfig{
			Locator:  location.NewIPLocator(location.IPLocatorConfig{}),
			Fallback: cfg.Location.Location(),
			Logger:   log,
		}),
		in:     os.Stdin,
		out:    os.Stdout,
		styles: newStyles(os.Stdout, !cli.NoColor),
		log:    log,
		now:    time.Now,
	}

	kctx.FatalIfErrorf(kctx.Run(&cli, a))
}

// locate picks the location from --at, then --place, then IP lookup when
// enabled, then the configured fallback.
func (a *app) locate(cli *CLI) (airquality.Location, error) {
	switch {
	case cli.At != "":
		return parseCoordinates(cli.At)

	case cli.Place != "":
		results, err := a.finder.Search(a.ctx, cli.Place)
		if err != nil {
			return airquality.Location{}, fmt.Errorf("looking up %q: %w", cli.Place, err)
		}
		if len(results) == 0 {
			return airquality.Location{}, fmt.Errorf("no place matches %q", cli.Place)
		}
		return results[0], nil

	case cli.Locate || a.ipLookup:
		loc, ok := a.resolver.Resolve(a.ctx)
		if !ok {
			a.log.Warn().Str("fallback", loc.Name).Msg("could not determine location")
		}
		return loc, nil

	default:
		return a.fallback, nil
	}
}

// parseCoordinates reads "LAT,LON".
func parseCoordinates(s string) (airquality.Location, error) {
	latRaw, lonRaw, ok := strings.Cut(s, ",")
	if !ok {
		return airquality.Location{}, fmt.Errorf("%w: want LAT,LON, got %q", airquality.ErrInvalidCoordinates, s)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(latRaw), 64)
	if err != nil {
		return airquality.Location{}, fmt.Errorf("%w: latitude %q", airquality.ErrInvalidCoordinates, latRaw)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(lonRaw), 64)
	if err != nil {
		return airquality.Location{}, fmt.Errorf("%w: longitude %q", airquality.ErrInvalidCoordinates, lonRaw)
	}

	loc := airquality.Location{Latitude: lat, Longitude: lon}
	if err := loc.Validate(); err != nil {
		return airquality.Location{}, err
	}
	loc.Name = loc.Key()
	return loc, nil
}

// ReportCmd prints current conditions.
type ReportCmd struct{}

// Run executes the report command.
func (c *ReportCmd) Run(cli *CLI, a *app) error {
	report, err := a.fetch(cli)
	if err != nil {
		return err
	}
	a.renderReport(report, banding.Scale(cli.Scale), a.now())
	return nil
}

// ForecastCmd prints the outlook.
type ForecastCmd struct{}

// Run executes the forecast command.
func (c *ForecastCmd) Run(cli *CLI, a *app) error {
	report, err := a.fetch(cli)
	if err != nil {
		return err
	}
	a.renderForecast(report, a.now())
	return nil
}

func (a *app) fetch(cli *CLI) (*airquality.Report, error) {
	loc, err := a.locate(cli)
	if err != nil {
		return nil, err
	}
	report, err := a.reports.GetReport(a.ctx, loc)
	if err != nil {
		return nil, fmt.Errorf("air quality for %s: %w", loc.Name, err)
	}
	return report, nil
}

// SearchCmd looks up places.
type SearchCmd struct {
	Query       string `arg:"" optional:"" help:"Place name."`
	Interactive bool   `short:"i" help:"Read queries from stdin as they are typed, one per line."`
}

// Run executes the search command.
func (c *SearchCmd) Run(a *app) error {
	if c.Interactive {
		return a.searchInteractive(geocoding.DefaultDebounce, 10*time.Second)
	}
	if len([]rune(strings.TrimSpace(c.Query))) < geocoding.MinQueryLength {
		return fmt.Errorf("query must be at least %d characters", geocoding.MinQueryLength)
	}
	results, err := a.finder.Search(a.ctx, c.Query)
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}
	a.renderPlaces(c.Query, results)
	return nil
}
