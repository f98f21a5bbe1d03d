package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airas/airas/internal/airquality"
	"github.com/airas/airas/internal/banding"
)

func f(v float64) *float64 { return &v }

var now = time.Date(2026, 5, 12, 9, 30, 0, 0, time.UTC)

type fakeReports struct {
	report *airquality.Report
	err    error
	got    airquality.Location
}

func (r *fakeReports) GetReport(_ context.Context, loc airquality.Location) (*airquality.Report, error) {
	r.got = loc
	if r.err != nil {
		return nil, r.err
	}
	rep := *r.report
	rep.Location = loc
	return &rep, nil
}

type fakeFinder struct {
	mu      sync.Mutex
	results map[string][]airquality.Location
	err     error
	queries []string
}

func (f *fakeFinder) Search(_ context.Context, query string) ([]airquality.Location, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, query)
	if f.err != nil {
		return nil, f.err
	}
	return f.results[query], nil
}

type fakeResolver struct {
	loc airquality.Location
	ok  bool
}

func (r fakeResolver) Resolve(context.Context) (airquality.Location, bool) {
	return r.loc, r.ok
}

// syncBuffer guards output written from the searcher goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

var (
	fallback = airquality.Location{Name: "Lisbon", Country: "Portugal", Latitude: 38.72, Longitude: -9.14}
	berlin   = airquality.Location{Name: "Berlin", Admin1: "Land Berlin", Country: "Germany", Latitude: 52.52, Longitude: 13.41}
	located  = airquality.Location{Name: "Porto", Country: "Portugal", Latitude: 41.15, Longitude: -8.61}
)

func testReport() *airquality.Report {
	start := now.Truncate(time.Hour)
	series := make(airquality.Series, 0, 48)
	for i := 0; i < 48; i++ {
		series = append(series, airquality.Hour{
			Time:        start.Add(time.Duration(i) * time.Hour),
			EuropeanAQI: f(15),
			USAQI:       f(30),
			PM25:        f(5),
			UVIndex:     f(2),
		})
	}
	return &airquality.Report{
		Current: airquality.Snapshot{
			Time:        start,
			EuropeanAQI: 15,
			USAQI:       30,
			PM10:        9,
			PM25:        5,
			UVIndex:     2,
			Grass:       f(4),
		},
		Hourly:    series,
		Timezone:  "GMT",
		FetchedAt: now,
		Provider:  "open-meteo",
	}
}

func newTestApp(out *syncBuffer, finder *fakeFinder) (*app, *fakeReports) {
	reports := &fakeReports{report: testReport()}
	if finder == nil {
		finder = &fakeFinder{}
	}
	return &app{
		ctx:      context.Background(),
		fallback: fallback,
		reports:  reports,
		finder:   finder,
		resolver: fakeResolver{loc: located, ok: true},
		in:       strings.NewReader(""),
		out:      out,
		styles:   newStyles(out, false),
		log:      zerolog.Nop(),
		now:      func() time.Time { return now },
	}, reports
}

func TestParseCoordinates(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    airquality.Location
		wantErr bool
	}{
		{
			name:  "valid",
			input: "52.52,13.41",
			want:  airquality.Location{Name: "52.52,13.41", Latitude: 52.52, Longitude: 13.41},
		},
		{
			name:  "spaces around parts",
			input: " -33.87 , 151.21",
			want:  airquality.Location{Name: "-33.87,151.21", Latitude: -33.87, Longitude: 151.21},
		},
		{name: "no comma", input: "52.52", wantErr: true},
		{name: "bad latitude", input: "north,13.41", wantErr: true},
		{name: "bad longitude", input: "52.52,east", wantErr: true},
		{name: "latitude out of range", input: "91,0", wantErr: true},
		{name: "longitude out of range", input: "0,-181", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseCoordinates(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, airquality.ErrInvalidCoordinates)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLocate(t *testing.T) {
	finder := &fakeFinder{results: map[string][]airquality.Location{
		"Berlin": {berlin, {Name: "Berlin", Country: "United States", Latitude: 44.47, Longitude: -71.19}},
	}}

	tests := []struct {
		name     string
		cli      CLI
		ipLookup bool
		want     airquality.Location
		wantErr  string
	}{
		{name: "fallback by default", want: fallback},
		{name: "coordinates win", cli: CLI{At: "52.52,13.41", Place: "Berlin", Locate: true}, want: airquality.Location{Name: "52.52,13.41", Latitude: 52.52, Longitude: 13.41}},
		{name: "place takes best match", cli: CLI{Place: "Berlin", Locate: true}, want: berlin},
		{name: "unknown place", cli: CLI{Place: "Atlantis"}, wantErr: `no place matches "Atlantis"`},
		{name: "locate flag", cli: CLI{Locate: true}, want: located},
		{name: "ip lookup from config", ipLookup: true, want: located},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, _ := newTestApp(&syncBuffer{}, finder)
			a.ipLookup = tt.ipLookup

			got, err := a.locate(&tt.cli)
			if tt.wantErr != "" {
				assert.EqualError(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLocate_ResolverFallsBack(t *testing.T) {
	a, _ := newTestApp(&syncBuffer{}, nil)
	a.resolver = fakeResolver{loc: fallback, ok: false}

	got, err := a.locate(&CLI{Locate: true})
	require.NoError(t, err)
	assert.Equal(t, fallback, got)
}

func TestLocate_FinderError(t *testing.T) {
	a, _ := newTestApp(&syncBuffer{}, &fakeFinder{err: errors.New("boom")})

	_, err := a.locate(&CLI{Place: "Berlin"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestReportCmd(t *testing.T) {
	out := &syncBuffer{}
	a, reports := newTestApp(out, nil)

	require.NoError(t, (&ReportCmd{}).Run(&CLI{Scale: string(banding.ScaleEuropean)}, a))

	assert.Equal(t, fallback, reports.got)
	text := out.String()
	assert.Contains(t, text, "Lisbon, Portugal")
	assert.Contains(t, text, "15 Good")
	assert.Contains(t, text, "2.0 Low")
	assert.Contains(t, text, "PM2.5")
	assert.Contains(t, text, "EXCELLENT")
	assert.Contains(t, text, "Pranayama")
	assert.NotContains(t, text, "\x1b[", "colour disabled")
}

func TestReportCmd_USScale(t *testing.T) {
	out := &syncBuffer{}
	a, _ := newTestApp(out, nil)

	require.NoError(t, (&ReportCmd{}).Run(&CLI{Scale: string(banding.ScaleUS)}, a))
	assert.Contains(t, out.String(), "30 Good")
}

func TestReportCmd_ProviderError(t *testing.T) {
	a, reports := newTestApp(&syncBuffer{}, nil)
	reports.err = airquality.ErrProviderUnavailable

	err := (&ReportCmd{}).Run(&CLI{}, a)
	require.Error(t, err)
	assert.ErrorIs(t, err, airquality.ErrProviderUnavailable)
	assert.Contains(t, err.Error(), "Lisbon")
}

func TestForecastCmd(t *testing.T) {
	out := &syncBuffer{}
	a, _ := newTestApp(out, nil)

	require.NoError(t, (&ForecastCmd{}).Run(&CLI{At: "52.52,13.41"}, a))

	text := out.String()
	assert.Contains(t, text, "52.52,13.41")
	assert.Contains(t, text, "Today")
	assert.Contains(t, text, "Window")
}

func TestSearchCmd(t *testing.T) {
	finder := &fakeFinder{results: map[string][]airquality.Location{"Berlin": {berlin}}}

	t.Run("prints matches", func(t *testing.T) {
		out := &syncBuffer{}
		a, _ := newTestApp(out, finder)

		require.NoError(t, (&SearchCmd{Query: "Berlin"}).Run(a))
		assert.Contains(t, out.String(), "Berlin, Land Berlin, Germany")
		assert.Contains(t, out.String(), "--at 52.52,13.41")
	})

	t.Run("no matches", func(t *testing.T) {
		out := &syncBuffer{}
		a, _ := newTestApp(out, finder)

		require.NoError(t, (&SearchCmd{Query: "Atlantis"}).Run(a))
		assert.Contains(t, out.String(), `no places match "Atlantis"`)
	})

	t.Run("short query", func(t *testing.T) {
		a, _ := newTestApp(&syncBuffer{}, finder)
		assert.Error(t, (&SearchCmd{Query: "B"}).Run(a))
	})
}

func TestSearchInteractive(t *testing.T) {
	finder := &fakeFinder{results: map[string][]airquality.Location{"Berlin": {berlin}}}
	out := &syncBuffer{}
	a, _ := newTestApp(out, finder)
	a.in = strings.NewReader("B\nBe\nBer\nBerlin\n")

	require.NoError(t, a.searchInteractive(20*time.Millisecond, 2*time.Second))

	assert.Contains(t, out.String(), "> Berlin")
	assert.Contains(t, out.String(), "Berlin, Land Berlin, Germany")

	finder.mu.Lock()
	defer finder.mu.Unlock()
	assert.Equal(t, []string{"Berlin"}, finder.queries, "keystrokes are debounced")
}
