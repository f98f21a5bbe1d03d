package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/airas/airas/internal/airquality"
	"github.com/airas/airas/internal/banding"
	"github.com/airas/airas/internal/forecast"
	"github.com/airas/airas/internal/geocoding"
	"github.com/airas/airas/internal/guidance"
	"github.com/airas/airas/internal/pollen"
)

type styles struct {
	r     *lipgloss.Renderer
	color bool

	title   lipgloss.Style
	label   lipgloss.Style
	muted   lipgloss.Style
	warning lipgloss.Style
}

func newStyles(w io.Writer, color bool) styles {
	r := lipgloss.NewRenderer(w)
	s := styles{
		r:       r,
		color:   color,
		title:   r.NewStyle(),
		label:   r.NewStyle(),
		muted:   r.NewStyle(),
		warning: r.NewStyle(),
	}
	if color {
		s.title = r.NewStyle().Bold(true).Foreground(lipgloss.Color("#00BFFF"))
		s.label = r.NewStyle().Bold(true).Foreground(lipgloss.Color("#6C757D"))
		s.muted = r.NewStyle().Foreground(lipgloss.Color("#6C757D"))
		s.warning = r.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFD93D"))
	}
	return s
}

// band renders text in the band's colour.
func (s styles) band(b banding.Band, text string) string {
	if !s.color || b.Colour == "" {
		return text
	}
	return s.r.NewStyle().Bold(true).Foreground(lipgloss.Color(b.Colour)).Render(text)
}

func (s styles) rating(r guidance.Rating) string {
	text := strings.ToUpper(string(r))
	if !s.color {
		return text
	}
	colour := map[guidance.Rating]string{
		guidance.RatingExcellent:  "#50F0E6",
		guidance.RatingGood:       "#50CCAA",
		guidance.RatingCaution:    "#F0E641",
		guidance.RatingIndoorOnly: "#FF5050",
		guidance.RatingAvoid:      "#960032",
	}[r]
	return s.r.NewStyle().Bold(true).Foreground(lipgloss.Color(colour)).Render(text)
}

func (a *app) row(label, value string) {
	fmt.Fprintf(a.out, "  %s %s\n", a.styles.label.Render(fmt.Sprintf("%-10s", label)), value)
}

func heading(loc airquality.Location) string {
	parts := []string{loc.Name}
	if loc.Admin1 != "" {
		parts = append(parts, loc.Admin1)
	}
	if loc.Country != "" {
		parts = append(parts, loc.Country)
	}
	return strings.Join(parts, ", ")
}

func (a *app) renderHeader(r *airquality.Report) {
	fmt.Fprintln(a.out, a.styles.title.Render(heading(r.Location)))
	fmt.Fprintln(a.out, a.styles.muted.Render(fmt.Sprintf("%.2f, %.2f  updated %s %s from %s",
		r.Location.Latitude, r.Location.Longitude,
		r.Current.Time.Format("15:04"), r.Timezone, r.Provider)))
	fmt.Fprintln(a.out)
}

func (a *app) renderReport(r *airquality.Report, scale banding.Scale, now time.Time) {
	cur := &r.Current
	a.renderHeader(r)

	aqi := cur.EuropeanAQI
	if scale == banding.ScaleUS {
		aqi = cur.USAQI
	}
	aqiBand := banding.AQI(aqi, scale)
	a.row("AQI", fmt.Sprintf("%s  %s", a.styles.band(aqiBand, fmt.Sprintf("%.0f %s", aqi, aqiBand.Label)),
		a.styles.muted.Render(banding.Tagline(cur.EuropeanAQI))))

	uvBand := banding.UV(cur.UVIndex)
	exposure := banding.ExposureFor(cur.UVIndex)
	a.row("UV", fmt.Sprintf("%s  safe exposure %s",
		a.styles.band(uvBand, fmt.Sprintf("%.1f %s", cur.UVIndex, uvBand.Label)), exposure.SafeMinutes))

	if level := pollen.OverallLevel(cur); level != nil {
		a.row("Pollen", fmt.Sprintf("%s  %s", a.styles.band(*level, level.Label), pollen.PractitionerNote(cur)))
	} else {
		a.row("Pollen", a.styles.muted.Render("no data"))
	}

	for _, p := range airquality.Pollutants(r, now) {
		a.row(p.Name, fmt.Sprintf("%s %s", a.styles.band(p.Band, fmt.Sprintf("%.1f", p.Value)), a.styles.muted.Render(p.Unit)))
	}

	g := guidance.Derive(r, now)
	fmt.Fprintln(a.out)
	fmt.Fprintf(a.out, "  %s  %s\n", a.styles.rating(g.Rating), g.Summary)
	for _, m := range g.Modalities {
		mark := "ok"
		if !m.Safe {
			mark = a.styles.warning.Render("no")
		}
		line := fmt.Sprintf("    %-3s %s", mark, m.Name)
		if m.Note != "" {
			line += "  " + a.styles.muted.Render(m.Note)
		}
		fmt.Fprintln(a.out, line)
	}
	for _, f := range g.Factors {
		fmt.Fprintf(a.out, "    %s %s: %s\n", a.styles.warning.Render(string(f.Severity)), f.Label, f.Detail)
	}
	if g.NextWindow != "" {
		fmt.Fprintln(a.out)
		a.row("Next", g.NextWindow)
	}
}

func (a *app) renderForecast(r *airquality.Report, now time.Time) {
	a.renderHeader(r)

	for _, d := range forecast.DailyForecasts(r.Hourly, now) {
		fmt.Fprintf(a.out, "  %s  AQI %s  UV %s  pollen %-9s %s\n",
			a.styles.label.Render(fmt.Sprintf("%-9s", d.DayLabel)),
			a.styles.band(d.AQIBand, fmt.Sprintf("%-16s", fmt.Sprintf("%.0f %s", d.AvgAQI, d.AQIBand.Label))),
			a.styles.band(d.UVBand, fmt.Sprintf("%-14s", fmt.Sprintf("%.1f %s", d.PeakUV, d.UVBand.Label))),
			d.PollenLabel, d.SessionSafe)
	}

	windows := forecast.BestWindows(r.Hourly, now)
	fmt.Fprintln(a.out)
	if len(windows) == 0 {
		a.row("Windows", a.styles.muted.Render("no good session windows ahead"))
	}
	for _, w := range windows {
		a.row("Window", fmt.Sprintf("%s %s-%s (%dh)  AQI %.0f  %s",
			w.Start.Format("Mon"), w.Start.Format("15:04"), w.End.Format("15:04"), w.Hours, w.AvgAQI, w.Recommendation))
	}

	for _, warning := range forecast.UpcomingWarnings(r.Hourly, now) {
		a.row("Warning", a.styles.warning.Render(warning))
	}
}

func (a *app) renderPlaces(query string, places []airquality.Location) {
	if len(places) == 0 {
		fmt.Fprintf(a.out, "no places match %q\n", query)
		return
	}
	for _, p := range places {
		fmt.Fprintf(a.out, "%s  %s\n", heading(p), a.styles.muted.Render(fmt.Sprintf("--at %.2f,%.2f", p.Latitude, p.Longitude)))
	}
}

// searchInteractive treats each stdin line as the search box contents,
// printing results for whichever query settles. At end of input it waits
// up to wait for the final query's results.
func (a *app) searchInteractive(debounce, wait time.Duration) error {
	delivered := make(chan string, 16)
	searcher := geocoding.NewSearcher(geocoding.SearcherConfig{
		Finder:   a.finder,
		Logger:   a.log,
		Debounce: debounce,
		OnResult: func(query string, results []airquality.Location) {
			if query != "" {
				fmt.Fprintf(a.out, "> %s\n", query)
				a.renderPlaces(query, results)
			}
			select {
			case delivered <- query:
			default:
			}
		},
	})
	defer searcher.Close()

	var last string
	scanner := bufio.NewScanner(a.in)
	for scanner.Scan() {
		last = strings.TrimSpace(scanner.Text())
		searcher.Submit(last)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading queries: %w", err)
	}

	if q, _ := searcher.Results(); q == last {
		return nil
	}
	timeout := time.After(wait)
	for {
		select {
		case q := <-delivered:
			if q == last {
				return nil
			}
		case <-timeout:
			return fmt.Errorf("timed out waiting for results for %q", last)
		case <-a.ctx.Done():
			return a.ctx.Err()
		}
	}
}
