package report

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"streamwatch/internal/config"
	"streamwatch/internal/fileutil"
	"streamwatch/internal/logging"
	"streamwatch/internal/store"
)

//go:embed dashboard.html.tmpl
var dashboardTemplate string

// Generator renders the HTML dashboard from the detection store.
type Generator struct {
	cfg     *config.Config
	logger  *slog.Logger
	tmpl    *template.Template
	printer *message.Printer
}

// StreamerSummary aggregates history per monitored login.
type StreamerSummary struct {
	Login         string
	Name          string
	Checks        int
	Detections    int
	Rate          float64
	MaxConfidence float64
	LastChecked   time.Time
	LastDetection time.Time
}

// pageData is the template's root context.
type pageData struct {
	GeneratedAt   time.Time
	TotalChecks   int
	Detections    int
	DetectionRate float64
	Streamers     []StreamerSummary
	Records       []store.Record
}

// New builds a dashboard generator.
func New(cfg *config.Config, logger *slog.Logger) (*Generator, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	printer := message.NewPrinter(language.English)

	funcs := template.FuncMap{
		"viewers": func(n int) string { return printer.Sprintf("%d", n) },
		"percent": func(v float64) string { return fmt.Sprintf("%.1f%%", v*100) },
		"local":   func(t time.Time) string { return t.Local().Format("2006-01-02 15:04") },
	}
	tmpl, err := template.New("dashboard").Funcs(funcs).Parse(dashboardTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse dashboard template: %w", err)
	}

	return &Generator{
		cfg:     cfg,
		logger:  logging.WithComponent(logger, "report"),
		tmpl:    tmpl,
		printer: printer,
	}, nil
}

// Generate reads the store, renders the dashboard, and writes it atomically.
// It returns the output path.
func (g *Generator) Generate() (string, error) {
	records := store.Open(g.cfg.DetectionsFile(), g.logger).Records()

	var buf bytes.Buffer
	if err := g.Render(&buf, records); err != nil {
		return "", err
	}

	outPath := g.cfg.DashboardFile()
	if err := fileutil.WriteFileAtomic(outPath, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("write dashboard: %w", err)
	}

	g.logger.Info("dashboard generated",
		logging.String("path", outPath),
		logging.Int("records", len(records)))
	return outPath, nil
}

// Render writes the dashboard HTML for the given records.
func (g *Generator) Render(w io.Writer, records []store.Record) error {
	data := buildPageData(records)
	if err := g.tmpl.Execute(w, data); err != nil {
		return fmt.Errorf("render dashboard: %w", err)
	}
	return nil
}

func buildPageData(records []store.Record) pageData {
	data := pageData{
		GeneratedAt: time.Now().UTC(),
		TotalChecks: len(records),
	}

	summaries := make(map[string]*StreamerSummary)
	var order []string
	for _, record := range records {
		login := strings.ToLower(record.StreamerLogin)
		summary, ok := summaries[login]
		if !ok {
			summary = &StreamerSummary{Login: login}
			summaries[login] = summary
			order = append(order, login)
		}
		summary.Checks++
		if record.Streamer != "" {
			summary.Name = record.Streamer
		}
		if record.Timestamp.After(summary.LastChecked) {
			summary.LastChecked = record.Timestamp
		}
		if record.LogoDetected {
			data.Detections++
			summary.Detections++
			if record.Timestamp.After(summary.LastDetection) {
				summary.LastDetection = record.Timestamp
			}
		}
		if record.Confidence > summary.MaxConfidence {
			summary.MaxConfidence = record.Confidence
		}
	}

	if data.TotalChecks > 0 {
		data.DetectionRate = float64(data.Detections) / float64(data.TotalChecks)
	}

	for _, login := range order {
		summary := summaries[login]
		if summary.Checks > 0 {
			summary.Rate = float64(summary.Detections) / float64(summary.Checks)
		}
		if summary.Name == "" {
			summary.Name = summary.Login
		}
		data.Streamers = append(data.Streamers, *summary)
	}
	sort.Slice(data.Streamers, func(i, j int) bool {
		return data.Streamers[i].Login < data.Streamers[j].Login
	})

	// Newest first in the detail table.
	data.Records = make([]store.Record, len(records))
	copy(data.Records, records)
	sort.SliceStable(data.Records, func(i, j int) bool {
		return data.Records[i].Timestamp.After(data.Records[j].Timestamp)
	})

	return data
}
