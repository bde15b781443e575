package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"
	"text/template"
	"time"

	"github.com/ericksa/contractiq/internal/trail"
)

// ActivityReport is the generated trail report.
type ActivityReport struct {
	GeneratedAt  time.Time      `json:"generated_at"`
	TrailPath    string         `json:"trail_path"`
	DocumentID   string         `json:"document_id,omitempty"`
	EventFilter  string         `json:"event_filter,omitempty"`
	Since        string         `json:"since,omitempty"`
	TotalEvents  int            `json:"total_events"`
	FailedEvents int            `json:"failed_events"`
	EventCounts  map[string]int `json:"event_counts"`
	Events       []trail.Event  `json:"events"`
}

func main() {
	// Command-line flags
	var (
		output    = flag.String("output", "console", "Output format: console, json, or file path")
		dbPath    = flag.String("db", "./data/trail.db", "Path to the trail database")
		event     = flag.String("event", "", "Filter by event type (e.g. document.ingested)")
		doc       = flag.String("doc", "", "Filter by document id")
		sinceDate = flag.String("since", "", "Only include events since this date (YYYY-MM-DD)")
		limit     = flag.Int("limit", 20, "Maximum number of events to show")
		help      = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		printHelp()
		os.Exit(0)
	}

	var since time.Time
	if *sinceDate != "" {
		t, err := time.Parse("2006-01-02", *sinceDate)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid since date: %v\n", err)
			os.Exit(1)
		}
		since = t
	}

	if _, err := os.Stat(*dbPath); err != nil {
		fmt.Fprintf(os.Stderr, "Trail database not found: %s\n", *dbPath)
		os.Exit(1)
	}

	report, err := generateReport(*dbPath, *event, *doc, since, *limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating report: %v\n", err)
		os.Exit(1)
	}

	// Output report
	switch {
	case *output == "console":
		printConsoleReport(report)
	case *output == "json":
		printJSONReport(report)
	case strings.HasSuffix(*output, ".json"):
		if err := writeJSONReport(report, *output); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing file: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Report written to: %s\n", *output)
	case strings.HasSuffix(*output, ".md") || strings.HasSuffix(*output, ".txt"):
		if err := writeMarkdownReport(report, *output); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing file: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Report written to: %s\n", *output)
	default:
		// Default to console for unknown output
		printConsoleReport(report)
	}
}

func printHelp() {
	fmt.Print(`ContractIQ Activity Report Generator

USAGE:
    report [OPTIONS]

OPTIONS:
    -output <format>   Output format: console, json, or file path (.json, .md, .txt)
                       (default: console)
    -db <path>         Path to the trail database (default: ./data/trail.db)
    -event <type>      Filter by event type (e.g. document.ingested, audit.complete)
    -doc <id>          Filter by document id
    -since <date>      Only include events since this date (YYYY-MM-DD)
    -limit <n>         Maximum number of events to show (default: 20)
    -help              Show this help message

EXAMPLES:
    # Recent activity overview
    report

    # History of one document
    report -doc 3f2a9c1e-77b4-4f51-b8f0-0d1c2e3f4a5b

    # All failed extractions this month
    report -event extract.complete -since 2026-08-01 -limit 100

    # Export to markdown
    report -output activity.md
`)
}

func generateReport(dbPath, event, doc string, since time.Time, limit int) (*ActivityReport, error) {
	tr := trail.Open(dbPath)
	if !tr.Enabled() {
		return nil, fmt.Errorf("failed to open trail database: %s", dbPath)
	}
	defer tr.Close()

	counts, err := tr.CountsByEvent()
	if err != nil {
		return nil, fmt.Errorf("failed to count events: %w", err)
	}

	events, err := tr.Filter(event, doc, since, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch events: %w", err)
	}

	report := &ActivityReport{
		GeneratedAt: time.Now(),
		TrailPath:   dbPath,
		DocumentID:  doc,
		EventFilter: event,
		EventCounts: counts,
		Events:      events,
	}
	if !since.IsZero() {
		report.Since = since.Format("2006-01-02")
	}
	for _, c := range counts {
		report.TotalEvents += c
	}
	for _, e := range events {
		if e.Error != "" {
			report.FailedEvents++
		}
	}
	return report, nil
}

func printConsoleReport(report *ActivityReport) {
	line := strings.Repeat("═", 64)
	rule := strings.Repeat("─", 64)

	fmt.Println()
	fmt.Println(line)
	fmt.Println("                  CONTRACT ACTIVITY REPORT")
	fmt.Println(line)
	fmt.Printf("Generated: %s\n", report.GeneratedAt.Format("Mon Jan 2, 2006 3:04 PM"))
	fmt.Printf("Trail:     %s\n", report.TrailPath)
	if report.EventFilter != "" {
		fmt.Printf("Event:     %s\n", report.EventFilter)
	}
	if report.DocumentID != "" {
		fmt.Printf("Document:  %s\n", report.DocumentID)
	}
	if report.Since != "" {
		fmt.Printf("Since:     %s\n", report.Since)
	}
	fmt.Println()

	fmt.Printf("📊 EVENT TOTALS (%d recorded)\n", report.TotalEvents)
	fmt.Println(rule)
	if len(report.EventCounts) == 0 {
		fmt.Println("  no events recorded")
	}
	for _, name := range sortedKeys(report.EventCounts) {
		fmt.Printf("  %-32s %6d\n", name, report.EventCounts[name])
	}
	fmt.Println()

	title := "🕒 RECENT ACTIVITY"
	if report.DocumentID != "" {
		title = "📄 DOCUMENT HISTORY"
	}
	fmt.Printf("%s (%d shown, %d failed)\n", title, len(report.Events), report.FailedEvents)
	fmt.Println(rule)
	if len(report.Events) == 0 {
		fmt.Println("  no matching events")
	}
	for _, e := range report.Events {
		printEventCard(e)
	}

	fmt.Println()
	fmt.Println(line)
}

func printEventCard(e trail.Event) {
	marker := "  "
	if e.Error != "" {
		marker = "⚠️ "
	}
	fmt.Printf("\n  %s[%s] %s", marker, e.Timestamp.Format("2006-01-02 15:04:05"), e.Event)
	if e.DocumentID != "" {
		fmt.Printf("  doc=%s", shortID(e.DocumentID))
	}
	fmt.Println()

	if e.Payload != "" && e.Payload != "{}" {
		fmt.Printf("      %s\n", clip(e.Payload, 100))
	}
	if e.Error != "" {
		fmt.Printf("      error: %s\n", clip(e.Error, 100))
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func clip(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func printJSONReport(report *ActivityReport) {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding JSON: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(data))
}

func writeJSONReport(report *ActivityReport, path string) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func writeMarkdownReport(report *ActivityReport, path string) error {
	tmpl := `# Contract Activity Report
**Generated:** {{.GeneratedAt.Format "Mon Jan 2, 2006 3:04 PM"}}
**Trail:** {{.TrailPath}}
{{- if .EventFilter}}
**Event filter:** {{.EventFilter}}
{{- end}}
{{- if .DocumentID}}
**Document:** {{.DocumentID}}
{{- end}}
{{- if .Since}}
**Since:** {{.Since}}
{{- end}}

## Event Totals ({{.TotalEvents}})

| Event | Count |
|-------|-------|
{{- range $name, $count := .EventCounts}}
| {{$name}} | {{$count}} |
{{- end}}

## Activity ({{len .Events}} shown, {{.FailedEvents}} failed)

{{range .Events}}
- **[{{.Timestamp.Format "2006-01-02 15:04:05"}}]** {{.Event}}{{if .DocumentID}} (doc {{.DocumentID}}){{end}}
  {{- if .Payload}}
  - Payload: ` + "`{{.Payload}}`" + `
  {{- end}}
  {{- if .Error}}
  - ⚠️ Error: {{.Error}}
  {{- end}}
{{end}}

{{if eq (len .Events) 0}}
No matching events.
{{end}}
`
	t, err := template.New("report").Parse(tmpl)
	if err != nil {
		return err
	}

	var buf strings.Builder
	if err := t.Execute(&buf, report); err != nil {
		return err
	}

	return os.WriteFile(path, []byte(buf.String()), 0644)
}
