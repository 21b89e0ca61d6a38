// Package dashboard serves the option-chain sentiment dashboard over HTTP.
package dashboard

import (
	"errors"
	"fmt"
	"html/template"
	"math"
	"net/http"
	"strings"
	"sync"
	"time"

	"chainpulse/internal/history"
	"chainpulse/internal/logger"
	"chainpulse/internal/metrics"
	"chainpulse/internal/models"
	"chainpulse/internal/pipeline"
)

// Config tunes the HTTP server.
type Config struct {
	ListenAddr    string
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	DefaultSymbol string
	DefaultIndex  bool
	Refresh       time.Duration
}

// Server renders the latest completed cycle plus the persisted PCR
// series. Requests for a non-default symbol trigger an on-demand cycle
// through the shared TTL cache; on-demand cycles are never recorded to
// history.
type Server struct {
	cfg     Config
	runner  *pipeline.Runner
	history history.Log
	tmpl    *template.Template

	mu      sync.RWMutex
	latest  *models.CycleView
	lastErr string
}

// New creates a dashboard server.
func New(cfg Config, runner *pipeline.Runner, hist history.Log) *Server {
	s := &Server{cfg: cfg, runner: runner, history: hist}
	s.tmpl = template.Must(template.New("dashboard").Funcs(template.FuncMap{
		"f2": func(v float64) string {
			return fmt.Sprintf("%.2f", v)
		},
		"f0": func(v float64) string {
			return fmt.Sprintf("%.0f", v)
		},
		"price": func(r models.StrikeRecord) string {
			if !r.HasLastPrice() {
				return "-"
			}
			return fmt.Sprintf("%.2f", r.LastPrice)
		},
		"bsr": func(r models.StrikeRecord) string {
			if !r.HasBuySellRatio() {
				return "-"
			}
			return fmt.Sprintf("%.2f", r.BuySellRatio)
		},
		"classify": metrics.ClassifyPCR,
	}).Parse(pageTemplate))
	return s
}

// SetView publishes the result of a completed scheduled cycle.
func (s *Server) SetView(v *models.CycleView) {
	s.mu.Lock()
	s.latest = v
	s.lastErr = ""
	s.mu.Unlock()
}

// SetError publishes a failed scheduled cycle. The previous view is kept
// for display alongside the error.
func (s *Server) SetError(err error) {
	s.mu.Lock()
	s.lastErr = err.Error()
	s.mu.Unlock()
}

// Handler returns the route mux.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/healthz", s.handleHealth)
	return mux
}

// NewHTTPServer wraps the handler in an http.Server with timeouts.
func (s *Server) NewHTTPServer() *http.Server {
	return &http.Server{
		Addr:         s.cfg.ListenAddr,
		Handler:      s.Handler(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprint(w, `{"status":"ok"}`)
}

type pageData struct {
	View           *models.CycleView
	ErrMsg         string
	InfoMsg        string
	RefreshSeconds int
	History        []models.PcrEntry
	SparkPoints    string
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	data := pageData{RefreshSeconds: int(s.cfg.Refresh.Seconds())}

	symbol := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("symbol")))
	isIndex := s.cfg.DefaultIndex
	if kind := r.URL.Query().Get("kind"); kind != "" {
		isIndex = strings.EqualFold(kind, "index")
	}

	if symbol == "" || (symbol == s.cfg.DefaultSymbol && isIndex == s.cfg.DefaultIndex) {
		s.mu.RLock()
		data.View = s.latest
		data.ErrMsg = s.lastErr
		s.mu.RUnlock()
		if data.View == nil && data.ErrMsg == "" {
			data.InfoMsg = "Waiting for the first cycle to complete."
		}
	} else {
		view, err := s.runner.Run(r.Context(), symbol, isIndex, false)
		switch {
		case err == nil:
			data.View = view
		case errors.Is(err, pipeline.ErrEmptyChain):
			data.InfoMsg = fmt.Sprintf("No data available for %s.", symbol)
		default:
			data.ErrMsg = fmt.Sprintf("Failed to fetch data for %s: %v", symbol, err)
		}
	}

	entries, err := s.history.ReadAll()
	if err != nil {
		logger.Warn("Failed to read PCR history: %v", err)
	} else {
		data.History = entries
		data.SparkPoints = sparkPoints(entries, 600, 120)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tmpl.Execute(w, data); err != nil {
		logger.Error("Failed to render dashboard: %v", err)
	}
}

// sparkPoints maps the history series onto an SVG polyline point list.
func sparkPoints(entries []models.PcrEntry, width, height float64) string {
	if len(entries) < 2 {
		return ""
	}
	min, max := entries[0].Value, entries[0].Value
	for _, e := range entries[1:] {
		min = math.Min(min, e.Value)
		max = math.Max(max, e.Value)
	}
	span := max - min
	if span == 0 {
		span = 1
	}

	const pad = 4.0
	var b strings.Builder
	step := (width - 2*pad) / float64(len(entries)-1)
	for i, e := range entries {
		x := pad + float64(i)*step
		y := pad + (height-2*pad)*(1-(e.Value-min)/span)
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%.1f,%.1f", x, y)
	}
	return b.String()
}

const pageTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
{{if .RefreshSeconds}}<meta http-equiv="refresh" content="{{.RefreshSeconds}}">{{end}}
<title>chainpulse</title>
<style>
body { font-family: sans-serif; margin: 2em; color: #222; }
table { border-collapse: collapse; margin: 1em 0; }
th, td { border: 1px solid #ccc; padding: 4px 10px; text-align: right; }
th { background: #f4f4f4; }
.metric { display: inline-block; margin-right: 2.5em; }
.metric .value { font-size: 1.6em; font-weight: bold; }
.err { color: #b00020; }
.info { color: #555; }
.caption { color: #777; font-size: 0.9em; }
svg { border: 1px solid #eee; }
</style>
</head>
<body>
<h1>NSE Option Chain Sentiment</h1>
{{if .ErrMsg}}<p class="err">{{.ErrMsg}}</p>{{end}}
{{if .InfoMsg}}<p class="info">{{.InfoMsg}}</p>{{end}}
{{with .View}}
<h2>{{.Symbol}}{{if .HasUnderlying}} &mdash; underlying {{f2 .Underlying}}{{end}}</h2>
{{if .QuoteTime}}<p class="caption">Quoted {{.QuoteTime}}</p>{{end}}

<div>
<div class="metric">
  <div>PCR ({{.PCROpenInterest.Basis}})</div>
  <div class="value">{{if .PCROpenInterest.Available}}{{f2 .PCROpenInterest.Value}}{{else}}N/A{{end}}</div>
</div>
<div class="metric">
  <div>PCR ({{.PCRVolume.Basis}})</div>
  <div class="value">{{if .PCRVolume.Available}}{{f2 .PCRVolume.Value}}{{else}}N/A{{end}}</div>
</div>
<div class="metric">
  <div>Max Pain</div>
  <div class="value">{{if .MaxPainAvailable}}{{f0 .MaxPain.Strike}}{{else}}N/A{{end}}</div>
  {{if .MaxPainAvailable}}<div class="caption">total pain {{f0 .MaxPain.TotalPain}}</div>{{end}}
</div>
</div>
{{if .PCROpenInterest.Available}}<p class="caption">{{classify .PCROpenInterest.Value}}</p>{{end}}

<h3>Top Call Strikes by Volume</h3>
<table>
<tr><th>Strike</th><th>LTP</th><th>Volume</th><th>OI</th><th>Buy Qty</th><th>Sell Qty</th><th>B/S Ratio</th></tr>
{{range .TopCalls}}<tr><td>{{f0 .Strike}}</td><td>{{price .}}</td><td>{{.Volume}}</td><td>{{.OpenInterest}}</td><td>{{.TotalBuyQty}}</td><td>{{.TotalSellQty}}</td><td>{{bsr .}}</td></tr>
{{end}}
</table>

<h3>Top Put Strikes by Volume</h3>
<table>
<tr><th>Strike</th><th>LTP</th><th>Volume</th><th>OI</th><th>Buy Qty</th><th>Sell Qty</th><th>B/S Ratio</th></tr>
{{range .TopPuts}}<tr><td>{{f0 .Strike}}</td><td>{{price .}}</td><td>{{.Volume}}</td><td>{{.OpenInterest}}</td><td>{{.TotalBuyQty}}</td><td>{{.TotalSellQty}}</td><td>{{bsr .}}</td></tr>
{{end}}
</table>
{{end}}

<h3>PCR Trend ({{len .History}} points)</h3>
{{if .SparkPoints}}
<svg width="600" height="120" viewBox="0 0 600 120">
<polyline points="{{.SparkPoints}}" fill="none" stroke="#1565c0" stroke-width="1.5"/>
</svg>
{{else}}<p class="info">Not enough history yet.</p>{{end}}
</body>
</html>
`
