// Package fixture generates a deterministic HTML page and serves it on the
// loopback interface, so launch benchmarks can run without reaching the
// public internet. The same seed always yields the same page.
package fixture

import (
	"bufio"
	"fmt"
	"html"
	"io"
	"math"
	mrand "math/rand"
	"strings"
)

// Summary contains statistics about a generated page.
type Summary struct {
	Sections   int
	Paragraphs int
	Words      int
	Links      int
	Images     int
	Bytes      int
}

// Config controls page generation.
type Config struct {
	Sections int
	// Paragraphs per section.
	Paragraphs int
	MinWords   int
	MaxWords   int
	// Distribution of paragraph lengths: power-law, uniform, exponential.
	Distribution string
	Links        int
	Images       int
	Seed         int64
}

// DefaultConfig returns a page of roughly the weight of a portal front
// page.
func DefaultConfig() Config {
	return Config{
		Sections:     8,
		Paragraphs:   6,
		MinWords:     20,
		MaxWords:     400,
		Distribution: "power-law",
		Links:        120,
		Images:       12,
		Seed:         1,
	}
}

// Generator produces deterministic pages from a Config.
type Generator struct {
	cfg Config
	rng *mrand.Rand
}

// NewGenerator creates a Generator from the given Config.
func NewGenerator(cfg Config) *Generator {
	return &Generator{
		cfg: cfg,
		rng: mrand.New(mrand.NewSource(cfg.Seed)),
	}
}

var vocabulary = strings.Fields(`
	browser launch render layout paint script style frame window page
	process memory thread socket cache request response network image
	font canvas event timer worker module document element attribute
	portal article index search language reference history archive`)

type countingWriter struct {
	w *bufio.Writer
	n int
}

func (c *countingWriter) printf(format string, args ...any) {
	n, _ := fmt.Fprintf(c.w, format, args...)
	c.n += n
}

// Generate writes an HTML page to w and returns a Summary.
func (g *Generator) Generate(w io.Writer) (Summary, error) {
	cw := &countingWriter{w: bufio.NewWriter(w)}

	var summary Summary

	cw.printf("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n")
	cw.printf("<meta charset=\"utf-8\">\n<title>headbench fixture %d</title>\n", g.cfg.Seed)
	cw.printf("<style>body{font-family:sans-serif;max-width:60em;margin:auto}" +
		"nav a{margin-right:.5em}figure{display:inline-block}</style>\n")
	cw.printf("</head>\n<body>\n<nav>\n")

	for i := 0; i < g.cfg.Links; i++ {
		cw.printf("<a href=\"#s%d\">%s</a>\n",
			i%max(g.cfg.Sections, 1), html.EscapeString(g.word()))
		summary.Links++
	}

	cw.printf("</nav>\n")

	lengths := g.paragraphLengths(g.cfg.Sections * g.cfg.Paragraphs)

	for s := 0; s < g.cfg.Sections; s++ {
		cw.printf("<section id=\"s%d\">\n<h2>%s</h2>\n", s, html.EscapeString(g.sentence(3)))

		for p := 0; p < g.cfg.Paragraphs; p++ {
			n := lengths[s*g.cfg.Paragraphs+p]
			cw.printf("<p>%s</p>\n", html.EscapeString(g.sentence(n)))
			summary.Paragraphs++
			summary.Words += n
		}

		cw.printf("</section>\n")
		summary.Sections++
	}

	for i := 0; i < g.cfg.Images; i++ {
		cw.printf("<figure>%s</figure>\n", g.svg())
		summary.Images++
	}

	cw.printf("<script>document.body.dataset.ready = String(%d);</script>\n", g.cfg.Seed)
	cw.printf("</body>\n</html>\n")

	if err := cw.w.Flush(); err != nil {
		return summary, fmt.Errorf("write page: %w", err)
	}

	summary.Bytes = cw.n

	return summary, nil
}

func (g *Generator) word() string {
	return vocabulary[g.rng.Intn(len(vocabulary))]
}

func (g *Generator) sentence(words int) string {
	parts := make([]string, words)
	for i := range parts {
		parts[i] = g.word()
	}

	return strings.Join(parts, " ")
}

func (g *Generator) svg() string {
	return fmt.Sprintf(
		`<svg width="120" height="80" xmlns="http://www.w3.org/2000/svg">`+
			`<rect width="120" height="80" fill="#%06x"/>`+
			`<circle cx="%d" cy="%d" r="%d" fill="#%06x"/></svg>`,
		g.rng.Intn(1<<24), 10+g.rng.Intn(100), 10+g.rng.Intn(60),
		5+g.rng.Intn(30), g.rng.Intn(1<<24),
	)
}

func (g *Generator) paragraphLengths(n int) []int {
	dist := make([]int, n)
	lo, hi := max(g.cfg.MinWords, 1), max(g.cfg.MaxWords, 1)
	if hi < lo {
		hi = lo
	}

	switch g.cfg.Distribution {
	case "power-law":
		alpha := 1.5
		for i := range dist {
			u := g.rng.Float64()
			words := float64(lo) / math.Pow(1-u, 1/alpha)
			if words > float64(hi) {
				words = float64(hi)
			}
			dist[i] = max(lo, int(words))
		}

	case "exponential":
		lambda := math.Log(2) / math.Max(float64(hi)/4, 1)
		for i := range dist {
			u := g.rng.Float64()
			words := -math.Log(1-u) / lambda
			clamped := math.Max(float64(lo), math.Min(words, float64(hi)))
			dist[i] = int(clamped)
		}

	default:
		// Unknown distributions fall back to uniform.
		span := hi - lo + 1
		for i := range dist {
			dist[i] = lo + g.rng.Intn(span)
		}
	}

	return dist
}
