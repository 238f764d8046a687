package biography

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// StaticWriter renders a synthetic biography without calling any remote
// service. It keeps the pipeline runnable end to end when no LLM key is
// configured and gives the async stages a document with both slots present.
type StaticWriter struct{}

// NewStaticWriter constructs the synthetic writer.
func NewStaticWriter() *StaticWriter {
	return &StaticWriter{}
}

var staticSections = []string{
	"Early life",
	"Career",
	"Personal life",
	"Awards and Achievements",
	"Wealth",
	"Scandals",
	"References",
	"Further reading",
}

// Generate fulfils the Generator interface.
func (s *StaticWriter) Generate(ctx context.Context, req Request) (string, error) {
	titler := cases.Title(language.Und)
	name := titler.String(strings.TrimSpace(req.Name))
	if name == "" {
		name = "Unknown Subject"
	}
	job := strings.TrimSpace(req.Job)
	if job == "" {
		job = "professional"
	}
	place := strings.TrimSpace(req.Place)
	if place == "" {
		place = "an undisclosed location"
	}
	locale := req.Locale
	if locale == "" {
		locale = "en"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, `<!DOCTYPE html>
<html lang=%q>
<head>
<meta charset="utf-8">
<title>%s - Wikipedia</title>
<style>
body { font-family: sans-serif; margin: 2rem auto; max-width: 60rem; }
.infobox { float: right; border: 1px solid #a2a9b1; padding: 0.5rem; width: 18rem; }
h1 { border-bottom: 1px solid #a2a9b1; }
h2 { border-bottom: 1px solid #eaecf0; }
</style>
</head>
<body>
<h1>%s</h1>
<div class="infobox">
<img id="portrait-image" src="assets/portrait.jpg" alt="%s" width="260">
<video id="scene-video" src="assets/scene.mp4" width="260" controls></video>
<p><b>Occupation:</b> %s<br><b>Location:</b> %s</p>
</div>
<p><b>%s</b> is a celebrated %s from %s, widely regarded as one of the most improbable figures in the field.</p>
`, locale, name, name, name, titler.String(job), place, name, job, place)

	for _, section := range staticSections {
		fmt.Fprintf(&sb, "<h2>%s</h2>\n<p>Little is verifiably known about the %s of %s, and what is known is disputed by everyone involved.</p>\n",
			section, strings.ToLower(section), name)
	}
	sb.WriteString("</body>\n</html>\n")
	return sb.String(), nil
}

var _ Generator = (*StaticWriter)(nil)
