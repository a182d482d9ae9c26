// Package formatter renders a search context into the text block that
// precedes the user's question in the model prompt. Three modes cover
// the trade-off between readability and token budget; the citation
// renderer additionally numbers every source and section so answers
// can point back at their evidence.
package formatter

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/OpenChatGit/autosearch/models"
)

type Format string

const (
	FormatVerbose Format = "verbose"
	FormatCompact Format = "compact"
	FormatJSON    Format = "json"
)

var ErrUnsupportedFormat = errors.New("formatter: unsupported format")

// ParseFormat validates a configured format name.
func ParseFormat(name string) (Format, error) {
	switch Format(name) {
	case FormatVerbose, FormatCompact, FormatJSON:
		return Format(name), nil
	case "":
		return FormatVerbose, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, name)
	}
}

const truncationNotice = "\n\n[Content truncated to fit the context window]"

// citationInstructions is appended verbatim by RenderWithCitations.
const citationInstructions = "\n---\n" +
	"When your answer uses information from the search results above, cite it\n" +
	"inline with the marker 【Source X, Section Y】 where X is the source number\n" +
	"and Y the section number shown next to the quoted text. Cite only sources\n" +
	"listed above and place the marker directly after the statement it supports.\n"

// Render produces the context block in the requested format.
func Render(ctx models.SearchContext, format Format) (string, error) {
	switch format {
	case FormatVerbose:
		return renderVerbose(ctx), nil
	case FormatCompact:
		return renderCompact(ctx), nil
	case FormatJSON:
		return renderJSON(ctx)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

func renderVerbose(ctx models.SearchContext) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Web search results for %q:\n", ctx.Query)

	now := time.Now()
	for i, src := range ctx.Sources {
		fmt.Fprintf(&b, "\n## Source %d: %s (%s)\n", i+1, titleOrURL(src), src.Domain)
		fmt.Fprintf(&b, "Published: %s\n", models.FormatAge(src.PublishedDate, now))
		section := 0
		for _, chunk := range ctx.Chunks {
			if chunk.Source != src.URL {
				continue
			}
			section++
			fmt.Fprintf(&b, "[Section %d] %s\n", section, chunk.Content)
		}
	}
	if ctx.Summary != "" {
		fmt.Fprintf(&b, "\n%s\n", ctx.Summary)
	}
	return b.String()
}

func renderCompact(ctx models.SearchContext) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Search context for %q:\n", ctx.Query)
	for _, chunk := range ctx.Chunks {
		fmt.Fprintf(&b, "[%s] %s\n", chunk.Metadata.Domain, chunk.Content)
	}
	if len(ctx.Sources) > 0 {
		b.WriteString("\nSources:")
		for i, src := range ctx.Sources {
			fmt.Fprintf(&b, " [%d] %s", i+1, src.URL)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func renderJSON(ctx models.SearchContext) (string, error) {
	data, err := json.MarshalIndent(ctx, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// OptimizeLength caps text at max characters. The cut lands on the
// last newline before 80% of max so a section is dropped whole instead
// of mid-sentence; without any newline the cut is hard. A fixed notice
// marks the truncation.
func OptimizeLength(text string, max int) string {
	if max <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	target := max * 8 / 10
	cut := -1
	for i := target; i >= 0; i-- {
		if runes[i] == '\n' {
			cut = i
			break
		}
	}
	if cut <= 0 {
		cut = target
	}
	return strings.TrimRight(string(runes[:cut]), "\n") + truncationNotice
}

// Registry is the slice of the source registry the citation renderer
// needs.
type Registry interface {
	Register(url, title, domain string) int
	AddSection(sourceID, section int, excerpt string) bool
}

// RenderWithCitations renders the context in the requested format,
// registers every distinct source and numbers each chunk as a 1-based
// section under its source, then appends the citation instructions.
// The JSON format stays machine-readable: sources are still registered
// but no instruction block is appended.
func RenderWithCitations(ctx models.SearchContext, format Format, reg Registry) (string, error) {
	ids := make(map[string]int, len(ctx.Sources))
	for _, src := range ctx.Sources {
		ids[src.URL] = reg.Register(src.URL, src.Title, src.Domain)
	}
	sections := make(map[string]int, len(ctx.Sources))
	for _, chunk := range ctx.Chunks {
		id, ok := ids[chunk.Source]
		if !ok {
			id = reg.Register(chunk.Source, "", chunk.Metadata.Domain)
			ids[chunk.Source] = id
		}
		sections[chunk.Source]++
		reg.AddSection(id, sections[chunk.Source], chunk.Content)
	}

	rendered, err := Render(ctx, format)
	if err != nil {
		return "", err
	}
	if format == FormatJSON {
		return rendered, nil
	}
	return rendered + citationInstructions, nil
}

func titleOrURL(src models.Source) string {
	if strings.TrimSpace(src.Title) != "" {
		return src.Title
	}
	return src.URL
}
