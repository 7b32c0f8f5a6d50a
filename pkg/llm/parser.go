package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// section delimiters of the response contract
const (
	markHeadline = "==HEADLINE=="
	markBrief    = "==BRIEF=="
	markContext  = "==CONTEXT=="
	markSources  = "==SOURCES=="
	markSideCar  = "==SIDE-CAR=="
)

// draft is a parsed LLM response
type draft struct {
	Headline string
	Body     string
	Context  string
	Sources  []string
	SideCar  map[string]interface{}
	Raw      string
}

var urlPattern = regexp.MustCompile(`https?://[^\s<>"]+`)

// trailing punctuation stripped from extracted URLs
const urlTrim = `),.;:"'`

// parseSections parses the delimited response. HEADLINE and BRIEF are
// mandatory; the rest degrade gracefully: a CONTEXT of "None" maps to empty,
// an unparseable SIDE-CAR becomes an empty object.
func parseSections(content string) (*draft, error) {
	sections := splitSections(content)

	headline := strings.TrimSpace(sections[markHeadline])
	body := strings.TrimSpace(sections[markBrief])
	if headline == "" || body == "" {
		return nil, fmt.Errorf("response missing HEADLINE or BRIEF section")
	}

	d := &draft{
		Headline: headline,
		Body:     body,
		Context:  strings.TrimSpace(sections[markContext]),
		SideCar:  map[string]interface{}{},
		Raw:      content,
	}

	if strings.EqualFold(d.Context, "none") {
		d.Context = ""
	}

	for _, raw := range urlPattern.FindAllString(sections[markSources], -1) {
		d.Sources = append(d.Sources, strings.TrimRight(raw, urlTrim))
	}

	if sc := strings.TrimSpace(sections[markSideCar]); sc != "" {
		var parsed map[string]interface{}
		if err := json.Unmarshal([]byte(sc), &parsed); err == nil {
			d.SideCar = parsed
		}
	}

	return d, nil
}

// splitSections maps each known delimiter to the text that follows it, up to
// the next delimiter
func splitSections(content string) map[string]string {
	marks := []string{markHeadline, markBrief, markContext, markSources, markSideCar}

	type found struct {
		mark string
		pos  int
	}
	var positions []found
	for _, m := range marks {
		if p := strings.Index(content, m); p >= 0 {
			positions = append(positions, found{mark: m, pos: p})
		}
	}
	// delimiters may arrive out of order from a sloppy model
	sort.Slice(positions, func(i, j int) bool { return positions[i].pos < positions[j].pos })

	out := make(map[string]string)
	for i, f := range positions {
		start := f.pos + len(f.mark)
		end := len(content)
		if i+1 < len(positions) {
			end = positions[i+1].pos
		}
		out[f.mark] = content[start:end]
	}
	return out
}

// renderDraft re-serializes a draft into the section markup for revision and
// expansion calls
func renderDraft(d *draft) string {
	var sb strings.Builder
	sb.WriteString(markHeadline + "\n" + d.Headline + "\n\n")
	sb.WriteString(markBrief + "\n" + d.Body + "\n\n")
	context := d.Context
	if context == "" {
		context = "None"
	}
	sb.WriteString(markContext + "\n" + context + "\n\n")
	sb.WriteString(markSources + "\n" + strings.Join(d.Sources, "\n") + "\n\n")
	sidecar, err := json.Marshal(d.SideCar)
	if err != nil {
		sidecar = []byte("{}")
	}
	sb.WriteString(markSideCar + "\n" + string(sidecar) + "\n")
	return sb.String()
}
