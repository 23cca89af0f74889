package alerting

import "strings"

// Summary section headings produced by the summarizer.
const (
	SectionPoints     = "要点"
	SectionWhy        = "なぜ重要か"
	SectionPairs      = "関連ペア"
	SectionConfidence = "確度"
)

var sectionOrder = []string{SectionPoints, SectionWhy, SectionPairs, SectionConfidence}

// ParseSections splits a summary into its headed sections. Lines before the
// first heading are dropped; both full-width and ASCII colons are accepted.
func ParseSections(summary string) map[string]string {
	sections := make(map[string]string)
	var (
		current string
		lines   []string
	)
	flush := func() {
		if current != "" {
			sections[current] = strings.TrimSpace(strings.Join(lines, "\n"))
		}
	}

	for _, line := range strings.Split(summary, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if heading, rest, ok := cutHeading(line); ok {
			flush()
			current = heading
			lines = []string{rest}
			continue
		}
		if current != "" {
			lines = append(lines, line)
		}
	}
	flush()
	return sections
}

func cutHeading(line string) (heading, rest string, ok bool) {
	for _, h := range sectionOrder {
		for _, sep := range []string{"：", ":"} {
			if after, found := strings.CutPrefix(line, h+sep); found {
				return h, strings.TrimSpace(after), true
			}
		}
	}
	return "", "", false
}
