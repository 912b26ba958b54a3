package dataset

import (
	"log/slog"
	"strings"
)

// Corpus markup. One logical example per line: aspects wrapped in
// [ASP]...[ASP], optionally followed by "!sent!" and one whitespace-
// separated reference polarity per aspect, left to right.
const (
	AspectMarker = "[ASP]"
	PolaritySep  = "!sent!"
	paddingMark  = "[PADDING]"
)

// ParseSample splits one raw annotated line into single-aspect samples:
// each output string marks exactly one aspect, with every other marker
// stripped to plain text. When the line carries reference polarities and
// their count matches the aspect count, each sample gets its polarity
// re-appended; on a mismatch all polarities for the line are dropped with
// a warning. Malformed lines yield zero samples, never an error.
func ParseSample(line string) []string {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}

	text, refPart, hasRef := strings.Cut(line, PolaritySep)
	refs := strings.Fields(refPart)
	if hasRef {
		// pad so an aspect at the very beginning or end still has context
		// on both sides
		text = paddingMark + " " + strings.TrimSpace(text) + " " + paddingMark
	}

	splits := strings.Split(text, AspectMarker)
	if len(splits)%2 == 0 {
		slog.Warn("Unbalanced aspect markers, skipping line", "line", line)
		return nil
	}
	k := (len(splits) - 1) / 2
	if k == 0 {
		slog.Warn("No aspect markers found, skipping line", "line", line)
		return nil
	}

	keepRefs := hasRef && len(refs) == k
	if hasRef && !keepRefs {
		slog.Warn("Unequal number of reference sentiments and aspects, ignoring the reference sentiments",
			"line", line, "aspects", k, "sentiments", len(refs))
	}

	samples := make([]string, 0, k)
	for i := 0; i < k; i++ {
		var b strings.Builder
		for j, part := range splits {
			if j == 2*i+1 {
				b.WriteString(AspectMarker)
				b.WriteString(part)
				b.WriteString(AspectMarker)
			} else {
				b.WriteString(part)
			}
		}
		sample := b.String()
		if keepRefs {
			sample += " " + PolaritySep + " " + refs[i]
		}
		samples = append(samples, sample)
	}
	return samples
}

// ParseLines applies ParseSample to every line of a corpus.
func ParseLines(lines []string) []string {
	var samples []string
	for _, line := range lines {
		samples = append(samples, ParseSample(line)...)
	}
	return samples
}
