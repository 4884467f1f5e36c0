package analysis

import (
	"fmt"
	"sort"
	"strings"
)

// maxPromptColumns bounds the schema listing; wider tables are summarized.
const maxPromptColumns = 200

// PromptText renders a compact report suitable for prompts. It carries
// statistics only, never row data.
func (p *Profile) PromptText() string {
	var b strings.Builder
	b.WriteString("[DATASET SUMMARY]\n")
	if p.Name != "" {
		b.WriteString(fmt.Sprintf("File: %s\n", p.Name))
	}
	if p.Encoding != "" {
		b.WriteString(fmt.Sprintf("Encoding: %s\n", p.Encoding))
	}
	b.WriteString(fmt.Sprintf("Rows: %d\n", p.Rows))
	b.WriteString(fmt.Sprintf("Columns: %d\n\n", len(p.Columns)))

	b.WriteString("[SCHEMA]\n")
	for i, c := range p.Columns {
		if i == maxPromptColumns {
			b.WriteString(fmt.Sprintf("- ... %d more columns\n", len(p.Columns)-maxPromptColumns))
			break
		}
		st := p.Summary[c.Name]
		miss := p.MissingValues[c.Name]
		missPct := 0.0
		if p.Rows > 0 {
			missPct = float64(miss) * 100.0 / float64(p.Rows)
		}
		b.WriteString(fmt.Sprintf("- %s: %s (count %d, missing %d = %.1f%%)", safeName(c.Name), c.Kind, st.Count, miss, missPct))
		switch c.Kind {
		case KindNumeric:
			b.WriteString(fmt.Sprintf("; mean %s, std %s, min %s, 25%% %s, 50%% %s, 75%% %s, max %s",
				num(st.Mean), num(st.Std), num(st.Min), num(st.P25), num(st.P50), num(st.P75), num(st.Max)))
			if o, ok := p.Outliers[c.Name]; ok {
				b.WriteString(fmt.Sprintf("; outliers: %d above |z|>%.1f", o.Count, o.Threshold))
				if o.MaxAbsZ > 0 {
					b.WriteString(fmt.Sprintf(" (max |z|≈%.2f)", o.MaxAbsZ))
				}
			}
		case KindCategorical, KindDatetime:
			if st.Top != nil {
				b.WriteString(fmt.Sprintf("; unique %d, top %q (%d)", *st.Unique, clip(safeVal(*st.Top), 80), *st.Freq))
			}
		}
		b.WriteString("\n")
	}

	if len(p.Correlation.Columns) >= 2 {
		b.WriteString(fmt.Sprintf("\n[CORRELATIONS] (Pearson, %d numeric columns)\n", len(p.Correlation.Columns)))
		for _, pr := range p.TopPairs {
			b.WriteString(fmt.Sprintf("- %s ~ %s: r=%.3f\n", pr.A, pr.B, pr.R))
		}
	}

	if len(p.Outliers) > 0 {
		names := make([]string, 0, len(p.Outliers))
		for k, o := range p.Outliers {
			if o.Count > 0 {
				names = append(names, k)
			}
		}
		sort.Strings(names)
		if len(names) > 0 {
			b.WriteString("\n[OUTLIERS]\n")
			for _, k := range names {
				o := p.Outliers[k]
				b.WriteString(fmt.Sprintf("- %s: %d values with robust |z|>%.1f\n", k, o.Count, o.Threshold))
			}
		}
	}

	if len(p.Warnings) > 0 {
		b.WriteString("\n[NOTES]\n")
		for _, w := range p.Warnings {
			b.WriteString("- ")
			b.WriteString(w.String())
			b.WriteString("\n")
		}
	}
	return b.String()
}

func num(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.4g", *v)
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func safeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(unnamed)"
	}
	return s
}

func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }
