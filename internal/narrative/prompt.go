package narrative

import (
	"strings"

	"github.com/Rosh-10/automated-analysis-project/internal/analysis"
	"github.com/Rosh-10/automated-analysis-project/internal/utils"
)

const instructions = `You are an experienced data analyst. Write a well-structured Markdown report about the dataset summarized below.
Cover:
1. The structure of the dataset: its columns, inferred types and missing values.
2. Relationships, trends and outliers that the statistics reveal.
3. Actionable insights and recommended next steps.
Refer to the charts by file name where they support a point. Only statistics are provided; do not invent individual records.
`

// BuildPrompt renders the instructions, the profile text and the chart file
// names, truncated to roughly maxTokens tokens. maxTokens <= 0 disables the bound.
func BuildPrompt(p *analysis.Profile, charts []string, maxTokens int) string {
	var b strings.Builder
	b.WriteString(instructions)
	b.WriteString("\n")
	b.WriteString(p.PromptText())
	if len(charts) > 0 {
		b.WriteString("\n[CHARTS]\n")
		for _, c := range charts {
			b.WriteString("- ")
			b.WriteString(c)
			b.WriteString("\n")
		}
	}
	out := b.String()
	if maxTokens > 0 && utils.CountTokens(out) > maxTokens {
		out = utils.TruncateToTokenLimit(out, maxTokens)
	}
	return out
}
