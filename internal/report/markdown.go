package report

import (
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/hamed0406/siteprobe/internal/domain"
)

// MarkdownWriter outputs a summary table, a mermaid pie chart of the
// classification split and the full result table.
type MarkdownWriter struct{}

func (MarkdownWriter) Write(w io.Writer, v domain.Variant, results []domain.ProbeResult) error {
	md := markdown.NewMarkdown(w)
	sum := Summarize(results)

	title := "Domain Status Report"
	if v == domain.VariantCapture {
		title = "Domain Screenshot Report"
	}
	md.H1(title)
	md.PlainText("")

	md.H2("Summary")
	md.PlainText("")
	rows := make([][]string, 0, len(sum.Counts())+1)
	for _, cc := range sum.Counts() {
		rows = append(rows, []string{cc.Class.String(), strconv.Itoa(cc.Count)})
	}
	rows = append(rows, []string{"**Total**", "**" + strconv.Itoa(sum.Total) + "**"})
	md.Table(markdown.TableSet{Header: []string{"Classification", "Count"}, Rows: rows})
	md.PlainText("")

	if sum.Total > 0 {
		chart := piechart.NewPieChart(
			io.Discard,
			piechart.WithTitle("Classification split"),
			piechart.WithShowData(true),
		)
		for _, cc := range sum.Counts() {
			chart.LabelAndIntValue(cc.Class.String(), uint64(cc.Count))
		}
		md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
		md.PlainText("")
	}

	md.H2("Results")
	md.PlainText("")
	if sum.Total == 0 {
		md.PlainText("No domains were probed.")
		return md.Build()
	}
	table := markdown.TableSet{Header: columns(v)}
	for _, r := range sorted(results) {
		table.Rows = append(table.Rows, record(v, r))
	}
	md.Table(table)
	return md.Build()
}
