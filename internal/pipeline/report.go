package pipeline

import (
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// RenderSummary formats the per-stage outcomes as a table for the final
// console report.
func RenderSummary(reports []StepReport) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"#", "Stage", "Total", "Succeeded", "Failed", "Skipped", "Duration"})

	for _, r := range reports {
		if r.Skipped {
			tw.AppendRow(table.Row{r.Ordinal, r.Name, "-", "-", "-", "-", "checkpointed"})
			continue
		}
		tw.AppendRow(table.Row{
			r.Ordinal,
			r.Name,
			strconv.Itoa(r.Stats.Total),
			strconv.Itoa(r.Stats.Succeeded),
			strconv.Itoa(r.Stats.Failed),
			strconv.Itoa(r.Stats.Skipped()),
			r.Stats.Elapsed.Round(time.Millisecond).String(),
		})
	}

	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
	})

	return tw.Render()
}
