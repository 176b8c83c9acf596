package report

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"
)

const pageHead = `<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1" />
    <title>Permutation Experiments</title>
    <style>
      body { font-family: system-ui, sans-serif; margin: 2rem; color: #1a1a2e; }
      table { border-collapse: collapse; width: 100%; }
      th, td { text-align: left; padding: 0.4rem 0.8rem; border-bottom: 1px solid #ddd; }
      th { border-bottom: 2px solid #999; }
      td.num { text-align: right; font-variant-numeric: tabular-nums; }
      .status { padding: 0.1rem 0.5rem; border-radius: 0.6rem; font-size: 0.85em; }
      .status-complete { background: #d7f5dd; }
      .status-running { background: #fff3c4; }
      .status-interrupted { background: #fbd3d0; }
      .empty { color: #666; }
    </style>
  </head>
  <body>
    <h1>Permutation Experiments</h1>
`

const pageFoot = `  </body>
</html>
`

// Page renders the experiments table as a self-contained HTML document.
func Page(entries []Entry) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, pageHead); err != nil {
			return err
		}
		if len(entries) == 0 {
			if _, err := io.WriteString(w, `    <p class="empty">No experiments found.</p>`+"\n"); err != nil {
				return err
			}
		} else if err := experimentTable(entries).Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, pageFoot)
		return err
	})
}

const tableHead = `    <table>
      <thead>
        <tr>
          <th>Experiment</th><th>Status</th><th>Done</th><th>Progress</th>
          <th>Retry</th><th>Abandoned</th><th>Correct</th><th>Accuracy</th>
        </tr>
      </thead>
      <tbody>
`

const tableFoot = `      </tbody>
    </table>
`

func experimentTable(entries []Entry) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, tableHead); err != nil {
			return err
		}
		for _, entry := range entries {
			if err := experimentRow(entry).Render(ctx, w); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, tableFoot)
		return err
	})
}

func experimentRow(entry Entry) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		accuracy := "-"
		if rate, ok := entry.AccuracyRate(); ok {
			accuracy = formatPercent(rate)
		}
		_, err := fmt.Fprintf(w,
			"        <tr><td>%s</td>"+
				`<td><span class="status status-%s">%s</span></td>`+
				`<td class="num">%d/%d</td><td class="num">%s</td>`+
				`<td class="num">%d</td><td class="num">%d</td>`+
				`<td class="num">%d</td><td class="num">%s</td></tr>`+"\n",
			templ.EscapeString(entry.ExperimentID),
			templ.EscapeString(entry.Status),
			templ.EscapeString(entry.Status),
			entry.Completed, entry.Total,
			formatPercent(entry.CompletionRate()),
			entry.RetryQueued, entry.Abandoned,
			entry.Correct, accuracy,
		)
		return err
	})
}
