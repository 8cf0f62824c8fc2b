package main

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/jwulff/sensorviz/internal/classify"
	"github.com/jwulff/sensorviz/internal/dataset"
	"github.com/jwulff/sensorviz/internal/table"
)

// applyCommand updates the controller for one pager command. It reports false
// when the command asks to quit.
func applyCommand(c *table.Controller, cmd string, rowCount int) bool {
	cmd = strings.TrimSpace(strings.ToLower(cmd))
	switch cmd {
	case "q", "quit":
		return false
	case "n", "next":
		c.Navigate(func(s table.State) table.State { return s.Next(rowCount) })
	case "p", "prev":
		c.Navigate(table.State.Prev)
	case "f", "first":
		c.Navigate(table.State.First)
	case "l", "last":
		c.Navigate(func(s table.State) table.State { return s.Last(rowCount) })
	case "":
		// Re-render.
	default:
		if strings.HasPrefix(cmd, "size ") {
			if size, ok := table.ParsePageSize(strings.TrimPrefix(cmd, "size ")); ok {
				c.SetPageSize(size)
			}
		} else if page, err := strconv.Atoi(cmd); err == nil {
			c.SetPage(page - 1)
		}
	}
	return true
}

// browse pages through ds, reading commands from in until "q" or EOF.
func browse(in io.Reader, out io.Writer, ds *dataset.Dataset, pageSize int, loc *time.Location) {
	roles := classify.Classify(ds, loc)
	ctrl := table.NewController(pageSize)
	scanner := bufio.NewScanner(in)

	for {
		w := table.Render(ctrl, ds.Rows)
		if ctrl.Pending() {
			fmt.Fprintf(out, "Page %d is out of range; press enter to jump to the nearest page\n", w.Page+1)
		} else {
			printWindow(out, w, ds.Schema, roles, loc)
		}
		fmt.Fprint(out, "[n]ext [p]rev [f]irst [l]ast <page> size <n|all> [q]uit > ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return
		}
		if !applyCommand(ctrl, scanner.Text(), ds.Len()) {
			return
		}
	}
}

func printWindow(out io.Writer, w table.Window[dataset.Record], schema dataset.Schema, roles classify.Roles, loc *time.Location) {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	headers := make([]string, len(roles.Columns))
	for i, c := range roles.Columns {
		headers[i] = table.Header(c, roles.Time)
	}
	fmt.Fprintln(tw, strings.Join(headers, "\t"))
	for _, row := range table.FormatRows(w.Rows, schema, roles.Columns, loc) {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	tw.Flush()
	fmt.Fprintf(out, "%s (page %d of %d)\n", w.Label(), w.Page+1, w.TotalPages)
}
