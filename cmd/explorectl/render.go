package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/lyzr/explorer/common/explore"
	"github.com/lyzr/explorer/common/models"
)

func (c *cli) renderPage(p explore.Page) error {
	rows := [][]string{{"ID", "CODE", "DISPLAY", "ORG", "CATEGORY", "VOCAB", "COUNT", "TAGS"}}
	for _, r := range p.Records {
		rows = append(rows, []string{
			r.ID, r.CodeID, r.CodeDisplay, r.Org, r.Category, r.Vocab,
			strconv.FormatInt(r.Count, 10), c.chips(r.TagTexts()),
		})
	}
	c.writeTable(rows)

	_, err := fmt.Fprintf(c.out, "\npage %d/%d, %d matching\n", p.Page, p.TotalPages, p.TotalVisible)
	return err
}

func (c *cli) renderTags(tags []models.Tag) {
	if len(tags) == 0 {
		fmt.Fprintln(c.out, "(no tags)")
		return
	}

	rows := make([][]string, 0, len(tags))
	for _, t := range tags {
		by := ""
		if t.CreatedBy != nil {
			by = *t.CreatedBy
		}
		state := ""
		if t.IsPlaceholder() {
			state = "pending"
		}
		rows = append(rows, []string{t.ID, c.chip(t.Text), by, state})
	}
	c.writeTable(rows)
}

// writeTable prints rows in columns two spaces apart. Cells are measured
// with lipgloss.Width so colour escapes take no room; the last column is
// never padded.
func (c *cli) writeTable(rows [][]string) {
	var widths []int
	for _, row := range rows {
		for i, cell := range row {
			if i == len(widths) {
				widths = append(widths, 0)
			}
			widths[i] = max(widths[i], lipgloss.Width(cell))
		}
	}

	for _, row := range rows {
		cells := make([]string, len(row))
		for i, cell := range row {
			if i == len(row)-1 {
				cells[i] = cell
				continue
			}
			cells[i] = cell + strings.Repeat(" ", widths[i]-lipgloss.Width(cell))
		}
		fmt.Fprintln(c.out, strings.TrimRight(strings.Join(cells, "  "), " "))
	}
}

func (c *cli) chips(labels []string) string {
	out := make([]string, len(labels))
	for i, l := range labels {
		out[i] = c.chip(l)
	}
	return strings.Join(out, " ")
}

// chip renders a label in its palette foreground; plain brackets when
// colour is off
func (c *cli) chip(label string) string {
	text := "[" + label + "]"
	if c.renderer == nil {
		return text
	}
	return c.renderer.NewStyle().
		Foreground(lipgloss.Color(explore.ColorFor(label).Foreground)).
		Render(text)
}
