package manager

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/paveg/blockframe/internal/label"
)

// maxPreviewRows bounds the rows rendered by String
const maxPreviewRows = 10

// Describe renders the block layout: one row per block with its dtype,
// items and shape.
func (m *Manager) Describe() string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "Manager: %d rows x %d columns, %d blocks", m.Len(), m.Width(), len(m.blocks))
	if m.IsConsolidated() {
		buf.WriteString(" (consolidated)")
	}
	buf.WriteByte('\n')

	table := tablewriter.NewWriter(&buf)
	table.SetHeader([]string{"block", "dtype", "items", "shape"})
	table.SetAutoFormatHeaders(false)
	for i, b := range m.blocks {
		items := make([]string, b.Len())
		for j, l := range b.Items().Labels() {
			items[j] = label.Format(l)
		}
		table.Append([]string{
			fmt.Sprint(i),
			b.Dtype().String(),
			strings.Join(items, ", "),
			fmt.Sprintf("%d x %d", b.Len(), b.Rows()),
		})
	}
	table.Render()
	return buf.String()
}

// String renders the first rows of the manager as a table in column-axis order
func (m *Manager) String() string {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAlignment(tablewriter.ALIGN_RIGHT)

	header := []string{""}
	items := m.Items()
	for _, it := range items {
		header = append(header, label.Format(it.Label))
	}
	table.SetHeader(header)

	n := min(m.Len(), maxPreviewRows)
	for i := range n {
		row := []string{label.Format(m.rows.Label(i))}
		for _, it := range items {
			row = append(row, it.Column.String(i))
		}
		table.Append(row)
	}
	table.Render()
	if m.Len() > n {
		fmt.Fprintf(&buf, "... %d more rows\n", m.Len()-n)
	}
	return buf.String()
}
