// Package dataset loads delimited text (and spreadsheets) into an in-memory columnar table.
package dataset

import (
	"strconv"
	"strings"
)

// Column is one named column with row-aligned cells.
type Column struct {
	Name    string
	Cells   []string
	Missing []bool
}

// NonMissing counts cells that carry a value.
func (c *Column) NonMissing() int {
	n := 0
	for _, m := range c.Missing {
		if !m {
			n++
		}
	}
	return n
}

// Dataset is the in-memory table produced by Load. Column order and names are
// fixed once loaded.
type Dataset struct {
	Name     string
	Path     string
	Encoding string
	// EncodingConfidence is the detector's score (0-100). It is 100 for a BOM,
	// a forced encoding or xlsx input, and 0 when detection fell back to UTF-8.
	EncodingConfidence int
	Columns            []Column
	Rows               int
}

// ColumnNames returns the column names in file order.
func (d *Dataset) ColumnNames() []string {
	out := make([]string, len(d.Columns))
	for i, c := range d.Columns {
		out[i] = c.Name
	}
	return out
}

// Column looks a column up by exact name.
func (d *Dataset) Column(name string) (*Column, bool) {
	for i := range d.Columns {
		if d.Columns[i].Name == name {
			return &d.Columns[i], true
		}
	}
	return nil, false
}

// defaultNAValues mirrors the tokens pandas treats as missing by default.
var defaultNAValues = []string{
	"", "#N/A", "#N/A N/A", "#NA", "-1.#IND", "-1.#QNAN", "-NaN", "-nan",
	"1.#IND", "1.#QNAN", "<NA>", "N/A", "NA", "NULL", "NaN", "None", "n/a", "nan", "null",
}

func naSet(values []string) map[string]struct{} {
	if values == nil {
		values = defaultNAValues
	}
	set := make(map[string]struct{}, len(values)+1)
	set[""] = struct{}{}
	for _, v := range values {
		set[strings.TrimSpace(v)] = struct{}{}
	}
	return set
}

// build turns a header plus row-major records into a Dataset.
func build(header []string, records [][]string, na map[string]struct{}) []Column {
	names := uniqueNames(header)
	cols := make([]Column, len(names))
	for i, n := range names {
		cols[i] = Column{Name: n, Cells: make([]string, len(records)), Missing: make([]bool, len(records))}
	}
	for r, rec := range records {
		for i := range cols {
			v := ""
			if i < len(rec) {
				v = strings.TrimSpace(rec[i])
			}
			cols[i].Cells[r] = v
			_, miss := na[v]
			cols[i].Missing[r] = miss
		}
	}
	return cols
}

// uniqueNames fills blank headers and de-duplicates repeats as name, name.1, name.2.
func uniqueNames(header []string) []string {
	out := make([]string, len(header))
	seen := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\uFEFF"))
		if h == "" {
			h = "Unnamed: " + strconv.Itoa(i)
		}
		name := h
		if _, dup := seen[name]; dup {
			for k := seen[h] + 1; ; k++ {
				cand := h + "." + strconv.Itoa(k)
				if _, taken := seen[cand]; !taken {
					name = cand
					seen[h] = k
					break
				}
			}
		}
		if _, ok := seen[name]; !ok {
			seen[name] = 0
		}
		out[i] = name
	}
	return out
}
