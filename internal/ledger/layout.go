package ledger

import "fmt"

// Layout describes where one property's ledger sheet keeps its month rows
// and detail block. Most properties share the default layout; a few legacy
// sheets place their columns elsewhere.
type Layout struct {
	// LabelColumn holds the year headers and month names.
	LabelColumn string
	// Aggregate columns for the located month row.
	RevenueColumn  string
	CleaningColumn string
	ExpensesColumn string
	// Detail block bounds. Rows are appended at the block's first empty row.
	DetailStartColumn string
	DetailEndColumn   string
	DetailStartRow    int
	// ScanRows bounds the label column scan.
	ScanRows int
}

// DefaultLayout matches the standard property sheet.
func DefaultLayout() Layout {
	return Layout{
		LabelColumn:       "A",
		RevenueColumn:     "B",
		CleaningColumn:    "C",
		ExpensesColumn:    "D",
		DetailStartColumn: "H",
		DetailEndColumn:   "O",
		DetailStartRow:    2,
		ScanRows:          400,
	}
}

// LabelRange is the A1 range scanned for year and month labels.
func (l Layout) LabelRange() string {
	return fmt.Sprintf("%s1:%s%d", l.LabelColumn, l.LabelColumn, l.ScanRows)
}

// DetailRange is the A1 range of the whole detail block.
func (l Layout) DetailRange() string {
	return fmt.Sprintf("%s%d:%s%d", l.DetailStartColumn, l.DetailStartRow, l.DetailEndColumn, l.ScanRows)
}

// Cell builds an A1 address for a column in the given row.
func Cell(column string, row int) string {
	return fmt.Sprintf("%s%d", column, row)
}

// Registry resolves a layout by property name and falls back to the default
// for properties without an override.
type Registry struct {
	overrides map[string]Layout
	fallback  Layout
}

// NewRegistry constructs a registry with the default fallback layout.
func NewRegistry() *Registry {
	return &Registry{
		overrides: make(map[string]Layout),
		fallback:  DefaultLayout(),
	}
}

// Register installs a per-property override.
func (r *Registry) Register(propertyName string, layout Layout) {
	r.overrides[propertyName] = layout
}

// For returns the layout for a property name.
func (r *Registry) For(propertyName string) Layout {
	if l, ok := r.overrides[propertyName]; ok {
		return l
	}
	return r.fallback
}
