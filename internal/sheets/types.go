package sheets

// Major dimensions accepted by the values endpoints.
const (
	DimensionRows    = "ROWS"
	DimensionColumns = "COLUMNS"
)

// ValueRange is the content of one A1 range
type ValueRange struct {
	// Range is the range actually returned, in A1 notation
	Range string `json:"range"`

	// MajorDimension is ROWS or COLUMNS
	MajorDimension string `json:"majorDimension"`

	// Values holds the cells; trailing empty cells are omitted by the API
	Values [][]any `json:"values"`
}

// Spreadsheet is the metadata of a spreadsheet
type Spreadsheet struct {
	ID     string      `json:"spreadsheetId"`
	Title  string      `json:"title"`
	Locale string      `json:"locale,omitempty"`
	URL    string      `json:"url,omitempty"`
	Sheets []SheetInfo `json:"sheets"`
}

// SheetInfo describes one sheet (tab) of a spreadsheet
type SheetInfo struct {
	ID          int64  `json:"sheetId"`
	Title       string `json:"title"`
	Index       int64  `json:"index"`
	RowCount    int64  `json:"rowCount,omitempty"`
	ColumnCount int64  `json:"columnCount,omitempty"`
}

// SheetNames returns the titles of all sheets in order
func (s *Spreadsheet) SheetNames() []string {
	names := make([]string, 0, len(s.Sheets))
	for _, sh := range s.Sheets {
		names = append(names, sh.Title)
	}
	return names
}

// HasSheet reports whether a sheet with the given title exists
func (s *Spreadsheet) HasSheet(title string) bool {
	for _, sh := range s.Sheets {
		if sh.Title == title {
			return true
		}
	}
	return false
}
