package google

import (
	"context"
	"fmt"
	"strings"

	"github.com/noah-isme/leads-portal-api/internal/models"
)

// RowOutcome tags the result of a row read.
type RowOutcome int

const (
	RowFound RowOutcome = iota + 1
	RowEmpty
	RowEndOfWindow
)

func (o RowOutcome) String() string {
	switch o {
	case RowFound:
		return "found"
	case RowEmpty:
		return "empty"
	case RowEndOfWindow:
		return "end_of_window"
	default:
		return "unknown"
	}
}

// RowResult is the outcome of reading from a source spreadsheet. Row and Info
// are set only for RowFound, Row also for RowEmpty.
type RowResult struct {
	Outcome RowOutcome
	Row     int
	Info    models.StudentInfo
}

const sourceColumns = 4

// ResponseHeader is written once to every response spreadsheet.
var ResponseHeader = []interface{}{"Name", "Parent Name", "Phone Number", "Education", "Latest Response", "Current Status"}

// ReadRow reads columns A to D of a single row.
func (c *Client) ReadRow(ctx context.Context, fileID string, row int) (RowResult, error) {
	row = normalizeRow(row)
	rng := fmt.Sprintf("A%d:D%d", row, row)

	var values [][]interface{}
	if err := c.call("sheets.read_row", false, func() error {
		var err error
		values, err = c.values.Get(ctx, fileID, rng)
		return err
	}); err != nil {
		return RowResult{}, err
	}

	if len(values) == 0 {
		return RowResult{Outcome: RowEmpty, Row: row}, nil
	}
	return c.parseRow(values[0], row)
}

// NextPopulatedRow scans the half open window [start, end) and returns the first
// row holding any data, with its absolute row number.
func (c *Client) NextPopulatedRow(ctx context.Context, fileID string, start, end int) (RowResult, error) {
	start = normalizeRow(start)
	if end <= start {
		return RowResult{Outcome: RowEndOfWindow}, nil
	}
	rng := fmt.Sprintf("A%d:D%d", start, end-1)

	var values [][]interface{}
	if err := c.call("sheets.scan_rows", false, func() error {
		var err error
		values, err = c.values.Get(ctx, fileID, rng)
		return err
	}); err != nil {
		return RowResult{}, err
	}

	for offset, cells := range values {
		if len(populated(cells)) == 0 {
			continue
		}
		return c.parseRow(cells, start+offset)
	}
	return RowResult{Outcome: RowEndOfWindow}, nil
}

// WriteResponseRow mirrors a source row into the response spreadsheet. The
// response file carries a header, so source row N lands on row N+1.
func (c *Client) WriteResponseRow(ctx context.Context, responseFileID string, row int, record models.ResponseRow) error {
	target := normalizeRow(row) + 1
	rng := fmt.Sprintf("A%d:F%d", target, target)
	return c.call("sheets.write_row", false, func() error {
		return c.values.Update(ctx, responseFileID, rng, [][]interface{}{record.Values()})
	})
}

// WriteResponseHeader writes the fixed header row.
func (c *Client) WriteResponseHeader(ctx context.Context, responseFileID string) error {
	return c.call("sheets.write_header", false, func() error {
		return c.values.Update(ctx, responseFileID, "A1:F1", [][]interface{}{ResponseHeader})
	})
}

func (c *Client) parseRow(cells []interface{}, row int) (RowResult, error) {
	values := populated(cells)
	if len(values) == 0 {
		return RowResult{Outcome: RowEmpty, Row: row}, nil
	}
	if len(values) != sourceColumns || countFilled(values) != sourceColumns {
		return RowResult{}, c.invalidRow(row, "")
	}

	info := models.StudentInfo{
		Name:        values[0],
		ParentName:  values[1],
		PhoneNumber: values[2],
		Education:   values[3],
	}
	if problem := c.validate.check(info); problem != "" {
		return RowResult{}, c.invalidRow(row, problem)
	}
	return RowResult{Outcome: RowFound, Row: row, Info: info}, nil
}

func (c *Client) invalidRow(row int, problem string) error {
	msg := "The data present in the file is invalid."
	if problem != "" {
		msg += " Error: " + problem
	}
	msg += fmt.Sprintf(" Please notify %s to check row number: %d", c.owner.FullName(), row)
	e := newError(KindInvalidData, msg, nil)
	e.Row = row
	return e
}

// populated converts cells to strings and drops trailing blanks, the way the
// values API omits trailing empty cells.
func populated(cells []interface{}) []string {
	values := make([]string, len(cells))
	for i, cell := range cells {
		if cell != nil {
			values[i] = strings.TrimSpace(fmt.Sprint(cell))
		}
	}
	end := len(values)
	for end > 0 && values[end-1] == "" {
		end--
	}
	return values[:end]
}

func countFilled(values []string) int {
	n := 0
	for _, v := range values {
		if v != "" {
			n++
		}
	}
	return n
}

func normalizeRow(row int) int {
	if row < 1 {
		return 1
	}
	return row
}
