// Package contacts converts spreadsheets into recipients and send
// outcomes back into spreadsheets.
package contacts

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	appErrors "github.com/unclebandit/bulkmail/internal/errors"
	"github.com/unclebandit/bulkmail/internal/model"
)

var (
	ErrEmptySheet         = errors.New("spreadsheet is empty or has no valid rows")
	ErrMissingEmailColumn = errors.New("spreadsheet must have an 'email' or 'Email' column")
	ErrUnsupportedFormat  = errors.New("unsupported file format")
)

const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"

	SampleSheet = "Contacts"
)

// ImportResult is the outcome of parsing one file.
type ImportResult struct {
	Contacts []model.Recipient `json:"contacts"`
	Skipped  int               `json:"skipped"`
}

// Parse reads the first sheet of an .xlsx file or a .csv file. The header row
// names the columns: email is required, name is optional and every other
// non-empty column becomes a template variable. Rows without an email are skipped.
func Parse(filename string, r io.Reader) (*ImportResult, error) {
	var (
		rows [][]string
		err  error
	)
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), ".")) {
	case FormatXLSX:
		rows, err = readXLSX(r)
	case FormatCSV:
		rows, err = readCSV(r)
	default:
		return nil, appErrors.NewValidation(ErrUnsupportedFormat, "file", "must be .xlsx or .csv")
	}
	if err != nil {
		return nil, err
	}
	return fromRows(rows)
}

func readXLSX(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, appErrors.NewValidation(ErrEmptySheet, "file", "has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}
	return rows, nil
}

func readCSV(r io.Reader) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, appErrors.NewValidation(ErrUnsupportedFormat, "file", err.Error())
	}
	return rows, nil
}

func fromRows(rows [][]string) (*ImportResult, error) {
	rows = dropBlankRows(rows)
	if len(rows) < 2 {
		return nil, appErrors.NewValidation(ErrEmptySheet, "file", "has no data rows")
	}

	header := rows[0]
	emailCol, nameCol := -1, -1
	for i, h := range header {
		switch strings.TrimSpace(h) {
		case "email", "Email":
			if emailCol < 0 {
				emailCol = i
			}
		case "name", "Name":
			if nameCol < 0 {
				nameCol = i
			}
		}
	}
	if emailCol < 0 {
		return nil, appErrors.NewValidation(ErrMissingEmailColumn, "file", "has no email column")
	}

	res := &ImportResult{Contacts: make([]model.Recipient, 0, len(rows)-1)}
	for _, row := range rows[1:] {
		email := cell(row, emailCol)
		if email == "" {
			res.Skipped++
			continue
		}
		rec := model.Recipient{Email: email, Name: cell(row, nameCol)}
		for i, h := range header {
			key := strings.TrimSpace(h)
			if i == emailCol || i == nameCol || key == "" || isReservedColumn(key) {
				continue
			}
			if v := cell(row, i); v != "" {
				if rec.Variables == nil {
					rec.Variables = map[string]string{}
				}
				rec.Variables[key] = v
			}
		}
		res.Contacts = append(res.Contacts, rec)
	}
	return res, nil
}

// isReservedColumn drops duplicate email or name columns such as "EMAIL".
func isReservedColumn(key string) bool {
	k := strings.ToLower(key)
	return k == "email" || k == "name"
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func dropBlankRows(rows [][]string) [][]string {
	out := rows[:0:0]
	for _, row := range rows {
		for _, c := range row {
			if strings.TrimSpace(c) != "" {
				out = append(out, row)
				break
			}
		}
	}
	return out
}
