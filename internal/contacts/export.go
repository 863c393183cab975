package contacts

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	appErrors "github.com/unclebandit/bulkmail/internal/errors"
	"github.com/unclebandit/bulkmail/internal/model"
)

const OutcomesSheet = "Sent Emails"

var outcomeHeader = []string{"Email", "Name", "Date", "Status", "Error"}

var sampleHeader = []string{"email", "name", "city", "company", "age", "profession"}

var sampleRows = [][]string{
	{"example1@domain.com", "Full Name 1", "Lisbon", "Company ABC"},
	{"example2@domain.com", "Full Name 2", "", "", "35", "Developer"},
	{"example3@domain.com", "Full Name 3"},
}

// ContentType returns the MIME type of an export format.
func ContentType(format string) string {
	if format == FormatCSV {
		return "text/csv; charset=utf-8"
	}
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

// WriteSample writes an .xlsx file with three example contacts.
func WriteSample(w io.Writer) error {
	return writeXLSX(w, SampleSheet, sampleHeader, sampleRows)
}

// ExportOutcomes writes one row per send outcome in csv or xlsx format.
func ExportOutcomes(w io.Writer, format string, outcomes []model.SendOutcome) error {
	rows := make([][]string, 0, len(outcomes))
	for _, o := range outcomes {
		status, errMsg := "Success", ""
		if !o.Succeeded {
			status, errMsg = "Failed", o.ErrorMessage
		}
		rows = append(rows, []string{
			o.RecipientEmail,
			o.RecipientName,
			o.Timestamp.UTC().Format(time.RFC3339),
			status,
			errMsg,
		})
	}

	switch format {
	case FormatCSV:
		cw := csv.NewWriter(w)
		if err := cw.Write(outcomeHeader); err != nil {
			return err
		}
		if err := cw.WriteAll(rows); err != nil {
			return fmt.Errorf("write csv: %w", err)
		}
		return nil
	case FormatXLSX, "":
		return writeXLSX(w, OutcomesSheet, outcomeHeader, rows)
	default:
		return appErrors.NewValidation(ErrUnsupportedFormat, "format", "must be csv or xlsx")
	}
}

func writeXLSX(w io.Writer, sheet string, header []string, rows [][]string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}
	if err := setRow(f, sheet, 1, header); err != nil {
		return err
	}
	for i, row := range rows {
		if err := setRow(f, sheet, i+2, row); err != nil {
			return err
		}
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, sheet string, n int, values []string) error {
	cellName, err := excelize.CoordinatesToCellName(1, n)
	if err != nil {
		return err
	}
	row := make([]interface{}, len(values))
	for i, v := range values {
		row[i] = v
	}
	if err := f.SetSheetRow(sheet, cellName, &row); err != nil {
		return fmt.Errorf("write row %d: %w", n, err)
	}
	return nil
}
