package contacts_test

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/unclebandit/bulkmail/internal/contacts"
	appErrors "github.com/unclebandit/bulkmail/internal/errors"
	"github.com/unclebandit/bulkmail/internal/model"
)

func xlsxFile(t *testing.T, rows [][]any) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cellName, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		r := row
		require.NoError(t, f.SetSheetRow("Sheet1", cellName, &r))
	}
	var buf bytes.Buffer
	_, err := f.WriteTo(&buf)
	require.NoError(t, err)
	return &buf
}

func TestParse_XLSX(t *testing.T) {
	buf := xlsxFile(t, [][]any{
		{"Email", "Name", "city", "plan"},
		{"ana@example.com", "Ana", "Porto", "pro"},
		{"", "Nobody", "Faro", ""},
		{"bo@example.com", "", "", "free"},
	})

	res, err := contacts.Parse("contacts.XLSX", buf)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Skipped)
	require.Len(t, res.Contacts, 2)

	assert.Equal(t, model.Recipient{
		Email:     "ana@example.com",
		Name:      "Ana",
		Variables: map[string]string{"city": "Porto", "plan": "pro"},
	}, res.Contacts[0])
	assert.Equal(t, model.Recipient{
		Email:     "bo@example.com",
		Variables: map[string]string{"plan": "free"},
	}, res.Contacts[1])
}

func TestParse_CSV(t *testing.T) {
	in := "email,name,company\n" +
		"ana@example.com, Ana ,ACME\n" +
		"bo@example.com\n"

	res, err := contacts.Parse("list.csv", strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, res.Contacts, 2)
	assert.Equal(t, "Ana", res.Contacts[0].Name)
	assert.Equal(t, "ACME", res.Contacts[0].Variables["company"])
	assert.Empty(t, res.Contacts[1].Variables)
	assert.Zero(t, res.Skipped)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		input    string
		want     error
	}{
		{"missing email column", "a.csv", "name,city\nAna,Porto\n", contacts.ErrMissingEmailColumn},
		{"header only", "a.csv", "email,name\n", contacts.ErrEmptySheet},
		{"empty file", "a.csv", "", contacts.ErrEmptySheet},
		{"blank rows only", "a.csv", ",,\n,,\n", contacts.ErrEmptySheet},
		{"unknown extension", "a.txt", "email\nx@example.com\n", contacts.ErrUnsupportedFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := contacts.Parse(tt.filename, strings.NewReader(tt.input))
			require.ErrorIs(t, err, tt.want)
			assert.True(t, appErrors.IsValidation(err))
		})
	}
}

func TestParse_CorruptXLSX(t *testing.T) {
	_, err := contacts.Parse("bad.xlsx", strings.NewReader("not a zip"))
	require.Error(t, err)
}

func TestWriteSample(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, contacts.WriteSample(&buf))

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{contacts.SampleSheet}, f.GetSheetList())

	res, err := contacts.Parse("sample.xlsx", bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	require.Len(t, res.Contacts, 3)
	assert.Equal(t, "example1@domain.com", res.Contacts[0].Email)
	assert.Equal(t, "35", res.Contacts[1].Variables["age"])
}

var outcomes = []model.SendOutcome{
	{
		RecipientEmail: "ana@example.com",
		RecipientName:  "Ana",
		Succeeded:      true,
		ExternalID:     "<id-1>",
		Timestamp:      time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC),
	},
	{
		RecipientEmail: "bo@example.com",
		ErrorMessage:   "mailbox unavailable",
		Timestamp:      time.Date(2024, 5, 1, 9, 1, 0, 0, time.UTC),
	},
}

func TestExportOutcomes_CSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, contacts.ExportOutcomes(&buf, contacts.FormatCSV, outcomes))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"Email", "Name", "Date", "Status", "Error"},
		{"ana@example.com", "Ana", "2024-05-01T09:00:00Z", "Success", ""},
		{"bo@example.com", "", "2024-05-01T09:01:00Z", "Failed", "mailbox unavailable"},
	}, records)
}

func TestExportOutcomes_XLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, contacts.ExportOutcomes(&buf, contacts.FormatXLSX, outcomes))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(contacts.OutcomesSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Email", "Name", "Date", "Status", "Error"}, rows[0])
	assert.Equal(t, "Failed", rows[2][3])
	assert.Equal(t, "mailbox unavailable", rows[2][4])
}

func TestExportOutcomes_UnknownFormat(t *testing.T) {
	err := contacts.ExportOutcomes(&bytes.Buffer{}, "pdf", outcomes)
	assert.ErrorIs(t, err, contacts.ErrUnsupportedFormat)
}

func TestContentType(t *testing.T) {
	assert.Contains(t, contacts.ContentType(contacts.FormatCSV), "text/csv")
	assert.Contains(t, contacts.ContentType(contacts.FormatXLSX), "spreadsheetml")
}
