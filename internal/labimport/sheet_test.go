package labimport

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func xlsxFile(t *testing.T, rows ...[]any) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func TestParseXLSX(t *testing.T) {
	buf := xlsxFile(t,
		[]any{"MRN", "Name", "Hemoglobin"},
		[]any{"MRN-001", "Ada Obi", 13.5},
		[]any{"", "Kofi Mensah", "12.1"},
	)

	s, err := Parse("results.XLSX", buf)
	require.NoError(t, err)
	assert.Equal(t, "Sheet1", s.Name)
	assert.Equal(t, []string{"MRN", "Name", "Hemoglobin"}, s.Headers)
	require.Len(t, s.Rows, 2)
	assert.Equal(t, Row{"MRN": "MRN-001", "Name": "Ada Obi", "Hemoglobin": "13.5"}, s.Rows[0])
	assert.Equal(t, Row{"Name": "Kofi Mensah", "Hemoglobin": "12.1"}, s.Rows[1])
}

func TestParseCSV(t *testing.T) {
	in := "\ufeffPatient Name,Test,Result,Test\n" +
		"Ada Obi,Glucose,5.4,HbA1c\n" +
		",,,\n" +
		"Kofi,Glucose,6.1\n"

	s, err := Parse("labs.csv", strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, []string{"Patient Name", "Test", "Result", "Test_1"}, s.Headers)
	require.Len(t, s.Rows, 2, "blank rows are skipped")
	assert.Equal(t, "HbA1c", s.Rows[0]["Test_1"])
	assert.Equal(t, Row{"Patient Name": "Kofi", "Test": "Glucose", "Result": "6.1"}, s.Rows[1])
}

func TestParseRejects(t *testing.T) {
	_, err := Parse("old.xls", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrUnsupportedFile)

	_, err = Parse("empty.csv", strings.NewReader(""))
	assert.ErrorIs(t, err, ErrEmptySheet)

	_, err = Parse("blank-header.csv", strings.NewReader(",,\n1,2,3\n"))
	assert.ErrorIs(t, err, ErrEmptySheet)
}

func TestHeaderNames(t *testing.T) {
	assert.Equal(t, []string{"A", "__EMPTY", "A_1", "__EMPTY_1", "B"}, headerNames([]string{" A ", "", "A", " ", "B", "", ""}))
	assert.Equal(t, []string{"A", "A_1", "A_1_1"}, headerNames([]string{"A", "A", "A_1"}))
	assert.Equal(t, []string{"A_1", "A", "A_2", "A_3"}, headerNames([]string{"A_1", "A", "A", "A"}))
}

func TestSearchKeyOrder(t *testing.T) {
	key, ok := Row{"MRN": "M1", "Name": "Ada"}.SearchKey()
	assert.True(t, ok)
	assert.Equal(t, "M1", key)

	key, ok = Row{"MRN": "  ", "Patient Name": "Kofi"}.SearchKey()
	assert.True(t, ok)
	assert.Equal(t, "Kofi", key)

	_, ok = Row{"Test": "Glucose"}.SearchKey()
	assert.False(t, ok)
}

func TestPreview(t *testing.T) {
	s := &Sheet{}
	for i := 0; i < 15; i++ {
		s.Rows = append(s.Rows, Row{"n": "x"})
	}
	assert.Len(t, s.Preview(10), 10)
	assert.Len(t, s.Preview(50), 15)
}
