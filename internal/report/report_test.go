package report_test

import (
	"math"
	"strings"
	"testing"

	"github.com/alecthomas/assert/v2"

	"github.com/twpayne/go-peaks/internal/report"
)

var testRows = []report.Row{
	{
		Number:              1,
		X:                   120,
		Y:                   45,
		Longitude:           7.65861111,
		Latitude:            45.97638889,
		Height:              4478,
		Prominence:          1031,
		Dominance:           math.Inf(1),
		OrographicDominance: 100 * 1031.0 / 4478,
	},
	{
		Number:              2,
		X:                   3,
		Y:                   200,
		Longitude:           math.NaN(),
		Latitude:            math.NaN(),
		Height:              3200.5,
		Prominence:          310,
		Dominance:           1234.567,
		OrographicDominance: 100 * 310 / 3200.5,
		Approximate:         true,
	},
}

func TestWriteCSV(t *testing.T) {
	var sb strings.Builder
	assert.NoError(t, report.Write(&sb, report.FormatCSV, testRows))
	assert.Equal(t, strings.Join([]string{
		"No.,Pixel,Latitude,Longitude,Height (m),Prominence (m),Dominance (m),Orographic dominance (%)",
		`1,"120, 45",45.97638889,7.65861111,4478,1031,inf,23.02`,
		`2,"3, 200",N/A,N/A,3200.5,~310,1234.57,9.69`,
		"",
	}, "\n"), sb.String())
}

func TestWriteTable(t *testing.T) {
	var sb strings.Builder
	assert.NoError(t, report.Write(&sb, report.FormatTable, testRows))
	lines := strings.Split(strings.TrimSuffix(sb.String(), "\n"), "\n")
	assert.Equal(t, 3, len(lines))
	assert.True(t, strings.Contains(lines[0], "PROMINENCE"))
	assert.True(t, strings.Contains(lines[1], "45.97638889"))
	assert.True(t, strings.Contains(lines[2], "~310"))
	assert.Equal(t, len(lines[0]), len(lines[1]))
	assert.Equal(t, len(lines[0]), len(lines[2]))
}

func TestWriteUnknownFormat(t *testing.T) {
	var sb strings.Builder
	assert.Error(t, report.Write(&sb, "xml", testRows))
}
