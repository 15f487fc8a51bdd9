// Package report writes found peaks as CSV or as an aligned text table.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"text/tabwriter"
)

// Formats.
const (
	FormatTable = "table"
	FormatCSV   = "csv"
)

// A Row describes one peak.
type Row struct {
	Number int
	X      int
	Y      int

	// Longitude and Latitude are NaN if the peak could not be converted to
	// WGS 84.
	Longitude float64
	Latitude  float64

	Height     float64
	Prominence float64

	// Dominance is in meters, NaN if the ground scale is unknown, or +Inf
	// for the first peak.
	Dominance           float64
	OrographicDominance float64
	Approximate         bool
}

var csvHeader = []string{
	"No.",
	"Pixel",
	"Latitude",
	"Longitude",
	"Height (m)",
	"Prominence (m)",
	"Dominance (m)",
	"Orographic dominance (%)",
}

// Write writes rows to w in format.
func Write(w io.Writer, format string, rows []Row) error {
	switch format {
	case FormatCSV:
		return WriteCSV(w, rows)
	case FormatTable:
		return WriteTable(w, rows)
	default:
		return fmt.Errorf("%s: unknown format", format)
	}
}

// WriteCSV writes rows to w as CSV with a header.
func WriteCSV(w io.Writer, rows []Row) error {
	csvWriter := csv.NewWriter(w)
	if err := csvWriter.Write(csvHeader); err != nil {
		return err
	}
	for _, row := range rows {
		record := []string{
			strconv.Itoa(row.Number),
			formatPixel(row),
			formatDegrees(row.Latitude),
			formatDegrees(row.Longitude),
			strconv.FormatFloat(row.Height, 'f', -1, 64),
			formatProminence(row),
			formatMeters(row.Dominance),
			strconv.FormatFloat(row.OrographicDominance, 'f', 2, 64),
		}
		if err := csvWriter.Write(record); err != nil {
			return err
		}
	}
	csvWriter.Flush()
	return csvWriter.Error()
}

// WriteTable writes rows to w as a table with aligned columns.
func WriteTable(w io.Writer, rows []Row) error {
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', tabwriter.AlignRight)
	if _, err := fmt.Fprintln(tw, "NO.\tPIXEL\tLATITUDE\tLONGITUDE\tHEIGHT\tPROMINENCE\tDOMINANCE\tORO. DOM.\t"); err != nil {
		return err
	}
	for _, row := range rows {
		if _, err := fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s%%\t\n",
			row.Number,
			formatPixel(row),
			formatDegrees(row.Latitude),
			formatDegrees(row.Longitude),
			strconv.FormatFloat(row.Height, 'f', -1, 64),
			formatProminence(row),
			formatMeters(row.Dominance),
			strconv.FormatFloat(row.OrographicDominance, 'f', 2, 64),
		); err != nil {
			return err
		}
	}
	return tw.Flush()
}

func formatPixel(row Row) string {
	return strconv.Itoa(row.X) + ", " + strconv.Itoa(row.Y)
}

func formatDegrees(degrees float64) string {
	if math.IsNaN(degrees) {
		return "N/A"
	}
	return strconv.FormatFloat(degrees, 'f', 8, 64)
}

func formatMeters(meters float64) string {
	switch {
	case math.IsNaN(meters):
		return "N/A"
	case math.IsInf(meters, 1):
		return "inf"
	default:
		return strconv.FormatFloat(meters, 'f', 2, 64)
	}
}

// formatProminence prefixes approximate prominences with "~".
func formatProminence(row Row) string {
	s := strconv.FormatFloat(row.Prominence, 'f', -1, 64)
	if row.Approximate {
		s = "~" + s
	}
	return s
}
