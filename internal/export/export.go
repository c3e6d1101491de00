package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/BuzzLyutic/tasklist/internal/model"
)

const (
	FormatPDF = "pdf"
	FormatCSV = "csv"
)

const dateLayout = "2006-01-02 15:04"

// ContentType returns the MIME type for format, or "" if unsupported.
func ContentType(format string) string {
	switch strings.ToLower(format) {
	case FormatPDF:
		return "application/pdf"
	case FormatCSV:
		return "text/csv"
	default:
		return ""
	}
}

// Render writes tasks to w in the requested format, keeping their order.
func Render(w io.Writer, format string, tasks []model.Task) error {
	switch strings.ToLower(format) {
	case FormatCSV:
		return renderCSV(w, tasks)
	case FormatPDF:
		return renderPDF(w, tasks)
	default:
		return fmt.Errorf("unknown format %s", format)
	}
}

func renderCSV(w io.Writer, tasks []model.Task) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"id", "title", "description", "due_date"}); err != nil {
		return err
	}
	for _, t := range tasks {
		due := ""
		if t.HasDueDate() {
			due = t.DueDate.UTC().Format(time.RFC3339)
		}
		if err := cw.Write([]string{strconv.FormatInt(t.ID, 10), t.Title, t.Description, due}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func renderPDF(w io.Writer, tasks []model.Task) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()
	pdf.SetFont("Arial", "B", 14)
	pdf.Cell(40, 10, "Tasks")
	pdf.Ln(12)

	if len(tasks) == 0 {
		pdf.SetFont("Arial", "I", 10)
		pdf.Cell(40, 6, "No tasks")
	}

	for _, t := range tasks {
		due := "no due date"
		if t.HasDueDate() {
			due = "due " + t.DueDate.UTC().Format(dateLayout) + " UTC"
		}
		pdf.SetFont("Arial", "B", 11)
		pdf.MultiCell(0, 6, tr(fmt.Sprintf("#%d %s (%s)", t.ID, t.Title, due)), "0", "L", false)
		if t.Description != "" {
			pdf.SetFont("Arial", "", 10)
			pdf.MultiCell(0, 5, tr(t.Description), "0", "L", false)
		}
		pdf.Ln(2)
	}
	return pdf.Output(w)
}
