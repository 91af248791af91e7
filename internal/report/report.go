// Package report renders a task list as a printable PDF checklist.
package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"

	"todolite/internal/due"
	"todolite/internal/task"
	"todolite/internal/views"
)

// Options configures the checklist.
type Options struct {
	Title       string
	GeneratedAt time.Time
	// Classifier labels due dates. Nil uses the wall clock.
	Classifier *due.Classifier
}

const (
	boxSize    = 4.0
	lineHeight = 7.0
	margin     = 15.0
)

// FileName returns the default checklist file name for now.
func FileName(now time.Time) string {
	return fmt.Sprintf("todolite-checklist-%s.pdf", now.Format("2006-01-02"))
}

// WritePDF writes one checkbox row per task to w, in the order given.
func WritePDF(w io.Writer, tasks []task.Task, opts Options) error {
	if opts.Title == "" {
		opts.Title = "TodoLite"
	}
	if opts.GeneratedAt.IsZero() {
		opts.GeneratedAt = time.Now()
	}
	classifier := opts.Classifier
	if classifier == nil {
		classifier = due.New(nil)
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(true, margin)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(0, 10, tr(opts.Title))
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 9)
	pdf.Cell(0, 6, tr(fmt.Sprintf("%d task(s), generated %s", len(tasks), opts.GeneratedAt.Format("2006-01-02 15:04"))))
	pdf.Ln(10)

	if len(tasks) == 0 {
		pdf.SetFont("Arial", "I", 11)
		pdf.Cell(0, lineHeight, tr(views.EmptyFilteredMessage))
	}

	pageWidth, pageHeight := pdf.GetPageSize()
	textWidth := pageWidth - 2*margin - boxSize - 3

	for _, t := range tasks {
		if pdf.GetY()+lineHeight > pageHeight-margin {
			pdf.AddPage()
		}
		x, y := pdf.GetX(), pdf.GetY()
		drawBox(pdf, x, y+1.5, t.Completed)

		pdf.SetXY(x+boxSize+3, y)
		style := ""
		if !t.Completed && classifier.IsOverdue(t.DueDate) {
			style = "B"
		}
		pdf.SetFont("Arial", style, 11)
		pdf.MultiCell(textWidth, lineHeight, tr(line(t, classifier)), "", "L", false)
		pdf.SetX(x)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("failed to write PDF: %w", err)
	}
	return nil
}

func drawBox(pdf *gofpdf.Fpdf, x, y float64, checked bool) {
	pdf.SetLineWidth(0.3)
	pdf.Rect(x, y, boxSize, boxSize, "D")
	if checked {
		pdf.Line(x, y, x+boxSize, y+boxSize)
		pdf.Line(x, y+boxSize, x+boxSize, y)
	}
}

// line is the text printed next to a checkbox.
func line(t task.Task, classifier *due.Classifier) string {
	parts := []string{t.Text, "(" + string(t.Priority) + ")"}
	if label := classifier.FormatRelative(t.DueDate); label != "" {
		parts = append(parts, label+" ["+t.DueDate.String()+"]")
	}
	if label := views.RepeatLabel(t.Recurring); label != "" {
		parts = append(parts, label)
	}
	if len(t.Tags) > 0 {
		parts = append(parts, "#"+strings.Join(t.Tags, " #"))
	}
	return strings.Join(parts, "  ")
}
