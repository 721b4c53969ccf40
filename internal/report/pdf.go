package report

import (
	"fmt"
	"io"

	"github.com/go-pdf/fpdf"
)

// WritePDF renders r as an A4 document: a title, the range and entry count,
// then one block per entry.
func WritePDF(w io.Writer, r *Report) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Canteen Meal Report", true)
	pdf.SetCreationDate(r.End)
	pdf.SetAutoPageBreak(true, 15)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, "Canteen Meal Report", "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "", 12)
	pdf.CellFormat(0, 7, "Report Start Date: "+r.StartDate(), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 7, "Report End Date: "+r.EndDate(), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 7, fmt.Sprintf("Total Entries: %d", len(r.Entries)), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "", 10)
	for i, e := range r.Entries {
		lines := []string{
			fmt.Sprintf("%d. Date: %s", i+1, e.Date),
			"   Dinner Type: " + e.DinnerType,
			"   Person ID: " + e.PersonID,
			"   Person Name: " + e.PersonName,
			"   Meal Type: " + e.MealType,
		}
		for _, l := range lines {
			pdf.CellFormat(0, 5, tr(l), "", 1, "L", false, 0, "")
		}
		pdf.Ln(3)
	}

	return pdf.Output(w)
}
