package reporting

import (
	"context"
	"fmt"
	"html"
	"io"
	"regexp"
	"strconv"
	"strings"

	"legal-clinic/internal/clinic"

	"github.com/go-pdf/fpdf"
)

var (
	lineBreaks = regexp.MustCompile(`(?i)<br\s*/?>|</p>`)
	tags       = regexp.MustCompile(`<[^>]*>`)
)

// plainText turns the rich-text notes of a consultation into plain lines.
func plainText(s string) string {
	s = lineBreaks.ReplaceAllString(s, "\n")
	s = tags.ReplaceAllString(s, "")
	s = html.UnescapeString(s)

	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, l := range lines {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}

// AttentionSheet renders the one-page attention sheet of a consultation as
// a PDF. The document is not stored.
func (s *Service) AttentionSheet(ctx context.Context, code string, w io.Writer) error {
	c, ok, err := s.repo.Consultation(ctx, code)
	if err != nil {
		return err
	}
	if !ok {
		return clinic.NotFound(clinic.EntityConsultation, code)
	}
	cl, ok, err := s.repo.Client(ctx, c.ClientID)
	if err != nil {
		return err
	}
	if !ok {
		return clinic.NotFound(clinic.EntityClient, c.ClientID)
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle("Hoja de atención "+c.Code, true)
	pdf.SetMargins(20, 20, 20)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, tr("Hoja de atención"), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(0, 7, c.Code, "", 1, "C", false, 0, "")
	pdf.Ln(4)

	age := ""
	if cl.Age > 0 {
		age = strconv.Itoa(cl.Age)
	}
	fields := [][2]string{
		{"Usuario", strings.TrimSpace(cl.FirstName + " " + cl.LastName)},
		{"Cédula", cl.ID},
		{"Edad", age},
		{"Teléfono", cl.Phone},
		{"Materia", c.Subject},
		{"Servicio", c.Service},
		{"Fecha", c.Date.In(s.loc).Format("02/01/2006 15:04")},
	}
	for _, f := range fields {
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(40, 7, tr(f[0]+":"), "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 11)
		pdf.CellFormat(0, 7, tr(f[1]), "", 1, "L", false, 0, "")
	}

	if notes := plainText(c.Notes); notes != "" {
		pdf.Ln(4)
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(0, 7, tr("Detalle de la consulta"), "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 11)
		pdf.MultiCell(0, 6, tr(notes), "", "L", false)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("reporting: render attention sheet: %w", err)
	}
	return nil
}
