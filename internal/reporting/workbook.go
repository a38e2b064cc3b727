package reporting

import (
	"context"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const caseSheet = "Trabajo Social"

var caseHeader = []any{
	"Número de proceso",
	"Fecha de ingreso",
	"Estado",
	"Código de consulta",
	"Materia",
	"Cédula",
	"Nombres",
	"Apellidos",
	"Teléfono",
	"Solicitudes del usuario",
	"Episodios de violencia",
	"Discapacidad",
	"Porcentaje",
	"Observaciones",
}

// SocialWorkWorkbook writes an .xlsx listing the social-work cases entered
// in r, one row per case.
func (s *Service) SocialWorkWorkbook(ctx context.Context, r TimeRange, w io.Writer) error {
	if !r.valid() {
		return ErrInvalidRequest
	}
	rows, err := s.caseRows(ctx, r)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", caseSheet); err != nil {
		return fmt.Errorf("reporting: sheet: %w", err)
	}
	if err := f.SetSheetRow(caseSheet, "A1", &caseHeader); err != nil {
		return fmt.Errorf("reporting: header: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("reporting: style: %w", err)
	}
	last, err := excelize.ColumnNumberToName(len(caseHeader))
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(caseSheet, "A1", last+"1", bold); err != nil {
		return fmt.Errorf("reporting: style: %w", err)
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := []any{
			row.ProcessNumber,
			row.EntryDate.In(s.loc).Format("2006-01-02 15:04"),
			row.Status,
			row.Consultation,
			row.Subject,
			row.ClientID,
			row.FirstName,
			row.LastName,
			row.Phone,
			row.UserRequests,
			row.Violence,
			row.Disability,
			row.DisabilityPct,
			row.Observations,
		}
		if err := f.SetSheetRow(caseSheet, cell, &values); err != nil {
			return fmt.Errorf("reporting: row %d: %w", i+2, err)
		}
	}
	if len(rows) > 0 {
		if err := f.AutoFilter(caseSheet, fmt.Sprintf("A1:%s%d", last, len(rows)+1), nil); err != nil {
			return fmt.Errorf("reporting: filter: %w", err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("reporting: write workbook: %w", err)
	}
	return nil
}
