package treatment

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

// ErrNotSupported is returned by operations the backend does not provide.
var ErrNotSupported = errors.New("operation not supported by the backend")

// Placeholder is the error of an operation that exists in the interface but
// has no backend. It matches ErrNotSupported.
type Placeholder struct {
	Operation string
}

func (p *Placeholder) Error() string {
	return fmt.Sprintf("treatment %s: %v", p.Operation, ErrNotSupported)
}

func (p *Placeholder) Is(target error) bool { return target == ErrNotSupported }

// UserMessage is shown in place of a result.
func (p *Placeholder) UserMessage() string {
	return "This feature is not available yet."
}

// Interaction is a known interaction between two medications.
type Interaction struct {
	First, Second string
	Severity      string
	Description   string
}

// DosageCheck is the verdict on one prescribed dosage.
type DosageCheck struct {
	Valid   bool
	Message string
}

// Service holds the treatment operations outside CRUD.
type Service struct {
	logger zerolog.Logger
}

func NewService(logger zerolog.Logger) *Service {
	return &Service{logger: logger.With().Str("component", "treatment").Logger()}
}

// CheckInteractions is not provided by the backend.
func (s *Service) CheckInteractions(ctx context.Context, medications []string) ([]Interaction, error) {
	return nil, s.placeholder("check_interactions")
}

// ValidateDosage is not provided by the backend.
func (s *Service) ValidateDosage(ctx context.Context, medication, dosage string) (DosageCheck, error) {
	return DosageCheck{}, s.placeholder("validate_dosage")
}

// ExportPDF is not provided by the backend.
func (s *Service) ExportPDF(ctx context.Context, consultationID string) ([]byte, error) {
	return nil, s.placeholder("export_pdf")
}

func (s *Service) placeholder(op string) error {
	s.logger.Warn().Str("op", op).Msg("operation not supported")
	return &Placeholder{Operation: op}
}

const sheetName = "Treatments"

var exportHeader = []string{"Medication", "Dosage", "Frequency", "Route", "Start date", "End date", "Instructions"}

var columnWidths = []float64{25, 15, 15, 12, 14, 14, 40}

// ExportExcel writes items as an xlsx workbook to w.
func (s *Service) ExportExcel(w io.Writer, items []Treatment) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("delete default sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#FCE4EC"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	for col, header := range exportHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return fmt.Errorf("header cell: %w", err)
		}
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			return fmt.Errorf("set header %s: %w", cell, err)
		}
		if err := f.SetCellStyle(sheetName, cell, cell, headerStyle); err != nil {
			return fmt.Errorf("style header %s: %w", cell, err)
		}
		name, err := excelize.ColumnNumberToName(col + 1)
		if err != nil {
			return fmt.Errorf("column name: %w", err)
		}
		if err := f.SetColWidth(sheetName, name, name, columnWidths[col]); err != nil {
			return fmt.Errorf("column width: %w", err)
		}
	}

	for i, t := range items {
		end := ""
		if t.EndDate != nil {
			end = t.EndDate.Format("2006-01-02")
		}
		row := []any{t.Medication, t.Dosage, t.Frequency, t.Route, t.StartDate.Format("2006-01-02"), end, t.Instructions}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("row cell: %w", err)
		}
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	s.logger.Info().Int("rows", len(items)).Msg("treatments exported")
	return nil
}
