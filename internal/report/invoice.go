// Package report renders HR documents.
package report

import (
	"fmt"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/garyjia/claim-lifecycle/internal/application/port"
	"github.com/garyjia/claim-lifecycle/internal/domain/entity"
)

const (
	InvoiceSheet       = "Monthly Invoice"
	InvoiceContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var invoiceHeaders = []interface{}{"Claim #", "Submitter", "Hours", "Amount"}

// InvoiceFileName is the download name for a month's invoice
func InvoiceFileName(year, month int) string {
	return fmt.Sprintf("Invoice_%d_%d.xlsx", year, month)
}

// InvoiceRenderer writes settled claims to an xlsx workbook, one row per claim and a total row
type InvoiceRenderer struct {
	logger *zap.Logger
}

// NewInvoiceRenderer creates a new invoice renderer
func NewInvoiceRenderer(logger *zap.Logger) *InvoiceRenderer {
	return &InvoiceRenderer{logger: logger}
}

func (r *InvoiceRenderer) Render(claims []*entity.Claim, submitters map[int64]*entity.Submitter, year, month int) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), InvoiceSheet); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}
	if err := f.SetSheetRow(InvoiceSheet, "A1", &invoiceHeaders); err != nil {
		return nil, fmt.Errorf("failed to write headers: %w", err)
	}

	var totalHours float64
	var totalCents int64
	for i, c := range claims {
		name := fmt.Sprintf("Submitter %d", c.SubmitterID)
		if s, ok := submitters[c.SubmitterID]; ok && s != nil {
			name = s.Name
		}

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		row := []interface{}{c.ClaimNumber, name, c.TotalHours, centsToAmount(c.TotalAmountCents)}
		if err := f.SetSheetRow(InvoiceSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write claim %s: %w", c.ClaimNumber, err)
		}
		totalHours += c.TotalHours
		totalCents += c.TotalAmountCents
	}

	last := len(claims) + 2
	totalCell, err := excelize.CoordinatesToCellName(1, last)
	if err != nil {
		return nil, err
	}
	totalRow := []interface{}{"Total", "", entity.RoundHours(totalHours), centsToAmount(totalCents)}
	if err := f.SetSheetRow(InvoiceSheet, totalCell, &totalRow); err != nil {
		return nil, fmt.Errorf("failed to write total: %w", err)
	}

	if err := r.format(f, last); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}

	r.logger.Info("Rendered monthly invoice",
		zap.Int("year", year),
		zap.Int("month", month),
		zap.Int("claims", len(claims)),
		zap.Int64("total_amount_cents", totalCents))
	return buf.Bytes(), nil
}

func (r *InvoiceRenderer) format(f *excelize.File, lastRow int) error {
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create style: %w", err)
	}
	money, err := f.NewStyle(&excelize.Style{NumFmt: 2})
	if err != nil {
		return fmt.Errorf("failed to create style: %w", err)
	}

	if err := f.SetCellStyle(InvoiceSheet, "A1", "D1", bold); err != nil {
		return err
	}
	if err := f.SetCellStyle(InvoiceSheet, fmt.Sprintf("A%d", lastRow), fmt.Sprintf("D%d", lastRow), bold); err != nil {
		return err
	}
	if err := f.SetCellStyle(InvoiceSheet, "C2", fmt.Sprintf("D%d", lastRow), money); err != nil {
		return err
	}

	for col, width := range map[string]float64{"A": 24, "B": 28, "C": 10, "D": 14} {
		if err := f.SetColWidth(InvoiceSheet, col, col, width); err != nil {
			r.logger.Warn("Failed to set column width", zap.String("column", col), zap.Error(err))
		}
	}
	return nil
}

func centsToAmount(cents int64) float64 {
	return float64(cents) / 100
}

// Verify interface compliance
var _ port.InvoiceRenderer = (*InvoiceRenderer)(nil)
