// Package export renders a user's investment history as a spreadsheet.
package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/holdwatch/holdwatch/internal/domain"
)

const sheetName = "History"

var headers = []string{"Investment", "Type", "Amount", "Value (USD)", "Recorded At"}

// Workbook builds an xlsx workbook with one row per snapshot.
func Workbook(snapshots []domain.Snapshot) (*excelize.File, error) {
	f := excelize.NewFile()
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("creating sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("removing default sheet: %w", err)
	}

	for col, h := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, fmt.Errorf("header cell: %w", err)
		}
		if err := f.SetCellValue(sheetName, cell, h); err != nil {
			return nil, fmt.Errorf("writing header: %w", err)
		}
	}

	for i, s := range snapshots {
		row := i + 2
		amount, _ := s.Amount.Float64()
		value, _ := s.Value.Float64()
		values := []any{
			s.InvestmentName,
			string(s.InvestmentType),
			amount,
			value,
			s.Timestamp.UTC().Format("2006-01-02 15:04:05"),
		}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				return nil, fmt.Errorf("data cell: %w", err)
			}
			if err := f.SetCellValue(sheetName, cell, v); err != nil {
				return nil, fmt.Errorf("writing row %d: %w", row, err)
			}
		}
	}

	return f, nil
}
