package report

import (
	"bytes"
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"
)

const xlsxSheet = "Reorder"

var xlsxHeaders = []any{
	"Chemical", "Function", "Packaging", "In Use", "In Use Detail",
	"Stock", "Safety", "Order Qty", "Unit Cost", "Cost",
}

// XLSXGenerator renders the request as a single-sheet workbook.
type XLSXGenerator struct{}

// Generate implements Generator.
func (XLSXGenerator) Generate(_ context.Context, req Request) (Document, error) {
	if req.Empty() {
		return noItems(), nil
	}
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", xlsxSheet); err != nil {
		return Document{}, fmt.Errorf("rename sheet: %w", err)
	}
	title := fmt.Sprintf("%s (%s)", req.OrgName, req.RequestedAt.Format("2006-01-02"))
	if err := f.SetCellValue(xlsxSheet, "A1", title); err != nil {
		return Document{}, err
	}
	if err := f.SetSheetRow(xlsxSheet, "A2", &xlsxHeaders); err != nil {
		return Document{}, err
	}
	row := 3
	for _, it := range req.Items {
		values := []any{
			it.Name,
			it.Functionality,
			it.PackageSize + "/" + it.Unit,
			it.UnitsInUseCount,
			it.UnitsInUseDetail,
			it.CurrentStock.InexactFloat64(),
			it.MinLevel,
			it.SuggestedQty,
			it.UnitCost.InexactFloat64(),
			it.LineCost().InexactFloat64(),
		}
		if err := f.SetSheetRow(xlsxSheet, fmt.Sprintf("A%d", row), &values); err != nil {
			return Document{}, err
		}
		row++
	}
	if err := f.SetCellValue(xlsxSheet, fmt.Sprintf("I%d", row), "Total ("+req.CurrencySymbol+")"); err != nil {
		return Document{}, err
	}
	if err := f.SetCellValue(xlsxSheet, fmt.Sprintf("J%d", row), req.TotalCost.InexactFloat64()); err != nil {
		return Document{}, err
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return Document{}, fmt.Errorf("write workbook: %w", err)
	}
	return Document{Format: FormatXLSX, ContentType: contentTypeXLSX, Body: buf.Bytes()}, nil
}
