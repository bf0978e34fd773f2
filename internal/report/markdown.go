package report

import (
	"context"
	"fmt"
	"strings"
)

// MarkdownGenerator renders the procurement request table offline.
type MarkdownGenerator struct{}

// Generate implements Generator.
func (MarkdownGenerator) Generate(_ context.Context, req Request) (Document, error) {
	if req.Empty() {
		return noItems(), nil
	}
	sym := req.CurrencySymbol
	var b strings.Builder
	fmt.Fprintf(&b, "# 化學品採購申請單 - %s\n\n", req.OrgName)
	fmt.Fprintf(&b, "**申請日期:** %s\n\n", req.RequestedAt.Format("2006-01-02"))
	b.WriteString("請批准以下化學品採購需求，這些項目目前庫存低於安全水位：\n\n")
	b.WriteString("| 化學品名稱 (Chemical) | 功能性 (Function) | 包裝規格 (Packaging) | 現場使用狀況 (In Use) | 倉庫庫存 (Stock) | 安全庫存 (Safety) | 建議採購 (Order Qty) | 預估費用 (Cost) |\n")
	b.WriteString("| :--- | :--- | :--- | :---: | :---: | :---: | :---: | :---: |\n")
	for _, it := range req.Items {
		fmt.Fprintf(&b, "| %s | %s | %s/%s | **%d** (%s) | %s %s | %d %s | **%d** | %s |\n",
			cell(it.Name), cell(it.Functionality), cell(it.PackageSize), cell(it.Unit),
			it.UnitsInUseCount, it.UnitsInUseDetail,
			it.CurrentStock.String(), cell(it.Unit),
			it.MinLevel, cell(it.Unit),
			it.SuggestedQty,
			money(sym, it.LineCost()))
	}
	fmt.Fprintf(&b, "\n**總預估費用:** %s\n", money(sym, req.TotalCost))
	return Document{Format: FormatMarkdown, ContentType: contentTypeMarkdown, Body: []byte(b.String())}, nil
}

// cell keeps free text from breaking the table.
func cell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}
