package interfaces

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	ledger "flatpay/internal/ledger/domain"
)

type statementLine struct {
	Resource string
	Counter  int64
	Tariff   decimal.Decimal
}

func statementLines(r ledger.Readings) []statementLine {
	return []statementLine{
		{Resource: "Electricity", Counter: r.Electricity, Tariff: ledger.TariffElectricity},
		{Resource: "Cold water", Counter: r.ColdWater, Tariff: ledger.TariffColdWater},
		{Resource: "Hot water", Counter: r.HotWater, Tariff: ledger.TariffHotWater},
		{Resource: "Gas", Counter: r.Gas, Tariff: ledger.TariffGas},
	}
}

// BuildDebtStatementPDF renders a minimal PDF debt statement for one account.
func BuildDebtStatementPDF(account *ledger.Account, generatedAt time.Time) ([]byte, error) {
	if account == nil {
		return nil, fmt.Errorf("statement export: nil account")
	}
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Utility Debt Statement")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Passport: %s", account.Passport))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Generated: %s", generatedAt.Format(time.RFC3339)))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Current debt: %s", account.CurrentDebt.StringFixed(2)))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Staged next-period debt: %s", account.NextPeriodDebt.StringFixed(2)))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Last payment: %s", account.LastPayment.StringFixed(2)))
	pdf.Ln(8)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(45, 6, "Resource", "1", 0, "C", false, 0, "")
	pdf.CellFormat(35, 6, "Counter", "1", 0, "C", false, 0, "")
	pdf.CellFormat(35, 6, "Tariff", "1", 0, "C", false, 0, "")
	pdf.CellFormat(40, 6, "Amount", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, line := range statementLines(account.Readings) {
		amount := decimal.NewFromInt(line.Counter).Mul(line.Tariff).Round(2)
		pdf.CellFormat(45, 6, line.Resource, "1", 0, "L", false, 0, "")
		pdf.CellFormat(35, 6, fmt.Sprintf("%d", line.Counter), "1", 0, "R", false, 0, "")
		pdf.CellFormat(35, 6, line.Tariff.String(), "1", 0, "R", false, 0, "")
		pdf.CellFormat(40, 6, amount.StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildDebtStatementXLSX renders a minimal XLSX debt statement for one account.
func BuildDebtStatementXLSX(account *ledger.Account, generatedAt time.Time) ([]byte, error) {
	if account == nil {
		return nil, fmt.Errorf("statement export: nil account")
	}
	f := excelize.NewFile()
	summarySheet := "summary"
	readingsSheet := "readings"
	f.SetSheetName("Sheet1", summarySheet)
	if _, err := f.NewSheet(readingsSheet); err != nil {
		return nil, err
	}

	_ = f.SetCellValue(summarySheet, "A1", "Utility Debt Statement")
	_ = f.SetCellValue(summarySheet, "A3", "Passport")
	_ = f.SetCellValue(summarySheet, "B3", account.Passport)
	_ = f.SetCellValue(summarySheet, "A4", "Generated")
	_ = f.SetCellValue(summarySheet, "B4", generatedAt.Format(time.RFC3339))
	_ = f.SetCellValue(summarySheet, "A5", "Current debt")
	_ = f.SetCellValue(summarySheet, "B5", account.CurrentDebt.StringFixed(2))
	_ = f.SetCellValue(summarySheet, "A6", "Staged next-period debt")
	_ = f.SetCellValue(summarySheet, "B6", account.NextPeriodDebt.StringFixed(2))
	_ = f.SetCellValue(summarySheet, "A7", "Last payment")
	_ = f.SetCellValue(summarySheet, "B7", account.LastPayment.StringFixed(2))

	_ = f.SetCellValue(readingsSheet, "A1", "Resource")
	_ = f.SetCellValue(readingsSheet, "B1", "Counter")
	_ = f.SetCellValue(readingsSheet, "C1", "Tariff")
	_ = f.SetCellValue(readingsSheet, "D1", "Amount")
	for i, line := range statementLines(account.Readings) {
		row := i + 2
		amount := decimal.NewFromInt(line.Counter).Mul(line.Tariff).Round(2)
		_ = f.SetCellValue(readingsSheet, fmt.Sprintf("A%d", row), line.Resource)
		_ = f.SetCellValue(readingsSheet, fmt.Sprintf("B%d", row), line.Counter)
		_ = f.SetCellValue(readingsSheet, fmt.Sprintf("C%d", row), line.Tariff.String())
		_ = f.SetCellValue(readingsSheet, fmt.Sprintf("D%d", row), amount.StringFixed(2))
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
