package deals

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const exportSheet = "Сделки"

var exportHeader = []string{
	"ID", "Дата", "Менеджер", "Услуга", "Заказчик", "Поставщик", "Этап", "Материал",
	"Ед. изм.", "Количество", "Закупка за ед.", "Закупка", "Продажа за ед.", "Продажа",
	"Доставка", "Доп. расходы", "Прибыль компании", "НДС, %", "НДС", "Итого",
	"Процент менеджера", "Прибыль менеджера", "ОССИГ",
}

// Export renders deals as an xlsx workbook. Money columns are written as
// exact decimal strings.
func Export(items []Deal) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}
	if err := writeRow(f, 1, exportHeader); err != nil {
		return nil, err
	}
	for r, d := range items {
		expenses := decimal.Zero
		for _, e := range d.ExtraExpenses {
			expenses = expenses.Add(e.Amount)
		}
		unit := ""
		if d.UnitMeasurement != nil {
			unit = *d.UnitMeasurement
		}
		values := []any{
			d.ID,
			d.CreatedAt.Format("2006-01-02"),
			d.UserID,
			d.ServiceID,
			d.CustomerID,
			d.ProviderID,
			d.StageID,
			d.MaterialID,
			unit,
			d.Quantity.String(),
			d.AmountPurchaseUnit.String(),
			d.AmountPurchase.String(),
			d.AmountSalesUnit.String(),
			d.AmountSales.String(),
			d.AmountDelivery.String(),
			expenses.String(),
			d.CompanyProfit.String(),
			d.VatPercent.String(),
			d.VatAmount.String(),
			d.TotalAmount.String(),
			d.ManagerPercent.String(),
			d.ManagerProfit.String(),
			d.OSSIG,
		}
		if err := writeRow(f, r+2, values); err != nil {
			return nil, err
		}
	}
	if err := layout(f); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}
	return buf.Bytes(), nil
}

func writeRow[T any](f *excelize.File, row int, values []T) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("export: row %d: %w", row, err)
	}
	if err := f.SetSheetRow(exportSheet, cell, &values); err != nil {
		return fmt.Errorf("export: row %d: %w", row, err)
	}
	return nil
}

func layout(f *excelize.File) error {
	if err := f.SetColWidth(exportSheet, "A", "H", 26); err != nil {
		return fmt.Errorf("export: column width: %w", err)
	}
	if err := f.SetColWidth(exportSheet, "I", "W", 16); err != nil {
		return fmt.Errorf("export: column width: %w", err)
	}
	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("export: header style: %w", err)
	}
	if err := f.SetRowStyle(exportSheet, 1, 1, style); err != nil {
		return fmt.Errorf("export: header style: %w", err)
	}
	return nil
}
