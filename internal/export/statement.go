package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"buildops/internal/service"

	"github.com/xuri/excelize/v2"
)

const statementSheet = "Statement"

var statementHeaders = []string{"Invoice #", "Client", "Booking Date", "Services", "Created", "Status", "Paid At", "Amount"}

// StatementWorkbook renders a billing statement: title, header row, one row
// per payment and a totals block. The caller closes the file.
func StatementWorkbook(st service.Statement, loc *time.Location) (*excelize.File, error) {
	if loc == nil {
		loc = time.UTC
	}

	f := excelize.NewFile()
	index, err := f.NewSheet(statementSheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("error creating sheet: %w", err)
	}
	f.SetActiveSheet(index)
	_ = f.DeleteSheet("Sheet1")

	// Заголовок отчёта
	_ = f.SetCellValue(statementSheet, "A1", statementTitle(st))
	_ = f.MergeCell(statementSheet, "A1", "H1")
	titleStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	_ = f.SetCellStyle(statementSheet, "A1", "A1", titleStyle)
	_ = f.SetCellValue(statementSheet, "A2", "Generated: "+st.GeneratedAt.In(loc).Format("2006-01-02 15:04"))

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	for i, header := range statementHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 4)
		_ = f.SetCellValue(statementSheet, cell, header)
		_ = f.SetCellStyle(statementSheet, cell, cell, headerStyle)
	}

	moneyStyle, _ := f.NewStyle(&excelize.Style{NumFmt: 4})
	unpaidStyle, _ := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#FCE4D6"}, Pattern: 1},
	})

	row := 5
	for _, r := range st.Rows {
		paidAt := ""
		if r.PaidAt != nil {
			paidAt = r.PaidAt.In(loc).Format("2006-01-02")
		}
		values := []interface{}{
			r.ID,
			r.ClientName,
			r.BookingDate.String(),
			r.ServiceCount,
			r.CreatedAt.In(loc).Format("2006-01-02"),
			r.Status,
			paidAt,
			r.Amount.InexactFloat64(),
		}
		start, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(statementSheet, start, &values); err != nil {
			f.Close()
			return nil, fmt.Errorf("error writing row %d: %w", row, err)
		}
		amountCell, _ := excelize.CoordinatesToCellName(len(values), row)
		_ = f.SetCellStyle(statementSheet, amountCell, amountCell, moneyStyle)
		if !r.IsPaid() {
			statusCell, _ := excelize.CoordinatesToCellName(6, row)
			_ = f.SetCellStyle(statementSheet, statusCell, statusCell, unpaidStyle)
		}
		row++
	}

	row++
	totalStyle, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}, NumFmt: 4})
	for _, total := range []struct {
		label string
		value float64
	}{
		{"Total", st.Totals.Total.InexactFloat64()},
		{"Paid", st.Totals.Paid.InexactFloat64()},
		{"Unpaid", st.Totals.Unpaid.InexactFloat64()},
	} {
		labelCell, _ := excelize.CoordinatesToCellName(7, row)
		valueCell, _ := excelize.CoordinatesToCellName(8, row)
		_ = f.SetCellValue(statementSheet, labelCell, total.label)
		_ = f.SetCellValue(statementSheet, valueCell, total.value)
		_ = f.SetCellStyle(statementSheet, labelCell, valueCell, totalStyle)
		row++
	}

	_ = f.SetColWidth(statementSheet, "A", "A", 16)
	_ = f.SetColWidth(statementSheet, "B", "B", 25)
	_ = f.SetColWidth(statementSheet, "C", "H", 14)
	return f, nil
}

func statementTitle(st service.Statement) string {
	title := "Billing Statement"
	if st.ClientName != "" {
		title += ": " + st.ClientName
	}
	if st.Filter.StartDate != "" && st.Filter.EndDate != "" {
		title += fmt.Sprintf(" (%s - %s)", st.Filter.StartDate, st.Filter.EndDate)
	}
	return title
}

// WriteStatement streams the workbook to w.
func WriteStatement(w io.Writer, st service.Statement, loc *time.Location) error {
	f, err := StatementWorkbook(st, loc)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Write(w)
}

// SaveStatement writes the workbook under dir and returns its path.
func SaveStatement(dir string, st service.Statement, loc *time.Location) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %w", err)
	}

	f, err := StatementWorkbook(st, loc)
	if err != nil {
		return "", err
	}
	defer f.Close()

	filePath := filepath.Join(dir, FileName(st))
	if err := f.SaveAs(filePath); err != nil {
		return "", fmt.Errorf("error saving file: %w", err)
	}
	return filePath, nil
}

// FileName is the download name for a statement.
func FileName(st service.Statement) string {
	name := "statement"
	if st.Filter.ClientID != 0 {
		name += fmt.Sprintf("_client_%d", st.Filter.ClientID)
	}
	if st.Filter.StartDate != "" && st.Filter.EndDate != "" {
		name += fmt.Sprintf("_%s_to_%s", st.Filter.StartDate, st.Filter.EndDate)
	}
	return name + "_" + st.GeneratedAt.Format("20060102_150405") + ".xlsx"
}
