package httpapi

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"

	"examseat/internal/domain"

	"github.com/xuri/excelize/v2"
)

// RosterExportHeader 导出表头
var RosterExportHeader = []string{
	"Room",
	"Capacity",
	"Count",
	"Roll Numbers",
}

// GenerateRosterExport 生成科目名单 Excel：一行一个考场，外加逐个考生的明细表
func GenerateRosterExport(ds *domain.SubjectDataset) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Rooms"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	// 删除默认的 Sheet1
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("failed to delete default sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	if err := writeHeader(f, sheetName, RosterExportHeader, headerStyle); err != nil {
		return nil, err
	}
	columnWidths := []float64{15, 10, 10, 80}
	for i, width := range columnWidths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return nil, fmt.Errorf("failed to convert column number: %w", err)
		}
		if err := f.SetColWidth(sheetName, col, col, width); err != nil {
			return nil, fmt.Errorf("failed to set column width: %w", err)
		}
	}

	for i, rec := range ds.Records {
		row := []any{rec.RoomID, rec.Capacity, rec.OccupantCount, strings.Join(rec.Occupants, ", ")}
		cell, err := excelize.CoordinatesToCellName(1, i+2) // 第1行是表头
		if err != nil {
			return nil, fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	// 明细表：Room / Seat / Roll Number
	detail := "Seats"
	if _, err := f.NewSheet(detail); err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	if err := writeHeader(f, detail, []string{"Room", "Seat", "Roll Number"}, headerStyle); err != nil {
		return nil, err
	}
	rowNo := 2
	for _, rec := range ds.Records {
		for seat, id := range rec.Occupants {
			row := []any{rec.RoomID, seat + 1, id}
			cell, _ := excelize.CoordinatesToCellName(1, rowNo)
			if err := f.SetSheetRow(detail, cell, &row); err != nil {
				return nil, fmt.Errorf("failed to write row %d: %w", rowNo, err)
			}
			rowNo++
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write excel: %w", err)
	}
	return buf.Bytes(), nil
}

func writeHeader(f *excelize.File, sheet string, headers []string, style int) error {
	for col, header := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(sheet, cell, cell, style); err != nil {
			return fmt.Errorf("failed to set header style: %w", err)
		}
	}
	return nil
}

// GenerateRosterCSV 导出 CSV：Room,Capacity,Count,Roll Numbers
func GenerateRosterCSV(ds *domain.SubjectDataset) ([]byte, error) {
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	if err := cw.Write(RosterExportHeader); err != nil {
		return nil, err
	}
	for _, rec := range ds.Records {
		if err := cw.Write([]string{
			rec.RoomID,
			strconv.Itoa(rec.Capacity),
			strconv.Itoa(rec.OccupantCount),
			strings.Join(rec.Occupants, ", "),
		}); err != nil {
			return nil, err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
