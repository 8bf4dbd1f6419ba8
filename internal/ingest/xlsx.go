package ingest

import (
	"fmt"
	"io"

	"examseat/internal/domain"

	"github.com/xuri/excelize/v2"
)

// ParseXLSX 读取第一个工作表
func ParseXLSX(r io.Reader) ([]domain.StudentRecord, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, domain.NewError(domain.ErrValidation, fmt.Sprintf("failed to parse Excel file: %v", err)).Wrap(err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, domain.NewError(domain.ErrValidation, "Excel file has no sheets")
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, domain.NewError(domain.ErrValidation, fmt.Sprintf("failed to read rows: %v", err)).Wrap(err)
	}
	// GetRows 保留空行，下标即行号
	return fromRows(rows, nil)
}
