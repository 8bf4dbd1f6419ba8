package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"examseat/internal/domain"
)

// ParseCSV 解析逗号分隔的名单；列数不齐的行按已有列处理
// encoding/csv 跳过空行，行号取自 FieldPos
func ParseCSV(r io.Reader) ([]domain.StudentRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var (
		rows  [][]string
		lines []int
	)
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, domain.NewError(domain.ErrValidation, fmt.Sprintf("malformed csv: %v", err)).Wrap(err)
		}
		line, _ := cr.FieldPos(0)
		rows = append(rows, rec)
		lines = append(lines, line)
	}
	return fromRows(rows, lines)
}
