// Package ingest reads uploaded student rosters (CSV or XLSX) into ordered StudentRecords.
package ingest

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"examseat/internal/domain"
)

// MaxUploadBytes 上传文件大小上限（10MB）
const MaxUploadBytes = 10 << 20

// Format 名单文件格式
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

var zipMagic = []byte("PK\x03\x04")

// DetectFormat 先看扩展名，再看文件头（xlsx 是 zip 包）
func DetectFormat(filename string, head []byte) Format {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xlsm":
		return FormatXLSX
	case ".csv", ".txt":
		return FormatCSV
	}
	if bytes.HasPrefix(head, zipMagic) {
		return FormatXLSX
	}
	return FormatCSV
}

// ReadStudents 读取整份名单，保持文件顺序；重复学号按位置保留
func ReadStudents(r io.Reader, filename string) ([]domain.StudentRecord, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxUploadBytes+1))
	if err != nil {
		return nil, domain.NewError(domain.ErrValidation, "failed to read roster").Wrap(err)
	}
	if len(data) > MaxUploadBytes {
		return nil, domain.NewError(domain.ErrValidation, fmt.Sprintf("roster exceeds %d bytes", MaxUploadBytes))
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, domain.NewError(domain.ErrValidation, "roster is empty")
	}

	switch DetectFormat(filename, data) {
	case FormatXLSX:
		return ParseXLSX(bytes.NewReader(data))
	default:
		return ParseCSV(bytes.NewReader(data))
	}
}

// fromRows 第一行为表头，其余为数据行；rowNo 与表格软件显示的行号一致
// lines[i] 为 rows[i] 在源文件中的行号（1 起）；为 nil 时 rows 与源文件逐行对应
func fromRows(rows [][]string, lines []int) ([]domain.StudentRecord, error) {
	if len(rows) == 0 {
		return nil, domain.NewError(domain.ErrValidation, "roster is empty")
	}

	header := make([]string, len(rows[0]))
	hasID := false
	for i, h := range rows[0] {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		header[i] = h
		if h == domain.FieldRollNo || h == domain.FieldRollNoSnake {
			hasID = true
		}
	}
	if !hasID {
		return nil, domain.NewError(domain.ErrValidation,
			fmt.Sprintf("roster header must contain %s or %s", domain.FieldRollNo, domain.FieldRollNoSnake))
	}

	students := make([]domain.StudentRecord, 0, len(rows)-1)
	for idx, row := range rows[1:] {
		rowNo := idx + 2
		if lines != nil {
			rowNo = lines[idx+1]
		}
		if blankRow(row) {
			continue
		}
		fields := make(map[string]string, len(header))
		for col, name := range header {
			if name == "" || col >= len(row) {
				continue
			}
			fields[name] = strings.TrimSpace(row[col])
		}
		id, ok := domain.IdentifierFromFields(fields)
		if !ok {
			return nil, domain.NewError(domain.ErrValidation, fmt.Sprintf("row %d has no roll number", rowNo))
		}
		students = append(students, domain.StudentRecord{Identifier: id, Fields: fields, Row: rowNo})
	}
	if len(students) == 0 {
		return nil, domain.NewError(domain.ErrValidation, "roster has no student rows")
	}
	return students, nil
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
