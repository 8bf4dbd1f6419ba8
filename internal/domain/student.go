package domain

// Accepted identifier column names in uploaded rosters.
const (
	FieldRollNo      = "RollNo"
	FieldRollNoSnake = "roll_no"
)

// StudentRecord 上传名单中的一行
// Identifier 是唯一被分配算法使用的字段；Fields 原样透传
type StudentRecord struct {
	Identifier string            `json:"identifier"`
	Fields     map[string]string `json:"fields,omitempty"`
	Row        int               `json:"row,omitempty"` // 源文件中的行号（从 1 开始，含表头）
}

// IdentifierFromFields returns the roll number under either accepted field name,
// preferring roll_no when both are present.
func IdentifierFromFields(fields map[string]string) (string, bool) {
	if v := fields[FieldRollNoSnake]; v != "" {
		return v, true
	}
	if v := fields[FieldRollNo]; v != "" {
		return v, true
	}
	return "", false
}
