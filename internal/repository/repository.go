package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"

	"examseat/common/database"
)

// ErrNotFound 行不存在（数据集/记录/考场），由 service 层映射为领域错误
var ErrNotFound = errors.New("not found")

// querier 由 *sql.DB 与 *sql.Tx 共同实现
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

var pgPlaceholder = regexp.MustCompile(`\$\d+`)

// rebind 把 $n 占位符转换为目标驱动的形式
// 查询中每个占位符按顺序只出现一次，sqlite 可直接使用 ?
func rebind(driver, query string) string {
	if driver != database.DriverSQLite {
		return query
	}
	return pgPlaceholder.ReplaceAllString(query, "?")
}
