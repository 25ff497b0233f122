// Package migration 内嵌各数据库方言的建表脚本，并在单个事务中执行。
package migration

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
)

//go:embed sql
var scripts embed.FS

// 支持的迁移动作
const (
	ActionUp   = "up"
	ActionDown = "down"
)

var (
	ErrUnsupportedDialect = errors.New("unsupported dialect, expected postgres or mysql")
	ErrUnsupportedAction  = errors.New("unsupported action, expected up or down")
)

// Statements 返回指定方言和动作的 SQL 语句
func Statements(dialect, action string) ([]string, error) {
	switch dialect {
	case "postgres", "mysql":
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDialect, dialect)
	}
	if action != ActionUp && action != ActionDown {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedAction, action)
	}

	content, err := scripts.ReadFile(fmt.Sprintf("sql/%s/001_initial_schema.%s.sql", dialect, action))
	if err != nil {
		return nil, fmt.Errorf("failed to read migration: %w", err)
	}
	return splitStatements(string(content)), nil
}

// Run 在一个事务中执行迁移，返回执行的语句数
//
// MySQL 的 DDL 会隐式提交，事务只能保证语句按顺序执行、出错即停止。
func Run(ctx context.Context, db *sql.DB, dialect, action string) (int, error) {
	stmts, err := Statements(dialect, action)
	if err != nil {
		return 0, err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}

	for i, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			_ = tx.Rollback()
			return i, fmt.Errorf("statement %d failed: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return len(stmts), fmt.Errorf("failed to commit migration: %w", err)
	}
	return len(stmts), nil
}

// splitStatements 去掉整行注释后按分号分割（忽略字符串中的分号）
func splitStatements(script string) []string {
	var lines []string
	for _, line := range strings.Split(script, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		lines = append(lines, line)
	}
	script = strings.Join(lines, "\n")

	var statements []string
	var current strings.Builder
	var inString bool
	var stringChar rune

	flush := func() {
		if stmt := strings.TrimSpace(current.String()); stmt != "" {
			statements = append(statements, stmt)
		}
		current.Reset()
	}

	for _, r := range script {
		switch {
		case r == '\'' || r == '"' || r == '`':
			if !inString {
				inString = true
				stringChar = r
			} else if r == stringChar {
				inString = false
			}
			current.WriteRune(r)
		case r == ';' && !inString:
			flush()
		default:
			current.WriteRune(r)
		}
	}
	flush()

	return statements
}
