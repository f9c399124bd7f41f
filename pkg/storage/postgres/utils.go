package postgres

import (
	"fmt"
	"strings"
)

// buildWhereClause builds a WHERE clause starting from $1.
func buildWhereClause(name string) (string, []interface{}) {
	return buildWhereClauseWithOffset(name, 1)
}

// buildWhereClauseWithOffset builds a WHERE clause starting from a specific parameter index.
func buildWhereClauseWithOffset(name string, startIndex int) (string, []interface{}) {
	conditions := []string{}
	args := []interface{}{}
	argIndex := startIndex

	if name != "" {
		conditions = append(conditions, fmt.Sprintf("name = $%d", argIndex))
		args = append(args, name)
	}

	if len(conditions) == 0 {
		return "", args
	}

	return "WHERE " + strings.Join(conditions, " AND "), args
}

// buildPageClause returns LIMIT/OFFSET placeholders numbered from next.
func buildPageClause(limit, offset, next int) (string, []interface{}) {
	var parts []string
	var args []interface{}
	if limit > 0 {
		parts = append(parts, fmt.Sprintf("LIMIT $%d", next))
		args = append(args, limit)
		next++
	}
	if offset > 0 {
		parts = append(parts, fmt.Sprintf("OFFSET $%d", next))
		args = append(args, offset)
	}
	return strings.Join(parts, " "), args
}
