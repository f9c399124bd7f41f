package oceanbase

import (
	"strings"
)

// maxLimit stands in for "no limit", since MySQL has no OFFSET without LIMIT.
const maxLimit = uint64(18446744073709551615)

// buildWhereClause builds a WHERE clause.
func buildWhereClause(name string) (string, []interface{}) {
	conditions := []string{}
	args := []interface{}{}

	if name != "" {
		conditions = append(conditions, "name = ?")
		args = append(args, name)
	}

	if len(conditions) == 0 {
		return "", args
	}

	return "WHERE " + strings.Join(conditions, " AND "), args
}

// buildPageClause returns a LIMIT/OFFSET clause with its arguments.
func buildPageClause(limit, offset int) (string, []interface{}) {
	switch {
	case limit > 0:
		return "LIMIT ? OFFSET ?", []interface{}{limit, offset}
	case offset > 0:
		return "LIMIT ? OFFSET ?", []interface{}{maxLimit, offset}
	default:
		return "", nil
	}
}
