package sqlite

import (
	"strings"
)

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
