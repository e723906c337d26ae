package chat

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// DefaultRowLimit caps result sets when the generated SQL has no LIMIT.
const DefaultRowLimit = 100

// forbidden matches statement keywords that have no place in a read-only
// query, as whole words anywhere in the statement.
var forbidden = regexp.MustCompile(`(?i)\b(INSERT|UPDATE|DELETE|DROP|ALTER|CREATE|REPLACE|TRUNCATE|ATTACH|DETACH|PRAGMA|VACUUM|REINDEX)\b`)

var limitClause = regexp.MustCompile(`(?i)\bLIMIT\s+\d+`)

// StripFences removes markdown code fences a model may wrap around SQL.
func StripFences(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```sql")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}

// GuardSQL validates a generated statement and returns it with a row limit
// applied. Only a single SELECT (optionally WITH-prefixed) passes.
func GuardSQL(raw string) (string, error) {
	query := StripFences(raw)
	query = strings.TrimSuffix(strings.TrimSpace(query), ";")
	if query == "" {
		return "", eris.New("chat: empty query")
	}
	if strings.Contains(query, ";") {
		return "", eris.New("chat: multiple statements are not allowed")
	}

	upper := strings.ToUpper(query)
	if !strings.HasPrefix(upper, "SELECT") && !strings.HasPrefix(upper, "WITH") {
		return "", eris.Errorf("chat: only SELECT queries are allowed, got %q", firstWord(query))
	}
	if m := forbidden.FindString(query); m != "" {
		return "", eris.Errorf("chat: forbidden keyword %s", strings.ToUpper(m))
	}

	if !limitClause.MatchString(query) {
		query += " LIMIT " + strconv.Itoa(DefaultRowLimit)
	}
	return query, nil
}

func firstWord(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
