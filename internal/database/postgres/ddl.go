package postgres

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"
	"github.com/joacominatel/vizql/internal/database"
)

// maxIdentifierLen is PostgreSQL's NAMEDATALEN-1; longer names are truncated
// silently by the server, so they are rejected here instead.
const maxIdentifierLen = 63

const defaultColumnType = "TEXT"

// BuildCreateTable renders a CREATE TABLE statement. Identifiers are quoted;
// column types are checked by validateType since they cannot be quoted.
func BuildCreateTable(schema, table string, columns []database.Column) (string, error) {
	table = strings.TrimSpace(table)
	if err := validateIdentifier("table name", table); err != nil {
		return "", err
	}
	if len(columns) == 0 {
		return "", &database.ValidationError{Field: "columns", Reason: "at least one column is required"}
	}

	seen := make(map[string]bool, len(columns))
	defs := make([]string, 0, len(columns))
	for i, col := range columns {
		name := strings.TrimSpace(col.Name)
		if err := validateIdentifier(fmt.Sprintf("column %d name", i+1), name); err != nil {
			return "", err
		}
		if seen[name] {
			return "", &database.ValidationError{Field: "column name", Value: name, Reason: "specified more than once"}
		}
		seen[name] = true

		typ := strings.TrimSpace(col.Type)
		if typ == "" {
			typ = defaultColumnType
		}
		if err := validateType(typ); err != nil {
			return "", err
		}
		defs = append(defs, pgx.Identifier{name}.Sanitize()+" "+typ)
	}

	return fmt.Sprintf("CREATE TABLE %s (%s)", qualify(schema, table), strings.Join(defs, ", ")), nil
}

func qualify(schema, table string) string {
	if schema == "" {
		return pgx.Identifier{table}.Sanitize()
	}
	return pgx.Identifier{schema, table}.Sanitize()
}

func validateIdentifier(field, name string) error {
	var reason string
	switch {
	case name == "":
		reason = "must not be empty"
	case len(name) > maxIdentifierLen:
		reason = fmt.Sprintf("exceeds %d bytes", maxIdentifierLen)
	case !utf8.ValidString(name):
		reason = "is not valid UTF-8"
	case strings.ContainsRune(name, 0):
		reason = "contains a NUL byte"
	default:
		return nil
	}
	return &database.ValidationError{Field: field, Value: name, Reason: reason}
}

// validateType accepts type expressions such as "INT", "VARCHAR(255)",
// "NUMERIC(10, 2)", "TEXT[]" or "SERIAL PRIMARY KEY". Quotes, operators,
// statement separators and top-level commas are refused.
func validateType(typ string) error {
	invalid := func(reason string) error {
		return &database.ValidationError{Field: "column type", Value: typ, Reason: reason}
	}

	if c := typ[0]; !isASCIILetter(rune(c)) {
		return invalid("must start with a letter")
	}

	depth := 0
	for _, r := range typ {
		switch {
		case isASCIILetter(r), r >= '0' && r <= '9', r == '_', r == ' ', r == '.', r == '[', r == ']':
		case r == '(':
			depth++
		case r == ')':
			depth--
			if depth < 0 {
				return invalid("has unbalanced parentheses")
			}
		case r == ',':
			if depth == 0 {
				return invalid("has a comma outside parentheses")
			}
		default:
			return invalid(fmt.Sprintf("contains disallowed character %q", r))
		}
	}
	if depth != 0 {
		return invalid("has unbalanced parentheses")
	}
	return nil
}

func isASCIILetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}
