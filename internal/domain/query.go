package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// query is the JSON form the Appwrite API expects in queries[]
type query struct {
	Method    string `json:"method"`
	Attribute string `json:"attribute,omitempty"`
	Values    []any  `json:"values,omitempty"`
}

func (q query) String() string {
	b, _ := json.Marshal(q)
	return string(b)
}

// Equal matches documents whose attribute equals any of the values
func Equal(attribute string, values ...any) string {
	return query{Method: "equal", Attribute: attribute, Values: values}.String()
}

// NotEqual matches documents whose attribute differs from the value
func NotEqual(attribute string, value any) string {
	return query{Method: "notEqual", Attribute: attribute, Values: []any{value}}.String()
}

// Search runs a full-text search on an indexed attribute
func Search(attribute, term string) string {
	return query{Method: "search", Attribute: attribute, Values: []any{term}}.String()
}

func OrderAsc(attribute string) string {
	return query{Method: "orderAsc", Attribute: attribute}.String()
}

func OrderDesc(attribute string) string {
	return query{Method: "orderDesc", Attribute: attribute}.String()
}

func Limit(n int) string {
	return query{Method: "limit", Values: []any{n}}.String()
}

func Offset(n int) string {
	return query{Method: "offset", Values: []any{n}}.String()
}

// CursorAfter pages past the given document ID
func CursorAfter(documentID string) string {
	return query{Method: "cursorAfter", Values: []any{documentID}}.String()
}

// ParseFilter converts a short filter expression into a query string.
// Supported forms:
//
//	attr=value     Equal
//	attr!=value    NotEqual
//	attr~term      Search
//	limit:N        Limit
//	offset:N       Offset
//	order:attr     OrderAsc (prefix attr with "-" for OrderDesc)
//	after:ID       CursorAfter
//
// Input that already looks like a JSON query is returned unchanged.
func ParseFilter(expr string) (string, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return "", fmt.Errorf("empty filter")
	}
	if strings.HasPrefix(expr, "{") {
		var q query
		if err := json.Unmarshal([]byte(expr), &q); err != nil || q.Method == "" {
			return "", fmt.Errorf("invalid query %q", expr)
		}
		return expr, nil
	}

	if name, arg, ok := strings.Cut(expr, ":"); ok && !strings.ContainsAny(name, "=!~") {
		switch name {
		case "limit", "offset":
			n, err := strconv.Atoi(arg)
			if err != nil || n < 0 {
				return "", fmt.Errorf("invalid %s %q", name, arg)
			}
			if name == "limit" {
				return Limit(n), nil
			}
			return Offset(n), nil
		case "order":
			attr, desc := strings.CutPrefix(arg, "-")
			if attr == "" {
				return "", fmt.Errorf("order needs an attribute in %q", expr)
			}
			if desc {
				return OrderDesc(attr), nil
			}
			return OrderAsc(attr), nil
		case "after":
			if arg == "" {
				return "", fmt.Errorf("after needs a document ID in %q", expr)
			}
			return CursorAfter(arg), nil
		}
	}

	for _, op := range []string{"!=", "=", "~"} {
		attr, value, ok := strings.Cut(expr, op)
		if !ok {
			continue
		}
		if attr = strings.TrimSpace(attr); attr == "" {
			return "", fmt.Errorf("missing attribute in %q", expr)
		}
		switch op {
		case "!=":
			return NotEqual(attr, value), nil
		case "=":
			return Equal(attr, value), nil
		default:
			return Search(attr, value), nil
		}
	}
	return "", fmt.Errorf("unrecognised filter %q", expr)
}

// ParseFilters applies ParseFilter to each expression
func ParseFilters(exprs []string) ([]string, error) {
	queries := make([]string, 0, len(exprs))
	for _, e := range exprs {
		q, err := ParseFilter(e)
		if err != nil {
			return nil, err
		}
		queries = append(queries, q)
	}
	return queries, nil
}
