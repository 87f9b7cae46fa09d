package database

import (
	"fmt"
	"strings"
)

// ConstructDatabaseURL joins a server URL and a database name into a DSN.
// An empty name returns the base URL unchanged. sslmode=disable is appended
// when the URL does not choose a mode itself.
func ConstructDatabaseURL(baseURL, databaseName string) string {
	if databaseName == "" {
		return baseURL
	}

	base, query, hasQuery := strings.Cut(strings.TrimRight(baseURL, "/"), "?")
	if hasQuery {
		query = strings.TrimRight(query, "&")
	}

	if !strings.Contains(query, "sslmode=") {
		if query != "" {
			query += "&"
		}
		query += "sslmode=disable"
	}

	return fmt.Sprintf("%s/%s?%s", base, databaseName, query)
}
