package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConstructDatabaseURL(t *testing.T) {
	tests := []struct {
		name     string
		baseURL  string
		dbName   string
		expected string
	}{
		{
			name:     "no database name returns base",
			baseURL:  "postgres://u:p@localhost:5432/app",
			dbName:   "",
			expected: "postgres://u:p@localhost:5432/app",
		},
		{
			name:     "plain base gets name and sslmode",
			baseURL:  "postgres://u:p@localhost:5432",
			dbName:   "coins",
			expected: "postgres://u:p@localhost:5432/coins?sslmode=disable",
		},
		{
			name:     "trailing slash trimmed",
			baseURL:  "postgres://u:p@localhost:5432/",
			dbName:   "coins",
			expected: "postgres://u:p@localhost:5432/coins?sslmode=disable",
		},
		{
			name:     "existing query kept",
			baseURL:  "postgres://u:p@localhost:5432?connect_timeout=5",
			dbName:   "coins",
			expected: "postgres://u:p@localhost:5432/coins?connect_timeout=5&sslmode=disable",
		},
		{
			name:     "explicit sslmode respected",
			baseURL:  "postgres://u:p@db:5432?sslmode=require",
			dbName:   "coins",
			expected: "postgres://u:p@db:5432/coins?sslmode=require",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ConstructDatabaseURL(tt.baseURL, tt.dbName))
		})
	}
}
