package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConstructDatabaseURL(t *testing.T) {
	tests := []struct {
		name         string
		baseURL      string
		databaseName string
		expected     string
	}{
		{
			name:     "no database name returns base url unchanged",
			baseURL:  "postgres://u:p@localhost:5432/settler",
			expected: "postgres://u:p@localhost:5432/settler",
		},
		{
			name:         "appends name and sslmode",
			baseURL:      "postgres://u:p@localhost:5432/",
			databaseName: "settler",
			expected:     "postgres://u:p@localhost:5432/settler?sslmode=disable",
		},
		{
			name:         "keeps existing query parameters",
			baseURL:      "postgres://u:p@localhost:5432?connect_timeout=5",
			databaseName: "settler",
			expected:     "postgres://u:p@localhost:5432/settler?connect_timeout=5&sslmode=disable",
		},
		{
			name:         "does not override explicit sslmode",
			baseURL:      "postgres://u:p@db:5432?sslmode=require",
			databaseName: "settler",
			expected:     "postgres://u:p@db:5432/settler?sslmode=require",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ConstructDatabaseURL(tt.baseURL, tt.databaseName))
		})
	}
}
