package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeDomain(t *testing.T) {
	assert.Equal(t, "example.com", NormalizeDomain(" WWW.Example.COM. "))
	assert.Equal(t, "login.example.com", NormalizeDomain("login.example.com"))
	assert.Equal(t, "", NormalizeDomain("   "))
}

func TestParentDomains(t *testing.T) {
	tests := []struct {
		host     string
		expected []string
	}{
		{"a.b.example.com", []string{"a.b.example.com", "b.example.com", "example.com"}},
		{"www.example.com", []string{"example.com"}},
		{"localhost", []string{"localhost"}},
		{"", nil},
	}

	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParentDomains(tt.host))
		})
	}
}

func TestMigrationEmbedded(t *testing.T) {
	sql, err := migrations.ReadFile("migrations/001_init.sql")
	assert.NoError(t, err)
	assert.Contains(t, string(sql), "domain_reputation")
}
