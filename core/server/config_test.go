package server_test

import (
	"testing"

	"assessment-sync/core/server"

	"github.com/stretchr/testify/assert"
)

func TestConfig_IsValidCounty(t *testing.T) {
	tests := []struct {
		name   string
		county string
		want   bool
	}{
		{"Benton", server.CountyBenton, true},
		{"Franklin", server.CountyFranklin, true},
		{"WallaWalla", server.CountyWallaWalla, true},
		{"Invalid", "invalid", false},
		{"Empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := server.Config{County: tt.county}
			assert.Equal(t, tt.want, c.IsValidCounty())
		})
	}
}
