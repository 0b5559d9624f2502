package rut

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValid(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"12.345.678-5", true},
		{"12345678-5", true},
		{"123456785", true},
		{"7.654.321-6", true},
		{"1.000.005-k", true},
		{"1.000.030-0", true},
		{Generic, true},
		{"12.345.678-4", false},
		{"123-4", false},
		{"", false},
		{"abc", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Valid(tt.in), "Valid(%q)", tt.in)
	}
}

func TestClean(t *testing.T) {
	assert.Equal(t, "1000005K", Clean(" 1.000.005-k "))
	assert.Equal(t, "", Clean("--"))
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "12.345.678-5", Format("123456785"))
	assert.Equal(t, "7.654.321-6", Format("7654321-6"))
	assert.Equal(t, "1.000.005-K", Format("1000005k"))
	assert.Equal(t, "5", Format("5"))
}

func TestIsGeneric(t *testing.T) {
	assert.True(t, IsGeneric("11.111.111-1"))
	assert.True(t, IsGeneric("111111111"))
	assert.False(t, IsGeneric("12.345.678-5"))
}

func TestBodyWithoutDV(t *testing.T) {
	assert.Equal(t, "12345678", BodyWithoutDV("12.345.678-5"))
	assert.Equal(t, "1000005", BodyWithoutDV("1.000.005-K"))
}
