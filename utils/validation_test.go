package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidatePhoneNumber(t *testing.T) {
	valid := []string{
		"+260971234567",
		"0971234567",
		"971234567",
		"097 123 4567",
		"+260761234567",
	}
	for _, phone := range valid {
		assert.True(t, ValidatePhoneNumber(phone), phone)
	}

	invalid := []string{
		"",
		"12345",
		"+260171234567",  // landline prefix
		"+2609712345678", // too long
		"09712345",       // too short
		"+919876543210",  // wrong country
	}
	for _, phone := range invalid {
		assert.False(t, ValidatePhoneNumber(phone), phone)
	}
}

func TestNormalizePhoneNumber(t *testing.T) {
	assert.Equal(t, "+260971234567", NormalizePhoneNumber("0971234567"))
	assert.Equal(t, "+260971234567", NormalizePhoneNumber("971234567"))
	assert.Equal(t, "+260971234567", NormalizePhoneNumber("+260971234567"))
	assert.Equal(t, "+260971234567", NormalizePhoneNumber("097 123 4567"))
}
