package privacy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskPhoneNumber(t *testing.T) {
	tests := []struct {
		name  string
		phone string
		want  string
	}{
		{name: "empty", phone: "", want: ""},
		{name: "international", phone: "+301234567890", want: "+********7890"},
		{name: "plus only", phone: "+", want: "+"},
		{name: "short with plus", phone: "+1234", want: "+****"},
		{name: "local", phone: "6941234567", want: "******4567"},
		{name: "very short", phone: "123", want: "***"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MaskPhoneNumber(tt.phone))
		})
	}
}

func TestMaskName(t *testing.T) {
	assert.Equal(t, "", MaskName(""))
	assert.Equal(t, "*", MaskName("Μ"))
	assert.Equal(t, "M****", MaskName("Maria"))
	assert.Equal(t, "Ν****", MaskName("Νίκος"))
}

func TestMaskEntityID(t *testing.T) {
	assert.Equal(t, "", MaskEntityID(""))
	assert.Equal(t, "****", MaskEntityID("ab12"))
	assert.Equal(t, "3f8a****", MaskEntityID("3f8a1c2e-9d41-4f0b-a2b7-000000000000"))
}
