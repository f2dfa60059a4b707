package phone

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValid(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"31973223898", true},
		{"(31) 97322-3898", true},
		{"5531973223898", true},
		{"+55 (31) 97322-3898", true},
		{"01973223898", false},
		{"3197322389", false},
		{"4431973223898", false},
		{"", false},
		{"maria@example.com", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, IsValid(tt.in))
		})
	}
}

func TestIsValidLocal(t *testing.T) {
	assert.True(t, IsValidLocal("31973223898"))
	assert.False(t, IsValidLocal("5531973223898"))
	assert.False(t, IsValidLocal("01973223898"))
}

func TestFormatAndSyntheticEmail(t *testing.T) {
	assert.Equal(t, "+5531973223898", Format("(31) 97322-3898"))
	assert.Equal(t, "+5531973223898", Format("5531973223898"))
	assert.Equal(t, "12345", Format("123-45"))

	assert.Equal(t, "phone_5531973223898@system.local", SyntheticEmail("31973223898"))
	assert.Equal(t, "phone_5531973223898@system.local", SyntheticEmail("+55 31 97322-3898"))
}

func TestAuthEmail(t *testing.T) {
	assert.Equal(t, "phone_5531973223898@system.local", AuthEmail("(31) 97322-3898"))
	assert.Equal(t, "farmacia@example.com", AuthEmail("  Farmacia@Example.com "))
}

func TestLocalDigits(t *testing.T) {
	assert.Equal(t, "31973223898", LocalDigits("+55 31 97322-3898"))
	assert.Equal(t, "31973223898", LocalDigits("(31) 97322-3898"))
	assert.Equal(t, "5531", LocalDigits("5531"))
}

func TestDetectTypeAndEmail(t *testing.T) {
	assert.Equal(t, TypePhone, DetectType("31973223898"))
	assert.Equal(t, TypeEmail, DetectType("a@b.co"))
	assert.True(t, IsValidEmail("a@b.co"))
	assert.False(t, IsValidEmail("a@b"))
	assert.False(t, IsValidEmail("a b@c.com"))
}

func TestDisplay(t *testing.T) {
	assert.Equal(t, "(31) 97322-3898", Display("31973223898"))
	assert.Equal(t, "+55 (31) 97322-3898", Display("5531973223898"))
	assert.Equal(t, "abc", Display("abc"))
}

func TestWhatsAppLink(t *testing.T) {
	assert.Equal(t, "5531973223898", WhatsAppNumber("(31) 97322-3898"))
	assert.Equal(t, "5531973223898", WhatsAppNumber("5531973223898"))
	assert.Equal(t, "12345", WhatsAppNumber("12345"))

	link := WhatsAppLink("31973223898", "Olá Ana, tudo bem?")
	assert.Equal(t, "https://wa.me/5531973223898?text=Ol%C3%A1%20Ana%2C%20tudo%20bem%3F", link)
	assert.Empty(t, WhatsAppLink("", "hi"))
}
