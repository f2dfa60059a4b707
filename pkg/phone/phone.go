// Package phone maps Brazilian phone numbers to login identifiers and
// WhatsApp contact links.
package phone

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

const (
	countryCode     = "55"
	syntheticDomain = "system.local"

	TypePhone = "phone"
	TypeEmail = "email"
)

var (
	nonDigit   = regexp.MustCompile(`\D`)
	emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

// Digits strips every non-digit character.
func Digits(s string) string {
	return nonDigit.ReplaceAllString(s, "")
}

// IsValid accepts 11 local digits (area code + number) or 13 digits with the
// 55 country prefix.
func IsValid(s string) bool {
	d := Digits(s)
	switch len(d) {
	case 11:
		return d[0] >= '1' && d[0] <= '9'
	case 13:
		return strings.HasPrefix(d, countryCode)
	}
	return false
}

// IsValidLocal accepts exactly 11 digits not starting with 0.
func IsValidLocal(s string) bool {
	d := Digits(s)
	return len(d) == 11 && d[0] >= '1' && d[0] <= '9'
}

// Format returns the E.164 form when the number is recognised.
func Format(s string) string {
	d := Digits(s)
	switch {
	case len(d) == 13 && strings.HasPrefix(d, countryCode):
		return "+" + d
	case len(d) == 11:
		return "+" + countryCode + d
	}
	return d
}

// LocalDigits is the stored form of a client phone: 11 digits without the
// country prefix.
func LocalDigits(s string) string {
	d := Digits(s)
	if len(d) == 13 && strings.HasPrefix(d, countryCode) {
		return d[2:]
	}
	return d
}

// SyntheticEmail builds the login email used for phone-only accounts.
func SyntheticEmail(s string) string {
	return fmt.Sprintf("phone_%s@%s", strings.TrimPrefix(Format(s), "+"), syntheticDomain)
}

// AuthEmail resolves a phone-or-email identifier to the account email.
func AuthEmail(identifier string) string {
	if IsValid(identifier) {
		return SyntheticEmail(identifier)
	}
	return strings.ToLower(strings.TrimSpace(identifier))
}

func IsValidEmail(s string) bool {
	return emailRegex.MatchString(s)
}

func DetectType(s string) string {
	if IsValid(s) {
		return TypePhone
	}
	return TypeEmail
}

// Display renders a number as "(11) 99999-9999" or "+55 (11) 99999-9999".
func Display(s string) string {
	d := Digits(s)
	switch {
	case len(d) == 11:
		return fmt.Sprintf("(%s) %s-%s", d[:2], d[2:7], d[7:])
	case len(d) == 13 && strings.HasPrefix(d, countryCode):
		return fmt.Sprintf("+55 (%s) %s-%s", d[2:4], d[4:9], d[9:])
	}
	return s
}

// WhatsAppNumber prefixes the country code unless the number already has it
// or is too short to be a full number.
func WhatsAppNumber(s string) string {
	d := Digits(s)
	if strings.HasPrefix(d, countryCode) {
		return d
	}
	if len(d) >= 10 {
		return countryCode + d
	}
	return d
}

// WhatsAppLink returns an empty string when there is no number to link to.
func WhatsAppLink(number, message string) string {
	n := WhatsAppNumber(number)
	if n == "" {
		return ""
	}
	text := strings.ReplaceAll(url.QueryEscape(message), "+", "%20")
	return fmt.Sprintf("https://wa.me/%s?text=%s", n, text)
}
