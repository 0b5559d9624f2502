// Package rut validates and formats Chilean RUT numbers.
package rut

import (
	"regexp"
	"strconv"
	"strings"
)

// Generic is the placeholder RUT used for collaborators without one. It may repeat.
const Generic = "11.111.111-1"

var shape = regexp.MustCompile(`^\d{7,8}[0-9K]$`)

// Clean strips everything but digits and K, upper-cased.
func Clean(s string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(s) {
		if (r >= '0' && r <= '9') || r == 'K' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Valid reports whether s has 7-8 body digits and a matching mod 11 check digit.
func Valid(s string) bool {
	c := Clean(s)
	if !shape.MatchString(c) {
		return false
	}
	body, dv := c[:len(c)-1], c[len(c)-1:]
	return checkDigit(body) == dv
}

func checkDigit(body string) string {
	sum, mul := 0, 2
	for i := len(body) - 1; i >= 0; i-- {
		sum += int(body[i]-'0') * mul
		if mul == 7 {
			mul = 2
		} else {
			mul++
		}
	}
	switch v := 11 - sum%11; v {
	case 11:
		return "0"
	case 10:
		return "K"
	default:
		return strconv.Itoa(v)
	}
}

// IsGeneric reports whether s is the generic placeholder RUT.
func IsGeneric(s string) bool {
	return Clean(s) == "111111111"
}

// Format renders a RUT as 12.345.678-5. Input that is too short is returned cleaned.
func Format(s string) string {
	c := Clean(s)
	if len(c) < 2 {
		return c
	}
	body, dv := c[:len(c)-1], c[len(c)-1:]
	var parts []string
	for len(body) > 3 {
		parts = append([]string{body[len(body)-3:]}, parts...)
		body = body[:len(body)-3]
	}
	parts = append([]string{body}, parts...)
	return strings.Join(parts, ".") + "-" + dv
}

// BodyWithoutDV returns the digits before the check digit, used in document names.
func BodyWithoutDV(s string) string {
	c := Clean(s)
	if len(c) < 2 {
		return c
	}
	return c[:len(c)-1]
}
