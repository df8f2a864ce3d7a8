// Телефоны Бразилии: DDD (2 цифры) + номер из 8 или 9 цифр
package stamps

import "strings"

const targetLen = 11

// префиксы страны, проверяются по порядку
var countryPrefixes = []string{"0055", "055", "55"}

// Normalize returns the comparable digit form of a phone number.
// It never fails: garbage input yields whatever digits remain.
func Normalize(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	d := b.String()

	// код страны снимаем, только если номер длиннее целевого
	for _, p := range countryPrefixes {
		if strings.HasPrefix(d, p) && len(d)-len(p) >= 10 && len(d) > targetLen {
			d = d[len(p):]
			break
		}
	}
	// префикс межгорода
	if len(d) > targetLen && d[0] == '0' {
		d = d[1:]
	}
	if len(d) > targetLen {
		d = d[len(d)-targetLen:]
	}
	return d
}

// IsValid: 10 или 11 цифр, DDD не начинается с 0, у мобильного третья цифра 9
func IsValid(raw string) bool {
	d := Normalize(raw)
	if len(d) != 10 && len(d) != 11 {
		return false
	}
	if d[0] == '0' {
		return false
	}
	if len(d) == 11 && d[2] != '9' {
		return false
	}
	return true
}

// Format is for display only: (61) 98110-1086, (61) 8110-1086.
// Incomplete input is formatted progressively.
func Format(raw string) string {
	d := Normalize(raw)
	switch {
	case len(d) == 0:
		return ""
	case len(d) <= 2:
		return "(" + d
	}
	ddd, rest := d[:2], d[2:]
	split := 4
	if len(rest) == 9 {
		split = 5
	}
	if len(rest) <= split {
		return "(" + ddd + ") " + rest
	}
	return "(" + ddd + ") " + rest[:split] + "-" + rest[split:]
}
