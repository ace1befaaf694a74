// Package isin validates International Securities Identification Numbers.
package isin

// Valid reports whether s is a well-formed ISIN with a correct check digit.
func Valid(s string) bool {
	if len(s) != 12 {
		return false
	}
	for i := 0; i < 2; i++ {
		if s[i] < 'A' || s[i] > 'Z' {
			return false
		}
	}
	for i := 2; i < 11; i++ {
		if !isUpperAlnum(s[i]) {
			return false
		}
	}
	if s[11] < '0' || s[11] > '9' {
		return false
	}

	// letters expand to two digits (A=10 ... Z=35), then Luhn over the digit string
	digits := make([]int, 0, 24)
	for i := 0; i < 11; i++ {
		c := s[i]
		if c >= '0' && c <= '9' {
			digits = append(digits, int(c-'0'))
			continue
		}
		v := int(c-'A') + 10
		digits = append(digits, v/10, v%10)
	}

	sum := 0
	double := true
	for i := len(digits) - 1; i >= 0; i-- {
		d := digits[i]
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	check := (10 - sum%10) % 10
	return check == int(s[11]-'0')
}

func isUpperAlnum(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'A' && c <= 'Z')
}
