package passwords

import "unicode/utf8"

// Strength scores password from 0 to 4. Length thresholds of 8, 12 and 16
// characters and each of lowercase, uppercase, digits and other characters
// add a point. Passwords shorter than 8 score at most 2, shorter than 6 at
// most 1.
func Strength(password string) int {
	n := utf8.RuneCountInString(password)

	score := 0
	for _, threshold := range []int{8, 12, 16} {
		if n >= threshold {
			score++
		}
	}

	var lower, upper, digit, other bool
	for _, r := range password {
		switch {
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= '0' && r <= '9':
			digit = true
		default:
			other = true
		}
	}
	for _, ok := range []bool{lower, upper, digit, other} {
		if ok {
			score++
		}
	}

	switch {
	case n < 6:
		score = min(score, 1)
	case n < 8:
		score = min(score, 2)
	}
	return min(score, 4)
}

// StrengthLabel describes a Strength score. Empty passwords have no label.
func StrengthLabel(password string) string {
	if password == "" {
		return ""
	}
	switch Strength(password) {
	case 4:
		return "Very strong password"
	case 3:
		return "Strong password"
	case 2:
		return "Middling password"
	default:
		return "Weak password"
	}
}
