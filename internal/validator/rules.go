package validator

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// defaultMessages holds the error template for each built-in rule.
var defaultMessages = map[string]string{
	"required":     "The %s is required",
	"email":        "The %s is not a valid email address",
	"min":          "The %s must have at least %s characters",
	"max":          "The %s must have at most %s characters",
	"between":      "The %s must have between %s and %s characters",
	"same":         "The %s must match with %s",
	"alphanumeric": "The %s should have only letters and numbers",
	"secure":       "The %s must have between 8 and 64 characters and contain at least one number, one upper case letter, one lower case letter and one special character",
	"unique":       "The %s already exists",
}

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// securePunct is the special-character set accepted by the "secure" rule.
const securePunct = "@$!%*?&"

// check evaluates one rule against the submitted data. Length rules count
// Unicode code points, not bytes. Most rules pass when the field is absent;
// "required" and "secure" are the exceptions (a password's strength is never
// optional).
func (v *Validator) check(ctx context.Context, r Rule, data map[string]string, field string) (bool, error) {
	val, present := data[field]
	switch r.Name {
	case "required":
		return present && strings.TrimSpace(val) != "", nil
	case "email":
		if !present || strings.TrimSpace(val) == "" {
			return true, nil
		}
		return emailPattern.MatchString(val), nil
	case "min":
		if !present {
			return true, nil
		}
		n, _ := strconv.Atoi(r.Params[0])
		return utf8.RuneCountInString(val) >= n, nil
	case "max":
		if !present {
			return true, nil
		}
		n, _ := strconv.Atoi(r.Params[0])
		return utf8.RuneCountInString(val) <= n, nil
	case "between":
		if !present {
			return true, nil
		}
		lo, _ := strconv.Atoi(r.Params[0])
		hi, _ := strconv.Atoi(r.Params[1])
		n := utf8.RuneCountInString(val)
		return n >= lo && n <= hi, nil
	case "same":
		other, otherPresent := data[r.Params[0]]
		if present && otherPresent {
			return val == other, nil
		}
		// one side present, the other missing
		return !present && !otherPresent, nil
	case "alphanumeric":
		if !present {
			return true, nil
		}
		return isAlphanumeric(val), nil
	case "secure":
		if !present {
			return false, nil
		}
		return isSecure(val), nil
	case "unique":
		if !present {
			return true, nil
		}
		taken, err := v.Exists.Exists(ctx, r.Params[0], r.Params[1], val)
		if err != nil {
			return false, err
		}
		return !taken, nil
	}
	// unreachable: ParseRules only admits registry names
	return false, nil
}

// isAlphanumeric reports whether every byte is an ASCII letter or digit.
// ASCII keeps the check locale-independent and deterministic.
func isAlphanumeric(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !('a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' || '0' <= c && c <= '9') {
			return false
		}
	}
	return true
}

// isSecure reports whether a password is 8-64 characters drawn from letters,
// digits and securePunct, with at least one of each class present.
func isSecure(s string) bool {
	var lower, upper, digit, punct bool
	n := 0
	for _, r := range s {
		n++
		switch {
		case 'a' <= r && r <= 'z':
			lower = true
		case 'A' <= r && r <= 'Z':
			upper = true
		case '0' <= r && r <= '9':
			digit = true
		case strings.ContainsRune(securePunct, r):
			punct = true
		default:
			return false
		}
	}
	return n >= 8 && n <= 64 && lower && upper && digit && punct
}
