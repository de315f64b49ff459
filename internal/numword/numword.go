// Package numword names integers in English: cardinals ("forty four"),
// ordinals ("forty fourth") and recurrence interval phrases ("every other").
package numword

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
)

// Last is the ordinal position meaning "the final one in the period".
const Last = -1

var (
	ErrInvalidNumeral  = errors.New("invalid numeral")
	ErrInvalidInterval = errors.New("invalid interval")
)

var smallNumbers = [...]string{
	"zero", "one", "two", "three", "four", "five", "six", "seven", "eight", "nine",
	"ten", "eleven", "twelve", "thirteen", "fourteen", "fifteen", "sixteen",
	"seventeen", "eighteen", "nineteen",
}

var tensWords = [...]string{
	"", "", "twenty", "thirty", "forty", "fifty", "sixty", "seventy", "eighty", "ninety",
}

// scaleWords covers every three-digit group of a 64-bit int.
var scaleWords = [...]string{
	"", "thousand", "million", "billion", "trillion", "quadrillion", "quintillion",
}

// irregularOrdinals holds the numbers below one hundred whose ordinal is
// not the cardinal word plus a suffix.
var irregularOrdinals = map[int]string{
	1:  "first",
	2:  "second",
	3:  "third",
	5:  "fifth",
	8:  "eighth",
	9:  "ninth",
	11: "eleventh",
	12: "twelfth",
	20: "twentieth",
	30: "thirtieth",
	40: "fortieth",
	50: "fiftieth",
	60: "sixtieth",
	70: "seventieth",
	80: "eightieth",
	90: "ninetieth",
}

var intervalPhrases = [...]string{
	1:  "each",
	2:  "every other",
	3:  "every third",
	4:  "every fourth",
	5:  "every fifth",
	6:  "every sixth",
	7:  "every seventh",
	8:  "every eighth",
	9:  "every ninth",
	10: "every tenth",
	11: "every eleventh",
	12: "every twelfth",
}

// Cardinal names n >= 0 in words separated by single spaces, without
// hyphens or "and": 160 is "one hundred sixty".
func Cardinal(n int) (string, error) {
	if n < 0 {
		return "", fmt.Errorf("%w: cardinal of negative number %d", ErrInvalidNumeral, n)
	}
	if n == 0 {
		return smallNumbers[0], nil
	}

	var groups []string
	for scale := 0; n > 0; scale++ {
		g := n % 1000
		n /= 1000
		if g == 0 {
			continue
		}
		words := underThousand(g)
		if scaleWords[scale] != "" {
			words += " " + scaleWords[scale]
		}
		groups = append([]string{words}, groups...)
	}
	return strings.Join(groups, " "), nil
}

func underThousand(n int) string {
	var parts []string
	if h := n / 100; h > 0 {
		parts = append(parts, smallNumbers[h], "hundred")
	}
	if rem := n % 100; rem > 0 {
		parts = append(parts, underHundred(rem))
	}
	return strings.Join(parts, " ")
}

func underHundred(n int) string {
	if n < 20 {
		return smallNumbers[n]
	}
	if n%10 == 0 {
		return tensWords[n/10]
	}
	return tensWords[n/10] + " " + smallNumbers[n%10]
}

// Ordinal names n > 0 as an ordinal ("two hundred seventy eighth").
// Last renders as "last"; zero and other negatives are rejected.
func Ordinal(n int) (string, error) {
	switch {
	case n == Last:
		return "last", nil
	case n <= 0:
		return "", fmt.Errorf("%w: ordinal of %d", ErrInvalidNumeral, n)
	}

	rem := n % 100
	head := ""
	if n > rem {
		// n-rem is a positive multiple of one hundred, never an error.
		head, _ = Cardinal(n - rem)
	}

	if rem == 0 {
		suffix, err := suffixOf(n)
		if err != nil {
			return "", err
		}
		return head + suffix, nil
	}

	tail, err := ordinalUnderHundred(rem)
	if err != nil {
		return "", err
	}
	if head == "" {
		return tail, nil
	}
	return head + " " + tail, nil
}

func ordinalUnderHundred(n int) (string, error) {
	if w, ok := irregularOrdinals[n]; ok {
		return w, nil
	}
	if n < 20 {
		suffix, err := suffixOf(n)
		if err != nil {
			return "", err
		}
		return smallNumbers[n] + suffix, nil
	}
	// Round tens are all irregular, so n%10 is never zero here.
	ones, err := ordinalUnderHundred(n % 10)
	if err != nil {
		return "", err
	}
	return tensWords[n/10] + " " + ones, nil
}

// suffixOf returns the numeral suffix of n ("st", "nd", "rd", "th").
func suffixOf(n int) (string, error) {
	suffix := strings.TrimLeft(humanize.Ordinal(n), "-0123456789")
	switch suffix {
	case "st", "nd", "rd", "th":
		return suffix, nil
	default:
		return "", fmt.Errorf("%w: no ordinal suffix for %d", ErrInvalidNumeral, n)
	}
}

// FromEnd names a position that may count backwards from the end of a
// period: 3 is "third", -1 is "last", -2 is "second to last".
func FromEnd(n int) (string, error) {
	switch {
	case n > 0 || n == Last:
		return Ordinal(n)
	case n == 0:
		return "", fmt.Errorf("%w: position zero", ErrInvalidNumeral)
	}
	ord, err := Ordinal(-n)
	if err != nil {
		return "", err
	}
	return ord + " to last", nil
}

// Interval phrases a recurrence interval: 1 is "each", 2 is "every other",
// and anything past the table is "every <ordinal>".
func Interval(n int) (string, error) {
	if n <= 0 {
		return "", fmt.Errorf("%w: %d", ErrInvalidInterval, n)
	}
	if n < len(intervalPhrases) {
		return intervalPhrases[n], nil
	}
	ord, err := Ordinal(n)
	if err != nil {
		return "", err
	}
	return "every " + ord, nil
}
