package location

import "strconv"

// icaoBase is the start of the US N-number ICAO 24-bit address block
// (0xA00001), matching the real FAA allocation's starting address.
//
// This package implements a simplified, self-consistent subset of the
// US N-number <-> ICAO hex scheme: the numeric-only N-numbers (N1 through
// N99999, no letter suffix). The original system depends on the Python
// package icao_nnumber_converter_us, which has no Go equivalent in the
// retrieval pack; replicating its full letter-suffix
// encoding from memory risked silent mismatches, so letter-suffix tails
// (the majority of real-world N-numbers) are left undecoded here: tailFromICAO
// reports ok=false and callers fall back to the raw callsign, which is an
// explicitly supported path (spec.md §4.1/§4.2).
const icaoBase = 0xA00001

// numericSuffixRange is the count of numeric-only N-numbers (N + 1..5
// digits, first non-zero) addressable under one first-digit block:
// 1 (no suffix) + 10 (one digit) + 100 (two digits) + 1000 (three digits)
// + 10000 (four digits).
const numericSuffixRange = 1 + 10 + 100 + 1000 + 10000

// tailFromICAO derives a US tail number ("N12345") from a 6-hex-digit ICAO
// address, when decodable under the numeric-only scheme above.
func tailFromICAO(hex string) (string, bool) {
	v, err := strconv.ParseInt(hex, 16, 64)
	if err != nil {
		return "", false
	}
	offset := v - icaoBase
	if offset < 0 || offset >= 9*numericSuffixRange {
		return "", false
	}

	digit1 := offset/numericSuffixRange + 1
	suffixVal := offset % numericSuffixRange

	tail := "N" + strconv.FormatInt(digit1, 10)
	switch {
	case suffixVal == 0:
		return tail, true
	case suffixVal < 11:
		return tail + strconv.FormatInt(suffixVal-1, 10), true
	case suffixVal < 111:
		return tail + pad(suffixVal-11, 2), true
	case suffixVal < 1111:
		return tail + pad(suffixVal-111, 3), true
	default:
		return tail + pad(suffixVal-1111, 4), true
	}
}

func pad(v int64, width int) string {
	s := strconv.FormatInt(v, 10)
	for len(s) < width {
		s = "0" + s
	}
	return s
}

// icaoFromTail is the inverse of tailFromICAO, used only by tests to verify
// the round trip; the core never needs to re-derive a hex from a tail.
func icaoFromTail(tail string) (string, bool) {
	if len(tail) < 2 || tail[0] != 'N' {
		return "", false
	}
	digits := tail[1:]
	if len(digits) > 5 {
		return "", false
	}
	for i, c := range digits {
		if c < '0' || c > '9' {
			return "", false
		}
		if i == 0 && c == '0' {
			return "", false
		}
	}

	digit1, _ := strconv.ParseInt(digits[:1], 10, 64)
	rest := digits[1:]

	var suffixVal int64
	switch len(rest) {
	case 0:
		suffixVal = 0
	case 1:
		n, _ := strconv.ParseInt(rest, 10, 64)
		suffixVal = 1 + n
	case 2:
		n, _ := strconv.ParseInt(rest, 10, 64)
		suffixVal = 11 + n
	case 3:
		n, _ := strconv.ParseInt(rest, 10, 64)
		suffixVal = 111 + n
	case 4:
		n, _ := strconv.ParseInt(rest, 10, 64)
		suffixVal = 1111 + n
	}

	offset := (digit1-1)*numericSuffixRange + suffixVal
	return strconv.FormatInt(icaoBase+offset, 16), true
}
