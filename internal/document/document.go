package document

import "strings"

// Type classifies a canonical document number.
type Type string

const (
	TypeCPF     Type = "cpf"
	TypeCNPJ    Type = "cnpj"
	TypeInvalid Type = "invalid"
)

// Canonicalize strips every non-digit character. All lookups and comparisons
// operate on the canonical form.
func Canonicalize(doc string) string {
	var b strings.Builder
	b.Grow(len(doc))
	for _, r := range doc {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// IsValid reports whether the document is a structurally valid CPF or CNPJ.
func IsValid(doc string) bool {
	switch len(Canonicalize(doc)) {
	case 11:
		return IsValidCPF(doc)
	case 14:
		return IsValidCNPJ(doc)
	default:
		return false
	}
}

// TypeOf returns the document type after validation.
func TypeOf(doc string) Type {
	switch len(Canonicalize(doc)) {
	case 11:
		if IsValidCPF(doc) {
			return TypeCPF
		}
	case 14:
		if IsValidCNPJ(doc) {
			return TypeCNPJ
		}
	}
	return TypeInvalid
}

// IsValidCPF validates the two mod-11 check digits of an 11-digit CPF.
func IsValidCPF(cpf string) bool {
	cleaned := Canonicalize(cpf)
	if len(cleaned) != 11 {
		return false
	}
	if allSameDigit(cleaned) {
		return false
	}

	sum := 0
	for i := 0; i < 9; i++ {
		sum += digit(cleaned, i) * (10 - i)
	}
	first := 11 - sum%11
	if first >= 10 {
		first = 0
	}

	sum = 0
	for i := 0; i < 10; i++ {
		sum += digit(cleaned, i) * (11 - i)
	}
	second := 11 - sum%11
	if second >= 10 {
		second = 0
	}

	return digit(cleaned, 9) == first && digit(cleaned, 10) == second
}

// IsValidCNPJ validates the two mod-11 check digits of a 14-digit CNPJ.
func IsValidCNPJ(cnpj string) bool {
	cleaned := Canonicalize(cnpj)
	if len(cleaned) != 14 {
		return false
	}
	if allSameDigit(cleaned) {
		return false
	}

	weights1 := []int{5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}
	sum := 0
	for i := 0; i < 12; i++ {
		sum += digit(cleaned, i) * weights1[i]
	}
	first := sum % 11
	if first < 2 {
		first = 0
	} else {
		first = 11 - first
	}

	weights2 := []int{6, 5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}
	sum = 0
	for i := 0; i < 13; i++ {
		sum += digit(cleaned, i) * weights2[i]
	}
	second := sum % 11
	if second < 2 {
		second = 0
	} else {
		second = 11 - second
	}

	return digit(cleaned, 12) == first && digit(cleaned, 13) == second
}

func digit(s string, i int) int {
	return int(s[i] - '0')
}

// Sequences like 11111111111 carry valid check digits but are not real
// documents.
func allSameDigit(s string) bool {
	for i := 1; i < len(s); i++ {
		if s[i] != s[0] {
			return false
		}
	}
	return true
}
