package core

import (
	"sort"
	"strings"
)

// BaseCategories is the fixed vocabulary offered to every user.
var BaseCategories = []string{
	"Alimentação", "Transporte", "Moradia", "Saúde", "Educação",
	"Lazer", "Compras", "Investimentos", "Salário", "Freelance", "Outros",
	"Telefone", "Luz", "Gás", "Internet", "Carro", "Combustível",
}

// MergeCategories returns the trimmed, de-duplicated, sorted union of the inputs.
func MergeCategories(sets ...[]string) []string {
	seen := map[string]struct{}{}
	out := []string{}
	for _, set := range sets {
		for _, c := range set {
			c = strings.TrimSpace(c)
			if c == "" {
				continue
			}
			if _, ok := seen[c]; ok {
				continue
			}
			seen[c] = struct{}{}
			out = append(out, c)
		}
	}
	sort.Strings(out)
	return out
}
