// Package directory serves the healthcare provider directory: filtering,
// symptom matching and provider details.
package directory

import (
	"strings"

	"healthmate/internal/catalog"
)

// Filter narrows the provider list. Nil pointers and empty slices leave that
// dimension unfiltered.
type Filter struct {
	Query           string
	ProviderTypes   []catalog.ProviderType
	InsuranceTypes  []string
	Public          *bool
	EnglishSpeaking *bool
	OpenOnly        *bool
}

// ActiveCount is the number of filter dimensions in use, not counting the
// free-text query.
func (f Filter) ActiveCount() int {
	n := 0
	if len(f.ProviderTypes) > 0 {
		n++
	}
	if len(f.InsuranceTypes) > 0 {
		n++
	}
	if f.Public != nil {
		n++
	}
	if f.EnglishSpeaking != nil {
		n++
	}
	if f.OpenOnly != nil {
		n++
	}
	return n
}

// Apply returns the providers passing every dimension of f, in input order.
func Apply(providers []catalog.Provider, symptoms SymptomMap, f Filter) []catalog.Provider {
	q := strings.ToLower(strings.TrimSpace(f.Query))
	var relevant []string
	if q != "" {
		relevant = symptoms.SpecialtiesFor(q)
	}

	out := []catalog.Provider{}
	for _, p := range providers {
		if q != "" && !matchesQuery(p, q, relevant) {
			continue
		}
		if len(f.ProviderTypes) > 0 && !containsType(f.ProviderTypes, p.Type) {
			continue
		}
		if len(f.InsuranceTypes) > 0 && !anyInsurance(f.InsuranceTypes, p.AcceptsInsurance) {
			continue
		}
		if f.Public != nil && p.IsPublic != *f.Public {
			continue
		}
		if f.EnglishSpeaking != nil && p.EnglishSpeaking != *f.EnglishSpeaking {
			continue
		}
		// open=false means "any", not "closed only".
		if f.OpenOnly != nil && *f.OpenOnly && !p.Open() {
			continue
		}
		out = append(out, p)
	}
	return out
}

func matchesQuery(p catalog.Provider, q string, relevant []string) bool {
	if strings.Contains(strings.ToLower(p.Name), q) || strings.Contains(strings.ToLower(p.Address), q) {
		return true
	}
	for _, sp := range p.Specialties {
		lsp := strings.ToLower(sp)
		if strings.Contains(lsp, q) {
			return true
		}
		for _, r := range relevant {
			if strings.Contains(lsp, strings.ToLower(r)) {
				return true
			}
		}
	}
	return false
}

func containsType(types []catalog.ProviderType, t catalog.ProviderType) bool {
	for _, x := range types {
		if x == t {
			return true
		}
	}
	return false
}

func anyInsurance(wanted, accepted []string) bool {
	for _, w := range wanted {
		for _, a := range accepted {
			if strings.EqualFold(w, a) {
				return true
			}
		}
	}
	return false
}
