package directory

import (
	"strings"

	"healthmate/internal/catalog"
)

const maxRelevantSymptoms = 8

var fallbackSpecialties = []string{"General", "Family Medicine", "Internal Medicine"}

// SymptomMap maps lowercase symptoms to specialties. Entry order is
// significant for partial matches.
type SymptomMap struct {
	entries []catalog.SymptomEntry
	exact   map[string][]string
}

func NewSymptomMap(entries []catalog.SymptomEntry) SymptomMap {
	m := SymptomMap{exact: make(map[string][]string, len(entries))}
	for _, e := range entries {
		key := strings.ToLower(strings.TrimSpace(e.Symptom))
		e.Symptom = key
		m.entries = append(m.entries, e)
		// Later duplicates override the value but keep the first position.
		m.exact[key] = e.Specialties
	}
	for i, e := range m.entries {
		m.entries[i].Specialties = m.exact[e.Symptom]
	}
	return m
}

// SpecialtiesFor resolves a symptom: exact match first, then the first entry
// where either string contains the other, else general practice.
func (m SymptomMap) SpecialtiesFor(symptom string) []string {
	s := strings.ToLower(strings.TrimSpace(symptom))
	if sp, ok := m.exact[s]; ok {
		return sp
	}
	if s != "" {
		for _, e := range m.entries {
			if strings.Contains(s, e.Symptom) || strings.Contains(e.Symptom, s) {
				return e.Specialties
			}
		}
	}
	return fallbackSpecialties
}

// RelevantSymptoms lists symptoms treated by the given specialties, grouped
// by specialty and then in map order, capped at eight. A mapped specialty
// counts when the provider specialty equals or contains it.
func (m SymptomMap) RelevantSymptoms(specialties []string) []string {
	out := []string{}
	seen := map[string]bool{}
	for _, sp := range specialties {
		sp = strings.ToLower(sp)
		for _, e := range m.entries {
			if seen[e.Symptom] || !treats(sp, e.Specialties) {
				continue
			}
			seen[e.Symptom] = true
			out = append(out, e.Symptom)
			if len(out) == maxRelevantSymptoms {
				return out
			}
		}
	}
	return out
}

func treats(specialty string, mapped []string) bool {
	for _, m := range mapped {
		if strings.Contains(specialty, strings.ToLower(m)) {
			return true
		}
	}
	return false
}
