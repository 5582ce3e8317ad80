package directory

import (
	"errors"
	"reflect"
	"testing"

	"healthmate/internal/catalog"
)

type staticCatalog struct{ c *catalog.Catalog }

func (s staticCatalog) Current() *catalog.Catalog { return s.c }

func defaultCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := catalog.Default()
	if err != nil {
		t.Fatalf("default catalog: %v", err)
	}
	return c
}

func ids(ps []catalog.Provider) []int {
	out := []int{}
	for _, p := range ps {
		out = append(out, p.ID)
	}
	return out
}

func ptr(b bool) *bool { return &b }

func TestSymptomMap_SpecialtiesFor(t *testing.T) {
	m := NewSymptomMap(defaultCatalog(t).Symptoms)

	cases := []struct {
		in   string
		want []string
	}{
		{"heart", []string{"Cardiology"}},
		{"  Tooth ", []string{"Dentistry"}},
		// "fever" is the first entry contained in the query.
		{"high fever at night", []string{"General", "Family Medicine", "Internal Medicine"}},
		// "ear" is reached before "heart" in catalog order.
		{"heartburn", []string{"ENT"}},
		{"vacc", []string{"General", "Family Medicine", "Pediatrics"}},
		{"xyzzy", fallbackSpecialties},
		{"", fallbackSpecialties},
	}
	for _, tc := range cases {
		if got := m.SpecialtiesFor(tc.in); !reflect.DeepEqual(got, tc.want) {
			t.Errorf("SpecialtiesFor(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestSymptomMap_DuplicateKeepsPosition(t *testing.T) {
	m := NewSymptomMap([]catalog.SymptomEntry{
		{Symptom: "Pain", Specialties: []string{"General"}},
		{Symptom: "back", Specialties: []string{"Orthopedics"}},
		{Symptom: "pain", Specialties: []string{"Neurology"}},
	})
	if got := m.SpecialtiesFor("pain"); !reflect.DeepEqual(got, []string{"Neurology"}) {
		t.Fatalf("later duplicate must win, got %v", got)
	}
	if got := m.SpecialtiesFor("lower back pain"); !reflect.DeepEqual(got, []string{"Neurology"}) {
		t.Fatalf("duplicate must keep its first position, got %v", got)
	}
}

func TestSymptomMap_RelevantSymptoms(t *testing.T) {
	m := NewSymptomMap(defaultCatalog(t).Symptoms)

	got := m.RelevantSymptoms([]string{"Cardiology", "Cardiovascular Surgery"})
	want := []string{"chest pain", "heart", "palpitation", "blood pressure", "hypertension", "breathing", "shortness of breath", "heart attack"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("RelevantSymptoms = %v, want %v", got, want)
	}

	// "dentistry" contains "ent", so the ENT symptoms come first and the cap
	// cuts off gum and dental.
	got = m.RelevantSymptoms([]string{"Dentistry"})
	want = []string{"dizziness", "ear", "hearing", "nose", "throat", "cough", "tooth", "teeth"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected dentistry symptoms: %v", got)
	}

	if got := m.RelevantSymptoms([]string{"Astrology"}); len(got) != 0 {
		t.Fatalf("expected no symptoms, got %v", got)
	}
}

func TestApply(t *testing.T) {
	c := defaultCatalog(t)
	m := NewSymptomMap(c.Symptoms)

	cases := []struct {
		name string
		f    Filter
		want []int
	}{
		{"no filter", Filter{}, []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}},
		{"symptom query", Filter{Query: "heart"}, []int{2, 6}},
		// Unmatched text still resolves to general practice as a symptom.
		{"name query", Filter{Query: "zsolnay"}, []int{2, 3, 4, 7, 8, 10}},
		{"unknown query uses general practice", Filter{Query: "xyzzy"}, []int{2, 3, 7, 8, 10}},
		{"type", Filter{ProviderTypes: []catalog.ProviderType{catalog.ProviderClinic}}, []int{3, 7, 9, 10}},
		{"insurance", Filter{InsuranceTypes: []string{"TAJ"}}, []int{2, 4, 5, 8, 10}},
		{"public", Filter{Public: ptr(true)}, []int{2, 5, 8, 10}},
		{"not english", Filter{EnglishSpeaking: ptr(false)}, []int{5, 8, 10}},
		{"open only", Filter{OpenOnly: ptr(true)}, []int{3, 4, 5, 7, 8, 10}},
		{"open false is any", Filter{OpenOnly: ptr(false)}, []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}},
		{"combined", Filter{
			ProviderTypes:  []catalog.ProviderType{catalog.ProviderClinic, catalog.ProviderHospital},
			InsuranceTypes: []string{"taj"},
			OpenOnly:       ptr(true),
		}, []int{8, 10}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ids(Apply(c.Providers, m, tc.f)); !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestFilter_ActiveCount(t *testing.T) {
	f := Filter{Query: "heart"}
	if f.ActiveCount() != 0 {
		t.Fatalf("query must not count")
	}
	f = Filter{ProviderTypes: []catalog.ProviderType{catalog.ProviderDental}, Public: ptr(false), OpenOnly: ptr(true)}
	if f.ActiveCount() != 3 {
		t.Fatalf("expected 3 active filters, got %d", f.ActiveCount())
	}
}

func TestService(t *testing.T) {
	svc := NewService(staticCatalog{defaultCatalog(t)})

	res := svc.List(Filter{Query: "tooth"})
	if res.Total != 1 || res.Providers[0].ID != 1 || !reflect.DeepEqual(res.Specialties, []string{"Dentistry"}) {
		t.Fatalf("unexpected list: %+v", res)
	}

	d, err := svc.Get(6)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if d.Name != "Mecsek Cardiology Center" || len(d.RelevantSymptoms) != maxRelevantSymptoms {
		t.Fatalf("unexpected details: %+v", d)
	}

	if _, err := svc.Get(404); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if len(svc.FilterOptions().ProviderTypes) != 6 {
		t.Fatalf("expected six provider type options")
	}
}
