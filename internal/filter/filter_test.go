package filter

import (
	"reflect"
	"testing"

	"manzil/pkg/domain"
)

func sampleCatalog() []domain.Property {
	return []domain.Property{
		{ID: 1, Type: domain.PropertyApartment, Price: 1_500_000, Rooms: domain.Rooms2, Floor: 1, TotalFloors: 5, City: "Dushanbe", District: "Somoni", Landmark: "Mehrgon Market", HouseType: domain.HousePanel},
		{ID: 2, Type: domain.PropertyApartment, Price: 900_000, Rooms: domain.Rooms1, Floor: 5, TotalFloors: 5, City: "Dushanbe", District: "Sino", Landmark: "Sadbarg", HouseType: domain.HouseBrick},
		{ID: 3, Type: domain.PropertyHouse, Price: 2_400_000, Rooms: domain.Rooms4, Floor: 1, TotalFloors: 2, City: "Khujand", District: "Panjshanbe", Landmark: "Kamoli Khujandi Park", HouseType: domain.HouseBrick},
		{ID: 4, Type: domain.PropertyApartment, Price: 1_750_000, Rooms: domain.Rooms3, Floor: 3, TotalFloors: 9, City: "Dushanbe", District: "Firdavsi", Landmark: "Korvon Bazaar", HouseType: domain.HouseMonolith},
		{ID: 5, Type: domain.PropertyRoom, Price: 300_000, Rooms: domain.RoomsStudio, Floor: 2, TotalFloors: 4, City: "Bokhtar", District: "Markazi", Landmark: "Central Park", HouseType: domain.HouseBlock},
	}
}

func ids(props []domain.Property) []int {
	out := make([]int, 0, len(props))
	for _, p := range props {
		out = append(out, p.ID)
	}
	return out
}

func TestApplyNoConstraintsReturnsCatalogOrder(t *testing.T) {
	catalog := sampleCatalog()
	got := Apply(catalog, State{})
	if !reflect.DeepEqual(ids(got), []int{1, 2, 3, 4, 5}) {
		t.Fatalf("expected full catalog in order, got %v", ids(got))
	}
}

func TestApplyIsSubsequenceAndIdempotent(t *testing.T) {
	catalog := sampleCatalog()
	state := State{PropertyType: "apartment", PriceMin: 500_000, PriceMax: 2_000_000}
	first := Apply(catalog, state)
	second := Apply(catalog, state)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("same state over same catalog must be idempotent")
	}
	// Subsequence check: result ids must appear in catalog order.
	pos := 0
	for _, p := range first {
		found := false
		for ; pos < len(catalog); pos++ {
			if catalog[pos].ID == p.ID {
				found = true
				pos++
				break
			}
		}
		if !found {
			t.Fatalf("result is not an order-preserving subset of the catalog")
		}
	}
	for _, p := range first {
		if !state.Matches(p) {
			t.Fatalf("returned property %d does not satisfy the state", p.ID)
		}
	}
}

func TestQueryMatchesDistrictCityLandmark(t *testing.T) {
	catalog := sampleCatalog()
	cases := []struct {
		query string
		want  []int
	}{
		{"sino", []int{2}},
		{"KHUJAND", []int{3}},
		{"bazaar", []int{4}},
		{"nowhere", []int{}},
	}
	for _, tc := range cases {
		got := Apply(catalog, State{Query: tc.query})
		if !reflect.DeepEqual(ids(got), tc.want) {
			t.Fatalf("query %q: want %v, got %v", tc.query, tc.want, ids(got))
		}
	}
}

func TestPriceRangeInclusiveBounds(t *testing.T) {
	catalog := sampleCatalog()
	got := Apply(catalog, State{Query: "somoni", PriceMin: 1_000_000, PriceMax: 2_000_000})
	if !reflect.DeepEqual(ids(got), []int{1}) {
		t.Fatalf("1,500,000 must fall inside [1,000,000, 2,000,000], got %v", ids(got))
	}
	got = Apply(catalog, State{Query: "somoni", PriceMin: 1_600_000, PriceMax: 2_000_000})
	if len(got) != 0 {
		t.Fatalf("1,500,000 must fall outside [1,600,000, 2,000,000], got %v", ids(got))
	}
	// Exact boundary is inclusive.
	got = Apply(catalog, State{PriceMin: 1_500_000, PriceMax: 1_500_000})
	if !reflect.DeepEqual(ids(got), []int{1}) {
		t.Fatalf("boundary price must be included, got %v", ids(got))
	}
}

func TestNormalizeSwapsInvertedBounds(t *testing.T) {
	s := State{PriceMin: 2_000_000, PriceMax: 1_000_000}
	s.Normalize()
	if s.PriceMin != 1_000_000 || s.PriceMax != 2_000_000 {
		t.Fatalf("bounds not reordered: [%d, %d]", s.PriceMin, s.PriceMax)
	}
	got := Apply(sampleCatalog(), State{Query: "somoni", PriceMin: 2_000_000, PriceMax: 1_000_000})
	if !reflect.DeepEqual(ids(got), []int{1}) {
		t.Fatalf("Apply must normalize inverted bounds, got %v", ids(got))
	}
}

func TestHouseTypeSetMembership(t *testing.T) {
	got := Apply(sampleCatalog(), State{HouseTypes: []domain.HouseType{domain.HouseBrick, domain.HouseBlock}})
	if !reflect.DeepEqual(ids(got), []int{2, 3, 5}) {
		t.Fatalf("house type membership filter wrong: %v", ids(got))
	}
}

func TestFloorRuleComposition(t *testing.T) {
	groundFloor := domain.Property{ID: 10, Floor: 1, TotalFloors: 5}

	if (State{FloorRules: []FloorRule{FloorNotFirst}}).Matches(groundFloor) {
		t.Fatalf("not-first must exclude floor 1")
	}
	if !(State{FloorRules: []FloorRule{FloorNotLast}}).Matches(groundFloor) {
		t.Fatalf("not-last alone must include floor 1 of 5")
	}
	if (State{FloorRules: []FloorRule{FloorOnlyLast}}).Matches(groundFloor) {
		t.Fatalf("only-last must exclude floor 1 of 5")
	}

	topFloor := domain.Property{ID: 11, Floor: 5, TotalFloors: 5}
	if !(State{FloorRules: []FloorRule{FloorNotFirst, FloorOnlyLast}}).Matches(topFloor) {
		t.Fatalf("top floor of 5 must pass not-first AND only-last")
	}
	// Rules compose with AND: contradictory selection excludes everything.
	if (State{FloorRules: []FloorRule{FloorNotLast, FloorOnlyLast}}).Matches(topFloor) {
		t.Fatalf("not-last AND only-last can never both pass")
	}
}

func TestRoomsAndTypeSelectors(t *testing.T) {
	catalog := sampleCatalog()
	got := Apply(catalog, State{PropertyType: TypeAll, Rooms: "1"})
	if !reflect.DeepEqual(ids(got), []int{2}) {
		t.Fatalf("rooms selector wrong: %v", ids(got))
	}
	got = Apply(catalog, State{PropertyType: "house", Rooms: TypeAll})
	if !reflect.DeepEqual(ids(got), []int{3}) {
		t.Fatalf("type selector wrong: %v", ids(got))
	}
}

func TestParseFloorRule(t *testing.T) {
	if _, ok := ParseFloorRule("not-first"); !ok {
		t.Fatalf("not-first must parse")
	}
	if _, ok := ParseFloorRule("basement"); ok {
		t.Fatalf("unknown rule must not parse")
	}
}
