package sort

import (
	"cmp"
	"slices"
	"testing"
)

type row struct {
	name  string
	score int
}

var columns = map[string]func(a, b row) int{
	"name":  func(a, b row) int { return cmp.Compare(a.name, b.name) },
	"score": func(a, b row) int { return cmp.Compare(a.score, b.score) },
}

func TestGetSort(t *testing.T) {
	rows := []row{{"bo", 70}, {"al", 90}, {"cy", 70}}

	less, err := GetSort(columns, []SortMethod{{Name: "score", Type: SortTypeDesc}, {Name: "name", Type: SortTypeAsc}})
	if err != nil {
		t.Fatalf("GetSort: %v", err)
	}
	slices.SortStableFunc(rows, less)

	want := []string{"al", "bo", "cy"}
	for i, r := range rows {
		if r.name != want[i] {
			t.Fatalf("rows[%d] = %q; want %q", i, r.name, want[i])
		}
	}
}

func TestGetSortUnknownColumn(t *testing.T) {
	if _, err := GetSort(columns, []SortMethod{{Name: "email"}}); err == nil {
		t.Fatalf("GetSort: expected error for unknown column")
	}
}

func TestParseSortType(t *testing.T) {
	cases := []struct {
		in      string
		want    SortType
		wantErr bool
	}{
		{"", SortTypeDesc, false},
		{"asc", SortTypeAsc, false},
		{"DESC", SortTypeDesc, false},
		{"sideways", SortTypeDesc, true},
	}
	for _, c := range cases {
		got, err := ParseSortType(c.in, SortTypeDesc)
		if (err != nil) != c.wantErr {
			t.Fatalf("ParseSortType(%q) err = %v; wantErr %v", c.in, err, c.wantErr)
		}
		if got != c.want {
			t.Fatalf("ParseSortType(%q) = %v; want %v", c.in, got, c.want)
		}
	}
}
