package sort

import (
	"errors"
	"fmt"
	"strings"
)

type SortType int

const (
	SortTypeAsc SortType = iota
	SortTypeDesc
)

// SortMethod orders by one named column.
type SortMethod struct {
	Name string
	Type SortType
}

func Contains[T comparable](s []T, e T) bool {
	for _, v := range s {
		if v == e {
			return true
		}
	}
	return false
}

// ParseSortType accepts "asc" or "desc"; the empty string selects def.
func ParseSortType(value string, def SortType) (SortType, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "":
		return def, nil
	case "asc":
		return SortTypeAsc, nil
	case "desc":
		return SortTypeDesc, nil
	}
	return def, fmt.Errorf("invalid sort order %q", value)
}

// GetSort builds a comparator from sorts, each resolved against columns.
// Earlier methods take precedence; ties fall through to the next one.
func GetSort[T any](columns map[string]func(a, b T) int, sorts []SortMethod) (func(a, b T) int, error) {
	var cmps []func(a, b T) int
	for _, data := range sorts {
		cmp, ok := columns[data.Name]
		if !ok {
			return nil, errors.New("column not found")
		}
		if data.Type == SortTypeDesc {
			asc := cmp
			cmp = func(a, b T) int { return asc(b, a) }
		}
		cmps = append(cmps, cmp)
	}
	return func(a, b T) int {
		for _, cmp := range cmps {
			if r := cmp(a, b); r != 0 {
				return r
			}
		}
		return 0
	}, nil
}
