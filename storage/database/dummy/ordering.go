package dummydb

import (
	"sort"
	"strings"
	"time"

	"github.com/trezcool/ead/core"
)

// sortBy stable-sorts items the way an SQL ORDER BY would. Unknown fields are ignored.
func sortBy[T any](items []T, ordering []core.DBOrdering, fields map[string]func(T) interface{}) {
	sort.SliceStable(items, func(i, j int) bool {
		for _, ord := range ordering {
			get, ok := fields[ord.Field]
			if !ok {
				continue
			}
			c := compare(get(items[i]), get(items[j]))
			if c == 0 {
				continue
			}
			if ord.Ascending {
				return c < 0
			}
			return c > 0
		}
		return false
	})
}

func compare(a, b interface{}) int {
	switch av := a.(type) {
	case string:
		return strings.Compare(av, b.(string))
	case int:
		bv := b.(int)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		}
	case bool:
		bv := b.(bool)
		switch {
		case !av && bv:
			return -1
		case av && !bv:
			return 1
		}
	case time.Time:
		return av.Compare(b.(time.Time))
	}
	return 0
}
