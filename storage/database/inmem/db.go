package inmemdb

import (
	"strings"
	"sync"
	"time"

	"github.com/huyld1504/SchoolMedicalCareSystem-sub005/core"
	"github.com/huyld1504/SchoolMedicalCareSystem-sub005/core/student"
	"github.com/huyld1504/SchoolMedicalCareSystem-sub005/core/user"
	"github.com/huyld1504/SchoolMedicalCareSystem-sub005/core/vaccination"
)

type (
	userTable struct {
		mutex sync.RWMutex
		table map[string]*user.User
	}

	studentTable struct {
		mutex sync.RWMutex
		table map[string]*student.Student
	}

	campaignTable struct {
		mutex sync.RWMutex
		table map[string]*vaccination.Campaign
	}

	// participations share the campaigns lock: queries join both.
	participationTable struct {
		table map[string]*vaccination.Participation
	}

	// DB is an in-memory database, safe for concurrent use.
	DB struct {
		user          *userTable
		student       *studentTable
		campaign      *campaignTable
		participation *participationTable
	}
)

func NewDB() *DB {
	return &DB{
		user:          &userTable{table: make(map[string]*user.User)},
		student:       &studentTable{table: make(map[string]*student.Student)},
		campaign:      &campaignTable{table: make(map[string]*vaccination.Campaign)},
		participation: &participationTable{table: make(map[string]*vaccination.Participation)},
	}
}

// containsFold reports whether one of `vals` contains `keyword`, ignoring case.
func containsFold(keyword string, vals ...string) bool {
	keyword = strings.ToLower(keyword)
	for _, v := range vals {
		if strings.Contains(strings.ToLower(v), keyword) {
			return true
		}
	}
	return false
}

func inSlice(val string, vals []string) bool {
	for _, v := range vals {
		if v == val {
			return true
		}
	}
	return false
}

// compare returns -1, 0 or +1. Supported types are string, time.Time, *time.Time and bool.
func compare(a, b interface{}) int {
	switch av := a.(type) {
	case string:
		return strings.Compare(av, b.(string))
	case time.Time:
		bv := b.(time.Time)
		switch {
		case av.Before(bv):
			return -1
		case av.After(bv):
			return 1
		}
		return 0
	case *time.Time:
		bv := b.(*time.Time)
		switch {
		case av == nil && bv == nil:
			return 0
		case av == nil:
			return -1
		case bv == nil:
			return 1
		}
		return compare(*av, *bv)
	case bool:
		bv := b.(bool)
		switch {
		case av == bv:
			return 0
		case !av:
			return -1
		}
		return 1
	}
	return 0
}

// lessBy builds a sort.Slice less function from orderings; `field` returns the value of a named field of the i-th record.
// Records equal on every ordering are ordered by their "id" field.
func lessBy(orderings []core.DBOrdering, field func(i int, name string) interface{}) func(i, j int) bool {
	orderings = append(orderings[:len(orderings):len(orderings)], core.DBOrdering{Field: "id", Ascending: true})
	return func(i, j int) bool {
		for _, ord := range orderings {
			c := compare(field(i, ord.Field), field(j, ord.Field))
			if c == 0 {
				continue
			}
			if ord.Ascending {
				return c < 0
			}
			return c > 0
		}
		return false
	}
}

// paginate returns the bounds of page `p` in a slice of length `n`.
func paginate(n int, p core.Pagination) (start, end int) {
	start = p.Skip()
	if start > n {
		start = n
	}
	end = n
	if p.Limit > 0 && start+p.Limit < n {
		end = start + p.Limit
	}
	return start, end
}
