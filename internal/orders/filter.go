package orders

import "time"

const (
	DefaultPage  = 1
	DefaultLimit = 10
)

// Filter narrows and paginates order listings. A zero UserID means all
// owners; the engine forces it for non-admin callers before the repository
// ever sees the filter.
type Filter struct {
	UserID    string
	Status    Status
	Search    string // case-insensitive substring of shipping city or state
	StartDate *time.Time
	EndDate   *time.Time

	Page  int
	Limit int
}

// Normalize applies pagination defaults and floors.
func (f Filter) Normalize() Filter {
	if f.Page < 1 {
		f.Page = DefaultPage
	}
	if f.Limit < 1 {
		f.Limit = DefaultLimit
	}
	return f
}

func (f Filter) Offset() int { return (f.Page - 1) * f.Limit }

// Pages is the page count for a total under the filter's limit.
func (f Filter) Pages(total int) int {
	if total == 0 {
		return 0
	}
	return (total + f.Limit - 1) / f.Limit
}
