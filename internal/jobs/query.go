package jobs

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"job-portal/internal/models"
)

type DateBucket string

const (
	DateToday DateBucket = "today"
	DateWeek  DateBucket = "week"
	DateMonth DateBucket = "month"
)

type SortOrder string

const (
	SortDateDesc   SortOrder = "date_desc"
	SortDateAsc    SortOrder = "date_asc"
	SortSalaryDesc SortOrder = "salary_desc"
	SortSalaryAsc  SortOrder = "salary_asc"
)

// Filter is the search form for offers. Zero values impose no constraint.
type Filter struct {
	Keyword    string
	Location   string
	MinSalary  *int
	MaxSalary  *int
	DateBucket DateBucket
	Sort       SortOrder
}

// Query is a Filter plus the scope of a listing.
type Query struct {
	Filter

	// Now anchors date buckets and visibility.
	Now time.Time
	// ActiveOnly keeps offers whose effective status is active.
	ActiveOnly bool
	// PublisherID restricts to offers published by that user.
	PublisherID *uuid.UUID
	// ExcludePublisherID drops offers published by that user.
	ExcludePublisherID *uuid.UUID

	// Page is 1-based. PageSize <= 0 returns every match.
	Page     int
	PageSize int
}

// Validate rejects unknown bucket and sort values and inverted salary bounds.
func (f Filter) Validate() error {
	switch f.DateBucket {
	case "", DateToday, DateWeek, DateMonth:
	default:
		return ValidationError("date", "unknown date bucket")
	}
	switch f.Sort {
	case "", SortDateDesc, SortDateAsc, SortSalaryDesc, SortSalaryAsc:
	default:
		return ValidationError("sort", "unknown sort order")
	}
	if f.MinSalary != nil && f.MaxSalary != nil && *f.MinSalary > *f.MaxSalary {
		return ValidationError("min_salary", "minimum salary exceeds maximum salary")
	}
	return nil
}

// SortOrDefault returns the requested order, date_desc when unset.
func (f Filter) SortOrDefault() SortOrder {
	if f.Sort == "" {
		return SortDateDesc
	}
	return f.Sort
}

// CreatedWindow returns the half-open [from, to) window of created_at
// selected by the date bucket. ok is false when no bucket is set.
func (f Filter) CreatedWindow(now time.Time) (from, to time.Time, ok bool) {
	now = now.UTC()
	switch f.DateBucket {
	case DateToday:
		from = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		return from, from.Add(24 * time.Hour), true
	case DateWeek:
		return now.Add(-7 * 24 * time.Hour), time.Time{}, true
	case DateMonth:
		return now.Add(-30 * 24 * time.Hour), time.Time{}, true
	}
	return time.Time{}, time.Time{}, false
}

// KeywordPattern is the folded keyword, empty when unset.
func (f Filter) KeywordPattern() string {
	return models.FoldText(f.Keyword)
}

// LocationKey is the folded location, empty when unset.
func (f Filter) LocationKey() string {
	return models.FoldText(f.Location)
}

// Matches reports whether offer satisfies every dimension of q.
func (q Query) Matches(offer *models.JobOffer) bool {
	if q.ActiveOnly && !offer.IsVisibleAt(q.Now) {
		return false
	}
	if q.PublisherID != nil && offer.PublisherID != *q.PublisherID {
		return false
	}
	if q.ExcludePublisherID != nil && offer.PublisherID == *q.ExcludePublisherID {
		return false
	}

	if kw := q.KeywordPattern(); kw != "" {
		haystack := models.OfferSearchText(offer.Title, offer.Company, offer.Description)
		if !strings.Contains(haystack, kw) {
			return false
		}
	}

	if loc := q.LocationKey(); loc != "" && models.FoldText(offer.Location) != loc {
		return false
	}

	if q.MinSalary != nil || q.MaxSalary != nil {
		lo, hi, ok := models.ParseSalaryRange(offer.SalaryRange)
		if !ok {
			return false
		}
		if q.MinSalary != nil && lo < *q.MinSalary {
			return false
		}
		if q.MaxSalary != nil && hi > *q.MaxSalary {
			return false
		}
	}

	if from, to, ok := q.CreatedWindow(q.Now); ok {
		if offer.CreatedAt.Before(from) {
			return false
		}
		if !to.IsZero() && !offer.CreatedAt.Before(to) {
			return false
		}
	}

	return true
}

// SortOffers orders offers in place. Salary orders use the lower bound of
// the parsed range and put unparsable ranges last.
func SortOffers(offers []models.JobOffer, order SortOrder) {
	byDate := func(i, j int, asc bool) bool {
		a, b := offers[i].CreatedAt, offers[j].CreatedAt
		if a.Equal(b) {
			return offers[i].ID.String() < offers[j].ID.String()
		}
		if asc {
			return a.Before(b)
		}
		return a.After(b)
	}

	bySalary := func(i, j int, asc bool) bool {
		a, _, okA := models.ParseSalaryRange(offers[i].SalaryRange)
		b, _, okB := models.ParseSalaryRange(offers[j].SalaryRange)
		switch {
		case okA != okB:
			return okA
		case !okA || a == b:
			return byDate(i, j, false)
		case asc:
			return a < b
		default:
			return a > b
		}
	}

	sort.SliceStable(offers, func(i, j int) bool {
		switch order {
		case SortDateAsc:
			return byDate(i, j, true)
		case SortSalaryAsc:
			return bySalary(i, j, true)
		case SortSalaryDesc:
			return bySalary(i, j, false)
		default:
			return byDate(i, j, false)
		}
	})
}

// Apply filters, sorts and paginates offers in memory. It returns the page
// and the total number of matches.
func (q Query) Apply(offers []models.JobOffer) ([]models.JobOffer, int64) {
	matched := make([]models.JobOffer, 0, len(offers))
	for i := range offers {
		if q.Matches(&offers[i]) {
			matched = append(matched, offers[i])
		}
	}
	SortOffers(matched, q.SortOrDefault())

	total := int64(len(matched))
	offset, limit, paged := q.Window()
	if !paged {
		return matched, total
	}
	if offset >= len(matched) {
		return []models.JobOffer{}, total
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], total
}

// MaxPageSize caps PageSize in every store.
const MaxPageSize = 100

// Window converts Page and PageSize to an offset and limit.
func (q Query) Window() (offset, limit int, paged bool) {
	if q.PageSize <= 0 {
		return 0, 0, false
	}
	page, size := q.Page, q.PageSize
	if page <= 0 {
		page = 1
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	return (page - 1) * size, size, true
}
