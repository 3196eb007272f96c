package simpleblog

const (
	// DefaultPageSize is used when a listing request carries no usable limit.
	DefaultPageSize = 9

	// MaxPageSize caps the number of posts returned per page.
	MaxPageSize = 50
)

// Page is one slice of an ordered listing.
type Page[T any] struct {
	Items      []T
	Page       int
	PageSize   int
	TotalItems int
	TotalPages int
	HasMore    bool
}

// Paginate slices the 1-based page out of listing. The listing must already
// be in a stable order. Pages past the end yield no items and no error.
func Paginate[T any](listing []T, page, pageSize int) Page[T] {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}

	total := len(listing)
	totalPages := total / pageSize
	if total%pageSize != 0 {
		totalPages++
	}

	// Compare against totalPages before multiplying so huge pages cannot overflow.
	start, end := total, total
	if page <= totalPages {
		start = (page - 1) * pageSize
		end = min(start+pageSize, total)
	}

	items := make([]T, end-start)
	copy(items, listing[start:end])

	return Page[T]{
		Items:      items,
		Page:       page,
		PageSize:   pageSize,
		TotalItems: total,
		TotalPages: totalPages,
		HasMore:    page < totalPages,
	}
}
