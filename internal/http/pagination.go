package http

// pageSize is the fixed number of records per page in the stats list.
const pageSize = 10

type pageLink struct {
	Number   int
	Current  bool
	Ellipsis bool
}

type pagination struct {
	Page       int
	TotalPages int
	HasPrev    bool
	HasNext    bool
	Links      []pageLink
}

// totalPages computes the page count for n records, minimum one page.
func totalPages(n int) int {
	if n <= 0 {
		return 1
	}
	return (n + pageSize - 1) / pageSize
}

// clampPage pins a requested page into [1, total].
func clampPage(page, total int) int {
	if page < 1 {
		return 1
	}
	if page > total {
		return total
	}
	return page
}

// buildPagination lays out page buttons: first and last page always
// visible, a window of two pages around the current one, ellipsis
// markers for the gaps.
func buildPagination(page, total int) pagination {
	page = clampPage(page, total)

	p := pagination{
		Page:       page,
		TotalPages: total,
		HasPrev:    page > 1,
		HasNext:    page < total,
	}

	lo := page - 2
	if lo < 1 {
		lo = 1
	}
	hi := page + 2
	if hi > total {
		hi = total
	}

	if lo > 1 {
		p.Links = append(p.Links, pageLink{Number: 1})
		if lo > 2 {
			p.Links = append(p.Links, pageLink{Ellipsis: true})
		}
	}
	for n := lo; n <= hi; n++ {
		p.Links = append(p.Links, pageLink{Number: n, Current: n == page})
	}
	if hi < total {
		if hi < total-1 {
			p.Links = append(p.Links, pageLink{Ellipsis: true})
		}
		p.Links = append(p.Links, pageLink{Number: total})
	}

	return p
}
