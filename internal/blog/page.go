// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package blog

import (
	"fmt"
	"strconv"
)

// PageSize is the number of posts on one listing page.
const PageSize = 10

// LastPage is the page parameter value that selects the final page.
const LastPage = "last"

// Page describes one slice of a filtered, ordered listing. Offsets and page
// counts are derived from the total and never stored.
type Page struct {
	Number     int
	Size       int
	TotalItems int
	TotalPages int
}

// ResolvePage turns the raw page parameter into a Page for a listing of
// total items. An empty parameter means the first page. Anything that is
// not a page inside the listing is ErrNotFound, except that page 1 of an
// empty listing is valid.
func ResolvePage(raw string, total, size int) (Page, error) {
	if size <= 0 {
		size = PageSize
	}
	pages := (total + size - 1) / size
	if pages == 0 {
		pages = 1
	}

	n := 1
	switch raw {
	case "":
	case LastPage:
		n = pages
	default:
		v, err := strconv.Atoi(raw)
		if err != nil {
			return Page{}, fmt.Errorf("page %q: %w", raw, ErrNotFound)
		}
		n = v
	}

	if n < 1 || n > pages {
		return Page{}, fmt.Errorf("page %d of %d: %w", n, pages, ErrNotFound)
	}

	return Page{Number: n, Size: size, TotalItems: total, TotalPages: pages}, nil
}

// Offset returns the number of items before this page.
func (p Page) Offset() int {
	return (p.Number - 1) * p.Size
}

// HasPrev returns true if a page precedes this one.
func (p Page) HasPrev() bool {
	return p.Number > 1
}

// HasNext returns true if a page follows this one.
func (p Page) HasNext() bool {
	return p.Number < p.TotalPages
}

// Prev returns the previous page number.
func (p Page) Prev() int {
	return p.Number - 1
}

// Next returns the next page number.
func (p Page) Next() int {
	return p.Number + 1
}
