package session

// PaginationCursor tracks backward ("load older") pagination state. Page 0 is
// the newest page; the cursor's pageIndex is the highest page already loaded.
type PaginationCursor struct {
	pageIndex    int
	pageSize     int
	hasMoreOlder bool
}

// NewPaginationCursor creates a cursor at page 0 with older pages assumed to
// exist until a fetch proves otherwise.
func NewPaginationCursor(pageSize int) *PaginationCursor {
	return &PaginationCursor{pageSize: pageSize, hasMoreOlder: true}
}

// Reset restores the initial state. The Controller resets the cursor together
// with clearing the message store whenever the active conversation changes.
func (c *PaginationCursor) Reset() {
	c.pageIndex = 0
	c.hasMoreOlder = true
}

// Advance records a successfully loaded older page.
func (c *PaginationCursor) Advance(isLastPage bool) {
	c.pageIndex++
	c.hasMoreOlder = !isLastPage
}

// NoteLastPage records the last-page flag of the initial page-0 fetch without
// moving the index.
func (c *PaginationCursor) NoteLastPage(isLastPage bool) {
	c.hasMoreOlder = !isLastPage
}

// MarkExhausted forces hasMoreOlder to false. Used when a backward fetch
// fails, so a failing scroll cannot loop; the UI may offer a manual retry by
// calling Reset through a full reopen.
func (c *PaginationCursor) MarkExhausted() {
	c.hasMoreOlder = false
}

// PageIndex returns the highest loaded page index.
func (c *PaginationCursor) PageIndex() int {
	return c.pageIndex
}

// PageSize returns the fixed page size.
func (c *PaginationCursor) PageSize() int {
	return c.pageSize
}

// HasMoreOlder reports whether older pages remain to fetch.
func (c *PaginationCursor) HasMoreOlder() bool {
	return c.hasMoreOlder
}
