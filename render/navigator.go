package render

// Navigator tracks the displayed page of a multi-page document.
type Navigator struct {
	current int
	count   int
}

// NewNavigator returns a navigator over count pages, positioned on page 0.
func NewNavigator(count int) *Navigator {
	n := &Navigator{}
	n.SetCount(count)
	return n
}

// Current returns the displayed page index.
func (n *Navigator) Current() int { return n.current }

// Count returns the number of pages, at least 1.
func (n *Navigator) Count() int { return n.count }

// SetCount changes the page count and clamps the current page into range.
func (n *Navigator) SetCount(count int) {
	if count < 1 {
		count = 1
	}
	n.count = count
	n.Go(n.current)
}

// Go moves to page i, clamped to [0, Count). It returns the resulting page.
func (n *Navigator) Go(i int) int {
	switch {
	case i < 0:
		i = 0
	case i >= n.count:
		i = n.count - 1
	}
	n.current = i
	return i
}

// Next advances one page if possible.
func (n *Navigator) Next() int { return n.Go(n.current + 1) }

// Prev goes back one page if possible.
func (n *Navigator) Prev() int { return n.Go(n.current - 1) }

// HasNext reports whether a later page exists.
func (n *Navigator) HasNext() bool { return n.current < n.count-1 }

// HasPrev reports whether an earlier page exists.
func (n *Navigator) HasPrev() bool { return n.current > 0 }
