package models

// DocumentIndex resolves element ids against one run's document array.
// When ids repeat, the earliest element wins.
type DocumentIndex struct {
	byID map[string]*Element
}

// NewDocumentIndex indexes elements without copying them.
func NewDocumentIndex(elements []Element) *DocumentIndex {
	idx := &DocumentIndex{byID: make(map[string]*Element, len(elements))}
	for i := range elements {
		id := elements[i].ElementID
		if _, seen := idx.byID[id]; seen {
			continue
		}
		idx.byID[id] = &elements[i]
	}
	return idx
}

// Lookup returns the element with the exact id.
func (d *DocumentIndex) Lookup(id string) (*Element, bool) {
	if d == nil {
		return nil, false
	}
	el, ok := d.byID[id]
	return el, ok
}

// Len is the number of distinct ids.
func (d *DocumentIndex) Len() int {
	if d == nil {
		return 0
	}
	return len(d.byID)
}
