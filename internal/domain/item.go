package domain

import (
	"strings"
	"time"
)

// Primary level bounds, inclusive.
const (
	MinPrimaryLevel = 1
	MaxPrimaryLevel = 6
)

// Item is a school supply owned by a single user.
type Item struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Type         string    `json:"type"`
	PrimaryLevel int       `json:"primaryLevel"`
	Comment      string    `json:"comment"`
	Acquired     bool      `json:"acquired"`
	CreatedAt    time.Time `json:"createdAt"`
	Owner        string    `json:"owner"`
}

// ItemPatch lists the mutable fields of an item; nil fields are left untouched.
type ItemPatch struct {
	Name     *string
	Type     *string
	Comment  *string
	Acquired *bool
}

// Empty reports whether the patch changes nothing.
func (p ItemPatch) Empty() bool {
	return p.Name == nil && p.Type == nil && p.Comment == nil && p.Acquired == nil
}

// Apply copies the provided fields onto item.
func (p ItemPatch) Apply(item *Item) {
	if p.Name != nil {
		item.Name = *p.Name
	}
	if p.Type != nil {
		item.Type = *p.Type
	}
	if p.Comment != nil {
		item.Comment = *p.Comment
	}
	if p.Acquired != nil {
		item.Acquired = *p.Acquired
	}
}

// SortKey orders item listings.
type SortKey string

const (
	// SortNone keeps storage order (oldest first).
	SortNone SortKey = ""
	// SortName orders by name ascending.
	SortName SortKey = "name"
	// SortType orders by type ascending.
	SortType SortKey = "type"
	// SortCreatedAt orders newest first.
	SortCreatedAt SortKey = "createdAt"
)

// ParseSortKey maps client input to a SortKey. Unknown or empty input sorts by name.
func ParseSortKey(value string) SortKey {
	switch SortKey(strings.TrimSpace(value)) {
	case SortType:
		return SortType
	case SortCreatedAt:
		return SortCreatedAt
	default:
		return SortName
	}
}

// ItemQuery selects items of one owner. Owner is always applied; the other
// filters are combined with AND when set.
type ItemQuery struct {
	Owner string
	Level *int
	// Text matches name, type or comment as a case-insensitive substring.
	Text string
	// Type must equal the item type exactly.
	Type string
	Sort SortKey
}

// Matches evaluates the query predicate against a single item.
func (q ItemQuery) Matches(item Item) bool {
	if item.Owner != q.Owner {
		return false
	}
	if q.Level != nil && item.PrimaryLevel != *q.Level {
		return false
	}
	if q.Text != "" {
		needle := strings.ToLower(q.Text)
		if !strings.Contains(strings.ToLower(item.Name), needle) &&
			!strings.Contains(strings.ToLower(item.Type), needle) &&
			!strings.Contains(strings.ToLower(item.Comment), needle) {
			return false
		}
	}
	if q.Type != "" && item.Type != q.Type {
		return false
	}
	return true
}

// Less reports whether a sorts before b under key. SortNone orders by creation.
func (k SortKey) Less(a, b Item) bool {
	switch k {
	case SortName:
		return a.Name < b.Name
	case SortType:
		return a.Type < b.Type
	case SortCreatedAt:
		return a.CreatedAt.After(b.CreatedAt)
	default:
		return a.CreatedAt.Before(b.CreatedAt)
	}
}
