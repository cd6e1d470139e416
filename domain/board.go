package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Board is the top level container. Lists are embedded; their lifecycle is
// bound to the board document.
type Board struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Owner     string    `json:"owner"`
	Members   []string  `json:"members"`
	Invites   []string  `json:"invites"`
	Lists     []List    `json:"lists"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// List is an ordered lane inside a board. Cards holds card ids in display
// order; the referenced cards live in their own table.
type List struct {
	ID    string   `json:"id"`
	Title string   `json:"title"`
	Order int      `json:"order"`
	Cards []string `json:"cards"`
}

// Card is a task unit. ListID and BoardID are back-references; ListID must
// agree with the owning list's card sequence.
type Card struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	ListID      string     `json:"listId"`
	BoardID     string     `json:"boardId"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	Labels      []string   `json:"labels"`
	CreatedBy   string     `json:"createdBy"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// CardInput carries caller supplied fields for card creation.
type CardInput struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	DueDate     *time.Time `json:"dueDate"`
	Labels      []string   `json:"labels"`
}

var defaultListTitles = []string{"To Do", "In Progress", "Done"}

// NewBoard creates a board with the three default lists and the creator as
// owner and sole member.
func NewBoard(title, owner string, now time.Time) Board {
	lists := make([]List, 0, len(defaultListTitles))
	for i, t := range defaultListTitles {
		lists = append(lists, List{ID: uuid.NewString(), Title: t, Order: i, Cards: []string{}})
	}
	return Board{
		ID:        uuid.NewString(),
		Title:     strings.TrimSpace(title),
		Owner:     owner,
		Members:   []string{owner},
		Invites:   []string{},
		Lists:     lists,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IsMember reports whether the user owns the board or appears in its member set.
func (b *Board) IsMember(userID string) bool {
	if userID == "" {
		return false
	}
	if b.Owner == userID {
		return true
	}
	for _, m := range b.Members {
		if m == userID {
			return true
		}
	}
	return false
}

// FindList returns the embedded list with the given id, or nil.
func (b *Board) FindList(listID string) *List {
	for i := range b.Lists {
		if b.Lists[i].ID == listID {
			return &b.Lists[i]
		}
	}
	return nil
}

// RemoveCard drops the card id from the list's sequence. Removing an absent
// id is a no-op.
func (l *List) RemoveCard(cardID string) {
	kept := l.Cards[:0]
	for _, id := range l.Cards {
		if id != cardID {
			kept = append(kept, id)
		}
	}
	l.Cards = kept
}

// normalizeLabels lowercases, trims and deduplicates labels, preserving the
// first occurrence order.
func normalizeLabels(labels []string) []string {
	out := make([]string, 0, len(labels))
	seen := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		l = strings.ToLower(strings.TrimSpace(l))
		if l == "" {
			continue
		}
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	return out
}
