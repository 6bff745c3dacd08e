package notification

import (
	"context"
	"sort"
	"sync"

	"github.com/frahmantamala/plant-maintenance/internal/auth"
)

type broadcast struct {
	n        Notification
	audience map[auth.Role]bool
	readBy   map[string]bool
}

// Inbox keeps the most recent notifications per recipient in memory.
// Older entries are dropped once a recipient holds capacity of them.
type Inbox struct {
	mu         sync.RWMutex
	capacity   int
	personal   map[string][]*Notification
	broadcasts []*broadcast
}

func NewInbox(capacity int) *Inbox {
	if capacity <= 0 {
		capacity = 100
	}
	return &Inbox{
		capacity: capacity,
		personal: make(map[string][]*Notification),
	}
}

// Deliver stores the job's notification for its recipient or audience.
func (b *Inbox) Deliver(ctx context.Context, job Job) error {
	n := job.Notification

	b.mu.Lock()
	defer b.mu.Unlock()

	if len(job.Audience) > 0 {
		audience := make(map[auth.Role]bool, len(job.Audience))
		for _, r := range job.Audience {
			audience[r] = true
		}
		b.broadcasts = append(b.broadcasts, &broadcast{n: n, audience: audience, readBy: map[string]bool{}})
		if over := len(b.broadcasts) - b.capacity; over > 0 {
			b.broadcasts = b.broadcasts[over:]
		}
		return nil
	}

	list := append(b.personal[n.RecipientID], &n)
	if over := len(list) - b.capacity; over > 0 {
		list = list[over:]
	}
	b.personal[n.RecipientID] = list
	return nil
}

// List returns p's notifications, newest first.
func (b *Inbox) List(p *auth.Principal) []Notification {
	if p == nil {
		return []Notification{}
	}

	b.mu.RLock()
	out := make([]Notification, 0, len(b.personal[p.ID]))
	for _, n := range b.personal[p.ID] {
		out = append(out, *n)
	}
	for _, bc := range b.broadcasts {
		if !bc.audience[p.Role] {
			continue
		}
		n := bc.n
		n.RecipientID = p.ID
		n.Read = bc.readBy[p.ID]
		out = append(out, n)
	}
	b.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (b *Inbox) Unread(p *auth.Principal) int {
	count := 0
	for _, n := range b.List(p) {
		if !n.Read {
			count++
		}
	}
	return count
}

func (b *Inbox) MarkRead(p *auth.Principal, id string) error {
	if p == nil {
		return auth.ErrProfileNotFound
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, n := range b.personal[p.ID] {
		if n.ID == id {
			n.Read = true
			return nil
		}
	}
	for _, bc := range b.broadcasts {
		if bc.n.ID == id && bc.audience[p.Role] {
			bc.readBy[p.ID] = true
			return nil
		}
	}
	return ErrNotificationNotFound
}
