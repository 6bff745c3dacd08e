// Package inventory holds the stock rule applied when a maintenance task is completed.
package inventory

import "time"

// Consumption is one part line on a task.
type Consumption struct {
	PartID   string `json:"part_id"`
	Quantity int    `json:"quantity"`
}

// PartUpdate is the stock write produced for one consumed part.
type PartUpdate struct {
	PartID        string    `json:"part_id"`
	PreviousStock int       `json:"previous_stock"`
	NewStock      int       `json:"new_stock"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ApplyCompletion decrements stock for every consumed part, flooring at zero.
// Parts missing from stock are skipped and reported in the second return value.
// Repeated lines for one part are charged against the running stock and yield a
// single update per part, in first-seen order.
func ApplyCompletion(consumptions []Consumption, stock map[string]int, now time.Time) (updates []PartUpdate, skipped []string) {
	running := make(map[string]int, len(consumptions))
	index := make(map[string]int, len(consumptions))

	for _, c := range consumptions {
		current, ok := running[c.PartID]
		if !ok {
			current, ok = stock[c.PartID]
			if !ok {
				skipped = append(skipped, c.PartID)
				continue
			}
		}

		next := Decrement(current, c.Quantity)
		running[c.PartID] = next

		if i, seen := index[c.PartID]; seen {
			updates[i].NewStock = next
			continue
		}
		index[c.PartID] = len(updates)
		updates = append(updates, PartUpdate{
			PartID:        c.PartID,
			PreviousStock: current,
			NewStock:      next,
			UpdatedAt:     now,
		})
	}

	return updates, skipped
}

// Decrement returns max(0, stock-quantity). A non-positive quantity leaves stock unchanged.
func Decrement(stock, quantity int) int {
	if quantity <= 0 {
		return stock
	}
	if quantity >= stock {
		return 0
	}
	return stock - quantity
}

// Merge collapses duplicate part lines, summing their quantities.
func Merge(consumptions []Consumption) []Consumption {
	out := make([]Consumption, 0, len(consumptions))
	index := make(map[string]int, len(consumptions))
	for _, c := range consumptions {
		if i, ok := index[c.PartID]; ok {
			out[i].Quantity += c.Quantity
			continue
		}
		index[c.PartID] = len(out)
		out = append(out, c)
	}
	return out
}

// PartIDs returns the distinct part ids consumed, in first-seen order.
func PartIDs(consumptions []Consumption) []string {
	merged := Merge(consumptions)
	ids := make([]string, len(merged))
	for i, c := range merged {
		ids[i] = c.PartID
	}
	return ids
}

// IsLow reports whether stock has reached the reorder threshold.
func IsLow(stock, threshold int) bool {
	return threshold > 0 && stock <= threshold
}
