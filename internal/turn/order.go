// Package turn tracks initiative order and produces the participant whose
// turn is current.
package turn

// Order cycles through participants. Rounds count from 1 and advance when
// the order wraps.
type Order struct {
	ids     []string
	current int
	round   int

	// Callbacks
	OnTurnStart func(id string, round int)
}

// NewOrder creates an order over ids. Duplicates and empty ids are dropped.
func NewOrder(ids []string) *Order {
	o := &Order{}
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		o.ids = append(o.ids, id)
	}
	if len(o.ids) > 0 {
		o.round = 1
	}
	return o
}

// Current returns the participant whose turn it is, or "" for an empty order.
func (o *Order) Current() string {
	if len(o.ids) == 0 {
		return ""
	}
	return o.ids[o.current]
}

// Round returns the current round number, 0 for an empty order.
func (o *Order) Round() int {
	return o.round
}

// Participants returns the order's ids.
func (o *Order) Participants() []string {
	out := make([]string, len(o.ids))
	copy(out, o.ids)
	return out
}

// Next advances to the following participant and returns it.
func (o *Order) Next() string {
	if len(o.ids) == 0 {
		return ""
	}
	o.current++
	if o.current >= len(o.ids) {
		o.current = 0
		o.round++
	}
	id := o.ids[o.current]
	if o.OnTurnStart != nil {
		o.OnTurnStart(id, o.round)
	}
	return id
}

// Add appends a participant at the end of the order.
func (o *Order) Add(id string) {
	if id == "" {
		return
	}
	for _, existing := range o.ids {
		if existing == id {
			return
		}
	}
	o.ids = append(o.ids, id)
	if o.round == 0 {
		o.round = 1
	}
}

// Remove drops a participant. Removing the current participant hands the
// turn to the one after it without firing OnTurnStart.
func (o *Order) Remove(id string) bool {
	for i, existing := range o.ids {
		if existing != id {
			continue
		}
		o.ids = append(o.ids[:i], o.ids[i+1:]...)
		if i < o.current {
			o.current--
		}
		if o.current >= len(o.ids) {
			o.current = 0
		}
		if len(o.ids) == 0 {
			o.round = 0
		}
		return true
	}
	return false
}
