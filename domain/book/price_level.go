package book

// priceLevel is all resting orders at one price: a FIFO queue plus the
// {quantity, count} aggregate used for cheap feasibility checks.
// Invariant: totalQty equals the sum of remaining over the queue.
type priceLevel struct {
	price    int64
	head     *Order
	tail     *Order
	totalQty int64
	count    int
}

func (p *priceLevel) enqueue(o *Order) {
	if p.head == nil {
		p.head = o
		p.tail = o
	} else {
		p.tail.next = o
		o.prev = p.tail
		p.tail = o
	}
	p.totalQty += o.remaining
	p.count++
}

// unlink removes an order from the queue and charges its remaining
// quantity against the aggregate.
func (p *priceLevel) unlink(o *Order) {
	if o.prev != nil {
		o.prev.next = o.next
	} else {
		p.head = o.next
	}
	if o.next != nil {
		o.next.prev = o.prev
	} else {
		p.tail = o.prev
	}
	o.next = nil
	o.prev = nil
	p.totalQty -= o.remaining
	p.count--
	if p.totalQty < 0 {
		p.totalQty = 0
	}
}

// reduce charges an executed quantity against the aggregate without
// dequeueing (partial fill of the head order).
func (p *priceLevel) reduce(qty int64) {
	p.totalQty -= qty
	if p.totalQty < 0 {
		p.totalQty = 0
	}
}

func (p *priceLevel) empty() bool { return p.head == nil }
