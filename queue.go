package match

import (
	"github.com/huandu/skiplist"
	"github.com/shopspring/decimal"
)

// orderRef is satisfied by *Bid and *Offer through the embedded Order.
type orderRef interface {
	base() *Order
}

type queueItem[T orderRef] struct {
	order T
	rate  decimal.Decimal
	next  *queueItem[T]
	prev  *queueItem[T]
}

type rateLevel[T orderRef] struct {
	head  *queueItem[T]
	tail  *queueItem[T]
	count int64
}

// queue keeps orders sorted by energy rate; orders on the same rate keep
// their insertion order, so (energy_rate, insertion sequence) is the sort key.
type queue[T orderRef] struct {
	descending  bool
	totalOrders int64
	depthList   *skiplist.SkipList
	items       map[string]*queueItem[T]
}

// newDescendingQueue creates a queue serving the highest rate first.
func newDescendingQueue[T orderRef]() *queue[T] {
	return newQueue[T](true)
}

// newAscendingQueue creates a queue serving the lowest rate first.
func newAscendingQueue[T orderRef]() *queue[T] {
	return newQueue[T](false)
}

func newQueue[T orderRef](descending bool) *queue[T] {
	return &queue[T]{
		descending: descending,
		depthList: skiplist.New(skiplist.GreaterThanFunc(func(lhs, rhs any) int {
			d1, _ := lhs.(decimal.Decimal)
			d2, _ := rhs.(decimal.Decimal)

			if descending {
				return d2.Cmp(d1)
			}
			return d1.Cmp(d2)
		})),
		items: make(map[string]*queueItem[T]),
	}
}

// insertOrder appends an order at the back of its rate level.
// It returns false if an order with the same id is already queued.
func (q *queue[T]) insertOrder(order T) bool {
	o := order.base()
	if _, ok := q.items[o.ID]; ok {
		return false
	}

	item := &queueItem[T]{order: order, rate: o.EnergyRate()}
	if el := q.depthList.Get(item.rate); el != nil {
		level, _ := el.Value.(*rateLevel[T])
		item.prev = level.tail
		level.tail.next = item
		level.tail = item
		level.count++
	} else {
		q.depthList.Set(item.rate, &rateLevel[T]{
			head:  item,
			tail:  item,
			count: 1,
		})
	}

	q.items[o.ID] = item
	q.totalOrders++
	return true
}

// removeOrder removes an order by id and cleans up its rate level if it becomes empty.
func (q *queue[T]) removeOrder(id string) (T, bool) {
	item, ok := q.items[id]
	if !ok {
		var zero T
		return zero, false
	}

	el := q.depthList.Get(item.rate)
	level, _ := el.Value.(*rateLevel[T])

	if item.prev != nil {
		item.prev.next = item.next
	} else {
		level.head = item.next
	}
	if item.next != nil {
		item.next.prev = item.prev
	} else {
		level.tail = item.prev
	}
	item.next = nil
	item.prev = nil

	level.count--
	delete(q.items, id)
	q.totalOrders--

	if level.count == 0 {
		q.depthList.RemoveElement(el)
	}
	return item.order, true
}

// each visits orders in queue order until fn returns false.
func (q *queue[T]) each(fn func(order T) bool) {
	for el := q.depthList.Front(); el != nil; el = el.Next() {
		level, _ := el.Value.(*rateLevel[T])
		for item := level.head; item != nil; item = item.next {
			if !fn(item.order) {
				return
			}
		}
	}
}

// orders returns all queued orders in queue order.
func (q *queue[T]) orders() []T {
	result := make([]T, 0, q.totalOrders)
	q.each(func(order T) bool {
		result = append(result, order)
		return true
	})
	return result
}

// sortedByRate returns orders sorted by rate, ties kept in input order.
// Orders repeating an earlier id are dropped.
func sortedByRate[T orderRef](orders []T, descending bool) []T {
	q := newQueue[T](descending)
	for _, order := range orders {
		q.insertOrder(order)
	}
	return q.orders()
}
