// Package domain implements the auction order book as an arena of
// id-indexed records rather than pointer-linked nodes, per the vault's
// "order book as arena" design note: records are kept in a map keyed by
// a monotonically issued id, with explicit prev/next id fields standing
// in for the array-based prev[]/next[] index the note describes. This
// avoids cyclic ownership between *Order values and gives Remove/GetByID
// predictable, allocation-free lookups once a book is warm.
//
// Grounded on the intrusive-linked-list PriceLevel arena pattern (head,
// tail ids, explicit Prev/Next fields per order) used by order-matching
// engines in the retrieved corpus.
package domain

import (
	"math/big"
)

// ID is an order book identifier. 0 is the null sentinel; ids are issued
// in strictly increasing order per book and are never reused.
type ID uint64

// Order is a single resting order in the book.
type Order struct {
	ID    ID
	Price *big.Int // signed 64.64 bits, see internal/fixedmath
	Size  *big.Int
	Buyer string

	prev ID
	next ID
}

// Data is the externally visible snapshot of an order; absent ids
// decode to the zero value.
type Data struct {
	ID    ID
	Price *big.Int
	Size  *big.Int
	Buyer string
}

// Book is a price-sorted, FIFO-within-price order arena for a single
// auction epoch.
type Book struct {
	records map[ID]*Order
	head    ID
	tail    ID
	nextID  ID
	length  uint64
}

// New returns an empty order book.
func New() *Book {
	return &Book{records: make(map[ID]*Order)}
}

// Insert issues a fresh id, creates a node for (price, size, buyer), and
// splices it into the list immediately after the last node whose price
// is >= the new price — i.e. at the first position whose successor has
// strictly lower price. This preserves FIFO ordering among orders that
// share the same price.
func (b *Book) Insert(price, size *big.Int, buyer string) ID {
	b.nextID++
	id := b.nextID
	node := &Order{ID: id, Price: new(big.Int).Set(price), Size: new(big.Int).Set(size), Buyer: buyer}
	b.records[id] = node

	if b.head == 0 {
		b.head = id
		b.tail = id
		b.length++
		return id
	}

	var prev ID
	cur := b.head
	for cur != 0 {
		curNode := b.records[cur]
		if curNode.Price.Cmp(price) < 0 {
			break
		}
		prev = cur
		cur = curNode.next
	}

	node.prev = prev
	node.next = cur
	if prev == 0 {
		b.head = id
	} else {
		b.records[prev].next = id
	}
	if cur == 0 {
		b.tail = id
	} else {
		b.records[cur].prev = id
	}
	b.length++
	return id
}

// Remove unlinks and deletes the node for id, returning false iff id was
// not present.
func (b *Book) Remove(id ID) bool {
	node, ok := b.records[id]
	if !ok {
		return false
	}
	if node.prev == 0 {
		b.head = node.next
	} else {
		b.records[node.prev].next = node.next
	}
	if node.next == 0 {
		b.tail = node.prev
	} else {
		b.records[node.next].prev = node.prev
	}
	delete(b.records, id)
	b.length--
	return true
}

// Head returns the highest-price live id, or 0 if the book is empty.
func (b *Book) Head() ID { return b.head }

// Length returns the number of live orders.
func (b *Book) Length() *big.Int { return new(big.Int).SetUint64(b.length) }

// GetOrderByID returns a snapshot of the order for id, or the zero Data
// tuple if absent.
func (b *Book) GetOrderByID(id ID) Data {
	node, ok := b.records[id]
	if !ok {
		return Data{}
	}
	return Data{ID: node.ID, Price: new(big.Int).Set(node.Price), Size: new(big.Int).Set(node.Size), Buyer: node.Buyer}
}

// GetPreviousOrder returns the id preceding id in price/FIFO order, or 0
// at the head or for an absent id.
func (b *Book) GetPreviousOrder(id ID) ID {
	node, ok := b.records[id]
	if !ok {
		return 0
	}
	return node.prev
}

// GetNextOrder returns the id following id, or 0 at the tail or for an
// absent id.
func (b *Book) GetNextOrder(id ID) ID {
	node, ok := b.records[id]
	if !ok {
		return 0
	}
	return node.next
}

// Walk calls fn for every live order from head to tail, stopping early
// if fn returns false.
func (b *Book) Walk(fn func(Data) bool) {
	cur := b.head
	for cur != 0 {
		node := b.records[cur]
		if !fn(Data{ID: node.ID, Price: node.Price, Size: node.Size, Buyer: node.Buyer}) {
			return
		}
		cur = node.next
	}
}
