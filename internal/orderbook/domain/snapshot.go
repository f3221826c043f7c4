package domain

import "math/big"

// Record is a single persisted order, carrying its arena links
// explicitly so a restored book doesn't need to re-sort.
type Record struct {
	ID    ID
	Price *big.Int
	Size  *big.Int
	Buyer string
	Prev  ID
	Next  ID
}

// Snapshot is the book's persisted representation.
type Snapshot struct {
	Records []Record
	Head    ID
	Tail    ID
	NextID  ID
	Length  uint64
}

// ToSnapshot copies every live order out with its prev/next links.
// Records are in no particular order; the links and Head/Tail carry the
// book order.
func (b *Book) ToSnapshot() Snapshot {
	records := make([]Record, 0, len(b.records))
	for id, node := range b.records {
		records = append(records, Record{ID: id, Price: node.Price, Size: node.Size, Buyer: node.Buyer, Prev: node.prev, Next: node.next})
	}
	return Snapshot{Records: records, Head: b.head, Tail: b.tail, NextID: b.nextID, Length: b.length}
}

// RestoreFromSnapshot rebuilds a book from a prior ToSnapshot call
// without re-deriving the price ordering — the snapshot's prev/next
// links are trusted as-is.
func RestoreFromSnapshot(s Snapshot) *Book {
	b := New()
	b.head = s.Head
	b.tail = s.Tail
	b.nextID = s.NextID
	b.length = s.Length
	for _, r := range s.Records {
		b.records[r.ID] = &Order{ID: r.ID, Price: r.Price, Size: r.Size, Buyer: r.Buyer, prev: r.Prev, next: r.Next}
	}
	return b
}
