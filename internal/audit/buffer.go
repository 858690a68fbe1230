package audit

import "sync"

// RingBuffer is a bounded, thread-safe FIFO of entries awaiting streaming.
// When full, the oldest entry is dropped to make room.
type RingBuffer struct {
	mu       sync.Mutex
	entries  []Entry
	head     int
	tail     int
	count    int
	capacity int
	dropped  int64
}

func NewRingBuffer(capacity int) *RingBuffer {
	if capacity <= 0 {
		capacity = 10000
	}
	return &RingBuffer{
		entries:  make([]Entry, capacity),
		capacity: capacity,
	}
}

// Enqueue adds an entry, dropping the oldest if the buffer is full.
func (b *RingBuffer) Enqueue(e Entry) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.count == b.capacity {
		b.entries[b.tail] = Entry{}
		b.tail = (b.tail + 1) % b.capacity
		b.count--
		b.dropped++
	}
	b.entries[b.head] = e
	b.head = (b.head + 1) % b.capacity
	b.count++
}

// Requeue puts entries back at the front, oldest first, without evicting newer entries.
// Entries that do not fit are counted as dropped.
func (b *RingBuffer) Requeue(batch []Entry) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i := len(batch) - 1; i >= 0; i-- {
		if b.count == b.capacity {
			b.dropped += int64(i + 1)
			return
		}
		b.tail = (b.tail - 1 + b.capacity) % b.capacity
		b.entries[b.tail] = batch[i]
		b.count++
	}
}

// DequeueBatch removes up to n entries, oldest first.
func (b *RingBuffer) DequeueBatch(n int) []Entry {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.count == 0 {
		return nil
	}
	n = min(n, b.count)
	out := make([]Entry, n)
	for i := range n {
		out[i] = b.entries[b.tail]
		b.entries[b.tail] = Entry{}
		b.tail = (b.tail + 1) % b.capacity
	}
	b.count -= n
	return out
}

func (b *RingBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

func (b *RingBuffer) Dropped() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}
