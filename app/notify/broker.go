package notify

import (
	"sync"
	"time"
)

// PaymentNotice is the fan-out event published once per processed payment.
// The globe viewer renders one shipment arc per notice.
type PaymentNotice struct {
	ID            string    `json:"id"`
	TransactionID string    `json:"transaction_id"`
	PropID        int64     `json:"prop_id"`
	PropName      string    `json:"prop_name"`
	FromCity      string    `json:"from_city"`
	FromCountry   string    `json:"from_country"`
	Amount        int64     `json:"amount"`
	OccurredAt    time.Time `json:"occurred_at"`
}

const subscriberBuffer = 16

// Broker is a minimal in-process observer. Publish never blocks: a
// subscriber that stops draining its channel loses notices rather than
// stalling the dispatcher.
type Broker struct {
	mu     sync.Mutex
	subs   map[uint64]chan PaymentNotice
	nextID uint64
	closed bool
}

func NewBroker() *Broker {
	return &Broker{subs: map[uint64]chan PaymentNotice{}}
}

// Subscribe returns a receive channel and an unsubscribe func. The channel
// is closed on unsubscribe and on broker Close.
func (b *Broker) Subscribe() (<-chan PaymentNotice, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		ch := make(chan PaymentNotice)
		close(ch)
		return ch, func() {}
	}

	id := b.nextID
	b.nextID++
	ch := make(chan PaymentNotice, subscriberBuffer)
	b.subs[id] = ch

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if sub, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(sub)
			}
		})
	}

	return ch, unsubscribe
}

func (b *Broker) Publish(notice PaymentNotice) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	for _, sub := range b.subs {
		select {
		case sub <- notice:
		default:
		}
	}
}

func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for id, sub := range b.subs {
		delete(b.subs, id)
		close(sub)
	}
}
