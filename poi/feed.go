package poi

import (
	"sync"

	"github.com/stevemurr/poi-editor-server/geojson"
)

// Subscriber receives a copy of the collection after every change.
type Subscriber func(geojson.Collection)

type subscription struct {
	id int
	fn Subscriber
}

// Feed holds the current collection and delivers it to subscribers.
// Delivery is synchronous and in subscription order. A subscriber may call
// Value or its own unsubscribe func but must not Publish or Subscribe from
// inside the callback.
type Feed struct {
	deliver sync.Mutex // serializes Publish and the initial Subscribe delivery

	mu      sync.Mutex
	current geojson.Collection
	subs    []subscription
	nextID  int
}

func NewFeed(initial geojson.Collection) *Feed {
	return &Feed{current: geojson.NewCollection(initial.Features)}
}

// Value returns a copy of the current collection.
func (f *Feed) Value() geojson.Collection {
	return f.peek().Clone()
}

// peek returns the current collection without copying. Callers must not
// modify it.
func (f *Feed) peek() geojson.Collection {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current
}

// Subscribe registers fn and immediately delivers the current value to it.
func (f *Feed) Subscribe(fn Subscriber) (unsubscribe func()) {
	f.deliver.Lock()
	defer f.deliver.Unlock()

	f.mu.Lock()
	id := f.nextID
	f.nextID++
	f.subs = append(f.subs, subscription{id: id, fn: fn})
	cur := f.current
	f.mu.Unlock()

	fn(cur.Clone())

	var once sync.Once
	return func() {
		once.Do(func() { f.remove(id) })
	}
}

func (f *Feed) remove(id int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, s := range f.subs {
		if s.id == id {
			f.subs = append(f.subs[:i:i], f.subs[i+1:]...)
			return
		}
	}
}

// Publish replaces the current value and notifies every subscriber. The
// collection must not be modified after it is published.
func (f *Feed) Publish(c geojson.Collection) {
	f.deliver.Lock()
	defer f.deliver.Unlock()

	f.mu.Lock()
	f.current = c
	subs := f.subs
	f.mu.Unlock()

	for _, s := range subs {
		s.fn(c.Clone())
	}
}

// Subscribers returns the number of registered subscribers.
func (f *Feed) Subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}
