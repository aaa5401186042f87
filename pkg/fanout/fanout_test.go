package fanout

import (
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func newTestDispatcher() *Dispatcher {
	nop := zerolog.Nop()
	return NewDispatcher(&nop)
}

func TestPublishDeliversToAllSubscribers(t *testing.T) {
	d := newTestDispatcher()

	var wg sync.WaitGroup
	wg.Add(2)

	var mu sync.Mutex
	received := make(map[int]Event)

	for i := 0; i < 2; i++ {
		i := i
		d.Subscribe("beds.changed", func(evt Event) {
			mu.Lock()
			received[i] = evt
			mu.Unlock()
			wg.Done()
		})
	}

	d.Publish(Event{Topic: "beds.changed", Payload: "payload"})

	waitTimeout(t, &wg, time.Second)
	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, received, 2)
	for _, evt := range received {
		assert.Equal(t, "payload", evt.Payload)
		assert.NotZero(t, evt.ID)
		assert.False(t, evt.OccurredAt.IsZero())
	}
}

func TestPublishRespectsTopics(t *testing.T) {
	d := newTestDispatcher()

	var wg sync.WaitGroup
	wg.Add(1)

	var mu sync.Mutex
	var got []string

	d.Subscribe("a", func(evt Event) {
		mu.Lock()
		got = append(got, evt.Topic)
		mu.Unlock()
		wg.Done()
	})
	d.Subscribe("b", func(evt Event) {
		t.Error("subscriber on topic b must not receive topic a events")
	})

	d.Publish(Event{Topic: "a"})

	waitTimeout(t, &wg, time.Second)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"a"}, got)
}

func TestDeliveryPreservesPublishOrder(t *testing.T) {
	d := newTestDispatcher()

	const n = 50
	var wg sync.WaitGroup
	wg.Add(n)

	var mu sync.Mutex
	var order []int

	d.Subscribe("ordered", func(evt Event) {
		mu.Lock()
		order = append(order, evt.Payload.(int))
		mu.Unlock()
		wg.Done()
	})

	for i := 0; i < n; i++ {
		d.Publish(Event{Topic: "ordered", Payload: i})
	}

	waitTimeout(t, &wg, 2*time.Second)
	mu.Lock()
	defer mu.Unlock()
	for i := 0; i < n; i++ {
		assert.Equal(t, i, order[i])
	}
}

func TestPanickingSubscriberIsIsolated(t *testing.T) {
	d := newTestDispatcher()

	var wg sync.WaitGroup
	wg.Add(2)

	d.Subscribe("risky", func(evt Event) {
		defer wg.Done()
		panic("boom")
	})

	var mu sync.Mutex
	var healthyCount int
	d.Subscribe("risky", func(evt Event) {
		mu.Lock()
		healthyCount++
		mu.Unlock()
		wg.Done()
	})

	d.Publish(Event{Topic: "risky"})

	waitTimeout(t, &wg, time.Second)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, healthyCount)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	d := newTestDispatcher()

	var mu sync.Mutex
	var count int
	sub := d.Subscribe("t", func(evt Event) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	d.Unsubscribe(sub)
	d.Publish(Event{Topic: "t"})

	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 0, count)
}

func waitTimeout(t *testing.T, wg *sync.WaitGroup, timeout time.Duration) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
		t.Fatal("timed out waiting for deliveries")
	}
}
