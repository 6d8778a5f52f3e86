package processor

import (
	"sync"
)

// instrumentState is the rolling per-symbol state. The *Prev fields always
// hold the values immediately preceding the current price/oi. Owned
// exclusively by the engine's ingest worker.
type instrumentState struct {
	price       float64
	pricePrev   float64
	oi          int64
	oiPrev      int64
	initialized bool
}

type stateStore struct {
	states map[string]*instrumentState
}

func newStateStore() *stateStore {
	return &stateStore{states: make(map[string]*instrumentState)}
}

// get returns the state for symbol, creating an uninitialized entry on
// first sight.
func (s *stateStore) get(symbol string) *instrumentState {
	st, ok := s.states[symbol]
	if !ok {
		st = &instrumentState{}
		s.states[symbol] = st
	}
	return st
}

// futurePriceTable holds the latest observed future price per underlying.
// Zero means the price has not been seen yet. Written by the ingest worker
// when a future tick arrives; read during classification.
type futurePriceTable struct {
	mu     sync.RWMutex
	prices map[string]float64
}

func newFuturePriceTable() *futurePriceTable {
	return &futurePriceTable{prices: make(map[string]float64)}
}

// Set records the latest future price for an underlying, latest wins.
func (t *futurePriceTable) Set(underlying string, price float64) {
	t.mu.Lock()
	t.prices[underlying] = price
	t.mu.Unlock()
}

// Get returns the latest future price, 0 when unknown.
func (t *futurePriceTable) Get(underlying string) float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.prices[underlying]
}
