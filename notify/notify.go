// Package notify delivers session events to the embedding application.
// Sinks are registered per session id and removed explicitly; nothing is
// held in package-level state.
package notify

import (
	"sync"

	"github.com/vitwit/paysession/types"
)

// Sink observes one session. Return values are never consumed.
type Sink interface {
	OnStatus(sessionID string, status types.Status)
	OnTick(sessionID string, remaining int)
	OnSuccess(payload types.SuccessPayload)
	OnError(sessionID string, err *types.PaymentError)
}

// Funcs adapts optional callbacks to a Sink.
type Funcs struct {
	Status  func(sessionID string, status types.Status)
	Tick    func(sessionID string, remaining int)
	Success func(payload types.SuccessPayload)
	Error   func(sessionID string, err *types.PaymentError)
}

var _ Sink = Funcs{}

func (f Funcs) OnStatus(id string, s types.Status) {
	if f.Status != nil {
		f.Status(id, s)
	}
}

func (f Funcs) OnTick(id string, remaining int) {
	if f.Tick != nil {
		f.Tick(id, remaining)
	}
}

func (f Funcs) OnSuccess(p types.SuccessPayload) {
	if f.Success != nil {
		f.Success(p)
	}
}

func (f Funcs) OnError(id string, err *types.PaymentError) {
	if f.Error != nil {
		f.Error(id, err)
	}
}

type entry struct {
	id   uint64
	sink Sink
}

// Registry maps session ids to their sinks.
type Registry struct {
	mu     sync.RWMutex
	nextID uint64
	sinks  map[string][]entry
}

func NewRegistry() *Registry {
	return &Registry{sinks: make(map[string][]entry)}
}

// Register adds sink for sessionID. The returned func removes it and is
// safe to call more than once.
func (r *Registry) Register(sessionID string, sink Sink) (unregister func()) {
	r.mu.Lock()
	r.nextID++
	id := r.nextID
	r.sinks[sessionID] = append(r.sinks[sessionID], entry{id: id, sink: sink})
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { r.remove(sessionID, id) })
	}
}

func (r *Registry) remove(sessionID string, id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries := r.sinks[sessionID]
	for i, e := range entries {
		if e.id == id {
			entries = append(entries[:i], entries[i+1:]...)
			break
		}
	}
	if len(entries) == 0 {
		delete(r.sinks, sessionID)
		return
	}
	r.sinks[sessionID] = entries
}

// Unregister drops every sink of sessionID.
func (r *Registry) Unregister(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sinks, sessionID)
}

// Len returns the number of sessions with at least one sink.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sinks)
}

func (r *Registry) snapshot(sessionID string) []Sink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := r.sinks[sessionID]
	out := make([]Sink, len(entries))
	for i, e := range entries {
		out[i] = e.sink
	}
	return out
}

func (r *Registry) Status(sessionID string, status types.Status) {
	for _, s := range r.snapshot(sessionID) {
		s.OnStatus(sessionID, status)
	}
}

func (r *Registry) Tick(sessionID string, remaining int) {
	for _, s := range r.snapshot(sessionID) {
		s.OnTick(sessionID, remaining)
	}
}

func (r *Registry) Success(payload types.SuccessPayload) {
	for _, s := range r.snapshot(payload.SessionID) {
		s.OnSuccess(payload)
	}
}

func (r *Registry) Error(sessionID string, err *types.PaymentError) {
	for _, s := range r.snapshot(sessionID) {
		s.OnError(sessionID, err)
	}
}
