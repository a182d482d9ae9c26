package autosearch

import (
	"log"
	"sort"
	"sync"
	"time"
)

// EventType names one step of the search pipeline's progress stream.
type EventType string

const (
	EventSearchStarted       EventType = "search_started"
	EventSearchResultsFound  EventType = "search_results_found"
	EventScrapingStarted     EventType = "scraping_started"
	EventScrapingCompleted   EventType = "scraping_completed"
	EventProcessingStarted   EventType = "processing_started"
	EventProcessingCompleted EventType = "processing_completed"
	EventSearchCompleted     EventType = "search_completed"
	EventSearchError         EventType = "search_error"
)

// Event is one progress notification. SearchID ties the events of a
// single PerformSearch run together.
type Event struct {
	Type      EventType `json:"type"`
	SearchID  string    `json:"search_id"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload,omitempty"`
}

// Payloads carried by the event types above.
type (
	SearchStartedPayload struct {
		Query     string `json:"query"`
		Optimized string `json:"optimized"`
	}
	SearchResultsFoundPayload struct {
		Query   string `json:"query"`
		Results int    `json:"results"`
	}
	ScrapingStartedPayload struct {
		URLs int `json:"urls"`
	}
	ScrapingCompletedPayload struct {
		Succeeded int `json:"succeeded"`
		Failed    int `json:"failed"`
	}
	ProcessingStartedPayload struct {
		Pages int `json:"pages"`
	}
	ProcessingCompletedPayload struct {
		TotalChunks    int `json:"total_chunks"`
		SelectedChunks int `json:"selected_chunks"`
	}
	SearchCompletedPayload struct {
		Query     string `json:"query"`
		Chunks    int    `json:"chunks"`
		Sources   int    `json:"sources"`
		Cached    bool   `json:"cached"`
		ElapsedMS int64  `json:"elapsed_ms"`
	}
	SearchErrorPayload struct {
		Query string `json:"query"`
		Phase string `json:"phase"`
		Error string `json:"error"`
	}
)

// Listener receives emitted events.
type Listener func(Event)

// Emitter fans events out to per-type listeners plus a catch-all set.
// Listeners are isolated from each other: one panicking listener is
// logged and the rest still run.
type Emitter struct {
	mu     sync.RWMutex
	nextID int
	byType map[EventType]map[int]Listener
	all    map[int]Listener
	logger *log.Logger
}

// NewEmitter builds an empty emitter.
func NewEmitter(logger *log.Logger) *Emitter {
	if logger == nil {
		logger = log.New(log.Writer(), "[EVENTS] ", log.LstdFlags)
	}
	return &Emitter{
		byType: make(map[EventType]map[int]Listener),
		all:    make(map[int]Listener),
		logger: logger,
	}
}

// On subscribes to one event type and returns an unsubscribe func.
func (e *Emitter) On(t EventType, fn Listener) func() {
	e.mu.Lock()
	defer e.mu.Unlock()
	id := e.nextID
	e.nextID++
	set, ok := e.byType[t]
	if !ok {
		set = make(map[int]Listener)
		e.byType[t] = set
	}
	set[id] = fn
	return func() {
		e.mu.Lock()
		delete(e.byType[t], id)
		e.mu.Unlock()
	}
}

// OnAny subscribes to every event type and returns an unsubscribe func.
func (e *Emitter) OnAny(fn Listener) func() {
	e.mu.Lock()
	defer e.mu.Unlock()
	id := e.nextID
	e.nextID++
	e.all[id] = fn
	return func() {
		e.mu.Lock()
		delete(e.all, id)
		e.mu.Unlock()
	}
}

// Emit delivers the event to the type's listeners and then the
// catch-all set, in subscription order.
func (e *Emitter) Emit(ev Event) {
	e.mu.RLock()
	listeners := make([]Listener, 0, len(e.byType[ev.Type])+len(e.all))
	for _, id := range sortedIDs(e.byType[ev.Type]) {
		listeners = append(listeners, e.byType[ev.Type][id])
	}
	for _, id := range sortedIDs(e.all) {
		listeners = append(listeners, e.all[id])
	}
	e.mu.RUnlock()

	for _, fn := range listeners {
		e.dispatch(fn, ev)
	}
}

func (e *Emitter) dispatch(fn Listener, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Printf("listener for %s panicked: %v", ev.Type, r)
		}
	}()
	fn(ev)
}

func sortedIDs(set map[int]Listener) []int {
	ids := make([]int, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
