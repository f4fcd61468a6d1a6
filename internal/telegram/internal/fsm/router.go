package fsm

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
)

type HandlerFunc func(ctx context.Context, ev Event) error

type Middleware func(next HandlerFunc) HandlerFunc

// Priority orders flows. Strict flows see a message before relaxed ones.
type Priority int

const (
	PriorityStrict Priority = iota
	PriorityRelaxed
)

type flow struct {
	name     string
	priority Priority
	handle   func(ctx context.Context, m Messenger, ev Event) (bool, error)
}

type prefixHandler struct {
	prefix  string
	handler HandlerFunc
}

// Router dispatches events. Plain messages go to exact-text menu handlers,
// then to open conversation flows by priority, then to the fallback.
// Callbacks go to flows, then to prefix handlers, then to the unknown
// callback handler. Commands only reach command handlers.
type Router struct {
	messenger       Messenger
	commands        map[string]HandlerFunc
	texts           map[string]HandlerFunc
	callbacks       []prefixHandler
	flows           []flow
	middlewares     []Middleware
	fallback        HandlerFunc
	unknownCommand  HandlerFunc
	unknownCallback HandlerFunc
	mu              *sync.RWMutex
}

func NewRouter(m Messenger) *Router {
	noop := func(context.Context, Event) error { return nil }
	return &Router{
		messenger:       m,
		commands:        make(map[string]HandlerFunc),
		texts:           make(map[string]HandlerFunc),
		fallback:        noop,
		unknownCommand:  noop,
		unknownCallback: noop,
		mu:              &sync.RWMutex{},
	}
}

func (r *Router) Messenger() Messenger {
	return r.messenger
}

func (r *Router) Use(mw ...Middleware) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.middlewares = append(r.middlewares, mw...)
}

func (r *Router) HandleCommand(name string, h HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands[name] = h
}

func (r *Router) HandleText(text string, h HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.texts[text] = h
}

// HandleCallback matches callback data by prefix, longest prefix first.
func (r *Router) HandleCallback(prefix string, h HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.callbacks = append(r.callbacks, prefixHandler{prefix: prefix, handler: h})
	sort.SliceStable(r.callbacks, func(i, j int) bool {
		return len(r.callbacks[i].prefix) > len(r.callbacks[j].prefix)
	})
}

func (r *Router) Fallback(h HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallback = h
}

func (r *Router) UnknownCommand(h HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.unknownCommand = h
}

func (r *Router) UnknownCallback(h HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.unknownCallback = h
}

func (r *Router) addFlow(f flow) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.flows = append(r.flows, f)
	slices.SortStableFunc(r.flows, func(a, b flow) int {
		return int(a.priority) - int(b.priority)
	})
}

// Dispatch runs the middleware chain and then routes ev.
func (r *Router) Dispatch(ctx context.Context, ev Event) error {
	r.mu.RLock()
	h := r.route
	for i := len(r.middlewares) - 1; i >= 0; i-- {
		h = r.middlewares[i](h)
	}
	r.mu.RUnlock()
	return h(ctx, ev)
}

// DispatchFlows offers ev to open conversation flows only.
func (r *Router) DispatchFlows(ctx context.Context, ev Event) (bool, error) {
	r.mu.RLock()
	flows := slices.Clone(r.flows)
	r.mu.RUnlock()

	for _, f := range flows {
		handled, err := f.handle(ctx, r.messenger, ev)
		if handled {
			return true, err
		}
	}
	return false, nil
}

func (r *Router) route(ctx context.Context, ev Event) error {
	if ev.IsCallback() {
		return r.routeCallback(ctx, ev)
	}

	if name, _, ok := ev.Command(); ok {
		r.mu.RLock()
		h, found := r.commands[name]
		unknown := r.unknownCommand
		r.mu.RUnlock()
		if found {
			return h(ctx, ev)
		}
		return unknown(ctx, ev)
	}

	r.mu.RLock()
	h, found := r.texts[ev.Text]
	fallback := r.fallback
	r.mu.RUnlock()
	if found && ev.Text != "" {
		return h(ctx, ev)
	}

	if handled, err := r.DispatchFlows(ctx, ev); handled {
		return err
	}
	return fallback(ctx, ev)
}

func (r *Router) routeCallback(ctx context.Context, ev Event) error {
	if handled, err := r.DispatchFlows(ctx, ev); handled {
		return err
	}

	r.mu.RLock()
	callbacks := r.callbacks
	unknown := r.unknownCallback
	r.mu.RUnlock()

	for _, c := range callbacks {
		if strings.HasPrefix(ev.Callback.Data, c.prefix) {
			return c.handler(ctx, ev)
		}
	}
	return unknown(ctx, ev)
}
