package fsm

import (
	"context"
	"errors"
)

var ErrIncompatibleHandler = errors.New("incompatible handler")

type UniversalHandler[T any] func(*ConversationContext[T]) error

type TextHandler[T any] func(*ConversationContext[T], string) error

type CallbackHandler[T any] func(*ConversationContext[T], string) error

// Binding connects a chain to the store that owns its state.
type Binding[T any, S comparable] struct {
	Load func(chatID int64) (T, bool)
	Save func(T)
	Drop func(chatID int64)
	Step func(T) S
}

// Chain registers a conversation flow on router. Steps are declared in
// order with Then, and each step takes text and/or callback handlers.
func Chain[T any, S comparable](router *Router, name string, priority Priority, binding Binding[T, S]) *ChainDefinition[T, S] {
	c := &ChainDefinition[T, S]{
		name:     name,
		binding:  binding,
		handlers: make(map[S][]UniversalHandler[T]),
	}
	router.addFlow(flow{
		name:     name,
		priority: priority,
		handle:   c.handle,
	})
	return c
}

type ChainDefinition[T any, S comparable] struct {
	name     string
	binding  Binding[T, S]
	current  S
	before   []func(*ConversationContext[T]) (bool, error)
	handlers map[S][]UniversalHandler[T]
}

// Before runs guard before any step handler; a guard returning true consumes
// the event.
func (c *ChainDefinition[T, S]) Before(guard func(*ConversationContext[T]) (bool, error)) *ChainDefinition[T, S] {
	c.before = append(c.before, guard)
	return c
}

func (c *ChainDefinition[T, S]) Then(step S) *ChainDefinition[T, S] {
	c.current = step
	return c
}

func (c *ChainDefinition[T, S]) OnText(handler TextHandler[T]) *ChainDefinition[T, S] {
	return c.On(func(ctx *ConversationContext[T]) error {
		if ctx.Event.IsCallback() || ctx.Event.Text == "" {
			return ErrIncompatibleHandler
		}
		return handler(ctx, ctx.Event.Text)
	})
}

func (c *ChainDefinition[T, S]) OnCallback(handler CallbackHandler[T]) *ChainDefinition[T, S] {
	return c.On(func(ctx *ConversationContext[T]) error {
		if !ctx.Event.IsCallback() {
			return ErrIncompatibleHandler
		}
		return handler(ctx, ctx.Event.Callback.Data)
	})
}

// On registers a handler that sees every event at the current step.
func (c *ChainDefinition[T, S]) On(handler UniversalHandler[T]) *ChainDefinition[T, S] {
	c.handlers[c.current] = append(c.handlers[c.current], handler)
	return c
}

func (c *ChainDefinition[T, S]) handle(ctx context.Context, m Messenger, ev Event) (bool, error) {
	data, ok := c.binding.Load(ev.ChatID)
	if !ok {
		return false, nil
	}

	cc := &ConversationContext[T]{
		Ctx:       ctx,
		Messenger: m,
		Event:     ev,
		ChatID:    ev.ChatID,
		Data:      data,
		save:      c.binding.Save,
		drop:      c.binding.Drop,
	}

	for _, guard := range c.before {
		done, err := guard(cc)
		if done || err != nil {
			return true, err
		}
	}

	for _, h := range c.handlers[c.binding.Step(data)] {
		err := h(cc)
		if errors.Is(err, ErrIncompatibleHandler) {
			continue
		}
		return true, err
	}
	return false, nil
}
