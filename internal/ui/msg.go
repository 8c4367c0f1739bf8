package ui

import (
	"context"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/rovshanmuradov/coinfun/internal/events"
)

// Tea message types for UI communication

// TradeMsg carries a settled trade.
type TradeMsg struct {
	Event events.TradeEvent
}

// AssetMsg announces a new curve.
type AssetMsg struct {
	Event events.AssetCreatedEvent
}

// GraduationMsg announces a curve that reached its threshold.
type GraduationMsg struct {
	Event events.CurveCompleteEvent
}

// TickMsg triggers a refresh of curve state and logs.
type TickMsg time.Time

// ErrorMsg represents error conditions
type ErrorMsg struct {
	Error error
}

// Subscriber is the part of the event bus the feed needs.
type Subscriber interface {
	Subscribe(eventType events.EventType, handler events.Handler) events.Subscription
}

// Feed turns bus notifications into tea messages. Sends never block the
// bus; when the UI falls behind, messages are dropped and counted.
type Feed struct {
	ch      chan tea.Msg
	subs    []events.Subscription
	sent    uint64
	dropped uint64
}

func NewFeed(size int) *Feed {
	if size <= 0 {
		size = 1024
	}
	return &Feed{ch: make(chan tea.Msg, size)}
}

// Attach subscribes the feed to curve notifications.
func (f *Feed) Attach(bus Subscriber) {
	f.subs = append(f.subs,
		bus.Subscribe(events.AssetCreated, f),
		bus.Subscribe(events.TradeExecuted, f),
		bus.Subscribe(events.CurveCompleted, f),
	)
}

func (f *Feed) Handle(_ context.Context, event events.Event) error {
	var msg tea.Msg
	switch e := event.(type) {
	case events.TradeEvent:
		msg = TradeMsg{Event: e}
	case events.AssetCreatedEvent:
		msg = AssetMsg{Event: e}
	case events.CurveCompleteEvent:
		msg = GraduationMsg{Event: e}
	default:
		return nil
	}
	f.Send(msg)
	return nil
}

// Send delivers msg without blocking.
func (f *Feed) Send(msg tea.Msg) {
	select {
	case f.ch <- msg:
		atomic.AddUint64(&f.sent, 1)
	default:
		atomic.AddUint64(&f.dropped, 1)
	}
}

// Listen returns a command that waits for the next message.
func (f *Feed) Listen() tea.Cmd {
	return func() tea.Msg {
		return <-f.ch
	}
}

func (f *Feed) Stats() (sent, dropped uint64) {
	return atomic.LoadUint64(&f.sent), atomic.LoadUint64(&f.dropped)
}

// Close removes the bus subscriptions.
func (f *Feed) Close() {
	for _, s := range f.subs {
		s.Unsubscribe()
	}
	f.subs = nil
}

func tick(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}
