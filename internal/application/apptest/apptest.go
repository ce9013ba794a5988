// Package apptest holds fakes shared by the use case tests.
package apptest

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	domoutbox "github.com/Zhima-Mochi/minishop-checkout/internal/domain/outbox"
)

// SeqIDs yields prefix-1, prefix-2, ...
type SeqIDs struct {
	Prefix string
	n      atomic.Int64
}

func (s *SeqIDs) NewID() string {
	return fmt.Sprintf("%s-%d", s.Prefix, s.n.Add(1))
}

// Publisher records every published event.
type Publisher struct {
	mu     sync.Mutex
	events []domoutbox.Event
	Err    error
}

func (p *Publisher) Publish(_ context.Context, e domoutbox.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return p.Err
	}
	p.events = append(p.events, e)
	return nil
}

func (p *Publisher) Names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	names := make([]string, 0, len(p.events))
	for _, e := range p.events {
		names = append(names, e.EventName())
	}
	return names
}

func (p *Publisher) Events() []domoutbox.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domoutbox.Event(nil), p.events...)
}
