package mocks

import (
	"context"
	"sync"

	"github.com/absmach/flotilla/pkg/mqtt"
)

// PubSub is an in-memory PubSub double recording every published message,
// used by coordinator event and agent presence tests.
type PubSub struct {
	mu        sync.Mutex
	published []Message
	failWith  error
}

type Message struct {
	Topic   string
	Payload any
}

var _ mqtt.PubSub = (*PubSub)(nil)

func NewPubSub() *PubSub {
	return &PubSub{}
}

// FailWith makes every subsequent Publish return err.
func (p *PubSub) FailWith(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failWith = err
}

func (p *PubSub) Publish(_ context.Context, topic string, msg any) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.failWith != nil {
		return p.failWith
	}
	p.published = append(p.published, Message{Topic: topic, Payload: msg})

	return nil
}

func (p *PubSub) Subscribe(_ context.Context, _ string, _ mqtt.Handler) error {
	return nil
}

func (p *PubSub) Unsubscribe(_ context.Context, _ string) error {
	return nil
}

func (p *PubSub) Disconnect(_ context.Context) error {
	return nil
}

// Published returns a copy of all messages published so far.
func (p *PubSub) Published() []Message {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]Message, len(p.published))
	copy(out, p.published)

	return out
}
