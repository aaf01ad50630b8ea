package main

import (
	"fmt"
	"io"
	"sync"

	"github.com/KirkDiggler/sheet-sync/internal/domain/session"
	"github.com/KirkDiggler/sheet-sync/internal/events"
)

// printer serializes writes from the REPL and the live pumps
type printer struct {
	mu sync.Mutex
	w  io.Writer
}

func newPrinter(w io.Writer) *printer {
	return &printer{w: w}
}

func (p *printer) printf(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.w, format, args...)
}

func (p *printer) message(msg *session.Message) {
	stamp := msg.CreatedAt.Local().Format("15:04")
	switch msg.Kind {
	case session.KindSystem:
		p.printf("[%s] * %s\n", stamp, msg.Content)
	case session.KindMaster:
		p.printf("[%s] (mestre) %s: %s\n", stamp, msg.SenderName, msg.Content)
	case session.KindRoll, session.KindCombat:
		p.printf("[%s] 🎲 %s\n", stamp, msg.Content)
	default:
		p.printf("[%s] %s: %s\n", stamp, msg.SenderName, msg.Content)
	}
}

func (p *printer) listen(bus *events.Bus) {
	bus.Subscribe(events.EventTypeMessageReceived, &events.ListenerFunc{
		Name: "printer",
		Fn: func(e *events.Event) error {
			p.message(e.Message)
			return nil
		},
	})
	bus.Subscribe(events.EventTypeDamageTaken, &events.ListenerFunc{
		Name: "printer",
		Fn: func(e *events.Event) error {
			p.printf("   Você recebeu %d de dano (HP %d)\n", e.Damage, e.CurrentHP)
			return nil
		},
	})
	bus.Subscribe(events.EventTypeConnectionState, &events.ListenerFunc{
		Name: "printer",
		Fn: func(e *events.Event) error {
			if e.Err != nil {
				p.printf("   conexão: %s (%v)\n", e.State, e.Err)
			}
			return nil
		},
	})
}
