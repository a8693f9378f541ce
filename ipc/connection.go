package ipc

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
)

// Handler processes a received envelope.
type Handler func(env Envelope) error

// Conn is the line protocol with the game engine: engine lines arrive on r,
// our submissions go out on w. Logs must never be written to w.
type Conn struct {
	r        *bufio.Reader
	wmu      sync.Mutex
	w        *bufio.Writer
	handlers map[Kind]Handler
}

func NewConn(r io.Reader, w io.Writer, handlers map[Kind]Handler) *Conn {
	if handlers == nil {
		handlers = make(map[Kind]Handler)
	}
	return &Conn{
		r:        bufio.NewReaderSize(r, 64<<10),
		w:        bufio.NewWriter(w),
		handlers: handlers,
	}
}

func (c *Conn) RegisterHandler(kind Kind, handler Handler) {
	c.handlers[kind] = handler
}

// SendCommand writes v as one JSON line and flushes, so the engine sees each
// queue as soon as it is sent.
func (c *Conn) SendCommand(v any) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	if err := WriteLine(c.w, v); err != nil {
		return err
	}
	if err := c.w.Flush(); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	return nil
}

// ReadLoop dispatches engine lines until the game-over line has been handled,
// input ends or ctx is cancelled. Handler errors are logged and the loop goes
// on; a malformed line ends it.
func (c *Conn) ReadLoop(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		env, err := ReadEnvelope(c.r)
		if errors.Is(err, io.EOF) {
			slog.Info("engine closed input")
			return nil
		}
		if err != nil {
			return fmt.Errorf("read engine line: %w", err)
		}

		handler, ok := c.handlers[env.Kind]
		if !ok {
			slog.Debug("no handler for line kind", "kind", env.Kind)
		} else if err := handler(env); err != nil {
			slog.Error("handler error", "kind", env.Kind, "error", err)
		}

		if env.Kind == KindGameOver {
			return nil
		}
	}
}
