// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package bot

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"

	"github.com/taibuivan/newswizard/internal/platform/constants"
)

// mailbox holds the pending updates of one user.
type mailbox struct {
	pending []Update
}

// Dispatcher delivers updates to a handler, strictly in arrival order per
// user and concurrently across users.
//
// A user's mailbox has at most one draining goroutine, started when the first
// update arrives and exiting once the mailbox is empty.
type Dispatcher struct {
	handler Handler
	logger  *slog.Logger

	mu    sync.Mutex
	boxes map[int64]*mailbox
	wg    sync.WaitGroup
}

// NewDispatcher creates a dispatcher for handler.
func NewDispatcher(handler Handler, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		handler: handler,
		logger:  logger,
		boxes:   make(map[int64]*mailbox),
	}
}

// Dispatch queues the update and returns immediately.
func (d *Dispatcher) Dispatch(ctx context.Context, update Update) {
	d.mu.Lock()
	defer d.mu.Unlock()

	box, running := d.boxes[update.UserID]
	if !running {
		box = &mailbox{}
		d.boxes[update.UserID] = box
	}
	box.pending = append(box.pending, update)

	if !running {
		d.wg.Add(1)
		go d.drain(ctx, update.UserID, box)
	}
}

// Wait blocks until every queued update has been handled.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) drain(ctx context.Context, userID int64, box *mailbox) {
	defer d.wg.Done()

	for {
		d.mu.Lock()
		if len(box.pending) == 0 {
			delete(d.boxes, userID)
			d.mu.Unlock()
			return
		}
		update := box.pending[0]
		box.pending = box.pending[1:]
		d.mu.Unlock()

		d.handle(ctx, update)
	}
}

// handle runs one update. A panic is logged and the mailbox keeps draining.
func (d *Dispatcher) handle(ctx context.Context, update Update) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("update_handler_panic",
				slog.Int64(constants.FieldUserID, update.UserID),
				slog.Int(constants.FieldUpdateID, update.UpdateID),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())),
			)
		}
	}()

	d.handler.Handle(ctx, update)
}
