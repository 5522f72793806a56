package core

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

var ackSeq atomic.Uint64

func startHub(t *testing.T, cfg HubConfig) *Hub {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	hub := NewHub(cfg, nil)
	go hub.Run(ctx)
	return hub
}

func connect(t *testing.T, hub *Hub, id string) *Client {
	t.Helper()

	c := NewClient(id, 0)
	hub.RegisterClient(c)
	return c
}

// request sends a command and waits for its reply.
func request(t *testing.T, c *Client, cmd *Command) *Reply {
	t.Helper()

	cmd.Ack = ackSeq.Add(1)
	c.Commands <- cmd
	return mustReply(t, c, cmd.Ack)
}

func login(t *testing.T, hub *Hub, id, name string) *Client {
	t.Helper()

	c := connect(t, hub, id)
	reply := request(t, c, &Command{Kind: CommandLogin, Username: name})
	if !reply.OK() {
		t.Fatalf("login %s failed: %v", name, reply.Err)
	}
	return c
}

func mustReply(t *testing.T, c *Client, ack uint64) *Reply {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		ev := mustEvent(t, c.Events, EventReply)
		if ev.Reply != nil && ev.Reply.Ack == ack {
			return ev.Reply
		}
	}
	t.Fatalf("reply for ack %d not received", ack)
	return nil
}

func mustEvent(t *testing.T, ch <-chan *Event, kind EventKind) *Event {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case ev, ok := <-ch:
			if !ok {
				t.Fatalf("event channel closed while waiting for kind %v", kind)
			}
			if ev == nil {
				continue
			}
			if ev.Kind == kind {
				return ev
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	t.Fatalf("expected event kind %v not received", kind)
	return nil
}

// mustEventFor waits for an event of kind that also satisfies match,
// skipping earlier events of the same kind.
func mustEventFor(t *testing.T, ch <-chan *Event, kind EventKind, match func(*Event) bool) *Event {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		ev := mustEvent(t, ch, kind)
		if match(ev) {
			return ev
		}
	}
	t.Fatalf("expected matching event kind %v not received", kind)
	return nil
}
