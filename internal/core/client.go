package core

// DefaultClientBuffer is the Events/Commands capacity of a new client.
const DefaultClientBuffer = 64

// Client is a connection as seen by the core layer. The transport pushes
// commands into Commands and drains Events; the hub closes Events once the
// client is unregistered.
type Client struct {
	ID       string
	Commands chan *Command
	Events   chan *Event
	quit     chan struct{}
}

// NewClient constructs a client with buffered channels of the given size.
func NewClient(id string, buffer int) *Client {
	if buffer <= 0 {
		buffer = DefaultClientBuffer
	}
	return &Client{
		ID:       id,
		Commands: make(chan *Command, buffer),
		Events:   make(chan *Event, buffer),
		quit:     make(chan struct{}),
	}
}

// send enqueues an event without blocking. Reports false if the client's
// buffer is full and the event was dropped.
func (c *Client) send(ev *Event) bool {
	select {
	case c.Events <- ev:
		return true
	default:
		return false
	}
}
