package channel

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"arcane/internal/eventlog"
)

// ErrUnknownChannel is returned when a send names a channel the router does
// not own. Callers treat it as a programming defect, not a runtime condition.
var ErrUnknownChannel = errors.New("unknown channel")

// Router owns the four channels and every agent phone, and is the single
// path messages take between agents.
type Router struct {
	channels map[string]Channel
	phones   map[string]*Phone
	log      *eventlog.Log
	logger   *zap.Logger
}

// NewRouter builds a router with the standard channel set.
func NewRouter(log *eventlog.Log, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Router{
		channels: make(map[string]Channel),
		phones:   make(map[string]*Phone),
		log:      log,
		logger:   logger,
	}
	for _, c := range []Channel{&Proximity{}, &SMS{}, &Email{}, &SocialDM{}} {
		r.channels[c.Name()] = c
	}
	return r
}

// RegisterPhone attaches an agent's phone so deliveries can reach it.
func (r *Router) RegisterPhone(p *Phone) {
	r.phones[p.OwnerID] = p
}

// Phone returns the registered phone for an agent, nil if none.
func (r *Router) Phone(agentID string) *Phone {
	return r.phones[agentID]
}

// Channel returns the named channel so callers can ask for prompt context.
func (r *Router) Channel(name string) (Channel, error) {
	c, ok := r.channels[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownChannel, name)
	}
	return c, nil
}

// Send routes one message. Zero-latency channels deliver into the recipient
// phone immediately; the rest queue until DeliverDue. Every send is logged.
func (r *Router) Send(senderID, recipientID, channelName, subject, content string, step int, ts string) (*Message, error) {
	c, ok := r.channels[channelName]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownChannel, channelName)
	}

	msg := NewMessage(senderID, recipientID, channelName, subject, content, step)
	c.Send(msg, step)

	if msg.Delivered() {
		if p := r.phones[recipientID]; p != nil {
			p.Receive(msg)
		}
	}
	r.log.MessageSent(step, ts, senderID, recipientID, channelName, content, msg.Delivered())
	r.logger.Debug("message sent",
		zap.String("from", senderID),
		zap.String("to", recipientID),
		zap.String("channel", channelName),
		zap.Bool("delivered", msg.Delivered()))
	return msg, nil
}

// DeliverDue sweeps every latency channel, delivering due messages into
// recipient phones and logging each delivery. Runs before any agent acts in
// a step, so an agent can react to a message the step it lands.
func (r *Router) DeliverDue(step int, ts string) int {
	delivered := 0
	for _, name := range []string{NameSMS, NameEmail, NameSocialDM} {
		for _, msg := range r.channels[name].DeliverDue(step) {
			if p := r.phones[msg.RecipientID]; p != nil {
				p.Receive(msg)
			}
			r.log.MessageReceived(step, ts, msg.SenderID, msg.RecipientID, name, msg.Content)
			delivered++
		}
	}
	return delivered
}

// PendingCount reports queued, undelivered messages across all channels.
func (r *Router) PendingCount() int {
	n := 0
	for _, c := range r.channels {
		n += c.Pending()
	}
	return n
}
