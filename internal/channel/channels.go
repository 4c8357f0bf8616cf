package channel

import "fmt"

// Channel names. These are the values agents put in their planned actions.
const (
	NameProximity = "proximity"
	NameSMS       = "sms"
	NameEmail     = "email"
	NameSocialDM  = "social_dm"
)

// Channel is one transport between agents. Implementations queue messages
// and release them when their latency has elapsed.
type Channel interface {
	// Name returns the channel's registry key.
	Name() string
	// Latency is the number of steps between send and delivery.
	Latency() int
	// Send enqueues (or, at zero latency, immediately delivers) a message.
	Send(msg *Message, step int)
	// DeliverDue releases every queued message due at or before step, FIFO.
	DeliverDue(step int) []*Message
	// Pending reports how many messages are still queued.
	Pending() int
	// PromptContext describes the conversational framing of this channel
	// for inclusion in an agent's prompt.
	PromptContext(otherName string) string
}

// queue is the shared FIFO pending buffer.
type queue struct {
	pending []*Message
}

func (q *queue) Pending() int { return len(q.pending) }

func (q *queue) deliverDue(step, latency int) []*Message {
	var due, rest []*Message
	for _, m := range q.pending {
		if m.SentStep+latency <= step {
			m.markDelivered(step)
			due = append(due, m)
		} else {
			rest = append(rest, m)
		}
	}
	q.pending = rest
	return due
}

// Proximity is face-to-face conversation, only possible when both agents
// share a location. Delivery is instant.
type Proximity struct{ queue }

func (c *Proximity) Name() string { return NameProximity }
func (c *Proximity) Latency() int { return 0 }

func (c *Proximity) Send(msg *Message, step int) {
	msg.markDelivered(step)
}

func (c *Proximity) DeliverDue(int) []*Message { return nil }

func (c *Proximity) PromptContext(otherName string) string {
	return fmt.Sprintf("You are in the same location as %s and speaking face-to-face. Respond naturally, as you would out loud.", otherName)
}

// SMS is text messaging, delivered one step after sending.
type SMS struct{ queue }

func (c *SMS) Name() string { return NameSMS }
func (c *SMS) Latency() int { return 1 }

func (c *SMS) Send(msg *Message, step int) {
	c.pending = append(c.pending, msg)
}

func (c *SMS) DeliverDue(step int) []*Message { return c.deliverDue(step, c.Latency()) }

func (c *SMS) PromptContext(otherName string) string {
	return fmt.Sprintf("You are texting with %s. Keep it short and casual, like a real text message.", otherName)
}

// Email carries a subject line and is delivered two steps after sending.
type Email struct{ queue }

func (c *Email) Name() string { return NameEmail }
func (c *Email) Latency() int { return 2 }

func (c *Email) Send(msg *Message, step int) {
	c.pending = append(c.pending, msg)
}

func (c *Email) DeliverDue(step int) []*Message { return c.deliverDue(step, c.Latency()) }

func (c *Email) PromptContext(otherName string) string {
	return fmt.Sprintf("You are writing an email to %s. A greeting and a sign-off are appropriate; the subject line sets the topic.", otherName)
}

// SocialPlatform names the in-world professional network.
const SocialPlatform = "LinkedConnect"

// SocialDM is a direct message on the professional social platform,
// delivered one step after sending.
type SocialDM struct{ queue }

func (c *SocialDM) Name() string { return NameSocialDM }
func (c *SocialDM) Latency() int { return 1 }

func (c *SocialDM) Send(msg *Message, step int) {
	if msg.Metadata == nil {
		msg.Metadata = make(map[string]string)
	}
	msg.Metadata["platform"] = SocialPlatform
	c.pending = append(c.pending, msg)
}

func (c *SocialDM) DeliverDue(step int) []*Message { return c.deliverDue(step, c.Latency()) }

func (c *SocialDM) PromptContext(otherName string) string {
	return fmt.Sprintf("You are messaging %s on %s, a professional networking platform. Keep a semi-professional tone.", otherName, SocialPlatform)
}
