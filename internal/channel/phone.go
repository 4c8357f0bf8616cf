package channel

import (
	"fmt"
	"math/rand"
	"sort"
	"strings"
)

// Contact is another agent's reachable identity across channels.
type Contact struct {
	AgentID     string
	Name        string
	PhoneNumber string
	Email       string
	Handle      string
}

// Phone is an agent's communication endpoint: its own identity, a contact
// book, and a per-channel inbox of delivered messages.
type Phone struct {
	OwnerID     string
	OwnerName   string
	PhoneNumber string
	Email       string
	Handle      string

	contacts map[string]Contact
	inboxes  map[string][]*Message
}

// NewPhone builds a phone with a generated identity. The rand source keeps
// generated numbers reproducible under a seeded run.
func NewPhone(ownerID, ownerName string, rnd *rand.Rand) *Phone {
	slug := strings.ToLower(strings.ReplaceAll(ownerName, " ", "."))
	return &Phone{
		OwnerID:     ownerID,
		OwnerName:   ownerName,
		PhoneNumber: fmt.Sprintf("+1-555-%04d", rnd.Intn(10000)),
		Email:       slug + "@mailhaven.sim",
		Handle:      "@" + strings.ReplaceAll(slug, ".", "_"),
		contacts:    make(map[string]Contact),
		inboxes:     make(map[string][]*Message),
	}
}

// OwnContact returns this phone's identity as a contact-book entry.
func (p *Phone) OwnContact() Contact {
	return Contact{
		AgentID:     p.OwnerID,
		Name:        p.OwnerName,
		PhoneNumber: p.PhoneNumber,
		Email:       p.Email,
		Handle:      p.Handle,
	}
}

// AddContact stores another agent's identity.
func (p *Phone) AddContact(c Contact) {
	p.contacts[c.AgentID] = c
}

// Contact looks up a stored contact by agent id.
func (p *Phone) Contact(agentID string) (Contact, bool) {
	c, ok := p.contacts[agentID]
	return c, ok
}

// Contacts returns every stored contact's agent id, sorted so callers that
// pick from the list stay reproducible under a seeded run.
func (p *Phone) Contacts() []string {
	out := make([]string, 0, len(p.contacts))
	for id := range p.contacts {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Receive files a delivered message into the channel's inbox.
func (p *Phone) Receive(msg *Message) {
	p.inboxes[msg.Channel] = append(p.inboxes[msg.Channel], msg)
}

// Inbox returns all delivered messages on one channel, oldest first.
func (p *Phone) Inbox(channelName string) []*Message {
	return p.inboxes[channelName]
}

// Unread returns every unread message across all channels, oldest first by
// delivery order within each channel.
func (p *Phone) Unread() []*Message {
	var out []*Message
	for _, name := range []string{NameProximity, NameSMS, NameEmail, NameSocialDM} {
		for _, m := range p.inboxes[name] {
			if !m.Read {
				out = append(out, m)
			}
		}
	}
	return out
}

// UnreadCount counts unread messages on one channel.
func (p *Phone) UnreadCount(channelName string) int {
	n := 0
	for _, m := range p.inboxes[channelName] {
		if !m.Read {
			n++
		}
	}
	return n
}

// MarkRead flags every message from one sender on one channel as read.
func (p *Phone) MarkRead(channelName, senderID string) {
	for _, m := range p.inboxes[channelName] {
		if m.SenderID == senderID {
			m.Read = true
		}
	}
}

// RecentThread returns the last n delivered messages exchanged with another
// agent on one channel, oldest first.
func (p *Phone) RecentThread(otherID, channelName string, n int) []*Message {
	var thread []*Message
	for _, m := range p.inboxes[channelName] {
		if m.SenderID == otherID || m.RecipientID == otherID {
			thread = append(thread, m)
		}
	}
	if n > 0 && len(thread) > n {
		thread = thread[len(thread)-n:]
	}
	return thread
}

// InboxSummary renders unread counts for prompt injection, or an empty
// string when nothing is waiting.
func (p *Phone) InboxSummary() string {
	var parts []string
	for _, name := range []string{NameSMS, NameEmail, NameSocialDM} {
		if n := p.UnreadCount(name); n > 0 {
			parts = append(parts, fmt.Sprintf("%d unread %s", n, name))
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return "Your phone shows: " + strings.Join(parts, ", ") + "."
}
