// Package chat holds the chat widget state: visibility, the session token
// and the transcript. It performs no I/O; callers carry out the returned
// effects and report request outcomes back through Resolve.
package chat

import "strings"

type Controller struct {
	visibility Visibility
	sessionID  string
	hasSession bool
	transcript []Entry
	pending    PendingHandle
	nextHandle PendingHandle
}

func NewController() *Controller {
	return &Controller{}
}

func (c *Controller) Visibility() Visibility { return c.visibility }

func (c *Controller) SessionID() (string, bool) { return c.sessionID, c.hasSession }

func (c *Controller) Pending() bool { return c.pending != 0 }

func (c *Controller) Transcript() []Entry {
	out := make([]Entry, len(c.transcript))
	copy(out, c.transcript)
	return out
}

// Messages returns the transcript without pending indicators.
func (c *Controller) Messages() []Message {
	out := make([]Message, 0, len(c.transcript))
	for _, e := range c.transcript {
		if !e.IsPending() {
			out = append(out, e.Message)
		}
	}
	return out
}

func (c *Controller) Dispatch(in Intent) []Effect {
	switch in := in.(type) {
	case OpenIntent:
		return c.open()
	case CloseIntent:
		c.visibility = Closed
		return nil
	case PointerDownIntent:
		if c.visibility == Open && in.Target == RegionOutside {
			c.visibility = Closed
		}
		return nil
	case SubmitIntent:
		return c.submit(in.Text)
	default:
		return nil
	}
}

func (c *Controller) open() []Effect {
	if c.visibility == Open {
		return nil
	}
	c.visibility = Open
	return []Effect{FocusInput{After: FocusDelay}}
}

func (c *Controller) submit(text string) []Effect {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	// One exchange at a time; the caller keeps the input so it can be resent.
	if c.pending != 0 {
		return nil
	}

	c.transcript = append(c.transcript, Entry{Message: Message{Origin: OriginUser, Text: text}})

	c.nextHandle++
	h := c.nextHandle
	c.pending = h
	c.transcript = append(c.transcript, Entry{Pending: h})

	req := Request{Message: text}
	if c.hasSession {
		id := c.sessionID
		req.SessionID = &id
	}
	return []Effect{ScrollToEnd{}, Send{Handle: h, Request: req}}
}

// Resolve completes the exchange started for h. Any error or a reply whose
// status is not "success" yields FallbackReply and keeps the session token.
// Outcomes for a handle that is no longer pending are dropped.
func (c *Controller) Resolve(h PendingHandle, reply Reply, err error) []Effect {
	if h == 0 || h != c.pending {
		return nil
	}
	c.removePending(h)
	c.pending = 0

	if err == nil && reply.Status == StatusSuccess {
		c.transcript = append(c.transcript, Entry{Message: Message{Origin: OriginAssistant, Text: reply.Response}})
		c.sessionID = reply.SessionID
		c.hasSession = reply.SessionID != ""
		return []Effect{ScrollToEnd{}}
	}

	c.transcript = append(c.transcript, Entry{Message: Message{Origin: OriginAssistant, Text: FallbackReply}})
	return []Effect{ScrollToEnd{}}
}

func (c *Controller) removePending(h PendingHandle) {
	for i, e := range c.transcript {
		if e.Pending == h {
			c.transcript = append(c.transcript[:i], c.transcript[i+1:]...)
			return
		}
	}
}
