package chat

import "time"

const (
	FocusDelay    = 300 * time.Millisecond
	FallbackReply = "Sorry, I encountered an error. Please try again."
	StatusSuccess = "success"
)

type Origin string

const (
	OriginUser      Origin = "user"
	OriginAssistant Origin = "assistant"
)

type Message struct {
	Origin Origin
	Text   string
}

type Visibility int

const (
	Closed Visibility = iota
	Open
)

func (v Visibility) String() string {
	if v == Open {
		return "open"
	}
	return "closed"
}

// PendingHandle identifies the typing indicator shown for one exchange.
type PendingHandle uint64

// Entry is one transcript row: a message, or a pending indicator when
// Pending is non-zero.
type Entry struct {
	Message Message
	Pending PendingHandle
}

func (e Entry) IsPending() bool { return e.Pending != 0 }

type Request struct {
	Message   string  `json:"message"`
	SessionID *string `json:"session_id"`
}

type Reply struct {
	Status    string `json:"status"`
	Response  string `json:"response"`
	SessionID string `json:"session_id"`
}

type Region int

const (
	RegionOutside Region = iota
	RegionPopup
	RegionLauncher
)

type Intent interface{ isIntent() }

type OpenIntent struct{}

type CloseIntent struct{}

type SubmitIntent struct{ Text string }

type PointerDownIntent struct{ Target Region }

func (OpenIntent) isIntent()        {}
func (CloseIntent) isIntent()       {}
func (SubmitIntent) isIntent()      {}
func (PointerDownIntent) isIntent() {}

type Effect interface{ isEffect() }

type FocusInput struct{ After time.Duration }

type Send struct {
	Handle  PendingHandle
	Request Request
}

type ScrollToEnd struct{}

func (FocusInput) isEffect()  {}
func (Send) isEffect()        {}
func (ScrollToEnd) isEffect() {}
