package notify

import (
	"strings"
	"time"
)

const AutoClose = 5 * time.Second

type Permission string

const (
	PermissionDefault Permission = "default"
	PermissionGranted Permission = "granted"
	PermissionDenied  Permission = "denied"
)

func ParsePermission(s string) Permission {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "granted", "on", "true", "1":
		return PermissionGranted
	case "denied", "off", "false", "0":
		return PermissionDenied
	default:
		return PermissionDefault
	}
}

type Notification struct {
	ID      int
	Title   string
	Body    string
	Icon    string
	Expires time.Time
}

type Emitter struct {
	permission Permission
	now        func() time.Time
	nextID     int
}

func NewEmitter(p Permission) *Emitter {
	return &Emitter{permission: p, now: time.Now}
}

// Check resolves a default permission. The terminal has no prompt to show,
// so default becomes granted.
func (e *Emitter) Check() Permission {
	if e.permission == PermissionDefault {
		e.permission = PermissionGranted
	}
	return e.permission
}

func (e *Emitter) Permission() Permission { return e.permission }

func (e *Emitter) Show(title, body, icon string) (Notification, bool) {
	if e.permission != PermissionGranted {
		return Notification{}, false
	}
	if icon == "" {
		icon = "🧭"
	}
	e.nextID++
	return Notification{
		ID:      e.nextID,
		Title:   title,
		Body:    body,
		Icon:    icon,
		Expires: e.now().Add(AutoClose),
	}, true
}

func (e *Emitter) WeatherAlert(msg string) (Notification, bool) {
	return e.Show("Weather Alert", msg, "⛅")
}

func (e *Emitter) TravelTip(msg string) (Notification, bool) {
	return e.Show("Travel Tip", msg, "💡")
}
