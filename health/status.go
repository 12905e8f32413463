// Package health reports the state of the relay's moving parts.
package health

import (
	"regexp"
	"time"
)

// State values used in Status.State.
const (
	StateHealthy   = "healthy"
	StateDegraded  = "degraded"
	StateUnhealthy = "unhealthy"
)

var (
	urlRegex        = regexp.MustCompile(`(?:https?|nats|wss?)://[^\s]+`)
	ipAddrRegex     = regexp.MustCompile(`\b\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}(?::\d{1,5})?\b`)
	credentialRegex = regexp.MustCompile(`(?i)(password|token|secret|credential)\s*[:=]\s*[^,\s}]+`)
)

// Status represents the health state of a component or system
type Status struct {
	Component   string    `json:"component"`
	Healthy     bool      `json:"healthy"`
	State       string    `json:"status"`
	Message     string    `json:"message"`
	Timestamp   time.Time `json:"timestamp"`
	SubStatuses []Status  `json:"sub_statuses,omitempty"`
}

func newStatus(component, state, message string) Status {
	return Status{
		Component: component,
		Healthy:   state == StateHealthy,
		State:     state,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// NewHealthy creates a new healthy status
func NewHealthy(component, message string) Status {
	return newStatus(component, StateHealthy, message)
}

// NewDegraded marks a component that works with reduced capability.
func NewDegraded(component, message string) Status {
	return newStatus(component, StateDegraded, message)
}

// NewUnhealthy creates an unhealthy status. The message is sanitized.
func NewUnhealthy(component, message string) Status {
	return newStatus(component, StateUnhealthy, Sanitize(message))
}

// IsUnhealthy reports whether the status is unhealthy.
func (s Status) IsUnhealthy() bool {
	return s.State == StateUnhealthy
}

// Aggregate rolls sub-statuses up: any unhealthy makes the whole unhealthy,
// otherwise any degraded makes it degraded.
func Aggregate(component string, subs []Status) Status {
	worst := StateHealthy
	for _, sub := range subs {
		switch sub.State {
		case StateUnhealthy:
			worst = StateUnhealthy
		case StateDegraded:
			if worst == StateHealthy {
				worst = StateDegraded
			}
		}
	}

	var status Status
	switch worst {
	case StateUnhealthy:
		status = newStatus(component, worst, "One or more sub-components are unhealthy")
	case StateDegraded:
		status = newStatus(component, worst, "One or more sub-components are degraded")
	default:
		status = newStatus(component, worst, "All sub-components are healthy")
	}

	if len(subs) > 0 {
		status.SubStatuses = append([]Status(nil), subs...)
	}
	return status
}

// Sanitize strips URLs, addresses and credentials from an error message
// before it is served on an unauthenticated endpoint.
func Sanitize(msg string) string {
	msg = urlRegex.ReplaceAllString(msg, "[URL]")
	msg = ipAddrRegex.ReplaceAllString(msg, "[IP]")
	msg = credentialRegex.ReplaceAllString(msg, "$1=[REDACTED]")
	return msg
}
