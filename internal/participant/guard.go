package participant

import "eventdesk/internal/auth"

// Decision is the outcome of an authorization check.
type Decision struct {
	Allowed bool
	Reason  string
}

var allow = Decision{Allowed: true}

func deny(reason string) Decision {
	return Decision{Reason: reason}
}

// Err returns nil for an allowed decision and a *DeniedError otherwise.
func (d Decision) Err(actor auth.Actor) error {
	if d.Allowed {
		return nil
	}
	return &DeniedError{Actor: actor.String(), Reason: d.Reason}
}

// Authorize decides whether actor may apply ch. Anonymous actors never write.
// Milestones and their derived fields are admin only; profile and
// representative fields are open to every authenticated actor so a visitor
// can register their own representative contact.
func Authorize(actor auth.Actor, ch Changes) Decision {
	if !actor.Authenticated() {
		return deny("anonymous actors may not modify participants")
	}
	if ch.TouchesMilestones() && !actor.IsAdmin() {
		return deny("only admins may change milestones")
	}
	return allow
}

// AuthorizeAdmin guards administrative operations such as import, delete,
// export and the dashboard statistics.
func AuthorizeAdmin(actor auth.Actor, action string) Decision {
	if !actor.IsAdmin() {
		return deny("only admins may " + action)
	}
	return allow
}
