// Package rbac evaluates role- and ownership-based authorization for content actions.
package rbac

import (
	"context"

	"blogger-platform/backend/internal/identity/domain"
)

// Action is what the actor wants to do with a resource.
type Action string

const (
	ActionRead   Action = "read"
	ActionWrite  Action = "write"
	ActionDelete Action = "delete"
)

// Valid reports whether a is a known action.
func (a Action) Valid() bool {
	switch a {
	case ActionRead, ActionWrite, ActionDelete:
		return true
	}
	return false
}

// Resource describes the target of an action: its owner and ban state.
type Resource struct {
	OwnerID     string `json:"ownerId"`
	IsBanned    bool   `json:"isBanned"`
	OwnerBanned bool   `json:"ownerBanned"`
}

// Hidden reports whether reads of the resource must behave as if it did not exist.
func (r Resource) Hidden() bool {
	return r.IsBanned || r.OwnerBanned
}

// Decision is the typed outcome of an authorization check. Callers map it to an outward signal.
type Decision string

const (
	Allow        Decision = "allow"
	Forbidden    Decision = "forbidden"
	NotFound     Decision = "not_found"
	Unauthorized Decision = "unauthorized"
)

// Allowed reports whether d permits the action.
func (d Decision) Allowed() bool { return d == Allow }

// Evaluator decides whether actor may perform action on resource.
// A non-nil error means no decision could be made; it is never a deny.
type Evaluator interface {
	Authorize(ctx context.Context, actor domain.Principal, action Action, resource Resource) (Decision, error)
}

// Decide applies the authorization table to (actor, action, resource). Rules, first match wins:
//
//	unknown action                               -> Forbidden
//	read of a banned resource or banned owner    -> NotFound (super-admin included)
//	super-admin                                  -> Allow
//	read                                         -> Allow
//	anonymous write/delete                       -> Unauthorized
//	banned actor                                 -> Forbidden
//	owner                                        -> Allow
//	otherwise                                    -> Forbidden
func Decide(actor domain.Principal, action Action, resource Resource) Decision {
	if !action.Valid() {
		return Forbidden
	}
	if action == ActionRead && resource.Hidden() {
		return NotFound
	}
	if actor.IsSuperAdmin() {
		return Allow
	}
	if action == ActionRead {
		return Allow
	}
	if actor.IsAnonymous() {
		return Unauthorized
	}
	if actor.IsBanned {
		return Forbidden
	}
	if resource.OwnerID != "" && resource.OwnerID == actor.UserID {
		return Allow
	}
	return Forbidden
}

// StaticEvaluator is the Evaluator backed by Decide.
type StaticEvaluator struct{}

// NewStaticEvaluator returns the rule-table evaluator.
func NewStaticEvaluator() StaticEvaluator { return StaticEvaluator{} }

// Authorize implements Evaluator.
func (StaticEvaluator) Authorize(_ context.Context, actor domain.Principal, action Action, resource Resource) (Decision, error) {
	return Decide(actor, action, resource), nil
}

// HealthCheck always succeeds; the rule table has no dependencies.
func (StaticEvaluator) HealthCheck(context.Context) error { return nil }
