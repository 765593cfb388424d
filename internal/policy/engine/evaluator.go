// Package engine evaluates the authorization table as a Rego policy with an in-process OPA engine.
package engine

import (
	"blogger-platform/backend/internal/identity/domain"
	"blogger-platform/backend/internal/platform/rbac"
)

const decisionQuery = "data.blogger.authz.decision"

// authzPolicy mirrors rbac.Decide rule for rule; the else chain keeps first-match-wins ordering.
const authzPolicy = `package blogger.authz

default decision := "forbidden"

valid_actions := {"read", "write", "delete"}

anonymous if input.actor.user_id == ""

hidden if input.resource.is_banned

hidden if input.resource.owner_banned

owner if {
	input.resource.owner_id != ""
	input.resource.owner_id == input.actor.user_id
}

decision := "forbidden" if {
	not input.action in valid_actions
} else := "not_found" if {
	input.action == "read"
	hidden
} else := "allow" if {
	not anonymous
	input.actor.role == "super_admin"
} else := "allow" if {
	input.action == "read"
} else := "unauthorized" if {
	anonymous
} else := "forbidden" if {
	input.actor.is_banned
} else := "allow" if {
	owner
}
`

func buildInput(actor domain.Principal, action rbac.Action, resource rbac.Resource) map[string]interface{} {
	return map[string]interface{}{
		"action": string(action),
		"actor": map[string]interface{}{
			"user_id":   actor.UserID,
			"role":      string(actor.Role),
			"is_banned": actor.IsBanned,
		},
		"resource": map[string]interface{}{
			"owner_id":     resource.OwnerID,
			"is_banned":    resource.IsBanned,
			"owner_banned": resource.OwnerBanned,
		},
	}
}
