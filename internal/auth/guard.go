package auth

import "github.com/campusgrid/forum-service/internal/domain"

// CanModify is the owner-or-admin policy gating every destructive operation:
// an actor may modify a resource iff they created it or hold the admin role.
func CanModify(actor domain.Identity, ownerID string) bool {
	return actor.IsAdmin() || actor.UserID == ownerID
}
