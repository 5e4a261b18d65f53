// Package lifecycle owns the order status machine: which edges exist, who may take them,
// and the single conditional store update that applies one.
package lifecycle

import (
	"fmt"

	"karavanCanteen/internal/apperr"
	"karavanCanteen/models"
)

// transitions is the only place the edges of the order graph are listed.
var transitions = map[models.OrderStatus][]models.OrderStatus{
	models.OrderStatusPending:   {models.OrderStatusConfirmed, models.OrderStatusCancelled},
	models.OrderStatusConfirmed: {models.OrderStatusPreparing, models.OrderStatusCancelled},
	models.OrderStatusPreparing: {models.OrderStatusReady},
	models.OrderStatusReady:     {models.OrderStatusDelivered},
}

// Allowed returns the statuses reachable from `from` in one step. Terminal and unknown
// statuses yield an empty slice.
func Allowed(from models.OrderStatus) []models.OrderStatus {
	next := transitions[from]
	out := make([]models.OrderStatus, len(next))
	copy(out, next)
	return out
}

// CanTransition reports whether from -> to is an edge of the graph.
func CanTransition(from, to models.OrderStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no transition leaves s.
func IsTerminal(s models.OrderStatus) bool {
	return s.Valid() && len(transitions[s]) == 0
}

// Policy holds the tunable parts of transition authorization.
type Policy struct {
	// OwnerCancelConfirmed lets the ordering teacher cancel a confirmed order as well
	// as a pending one.
	OwnerCancelConfirmed bool
}

// Authorize checks whether actor may move o to `to`. Staff may take every edge. The
// owning teacher may only cancel, and only while pending (or confirmed, if the policy
// allows it). It does not check that the edge exists; see CanTransition.
func (p Policy) Authorize(o *models.Order, to models.OrderStatus, actor models.Actor) error {
	if actor.Role.IsStaff() {
		return nil
	}
	if actor.Role != models.RoleTeacher || o.UserID != actor.UserID {
		return fmt.Errorf("%w: order %d belongs to another user", apperr.ErrForbidden, o.ID)
	}
	if to != models.OrderStatusCancelled {
		return fmt.Errorf("%w: only canteen staff can move an order to %s", apperr.ErrForbidden, to)
	}
	switch o.Status {
	case models.OrderStatusPending:
		return nil
	case models.OrderStatusConfirmed:
		if p.OwnerCancelConfirmed {
			return nil
		}
	}
	return fmt.Errorf("%w: a %s order can only be cancelled by canteen staff", apperr.ErrForbidden, o.Status)
}

// Authorize applies the default (strict) policy.
func Authorize(o *models.Order, to models.OrderStatus, actor models.Actor) error {
	return Policy{}.Authorize(o, to, actor)
}

// CanView reports whether actor may read o: staff see everything, teachers their own.
func CanView(o *models.Order, actor models.Actor) bool {
	return actor.Role.IsStaff() || (actor.Role == models.RoleTeacher && o.UserID == actor.UserID)
}
