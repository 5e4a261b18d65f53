// Package visibility is the single authority on which orders each dashboard shows.
// Dashboards ask it for their status set and ordering; nothing else lists statuses per view.
package visibility

import (
	"fmt"
	"sort"

	"karavanCanteen/internal/apperr"
	"karavanCanteen/models"
	"karavanCanteen/repository"
)

// View names a dashboard list.
type View string

const (
	TeacherOngoing  View = "teacher_ongoing"
	TeacherRecent   View = "teacher_recent"
	CanteenIncoming View = "canteen_incoming"
	CanteenOngoing  View = "canteen_ongoing"
)

type rule struct {
	staff    bool // canteen/admin view over all orders; otherwise teacher view over own orders
	statuses []models.OrderStatus
	sort     repository.SortOrder
}

// views is the table. Every status belongs to exactly one teacher view; pending through
// ready belong to exactly one canteen view.
var views = map[View]rule{
	TeacherOngoing: {
		statuses: []models.OrderStatus{models.OrderStatusPending, models.OrderStatusConfirmed, models.OrderStatusPreparing, models.OrderStatusReady},
		sort:     repository.SortDesc,
	},
	TeacherRecent: {
		statuses: []models.OrderStatus{models.OrderStatusDelivered, models.OrderStatusCancelled},
		sort:     repository.SortDesc,
	},
	CanteenIncoming: {
		staff:    true,
		statuses: []models.OrderStatus{models.OrderStatusPending, models.OrderStatusConfirmed},
		sort:     repository.SortDesc,
	},
	// Kitchen queue: oldest first.
	CanteenOngoing: {
		staff:    true,
		statuses: []models.OrderStatus{models.OrderStatusPreparing, models.OrderStatusReady},
		sort:     repository.SortAsc,
	},
}

// All lists the views in display order.
var All = []View{TeacherOngoing, TeacherRecent, CanteenIncoming, CanteenOngoing}

func lookup(v View) (rule, error) {
	r, ok := views[v]
	if !ok {
		return rule{}, apperr.Validation("unknown view %q", v)
	}
	return r, nil
}

// Valid reports whether v is a known view.
func (v View) Valid() bool {
	_, ok := views[v]
	return ok
}

// Statuses returns the statuses shown in v.
func Statuses(v View) ([]models.OrderStatus, error) {
	r, err := lookup(v)
	if err != nil {
		return nil, err
	}
	out := make([]models.OrderStatus, len(r.statuses))
	copy(out, r.statuses)
	return out, nil
}

// Sort returns the created_at direction of v.
func Sort(v View) (repository.SortOrder, error) {
	r, err := lookup(v)
	if err != nil {
		return "", err
	}
	return r.sort, nil
}

// ForStaff reports whether v is a canteen view.
func ForStaff(v View) bool {
	return views[v].staff
}

// Authorize checks that role may open v.
func Authorize(v View, role models.Role) error {
	r, err := lookup(v)
	if err != nil {
		return err
	}
	if r.staff != role.IsStaff() || !role.Valid() {
		return fmt.Errorf("%w: role %q cannot open %s", apperr.ErrForbidden, role, v)
	}
	return nil
}

// Filter builds the store query for v as seen by requesterID.
func Filter(v View, requesterID int64) (repository.OrderFilter, error) {
	r, err := lookup(v)
	if err != nil {
		return repository.OrderFilter{}, err
	}
	f := repository.OrderFilter{StatusIn: append([]models.OrderStatus(nil), r.statuses...), Sort: r.sort}
	if !r.staff {
		id := requesterID
		f.UserID = &id
	}
	return f, nil
}

// Includes reports whether o appears in v for requesterID.
func Includes(o models.Order, v View, requesterID int64) bool {
	r, ok := views[v]
	if !ok {
		return false
	}
	if !r.staff && o.UserID != requesterID {
		return false
	}
	for _, s := range r.statuses {
		if s == o.Status {
			return true
		}
	}
	return false
}

// ViewsFor returns the views that show an order in status s.
func ViewsFor(s models.OrderStatus) []View {
	var out []View
	for _, v := range All {
		for _, st := range views[v].statuses {
			if st == s {
				out = append(out, v)
				break
			}
		}
	}
	return out
}

// Project returns the orders of v visible to requesterID, sorted by created_at in the
// view's direction with ID as tie-break. It does not modify orders.
func Project(orders []models.Order, v View, requesterID int64) ([]models.Order, error) {
	r, err := lookup(v)
	if err != nil {
		return nil, err
	}
	out := make([]models.Order, 0, len(orders))
	for _, o := range orders {
		if Includes(o, v, requesterID) {
			out = append(out, o)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			if r.sort == repository.SortAsc {
				return a.CreatedAt.Before(b.CreatedAt)
			}
			return a.CreatedAt.After(b.CreatedAt)
		}
		if r.sort == repository.SortAsc {
			return a.ID < b.ID
		}
		return a.ID > b.ID
	})
	return out, nil
}
