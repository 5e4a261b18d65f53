package models

// Role is the kind of account a user holds. It maps to users.role.
type Role string

const (
	RoleTeacher Role = "teacher"
	RoleCanteen Role = "canteen"
	RoleAdmin   Role = "admin"
)

// IsStaff reports whether the role fulfils orders. Admins act as canteen staff.
func (r Role) IsStaff() bool {
	return r == RoleCanteen || r == RoleAdmin
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleTeacher, RoleCanteen, RoleAdmin:
		return true
	}
	return false
}

// User represents an account in the system.
// It maps to the `users` table.
type User struct {
	ID       int64  `db:"id" json:"id"`
	Username string `db:"username" json:"username"`
	Role     Role   `db:"role" json:"role"`
}

// Actor is the resolved caller of an operation: who they are and what they may do.
type Actor struct {
	UserID int64
	Role   Role
}

// ActorOf builds the Actor for a stored user.
func ActorOf(u *User) Actor {
	return Actor{UserID: u.ID, Role: u.Role}
}
