package entities

// Role is the profile role tag driving access control.
type Role string

const (
	RoleUser      Role = "USER"
	RoleLibrarian Role = "LIBRARIAN"
	RoleAdmin     Role = "ADMIN"
)

// Valid reports whether the role is one of the known tags.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleLibrarian, RoleAdmin:
		return true
	}
	return false
}

// CanManageCatalog reports whether the role may mutate catalog and borrow
// data and read author/genre/borrow listings.
func (r Role) CanManageCatalog() bool {
	return r == RoleLibrarian || r == RoleAdmin
}

// CanViewUsers reports whether the role may list and retrieve other users.
func (r Role) CanViewUsers() bool {
	return r == RoleLibrarian || r == RoleAdmin
}

// CanManageUsers reports whether the role may create, update and delete
// other user accounts.
func (r Role) CanManageUsers() bool {
	return r == RoleAdmin
}
