package auth

// Role identifies which side of the marketplace a user acts on. Exactly
// one role per user; the role is immutable for the lifetime of a session.
type Role string

const (
	// RoleRequester browses products and places orders.
	RoleRequester Role = "requester"
	// RoleSupplier lists and fulfills products.
	RoleSupplier Role = "supplier"
	// RoleSponsor funds other users' orders.
	RoleSponsor Role = "sponsor"
)

// Valid reports whether the role is one of the three known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleRequester, RoleSupplier, RoleSponsor:
		return true
	}
	return false
}

// User is the cached user record mirrored between memory and the
// persistent store.
type User struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	Role        Role   `json:"role"`
	Avatar      string `json:"avatar,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Address     string `json:"address,omitempty"`
	City        string `json:"city,omitempty"`

	// Role-specific fields.
	CompanyName  string `json:"companyName,omitempty"`  // suppliers
	Organization string `json:"organization,omitempty"` // sponsors
}
