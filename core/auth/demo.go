package auth

import (
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/dmitrymomot/storefront/core/storage"
	"github.com/dmitrymomot/storefront/pkg/token"
)

// DemoPassword is the fixed password shared by all demo identities.
const DemoPassword = "demo1234"

// demoRoleMarkers maps email local-part substrings to roles. Order
// matters: the first matching marker wins, so an email like
// "vendor-demo@..." resolves to supplier, not requester.
var demoRoleMarkers = []struct {
	marker string
	role   Role
}{
	{"vendor", RoleSupplier},
	{"supplier", RoleSupplier},
	{"sponsor", RoleSponsor},
	{"donor", RoleSponsor},
	{"client", RoleRequester},
	{"requester", RoleRequester},
	{"demo", RoleRequester},
}

// MatchDemo reports whether the credentials identify one of the
// well-known demo identities, and the role inferred from the email's
// local part. The exact marker list is illustrative policy, not a wire
// contract.
func MatchDemo(email, password string) (Role, bool) {
	if password != DemoPassword {
		return "", false
	}
	local := strings.ToLower(email)
	if at := strings.IndexByte(local, '@'); at >= 0 {
		local = local[:at]
	}
	for _, m := range demoRoleMarkers {
		if strings.Contains(local, m.marker) {
			return m.role, true
		}
	}
	return "", false
}

var displayTitle = cases.Title(language.English)

// demoStrategy fabricates a session locally: a synthesized user record
// and a demo-kind token, no network dependency at all.
type demoStrategy struct{}

func (demoStrategy) authenticate(email string, role Role) storage.Session[User] {
	local := email
	if at := strings.IndexByte(local, '@'); at >= 0 {
		local = local[:at]
	}
	name := displayTitle.String(strings.NewReplacer(".", " ", "_", " ", "-", " ").Replace(local))

	return storage.Session[User]{
		Token: token.NewDemo(string(role)),
		User: User{
			ID:          uuid.NewString(),
			Email:       email,
			DisplayName: name,
			Role:        role,
		},
	}
}
