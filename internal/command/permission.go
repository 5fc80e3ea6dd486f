package command

// PermissionChecker decides whether a user holds a permission node
type PermissionChecker interface {
	HasPermission(userID, node string) bool
}

// AllowAll grants every node to every user
type AllowAll struct{}

// HasPermission always returns true
func (AllowAll) HasPermission(string, string) bool { return true }

// UserAllowlist grants its nodes to the listed users only.
// An empty user list grants them to everyone.
type UserAllowlist struct {
	users map[string]struct{}
	nodes map[string]struct{}
}

// NewUserAllowlist restricts nodes to users
func NewUserAllowlist(users []string, nodes ...string) *UserAllowlist {
	a := &UserAllowlist{
		users: make(map[string]struct{}, len(users)),
		nodes: make(map[string]struct{}, len(nodes)),
	}
	for _, u := range users {
		a.users[u] = struct{}{}
	}
	for _, n := range nodes {
		a.nodes[n] = struct{}{}
	}
	return a
}

// HasPermission reports whether userID may use node.
// Nodes the allowlist does not manage are granted.
func (a *UserAllowlist) HasPermission(userID, node string) bool {
	if _, managed := a.nodes[node]; !managed || len(a.users) == 0 {
		return true
	}
	_, ok := a.users[userID]
	return ok
}
