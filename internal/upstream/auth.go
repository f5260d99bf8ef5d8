package upstream

import "context"

// Credentials carry a login attempt. Database selects the tenant the
// session will be bound to.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Database string `json:"database"`
}

// User is the authenticated identity returned by the produce API.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	FullName string `json:"fullName,omitempty"`
	Role     string `json:"role,omitempty"`
}

// Login authenticates against the produce API. The tenant header is taken
// from the credentials' database name for this one call.
func (c *Client) Login(ctx context.Context, creds Credentials) (User, error) {
	if creds.Database != "" {
		ctx = WithTenant(ctx, creds.Database)
	}
	var user User
	err := c.post(ctx, "/api/auth/login", creds, &user)
	return user, err
}
