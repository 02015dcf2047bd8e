package fadeapi

import (
	"strconv"
	"strings"
)

// Role names reported by users/me.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// Record is one sensor-log row. Timestamp is kept verbatim; it is the
// record's identity.
type Record struct {
	Timestamp    string     `json:"ts"`
	SensorValues []*float64 `json:"sensor_values"`
}

// FormatValue renders sensor i for display, blank for nulls and missing slots.
func (r Record) FormatValue(i int) string {
	if i < 0 || i >= len(r.SensorValues) || r.SensorValues[i] == nil {
		return ""
	}
	return strconv.FormatFloat(*r.SensorValues[i], 'f', -1, 64)
}

// RecordQuery configures records/ requests.
type RecordQuery struct {
	Limit int
	Since string // inclusive lower bound
	Until string // inclusive upper bound
}

// User mirrors the users/ payloads.
type User struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	CreatedAt string `json:"created_at"`
	IsActive  bool   `json:"is_active"`
	Role      string `json:"role"`
}

// IsAdmin reports whether the user holds the admin role.
func (u User) IsAdmin() bool {
	return strings.EqualFold(strings.TrimSpace(u.Role), RoleAdmin)
}

// UserCreate is the payload for POST users/. Role is optional; the server
// defaults it.
type UserCreate struct {
	Username  string  `json:"username"`
	Password  string  `json:"password"`
	FirstName string  `json:"first_name"`
	LastName  string  `json:"last_name"`
	Email     string  `json:"email"`
	Role      *string `json:"role,omitempty"`
}

// WithRole sets the optional role.
func (u UserCreate) WithRole(role string) UserCreate {
	u.Role = &role
	return u
}

// UserUpdate is a partial update for PUT users/{id}. Only set fields are sent.
type UserUpdate struct {
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
	Email     *string `json:"email,omitempty"`
	Password  *string `json:"password,omitempty"`
	Role      *string `json:"role,omitempty"`
	IsActive  *bool   `json:"is_active,omitempty"`
}

func (u UserUpdate) WithFirstName(v string) UserUpdate { u.FirstName = &v; return u }
func (u UserUpdate) WithLastName(v string) UserUpdate  { u.LastName = &v; return u }
func (u UserUpdate) WithEmail(v string) UserUpdate     { u.Email = &v; return u }
func (u UserUpdate) WithPassword(v string) UserUpdate  { u.Password = &v; return u }
func (u UserUpdate) WithRole(v string) UserUpdate      { u.Role = &v; return u }
func (u UserUpdate) WithActive(v bool) UserUpdate      { u.IsActive = &v; return u }

// IsEmpty reports whether no field is set.
func (u UserUpdate) IsEmpty() bool {
	return u.FirstName == nil && u.LastName == nil && u.Email == nil &&
		u.Password == nil && u.Role == nil && u.IsActive == nil
}

// Info is a free-form JSON object, used for status and deletion summaries.
type Info map[string]any

// tokenPair mirrors the token and token/refresh responses.
type tokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}
