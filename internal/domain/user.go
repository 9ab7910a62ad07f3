package domain

// User is the public view of an account
type User struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	CreatedAt string `json:"createdAt"` // RFC 3339, UTC
}

// Credential is a user directory record.
// Password holds a cleartext secret only for records imported from older
// installs; it is replaced by PasswordHash on the first successful login.
type Credential struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	Name         string `json:"name"`
	CreatedAt    string `json:"createdAt"`
	PasswordHash string `json:"passwordHash,omitempty"`
	Password     string `json:"password,omitempty"`
}

// User strips the secret fields
func (c Credential) User() User {
	return User{ID: c.ID, Email: c.Email, Name: c.Name, CreatedAt: c.CreatedAt}
}

// SignupRequest is the payload for account creation
type SignupRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Name     string `json:"name" binding:"required"`
}

// LoginRequest is the payload for login
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}
