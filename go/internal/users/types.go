package users

// CreateUserRequest carries the fields for a new directory entry.
type CreateUserRequest struct {
	Username string `json:"username"`
	Emoji    string `json:"emoji,omitempty"`
	Color    string `json:"color,omitempty"`
	Budget   int64  `json:"budget,omitempty"` // 0 means the default starting budget
}

// UpdateProfileRequest updates the cosmetic fields of a user.
type UpdateProfileRequest struct {
	Emoji string `json:"emoji"`
	Color string `json:"color"`
}
