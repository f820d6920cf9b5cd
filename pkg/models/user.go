package models

const (
	AnonymousName = "Anonymous"
	SeedUserName  = "Book Lover"
)

// DisplayName picks the name stored on reviews and feedback at creation
// time: profile name, then email, then fallback. Only empty strings fall
// through.
func DisplayName(name, email, fallback string) string {
	if name != "" {
		return name
	}
	if email != "" {
		return email
	}
	return fallback
}
