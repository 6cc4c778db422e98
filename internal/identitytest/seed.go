package identitytest

// DefaultPassword is the password of every seeded user.
const DefaultPassword = "password123"

// DefaultUsers is the dev-identity seed set.
func DefaultUsers() []User {
	return []User{
		{Email: "client@example.com", Password: DefaultPassword, Name: "Casey Client", Roles: []string{"CLIENT"}, Verified: true},
		{Email: "contractor@example.com", Password: DefaultPassword, Name: "Cory Contractor", Roles: []string{"CONTRACTOR"}, Verified: true},
		{Email: "both@example.com", Password: DefaultPassword, Name: "Blair Both", Roles: []string{"CLIENT", "CONTRACTOR"}, Verified: true},
		{Email: "admin@example.com", Password: DefaultPassword, Name: "Avery Admin", Roles: []string{"ADMIN"}, Verified: true},
		{Email: "new@example.com", Password: DefaultPassword, Name: "Noa New"},
	}
}

// Seed adds users and returns their IDs keyed by email.
func (s *Server) Seed(users ...User) map[string]string {
	ids := make(map[string]string, len(users))
	for _, u := range users {
		ids[u.Email] = s.AddUser(u)
	}
	return ids
}
