package domain

// Account is one seeded credential. The directory is fixed at startup;
// accounts are never created, mutated or removed at runtime. PasswordHash
// is an Argon2id encoded hash, never the plain password.
type Account struct {
	Username     string
	PasswordHash string
}
