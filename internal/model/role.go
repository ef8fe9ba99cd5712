package model

// Role codes carried in the caller's token. Identity is owned elsewhere;
// the ledger only reads the role and privileges from claims.
const (
	RoleAdmin  = "ADMIN"
	RoleMember = "MEMBER"
)
