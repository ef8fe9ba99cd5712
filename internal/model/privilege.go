package model

// Privilege codes checked by the ledger's routes.
const (
	PrivilegeTransactionViewAll = "transaction:view_all"
	PrivilegeCommissionManage   = "commission:manage"
	PrivilegeLedgerReconcile    = "ledger:reconcile"
)

// DefaultPrivileges maps role codes to the privileges granted when a token
// carries no explicit privilege list.
var DefaultPrivileges = map[string][]string{
	RoleAdmin: {
		PrivilegeTransactionViewAll,
		PrivilegeCommissionManage,
		PrivilegeLedgerReconcile,
	},
	RoleMember: {},
}
