package repository

import "gorm.io/gorm"

// advisoryLock takes a transaction-scoped Postgres advisory lock. With two
// keys the first names the resource class and the second the instance.
func advisoryLock(tx *gorm.DB, class string, key ...string) *gorm.DB {
	if len(key) == 0 {
		return tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", class)
	}
	return tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?), hashtext(?))", class, key[0])
}
