package repo

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type GormRepo struct {
	DB *gorm.DB
}

// withUpdateLock adds SELECT ... FOR UPDATE. sqlite (used by the tests) has
// no row locks; its transactions serialize writers anyway.
func withUpdateLock(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}
