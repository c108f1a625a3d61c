package db

import (
	"fmt"
	"sync/atomic"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

var testDBSeq atomic.Int64

// NewTest opens a fresh in-memory database. Every call gets its own
// namespace, so concurrent tests never see each other's rows, while
// connections from the same pool share one database.
func NewTest() (*gorm.DB, error) {
	dsn := fmt.Sprintf("file:regi_test_%d?mode=memory&cache=shared", testDBSeq.Add(1))
	return gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
}
