package migration

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	customerdomain "github.com/smallbiznis/regi/internal/customer/domain"
	itemdomain "github.com/smallbiznis/regi/internal/item/domain"
	membershipdomain "github.com/smallbiznis/regi/internal/membership/domain"
	saledomain "github.com/smallbiznis/regi/internal/sale/domain"
	taxdomain "github.com/smallbiznis/regi/internal/taxrate/domain"
	"gorm.io/gorm"
)

// RunMigrations applies the embedded SQL migrations. Postgres only;
// other databases go through AutoMigrate.
func RunMigrations(db *sql.DB) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}

	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}

	source, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	upErr := migrator.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", upErr)
	}
	// Do not call migrator.Close here because it would close the shared *sql.DB.

	return nil
}

// AutoMigrate mirrors the SQL migrations through gorm tags for the
// databases the migrator does not cover (sqlite local runs, mysql).
func AutoMigrate(conn *gorm.DB) error {
	return conn.AutoMigrate(
		&membershipdomain.MembershipType{},
		&itemdomain.Item{},
		&customerdomain.Customer{},
		&taxdomain.TaxRate{},
		&saledomain.Sale{},
		&saledomain.SaleDetail{},
	)
}
