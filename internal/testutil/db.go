// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"strings"
	"testing"
	"time"

	"distribuidora-backend/internal/database"
	"distribuidora-backend/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// NewDB opens a private in-memory sqlite database with every model migrated.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := "file:" + name + "?mode=memory&cache=shared&_foreign_keys=on"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	// Una sola conexión: la base en memoria vive mientras ésta siga abierta.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func D(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func Day(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func MustCreate(t *testing.T, db *gorm.DB, v any) {
	t.Helper()
	if err := db.Create(v).Error; err != nil {
		t.Fatalf("create %T: %v", v, err)
	}
}

func Product(t *testing.T, db *gorm.DB, code, name string) models.Product {
	t.Helper()
	p := models.Product{Code: code, Name: name, Unit: "UND", BasePrice: D("1000")}
	MustCreate(t, db, &p)
	return p
}

func Provider(t *testing.T, db *gorm.DB, nit, name string) models.Provider {
	t.Helper()
	p := models.Provider{NIT: nit, Name: name}
	MustCreate(t, db, &p)
	return p
}

func Client(t *testing.T, db *gorm.DB, doc, name string) models.Client {
	t.Helper()
	c := models.Client{DocumentType: models.DocumentCC, DocumentNumber: doc, Name: name}
	MustCreate(t, db, &c)
	return c
}
