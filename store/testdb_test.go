package store

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/cppla/fitquest/models"
)

var ctx = context.Background()

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatal(err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func mustUser(t *testing.T, db *gorm.DB, name string) *models.User {
	t.Helper()
	u := &models.User{Username: name}
	if err := NewUsers(db).Create(ctx, u); err != nil {
		t.Fatalf("create user %s: %v", name, err)
	}
	return u
}

func mustChallenge(t *testing.T, db *gorm.DB, ch models.Challenge) *models.Challenge {
	t.Helper()
	if err := NewChallenges(db).Create(ctx, &ch); err != nil {
		t.Fatalf("create challenge %s: %v", ch.Name, err)
	}
	return &ch
}

func mustCommunity(t *testing.T, db *gorm.DB, name string, owner uint) *models.Community {
	t.Helper()
	c := &models.Community{Name: name, CreatedBy: owner}
	if err := NewCommunities(db).Create(ctx, c); err != nil {
		t.Fatalf("create community %s: %v", name, err)
	}
	return c
}
