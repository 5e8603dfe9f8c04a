package repository

import (
	"fmt"
	"testing"

	"github.com/dujiao-next/warehouse/internal/models"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupOperatorRepositoryTest(t *testing.T) *GormOperatorRepository {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.Operator{}); err != nil {
		t.Fatalf("migrate operator failed: %v", err)
	}
	return NewOperatorRepository(db)
}

func TestOperatorRepositoryCRUD(t *testing.T) {
	repo := setupOperatorRepositoryTest(t)

	missing, err := repo.GetByUsername("nobody")
	if err != nil || missing != nil {
		t.Fatalf("missing operator should return nil,nil got %v,%v", missing, err)
	}

	op := &models.Operator{Username: "clerk1", DisplayName: "仓管一号", PasswordHash: "x"}
	if err := repo.Create(op); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	got, err := repo.GetByUsername("clerk1")
	if err != nil || got == nil {
		t.Fatalf("get by username failed: %v", err)
	}
	if got.OperatorName() != "仓管一号" {
		t.Fatalf("unexpected operator name %s", got.OperatorName())
	}

	got.TokenVersion++
	if err := repo.Update(got); err != nil {
		t.Fatalf("update failed: %v", err)
	}
	byID, err := repo.GetByID(got.ID)
	if err != nil || byID == nil || byID.TokenVersion != 1 {
		t.Fatalf("unexpected operator after update: %+v %v", byID, err)
	}

	list, total, err := repo.List(OperatorListFilter{Page: 1, PageSize: 10, Keyword: "仓管"})
	if err != nil || len(list) != 1 || total != 1 {
		t.Fatalf("list failed: %v %d %d", err, len(list), total)
	}
	list, total, err = repo.List(OperatorListFilter{Keyword: "不存在"})
	if err != nil || len(list) != 0 || total != 0 {
		t.Fatalf("keyword filter should match nothing: %v %d %d", err, len(list), total)
	}
	if err := repo.Delete(got.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	count, err := repo.Count()
	if err != nil || count != 0 {
		t.Fatalf("expected zero operators after delete, got %d %v", count, err)
	}
}
