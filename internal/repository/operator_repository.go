package repository

import (
	"errors"
	"strings"

	"github.com/dujiao-next/warehouse/internal/models"

	"gorm.io/gorm"
)

// OperatorRepository 操作员账号数据访问接口
type OperatorRepository interface {
	GetByUsername(username string) (*models.Operator, error)
	GetByID(id uint) (*models.Operator, error)
	List(filter OperatorListFilter) ([]models.Operator, int64, error)
	Count() (int64, error)
	Create(operator *models.Operator) error
	Update(operator *models.Operator) error
	Delete(id uint) error
}

// GormOperatorRepository GORM 实现
type GormOperatorRepository struct {
	db *gorm.DB
}

// NewOperatorRepository 创建操作员仓库
func NewOperatorRepository(db *gorm.DB) *GormOperatorRepository {
	return &GormOperatorRepository{db: db}
}

// GetByUsername 根据用户名获取操作员
func (r *GormOperatorRepository) GetByUsername(username string) (*models.Operator, error) {
	var operator models.Operator
	if err := r.db.Where("username = ?", username).First(&operator).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &operator, nil
}

// GetByID 根据 ID 获取操作员
func (r *GormOperatorRepository) GetByID(id uint) (*models.Operator, error) {
	var operator models.Operator
	if err := r.db.First(&operator, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &operator, nil
}

// List 分页获取操作员列表，关键字匹配用户名或显示名
func (r *GormOperatorRepository) List(filter OperatorListFilter) ([]models.Operator, int64, error) {
	query := r.db.Model(&models.Operator{})
	if keyword := strings.TrimSpace(filter.Keyword); keyword != "" {
		like := "%" + keyword + "%"
		query = query.Where("username LIKE ? OR display_name LIKE ?", like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	operators := make([]models.Operator, 0)
	err := applyPagination(query, filter.Page, filter.PageSize).
		Select("id", "username", "display_name", "is_super", "last_login_at", "created_at").
		Order("id ASC").
		Find(&operators).Error
	if err != nil {
		return nil, 0, err
	}
	return operators, total, nil
}

// Count 统计操作员数量
func (r *GormOperatorRepository) Count() (int64, error) {
	var count int64
	if err := r.db.Model(&models.Operator{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Create 创建操作员
func (r *GormOperatorRepository) Create(operator *models.Operator) error {
	return r.db.Create(operator).Error
}

// Update 更新操作员
func (r *GormOperatorRepository) Update(operator *models.Operator) error {
	return r.db.Save(operator).Error
}

// Delete 删除操作员（软删除）
func (r *GormOperatorRepository) Delete(id uint) error {
	if id == 0 {
		return nil
	}
	return r.db.Delete(&models.Operator{}, id).Error
}
