package models

import (
	"strings"

	"github.com/dujiao-next/warehouse/internal/logger"

	"golang.org/x/crypto/bcrypt"
)

const (
	defaultOperatorUsername = "admin"
	defaultOperatorPassword = "admin123"
)

// InitDefaultOperator 初始化默认操作员账号，已有账号时只确保默认账号为超级操作员
func InitDefaultOperator(username, password string) error {
	var count int64
	if err := DB.Model(&Operator{}).Count(&count).Error; err != nil {
		return err
	}

	if count > 0 {
		if err := DB.Model(&Operator{}).Where("username = ?", defaultOperatorUsername).Update("is_super", true).Error; err != nil {
			logger.Warnw("ensure_default_operator_super_failed", "error", err)
		}
		return nil
	}

	username = strings.TrimSpace(username)
	if username == "" {
		username = defaultOperatorUsername
	}
	if password == "" {
		password = defaultOperatorPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	operator := Operator{
		Username:     username,
		DisplayName:  username,
		PasswordHash: string(hash),
		IsSuper:      true,
	}
	if err := DB.Create(&operator).Error; err != nil {
		return err
	}

	if password == defaultOperatorPassword {
		logger.Warnw("default_operator_created_with_default_password", "username", username)
		logger.Warnw("default_operator_password_change_required", "username", username)
	} else {
		logger.Warnw("default_operator_created", "username", username, "password_hidden", true)
	}
	return nil
}
