package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dujiao-next/warehouse/internal/cache"
	"github.com/dujiao-next/warehouse/internal/config"
	"github.com/dujiao-next/warehouse/internal/logger"
	"github.com/dujiao-next/warehouse/internal/models"
	"github.com/dujiao-next/warehouse/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// ErrTokenRevoked Token 已被撤销（改密或强制下线）
var ErrTokenRevoked = errors.New("token revoked")

// AuthService 操作员认证服务
type AuthService struct {
	cfg          *config.Config
	operatorRepo repository.OperatorRepository
}

// NewAuthService 创建认证服务实例
func NewAuthService(cfg *config.Config, operatorRepo repository.OperatorRepository) *AuthService {
	return &AuthService{
		cfg:          cfg,
		operatorRepo: operatorRepo,
	}
}

// HashPassword 使用 bcrypt 加密密码
func (s *AuthService) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword 验证密码
func (s *AuthService) VerifyPassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

// ValidatePassword 校验密码是否符合策略
func (s *AuthService) ValidatePassword(password string) error {
	if s == nil || s.cfg == nil {
		return nil
	}
	return validatePassword(s.cfg.Security.PasswordPolicy, password)
}

// JWTClaims JWT 声明
type JWTClaims struct {
	OperatorID   uint   `json:"operator_id"`
	Username     string `json:"username"`
	TokenVersion uint64 `json:"token_version"`
	jwt.RegisteredClaims
}

// GenerateJWT 生成 JWT Token
func (s *AuthService) GenerateJWT(operator *models.Operator) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(time.Duration(s.cfg.JWT.ExpireHours) * time.Hour)

	claims := JWTClaims{
		OperatorID:   operator.ID,
		Username:     operator.Username,
		TokenVersion: operator.TokenVersion,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.cfg.JWT.SecretKey))
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// ParseJWT 解析 JWT Token
func (s *AuthService) ParseJWT(tokenString string) (*JWTClaims, error) {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	token, err := parser.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.cfg.JWT.SecretKey), nil
	})
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(*JWTClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, errors.New("无效的 token")
}

// ResolveOperator 校验 Token 版本与失效时间，优先读取 redis 鉴权快照
func (s *AuthService) ResolveOperator(ctx context.Context, claims *JWTClaims) (*cache.OperatorAuthState, error) {
	if claims == nil || claims.OperatorID == 0 {
		return nil, ErrInvalidCredentials
	}
	state, hit, err := cache.GetOperatorAuthState(ctx, claims.OperatorID)
	if err != nil {
		logger.Warnw("operator_auth_state_cache_failed", "operator_id", claims.OperatorID, "error", err)
	}
	if !hit || state == nil {
		operator, err := s.operatorRepo.GetByID(claims.OperatorID)
		if err != nil {
			return nil, err
		}
		if operator == nil {
			return nil, ErrInvalidCredentials
		}
		state = cache.BuildOperatorAuthState(operator)
		_ = cache.SetOperatorAuthState(ctx, state)
	}

	if state.TokenVersion != claims.TokenVersion {
		return nil, ErrTokenRevoked
	}
	if state.TokenInvalidBefore > 0 && claims.IssuedAt != nil && claims.IssuedAt.Unix() < state.TokenInvalidBefore {
		return nil, ErrTokenRevoked
	}
	return state, nil
}

// Login 操作员登录
func (s *AuthService) Login(username, password string) (*models.Operator, string, time.Time, error) {
	operator, err := s.operatorRepo.GetByUsername(strings.TrimSpace(username))
	if err != nil {
		return nil, "", time.Time{}, err
	}
	if operator == nil {
		return nil, "", time.Time{}, ErrInvalidCredentials
	}
	if err := s.VerifyPassword(operator.PasswordHash, password); err != nil {
		return nil, "", time.Time{}, ErrInvalidCredentials
	}

	token, expiresAt, err := s.GenerateJWT(operator)
	if err != nil {
		return nil, "", time.Time{}, err
	}

	now := time.Now()
	operator.LastLoginAt = &now
	if err := s.operatorRepo.Update(operator); err != nil {
		return nil, "", time.Time{}, err
	}
	_ = cache.SetOperatorAuthState(context.Background(), cache.BuildOperatorAuthState(operator))
	logger.Infow("operator_login", "operator_id", operator.ID, "username", operator.Username)
	return operator, token, expiresAt, nil
}

// ChangePassword 修改密码并使已签发的 Token 失效
func (s *AuthService) ChangePassword(operatorID uint, oldPassword, newPassword string) error {
	operator, err := s.operatorRepo.GetByID(operatorID)
	if err != nil {
		return err
	}
	if operator == nil {
		return ErrNotFound
	}
	if err := s.VerifyPassword(operator.PasswordHash, oldPassword); err != nil {
		return ErrInvalidPassword
	}
	if err := s.ValidatePassword(newPassword); err != nil {
		return err
	}

	hashedPassword, err := s.HashPassword(newPassword)
	if err != nil {
		return err
	}
	operator.PasswordHash = hashedPassword
	now := time.Now()
	operator.TokenVersion++
	operator.TokenInvalidBefore = &now
	if err := s.operatorRepo.Update(operator); err != nil {
		return err
	}
	_ = cache.SetOperatorAuthState(context.Background(), cache.BuildOperatorAuthState(operator))
	return nil
}
