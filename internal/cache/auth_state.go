package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/dujiao-next/warehouse/internal/models"
)

const authStateCacheTTL = 10 * time.Minute

// OperatorAuthState 操作员鉴权快照
// token_invalid_before 为 Unix 秒时间戳，0 表示未设置
type OperatorAuthState struct {
	OperatorID         uint   `json:"operator_id"`
	Username           string `json:"username"`
	TokenVersion       uint64 `json:"token_version"`
	TokenInvalidBefore int64  `json:"token_invalid_before"`
	IsSuper            bool   `json:"is_super"`
	UpdatedAt          int64  `json:"updated_at"`
}

func operatorAuthStateKey(operatorID uint) string {
	return fmt.Sprintf("auth:operator:%d", operatorID)
}

// BuildOperatorAuthState 从操作员模型构建鉴权快照
func BuildOperatorAuthState(operator *models.Operator) *OperatorAuthState {
	if operator == nil {
		return nil
	}
	state := &OperatorAuthState{
		OperatorID:   operator.ID,
		Username:     operator.Username,
		TokenVersion: operator.TokenVersion,
		IsSuper:      operator.IsSuper,
		UpdatedAt:    time.Now().Unix(),
	}
	if operator.TokenInvalidBefore != nil {
		state.TokenInvalidBefore = operator.TokenInvalidBefore.Unix()
	}
	return state
}

// GetOperatorAuthState 获取操作员鉴权快照
func GetOperatorAuthState(ctx context.Context, operatorID uint) (*OperatorAuthState, bool, error) {
	if operatorID == 0 {
		return nil, false, nil
	}
	var state OperatorAuthState
	hit, err := GetJSON(ctx, operatorAuthStateKey(operatorID), &state)
	if err != nil || !hit {
		return nil, hit, err
	}
	return &state, true, nil
}

// SetOperatorAuthState 写入操作员鉴权快照
func SetOperatorAuthState(ctx context.Context, state *OperatorAuthState) error {
	if state == nil || state.OperatorID == 0 {
		return nil
	}
	return SetJSON(ctx, operatorAuthStateKey(state.OperatorID), state, authStateCacheTTL)
}

// DelOperatorAuthState 删除操作员鉴权快照
func DelOperatorAuthState(ctx context.Context, operatorID uint) error {
	if operatorID == 0 {
		return nil
	}
	return Del(ctx, operatorAuthStateKey(operatorID))
}
