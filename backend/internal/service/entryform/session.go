package entryform

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrSessionNotFound 表示会话不存在或已过期。
var ErrSessionNotFound = errors.New("form session not found")

// SessionStore 按用户与 token 保存序列化后的表单。
type SessionStore interface {
	Save(ctx context.Context, userID uint, token string, payload []byte) error
	Load(ctx context.Context, userID uint, token string) ([]byte, error)
	Delete(ctx context.Context, userID uint, token string) error
}

// Sessions 负责表单与会话存储之间的编解码。
type Sessions struct {
	store  SessionStore
	engine *Engine
}

// NewSessions 构造会话管理器。
func NewSessions(store SessionStore, engine *Engine) *Sessions {
	return &Sessions{store: store, engine: engine}
}

// Save 写入表单快照并刷新过期时间。
func (s *Sessions) Save(ctx context.Context, userID uint, form *Form) error {
	payload, err := json.Marshal(form)
	if err != nil {
		return fmt.Errorf("encode form session: %w", err)
	}
	if err := s.store.Save(ctx, userID, form.Token, payload); err != nil {
		return fmt.Errorf("store form session: %w", err)
	}
	return nil
}

// Load 读回表单并恢复规范形态。
func (s *Sessions) Load(ctx context.Context, userID uint, token string) (*Form, error) {
	payload, err := s.store.Load(ctx, userID, token)
	if err != nil {
		return nil, err
	}
	if len(payload) == 0 {
		return nil, ErrSessionNotFound
	}
	var form Form
	if err := json.Unmarshal(payload, &form); err != nil {
		return nil, fmt.Errorf("decode form session: %w", err)
	}
	s.engine.Restore(&form)
	return &form, nil
}

// Delete 结束会话。
func (s *Sessions) Delete(ctx context.Context, userID uint, token string) error {
	return s.store.Delete(ctx, userID, token)
}
