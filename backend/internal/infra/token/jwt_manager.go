// Package token 签发与校验后台访问令牌，令牌携带操作者身份与能力集合。
package token

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	domain "headless-cms/backend/internal/domain/user"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	claimUsername = "username"
	claimIsAdmin  = "is_admin"
	claimCaps     = "caps"
	defaultTTL    = 12 * time.Hour
)

// ErrInvalidToken 表示令牌缺失、签名错误、过期或 claims 不完整。
var ErrInvalidToken = errors.New("invalid token")

// Claims 是中间件从令牌中解析出的身份信息。
type Claims struct {
	UserID    uint
	Username  string
	IsAdmin   bool
	Caps      domain.Capabilities
	TokenID   string
	ExpiresAt time.Time
}

// JWTManager 基于 HS256 签发访问令牌。
type JWTManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewJWTManager 创建 JWT 管理器，ttl 小于等于 0 时使用 12 小时。
func NewJWTManager(secret string, ttl time.Duration) *JWTManager {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &JWTManager{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue 为用户签发访问令牌。管理员的能力集合总是全部开启。
func (m *JWTManager) Issue(user *domain.User, caps domain.Capabilities) (string, time.Time, error) {
	if user == nil || user.ID == 0 {
		return "", time.Time{}, errors.New("user is required")
	}
	if user.IsAdmin {
		caps = domain.AllCapabilities()
	}
	issuedAt := m.now()
	expiresAt := issuedAt.Add(m.ttl)

	claims := jwt.MapClaims{
		"sub":         strconv.FormatUint(uint64(user.ID), 10),
		"jti":         uuid.NewString(),
		"iat":         issuedAt.Unix(),
		"exp":         expiresAt.Unix(),
		claimUsername: user.Username,
		claimIsAdmin:  user.IsAdmin,
		claimCaps:     caps,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Parse 校验签名与有效期并解析 claims。
func (m *JWTManager) Parse(raw string) (Claims, error) {
	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrInvalidKeyType
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now))
	if err != nil || !parsed.Valid {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	userID, err := subject(claims["sub"])
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	out := Claims{UserID: userID}
	out.Username, _ = claims[claimUsername].(string)
	out.IsAdmin, _ = claims[claimIsAdmin].(bool)
	out.TokenID, _ = claims["jti"].(string)
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		out.ExpiresAt = exp.Time
	}

	if out.IsAdmin {
		out.Caps = domain.AllCapabilities()
	} else if rawCaps, ok := claims[claimCaps]; ok {
		blob, err := json.Marshal(rawCaps)
		if err == nil {
			_ = json.Unmarshal(blob, &out.Caps)
		}
	}
	return out, nil
}

func subject(raw any) (uint, error) {
	var text string
	switch v := raw.(type) {
	case string:
		text = v
	case float64:
		if v < 0 {
			return 0, errors.New("invalid subject")
		}
		text = strconv.FormatFloat(v, 'f', 0, 64)
	case json.Number:
		text = v.String()
	default:
		return 0, errors.New("missing subject")
	}
	id, err := strconv.ParseUint(text, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("parse subject %q", text)
	}
	return uint(id), nil
}
