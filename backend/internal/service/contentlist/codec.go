package contentlist

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// SettingsVersion 是当前设置信封的版本号。
const SettingsVersion = 2

// ErrUndecodableSettings 表示持久化的设置无法以任何已知格式解码。
var ErrUndecodableSettings = errors.New("undecodable table settings")

// Encoding 标识设置的序列化格式。
type Encoding int

const (
	// EncodingEnvelope 是当前格式 {version, payload}。
	EncodingEnvelope Encoding = iota
	// EncodingLegacyPlain 是旧版直接存放的 JSON。
	EncodingLegacyPlain
	// EncodingLegacyObfuscated 是旧版 base64 编码后的 JSON。
	EncodingLegacyObfuscated
)

type envelope struct {
	Version int             `json:"version"`
	Payload json.RawMessage `json:"payload"`
}

// legacySettings 是旧版前端表格状态的形态。
type legacySettings struct {
	ColumnVisibility map[string]bool `json:"columnVisibility"`
	ColumnFilters    []struct {
		ID    string `json:"id"`
		Value any    `json:"value"`
	} `json:"columnFilters"`
	DateRanges map[string]legacyRange `json:"dateRanges"`
	Sorting    []struct {
		ID   string `json:"id"`
		Desc bool   `json:"desc"`
	} `json:"sorting"`
	Pagination *struct {
		PageIndex int `json:"pageIndex"`
		PageSize  int `json:"pageSize"`
	} `json:"pagination"`
	GlobalFilter string `json:"globalFilter"`
}

type legacyRange struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// EncodeSettings 以当前信封格式序列化设置。
func EncodeSettings(s Settings) (string, error) {
	return Encode(s, EncodingEnvelope)
}

// Encode 以指定格式序列化设置，旧格式仅用于兼容导出与测试。
func Encode(s Settings, enc Encoding) (string, error) {
	s = s.Normalize()
	switch enc {
	case EncodingEnvelope:
		payload, err := json.Marshal(s)
		if err != nil {
			return "", fmt.Errorf("encode table settings: %w", err)
		}
		raw, err := json.Marshal(envelope{Version: SettingsVersion, Payload: payload})
		if err != nil {
			return "", fmt.Errorf("encode settings envelope: %w", err)
		}
		return string(raw), nil
	case EncodingLegacyPlain, EncodingLegacyObfuscated:
		raw, err := json.Marshal(toLegacy(s))
		if err != nil {
			return "", fmt.Errorf("encode legacy settings: %w", err)
		}
		if enc == EncodingLegacyObfuscated {
			return base64.StdEncoding.EncodeToString(raw), nil
		}
		return string(raw), nil
	default:
		return "", fmt.Errorf("unknown settings encoding %d", enc)
	}
}

// DecodeSettings 依次尝试信封格式、旧版明文 JSON、旧版 base64 编码，
// 全部失败时返回 ErrUndecodableSettings。
func DecodeSettings(blob string) (Settings, error) {
	blob = strings.TrimSpace(blob)
	if blob == "" {
		return Settings{}, ErrUndecodableSettings
	}
	if s, ok := decodeJSON([]byte(blob)); ok {
		return s, nil
	}
	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.RawStdEncoding, base64.URLEncoding} {
		raw, err := enc.DecodeString(blob)
		if err != nil {
			continue
		}
		if s, ok := decodeJSON(raw); ok {
			return s, nil
		}
	}
	return Settings{}, ErrUndecodableSettings
}

func decodeJSON(raw []byte) (Settings, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return Settings{}, false
	}
	if _, ok := fields["version"]; ok {
		var env envelope
		if err := json.Unmarshal(raw, &env); err != nil || env.Version <= 0 || len(env.Payload) == 0 {
			return Settings{}, false
		}
		return decodePayload(env.Version, env.Payload)
	}
	return migrateLegacy(raw)
}

func decodePayload(version int, payload json.RawMessage) (Settings, bool) {
	switch {
	case version == 1:
		// 版本 1 的 payload 即旧版表格状态
		return migrateLegacy(payload)
	case version >= SettingsVersion:
		s := DefaultSettings()
		if err := json.Unmarshal(payload, &s); err != nil {
			return Settings{}, false
		}
		return s.Normalize(), true
	default:
		return Settings{}, false
	}
}

func migrateLegacy(raw []byte) (Settings, bool) {
	var legacy legacySettings
	if err := json.Unmarshal(raw, &legacy); err != nil {
		return Settings{}, false
	}
	s := DefaultSettings()
	for k, v := range legacy.ColumnVisibility {
		s.ColumnVisibility[k] = v
	}
	for _, f := range legacy.ColumnFilters {
		switch v := f.Value.(type) {
		case string:
			if v != "" {
				s.Filters[f.ID] = v
			}
		case float64, bool:
			s.Filters[f.ID] = fmt.Sprint(v)
		}
	}
	for k, r := range legacy.DateRanges {
		s.DateRanges[k] = DateRange{From: r.From, To: r.To}
	}
	if len(legacy.Sorting) > 0 {
		s.Sort.Column = legacy.Sorting[0].ID
		s.Sort.Direction = DirectionAsc
		if legacy.Sorting[0].Desc {
			s.Sort.Direction = DirectionDesc
		}
	}
	if legacy.Pagination != nil {
		s.Page = legacy.Pagination.PageIndex + 1
		s.PageSize = legacy.Pagination.PageSize
	}
	s.Search = legacy.GlobalFilter
	return s.Normalize(), true
}

func toLegacy(s Settings) legacySettings {
	var legacy legacySettings
	legacy.ColumnVisibility = s.ColumnVisibility
	for id, value := range s.Filters {
		legacy.ColumnFilters = append(legacy.ColumnFilters, struct {
			ID    string `json:"id"`
			Value any    `json:"value"`
		}{ID: id, Value: value})
	}
	legacy.DateRanges = make(map[string]legacyRange, len(s.DateRanges))
	for k, r := range s.DateRanges {
		legacy.DateRanges[k] = legacyRange{From: r.From, To: r.To}
	}
	if s.Sort.Column != "" {
		legacy.Sorting = append(legacy.Sorting, struct {
			ID   string `json:"id"`
			Desc bool   `json:"desc"`
		}{ID: s.Sort.Column, Desc: s.Sort.Direction != DirectionAsc})
	}
	legacy.Pagination = &struct {
		PageIndex int `json:"pageIndex"`
		PageSize  int `json:"pageSize"`
	}{PageIndex: s.Page - 1, PageSize: s.PageSize}
	legacy.GlobalFilter = s.Search
	return legacy
}
