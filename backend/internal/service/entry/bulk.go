package entry

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"headless-cms/backend/internal/infra/metrics"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// BulkAction 是批量操作类型。
type BulkAction string

const (
	BulkTrashAction   BulkAction = "trash"
	BulkRestoreAction BulkAction = "restore"
	BulkDeleteAction  BulkAction = "delete"
)

var bulkVerbs = map[BulkAction]string{
	BulkTrashAction:   "moved to trash",
	BulkRestoreAction: "restored",
	BulkDeleteAction:  "permanently deleted",
}

// BulkFailure 记录单个条目的失败原因。
type BulkFailure struct {
	ID    uint   `json:"id"`
	Error string `json:"error"`
}

// BulkReport 汇总批量操作结果，单条失败不会回滚其它条目。
type BulkReport struct {
	Action    BulkAction    `json:"action"`
	Requested int           `json:"requested"`
	Succeeded []uint        `json:"succeeded"`
	Failed    []BulkFailure `json:"failed"`
}

// Message 生成形如 "5 of 6 entries restored" 的提示。
func (r BulkReport) Message() string {
	noun := "entries"
	if r.Requested == 1 {
		noun = "entry"
	}
	return fmt.Sprintf("%d of %d %s %s", len(r.Succeeded), r.Requested, noun, bulkVerbs[r.Action])
}

// Partial 判断是否存在失败条目。
func (r BulkReport) Partial() bool {
	return len(r.Failed) > 0
}

// BulkTrash 批量移入回收站。
func (s *Service) BulkTrash(ctx context.Context, scope Scope, actor Actor, ids []uint) (BulkReport, error) {
	return s.runBulk(ctx, BulkTrashAction, ids, func(id uint) error {
		return s.Trash(ctx, scope, actor, id)
	})
}

// BulkRestore 批量从回收站恢复。
func (s *Service) BulkRestore(ctx context.Context, scope Scope, actor Actor, ids []uint) (BulkReport, error) {
	return s.runBulk(ctx, BulkRestoreAction, ids, func(id uint) error {
		return s.Restore(ctx, scope, actor, id)
	})
}

// BulkDelete 批量彻底删除，需要操作者重新输入密码。
func (s *Service) BulkDelete(ctx context.Context, scope Scope, actor Actor, ids []uint, password string) (BulkReport, error) {
	if !actor.Caps.ForceDeleteContent {
		return BulkReport{}, ErrForbidden
	}
	if err := s.VerifyPassword(ctx, actor.UserID, password); err != nil {
		return BulkReport{}, err
	}
	return s.runBulk(ctx, BulkDeleteAction, ids, func(id uint) error {
		return s.Delete(ctx, scope, actor, id)
	})
}

// VerifyPassword 使用 bcrypt 校验操作者密码。
func (s *Service) VerifyPassword(ctx context.Context, userID uint, password string) error {
	if strings.TrimSpace(password) == "" {
		return ErrConfirmationRequired
	}
	if s.users == nil || userID == 0 {
		return ErrInvalidPassword
	}
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrInvalidPassword
		}
		return fmt.Errorf("load user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return ErrInvalidPassword
	}
	return nil
}

func (s *Service) runBulk(ctx context.Context, action BulkAction, ids []uint, fn func(id uint) error) (BulkReport, error) {
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return BulkReport{}, ErrNothingSelected
	}
	report := BulkReport{
		Action:    action,
		Requested: len(ids),
		Succeeded: make([]uint, 0, len(ids)),
		Failed:    []BulkFailure{},
	}
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			report.Failed = append(report.Failed, BulkFailure{ID: id, Error: err.Error()})
			metrics.RecordBulkItem(string(action), "failed")
			continue
		}
		if err := fn(id); err != nil {
			report.Failed = append(report.Failed, BulkFailure{ID: id, Error: err.Error()})
			metrics.RecordBulkItem(string(action), "failed")
			s.logger.Warnw("bulk item failed", "action", action, "entry_id", id, "error", err)
			continue
		}
		report.Succeeded = append(report.Succeeded, id)
		metrics.RecordBulkItem(string(action), "success")
	}
	return report, nil
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
