package entry

import (
	"context"
	"fmt"

	"headless-cms/backend/internal/domain/content"
	"headless-cms/backend/internal/repository"

	"github.com/google/uuid"
)

// LinkTranslation 将当前内容与目标内容放入同一翻译分组并返回分组 ID。
// 优先沿用当前内容的分组，其次是目标内容的分组，都没有时新建。
func (s *Service) LinkTranslation(ctx context.Context, scope Scope, actor Actor, id, targetID uint) (string, error) {
	if !actor.Caps.UpdateContent {
		return "", ErrForbidden
	}
	collection, err := s.collection(ctx, scope)
	if err != nil {
		return "", err
	}
	current, err := s.find(ctx, collection.ID, id)
	if err != nil {
		return "", err
	}
	target, err := s.find(ctx, collection.ID, targetID)
	if err != nil {
		return "", err
	}
	if current.ID == target.ID || current.Locale == target.Locale {
		return "", fmt.Errorf("%w: entries share locale %s", ErrTranslationConflict, current.Locale)
	}

	groupID := current.GroupID()
	if groupID == "" {
		groupID = target.GroupID()
	}
	if groupID == "" {
		groupID = uuid.NewString()
	}

	members, err := s.entries.List(ctx, repository.EntryFilter{CollectionID: collection.ID, TranslationGroupID: groupID})
	if err != nil {
		return "", fmt.Errorf("load translation group: %w", err)
	}
	for _, member := range members {
		if member.ID == current.ID || member.ID == target.ID {
			continue
		}
		if member.Locale == current.Locale || member.Locale == target.Locale {
			return "", fmt.Errorf("%w: locale %s already linked", ErrTranslationConflict, member.Locale)
		}
	}

	err = s.entries.Transaction(ctx, func(tx *repository.EntryRepository) error {
		for _, e := range []*content.Entry{current, target} {
			if e.GroupID() == groupID {
				continue
			}
			if err := tx.SetTranslationGroup(ctx, e.ID, &groupID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("link translation: %w", err)
	}
	s.logger.Infow("translation linked", "entry_id", current.ID, "target_id", target.ID, "group_id", groupID)
	return groupID, nil
}

// UnlinkTranslation 将目标内容移出当前内容所在的翻译分组。
func (s *Service) UnlinkTranslation(ctx context.Context, scope Scope, actor Actor, id, targetID uint) error {
	if !actor.Caps.UpdateContent {
		return ErrForbidden
	}
	collection, err := s.collection(ctx, scope)
	if err != nil {
		return err
	}
	current, err := s.find(ctx, collection.ID, id)
	if err != nil {
		return err
	}
	target, err := s.find(ctx, collection.ID, targetID)
	if err != nil {
		return err
	}
	if current.GroupID() == "" || target.GroupID() != current.GroupID() {
		return fmt.Errorf("%w: entries are not linked", ErrTranslationConflict)
	}
	if err := s.entries.SetTranslationGroup(ctx, target.ID, nil); err != nil {
		return fmt.Errorf("unlink translation: %w", err)
	}
	return nil
}
