package entryform

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"headless-cms/backend/internal/domain/content"
	"headless-cms/backend/internal/domain/project"
	"headless-cms/backend/internal/domain/schema"
	"headless-cms/backend/internal/service/entry"
	"headless-cms/backend/internal/service/values"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrBusy 表示同一表单已有操作在进行中。
	ErrBusy = errors.New("form is processing another request")
	// ErrNotSaved 表示对尚未保存的新内容执行了只对已有内容有效的操作。
	ErrNotSaved = errors.New("entry has not been saved yet")
	// ErrInvalidAction 表示未知的提交动作。
	ErrInvalidAction = errors.New("invalid submit action")
)

// Action 是保存后的去向。
type Action string

const (
	ActionStay  Action = "stay"
	ActionClose Action = "close"
	ActionNew   Action = "new"
)

// Navigation 描述操作完成后界面应跳转到哪里。
type Navigation string

const (
	NavigateNone    Navigation = "none"
	NavigateListing Navigation = "listing"
	NavigateEdit    Navigation = "edit"
	NavigateReload  Navigation = "reload"
)

// Outcome 是一次提交或危险操作的结果。
type Outcome struct {
	Navigation Navigation        `json:"navigation"`
	EntryID    uint              `json:"entry_id,omitempty"`
	Notice     string            `json:"notice,omitempty"`
	Errors     map[string]string `json:"errors,omitempty"`
	ScrollTop  bool              `json:"scroll_top,omitempty"`
}

// Gateway 是表单依赖的内容服务能力，*entry.Service 满足该接口。
type Gateway interface {
	Context(ctx context.Context, scope entry.Scope) (*project.Project, *project.Collection, []schema.Field, error)
	Get(ctx context.Context, scope entry.Scope, id uint) (*content.Entry, error)
	Create(ctx context.Context, scope entry.Scope, actor entry.Actor, in entry.SaveInput) (*content.Entry, error)
	Update(ctx context.Context, scope entry.Scope, actor entry.Actor, id uint, in entry.SaveInput) (*content.Entry, error)
	Trash(ctx context.Context, scope entry.Scope, actor entry.Actor, id uint) error
	Delete(ctx context.Context, scope entry.Scope, actor entry.Actor, id uint) error
	Duplicate(ctx context.Context, scope entry.Scope, actor entry.Actor, id uint) (*content.Entry, error)
}

// Engine 打开表单并执行保存与内容操作。
type Engine struct {
	gateway  Gateway
	logger   *zap.SugaredLogger
	inflight sync.Map
	now      func() time.Time
}

// NewEngine 构造表单引擎。
func NewEngine(gateway Gateway, logger *zap.SugaredLogger) *Engine {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Engine{gateway: gateway, logger: logger, now: time.Now}
}

// Open 打开编辑会话：entryID 为 0 时使用字段缺省值，否则载入已有内容并规范化。
// locale 为空时沿用内容自身的语言或项目默认语言。
func (e *Engine) Open(ctx context.Context, scope entry.Scope, entryID uint, locale string) (*Form, error) {
	proj, _, tree, err := e.gateway.Context(ctx, scope)
	if err != nil {
		return nil, err
	}
	form := &Form{
		Token:        uuid.NewString(),
		ProjectID:    scope.ProjectID,
		CollectionID: scope.CollectionID,
		Locales:      proj.LocaleList(),
		Fields:       tree,
		Errors:       map[string]string{},
		UpdatedAt:    e.now(),
	}
	if entryID == 0 {
		form.State = values.DefaultsFor(tree)
		form.Locale = proj.DefaultLocale
	} else {
		current, err := e.gateway.Get(ctx, scope, entryID)
		if err != nil {
			return nil, err
		}
		form.load(current)
	}
	if locale != "" {
		if err := form.SetLocale(locale); err != nil {
			return nil, fmt.Errorf("%w: %s", entry.ErrInvalidLocale, locale)
		}
	}
	return form, nil
}

// Restore 在从会话存储读回后重新规范化表单值，恢复 JSON 往返丢失的类型。
func (e *Engine) Restore(form *Form) {
	form.State = values.NormalizeForEdit(form.State, form.Fields)
	if form.Errors == nil {
		form.Errors = map[string]string{}
	}
	form.Processing = false
}

// Submit 按当前表单值创建或更新内容。
// 校验失败时保留表单值并返回字段错误，不发生跳转。
func (e *Engine) Submit(ctx context.Context, form *Form, actor entry.Actor, action Action, status string) (Outcome, error) {
	switch action {
	case ActionStay, ActionClose, ActionNew:
	case "":
		action = ActionStay
	default:
		return Outcome{Navigation: NavigateNone}, fmt.Errorf("%w: %s", ErrInvalidAction, action)
	}
	done, err := e.begin(form)
	if err != nil {
		return Outcome{Navigation: NavigateNone, Notice: "Please wait for the current request to finish."}, err
	}
	defer done()

	if status == "" {
		status = form.Status
	}
	scope := form.scope()
	in := entry.SaveInput{Data: form.State.Clone(), Status: status, Locale: form.Locale}
	var saved *content.Entry
	if form.IsNew() {
		saved, err = e.gateway.Create(ctx, scope, actor, in)
	} else {
		saved, err = e.gateway.Update(ctx, scope, actor, form.EntryID, in)
	}
	if err != nil {
		return e.failure(form, err), err
	}

	form.Errors = map[string]string{}
	created := form.IsNew()
	e.logger.Infow("entry form submitted", "token", form.Token, "entry_id", saved.ID, "action", action, "status", saved.Status)

	switch action {
	case ActionClose:
		return Outcome{Navigation: NavigateListing, EntryID: saved.ID, Notice: "Entry saved."}, nil
	case ActionNew:
		form.reset()
		return Outcome{Navigation: NavigateNone, EntryID: saved.ID, Notice: "Entry saved.", ScrollTop: true}, nil
	}
	if created {
		form.load(saved)
		return Outcome{Navigation: NavigateEdit, EntryID: saved.ID, Notice: "Entry created."}, nil
	}
	if err := e.reload(ctx, form); err != nil {
		e.logger.Warnw("reload after save failed", "entry_id", saved.ID, "error", err)
		form.load(saved)
	}
	return Outcome{Navigation: NavigateReload, EntryID: saved.ID, Notice: "Entry updated."}, nil
}

// Unpublish 将内容以草稿状态重新保存，不跳转。
func (e *Engine) Unpublish(ctx context.Context, form *Form, actor entry.Actor, confirmed bool) (Outcome, error) {
	if err := e.guard(form, actor.Caps.PublishContent, confirmed); err != nil {
		return Outcome{Navigation: NavigateNone, Notice: noticeFor(err)}, err
	}
	done, err := e.begin(form)
	if err != nil {
		return Outcome{Navigation: NavigateNone}, err
	}
	defer done()

	in := entry.SaveInput{Data: form.State.Clone(), Status: content.StatusDraft, Locale: form.Locale}
	saved, err := e.gateway.Update(ctx, form.scope(), actor, form.EntryID, in)
	if err != nil {
		return e.failure(form, err), err
	}
	form.load(saved)
	return Outcome{Navigation: NavigateNone, EntryID: saved.ID, Notice: "Entry unpublished."}, nil
}

// Trash 将内容移入回收站后回到列表。
func (e *Engine) Trash(ctx context.Context, form *Form, actor entry.Actor, confirmed bool) (Outcome, error) {
	return e.remove(ctx, form, actor.Caps.DeleteContent, confirmed, "Entry moved to trash.", func(scope entry.Scope) error {
		return e.gateway.Trash(ctx, scope, actor, form.EntryID)
	})
}

// Delete 彻底删除内容后回到列表。
func (e *Engine) Delete(ctx context.Context, form *Form, actor entry.Actor, confirmed bool) (Outcome, error) {
	return e.remove(ctx, form, actor.Caps.ForceDeleteContent, confirmed, "Entry permanently deleted.", func(scope entry.Scope) error {
		return e.gateway.Delete(ctx, scope, actor, form.EntryID)
	})
}

// Duplicate 在服务端复制内容，成功后跳转到新内容，未返回新 ID 时重新加载当前页。
func (e *Engine) Duplicate(ctx context.Context, form *Form, actor entry.Actor, confirmed bool) (Outcome, error) {
	if err := e.guard(form, actor.Caps.CreateContent, confirmed); err != nil {
		return Outcome{Navigation: NavigateNone, Notice: noticeFor(err)}, err
	}
	done, err := e.begin(form)
	if err != nil {
		return Outcome{Navigation: NavigateNone}, err
	}
	defer done()

	copied, err := e.gateway.Duplicate(ctx, form.scope(), actor, form.EntryID)
	if err != nil {
		return e.failure(form, err), err
	}
	if copied == nil || copied.ID == 0 {
		return Outcome{Navigation: NavigateReload, Notice: "Entry duplicated."}, nil
	}
	return Outcome{Navigation: NavigateEdit, EntryID: copied.ID, Notice: "Entry duplicated."}, nil
}

func (e *Engine) remove(ctx context.Context, form *Form, allowed, confirmed bool, notice string, fn func(entry.Scope) error) (Outcome, error) {
	if err := e.guard(form, allowed, confirmed); err != nil {
		return Outcome{Navigation: NavigateNone, Notice: noticeFor(err)}, err
	}
	done, err := e.begin(form)
	if err != nil {
		return Outcome{Navigation: NavigateNone}, err
	}
	defer done()

	if err := fn(form.scope()); err != nil {
		return e.failure(form, err), err
	}
	return Outcome{Navigation: NavigateListing, EntryID: form.EntryID, Notice: notice}, nil
}

func (e *Engine) guard(form *Form, allowed, confirmed bool) error {
	if form.IsNew() {
		return ErrNotSaved
	}
	if !allowed {
		return entry.ErrForbidden
	}
	if !confirmed {
		return entry.ErrConfirmationRequired
	}
	return nil
}

// begin 标记表单处理中，返回的函数无论成功失败都必须调用以复位。
func (e *Engine) begin(form *Form) (func(), error) {
	if _, loaded := e.inflight.LoadOrStore(form.Token, struct{}{}); loaded {
		return nil, ErrBusy
	}
	form.Processing = true
	return func() {
		form.Processing = false
		form.UpdatedAt = e.now()
		e.inflight.Delete(form.Token)
	}, nil
}

func (e *Engine) reload(ctx context.Context, form *Form) error {
	current, err := e.gateway.Get(ctx, form.scope(), form.EntryID)
	if err != nil {
		return err
	}
	form.load(current)
	return nil
}

// failure 只记录错误信息，不改动表单值。
func (e *Engine) failure(form *Form, err error) Outcome {
	out := Outcome{Navigation: NavigateNone, Notice: noticeFor(err)}
	var verr *entry.ValidationError
	if errors.As(err, &verr) {
		form.Errors = make(map[string]string, len(verr.Fields))
		for k, v := range verr.Fields {
			form.Errors[k] = v
		}
		out.Errors = verr.Fields
		return out
	}
	e.logger.Warnw("entry form request failed", "token", form.Token, "entry_id", form.EntryID, "error", err)
	return out
}

func (f *Form) load(current *content.Entry) {
	f.EntryID = current.ID
	f.Status = current.Status
	f.Locale = current.Locale
	f.State = values.NormalizeForEdit(current.Values(), f.Fields)
	f.Errors = map[string]string{}
}

func (f *Form) scope() entry.Scope {
	return entry.Scope{ProjectID: f.ProjectID, CollectionID: f.CollectionID}
}

func noticeFor(err error) string {
	var verr *entry.ValidationError
	switch {
	case errors.As(err, &verr):
		return "Please correct the highlighted fields."
	case errors.Is(err, entry.ErrForbidden):
		return "You are not allowed to perform this action."
	case errors.Is(err, entry.ErrConfirmationRequired):
		return "Please confirm this action."
	case errors.Is(err, entry.ErrEntryNotFound):
		return "The entry no longer exists."
	case errors.Is(err, entry.ErrSingletonViolation):
		return "This collection already has an entry for the selected locale."
	case errors.Is(err, ErrNotSaved):
		return "Save the entry first."
	case errors.Is(err, ErrBusy):
		return "Please wait for the current request to finish."
	default:
		return "Something went wrong. Please try again."
	}
}
