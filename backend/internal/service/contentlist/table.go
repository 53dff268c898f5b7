package contentlist

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultDebounce 是设置变化后触发检索前的等待时间。
const DefaultDebounce = 100 * time.Millisecond

// ErrTableClosed 表示表格实例已关闭。
var ErrTableClosed = errors.New("content table closed")

// SettingsStore 按键保存序列化后的表格设置。
type SettingsStore interface {
	Load(ctx context.Context, key string) (string, bool, error)
	Save(ctx context.Context, key, blob string) error
}

// State 是表格状态机的状态。
type State string

const (
	StateInitializing State = "initializing"
	StateIdle         State = "idle"
	StateFetching     State = "fetching"
)

// Snapshot 是表格在某一时刻的只读视图。
type Snapshot struct {
	State      State
	Settings   Settings
	Page       Page
	Err        error
	Generation uint64
	// Pending 为 true 表示仍有待执行的防抖检索或进行中的检索。
	Pending bool
	// Query 是当前设置对应的完整检索参数，含固定参数。
	Query Query
	// Selected 按选中顺序列出选择键，AllSelected 表示当前页已全选。
	Selected    []string
	AllSelected bool
}

// TableOption 配置 Table。
type TableOption func(*Table)

// WithDebounce 设置防抖时间。
func WithDebounce(d time.Duration) TableOption {
	return func(t *Table) {
		if d >= 0 {
			t.debounce = d
		}
	}
}

// WithLogger 注入日志。
func WithLogger(logger *zap.SugaredLogger) TableOption {
	return func(t *Table) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// WithBaseQuery 设置每次检索都附带的固定参数（语言、状态、回收站）。
func WithBaseQuery(q Query) TableOption {
	return func(t *Table) {
		t.base = q
	}
}

// WithFetchObserver 在每次检索结束后回调耗时与错误，用于指标采集。
func WithFetchObserver(fn func(time.Duration, error)) TableOption {
	return func(t *Table) {
		t.observe = fn
	}
}

// WithSelectionKey 自定义行选择键。
func WithSelectionKey(key KeyFunc) TableOption {
	return func(t *Table) {
		t.selection = NewSelection(key)
	}
}

// Table 是单个 pageName 的列表状态机：initializing → idle → fetching → idle。
// 设置变化经过防抖后检索，新的变化会取消在途检索，过期的结果按代数丢弃。
type Table struct {
	key      string
	store    SettingsStore
	fetcher  Fetcher
	debounce time.Duration
	base     Query
	observe  func(time.Duration, error)
	logger   *zap.SugaredLogger

	mu         sync.Mutex
	state      State
	settings   Settings
	page       Page
	err        error
	generation uint64
	timer      *time.Timer
	cancel     context.CancelFunc
	settled    chan struct{}
	closed     bool
	selection  *Selection
}

// NewTable 构造表格，调用 Load 之前处于 initializing 状态。
func NewTable(key string, store SettingsStore, fetcher Fetcher, opts ...TableOption) *Table {
	t := &Table{
		key:       key,
		store:     store,
		fetcher:   fetcher,
		debounce:  DefaultDebounce,
		logger:    zap.NewNop().Sugar(),
		state:     StateInitializing,
		settings:  DefaultSettings(),
		selection: NewSelection(nil),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Key 返回设置的持久化键。
func (t *Table) Key() string {
	return t.key
}

// Load 读取持久化设置并进入 idle，设置无法解码时静默使用默认值。
func (t *Table) Load(ctx context.Context) error {
	settings := DefaultSettings()
	if t.store != nil {
		blob, ok, err := t.store.Load(ctx, t.key)
		if err != nil {
			t.logger.Warnw("load table settings failed", "key", t.key, "error", err)
		} else if ok {
			decoded, decodeErr := DecodeSettings(blob)
			if decodeErr != nil {
				t.logger.Warnw("discard undecodable table settings", "key", t.key)
			} else {
				settings = decoded
			}
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrTableClosed
	}
	t.settings = settings
	t.state = StateIdle
	return nil
}

// Apply 应用设置变更、持久化并安排一次防抖检索。
// 行选择类变更只修改选择集合，选择在筛选、排序变化后保留。
func (t *Table) Apply(ctx context.Context, m Mutation) (Settings, error) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return Settings{}, ErrTableClosed
	}
	if m.Kind.selects() {
		err := t.selectLocked(m)
		current := t.settings
		t.mu.Unlock()
		return current, err
	}
	next, err := t.settings.Apply(m)
	if err != nil {
		t.mu.Unlock()
		return t.settings, err
	}
	t.settings = next
	t.scheduleLocked()
	t.mu.Unlock()

	if err := t.persist(ctx, next); err != nil {
		t.logger.Warnw("persist table settings failed", "key", t.key, "error", err)
	}
	return next, nil
}

// Refresh 立即检索并等待结果，取消所有待执行与进行中的检索。
func (t *Table) Refresh(ctx context.Context) (Snapshot, error) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return Snapshot{}, ErrTableClosed
	}
	t.stopLocked()
	t.generation++
	gen := t.generation
	if t.settled == nil {
		t.settled = make(chan struct{})
	}
	t.mu.Unlock()

	t.fetch(ctx, gen)
	snap := t.Snapshot()
	return snap, snap.Err
}

// Wait 阻塞到没有待执行的检索为止，返回最终快照。
func (t *Table) Wait(ctx context.Context) (Snapshot, error) {
	for {
		t.mu.Lock()
		ch := t.settled
		t.mu.Unlock()
		if ch == nil {
			return t.Snapshot(), nil
		}
		select {
		case <-ch:
		case <-ctx.Done():
			return t.Snapshot(), ctx.Err()
		}
	}
}

// Snapshot 返回当前状态。
func (t *Table) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Snapshot{
		State:       t.state,
		Settings:    t.settings.clone(),
		Page:        t.page,
		Err:         t.err,
		Generation:  t.generation,
		Pending:     t.settled != nil,
		Query:       t.queryLocked(),
		Selected:    t.selection.Keys(),
		AllSelected: t.selection.AllSelected(t.page.Entries),
	}
}

// Deselect 按键取消选中，用于批量操作后移除已处理的行。
func (t *Table) Deselect(keys ...string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, k := range keys {
		t.selection.DeselectKey(k)
	}
}

func (t *Table) selectLocked(m Mutation) error {
	switch m.Kind {
	case MutationSelectAll:
		t.selection.SelectAll(t.page.Entries)
		return nil
	case MutationClearSelection:
		t.selection.Clear()
		return nil
	}
	if m.Key == "" {
		return fmt.Errorf("%w: %s requires key", ErrInvalidMutation, m.Kind)
	}
	if m.Kind == MutationDeselect {
		t.selection.DeselectKey(m.Key)
		return nil
	}
	row, ok := t.selection.Find(t.page.Entries, m.Key)
	if !ok {
		return fmt.Errorf("%w: row %s is not on the current page", ErrInvalidMutation, m.Key)
	}
	if m.Kind == MutationToggleSelect {
		t.selection.Toggle(row)
	} else {
		t.selection.Select(row)
	}
	return nil
}

// Close 停止防抖定时器并取消在途检索，之后到达的结果会被忽略。
func (t *Table) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.closed = true
	t.stopLocked()
	t.generation++
	t.markSettledLocked()
}

func (t *Table) scheduleLocked() {
	t.stopLocked()
	t.generation++
	gen := t.generation
	if t.settled == nil {
		t.settled = make(chan struct{})
	}
	t.timer = time.AfterFunc(t.debounce, func() {
		t.fetch(context.Background(), gen)
	})
}

// stopLocked 清除防抖定时器并取消在途检索。
func (t *Table) stopLocked() {
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
}

func (t *Table) fetch(parent context.Context, gen uint64) {
	t.mu.Lock()
	if t.closed || gen != t.generation {
		t.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(parent)
	t.cancel = cancel
	t.timer = nil
	t.state = StateFetching
	q := t.queryLocked()
	t.mu.Unlock()

	start := time.Now()
	page, err := t.fetcher.Fetch(ctx, q)
	cancel()
	if t.observe != nil {
		t.observe(time.Since(start), err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed || gen != t.generation {
		// 已被更新的设置或关闭操作取代
		return
	}
	t.cancel = nil
	t.state = StateIdle
	if err != nil {
		t.err = err
		t.logger.Warnw("fetch content table failed", "key", t.key, "error", err)
	} else {
		t.err = nil
		t.page = page
	}
	t.markSettledLocked()
}

func (t *Table) queryLocked() Query {
	q := t.settings.Query()
	q.Locale = t.base.Locale
	q.Status = t.base.Status
	q.Trashed = t.base.Trashed
	return q
}

func (t *Table) markSettledLocked() {
	if t.settled != nil {
		close(t.settled)
		t.settled = nil
	}
}

func (t *Table) persist(ctx context.Context, s Settings) error {
	if t.store == nil {
		return nil
	}
	blob, err := EncodeSettings(s)
	if err != nil {
		return err
	}
	return t.store.Save(ctx, t.key, blob)
}
