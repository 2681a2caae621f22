// Package commands maps normalized chat commands onto the record store, the
// pending-category state machine, and the settlement planner. It produces
// plain reply text plus menu flags; platform UI is built elsewhere.
package commands

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"warikanbot/internal/db"
	"warikanbot/internal/pending"
	"warikanbot/internal/split"
)

// Postback actions offered by the menus.
const (
	ActionStartRecord    = "start_record"
	ActionSelectCategory = "select_category"
	ActionDeleteLast     = "delete_last"
	ActionClearAll       = "clear_all"
	ActionQueryRecords   = "query_records"
	ActionSettlement     = "settlement"
)

// ErrProfileLookup marks a failed display-name resolution. The record append
// is aborted before any write and the pending category is re-armed.
var ErrProfileLookup = errors.New("profile lookup failed")

const recentLimit = 10

// Store is the persistence the dispatcher needs. *db.DB satisfies it.
type Store interface {
	AddRecord(ctx context.Context, sourceID, userID, userName, category string, amount int64) (int64, error)
	DeleteLastRecord(ctx context.Context, sourceID, userID string) (bool, error)
	ClearRecords(ctx context.Context, sourceID string) error
	RecentRecords(ctx context.Context, sourceID, userID string, limit int) ([]db.RecordLine, error)
	TotalsByName(ctx context.Context, sourceID string) ([]split.ParticipantTotal, error)
}

// ProfileResolver resolves an opaque participant id to a display name.
// *line.Client satisfies it.
type ProfileResolver interface {
	DisplayName(ctx context.Context, userID string) (string, error)
}

// Reply is the dispatcher's outbound result: plain text plus flags telling
// the renderer which menu to attach.
type Reply struct {
	Text           string
	ShowMenu       bool
	ShowCategories bool
}

type Handler struct {
	store    Store
	pending  *pending.Store
	profiles ProfileResolver
	log      *zap.SugaredLogger
}

func NewHandler(store Store, pendingStore *pending.Store, profiles ProfileResolver, log *zap.SugaredLogger) *Handler {
	return &Handler{
		store:    store,
		pending:  pendingStore,
		profiles: profiles,
		log:      log,
	}
}

// HandleText interprets free text. With a category pending for the scope the
// text is an amount attempt; otherwise it is noise and only re-offers the
// menu. Invalid amounts re-arm the category so the user never has to
// reselect it.
func (h *Handler) HandleText(ctx context.Context, sourceID, userID, text string) (Reply, error) {
	text = strings.TrimSpace(text)

	category, ok := h.pending.Take(sourceID)
	if !ok {
		return Reply{ShowMenu: true}, nil
	}

	amount, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		h.pending.Set(sourceID, category)
		return Reply{Text: "請輸入正確數字金額"}, nil
	}
	if amount <= 0 {
		h.pending.Set(sourceID, category)
		return Reply{Text: "金額需大於0，請重新輸入正確數字金額"}, nil
	}

	// Resolve the display name before touching the ledger: a failed lookup
	// must not leave a record with a placeholder name.
	userName, err := h.profiles.DisplayName(ctx, userID)
	if err != nil {
		h.pending.Set(sourceID, category)
		return Reply{}, fmt.Errorf("%w: %v", ErrProfileLookup, err)
	}

	if _, err := h.store.AddRecord(ctx, sourceID, userID, userName, category, amount); err != nil {
		h.pending.Set(sourceID, category)
		return Reply{}, fmt.Errorf("add record: %w", err)
	}

	h.log.Infow("recorded expense", "scope", sourceID, "category", category, "amount", amount)
	return Reply{
		Text:     fmt.Sprintf("記帳成功：%s $%d (%s)", category, amount, userName),
		ShowMenu: true,
	}, nil
}

// HandlePostback dispatches a structured menu action. Parameters are parsed
// and checked before any mutation; malformed data gets the unknown-command
// reply.
func (h *Handler) HandlePostback(ctx context.Context, sourceID, userID, data string) (Reply, error) {
	params, err := url.ParseQuery(data)
	if err != nil {
		return Reply{Text: "不明指令"}, nil
	}

	switch params.Get("action") {
	case ActionStartRecord:
		return Reply{ShowCategories: true}, nil

	case ActionSelectCategory:
		category := params.Get("category")
		if category == "" {
			return Reply{Text: "分類錯誤，請重新操作"}, nil
		}
		h.pending.Set(sourceID, category)
		return Reply{Text: fmt.Sprintf("你選擇了「%s」，請輸入金額（數字）", category)}, nil

	case ActionDeleteLast:
		deleted, err := h.store.DeleteLastRecord(ctx, sourceID, userID)
		if err != nil {
			return Reply{}, fmt.Errorf("delete last record: %w", err)
		}
		text := "沒有可刪除的記錄。"
		if deleted {
			text = "刪除最新記錄成功。"
		}
		return Reply{Text: text, ShowMenu: true}, nil

	case ActionClearAll:
		if err := h.store.ClearRecords(ctx, sourceID); err != nil {
			return Reply{}, fmt.Errorf("clear records: %w", err)
		}
		return Reply{Text: "已清除所有記錄。", ShowMenu: true}, nil

	case ActionQueryRecords:
		lines, err := h.store.RecentRecords(ctx, sourceID, userID, recentLimit)
		if err != nil {
			return Reply{}, fmt.Errorf("query recent records: %w", err)
		}
		return Reply{Text: formatRecent(lines), ShowMenu: true}, nil

	case ActionSettlement:
		totals, err := h.store.TotalsByName(ctx, sourceID)
		if err != nil {
			return Reply{}, fmt.Errorf("query totals: %w", err)
		}
		return Reply{Text: formatPlan(split.Settle(totals)), ShowMenu: true}, nil

	default:
		return Reply{Text: "不明指令"}, nil
	}
}

func formatRecent(lines []db.RecordLine) string {
	if len(lines) == 0 {
		return "沒有記錄"
	}
	var b strings.Builder
	b.WriteString("最近紀錄：")
	for _, line := range lines {
		fmt.Fprintf(&b, "\n%s - $%d", line.Category, line.Amount)
	}
	return b.String()
}

func formatPlan(plan split.Plan) string {
	switch {
	case plan.NoData:
		return "沒有記帳資料，無法計算分帳"
	case plan.Settled:
		return "所有人已經均分，無需轉帳"
	}
	lines := make([]string, 0, len(plan.Transfers))
	for _, t := range plan.Transfers {
		// Amounts round to whole units for display only.
		lines = append(lines, fmt.Sprintf("%s → %s：$%s", t.From, t.To, t.Amount.StringFixed(0)))
	}
	return strings.Join(lines, "\n")
}
