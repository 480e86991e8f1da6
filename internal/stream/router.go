package stream

import (
	"encoding/json"
	"fmt"

	"taskboard/internal/notice"
	"taskboard/internal/utils"
)

// Push message types the server currently emits.
const msgTypeLineNotify = "line_notify"

// pushMessage is the envelope the server sends on the notify stream.
type pushMessage struct {
	Type    string `json:"type"`
	Message struct {
		ID           int64  `json:"id"`
		CategoryID   int64  `json:"category_id"`
		ItemID       int64  `json:"item_id"`
		ProgressID   int64  `json:"progress_id"`
		LastExecuted string `json:"last_executed"`
	} `json:"message"`
}

// TreeApplier is the board-side hook for push updates.
type TreeApplier interface {
	ApplyLastExecuted(categoryID, itemID, progressID int64, lastExecuted string) bool
}

// Router decodes push payloads and applies them to the board. Messages
// for records the board does not know about yet (a push racing the bulk
// fetch) are dropped; the notice still fires so the user sees the event.
type Router struct {
	board   TreeApplier
	notices *notice.Queue
	log     *utils.Logger
}

// NewRouter creates a router applying messages to the given board.
func NewRouter(board TreeApplier, notices *notice.Queue) *Router {
	return &Router{board: board, notices: notices, log: utils.GetLogger()}
}

// Route handles one raw payload from the stream.
func (r *Router) Route(data string) error {
	var msg pushMessage
	if err := json.Unmarshal([]byte(data), &msg); err != nil {
		return fmt.Errorf("decoding push message: %w", err)
	}

	switch msg.Type {
	case msgTypeLineNotify:
		return r.routeLineNotify(msg)
	default:
		r.log.Debug("unknown push message type %q", msg.Type)
		return nil
	}
}

func (r *Router) routeLineNotify(msg pushMessage) error {
	m := msg.Message
	applied := r.board.ApplyLastExecuted(m.CategoryID, m.ItemID, m.ProgressID, m.LastExecuted)
	if !applied {
		r.log.Debug("push update for unknown progress %d/%d/%d, dropping tree update",
			m.CategoryID, m.ItemID, m.ProgressID)
	}

	r.notices.Push(notice.Info,
		fmt.Sprintf("Push: %d - %d - %d (%s)", m.CategoryID, m.ItemID, m.ProgressID, m.LastExecuted))
	return nil
}
