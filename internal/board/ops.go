package board

import (
	"context"

	"taskboard/api"
	"taskboard/internal/notice"
	"taskboard/internal/utils"
)

// Ops are the reconciliation operations: each one issues the REST call
// first and mutates the store only after the server confirmed (pessimistic
// throughout). On failure the REST client has already surfaced the error
// as a notice, so operations just report ok=false and leave the tree
// untouched; there are no partial-apply states.
type Ops struct {
	store   *Store
	client  api.Client
	notices *notice.Queue
	log     *utils.Logger
}

// NewOps creates the reconciliation operations bound to a store and client.
func NewOps(store *Store, client api.Client, notices *notice.Queue) *Ops {
	return &Ops{
		store:   store,
		client:  client,
		notices: notices,
		log:     utils.GetLogger(),
	}
}

// Store returns the underlying board store.
func (o *Ops) Store() *Store {
	return o.store
}

// Refresh re-fetches the complete snapshot and rebuilds the tree.
func (o *Ops) Refresh(ctx context.Context) bool {
	snap, err := o.client.FetchAll(ctx)
	if err != nil {
		return false
	}
	o.store.Load(snap)
	return true
}

// AddCategory creates a category and inserts the persisted entity.
func (o *Ops) AddCategory(ctx context.Context, name, content string) bool {
	created, err := o.client.CreateCategory(ctx, &api.Category{
		CategoryName: name,
		Content:      content,
	})
	if err != nil {
		return false
	}
	o.store.InsertCategory(*created)
	o.notices.Push(notice.Success, "Category created")
	return true
}

// UpdateCategory renames or edits a category.
func (o *Ops) UpdateCategory(ctx context.Context, c api.Category) bool {
	updated, err := o.client.UpdateCategory(ctx, &c)
	if err != nil {
		return false
	}
	if !o.store.ApplyCategoryUpdate(*updated) {
		o.log.Debug("updated category %d not present locally", updated.ID)
		return false
	}
	o.notices.Push(notice.Success, "Category updated")
	return true
}

// DeleteCategory removes a category. The server cascades the delete to
// items, progresses, and notifies; locally the whole subtree is dropped
// in one step and selection falls back if needed.
func (o *Ops) DeleteCategory(ctx context.Context, id int64) bool {
	if err := o.client.DeleteCategory(ctx, id); err != nil {
		return false
	}
	o.store.RemoveCategory(id)
	o.notices.Push(notice.Success, "Category deleted")
	return true
}

// AddItem creates an item under the currently selected category.
func (o *Ops) AddItem(ctx context.Context, name, content, itemAt string) bool {
	parentID := o.store.ParentCategoryID()
	if parentID == 0 {
		o.notices.Push(notice.Warning, "Select a category first")
		return false
	}
	created, err := o.client.CreateItem(ctx, &api.Item{
		CategoryID: parentID,
		ItemName:   name,
		Content:    content,
		ItemAt:     itemAt,
	})
	if err != nil {
		return false
	}
	if !o.store.InsertItem(*created) {
		o.log.Debug("created item %d references unknown category %d", created.ID, created.CategoryID)
		return false
	}
	o.notices.Push(notice.Success, "Item created")
	return true
}

// UpdateItem edits an item's own fields.
func (o *Ops) UpdateItem(ctx context.Context, it api.Item) bool {
	updated, err := o.client.UpdateItem(ctx, &it)
	if err != nil {
		return false
	}
	if !o.store.ApplyItemUpdate(*updated) {
		o.log.Debug("updated item %d not present locally", updated.ID)
		return false
	}
	o.notices.Push(notice.Success, "Item updated")
	return true
}

// DeleteItem removes an item and its progress subtree.
func (o *Ops) DeleteItem(ctx context.Context, id int64) bool {
	if err := o.client.DeleteItem(ctx, id); err != nil {
		return false
	}
	o.store.RemoveItem(id)
	o.notices.Push(notice.Success, "Item deleted")
	return true
}

// AddProgress creates a progress entry under an item.
func (o *Ops) AddProgress(ctx context.Context, itemID int64, name, content, progressAt string) bool {
	created, err := o.client.CreateProgress(ctx, &api.Progress{
		ItemID:       itemID,
		ProgressName: name,
		Content:      content,
		ProgressAt:   progressAt,
		Status:       api.StatusNormal,
	})
	if err != nil {
		return false
	}
	if !o.store.InsertProgress(*created) {
		o.log.Debug("created progress %d references unknown item %d", created.ID, created.ItemID)
		return false
	}
	o.notices.Push(notice.Success, "Progress created")
	return true
}

// UpdateProgress edits a progress entry's own fields.
func (o *Ops) UpdateProgress(ctx context.Context, p api.Progress) bool {
	updated, err := o.client.UpdateProgress(ctx, &p)
	if err != nil {
		return false
	}
	if !o.store.ApplyProgressUpdate(*updated) {
		o.log.Debug("updated progress %d not present locally", updated.ID)
		return false
	}
	o.notices.Push(notice.Success, "Progress updated")
	return true
}

// SetProgressStatus changes only the status of a progress entry.
func (o *Ops) SetProgressStatus(ctx context.Context, id int64, status api.ProgressStatus) bool {
	if err := o.client.SetProgressStatus(ctx, id, status); err != nil {
		return false
	}
	if !o.store.SetProgressStatus(id, status) {
		o.log.Debug("progress %d not present locally after status change", id)
		return false
	}
	o.notices.Push(notice.Success, "Status updated")
	return true
}

// DeleteProgress removes a progress entry.
func (o *Ops) DeleteProgress(ctx context.Context, id int64) bool {
	if err := o.client.DeleteProgress(ctx, id); err != nil {
		return false
	}
	o.store.RemoveProgress(id)
	o.notices.Push(notice.Success, "Progress deleted")
	return true
}

// AddNotify schedules a notification on a progress entry. The persisted
// notify replaces any existing one on that progress (one active notify
// per progress).
func (o *Ops) AddNotify(ctx context.Context, n api.Notify) bool {
	created, err := o.client.CreateNotify(ctx, &n)
	if err != nil {
		return false
	}
	if !o.store.SetNotify(*created) {
		o.log.Debug("created notify %d references unknown progress %d", created.ID, created.ProgressID)
		return false
	}
	o.notices.Push(notice.Success, "Notification scheduled")
	return true
}

// UpdateNotify edits a notification schedule.
func (o *Ops) UpdateNotify(ctx context.Context, n api.Notify) bool {
	updated, err := o.client.UpdateNotify(ctx, &n)
	if err != nil {
		return false
	}
	if !o.store.ApplyNotifyUpdate(*updated) {
		o.log.Debug("updated notify %d not present locally", updated.ID)
		return false
	}
	o.notices.Push(notice.Success, "Notification updated")
	return true
}

// DeleteNotify removes a notification schedule.
func (o *Ops) DeleteNotify(ctx context.Context, id int64) bool {
	if err := o.client.DeleteNotify(ctx, id); err != nil {
		return false
	}
	o.store.RemoveNotify(id)
	o.notices.Push(notice.Success, "Notification removed")
	return true
}
