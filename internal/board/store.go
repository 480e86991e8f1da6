// Package board holds the in-memory task tree: categories own items,
// items own progress entries, progress entries own at most one active
// notification. The store is populated wholesale from a snapshot and then
// mutated incrementally by reconciliation operations and push updates.
package board

import (
	"sort"
	"sync"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"taskboard/api"
)

// Store is the single shared mutable board state. All mutations are
// short, self-contained steps under one lock; entry points are user
// operations (Ops), the push router, and the initial load.
type Store struct {
	mu         sync.RWMutex
	categories []api.Category

	// selectedID drives rendering (the filtered single-category view);
	// parentID is read by every create call that needs to know which
	// category a new child belongs to. SelectCategory sets both so they
	// never diverge.
	selectedID int64
	parentID   int64

	service api.ServiceState

	collator  *collate.Collator
	listeners []func()
}

// Option configures a Store.
type Option func(*Store)

// WithLocale sets the collation locale used for sibling ordering.
func WithLocale(tag language.Tag) Option {
	return func(s *Store) { s.collator = collate.New(tag) }
}

// NewStore creates an empty store. Siblings are kept ordered with a
// Traditional Chinese collator unless WithLocale overrides it.
func NewStore(opts ...Option) *Store {
	s := &Store{
		collator: collate.New(language.TraditionalChinese),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Subscribe registers a callback invoked after every mutation. The TUI
// uses this to re-render on push updates.
func (s *Store) Subscribe(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// notifyLocked fans out the change signal. Caller holds s.mu.
func (s *Store) notifyLocked() {
	for _, fn := range s.listeners {
		go fn()
	}
}

// Load assembles the flat snapshot arrays into the tree, replacing any
// existing state. The first category (in sorted order) becomes the
// selection and is expanded, matching the initial dashboard view.
func (s *Store) Load(snap *api.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	categories := make([]api.Category, len(snap.Categories))
	copy(categories, snap.Categories)

	byCategory := make(map[int64]int, len(categories))
	for i := range categories {
		categories[i].Items = nil
		byCategory[categories[i].ID] = i
	}

	itemIndex := make(map[int64][2]int) // item id -> (category idx, item idx)
	for _, it := range snap.Items {
		ci, ok := byCategory[it.CategoryID]
		if !ok {
			continue // dangling reference, tolerated
		}
		it.Progresses = nil
		categories[ci].Items = append(categories[ci].Items, it)
		itemIndex[it.ID] = [2]int{ci, len(categories[ci].Items) - 1}
	}

	progressIndex := make(map[int64][3]int)
	for _, p := range snap.Progresses {
		loc, ok := itemIndex[p.ItemID]
		if !ok {
			continue
		}
		p.Notifies = nil
		item := &categories[loc[0]].Items[loc[1]]
		item.Progresses = append(item.Progresses, p)
		progressIndex[p.ID] = [3]int{loc[0], loc[1], len(item.Progresses) - 1}
	}

	for _, n := range snap.Notifies {
		loc, ok := progressIndex[n.ProgressID]
		if !ok {
			continue
		}
		progress := &categories[loc[0]].Items[loc[1]].Progresses[loc[2]]
		progress.Notifies = append(progress.Notifies, n)
	}

	s.categories = categories
	s.service = snap.NotifyService
	s.sortAllLocked()

	s.selectedID = 0
	s.parentID = 0
	if len(s.categories) > 0 {
		s.categories[0].Expanded = true
		s.selectedID = s.categories[0].ID
		s.parentID = s.categories[0].ID
	}
	s.notifyLocked()
}

// Clear drops the whole tree. Called on logout and unmount.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.categories = nil
	s.selectedID = 0
	s.parentID = 0
	s.service = api.ServiceState{}
	s.notifyLocked()
}

// ServiceState returns the last known server-side scheduler status.
func (s *Store) ServiceState() api.ServiceState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.service
}

// SetServiceState updates the scheduler status shown in the UI.
func (s *Store) SetServiceState(st api.ServiceState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.service = st
	s.notifyLocked()
}

// Categories returns a deep copy of the full tree in display order.
func (s *Store) Categories() []api.Category {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyCategories(s.categories)
}

// SelectedID returns the id of the category driving the filtered view,
// or 0 when nothing is selected.
func (s *Store) SelectedID() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selectedID
}

// ParentCategoryID returns the category new children are created under,
// or 0 when nothing is selected.
func (s *Store) ParentCategoryID() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.parentID
}

// Selected returns a deep copy of the selected category.
func (s *Store) Selected() (api.Category, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ci, ok := s.findCategoryLocked(s.selectedID)
	if !ok {
		return api.Category{}, false
	}
	return copyCategory(s.categories[ci]), true
}

// FilteredTasks returns the single-category view: a slice holding a copy
// of the selected category, or an empty slice when nothing is selected.
func (s *Store) FilteredTasks() []api.Category {
	if c, ok := s.Selected(); ok {
		return []api.Category{c}
	}
	return nil
}

// SelectCategory moves both cursors to the given category and expands it.
// Selecting an unknown id is a no-op.
func (s *Store) SelectCategory(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	ci, ok := s.findCategoryLocked(id)
	if !ok {
		return false
	}
	s.selectedID = id
	s.parentID = id
	s.categories[ci].Expanded = true
	s.notifyLocked()
	return true
}

// FindCategory returns a copy of the category with the given id.
func (s *Store) FindCategory(id int64) (api.Category, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ci, ok := s.findCategoryLocked(id)
	if !ok {
		return api.Category{}, false
	}
	return copyCategory(s.categories[ci]), true
}

// FindItem returns a copy of the item with the given id, searching the
// whole tree.
func (s *Store) FindItem(id int64) (api.Item, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for ci := range s.categories {
		for ii := range s.categories[ci].Items {
			if s.categories[ci].Items[ii].ID == id {
				return copyItem(s.categories[ci].Items[ii]), true
			}
		}
	}
	return api.Item{}, false
}

// FindProgress returns a copy of the progress entry with the given id.
func (s *Store) FindProgress(id int64) (api.Progress, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for ci := range s.categories {
		for ii := range s.categories[ci].Items {
			for pi := range s.categories[ci].Items[ii].Progresses {
				if s.categories[ci].Items[ii].Progresses[pi].ID == id {
					return copyProgress(s.categories[ci].Items[ii].Progresses[pi]), true
				}
			}
		}
	}
	return api.Progress{}, false
}

// ToggleCategory flips the expansion flag of a category.
func (s *Store) ToggleCategory(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ci, ok := s.findCategoryLocked(id); ok {
		s.categories[ci].Expanded = !s.categories[ci].Expanded
		s.notifyLocked()
	}
}

// ToggleItem flips the expansion flag of an item.
func (s *Store) ToggleItem(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ci := range s.categories {
		for ii := range s.categories[ci].Items {
			if s.categories[ci].Items[ii].ID == id {
				s.categories[ci].Items[ii].Expanded = !s.categories[ci].Items[ii].Expanded
				s.notifyLocked()
				return
			}
		}
	}
}

// ExpandAll expands the selected category and every item under it.
func (s *Store) ExpandAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	ci, ok := s.findCategoryLocked(s.selectedID)
	if !ok {
		return
	}
	s.categories[ci].Expanded = true
	for ii := range s.categories[ci].Items {
		s.categories[ci].Items[ii].Expanded = true
	}
	s.notifyLocked()
}

// CollapseAll collapses every item under the selected category.
func (s *Store) CollapseAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	ci, ok := s.findCategoryLocked(s.selectedID)
	if !ok {
		return
	}
	for ii := range s.categories[ci].Items {
		s.categories[ci].Items[ii].Expanded = false
	}
	s.notifyLocked()
}

// ApplyLastExecuted is the narrow mutation driven by push messages: it
// resolves category -> item -> progress -> first notify and overwrites
// only the last-executed timestamp. Any unresolved hop (tree not loaded
// yet, stale ids, no notify attached) skips the update; push messages
// race with the initial bulk fetch, so unresolved hops are never errors.
func (s *Store) ApplyLastExecuted(categoryID, itemID, progressID int64, lastExecuted string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	ci, ok := s.findCategoryLocked(categoryID)
	if !ok {
		return false
	}
	for ii := range s.categories[ci].Items {
		item := &s.categories[ci].Items[ii]
		if item.ID != itemID {
			continue
		}
		for pi := range item.Progresses {
			progress := &item.Progresses[pi]
			if progress.ID != progressID {
				continue
			}
			if len(progress.Notifies) == 0 {
				return false
			}
			ts := lastExecuted
			progress.Notifies[0].LastExecuted = &ts
			s.notifyLocked()
			return true
		}
		return false
	}
	return false
}

// findCategoryLocked returns the index of a category. Caller holds s.mu.
func (s *Store) findCategoryLocked(id int64) (int, bool) {
	for i := range s.categories {
		if s.categories[i].ID == id {
			return i, true
		}
	}
	return 0, false
}

// sortAllLocked re-sorts every sibling list. Caller holds s.mu.
func (s *Store) sortAllLocked() {
	s.sortCategoriesLocked()
	for ci := range s.categories {
		s.sortItemsLocked(ci)
		for ii := range s.categories[ci].Items {
			s.sortProgressesLocked(ci, ii)
		}
	}
}

func (s *Store) sortCategoriesLocked() {
	sort.SliceStable(s.categories, func(i, j int) bool {
		return s.collator.CompareString(s.categories[i].CategoryName, s.categories[j].CategoryName) < 0
	})
}

func (s *Store) sortItemsLocked(ci int) {
	items := s.categories[ci].Items
	sort.SliceStable(items, func(i, j int) bool {
		return s.collator.CompareString(items[i].ItemName, items[j].ItemName) < 0
	})
}

func (s *Store) sortProgressesLocked(ci, ii int) {
	progresses := s.categories[ci].Items[ii].Progresses
	sort.SliceStable(progresses, func(i, j int) bool {
		return s.collator.CompareString(progresses[i].ProgressName, progresses[j].ProgressName) < 0
	})
}

// Deep-copy helpers so readers never share slices with the live tree.

func copyCategories(src []api.Category) []api.Category {
	out := make([]api.Category, len(src))
	for i := range src {
		out[i] = copyCategory(src[i])
	}
	return out
}

func copyCategory(c api.Category) api.Category {
	out := c
	out.Items = make([]api.Item, len(c.Items))
	for i := range c.Items {
		out.Items[i] = copyItem(c.Items[i])
	}
	return out
}

func copyItem(it api.Item) api.Item {
	out := it
	out.Progresses = make([]api.Progress, len(it.Progresses))
	for i := range it.Progresses {
		out.Progresses[i] = copyProgress(it.Progresses[i])
	}
	return out
}

func copyProgress(p api.Progress) api.Progress {
	out := p
	out.Notifies = append([]api.Notify(nil), p.Notifies...)
	return out
}
