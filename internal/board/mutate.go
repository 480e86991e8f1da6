package board

import (
	"taskboard/api"
)

// Local mutation halves of the reconciliation operations. Each one is a
// single short step under the lock: locate the owning parent, change the
// child, re-sort the affected sibling list. Ops calls these only after
// the server confirmed the change.

// InsertCategory adds a persisted category and re-sorts the top level.
// The new category becomes collapsed; selection is untouched.
func (s *Store) InsertCategory(c api.Category) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.Expanded = false
	s.categories = append(s.categories, c)
	s.sortCategoriesLocked()
	if len(s.categories) == 1 {
		// first category ever: both cursors move to it
		s.selectedID = c.ID
		s.parentID = c.ID
		s.categories[0].Expanded = true
	}
	s.notifyLocked()
}

// ApplyCategoryUpdate overwrites a category's own fields (children and
// expansion state are preserved) and re-sorts the top level.
func (s *Store) ApplyCategoryUpdate(c api.Category) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	ci, ok := s.findCategoryLocked(c.ID)
	if !ok {
		return false
	}
	s.categories[ci].CategoryName = c.CategoryName
	s.categories[ci].Content = c.Content
	s.sortCategoriesLocked()
	s.notifyLocked()
	return true
}

// RemoveCategory drops the subtree rooted at id. If the removed category
// was selected, selection falls back to the first remaining category.
func (s *Store) RemoveCategory(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	ci, ok := s.findCategoryLocked(id)
	if !ok {
		return false
	}
	s.categories = append(s.categories[:ci], s.categories[ci+1:]...)

	if s.selectedID == id || s.parentID == id {
		s.selectedID = 0
		s.parentID = 0
		if len(s.categories) > 0 {
			s.selectedID = s.categories[0].ID
			s.parentID = s.categories[0].ID
			s.categories[0].Expanded = true
		}
	}
	s.notifyLocked()
	return true
}

// InsertItem adds a persisted item under its category and re-sorts that
// category's items.
func (s *Store) InsertItem(it api.Item) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	ci, ok := s.findCategoryLocked(it.CategoryID)
	if !ok {
		return false
	}
	it.Expanded = false
	s.categories[ci].Items = append(s.categories[ci].Items, it)
	s.sortItemsLocked(ci)
	s.notifyLocked()
	return true
}

// ApplyItemUpdate overwrites an item's own fields and re-sorts its
// siblings. Progress children and expansion state are preserved.
func (s *Store) ApplyItemUpdate(it api.Item) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ci := range s.categories {
		for ii := range s.categories[ci].Items {
			existing := &s.categories[ci].Items[ii]
			if existing.ID != it.ID {
				continue
			}
			existing.ItemName = it.ItemName
			existing.Content = it.Content
			existing.ItemAt = it.ItemAt
			s.sortItemsLocked(ci)
			s.notifyLocked()
			return true
		}
	}
	return false
}

// RemoveItem drops an item and its progress subtree.
func (s *Store) RemoveItem(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ci := range s.categories {
		items := s.categories[ci].Items
		for ii := range items {
			if items[ii].ID == id {
				s.categories[ci].Items = append(items[:ii], items[ii+1:]...)
				s.notifyLocked()
				return true
			}
		}
	}
	return false
}

// InsertProgress adds a persisted progress entry under its item and
// re-sorts that item's progresses.
func (s *Store) InsertProgress(p api.Progress) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ci := range s.categories {
		for ii := range s.categories[ci].Items {
			item := &s.categories[ci].Items[ii]
			if item.ID != p.ItemID {
				continue
			}
			item.Progresses = append(item.Progresses, p)
			s.sortProgressesLocked(ci, ii)
			s.notifyLocked()
			return true
		}
	}
	return false
}

// ApplyProgressUpdate overwrites a progress entry's own fields and
// re-sorts its siblings. Attached notifies are preserved.
func (s *Store) ApplyProgressUpdate(p api.Progress) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ci := range s.categories {
		for ii := range s.categories[ci].Items {
			progresses := s.categories[ci].Items[ii].Progresses
			for pi := range progresses {
				existing := &progresses[pi]
				if existing.ID != p.ID {
					continue
				}
				existing.ProgressName = p.ProgressName
				existing.Content = p.Content
				existing.ProgressAt = p.ProgressAt
				existing.Status = p.Status
				s.sortProgressesLocked(ci, ii)
				s.notifyLocked()
				return true
			}
		}
	}
	return false
}

// SetProgressStatus changes only the status field.
func (s *Store) SetProgressStatus(id int64, status api.ProgressStatus) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ci := range s.categories {
		for ii := range s.categories[ci].Items {
			progresses := s.categories[ci].Items[ii].Progresses
			for pi := range progresses {
				if progresses[pi].ID == id {
					progresses[pi].Status = status
					s.notifyLocked()
					return true
				}
			}
		}
	}
	return false
}

// RemoveProgress drops a progress entry and its notify.
func (s *Store) RemoveProgress(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ci := range s.categories {
		for ii := range s.categories[ci].Items {
			progresses := s.categories[ci].Items[ii].Progresses
			for pi := range progresses {
				if progresses[pi].ID == id {
					s.categories[ci].Items[ii].Progresses = append(progresses[:pi], progresses[pi+1:]...)
					s.notifyLocked()
					return true
				}
			}
		}
	}
	return false
}

// SetNotify attaches a persisted notify to its progress. The business
// rule caps active notifies at one per progress, so an existing one is
// replaced rather than appended to.
func (s *Store) SetNotify(n api.Notify) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	progress, ok := s.locateProgressLocked(n.ProgressID)
	if !ok {
		return false
	}
	progress.Notifies = []api.Notify{n}
	s.notifyLocked()
	return true
}

// ApplyNotifyUpdate overwrites the notify with the same id.
func (s *Store) ApplyNotifyUpdate(n api.Notify) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	progress, ok := s.locateProgressLocked(n.ProgressID)
	if !ok {
		return false
	}
	for i := range progress.Notifies {
		if progress.Notifies[i].ID == n.ID {
			progress.Notifies[i] = n
			s.notifyLocked()
			return true
		}
	}
	return false
}

// RemoveNotify detaches a notify by id, wherever it lives.
func (s *Store) RemoveNotify(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ci := range s.categories {
		for ii := range s.categories[ci].Items {
			progresses := s.categories[ci].Items[ii].Progresses
			for pi := range progresses {
				notifies := progresses[pi].Notifies
				for ni := range notifies {
					if notifies[ni].ID == id {
						progresses[pi].Notifies = append(notifies[:ni], notifies[ni+1:]...)
						s.notifyLocked()
						return true
					}
				}
			}
		}
	}
	return false
}

// locateProgressLocked returns a pointer into the live tree. Caller
// holds s.mu and must not retain the pointer past the lock.
func (s *Store) locateProgressLocked(id int64) (*api.Progress, bool) {
	for ci := range s.categories {
		for ii := range s.categories[ci].Items {
			progresses := s.categories[ci].Items[ii].Progresses
			for pi := range progresses {
				if progresses[pi].ID == id {
					return &progresses[pi], true
				}
			}
		}
	}
	return nil, false
}
