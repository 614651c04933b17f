package state

import (
	"slices"

	"github.com/and161185/coachboard/internal/model"
)

// Merge folds per-user states into base for the admin view.
//
// Users, tasks, messages, statuses and groups are unioned by id (users also
// include each row's current user). Records are unioned by (userId, date),
// so an admin row that already holds a copy of the merged view folds back
// onto the real entries. A later row replaces an earlier entry with the same
// key while keeping its first-seen position; distinct entries keep row order.
// Records, statuses and messages written by a row's current user are owned by
// that row and are never replaced by a copy from another row.
// Entries with an empty key are always appended.
func Merge(base model.AppState, rows ...model.AppState) model.AppState {
	out := base.Normalize()
	out.Users = slices.Clone(out.Users)
	out.Tasks = slices.Clone(out.Tasks)
	out.Records = slices.Clone(out.Records)
	out.Messages = slices.Clone(out.Messages)
	out.Groups = slices.Clone(out.Groups)
	out.Statuses = slices.Clone(out.Statuses)

	ownedRecords := map[string]bool{}
	ownedMessages := map[string]bool{}
	ownedStatuses := map[string]bool{}

	for _, r := range rows {
		owner := ""
		if r.CurrentUser != nil {
			owner = r.CurrentUser.ID
		}
		for _, u := range r.Users {
			out.Users = unionByID(out.Users, u, func(x model.User) string { return x.ID })
		}
		if r.CurrentUser != nil {
			out.Users = unionByID(out.Users, *r.CurrentUser, func(x model.User) string { return x.ID })
		}
		for _, t := range r.Tasks {
			out.Tasks = unionByID(out.Tasks, t, func(x model.Task) string { return x.ID })
		}
		for _, rec := range r.Records {
			out.Records = unionOwned(out.Records, ownedRecords, rec, recordKey, owner != "" && rec.UserID == owner)
		}
		for _, m := range r.Messages {
			out.Messages = unionOwned(out.Messages, ownedMessages, m, func(x model.Message) string { return x.ID }, owner != "" && m.From == owner)
		}
		for _, st := range r.Statuses {
			out.Statuses = unionOwned(out.Statuses, ownedStatuses, st, func(x model.StatusUpdate) string { return x.ID }, owner != "" && st.UserID == owner)
		}
		for _, g := range r.Groups {
			out.Groups = unionByID(out.Groups, g, func(x model.Group) string { return x.ID })
		}
	}
	return out
}

func unionByID[T any](list []T, v T, id func(T) string) []T {
	key := id(v)
	if key == "" {
		return append(list, v)
	}
	if i := slices.IndexFunc(list, func(x T) bool { return id(x) == key }); i >= 0 {
		list[i] = v
		return list
	}
	return append(list, v)
}

// unionOwned is unionByID where an entry held by its owner's row wins over
// copies from other rows regardless of order.
func unionOwned[T any](list []T, owned map[string]bool, v T, id func(T) string, isOwner bool) []T {
	key := id(v)
	if key == "" {
		return append(list, v)
	}
	if i := slices.IndexFunc(list, func(x T) bool { return id(x) == key }); i >= 0 {
		if isOwner || !owned[key] {
			list[i] = v
			owned[key] = owned[key] || isOwner
		}
		return list
	}
	owned[key] = isOwner
	return append(list, v)
}

func recordKey(r model.ProgressRecord) string {
	if r.UserID == "" && r.Date == "" {
		return r.ID
	}
	return r.UserID + "\x00" + r.Date
}
