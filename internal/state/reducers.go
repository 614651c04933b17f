package state

import (
	"slices"
	"time"

	"github.com/and161185/coachboard/internal/model"
)

// Reducer maps a state to its successor. Reducers must not mutate the
// slices of their input.
type Reducer func(model.AppState) model.AppState

// UpsertRecord logs progress for (userID, date). An existing record for the
// pair is replaced in place keeping its id and creation time; otherwise a new
// record is appended.
func UpsertRecord(userID, date string, completed []string, note string, now time.Time) Reducer {
	return func(s model.AppState) model.AppState {
		records := slices.Clone(s.Records)
		rec := model.ProgressRecord{
			UserID:         userID,
			Date:           date,
			CompletedTasks: slices.Clone(completed),
			Note:           note,
		}
		for i := range records {
			if records[i].UserID == userID && records[i].Date == date {
				rec.ID = records[i].ID
				rec.CreatedAt = records[i].CreatedAt
				records[i] = rec
				s.Records = records
				return s
			}
		}
		rec.ID = model.NewID()
		rec.CreatedAt = now
		s.Records = append(records, rec)
		return s
	}
}

// SendMessage appends a direct message.
func SendMessage(from, to, content string, att *model.Attachment, now time.Time) Reducer {
	return func(s model.AppState) model.AppState {
		s.Messages = append(slices.Clone(s.Messages), model.Message{
			ID:         model.NewID(),
			From:       from,
			To:         to,
			Content:    content,
			Attachment: att,
			CreatedAt:  now,
		})
		return s
	}
}

// CreateGroup appends a group with the owner as its first member.
func CreateGroup(id, name, description, ownerID string) Reducer {
	return func(s model.AppState) model.AppState {
		s.Groups = append(slices.Clone(s.Groups), model.Group{
			ID:          id,
			Name:        name,
			Description: description,
			Members:     []string{ownerID},
			Posts:       []model.Post{},
		})
		return s
	}
}

// JoinGroup adds userID to the group's members. Unknown groups and existing
// members leave the state unchanged.
func JoinGroup(groupID, userID string) Reducer {
	return func(s model.AppState) model.AppState {
		return updateGroup(s, groupID, func(g model.Group) model.Group {
			if !slices.Contains(g.Members, userID) {
				g.Members = append(slices.Clone(g.Members), userID)
			}
			return g
		})
	}
}

// AddPost appends a post to the group's feed.
func AddPost(groupID, authorID, content string, att *model.Attachment, now time.Time) Reducer {
	return func(s model.AppState) model.AppState {
		return updateGroup(s, groupID, func(g model.Group) model.Group {
			g.Posts = append(slices.Clone(g.Posts), model.Post{
				ID:         model.NewID(),
				AuthorID:   authorID,
				Content:    content,
				Attachment: att,
				CreatedAt:  now,
			})
			return g
		})
	}
}

// PostStatus appends a status update.
func PostStatus(userID, content string, now time.Time) Reducer {
	return func(s model.AppState) model.AppState {
		s.Statuses = append(slices.Clone(s.Statuses), model.StatusUpdate{
			ID:        model.NewID(),
			UserID:    userID,
			Content:   content,
			CreatedAt: now,
		})
		return s
	}
}

// AddTask appends a task template.
func AddTask(title, description string) Reducer {
	return func(s model.AppState) model.AppState {
		s.Tasks = append(slices.Clone(s.Tasks), model.Task{
			ID:          model.NewID(),
			Title:       title,
			Description: description,
		})
		return s
	}
}

// UpsertUser inserts u or replaces the user with the same id.
func UpsertUser(u model.User) Reducer {
	return func(s model.AppState) model.AppState {
		users := slices.Clone(s.Users)
		if i := slices.IndexFunc(users, func(x model.User) bool { return x.ID == u.ID }); i >= 0 {
			users[i] = u
		} else {
			users = append(users, u)
		}
		s.Users = users
		return s
	}
}

// SetCurrentUser points CurrentUser at u and makes sure u is listed in Users.
func SetCurrentUser(u model.User) Reducer {
	return func(s model.AppState) model.AppState {
		s = UpsertUser(u)(s)
		cu := u
		s.CurrentUser = &cu
		return s
	}
}

func updateGroup(s model.AppState, groupID string, fn func(model.Group) model.Group) model.AppState {
	i := slices.IndexFunc(s.Groups, func(g model.Group) bool { return g.ID == groupID })
	if i < 0 {
		return s
	}
	groups := slices.Clone(s.Groups)
	groups[i] = fn(groups[i])
	s.Groups = groups
	return s
}
