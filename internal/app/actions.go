package app

import (
	"context"

	"github.com/and161185/coachboard/internal/model"
	"github.com/and161185/coachboard/internal/state"
)

// LogProgress records the day's completed tasks for the acting user.
func (sh *Shell) LogProgress(ctx context.Context, date string, completed []string, note string) (model.AppState, error) {
	return sh.Dispatch(ctx, state.UpsertRecord(sh.ActorID(), date, completed, note, sh.now()))
}

// SendMessage sends a direct message from the acting user.
func (sh *Shell) SendMessage(ctx context.Context, to, content string, att *model.Attachment) (model.AppState, error) {
	return sh.Dispatch(ctx, state.SendMessage(sh.ActorID(), to, content, att, sh.now()))
}

// CreateGroup creates a group owned by the acting user and returns its id.
func (sh *Shell) CreateGroup(ctx context.Context, name, description string) (string, error) {
	id := model.NewID()
	_, err := sh.Dispatch(ctx, state.CreateGroup(id, name, description, sh.ActorID()))
	return id, err
}

// JoinGroup adds the acting user to a group.
func (sh *Shell) JoinGroup(ctx context.Context, groupID string) (model.AppState, error) {
	return sh.Dispatch(ctx, state.JoinGroup(groupID, sh.ActorID()))
}

// AddPost posts to a group feed as the acting user.
func (sh *Shell) AddPost(ctx context.Context, groupID, content string, att *model.Attachment) (model.AppState, error) {
	return sh.Dispatch(ctx, state.AddPost(groupID, sh.ActorID(), content, att, sh.now()))
}

// PostStatus broadcasts a status update.
func (sh *Shell) PostStatus(ctx context.Context, content string) (model.AppState, error) {
	return sh.Dispatch(ctx, state.PostStatus(sh.ActorID(), content, sh.now()))
}

// AddTask adds a task template.
func (sh *Shell) AddTask(ctx context.Context, title, description string) (model.AppState, error) {
	return sh.Dispatch(ctx, state.AddTask(title, description))
}
