package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/and161185/coachboard/internal/app"
	"github.com/and161185/coachboard/internal/config"
	"github.com/and161185/coachboard/internal/errs"
	"github.com/and161185/coachboard/internal/model"
)

func newRootCmd(cfg config.Client) *cobra.Command {
	o := &options{cfg: cfg}
	root := &cobra.Command{
		Use:          "coach",
		Short:        "Track daily progress and talk to your coach",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&o.cfg.DataDir, "data-dir", cfg.DataDir, "directory for the local cache and session")
	root.PersistentFlags().BoolVar(&o.ephemeral, "ephemeral", false, "keep cache and session in memory only")

	root.AddGroup(
		&cobra.Group{ID: "auth", Title: "Account:"},
		&cobra.Group{ID: "board", Title: "Board:"},
	)
	root.AddCommand(
		signUpCmd(o), signInCmd(o), signOutCmd(o), whoamiCmd(o),
		stateCmd(o), logCmd(o), messageCmd(o), groupCmd(o), statusCmd(o), taskCmd(o),
		versionCmd(),
	)
	return root
}

func signUpCmd(o *options) *cobra.Command {
	var email, password, name, role string
	cmd := &cobra.Command{
		Use:     "signup",
		GroupID: "auth",
		Short:   "Create an account on the remote store and sign in",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withShell(cmd, o, func(ctx context.Context, sh *app.Shell) error {
				u, err := sh.SignUp(ctx, email, password, model.UserMeta{Name: name, Role: model.Role(role)})
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), u)
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&role, "role", string(model.RoleFriend), "admin or friend")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func signInCmd(o *options) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:     "signin",
		GroupID: "auth",
		Short:   "Sign in to the remote store",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withShell(cmd, o, func(ctx context.Context, sh *app.Shell) error {
				u, err := sh.SignIn(ctx, email, password)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), u)
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func signOutCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:     "signout",
		GroupID: "auth",
		Short:   "Forget the stored session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withShell(cmd, o, func(ctx context.Context, sh *app.Shell) error {
				return sh.SignOut(ctx)
			})
		},
	}
}

func whoamiCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:     "whoami",
		GroupID: "auth",
		Short:   "Show the acting user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withShell(cmd, o, func(_ context.Context, sh *app.Shell) error {
				if sh.Phase() != app.Ready {
					return notReady(sh)
				}
				out := whoami{ID: sh.ActorID(), Remote: sh.Session() != nil}
				if cu := sh.State().CurrentUser; cu != nil {
					out.Name, out.Role = cu.Name, cu.Role
				}
				return printJSON(cmd.OutOrStdout(), out)
			})
		},
	}
}

type whoami struct {
	ID     string     `json:"id"`
	Name   string     `json:"name,omitempty"`
	Role   model.Role `json:"role,omitempty"`
	Remote bool       `json:"remote"`
}

func notReady(sh *app.Shell) error {
	return fmt.Errorf("state %s: %w", sh.Phase(), errs.ErrNotReady)
}

// requireGroup fails for ids the loaded state does not know.
func requireGroup(sh *app.Shell, id string) error {
	for _, g := range sh.State().Groups {
		if g.ID == id {
			return nil
		}
	}
	return fmt.Errorf("group %q not found", id)
}

func stateCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:     "state",
		GroupID: "board",
		Short:   "Print the loaded state as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withShell(cmd, o, func(_ context.Context, sh *app.Shell) error {
				if sh.Phase() != app.Ready {
					return notReady(sh)
				}
				return printJSON(cmd.OutOrStdout(), sh.State())
			})
		},
	}
}

func logCmd(o *options) *cobra.Command {
	var (
		date, note string
		tasks      []string
	)
	cmd := &cobra.Command{
		Use:     "log",
		GroupID: "board",
		Short:   "Record the tasks completed on a day",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := time.Parse(time.DateOnly, date); err != nil {
				return fmt.Errorf("bad --date %q: want YYYY-MM-DD", date)
			}
			return withShell(cmd, o, func(ctx context.Context, sh *app.Shell) error {
				st, err := sh.LogProgress(ctx, date, tasks, note)
				if err != nil {
					return err
				}
				for _, r := range st.Records {
					if r.Date == date && r.UserID == sh.ActorID() {
						return printJSON(cmd.OutOrStdout(), r)
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&date, "date", time.Now().Format(time.DateOnly), "day to record (YYYY-MM-DD)")
	cmd.Flags().StringSliceVar(&tasks, "task", nil, "completed task id (repeatable)")
	cmd.Flags().StringVar(&note, "note", "", "free-form note")
	return cmd
}

func attachment(name, url string) *model.Attachment {
	if url == "" {
		return nil
	}
	return &model.Attachment{Name: name, URL: url}
}

func messageCmd(o *options) *cobra.Command {
	var to, text, attName, attURL string
	cmd := &cobra.Command{
		Use:     "message",
		GroupID: "board",
		Short:   "Send a direct message",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withShell(cmd, o, func(ctx context.Context, sh *app.Shell) error {
				st, err := sh.SendMessage(ctx, to, text, attachment(attName, attURL))
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), st.Messages[len(st.Messages)-1])
			})
		},
	}
	cmd.Flags().StringVar(&to, "to", "", "recipient user id")
	cmd.Flags().StringVar(&text, "text", "", "message text")
	cmd.Flags().StringVar(&attName, "attach-name", "", "attachment name")
	cmd.Flags().StringVar(&attURL, "attach-url", "", "attachment url")
	_ = cmd.MarkFlagRequired("to")
	_ = cmd.MarkFlagRequired("text")
	return cmd
}

func groupCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{Use: "group", GroupID: "board", Short: "Work with groups"}

	var name, desc string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a group you own",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withShell(cmd, o, func(ctx context.Context, sh *app.Shell) error {
				id, err := sh.CreateGroup(ctx, name, desc)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), map[string]string{"id": id})
			})
		},
	}
	create.Flags().StringVar(&name, "name", "", "group name")
	create.Flags().StringVar(&desc, "description", "", "group description")
	_ = create.MarkFlagRequired("name")

	var joinID string
	join := &cobra.Command{
		Use:   "join",
		Short: "Join a group",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withShell(cmd, o, func(ctx context.Context, sh *app.Shell) error {
				if err := requireGroup(sh, joinID); err != nil && sh.Phase() == app.Ready {
					return err
				}
				_, err := sh.JoinGroup(ctx, joinID)
				return err
			})
		},
	}
	join.Flags().StringVar(&joinID, "id", "", "group id")
	_ = join.MarkFlagRequired("id")

	var postID, text, attName, attURL string
	post := &cobra.Command{
		Use:   "post",
		Short: "Post to a group feed",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withShell(cmd, o, func(ctx context.Context, sh *app.Shell) error {
				if err := requireGroup(sh, postID); err != nil && sh.Phase() == app.Ready {
					return err
				}
				_, err := sh.AddPost(ctx, postID, text, attachment(attName, attURL))
				return err
			})
		},
	}
	post.Flags().StringVar(&postID, "id", "", "group id")
	post.Flags().StringVar(&text, "text", "", "post text")
	post.Flags().StringVar(&attName, "attach-name", "", "attachment name")
	post.Flags().StringVar(&attURL, "attach-url", "", "attachment url")
	_ = post.MarkFlagRequired("id")
	_ = post.MarkFlagRequired("text")

	cmd.AddCommand(create, join, post)
	return cmd
}

func statusCmd(o *options) *cobra.Command {
	var text string
	cmd := &cobra.Command{
		Use:     "status",
		GroupID: "board",
		Short:   "Broadcast a status update",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withShell(cmd, o, func(ctx context.Context, sh *app.Shell) error {
				st, err := sh.PostStatus(ctx, text)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), st.Statuses[len(st.Statuses)-1])
			})
		},
	}
	cmd.Flags().StringVar(&text, "text", "", "status text")
	_ = cmd.MarkFlagRequired("text")
	return cmd
}

func taskCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{Use: "task", GroupID: "board", Short: "Manage task templates"}
	var title, desc string
	add := &cobra.Command{
		Use:   "add",
		Short: "Add a task template",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withShell(cmd, o, func(ctx context.Context, sh *app.Shell) error {
				st, err := sh.AddTask(ctx, title, desc)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), st.Tasks[len(st.Tasks)-1])
			})
		},
	}
	add.Flags().StringVar(&title, "title", "", "task title")
	add.Flags().StringVar(&desc, "description", "", "task description")
	_ = add.MarkFlagRequired("title")
	cmd.AddCommand(add)
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "coach %s (built %s)\n", version, buildDate)
		},
	}
}
