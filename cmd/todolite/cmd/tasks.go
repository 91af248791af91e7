package cmd

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"todolite/internal/cli/prompt"
	"todolite/internal/config"
	"todolite/internal/task"
	"todolite/internal/utils"
	"todolite/internal/views"
)

type actionResponse struct {
	Action  string     `json:"action"`
	Task    task.Task  `json:"task"`
	Spawned *task.Task `json:"spawned,omitempty"`
	Result  string     `json:"result"`
}

type listTasksResponse struct {
	Tasks  []task.Task `json:"tasks"`
	View   string      `json:"view"`
	Count  int         `json:"count"`
	Total  int         `json:"total"`
	Result string      `json:"result"`
}

// newAddCmd creates the 'add' subcommand
func newAddCmd(stdout io.Writer, cfg *Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add [text]",
		Short: "Add a task",
		Long:  "Add a task. Without text, prompts for each field unless -y is given.",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			var d task.Draft
			if len(args) == 0 {
				adder := &prompt.InteractiveAdder{
					Reader:   cfg.stdin(),
					Writer:   stdout,
					NoPrompt: cfg.NoPrompt,
					Now:      cfg.now,
				}
				fields, err := adder.Run()
				if errors.Is(err, prompt.ErrNoPromptMode) {
					return utils.ErrEmptyText()
				}
				if err != nil {
					return err
				}
				d = fields.Draft()
			} else {
				d, err = draftFromFlags(cmd, cfg, strings.Join(args, " "))
				if err != nil {
					return err
				}
			}

			created, err := a.store.Create(cmd.Context(), d)
			if err != nil {
				return err
			}

			if a.json {
				return writeJSON(stdout, actionResponse{Action: "add", Task: created, Result: ResultActionCompleted})
			}
			_, _ = fmt.Fprintf(stdout, "Created task %d: %s\n", created.ID, describe(a, created))
			a.result(stdout, ResultActionCompleted)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.Flags().StringP("priority", "p", "", "Priority: high, medium or low (default medium)")
	cmd.Flags().String("due", "", "Due date: YYYY-MM-DD, today, tomorrow, +Nd, +Nw or +Nm")
	cmd.Flags().StringSlice("tag", nil, "Tag (can be specified multiple times or comma-separated)")
	cmd.Flags().String("repeat", "", "Repeat interval: daily, weekly or monthly")
	return cmd
}

// draftFromFlags builds a new task from the add flags.
func draftFromFlags(cmd *cobra.Command, cfg *Config, text string) (task.Draft, error) {
	priority, _ := cmd.Flags().GetString("priority")
	dueInput, _ := cmd.Flags().GetString("due")
	tags, _ := cmd.Flags().GetStringSlice("tag")
	repeat, _ := cmd.Flags().GetString("repeat")

	dueDate, err := utils.ParseDueDate(dueInput, cfg.now())
	if err != nil {
		return task.Draft{}, err
	}
	return task.Draft{
		Text:      text,
		Priority:  task.Priority(priority),
		DueDate:   task.Date(dueDate),
		Tags:      utils.SplitTags(tags...),
		Recurring: task.Recurrence(repeat),
	}, nil
}

// describe renders a task on one line for action messages.
func describe(a *app, t task.Task) string {
	parts := []string{t.Text}
	meta := []string{string(t.Priority)}
	if label := a.due.FormatRelative(t.DueDate); label != "" {
		meta = append(meta, strings.ToLower(label[:1])+label[1:])
	}
	if t.Recurring != task.RecurNone {
		meta = append(meta, strings.ToLower(views.RepeatLabel(t.Recurring)))
	}
	parts = append(parts, "("+strings.Join(meta, ", ")+")")
	if len(t.Tags) > 0 {
		parts = append(parts, "#"+strings.Join(t.Tags, " #"))
	}
	return strings.Join(parts, " ")
}

// newListCmd creates the 'list' subcommand
func newListCmd(stdout io.Writer, cfg *Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List tasks",
		Long:    "List tasks through a view. Flags narrow or reorder the view's own filters.",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			viewName, _ := cmd.Flags().GetString("view")
			view, q, err := resolveQuery(viewName, a.conf, cfg)
			if err != nil {
				return err
			}
			if err := applyQueryFlags(cmd, &q); err != nil {
				return err
			}

			all := a.store.Tasks()
			shown := views.Project(all, q)

			if a.json {
				if shown == nil {
					shown = []task.Task{}
				}
				return writeJSON(stdout, listTasksResponse{
					Tasks:  shown,
					View:   view.Name,
					Count:  len(shown),
					Total:  len(all),
					Result: ResultInfoOnly,
				})
			}

			views.NewRenderer(view, a.due, stdout).Render(shown, len(all))
			a.result(stdout, ResultInfoOnly)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	addQueryFlags(cmd)
	return cmd
}

func addQueryFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("view", "v", "", "View to use (default, active, completed, today or a custom view)")
	cmd.Flags().String("search", "", "Show tasks whose text or tags contain this text")
	cmd.Flags().StringP("priority", "p", "", "Filter by priority: all, high, medium or low")
	cmd.Flags().StringP("status", "s", "", "Filter by status: all, active or completed")
	cmd.Flags().String("tag", "", "Filter by tag")
	cmd.Flags().String("sort", "", "Sort by: created, priority, dueDate or name")
}

// resolveQuery loads a view (the configured default when name is empty)
// and fills in the configured sort and locale.
func resolveQuery(name string, conf *config.Config, cfg *Config) (*views.View, views.Query, error) {
	if name == "" {
		name = conf.DefaultView
	}
	view, err := views.NewLoader(getViewsDir(cfg, conf)).LoadView(name)
	if err != nil {
		return nil, views.Query{}, utils.WrapWithSuggestion(err, "Run 'todolite view list' to see available views")
	}
	q, err := view.Query()
	if err != nil {
		return nil, views.Query{}, err
	}
	if view.Sort == "" {
		q.Sort = conf.GetDefaultSort()
	}
	q.Locale = conf.UI.Locale
	return view, q, nil
}

// applyQueryFlags overrides q with any query flag given on the command line.
func applyQueryFlags(cmd *cobra.Command, q *views.Query) error {
	if cmd.Flags().Changed("search") {
		q.Search, _ = cmd.Flags().GetString("search")
	}
	if cmd.Flags().Changed("priority") {
		s, _ := cmd.Flags().GetString("priority")
		p, err := views.ParsePriorityFilter(s)
		if err != nil {
			return err
		}
		q.Priority = p
	}
	if cmd.Flags().Changed("status") {
		s, _ := cmd.Flags().GetString("status")
		status, err := views.ParseStatus(s)
		if err != nil {
			return err
		}
		q.Status = status
	}
	if cmd.Flags().Changed("tag") {
		q.Tag, _ = cmd.Flags().GetString("tag")
	}
	if cmd.Flags().Changed("sort") {
		s, _ := cmd.Flags().GetString("sort")
		key, err := views.ParseSortKey(s)
		if err != nil {
			return err
		}
		q.Sort = key
	}
	return nil
}

// parseTaskID parses a task id argument.
func parseTaskID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, utils.WrapWithSuggestion(
			fmt.Errorf("%w: invalid task id %q", utils.ErrValidation, s),
			"Use 'todolite list' to see task ids",
		)
	}
	return id, nil
}

// pickTask returns the task named by args[0], or asks the user to choose
// one of candidates when no id was given.
func pickTask(a *app, args []string, stdout io.Writer, action string, showAll bool) (task.Task, error) {
	if len(args) > 0 {
		id, err := parseTaskID(args[0])
		if err != nil {
			return task.Task{}, err
		}
		t, ok := a.store.Get(id)
		if !ok {
			return task.Task{}, utils.ErrTaskNotFound(id)
		}
		return t, nil
	}

	selector := &prompt.TaskSelector{
		Tasks:    prompt.FilterTasksByAction(a.store.Tasks(), action, showAll),
		Prompt:   "Select a task to " + action + ":",
		Reader:   a.cfg.stdin(),
		Writer:   stdout,
		NoPrompt: a.cfg.NoPrompt,
	}
	selected, err := selector.Run()
	if errors.Is(err, prompt.ErrNoPromptMode) {
		return task.Task{}, utils.WrapWithSuggestion(
			fmt.Errorf("%w: task id is required", utils.ErrValidation),
			"Pass the id shown by 'todolite list'",
		)
	}
	if err != nil {
		return task.Task{}, err
	}
	return *selected, nil
}

// newDoneCmd creates the 'done' subcommand
func newDoneCmd(stdout io.Writer, cfg *Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "done [id]",
		Aliases: []string{"toggle"},
		Short:   "Toggle a task between open and completed",
		Long:    "Mark a task completed, or reopen a completed one. Completing a repeating task adds its next occurrence.",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			showAll, _ := cmd.Flags().GetBool("all")
			target, err := pickTask(a, args, stdout, "complete", showAll)
			if err != nil {
				return err
			}

			toggled, spawned, err := a.store.ToggleComplete(cmd.Context(), target.ID)
			if err != nil {
				return err
			}

			action := "complete"
			if !toggled.Completed {
				action = "reopen"
			}
			if a.json {
				return writeJSON(stdout, actionResponse{Action: action, Task: toggled, Spawned: spawned, Result: ResultActionCompleted})
			}

			if toggled.Completed {
				_, _ = fmt.Fprintf(stdout, "Completed task %d: %s\n", toggled.ID, toggled.Text)
			} else {
				_, _ = fmt.Fprintf(stdout, "Reopened task %d: %s\n", toggled.ID, toggled.Text)
			}
			if spawned != nil {
				_, _ = fmt.Fprintf(stdout, "Next occurrence: task %d due %s\n", spawned.ID, spawned.DueDate)
			}
			a.result(stdout, ResultActionCompleted)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.Flags().Bool("all", false, "Offer completed tasks too when choosing interactively")
	return cmd
}

// newEditCmd creates the 'edit' subcommand
func newEditCmd(stdout io.Writer, cfg *Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit [id]",
		Short: "Change a task",
		Long:  "Change the fields given as flags and keep the rest. Use --due \"\" or --repeat \"\" to clear them.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			if !anyChanged(cmd, "text", "priority", "due", "tag", "repeat") {
				return utils.WrapWithSuggestion(
					fmt.Errorf("%w: nothing to change", utils.ErrValidation),
					"Pass at least one of --text, --priority, --due, --tag or --repeat",
				)
			}

			target, err := pickTask(a, args, stdout, "edit", true)
			if err != nil {
				return err
			}

			d, err := applyEditFlags(cmd, cfg, task.DraftOf(target))
			if err != nil {
				return err
			}

			edited, err := a.store.Edit(cmd.Context(), target.ID, d)
			if err != nil {
				return err
			}

			if a.json {
				return writeJSON(stdout, actionResponse{Action: "edit", Task: edited, Result: ResultActionCompleted})
			}
			_, _ = fmt.Fprintf(stdout, "Updated task %d: %s\n", edited.ID, describe(a, edited))
			a.result(stdout, ResultActionCompleted)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.Flags().String("text", "", "New task text")
	cmd.Flags().StringP("priority", "p", "", "New priority: high, medium or low")
	cmd.Flags().String("due", "", "New due date (\"\" to clear)")
	cmd.Flags().StringSlice("tag", nil, "Replace the tags (\"\" to clear)")
	cmd.Flags().String("repeat", "", "New repeat interval (\"\" to clear)")
	return cmd
}

func anyChanged(cmd *cobra.Command, names ...string) bool {
	for _, name := range names {
		if cmd.Flags().Changed(name) {
			return true
		}
	}
	return false
}

// applyEditFlags overwrites the fields of d whose flags were given.
func applyEditFlags(cmd *cobra.Command, cfg *Config, d task.Draft) (task.Draft, error) {
	if cmd.Flags().Changed("text") {
		d.Text, _ = cmd.Flags().GetString("text")
	}
	if cmd.Flags().Changed("priority") {
		p, _ := cmd.Flags().GetString("priority")
		d.Priority = task.Priority(p)
	}
	if cmd.Flags().Changed("due") {
		input, _ := cmd.Flags().GetString("due")
		dueDate, err := utils.ParseDueDate(input, cfg.now())
		if err != nil {
			return d, err
		}
		d.DueDate = task.Date(dueDate)
	}
	if cmd.Flags().Changed("tag") {
		tags, _ := cmd.Flags().GetStringSlice("tag")
		d.Tags = utils.SplitTags(tags...)
	}
	if cmd.Flags().Changed("repeat") {
		r, _ := cmd.Flags().GetString("repeat")
		d.Recurring = task.Recurrence(r)
	}
	return d, nil
}

// newRmCmd creates the 'rm' subcommand
func newRmCmd(stdout io.Writer, cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:     "rm [id]",
		Aliases: []string{"delete"},
		Short:   "Delete a task",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			var target task.Task
			if len(args) > 0 {
				id, err := parseTaskID(args[0])
				if err != nil {
					return err
				}
				t, ok := a.store.Get(id)
				if !ok {
					// Deleting a missing task changes nothing.
					if a.json {
						return writeJSON(stdout, map[string]interface{}{"action": "delete", "id": id, "deleted": false, "result": ResultInfoOnly})
					}
					_, _ = fmt.Fprintf(stdout, "No task with id %d, nothing deleted.\n", id)
					a.result(stdout, ResultInfoOnly)
					return nil
				}
				target = t
			} else {
				target, err = pickTask(a, args, stdout, "delete", true)
				if err != nil {
					return err
				}
			}

			if err := a.store.Delete(cmd.Context(), target.ID); err != nil {
				return err
			}

			if a.json {
				return writeJSON(stdout, actionResponse{Action: "delete", Task: target, Result: ResultActionCompleted})
			}
			_, _ = fmt.Fprintf(stdout, "Deleted task %d: %s\n", target.ID, target.Text)
			a.result(stdout, ResultActionCompleted)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
}

// newClearCmd creates the 'clear' subcommand
func newClearCmd(stdout io.Writer, cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete all completed tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			pending := a.store.Stats(a.due.Today()).Completed
			if pending == 0 {
				if a.json {
					return writeJSON(stdout, map[string]interface{}{"action": "clear", "removed": 0, "result": ResultInfoOnly})
				}
				_, _ = fmt.Fprintln(stdout, "No completed tasks to clear.")
				a.result(stdout, ResultInfoOnly)
				return nil
			}

			if !cfg.NoPrompt {
				question := fmt.Sprintf("Delete %d completed task(s)?", pending)
				if !prompt.Confirm(cfg.stdin(), stdout, question) {
					_, _ = fmt.Fprintln(stdout, "Cancelled.")
					return nil
				}
			}

			removed, err := a.store.ClearCompleted(cmd.Context())
			if err != nil {
				return err
			}

			if a.json {
				return writeJSON(stdout, map[string]interface{}{"action": "clear", "removed": removed, "result": ResultActionCompleted})
			}
			_, _ = fmt.Fprintf(stdout, "Cleared %d completed task(s).\n", removed)
			a.result(stdout, ResultActionCompleted)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
}

// newTagsCmd creates the 'tags' subcommand
func newTagsCmd(stdout io.Writer, cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "tags",
		Short: "List the tags in use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			tags := a.store.Tags()
			if a.json {
				return writeJSON(stdout, map[string]interface{}{"tags": tags, "result": ResultInfoOnly})
			}
			if len(tags) == 0 {
				_, _ = fmt.Fprintln(stdout, "No tags yet.")
			}
			for _, tag := range tags {
				_, _ = fmt.Fprintf(stdout, "#%s\n", tag)
			}
			a.result(stdout, ResultInfoOnly)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
}

// newStatsCmd creates the 'stats' subcommand
func newStatsCmd(stdout io.Writer, cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show task counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			st := a.store.Stats(a.due.Today())
			if a.json {
				return writeJSON(stdout, struct {
					task.Stats
					Result string `json:"result"`
				}{st, ResultInfoOnly})
			}
			_, _ = fmt.Fprintf(stdout, "Total:     %d\n", st.Total)
			_, _ = fmt.Fprintf(stdout, "Active:    %d\n", st.Active)
			_, _ = fmt.Fprintf(stdout, "Completed: %d\n", st.Completed)
			_, _ = fmt.Fprintf(stdout, "Overdue:   %d\n", st.Overdue)
			a.result(stdout, ResultInfoOnly)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
}
