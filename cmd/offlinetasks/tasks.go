package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"offlinetasks/backend"
	"offlinetasks/internal/cli"
	"offlinetasks/internal/config"
	"offlinetasks/internal/utils"
	"offlinetasks/internal/views"

	"github.com/spf13/cobra"
)

func newTaskCmds() []*cobra.Command {
	return []*cobra.Command{
		newAddCmd(),
		newGetCmd(),
		newEditCmd(),
		newStatusShortcutCmd("start", "Mark a task in progress", backend.StatusInProgress),
		newStatusShortcutCmd("done", "Mark a task done", backend.StatusDone),
		newBlockCmd(),
		newUnblockCmd(),
		newRemoveCmd(),
		newListCmd(),
		newCountCmd(),
		newMoveCmd(),
	}
}

func parseTaskID(arg string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(arg, "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid task id %q", arg)
	}
	return id, nil
}

// userError adds suggestions to store errors the user can act on.
func userError(id int64, err error) error {
	if errors.Is(err, backend.ErrNotFound) && id > 0 {
		return utils.ErrTaskNotFound(id)
	}
	return err
}

func parseStatusFlag(value string) (backend.Status, error) {
	status, err := backend.ParseStatus(value)
	if err != nil {
		return "", utils.ErrInvalidStatus(value, []string{"a_fazer (todo)", "em_progresso (doing)", "concluido (done)"})
	}
	return status, nil
}

func parsePriorityFlag(value string) (backend.Priority, error) {
	priority, err := backend.ParsePriority(value)
	if err != nil {
		return "", utils.ErrInvalidPriority(value, []string{"baixa (low)", "normal", "media (medium)", "alta (high)"})
	}
	return priority, nil
}

// printTask shows one task through the default view, or as json/yaml.
func printTask(cmd *cobra.Command, task *backend.Task) error {
	return printData(cmd, task, func() {
		view, err := views.ResolveView("all")
		if err != nil {
			fmt.Fprintln(cmd.OutOrStdout(), task.String())
			return
		}
		fmt.Fprint(cmd.OutOrStdout(), newRenderer(view).RenderTask(*task))
	})
}

func newRenderer(view *views.View) *views.ViewRenderer {
	dateFormat := view.Display.DateFormat
	if dateFormat == "" {
		if cfg, err := config.GetConfig(); err == nil {
			dateFormat = cfg.GetDateFormat()
		}
	}
	renderer := views.NewViewRenderer(view, dateFormat, time.Now())
	renderer.SetColor(useColor())
	return renderer
}

func newAddCmd() *cobra.Command {
	var (
		description string
		status      string
		priority    string
		tags        []string
		category    string
		complexity  string
		blocked     string
	)

	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Add a task",
		Long: `Add a task. The title is every remaining argument joined by spaces.

Examples:
  offlinetasks add Buy milk
  offlinetasks add "Quarterly report" -p high -t work -t finance
  offlinetasks add "Deploy" --blocked "waiting for review"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := backend.NewTask{
				Title:       strings.Join(args, " "),
				Description: description,
				Tags:        tags,
				Category:    category,
				Complexity:  complexity,
			}
			if status != "" {
				s, err := parseStatusFlag(status)
				if err != nil {
					return err
				}
				in.Status = s
			}
			if priority != "" {
				p, err := parsePriorityFlag(priority)
				if err != nil {
					return err
				}
				in.Priority = p
			}
			if cmd.Flags().Changed("blocked") {
				in.Blocked = true
				in.BlockedReason = blocked
			}

			a, err := getApp(cmd)
			if err != nil {
				return err
			}
			task, err := a.Create(cmd.Context(), in)
			if err != nil {
				return err
			}
			return printTask(cmd, task)
		},
	}

	cmd.Flags().StringVarP(&description, "description", "d", "", "task description")
	cmd.Flags().StringVarP(&status, "status", "s", "", "initial status (todo, doing, done)")
	cmd.Flags().StringVarP(&priority, "priority", "p", "", "priority (low, normal, medium, high)")
	cmd.Flags().StringArrayVarP(&tags, "tag", "t", nil, "tag (repeatable)")
	cmd.Flags().StringVarP(&category, "category", "c", "", "category")
	cmd.Flags().StringVar(&complexity, "complexity", "", "complexity estimate")
	cmd.Flags().StringVar(&blocked, "blocked", "", "create blocked with this reason")
	cmd.RegisterFlagCompletionFunc("status", cli.CompleteStatuses)
	cmd.RegisterFlagCompletionFunc("priority", cli.CompletePriorities)
	return cmd
}

func newGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseTaskID(args[0])
			if err != nil {
				return err
			}
			a, err := getApp(cmd)
			if err != nil {
				return err
			}
			task, err := a.Get(cmd.Context(), id)
			if err != nil {
				return userError(id, err)
			}
			return printTask(cmd, task)
		},
	}
}

func newEditCmd() *cobra.Command {
	var (
		title       string
		description string
		status      string
		priority    string
		tags        []string
		category    string
		complexity  string
	)

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change task fields",
		Long: `Change the fields given as flags; everything else is left as is.

Examples:
  offlinetasks edit 3 -s doing
  offlinetasks edit 3 -p high --title "Ship it"
  offlinetasks edit 3 -t urgent -t work   # replaces the tags`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseTaskID(args[0])
			if err != nil {
				return err
			}

			var patch backend.TaskPatch
			flags := cmd.Flags()
			if flags.Changed("title") {
				patch.Title = &title
			}
			if flags.Changed("description") {
				patch.Description = &description
			}
			if flags.Changed("status") {
				s, err := parseStatusFlag(status)
				if err != nil {
					return err
				}
				patch.Status = &s
			}
			if flags.Changed("priority") {
				p, err := parsePriorityFlag(priority)
				if err != nil {
					return err
				}
				patch.Priority = &p
			}
			if flags.Changed("tag") {
				patch.Tags = &tags
			}
			if flags.Changed("category") {
				patch.Category = &category
			}
			if flags.Changed("complexity") {
				patch.Complexity = &complexity
			}
			if patch.IsEmpty() {
				return fmt.Errorf("nothing to change (see 'offlinetasks edit --help')")
			}

			a, err := getApp(cmd)
			if err != nil {
				return err
			}
			task, err := a.Update(cmd.Context(), id, patch)
			if err != nil {
				return userError(id, err)
			}
			return printTask(cmd, task)
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "new title")
	cmd.Flags().StringVarP(&description, "description", "d", "", "new description")
	cmd.Flags().StringVarP(&status, "status", "s", "", "new status (todo, doing, done)")
	cmd.Flags().StringVarP(&priority, "priority", "p", "", "new priority (low, normal, medium, high)")
	cmd.Flags().StringArrayVarP(&tags, "tag", "t", nil, "replace tags (repeatable)")
	cmd.Flags().StringVarP(&category, "category", "c", "", "new category")
	cmd.Flags().StringVar(&complexity, "complexity", "", "new complexity")
	cmd.RegisterFlagCompletionFunc("status", cli.CompleteStatuses)
	cmd.RegisterFlagCompletionFunc("priority", cli.CompletePriorities)
	return cmd
}

func newStatusShortcutCmd(use, short string, status backend.Status) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseTaskID(args[0])
			if err != nil {
				return err
			}
			a, err := getApp(cmd)
			if err != nil {
				return err
			}
			task, err := a.Update(cmd.Context(), id, backend.TaskPatch{Status: &status})
			if err != nil {
				return userError(id, err)
			}
			return printTask(cmd, task)
		},
	}
}

func newBlockCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "block <id> [reason]",
		Short: "Mark a task blocked",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseTaskID(args[0])
			if err != nil {
				return err
			}
			a, err := getApp(cmd)
			if err != nil {
				return err
			}
			task, err := a.Block(cmd.Context(), id, strings.Join(args[1:], " "))
			if err != nil {
				return userError(id, err)
			}
			return printTask(cmd, task)
		},
	}
}

func newUnblockCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unblock <id>",
		Short: "Clear the block on a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseTaskID(args[0])
			if err != nil {
				return err
			}
			a, err := getApp(cmd)
			if err != nil {
				return err
			}
			task, err := a.Unblock(cmd.Context(), id)
			if err != nil {
				return userError(id, err)
			}
			return printTask(cmd, task)
		},
	}
}

func newRemoveCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete a task",
		Long: `Delete a task. The record is kept as a tombstone until the deletion
is synced and purged (see 'offlinetasks data purge').`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseTaskID(args[0])
			if err != nil {
				return err
			}
			a, err := getApp(cmd)
			if err != nil {
				return err
			}
			task, err := a.Get(cmd.Context(), id)
			if err != nil {
				return userError(id, err)
			}
			if !force && !confirm(fmt.Sprintf("Delete task %d %q?", id, task.Title)) {
				fmt.Fprintln(cmd.OutOrStdout(), "Cancelled")
				return nil
			}
			if err := a.Delete(cmd.Context(), id); err != nil {
				return userError(id, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted task %d\n", id)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "do not ask for confirmation")
	return cmd
}

// listFlags are the query flags shared by ls and count.
type listFlags struct {
	view     string
	status   []string
	priority []string
	tags     []string
	text     string
	blocked  bool
	free     bool
	where    []string
	sort     string
	page     int
	limit    int
}

func (f *listFlags) register(cmd *cobra.Command, paging bool) {
	flags := cmd.Flags()
	flags.StringVar(&f.view, "view", "default", "view to list with (see 'offlinetasks view list')")
	flags.StringArrayVarP(&f.status, "status", "s", nil, "only these statuses (repeatable)")
	flags.StringArrayVarP(&f.priority, "priority", "p", nil, "only these priorities (repeatable)")
	flags.StringArrayVarP(&f.tags, "tag", "t", nil, "only tasks carrying every tag (repeatable)")
	flags.StringVar(&f.text, "text", "", "substring of title or description")
	flags.BoolVar(&f.blocked, "blocked", false, "only blocked tasks")
	flags.BoolVar(&f.free, "unblocked", false, "only tasks that are not blocked")
	flags.StringArrayVarP(&f.where, "where", "w", nil, "condition field:op:value (repeatable)")
	cmd.RegisterFlagCompletionFunc("view", cli.CompleteViewNames)
	cmd.RegisterFlagCompletionFunc("status", cli.CompleteStatuses)
	cmd.RegisterFlagCompletionFunc("priority", cli.CompletePriorities)
	if paging {
		flags.StringVar(&f.sort, "sort", "", "sort keys field[:asc|desc],...")
		flags.IntVar(&f.page, "page", 1, "page number")
		flags.IntVarP(&f.limit, "limit", "n", 0, "page size (-1 for all)")
	}
}

// resolve loads the view and layers the flags on top of its query.
func (f *listFlags) resolve(cmd *cobra.Command, cfg *config.Config) (*views.View, backend.Filter, backend.Pagination, error) {
	base, err := views.ResolveView(f.view)
	if err != nil {
		return nil, backend.Filter{}, backend.Pagination{}, err
	}
	if f.blocked && f.free {
		return nil, backend.Filter{}, backend.Pagination{}, fmt.Errorf("--blocked and --unblocked are mutually exclusive")
	}

	view := *base
	q := view.Query
	if len(f.status) > 0 {
		q.Status = append([]string(nil), f.status...)
	}
	if len(f.priority) > 0 {
		q.Priority = append([]string(nil), f.priority...)
	}
	if len(f.tags) > 0 {
		q.Tags = append(append([]string(nil), q.Tags...), f.tags...)
	}
	if f.text != "" {
		q.Text = f.text
	}
	if f.blocked || f.free {
		blocked := f.blocked
		q.Blocked = &blocked
	}
	if len(f.where) > 0 {
		q.Where = append(append([]string(nil), q.Where...), f.where...)
	}
	if f.sort != "" {
		q.Sort = f.sort
	}
	if err := utils.ValidatePagination(f.page, f.limit); err != nil {
		return nil, backend.Filter{}, backend.Pagination{}, err
	}
	if cmd.Flags().Changed("limit") {
		q.Limit = f.limit
	} else if q.Limit == 0 {
		q.Limit = cfg.Display.PageSize
	}
	view.Query = q

	filter, pagination, err := view.Build(f.page)
	if err != nil {
		if errors.Is(err, backend.ErrValidation) {
			return nil, filter, pagination, utils.WrapWithSuggestion(err, "Use field:op:value, e.g. 'priority:gte:media' or 'category:is_null'")
		}
		return nil, filter, pagination, err
	}
	return &view, filter, pagination, nil
}

func newListCmd() *cobra.Command {
	var flags listFlags

	cmd := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List tasks",
		Long: `List active tasks through a view. Flags narrow the view's own query.

Conditions use field:op:value where op is one of eq, ne, gt, gte, lt, lte,
contains, in, between, is_null, is_not_null (or =, !=, >, >=, <, <=, ~).

Examples:
  offlinetasks ls
  offlinetasks ls --view blocked
  offlinetasks ls -s doing -p high
  offlinetasks ls -w "created_at:gte:2024-05-01" --sort priority:desc
  offlinetasks ls -w "category:in:work,home" --page 2`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := getApp(cmd)
			if err != nil {
				return err
			}
			view, filter, pagination, err := flags.resolve(cmd, a.Config())
			if err != nil {
				return err
			}
			page, err := a.Search(cmd.Context(), filter, pagination)
			if err != nil {
				return err
			}
			return printData(cmd, page, func() {
				fmt.Fprint(cmd.OutOrStdout(), newRenderer(view).RenderPage(page))
			})
		},
	}

	flags.register(cmd, true)
	return cmd
}

func newCountCmd() *cobra.Command {
	var flags listFlags

	cmd := &cobra.Command{
		Use:   "count",
		Short: "Count tasks matching a view and filters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := getApp(cmd)
			if err != nil {
				return err
			}
			_, filter, _, err := flags.resolve(cmd, a.Config())
			if err != nil {
				return err
			}
			n, err := a.Count(cmd.Context(), filter)
			if err != nil {
				return err
			}
			return printData(cmd, map[string]int{"count": n}, func() {
				fmt.Fprintln(cmd.OutOrStdout(), n)
			})
		},
	}

	flags.page = 1
	flags.register(cmd, false)
	return cmd
}

func newMoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "move <id> <position>",
		Short: "Move a task in the manual order",
		Long:  "Move a task to position (1 is the top) in the manual sort order.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseTaskID(args[0])
			if err != nil {
				return err
			}
			position, err := strconv.Atoi(args[1])
			if err != nil || position < 1 {
				return fmt.Errorf("invalid position %q (1 is the top)", args[1])
			}
			a, err := getApp(cmd)
			if err != nil {
				return err
			}
			n, err := a.Move(cmd.Context(), id, position-1)
			if err != nil {
				return userError(id, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Moved task %d to position %d (%d tasks renumbered)\n", id, position, n)
			return nil
		},
	}
}
