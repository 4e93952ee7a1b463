package cli

import (
	"strings"

	"offlinetasks/backend"
	"offlinetasks/internal/views"

	"github.com/spf13/cobra"
)

// CompleteViewNames completes the first argument with built-in and user view names.
func CompleteViewNames(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	names, err := views.ListViews()
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	return filterPrefix(names, toComplete), cobra.ShellCompDirectiveNoFileComp
}

// CompleteStatuses completes --status values, canonical names first.
func CompleteStatuses(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	var names []string
	for _, s := range backend.Statuses {
		names = append(names, string(s))
	}
	names = append(names, "todo", "in-progress", "done")
	return filterPrefix(names, toComplete), cobra.ShellCompDirectiveNoFileComp
}

// CompletePriorities completes --priority values.
func CompletePriorities(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	var names []string
	for _, p := range backend.Priorities {
		names = append(names, string(p))
	}
	names = append(names, "low", "medium", "high")
	return filterPrefix(names, toComplete), cobra.ShellCompDirectiveNoFileComp
}

func filterPrefix(names []string, prefix string) []string {
	var completions []string
	for _, name := range names {
		if strings.HasPrefix(strings.ToLower(name), strings.ToLower(prefix)) {
			completions = append(completions, name)
		}
	}
	return completions
}
