package main

import (
	"fmt"
	"os"
	"os/exec"
	"slices"

	"offlinetasks/internal/cli"
	"offlinetasks/internal/utils"
	"offlinetasks/internal/views"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// newViewCmd creates the view management command with all subcommands
func newViewCmd() *cobra.Command {
	viewCmd := &cobra.Command{
		Use:   "view",
		Short: "Manage saved views",
		Long: `A view is a saved query (filters, sort, page size) plus the fields used
to display the matching tasks. User views live in
$XDG_CONFIG_HOME/offlinetasks/views and override built-ins of the same name.

Examples:
  offlinetasks view list                 # List all views
  offlinetasks view show blocked         # Show view configuration
  offlinetasks view copy default         # Copy a built-in to edit it
  offlinetasks view copy default urgent  # Copy under a new name
  offlinetasks view edit urgent          # Edit in $EDITOR
  offlinetasks view delete urgent        # Delete user view
  offlinetasks ls --view urgent          # List through it`,
	}

	viewCmd.AddCommand(newViewListCmd())
	viewCmd.AddCommand(newViewShowCmd())
	viewCmd.AddCommand(newViewCopyCmd())
	viewCmd.AddCommand(newViewEditCmd())
	viewCmd.AddCommand(newViewDeleteCmd())
	viewCmd.AddCommand(newViewValidateCmd())

	return viewCmd
}

// newViewListCmd creates the 'view list' command
func newViewListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all available views",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			viewNames, err := views.ListViews()
			if err != nil {
				return fmt.Errorf("failed to list views: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Available views:")
			for _, name := range viewNames {
				view, err := views.ResolveView(name)
				if err != nil {
					fmt.Fprintf(out, "  %-20s (error loading: %v)\n", name, err)
					continue
				}

				marker := ""
				if views.IsBuiltInView(name) {
					marker = " [built-in]"
				}
				desc := view.Description
				if desc == "" {
					desc = "No description"
				}
				fmt.Fprintf(out, "  %-20s %s%s\n", name, desc, marker)
			}
			return nil
		},
	}
}

// newViewShowCmd creates the 'view show' command
func newViewShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:               "show <view-name>",
		Short:             "Show view configuration",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: cli.CompleteViewNames,
		RunE: func(cmd *cobra.Command, args []string) error {
			view, err := views.ResolveView(args[0])
			if err != nil {
				return err
			}
			if format, ok := structuredFormat(); ok {
				return utils.Write(cmd.OutOrStdout(), view, format)
			}

			data, err := yaml.Marshal(view)
			if err != nil {
				return fmt.Errorf("failed to format view: %w", err)
			}
			kind := "user-defined"
			if views.IsBuiltInView(args[0]) {
				kind = "built-in"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "# %s view\n%s", kind, data)
			return nil
		},
	}
}

// newViewCopyCmd creates the 'view copy' command
func newViewCopyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "copy <source> [destination]",
		Short: "Copy a view",
		Long: `Copy a view into the user views directory. Without a destination, a
built-in view is copied under its own name so it can be customized.`,
		Args:              cobra.RangeArgs(1, 2),
		ValidArgsFunction: cli.CompleteViewNames,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				path, err := views.CopyBuiltInView(args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "View '%s' copied to %s\n", args[0], path)
				return nil
			}

			source, err := views.ResolveView(args[0])
			if err != nil {
				return err
			}
			if existing, _ := views.ListViews(); slices.Contains(existing, args[1]) && !views.IsBuiltInView(args[1]) {
				return fmt.Errorf("view '%s' already exists", args[1])
			}

			copied := *source
			copied.Name = args[1]
			copied.Fields = append([]views.FieldConfig(nil), source.Fields...)
			if err := views.SaveView(&copied); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "View '%s' copied to '%s'\n", args[0], args[1])
			return nil
		},
	}
}

// newViewEditCmd creates the 'view edit' command
func newViewEditCmd() *cobra.Command {
	return &cobra.Command{
		Use:               "edit <view-name>",
		Short:             "Edit a view in $EDITOR",
		Long:              "Edit a view in your editor ($EDITOR).\nA built-in view is copied to the user views directory first.",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: cli.CompleteViewNames,
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			names, err := views.ListViews()
			if err != nil {
				return err
			}
			if views.IsBuiltInView(name) {
				if _, err := views.CopyBuiltInView(name); err == nil {
					fmt.Fprintf(cmd.OutOrStdout(), "Copied built-in view '%s' for editing\n", name)
				}
			} else if !slices.Contains(names, name) {
				return fmt.Errorf("view '%s' not found", name)
			}

			view, err := views.ResolveView(name)
			if err != nil {
				return err
			}
			edited, err := editViewInEditor(view)
			if err != nil {
				return err
			}
			edited.Name = name
			if err := views.SaveView(edited); err != nil {
				return fmt.Errorf("failed to save view: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "View '%s' updated\n", name)
			return nil
		},
	}
}

// newViewDeleteCmd creates the 'view delete' command
func newViewDeleteCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:               "delete <view-name>",
		Short:             "Delete a user view",
		Long:              "Delete a user-defined view.\nBuilt-in views cannot be deleted; deleting a copy restores the built-in.",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: cli.CompleteViewNames,
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			if !force && !confirm(fmt.Sprintf("Delete view '%s'?", name)) {
				fmt.Fprintln(cmd.OutOrStdout(), "Cancelled")
				return nil
			}
			if err := views.DeleteView(name); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "View '%s' deleted\n", name)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Skip confirmation prompt")
	return cmd
}

// newViewValidateCmd creates the 'view validate' command
func newViewValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <view-name|file>",
		Short: "Check a view configuration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				view *views.View
				err  error
			)
			if _, statErr := os.Stat(args[0]); statErr == nil {
				view, err = views.LoadView(args[0])
			} else {
				view, err = views.ResolveView(args[0])
			}
			if err != nil {
				return fmt.Errorf("view '%s' is invalid: %w", args[0], err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "✓ View '%s' is valid\n", view.Name)
			fmt.Fprintf(out, "  Fields: %d\n", len(view.Fields))
			if view.Description != "" {
				fmt.Fprintf(out, "  Description: %s\n", view.Description)
			}
			return nil
		},
	}
}

// editViewInEditor opens a view in the user's editor until it parses and
// validates, or the user gives up.
func editViewInEditor(view *views.View) (*views.View, error) {
	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = "vi"
	}

	tmpfile, err := os.CreateTemp("", "offlinetasks-view-*.yaml")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpfile.Close()
	defer os.Remove(tmpfile.Name())

	content, err := yaml.Marshal(view)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal view: %w", err)
	}

	for {
		if err := os.WriteFile(tmpfile.Name(), content, 0644); err != nil {
			return nil, fmt.Errorf("failed to write temp file: %w", err)
		}

		editCmd := exec.Command(editor, tmpfile.Name())
		editCmd.Stdin = os.Stdin
		editCmd.Stdout = os.Stdout
		editCmd.Stderr = os.Stderr
		if err := editCmd.Run(); err != nil {
			return nil, fmt.Errorf("editor failed: %w", err)
		}

		edited, err := os.ReadFile(tmpfile.Name())
		if err != nil {
			return nil, fmt.Errorf("failed to read edited file: %w", err)
		}

		parsed, err := views.LoadViewFromBytes(edited, view.Name)
		if err == nil {
			return parsed, nil
		}

		fmt.Fprintf(os.Stderr, "\nInvalid view: %v\n", err)
		if !utils.PromptYesNo("Reopen the editor?") {
			return nil, fmt.Errorf("edit cancelled")
		}
		errorComment := fmt.Sprintf("# ERROR: %s\n", firstLine(err.Error()))
		content = append([]byte(errorComment), edited...)
	}
}

func firstLine(s string) string {
	for i, r := range s {
		if r == '\n' {
			return s[:i]
		}
	}
	return s
}
