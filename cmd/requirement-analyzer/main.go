package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"requirement-analyzer/internal/helpers"

	"github.com/spf13/cobra"
)

var (
	configFile string
	verbose    bool
)

func main() {
	os.Exit(run())
}

func run() (code int) {
	defer func() {
		if r := recover(); r != nil {
			helpers.PrintError("something went wrong: %v", r)
			code = 1
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		helpers.PrintError("Error: %s", describe(err))
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	var rootCmd = &cobra.Command{
		Use:   "requirement-analyzer",
		Short: "Requirement Analyzer - turn requirement documents into epics, stories and tests",
		Long: `Requirement Analyzer uploads requirement documents to the analyzer backend,
generates epics, user stories, QA tests and test plans from them, and pushes
epics and stories to Jira.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			helpers.SetVerbose(verbose)
		},
	}

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "config.yaml", "Configuration file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Print request diagnostics")

	// Account commands
	var loginCmd = &cobra.Command{
		Use:   "login",
		Short: "Log in to the analyzer backend",
		Args:  cobra.NoArgs,
		RunE:  withApp(runLogin),
	}
	loginCmd.Flags().StringP("email", "e", "", "Account email")
	rootCmd.AddCommand(loginCmd)

	var registerCmd = &cobra.Command{
		Use:   "register",
		Short: "Create an account and log in",
		Args:  cobra.NoArgs,
		RunE:  withApp(runRegister),
	}
	registerCmd.Flags().StringP("email", "e", "", "Account email")
	registerCmd.Flags().StringP("name", "n", "", "Full name")
	rootCmd.AddCommand(registerCmd)

	rootCmd.AddCommand(&cobra.Command{
		Use:   "logout",
		Short: "Log out and clear the local session",
		Args:  cobra.NoArgs,
		RunE:  withApp(runLogout),
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "whoami",
		Short: "Show the logged in user",
		Args:  cobra.NoArgs,
		RunE:  withApp(runWhoami),
	})

	// Document commands
	rootCmd.AddCommand(&cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a requirement document and select it",
		Args:  cobra.ExactArgs(1),
		RunE:  withApp(runUpload),
	})

	var uploadsCmd = &cobra.Command{
		Use:   "uploads",
		Short: "List uploaded documents",
		Args:  cobra.NoArgs,
		RunE:  withApp(runUploads),
	}
	uploadsCmd.Flags().Int("page", 1, "Page number")
	uploadsCmd.Flags().Int("page-size", 10, "Items per page")
	uploadsCmd.Flags().Bool("asc", false, "Oldest first")
	rootCmd.AddCommand(uploadsCmd)

	// Selection commands
	var selectCmd = &cobra.Command{
		Use:   "select",
		Short: "Select the parent of the next generation",
	}
	for _, role := range []struct{ use, short string }{
		{"upload <id>", "Select the upload to generate epics from"},
		{"epic <id>", "Select the epic to generate stories from"},
		{"story <id>", "Select the story to generate QA tests from"},
		{"testplan-epic <id>", "Select the epic to generate a test plan from"},
	} {
		selectCmd.AddCommand(&cobra.Command{
			Use:   role.use,
			Short: role.short,
			Args:  cobra.ExactArgs(1),
			RunE:  withApp(runSelect),
		})
	}
	rootCmd.AddCommand(selectCmd)

	rootCmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show selections, generation availability and sync progress",
		Args:  cobra.NoArgs,
		RunE:  withApp(runStatus),
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:       "list [epics|stories|qa|testplans]",
		Short:     "Show one list, or every list under the current selections",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"epics", "stories", "qa", "testplans"},
		RunE:      withApp(runList),
	})

	// Generation and sync commands
	var generateCmd = &cobra.Command{
		Use:       "generate <epics|stories|qa|testplans>",
		Short:     "Generate artifacts for the current selection",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"epics", "stories", "qa", "testplans"},
		RunE:      withApp(runGenerate),
	}
	generateCmd.Flags().Int64P("parent", "p", 0, "Select this parent id before generating")
	rootCmd.AddCommand(generateCmd)

	rootCmd.AddCommand(&cobra.Command{
		Use:       "sync <epics|stories>",
		Short:     "Push every unsynced epic or story of the current selection to Jira",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"epics", "stories"},
		RunE:      withApp(runSync),
	})

	var retryCmd = &cobra.Command{
		Use:   "retry",
		Short: "Retry the Jira creation of one failed item",
	}
	retryCmd.AddCommand(&cobra.Command{
		Use:   "epic <id>",
		Short: "Retry one epic",
		Args:  cobra.ExactArgs(1),
		RunE:  withApp(runRetry),
	})
	retryCmd.AddCommand(&cobra.Command{
		Use:   "story <id>",
		Short: "Retry one story",
		Args:  cobra.ExactArgs(1),
		RunE:  withApp(runRetry),
	})
	rootCmd.AddCommand(retryCmd)

	// Jira credential commands
	var jiraCmd = &cobra.Command{
		Use:   "jira",
		Short: "Manage Jira credentials",
	}
	var jiraSaveCmd = &cobra.Command{
		Use:   "save",
		Short: "Save Jira credentials",
		Args:  cobra.NoArgs,
		RunE:  withApp(runJiraSave),
	}
	addCredentialFlags(jiraSaveCmd)
	jiraCmd.AddCommand(jiraSaveCmd)

	var jiraTestCmd = &cobra.Command{
		Use:   "test",
		Short: "Test Jira credentials, the saved ones unless flags are given",
		Args:  cobra.NoArgs,
		RunE:  withApp(runJiraTest),
	}
	addCredentialFlags(jiraTestCmd)
	jiraCmd.AddCommand(jiraTestCmd)

	jiraCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the saved Jira credentials",
		Args:  cobra.NoArgs,
		RunE:  withApp(runJiraShow),
	})
	jiraCmd.AddCommand(&cobra.Command{
		Use:   "delete",
		Short: "Delete the saved Jira credentials",
		Args:  cobra.NoArgs,
		RunE:  withApp(runJiraDelete),
	})
	rootCmd.AddCommand(jiraCmd)

	// Search and history commands
	var searchCmd = &cobra.Command{
		Use:   "search <query>",
		Short: "Semantic search over everything generated",
		Args:  cobra.MinimumNArgs(1),
		RunE:  withApp(runSearch),
	}
	searchCmd.Flags().IntP("top-k", "k", 0, "Number of results to request (1-10, defaults to the config value)")
	rootCmd.AddCommand(searchCmd)

	rootCmd.AddCommand(&cobra.Command{
		Use:   "history",
		Short: "Show the newest epics, stories, QA tests and test plans",
		Args:  cobra.NoArgs,
		RunE:  withApp(runHistory),
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "export <epics|stories|qa|testplans|snapshot>",
		Short: "Export the current lists as CSV, or everything as JSON and markdown",
		Args:  cobra.ExactArgs(1),
		RunE:  withApp(runExport),
	})

	return rootCmd
}

func addCredentialFlags(cmd *cobra.Command) {
	cmd.Flags().String("url", "", "Jira base URL, e.g. https://acme.atlassian.net")
	cmd.Flags().String("username", "", "Jira username or email")
	cmd.Flags().String("project-key", "", "Jira project key")
	cmd.Flags().String("token", "", "Jira API token (prompted when omitted)")
}
