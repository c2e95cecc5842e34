package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"requirement-analyzer/internal/helpers"
	"requirement-analyzer/internal/models"
	"requirement-analyzer/internal/services"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func runLogin(cmd *cobra.Command, a *app, args []string) error {
	email, _ := cmd.Flags().GetString("email")
	email, err := promptIfEmpty(email, "Email: ")
	if err != nil {
		return err
	}
	password, err := promptSecret("Password: ")
	if err != nil {
		return err
	}

	user, err := a.auth.Login(cmd.Context(), email, password)
	if err != nil {
		return err
	}
	helpers.PrintSuccess("Logged in as %s", user.Email)
	return nil
}

func runRegister(cmd *cobra.Command, a *app, args []string) error {
	email, _ := cmd.Flags().GetString("email")
	name, _ := cmd.Flags().GetString("name")
	email, err := promptIfEmpty(email, "Email: ")
	if err != nil {
		return err
	}
	password, err := promptSecret("Password: ")
	if err != nil {
		return err
	}

	user, err := a.auth.Register(cmd.Context(), models.RegisterRequest{Email: email, Password: password, FullName: name})
	if err != nil {
		return err
	}
	helpers.PrintSuccess("Account created, logged in as %s", user.Email)
	return nil
}

func runLogout(cmd *cobra.Command, a *app, args []string) error {
	if err := a.auth.Logout(cmd.Context()); err != nil {
		return err
	}
	helpers.PrintSuccess("Logged out")
	return nil
}

func runWhoami(cmd *cobra.Command, a *app, args []string) error {
	ctx := cmd.Context()
	if err := a.requireLogin(ctx); err != nil {
		return err
	}
	user, err := a.auth.Me(ctx)
	if err != nil {
		return err
	}
	if user.FullName != "" {
		helpers.PrintInfo("%s <%s> (id %d)", user.FullName, user.Email, user.UserID)
	} else {
		helpers.PrintInfo("%s (id %d)", user.Email, user.UserID)
	}
	return nil
}

func runUpload(cmd *cobra.Command, a *app, args []string) error {
	ctx := cmd.Context()
	if err := a.requireLogin(ctx); err != nil {
		return err
	}
	path := args[0]
	if !helpers.FileExists(path) {
		return cliErrorf("file not found: %s", path)
	}

	f, err := os.Open(path)
	if err != nil {
		return cliErrorf("failed to open %s: %v", path, err)
	}
	defer f.Close()

	helpers.PrintInfo("Uploading %s...", path)
	id, err := a.artifacts.Upload(ctx, path, f)
	if err != nil {
		return err
	}
	if err := a.ws.SelectUpload(ctx, id); err != nil {
		return err
	}
	helpers.PrintSuccess("Uploaded %s as upload %d and selected it", path, id)
	return nil
}

func runUploads(cmd *cobra.Command, a *app, args []string) error {
	ctx := cmd.Context()
	if err := a.requireLogin(ctx); err != nil {
		return err
	}
	page, _ := cmd.Flags().GetInt("page")
	size, _ := cmd.Flags().GetInt("page-size")
	asc, _ := cmd.Flags().GetBool("asc")
	opts := models.ListOptions{Page: page, PageSize: size}
	if asc {
		opts.SortOrder = "asc"
	}

	uploads, err := a.history.Uploads(ctx, opts)
	if err != nil {
		return err
	}

	helpers.PrintTitle("Uploads (page %d of %d, %d total)", opts.Page, uploads.TotalPages, uploads.Total)
	selected := a.ws.Selection().UploadID
	for _, u := range uploads.Items {
		marker := " "
		if u.ID == selected {
			marker = "*"
		}
		fmt.Printf("%s %d  %s  %s\n", marker, u.ID, u.Filename, u.CreatedAt)
	}
	return nil
}

func runSelect(cmd *cobra.Command, a *app, args []string) error {
	ctx := cmd.Context()
	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	switch cmd.Name() {
	case "upload":
		err = a.ws.SelectUpload(ctx, id)
	case "epic":
		err = a.ws.SelectEpicForStories(ctx, id)
	case "story":
		err = a.ws.SelectStory(ctx, id)
	case "testplan-epic":
		err = a.ws.SelectEpicForTestPlan(ctx, id)
	}
	if err != nil {
		return err
	}
	helpers.PrintSuccess("Selected %s %d", cmd.Name(), id)

	if err := a.load(ctx); err != nil {
		return err
	}
	displayAll(a.ws)
	return nil
}

func runStatus(cmd *cobra.Command, a *app, args []string) error {
	ctx := cmd.Context()
	if err := a.load(ctx); err != nil {
		return err
	}

	sel := a.ws.Selection()
	helpers.PrintTitle("Selections")
	printSelection("Upload", sel.UploadID)
	printSelection("Epic (stories)", sel.EpicForStoriesID)
	printSelection("Story (QA)", sel.StoryID)
	printSelection("Epic (test plan)", sel.EpicForTestPlanID)
	if sel.StoryID != 0 {
		helpers.PrintInfo("QA attempts for story %d: %d/%d", sel.StoryID, a.ws.Guard().Attempts(sel.StoryID), services.MaxQAAttempts)
	}

	helpers.PrintSeparator()
	helpers.PrintTitle("Generation")
	for _, kind := range []models.ArtifactKind{models.KindEpic, models.KindStory, models.KindQA, models.KindTestPlan} {
		av := a.gen.Availability(kind)
		if av.Enabled {
			helpers.PrintSuccess("%-10s ready", kind)
		} else {
			helpers.PrintWarning("%-10s %s", kind, av.Reason)
		}
	}

	if syncing := a.ws.InFlight(); len(syncing) > 0 {
		helpers.PrintSeparator()
		helpers.PrintInfo("Syncing to Jira: %s", strings.Join(syncing, ", "))
	}
	if retry := a.ws.Retryable(); len(retry) > 0 {
		helpers.PrintSeparator()
		helpers.PrintWarning("Failed Jira syncs, use 'retry': %s", strings.Join(retry, ", "))
	}
	return nil
}

func runList(cmd *cobra.Command, a *app, args []string) error {
	if err := a.load(cmd.Context()); err != nil {
		return err
	}
	if len(args) == 0 {
		displayAll(a.ws)
		return nil
	}

	kind, err := parseKind(args[0])
	if err != nil {
		return err
	}
	display(a.ws, kind)
	return nil
}

func runGenerate(cmd *cobra.Command, a *app, args []string) error {
	ctx := cmd.Context()
	kind, err := parseKind(args[0])
	if err != nil {
		return err
	}
	if parent, _ := cmd.Flags().GetInt64("parent"); parent > 0 {
		if err := selectParent(ctx, a.ws, kind, parent); err != nil {
			return err
		}
	}
	if err := a.load(ctx); err != nil {
		return err
	}

	a.gen.OnProgress(func(k models.ArtifactKind, percent int) {
		if percent > services.ProgressIdle && helpers.IsTerminal() {
			helpers.PrintPercent(string(k), percent)
		}
	})

	switch kind {
	case models.KindEpic:
		_, err = a.gen.GenerateEpics(ctx)
	case models.KindStory:
		_, err = a.gen.GenerateStories(ctx)
	case models.KindQA:
		_, err = a.gen.GenerateQA(ctx)
	case models.KindTestPlan:
		_, err = a.gen.GenerateTestPlans(ctx)
	}
	if err != nil {
		return err
	}
	display(a.ws, kind)
	return nil
}

// selectParent selects the parent of kind unless it is already selected
func selectParent(ctx context.Context, ws *services.Workspace, kind models.ArtifactKind, id int64) error {
	sel := ws.Selection()
	switch kind {
	case models.KindEpic:
		if sel.UploadID != id {
			return ws.SelectUpload(ctx, id)
		}
	case models.KindStory:
		if sel.EpicForStoriesID != id {
			return ws.SelectEpicForStories(ctx, id)
		}
	case models.KindQA:
		if sel.StoryID != id {
			return ws.SelectStory(ctx, id)
		}
	case models.KindTestPlan:
		if sel.EpicForTestPlanID != id {
			return ws.SelectEpicForTestPlan(ctx, id)
		}
	}
	return nil
}

func runSync(cmd *cobra.Command, a *app, args []string) error {
	ctx := cmd.Context()
	kind, err := parseKind(args[0])
	if err != nil {
		return err
	}
	if err := a.load(ctx); err != nil {
		return err
	}

	var report services.BatchReport
	switch kind {
	case models.KindEpic:
		var pending []models.Epic
		for _, ep := range a.ws.Epics() {
			if a.ws.EpicSyncState(ep).Status != models.SyncSuccess {
				pending = append(pending, ep)
			}
		}
		if len(pending) == 0 {
			helpers.PrintInfo("Every epic is already in Jira")
			return nil
		}
		report, err = a.syncer.SyncEpics(ctx, pending)
	case models.KindStory:
		epicID := a.ws.Selection().EpicForStoriesID
		if epicID == 0 {
			return cliErrorf("select an epic first")
		}
		parent, perr := a.syncer.ParentEpic(ctx, epicID)
		if perr != nil {
			return perr
		}
		var pending []models.Story
		for _, st := range a.ws.Stories() {
			if a.ws.StorySyncState(st).Status != models.SyncSuccess {
				pending = append(pending, st)
			}
		}
		if len(pending) == 0 {
			helpers.PrintInfo("Every story is already in Jira")
			return nil
		}
		report, err = a.syncer.SyncStories(ctx, parent, pending)
	default:
		return cliErrorf("only epics and stories can be synced to Jira")
	}

	services.DisplayReport(report)
	return err
}

func runRetry(cmd *cobra.Command, a *app, args []string) error {
	ctx := cmd.Context()
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	if err := a.load(ctx); err != nil {
		return err
	}

	if cmd.Name() == "epic" {
		_, err = a.syncer.RetryEpic(ctx, id)
	} else {
		_, err = a.syncer.RetryStory(ctx, id)
	}
	return err
}

func runJiraSave(cmd *cobra.Command, a *app, args []string) error {
	ctx := cmd.Context()
	if err := a.requireLogin(ctx); err != nil {
		return err
	}
	creds, err := credentialsFromFlags(cmd)
	if err != nil {
		return err
	}
	if err := a.creds.Save(ctx, creds); err != nil {
		return err
	}
	helpers.PrintSuccess("Jira credentials saved for project %s", creds.ProjectKey)
	return nil
}

func runJiraTest(cmd *cobra.Command, a *app, args []string) error {
	ctx := cmd.Context()
	if err := a.requireLogin(ctx); err != nil {
		return err
	}

	var creds models.JiraCredentials
	if cmd.Flags().Changed("url") {
		c, err := credentialsFromFlags(cmd)
		if err != nil {
			return err
		}
		creds = c
	} else {
		saved, err := a.creds.Get(ctx)
		if err != nil {
			return err
		}
		if saved == nil {
			return services.ErrCredentialsNotConfigured
		}
		creds = *saved
	}

	conn, err := a.creds.Test(ctx, creds)
	if err != nil {
		return err
	}
	helpers.PrintSuccess("%s", conn.Message)
	if conn.User != "" {
		helpers.PrintInfo("Connected as %s", conn.User)
	}
	return nil
}

func runJiraShow(cmd *cobra.Command, a *app, args []string) error {
	ctx := cmd.Context()
	if err := a.requireLogin(ctx); err != nil {
		return err
	}
	creds, err := a.creds.Get(ctx)
	if err != nil {
		return err
	}
	if creds == nil {
		helpers.PrintWarning("No Jira credentials saved")
		return nil
	}

	masked := creds.Masked()
	helpers.PrintTitle("Jira credentials")
	fmt.Printf("  URL:         %s\n", masked.URL)
	fmt.Printf("  Username:    %s\n", masked.Username)
	fmt.Printf("  Project key: %s\n", masked.ProjectKey)
	fmt.Printf("  API token:   %s\n", masked.APIToken)
	return nil
}

func runJiraDelete(cmd *cobra.Command, a *app, args []string) error {
	ctx := cmd.Context()
	if err := a.requireLogin(ctx); err != nil {
		return err
	}
	if !confirm("Delete the saved Jira credentials?") {
		helpers.PrintInfo("Operation cancelled by user")
		return nil
	}
	if err := a.creds.Delete(ctx); err != nil {
		return err
	}
	helpers.PrintSuccess("Jira credentials deleted")
	return nil
}

func runSearch(cmd *cobra.Command, a *app, args []string) error {
	ctx := cmd.Context()
	if err := a.requireLogin(ctx); err != nil {
		return err
	}
	topK, _ := cmd.Flags().GetInt("top-k")
	if !cmd.Flags().Changed("top-k") {
		topK = a.cfg.Search.TopK
	}

	query := strings.Join(args, " ")
	results, err := a.search.Search(ctx, query, topK)
	if err != nil {
		return err
	}
	services.DisplaySearchResults(query, results)
	return nil
}

func runHistory(cmd *cobra.Command, a *app, args []string) error {
	ctx := cmd.Context()
	if err := a.requireLogin(ctx); err != nil {
		return err
	}
	recent, err := a.history.Recent(ctx)
	if err != nil {
		return err
	}

	helpers.PrintTitle("Recent epics (%d total)", recent.Epics.Total)
	for _, ep := range recent.Epics.Items {
		fmt.Printf("  %d  %s  %s\n", ep.ID, ep.Title(), ep.SyncState().Label())
	}
	helpers.PrintTitle("Recent stories (%d total)", recent.Stories.Total)
	for _, st := range recent.Stories.Items {
		fmt.Printf("  %d  %s  %s\n", st.ID, st.Title(), st.SyncState().Label())
	}
	helpers.PrintTitle("Recent QA tests (%d total)", recent.QA.Total)
	for _, q := range recent.QA.Items {
		fmt.Printf("  %d  %s\n", q.ID, q.Title())
	}
	helpers.PrintTitle("Recent test plans (%d total)", recent.TestPlans.Total)
	for _, p := range recent.TestPlans.Items {
		fmt.Printf("  %d  %s\n", p.ID, p.Title())
	}
	return nil
}

func runExport(cmd *cobra.Command, a *app, args []string) error {
	ctx := cmd.Context()
	if err := a.load(ctx); err != nil {
		return err
	}

	if args[0] == "snapshot" {
		jsonPath, summaryPath, err := a.exporter.ExportSnapshot()
		if err != nil {
			return err
		}
		helpers.PrintSuccess("Snapshot saved to %s", jsonPath)
		helpers.PrintSuccess("Summary saved to %s", summaryPath)
		return nil
	}

	kind, err := parseKind(args[0])
	if err != nil {
		return err
	}
	path, err := a.exporter.ExportCSV(kind)
	if err != nil {
		return err
	}
	helpers.PrintSuccess("Exported to %s", path)
	return nil
}

func display(ws *services.Workspace, kind models.ArtifactKind) {
	switch kind {
	case models.KindEpic:
		services.DisplayEpics(ws)
	case models.KindStory:
		services.DisplayStories(ws)
	case models.KindQA:
		services.DisplayQA(ws)
	case models.KindTestPlan:
		services.DisplayTestPlans(ws)
	}
}

func displayAll(ws *services.Workspace) {
	sel := ws.Selection()
	if sel.UploadID != 0 {
		services.DisplayEpics(ws)
	}
	if sel.EpicForStoriesID != 0 {
		services.DisplayStories(ws)
	}
	if sel.StoryID != 0 {
		services.DisplayQA(ws)
	}
	if sel.EpicForTestPlanID != 0 {
		services.DisplayTestPlans(ws)
	}
}

func printSelection(label string, id int64) {
	if id == 0 {
		fmt.Printf("  %-18s -\n", label)
		return
	}
	fmt.Printf("  %-18s %d\n", label, id)
}

func credentialsFromFlags(cmd *cobra.Command) (models.JiraCredentials, error) {
	url, _ := cmd.Flags().GetString("url")
	username, _ := cmd.Flags().GetString("username")
	project, _ := cmd.Flags().GetString("project-key")
	token, _ := cmd.Flags().GetString("token")

	var err error
	if url, err = promptIfEmpty(url, "Jira URL: "); err != nil {
		return models.JiraCredentials{}, err
	}
	if username, err = promptIfEmpty(username, "Jira username/email: "); err != nil {
		return models.JiraCredentials{}, err
	}
	if project, err = promptIfEmpty(project, "Jira project key: "); err != nil {
		return models.JiraCredentials{}, err
	}
	if token == "" {
		if token, err = promptSecret("Jira API token: "); err != nil {
			return models.JiraCredentials{}, err
		}
	}

	return models.JiraCredentials{
		URL:        strings.TrimRight(strings.TrimSpace(url), "/"),
		Username:   strings.TrimSpace(username),
		APIToken:   strings.TrimSpace(token),
		ProjectKey: strings.ToUpper(strings.TrimSpace(project)),
	}, nil
}

var stdin = bufio.NewReader(os.Stdin)

func promptIfEmpty(value, label string) (string, error) {
	if value != "" {
		return value, nil
	}
	fmt.Print(label)
	line, err := stdin.ReadString('\n')
	if err != nil && line == "" {
		return "", cliErrorf("failed to read input: %v", err)
	}
	return strings.TrimSpace(line), nil
}

// promptSecret reads a value without echo when stdin is a terminal
func promptSecret(label string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return promptIfEmpty("", label)
	}
	fmt.Print(label)
	secret, err := term.ReadPassword(fd)
	fmt.Println()
	if err != nil {
		return "", cliErrorf("failed to read input: %v", err)
	}
	return string(secret), nil
}

func confirm(question string) bool {
	fmt.Printf("%s (y/N): ", question)
	response, _ := stdin.ReadString('\n')
	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes"
}
