package services

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"requirement-analyzer/internal/helpers"
	"requirement-analyzer/internal/models"
)

// Snapshot is the JSON export of a workspace
type Snapshot struct {
	Selection  Selection         `json:"selection"`
	Epics      []models.Epic     `json:"epics"`
	Stories    []models.Story    `json:"stories"`
	QA         []models.QATest   `json:"qa_tests"`
	TestPlans  []models.TestPlan `json:"test_plans"`
	ExportedAt time.Time         `json:"exported_at"`
}

// Exporter writes workspace lists to files
type Exporter struct {
	ws        *Workspace
	outputDir string
}

// NewExporter creates an exporter writing under outputDir
func NewExporter(ws *Workspace, outputDir string) *Exporter {
	return &Exporter{ws: ws, outputDir: outputDir}
}

// ExportCSV writes one list as CSV and returns the file path. Nothing is left
// on disk when the list is empty or the write fails.
func (e *Exporter) ExportCSV(kind models.ArtifactKind) (string, error) {
	header, rows, err := e.table(kind)
	if err != nil {
		return "", err
	}
	if err := helpers.EnsureDir(e.outputDir); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	path := helpers.GetOutputPath(e.outputDir, helpers.GenerateOutputFilename(string(kind)+"s", "csv"))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", path, err)
	}

	err = writeTable(f, header, rows)
	if cerr := f.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("failed to write %s: %w", path, cerr)
	}
	if err != nil {
		os.Remove(path)
		return "", err
	}
	return path, nil
}

// WriteCSV writes one list as CSV with a header row
func (e *Exporter) WriteCSV(w io.Writer, kind models.ArtifactKind) error {
	header, rows, err := e.table(kind)
	if err != nil {
		return err
	}
	return writeTable(w, header, rows)
}

// table returns the CSV header and rows of one list, refusing an empty list
func (e *Exporter) table(kind models.ArtifactKind) ([]string, [][]string, error) {
	header, rows, err := e.rows(kind)
	if err != nil {
		return nil, nil, err
	}
	if len(rows) == 0 {
		return nil, nil, &ValidationError{Field: "export", Message: fmt.Sprintf("no %s to export", plural(kind, 2))}
	}
	return header, rows, nil
}

func writeTable(w io.Writer, header []string, rows [][]string) error {
	out := csv.NewWriter(w)
	if err := out.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	if err := out.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write CSV: %w", err)
	}
	return nil
}

func (e *Exporter) rows(kind models.ArtifactKind) ([]string, [][]string, error) {
	id := func(n int64) string { return strconv.FormatInt(n, 10) }

	switch kind {
	case models.KindEpic:
		var rows [][]string
		for _, ep := range e.ws.Epics() {
			state := e.ws.EpicSyncState(ep)
			rows = append(rows, []string{id(ep.ID), id(ep.UploadID), ep.Title(), ep.Description(), state.Key, state.URL, string(state.Status)})
		}
		return []string{"id", "upload_id", "name", "description", "jira_key", "jira_url", "sync_status"}, rows, nil
	case models.KindStory:
		var rows [][]string
		for _, st := range e.ws.Stories() {
			state := e.ws.StorySyncState(st)
			rows = append(rows, []string{id(st.ID), id(st.EpicID), st.Title(), st.Description(), st.AcceptanceCriteria(), state.Key, state.URL, string(state.Status)})
		}
		return []string{"id", "epic_id", "name", "description", "acceptance_criteria", "jira_key", "jira_url", "sync_status"}, rows, nil
	case models.KindQA:
		var rows [][]string
		for _, q := range e.ws.QA() {
			rows = append(rows, []string{id(q.ID), id(q.StoryID), string(q.TestType), q.Title(), q.Description(), q.CreatedAt})
		}
		return []string{"id", "story_id", "test_type", "title", "description", "created_at"}, rows, nil
	case models.KindTestPlan:
		var rows [][]string
		for _, p := range e.ws.TestPlans() {
			rows = append(rows, []string{id(p.ID), id(p.EpicID), p.Title(), p.ConfluencePageURL, p.CreatedAt})
		}
		return []string{"id", "epic_id", "title", "confluence_page_url", "created_at"}, rows, nil
	}
	return nil, nil, &ValidationError{Field: "kind", Message: fmt.Sprintf("unknown artifact kind %q", kind)}
}

// ExportSnapshot saves every list as JSON plus a markdown summary and
// returns both paths
func (e *Exporter) ExportSnapshot() (string, string, error) {
	if err := helpers.EnsureDir(e.outputDir); err != nil {
		return "", "", fmt.Errorf("failed to create output directory: %w", err)
	}

	snap := Snapshot{
		Selection:  e.ws.Selection(),
		Epics:      e.ws.Epics(),
		Stories:    e.ws.Stories(),
		QA:         e.ws.QA(),
		TestPlans:  e.ws.TestPlans(),
		ExportedAt: time.Now(),
	}

	jsonPath := helpers.GetOutputPath(e.outputDir, helpers.GenerateOutputFilename("workspace", "json"))
	if err := helpers.SaveJSON(snap, jsonPath); err != nil {
		return "", "", fmt.Errorf("failed to save snapshot: %w", err)
	}

	summaryPath := helpers.GetOutputPath(e.outputDir, helpers.GenerateOutputFilename("workspace-summary", "md"))
	if err := helpers.SaveText(e.summary(snap), summaryPath); err != nil {
		return "", "", fmt.Errorf("failed to save summary: %w", err)
	}
	return jsonPath, summaryPath, nil
}

func (e *Exporter) summary(snap Snapshot) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Upload %d\n\n", snap.Selection.UploadID)
	fmt.Fprintf(&b, "**Epics:** %d | **Stories:** %d | **QA tests:** %d | **Test plans:** %d\n\n",
		len(snap.Epics), len(snap.Stories), len(snap.QA), len(snap.TestPlans))

	for i, ep := range snap.Epics {
		fmt.Fprintf(&b, "## Epic %d: %s\n\n", i+1, ep.Title())
		fmt.Fprintf(&b, "**Jira:** %s\n\n", e.ws.EpicSyncState(ep).Label())
		if d := ep.Description(); d != "" {
			fmt.Fprintf(&b, "%s\n\n", d)
		}

		n := 0
		for _, st := range snap.Stories {
			if st.EpicID != ep.ID {
				continue
			}
			n++
			fmt.Fprintf(&b, "### Story %d.%d: %s\n\n", i+1, n, st.Title())
			fmt.Fprintf(&b, "**Jira:** %s\n\n", e.ws.StorySyncState(st).Label())
			if d := st.Description(); d != "" {
				fmt.Fprintf(&b, "%s\n\n", d)
			}
			if ac := st.AcceptanceCriteria(); ac != "" {
				b.WriteString("**Acceptance Criteria:**\n")
				for _, line := range strings.Split(ac, "\n") {
					fmt.Fprintf(&b, "- %s\n", line)
				}
				b.WriteString("\n")
			}
		}
	}

	if len(snap.TestPlans) > 0 {
		b.WriteString("## Test plans\n\n")
		for _, p := range snap.TestPlans {
			fmt.Fprintf(&b, "- %s\n", p.Title())
		}
	}
	return b.String()
}
