package services

import (
	"strings"

	"requirement-analyzer/internal/helpers"
	"requirement-analyzer/internal/models"
)

// DisplayEpics prints the epic list with each epic's Jira state
func DisplayEpics(ws *Workspace) {
	epics := ws.Epics()
	helpers.PrintTitle("Epics for upload %d", ws.Selection().UploadID)
	if len(epics) == 0 {
		helpers.PrintInfo("No epics yet")
		return
	}
	helpers.PrintSeparator()

	for i, epic := range epics {
		state := ws.EpicSyncState(epic)
		helpers.PrintInfo("Epic %d: %s (id %d)", i+1, epic.Title(), epic.ID)
		printSyncState(state)
		if d := epic.Description(); d != "" {
			helpers.PrintInfo("Description: %s", d)
		}
		helpers.PrintSeparator()
	}
}

// DisplayStories prints the story list with each story's Jira state
func DisplayStories(ws *Workspace) {
	stories := ws.Stories()
	helpers.PrintTitle("Stories for epic %d", ws.Selection().EpicForStoriesID)
	if len(stories) == 0 {
		helpers.PrintInfo("No stories yet")
		return
	}
	helpers.PrintSeparator()

	for i, story := range stories {
		helpers.PrintInfo("Story %d: %s (id %d)", i+1, story.Title(), story.ID)
		printSyncState(ws.StorySyncState(story))
		if d := story.Description(); d != "" {
			helpers.PrintInfo("    Description: %s", d)
		}
		if ac := story.AcceptanceCriteria(); ac != "" {
			helpers.PrintInfo("    Acceptance Criteria:")
			for _, line := range strings.Split(ac, "\n") {
				helpers.PrintInfo("      • %s", line)
			}
		}
		helpers.PrintSeparator()
	}
}

// DisplayQA prints the QA tests of the selected story and the remaining attempts
func DisplayQA(ws *Workspace) {
	storyID := ws.Selection().StoryID
	tests := ws.QA()
	helpers.PrintTitle("QA tests for story %d", storyID)
	helpers.PrintInfo("Attempts: %d/%d | Tests: %d/%d", ws.Guard().Attempts(storyID), MaxQAAttempts, len(tests), MaxQAResults)
	helpers.PrintSeparator()

	for i, test := range tests {
		helpers.PrintInfo("%d. [%s] %s", i+1, testTypeLabel(test.TestType), test.Title())
		if d := test.Description(); d != "" {
			helpers.PrintInfo("    %s", d)
		}
	}
}

// DisplayTestPlans prints the test plans of the selected epic
func DisplayTestPlans(ws *Workspace) {
	plans := ws.TestPlans()
	helpers.PrintTitle("Test plans for epic %d", ws.Selection().EpicForTestPlanID)
	if len(plans) == 0 {
		helpers.PrintInfo("No test plans yet")
		return
	}
	for i, plan := range plans {
		helpers.PrintInfo("%d. %s (id %d)", i+1, plan.Title(), plan.ID)
		if plan.ConfluencePageURL != "" {
			helpers.PrintInfo("    Confluence: %s", plan.ConfluencePageURL)
		}
	}
}

// DisplaySearchResults prints search hits colored by similarity band
func DisplaySearchResults(query string, results []models.SearchResult) {
	helpers.PrintTitle("Results for %q", query)
	if len(results) == 0 {
		helpers.PrintInfo("No results at or above %.0f%% similarity", MinSimilarity)
		return
	}
	for i, r := range results {
		band := BandFor(r.SimilarityPercentage)
		helpers.BandColor(string(band)).Printf("%d. %.1f%% match", i+1, r.SimilarityPercentage)
		helpers.PrintInfo(" [%s] %s", r.Source, r.DisplayText())
	}
}

// DisplayReport prints the per-item outcome of a sync batch
func DisplayReport(report BatchReport) {
	for i, res := range report.Results {
		msg := res.Title + ": " + res.State.Label()
		if res.State.Status == models.SyncFailed && res.State.Reason != "" {
			msg += " (" + res.State.Reason + ")"
		}
		helpers.PrintProgress(i+1, report.Total(), msg)
	}
}

func printSyncState(state models.SyncState) {
	switch state.Status {
	case models.SyncSuccess:
		helpers.PrintSuccess("Jira: %s %s", state.Key, state.URL)
	case models.SyncFailed:
		helpers.PrintWarning("Jira: Failed (%s), retry available", state.Reason)
	default:
		helpers.PrintInfo("Jira: %s", state.Label())
	}
}

func testTypeLabel(t models.TestType) string {
	switch t {
	case models.TestFunctional:
		return "Functional"
	case models.TestNonFunctional:
		return "Non-functional"
	case models.TestAPI:
		return "API"
	default:
		return "Unclassified"
	}
}
