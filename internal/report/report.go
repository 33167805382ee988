// Package report renders the pull-request context files the Copilot CLI
// reads before reviewing: a detail report (metadata, reviewers, existing
// threads) and a changes report (latest iteration, commits, changed files).
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/paulczy/ado-copilot-code-review/internal/azdo"
)

const (
	// DetailsFileName is the PR detail report the review prompt points at.
	DetailsFileName = "copilot-pr-details.md"
	// ChangesFileName is the changed-files report the review prompt points at.
	ChangesFileName = "copilot-pr-changes.md"

	// threadCommentMaxLines caps how many lines of a single comment the
	// detail report shows before truncating.
	threadCommentMaxLines = 10
)

// WriteFiles renders both reports into dir and returns their paths.
func WriteFiles(dir string, snap *azdo.Snapshot) (detailsPath, changesPath string, err error) {
	detailsPath = filepath.Join(dir, DetailsFileName)
	if err := os.WriteFile(detailsPath, []byte(Details(snap)), 0o644); err != nil {
		return "", "", fmt.Errorf("write %s: %w", DetailsFileName, err)
	}
	changesPath = filepath.Join(dir, ChangesFileName)
	if err := os.WriteFile(changesPath, []byte(Changes(snap)), 0o644); err != nil {
		return "", "", fmt.Errorf("write %s: %w", ChangesFileName, err)
	}
	return detailsPath, changesPath, nil
}

// Details renders the PR detail report.
func Details(snap *azdo.Snapshot) string {
	pr := snap.PR
	var b strings.Builder

	fmt.Fprintf(&b, "# Pull Request %d: %s\n\n", pr.PullRequestID, pr.Title)

	status := pr.Status
	if pr.IsDraft {
		status += " (draft)"
	}
	fmt.Fprintf(&b, "- Author: %s (%s)\n", pr.CreatedBy.DisplayName, pr.CreatedBy.UniqueName)
	fmt.Fprintf(&b, "- Created: %s\n", pr.CreationDate)
	fmt.Fprintf(&b, "- Status: %s\n", status)
	fmt.Fprintf(&b, "- Source branch: %s\n", azdo.ShortBranch(pr.SourceRefName))
	fmt.Fprintf(&b, "- Target branch: %s\n", azdo.ShortBranch(pr.TargetRefName))
	if pr.MergeStatus != "" {
		fmt.Fprintf(&b, "- Merge status: %s\n", pr.MergeStatus)
	}

	if desc := strings.TrimSpace(pr.Description); desc != "" {
		b.WriteString("\n## Description\n\n")
		b.WriteString(desc)
		b.WriteString("\n")
	}

	b.WriteString("\n## Reviewers\n\n")
	if len(pr.Reviewers) == 0 {
		b.WriteString("No reviewers assigned.\n")
	}
	for _, r := range pr.Reviewers {
		suffix := ""
		if r.IsRequired {
			suffix = " (required)"
		}
		fmt.Fprintf(&b, "- %s: %s%s\n", r.DisplayName, azdo.VoteLabel(r.Vote), suffix)
	}

	writeThreads(&b, snap.Threads)

	return b.String()
}

func writeThreads(b *strings.Builder, threads []azdo.Thread) {
	visible := make([]azdo.Thread, 0, len(threads))
	for _, t := range threads {
		if t.IsDeleted {
			continue
		}
		visible = append(visible, t)
	}

	b.WriteString("\n## Existing comment threads\n\n")
	if len(visible) == 0 {
		b.WriteString("No comment threads yet.\n")
		return
	}

	for _, t := range visible {
		anchor := ""
		if t.ThreadContext != nil && t.ThreadContext.FilePath != "" {
			anchor = " on " + t.ThreadContext.FilePath
			if t.ThreadContext.RightFileStart != nil {
				anchor += fmt.Sprintf(":%d", t.ThreadContext.RightFileStart.Line)
			}
		}
		fmt.Fprintf(b, "### Thread %d [%s]%s\n\n", t.ID, t.Status, anchor)

		for _, c := range t.Comments {
			if c.CommentType == "system" {
				continue
			}
			fmt.Fprintf(b, "- %s (%s):\n", c.Author.DisplayName, c.PublishedDate)
			for _, line := range strings.Split(truncateLines(c.Content, threadCommentMaxLines), "\n") {
				fmt.Fprintf(b, "  %s\n", line)
			}
		}
		b.WriteString("\n")
	}
}

// truncateLines keeps the first max lines of text and notes how many were
// dropped.
func truncateLines(text string, max int) string {
	lines := strings.Split(text, "\n")
	if len(lines) <= max {
		return text
	}
	return strings.Join(lines[:max], "\n") + fmt.Sprintf("\n... %d more lines", len(lines)-max)
}

// Changes renders the changed-files report for the latest iteration.
func Changes(snap *azdo.Snapshot) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Changed files (iteration %d)\n\n", snap.Iteration.ID)
	if snap.Iteration.Description != "" {
		fmt.Fprintf(&b, "%s\n\n", snap.Iteration.Description)
	}

	files := 0
	for _, entry := range snap.Changes {
		if entry.Item.IsFolder {
			continue
		}
		fmt.Fprintf(&b, "- %s %s\n", entry.ChangeType, entry.Item.Path)
		files++
	}
	if files == 0 {
		b.WriteString("No file changes in this iteration.\n")
	}

	b.WriteString("\n## Commits\n\n")
	if len(snap.Commits) == 0 {
		b.WriteString("No commits listed.\n")
	}
	for _, c := range snap.Commits {
		fmt.Fprintf(&b, "- %s %s (%s)\n", shortSHA(c.CommitID), firstLine(c.Comment), c.Author.Name)
	}

	return b.String()
}

func shortSHA(sha string) string {
	if len(sha) > 8 {
		return sha[:8]
	}
	return sha
}

func firstLine(text string) string {
	line, _, _ := strings.Cut(text, "\n")
	return strings.TrimSpace(line)
}
