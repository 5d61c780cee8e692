package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	gittransport "github.com/go-git/go-git/v5/plumbing/transport/http"
	gogithub "github.com/google/go-github/v62/github"
	"github.com/spf13/cobra"
	"golang.org/x/oauth2"

	"github.com/bazbom/bazbom"
)

var (
	prBase string
	prFrom string
)

var prCmd = &cobra.Command{
	Use:   "pr [root]",
	Short: "Open a pull request with a prior apply run's changes",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runPR,
}

func init() {
	prCmd.Flags().StringVar(&prBase, "base", "", "base branch for the pull request (default: repository default branch)")
	prCmd.Flags().StringVar(&prFrom, "repo", "", "owner/repo on GitHub (default: $GITHUB_REPOSITORY)")
	rootCmd.AddCommand(prCmd)
}

// runPR commits the working tree left by a prior apply run onto a new
// timestamped branch, pushes it, and opens a pull request, per spec
// §9's "PR generation... creates a timestamped [branch]" design note.
// It never runs apply itself: apply and pr are separate, composable
// steps, so a user can review the diff before deciding to open a PR.
func runPR(cmd *cobra.Command, args []string) error {
	root := "."
	if len(args) == 1 {
		root = args[0]
	}

	token := githubToken()
	if token == "" {
		return &configError{message: "pr requires GITHUB_TOKEN or GH_TOKEN"}
	}
	repoSlug := prFrom
	if repoSlug == "" {
		repoSlug = os.Getenv("GITHUB_REPOSITORY")
	}
	owner, repo, err := splitRepoSlug(repoSlug)
	if err != nil {
		return &configError{message: err.Error()}
	}

	r, err := git.PlainOpen(root)
	if err != nil {
		return &bazbom.Error{Kind: bazbom.ErrPrecondition, Op: "pr", Message: "apply target is not a git working tree", Inner: err}
	}

	branch := fmt.Sprintf("bazbom/remediation-%d", prTimestamp())
	if err := commitAndPushBranch(r, token, branch); err != nil {
		return fmt.Errorf("pushing %s: %w", branch, err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	client := gogithub.NewClient(oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})))

	base := prBase
	if base == "" {
		repoInfo, _, err := client.Repositories.Get(ctx, owner, repo)
		if err != nil {
			return fmt.Errorf("looking up default branch for %s/%s: %w", owner, repo, err)
		}
		base = repoInfo.GetDefaultBranch()
	}

	title := "bazbom: apply dependency remediations"
	body := "Automated remediation generated by bazbom. Review the diff before merging."
	newPR, _, err := client.PullRequests.Create(ctx, owner, repo, &gogithub.NewPullRequest{
		Title: &title,
		Head:  &branch,
		Base:  &base,
		Body:  &body,
	})
	if err != nil {
		return fmt.Errorf("creating pull request: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "opened %s\n", newPR.GetHTMLURL())
	return nil
}

// prTimestamp is a var so tests can pin the branch name; time.Now is
// otherwise the only source of the timestamp suffix.
var prTimestamp = func() int64 { return time.Now().Unix() }

func githubToken() string {
	if t := os.Getenv("GITHUB_TOKEN"); t != "" {
		return t
	}
	return os.Getenv("GH_TOKEN")
}

func splitRepoSlug(slug string) (owner, repo string, err error) {
	parts := strings.SplitN(slug, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("expected owner/repo, got %q", slug)
	}
	return parts[0], parts[1], nil
}

// commitAndPushBranch commits every pending change in the working tree
// onto a new branch and pushes it using the GitHub token as a basic-auth
// password, per GitHub's token-over-HTTPS convention.
func commitAndPushBranch(r *git.Repository, token, branch string) error {
	w, err := r.Worktree()
	if err != nil {
		return err
	}
	if err := w.Checkout(&git.CheckoutOptions{Branch: plumbing.NewBranchReferenceName(branch), Create: true}); err != nil {
		return err
	}
	if err := w.AddGlob("."); err != nil {
		return err
	}
	_, err = w.Commit("bazbom: apply dependency remediations", &git.CommitOptions{
		Author: &object.Signature{Name: "bazbom", Email: "bazbom@invalid", When: time.Now()},
	})
	if err != nil {
		return err
	}

	auth := &gittransport.BasicAuth{Username: "x-access-token", Password: token}
	refSpec := config.RefSpec(fmt.Sprintf("refs/heads/%s:refs/heads/%s", branch, branch))
	return r.Push(&git.PushOptions{
		RemoteName: "origin",
		RefSpecs:   []config.RefSpec{refSpec},
		Auth:       auth,
	})
}
