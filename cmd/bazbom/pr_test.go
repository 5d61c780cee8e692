package main

import "testing"

func TestSplitRepoSlug(t *testing.T) {
	cases := []struct {
		slug      string
		wantOwner string
		wantRepo  string
		wantErr   bool
	}{
		{"bazbom/bazbom", "bazbom", "bazbom", false},
		{"", "", "", true},
		{"nosep", "", "", true},
		{"/missing-owner", "", "", true},
	}
	for _, c := range cases {
		owner, repo, err := splitRepoSlug(c.slug)
		if c.wantErr {
			if err == nil {
				t.Errorf("splitRepoSlug(%q): expected error, got none", c.slug)
			}
			continue
		}
		if err != nil {
			t.Errorf("splitRepoSlug(%q): unexpected error %v", c.slug, err)
		}
		if owner != c.wantOwner || repo != c.wantRepo {
			t.Errorf("splitRepoSlug(%q) = %q, %q; want %q, %q", c.slug, owner, repo, c.wantOwner, c.wantRepo)
		}
	}
}

func TestGithubTokenPrefersGITHUB_TOKEN(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "from-github-token")
	t.Setenv("GH_TOKEN", "from-gh-token")
	if got := githubToken(); got != "from-github-token" {
		t.Errorf("githubToken() = %q, want %q", got, "from-github-token")
	}
}

func TestGithubTokenFallsBackToGH_TOKEN(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "")
	t.Setenv("GH_TOKEN", "from-gh-token")
	if got := githubToken(); got != "from-gh-token" {
		t.Errorf("githubToken() = %q, want %q", got, "from-gh-token")
	}
}
