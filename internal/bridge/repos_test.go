package bridge

import (
	"path/filepath"
	"testing"

	git "github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
)

func TestParseRemote(t *testing.T) {
	tests := []struct {
		url     string
		want    string
		wantErr bool
	}{
		{"https://github.com/org/repo.git", "org/repo", false},
		{"https://github.com/org/repo", "org/repo", false},
		{"git@github.com:org/repo.git", "org/repo", false},
		{"ssh://git@github.com/org/repo.git", "org/repo", false},
		{"https://ghe.example.com/org/repo.git", "org/repo", false},
		{"https://github.com/org/repo/extra", "org/repo", false},
		{"", "", true},
		{"https://github.com/", "", true},
		{"https://github.com/org", "", true},
		{"not-a-url", "", true},
	}
	for _, tt := range tests {
		got, err := ParseRemote(tt.url)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseRemote(%q) = %q, want error", tt.url, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseRemote(%q) error = %v", tt.url, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseRemote(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}

func TestRemoteRepository(t *testing.T) {
	dir := initRepo(t, "git@github.com:acme/tools.git")

	full, root, err := RemoteRepository(dir)
	if err != nil {
		t.Fatalf("RemoteRepository() error = %v", err)
	}
	if full != "acme/tools" {
		t.Errorf("full = %q, want %q", full, "acme/tools")
	}
	if root == "" {
		t.Error("root is empty")
	}
}

func TestRemoteRepository_NoRemote(t *testing.T) {
	dir := initRepo(t, "")
	_, _, err := RemoteRepository(dir)
	if err == nil {
		t.Fatal("RemoteRepository() expected error without origin")
	}
}

func TestDeriveRepositories_Nested(t *testing.T) {
	// Outer working tree vendoring an inner one, the layout the
	// repository-derivation exists for.
	outer := t.TempDir()
	outerRepo, err := git.PlainInit(outer, false)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := outerRepo.CreateRemote(&gitconfig.RemoteConfig{
		Name: git.DefaultRemoteName,
		URLs: []string{"https://github.com/acme/parent.git"},
	}); err != nil {
		t.Fatal(err)
	}

	inner := filepath.Join(outer, "vendored")
	innerRepo, err := git.PlainInit(inner, false)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := innerRepo.CreateRemote(&gitconfig.RemoteConfig{
		Name: git.DefaultRemoteName,
		URLs: []string{"https://github.com/acme/child.git"},
	}); err != nil {
		t.Fatal(err)
	}

	repos, err := DeriveRepositories(inner)
	if err != nil {
		t.Fatalf("DeriveRepositories() error = %v", err)
	}
	if len(repos) != 2 || repos[0] != "acme/child" || repos[1] != "acme/parent" {
		t.Errorf("DeriveRepositories() = %v, want [acme/child acme/parent]", repos)
	}
}

func TestDeriveRepositories_Standalone(t *testing.T) {
	dir := initRepo(t, "https://github.com/acme/solo.git")

	repos, err := DeriveRepositories(dir)
	if err != nil {
		t.Fatalf("DeriveRepositories() error = %v", err)
	}
	if len(repos) != 1 || repos[0] != "acme/solo" {
		t.Errorf("DeriveRepositories() = %v, want [acme/solo]", repos)
	}
}

func TestDeriveRepositories_Deduplicates(t *testing.T) {
	outer := t.TempDir()
	outerRepo, err := git.PlainInit(outer, false)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := outerRepo.CreateRemote(&gitconfig.RemoteConfig{
		Name: git.DefaultRemoteName,
		URLs: []string{"https://github.com/acme/same.git"},
	}); err != nil {
		t.Fatal(err)
	}

	inner := filepath.Join(outer, "nested")
	innerRepo, err := git.PlainInit(inner, false)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := innerRepo.CreateRemote(&gitconfig.RemoteConfig{
		Name: git.DefaultRemoteName,
		URLs: []string{"git@github.com:acme/same.git"},
	}); err != nil {
		t.Fatal(err)
	}

	repos, err := DeriveRepositories(inner)
	if err != nil {
		t.Fatalf("DeriveRepositories() error = %v", err)
	}
	if len(repos) != 1 || repos[0] != "acme/same" {
		t.Errorf("DeriveRepositories() = %v, want [acme/same]", repos)
	}
}
