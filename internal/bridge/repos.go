package bridge

import (
	"fmt"
	"path/filepath"
	"strings"

	git "github.com/go-git/go-git/v5"
)

// ParseRemote extracts the owner/name full name from a git remote URL.
// Handles https, ssh:// and scp-style forms:
//
//	https://github.com/org/repo.git
//	git@github.com:org/repo.git
//	ssh://git@github.com/org/repo.git
func ParseRemote(remoteURL string) (string, error) {
	u := strings.TrimSpace(remoteURL)
	if u == "" {
		return "", fmt.Errorf("empty remote URL")
	}

	var path string
	switch {
	case strings.Contains(u, "://"):
		_, rest, _ := strings.Cut(u, "://")
		// drop user@host
		if _, p, ok := strings.Cut(rest, "/"); ok {
			path = p
		}
	case strings.Contains(u, "@") && strings.Contains(u, ":"):
		// scp-style: git@host:org/repo.git
		_, path, _ = strings.Cut(u, ":")
	default:
		return "", fmt.Errorf("unrecognized remote URL %q", remoteURL)
	}

	path = strings.TrimSuffix(strings.Trim(path, "/"), ".git")
	parts := strings.Split(path, "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", fmt.Errorf("remote URL %q has no owner/name path", remoteURL)
	}
	return parts[0] + "/" + parts[1], nil
}

// RemoteRepository returns the owner/name of remote.origin.url for the
// working tree at dir, plus the root of that working tree.
func RemoteRepository(dir string) (full, root string, err error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return "", "", fmt.Errorf("opening repository at %s: %w", dir, err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return "", "", fmt.Errorf("resolving working tree: %w", err)
	}
	root = wt.Filesystem.Root()

	remote, err := repo.Remote(git.DefaultRemoteName)
	if err != nil {
		return "", "", fmt.Errorf("reading origin remote: %w", err)
	}
	urls := remote.Config().URLs
	if len(urls) == 0 {
		return "", "", fmt.Errorf("origin remote has no URL")
	}
	full, err = ParseRemote(urls[0])
	return full, root, err
}

// DeriveRepositories derives the repository scope for a token request
// from git remotes: the repository containing dir, plus the repository
// that vendors it (the working tree containing dir's repository root),
// when there is one. Deduplicated, in discovery order.
func DeriveRepositories(dir string) ([]string, error) {
	var repos []string
	seen := make(map[string]bool)

	add := func(full string) {
		if full != "" && !seen[full] {
			seen[full] = true
			repos = append(repos, full)
		}
	}

	own, root, err := RemoteRepository(dir)
	if err != nil {
		return nil, err
	}
	add(own)

	// Parent working tree, when present. Best effort: a standalone
	// checkout simply has no parent repository.
	if parent, _, err := RemoteRepository(filepath.Dir(root)); err == nil {
		add(parent)
	}

	return repos, nil
}
