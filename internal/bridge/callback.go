// Package bridge hands the installation token to git without persisting
// it: a repository-scoped committer identity plus an ephemeral askpass
// callback that answers git's credential prompts.
package bridge

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// TokenUsername is the fixed username git sends alongside an installation
// token over HTTPS.
const TokenUsername = "x-access-token"

// Callback is the credential callback as data: a prompt→response mapping
// independent of how it is rendered to disk. It answers exactly two
// prompt shapes and nothing else, so the secret cannot leak to unrelated
// queries.
type Callback struct {
	Username string
	Secret   string
}

// NewCallback builds the standard installation-token callback.
func NewCallback(token string) Callback {
	return Callback{Username: TokenUsername, Secret: token}
}

// Respond answers one credential prompt. Prompts mentioning "Username"
// get the fixed username; prompts mentioning "Password" get the secret;
// anything else is an error and never the secret.
func (c Callback) Respond(prompt string) (string, error) {
	switch {
	case strings.Contains(prompt, "Username"):
		return c.Username, nil
	case strings.Contains(prompt, "Password"):
		return c.Secret, nil
	}
	return "", fmt.Errorf("unrecognized credential prompt")
}

// Script renders the mapping as a POSIX sh askpass helper implementing
// the same three-way match as Respond.
func (c Callback) Script() []byte {
	var b strings.Builder
	b.WriteString("#!/bin/sh\n")
	b.WriteString("# Ephemeral askpass helper. Holds a time-boxed installation token;\n")
	b.WriteString("# safe to delete at any time.\n")
	b.WriteString("case \"$1\" in\n")
	fmt.Fprintf(&b, "*Username*) printf '%%s\\n' %s ;;\n", shellQuote(c.Username))
	fmt.Fprintf(&b, "*Password*) printf '%%s\\n' %s ;;\n", shellQuote(c.Secret))
	b.WriteString("*) exit 1 ;;\n")
	b.WriteString("esac\n")
	return []byte(b.String())
}

// Install writes the rendered script, owner-executable only, into dir
// (or a fresh temp directory when dir is empty) and returns its path.
// The file is the one sanctioned ephemeral copy of the token; callers
// remove it when done, and an abandoned copy dies with the token's
// expiry anyway.
func (c Callback) Install(dir string) (string, error) {
	if dir == "" {
		tmp, err := os.MkdirTemp("", "ghauth-askpass-*")
		if err != nil {
			return "", fmt.Errorf("creating askpass dir: %w", err)
		}
		if err := os.Chmod(tmp, 0700); err != nil {
			os.RemoveAll(tmp)
			return "", fmt.Errorf("restricting askpass dir: %w", err)
		}
		dir = tmp
	}

	path := filepath.Join(dir, "askpass.sh")
	if err := os.WriteFile(path, c.Script(), 0700); err != nil {
		return "", fmt.Errorf("writing askpass helper: %w", err)
	}
	return path, nil
}

// shellQuote single-quotes s for /bin/sh.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
