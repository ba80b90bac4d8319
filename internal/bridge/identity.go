package bridge

import (
	"fmt"

	git "github.com/go-git/go-git/v5"
)

// BotIdentity returns the committer name and email GitHub attributes to
// the App's bot user, e.g. myapp[bot] and
// 12345+myapp[bot]@users.noreply.github.com.
func BotIdentity(slug string, appID int64, host string) (name, email string) {
	name = slug + "[bot]"
	email = fmt.Sprintf("%d+%s@users.noreply.%s", appID, name, host)
	return name, email
}

// ConfigureRepo sets user.name and user.email in the repository-local
// config of the working tree at dir. The mutation is scoped to that one
// repository: concurrent invocations against different working trees do
// not race, and nothing global is touched.
func ConfigureRepo(dir, name, email string) error {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return fmt.Errorf("opening repository at %s: %w", dir, err)
	}

	cfg, err := repo.Config()
	if err != nil {
		return fmt.Errorf("reading repository config: %w", err)
	}

	cfg.User.Name = name
	cfg.User.Email = email

	if err := repo.SetConfig(cfg); err != nil {
		return fmt.Errorf("writing repository config: %w", err)
	}
	return nil
}
