package detect

import (
	"errors"

	"github.com/go-git/go-git/v5"
)

// GitRemote reports the origin URL of the repository containing root,
// searching parent directories for the .git directory.
func GitRemote(root string) (*Partial, error) {
	url, err := RemoteURL(root)
	if err != nil || url == "" {
		return nil, err
	}
	return &Partial{Repo: url}, nil
}

// RemoteURL returns the first URL of the origin remote, or "" when root is
// not inside a repository or has no origin.
func RemoteURL(root string) (string, error) {
	repo, err := git.PlainOpenWithOptions(root, &git.PlainOpenOptions{DetectDotGit: true})
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return "", nil
	}
	if err != nil {
		return "", err
	}

	remote, err := repo.Remote("origin")
	if errors.Is(err, git.ErrRemoteNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	urls := remote.Config().URLs
	if len(urls) == 0 {
		return "", nil
	}
	return urls[0], nil
}
