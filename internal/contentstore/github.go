package contentstore

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/go-github/v66/github"

	"github.com/brilliantaksan/brilliantaksan-web/internal/xerrors"
)

const commitMessage = "Update homepage content from admin studio"

// GitHubConfig locates the document in a repository.
type GitHubConfig struct {
	Token  string
	Repo   string // owner/name
	Branch string
	Path   string
	// APIURL overrides https://api.github.com/ (enterprise installs, tests).
	APIURL string
}

type contentsAPI interface {
	GetContents(ctx context.Context, owner, repo, path string, opts *github.RepositoryContentGetOptions) (*github.RepositoryContent, []*github.RepositoryContent, *github.Response, error)
	UpdateFile(ctx context.Context, owner, repo, path string, opts *github.RepositoryContentFileOptions) (*github.RepositoryContentResponse, *github.Response, error)
}

// gitFile is the GitHub contents API medium.
type gitFile struct {
	api          contentsAPI
	owner, name  string
	branch, path string
}

func newGitFile(cfg GitHubConfig, hc *http.Client) (*gitFile, error) {
	owner, name, ok := ParseRepo(cfg.Repo)
	if !ok {
		return nil, xerrors.Newf("invalid github repo %q, expected owner/name", cfg.Repo)
	}
	c := github.NewClient(hc).WithAuthToken(cfg.Token)
	if cfg.APIURL != "" {
		u, err := url.Parse(strings.TrimSuffix(cfg.APIURL, "/") + "/")
		if err != nil {
			return nil, xerrors.Wrapf(err, "parse github api url %q", cfg.APIURL)
		}
		c.BaseURL = u
	}
	return &gitFile{
		api:    c.Repositories,
		owner:  owner,
		name:   name,
		branch: cfg.Branch,
		path:   cfg.Path,
	}, nil
}

// Read returns the decoded document and its blob sha.
func (g *gitFile) Read(ctx context.Context) ([]byte, string, error) {
	fc, _, _, err := g.api.GetContents(ctx, g.owner, g.name, g.path, &github.RepositoryContentGetOptions{Ref: g.branch})
	if err != nil {
		return nil, "", xerrors.Wrapf(err, "github content fetch %s/%s:%s@%s", g.owner, g.name, g.path, g.branch)
	}
	if fc == nil {
		return nil, "", xerrors.Newf("github content fetch: %s is a directory", g.path)
	}
	body, err := fc.GetContent()
	if err != nil {
		return nil, "", xerrors.Wrap(err, "decode github content")
	}
	return []byte(body), fc.GetSHA(), nil
}

// Write replaces the document if its blob sha still equals rev.
func (g *gitFile) Write(ctx context.Context, data []byte, rev string) (string, error) {
	out, _, err := g.api.UpdateFile(ctx, g.owner, g.name, g.path, &github.RepositoryContentFileOptions{
		Message: github.String(commitMessage),
		Content: data,
		SHA:     github.String(rev),
		Branch:  github.String(g.branch),
	})
	if err != nil {
		var ger *github.ErrorResponse
		if errors.As(err, &ger) && ger.Response != nil && ger.Response.StatusCode == http.StatusConflict {
			return "", xerrors.Wrapf(ErrConflict, "github content update: %s", ger.Message)
		}
		return "", xerrors.Wrap(err, "github content update")
	}
	if out != nil && out.Content != nil {
		return out.Content.GetSHA(), nil
	}
	return "", nil
}
