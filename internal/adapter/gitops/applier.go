// Package gitops pushes generated fixes back to the hosting platform: clone
// the pull request's source branch, branch off, commit the corrected files,
// push. Implements the orchestrator's Fixer port.
package gitops

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"

	"github.com/bkyoung/review-gateway/internal/domain"
	"github.com/bkyoung/review-gateway/internal/usecase/orchestrate"
	"github.com/bkyoung/review-gateway/pkg/log"
)

const (
	defaultAuthorName  = "review-gateway"
	defaultAuthorEmail = "review-gateway@localhost"
)

// Credential authenticates clone and push for one platform. Username may be
// left empty; the platform's conventional token user is filled in.
type Credential struct {
	Username string
	Token    string
}

// Config assembles an Applier.
type Config struct {
	Credentials map[domain.Platform]Credential
	// WorkDir parents the temporary clones; os.TempDir() when empty.
	WorkDir     string
	AuthorName  string
	AuthorEmail string
	Logger      log.Logger
}

// Applier applies fix requests with go-git. Each request gets its own
// throwaway clone.
type Applier struct {
	credentials map[domain.Platform]Credential
	workDir     string
	authorName  string
	authorEmail string
	logger      log.Logger
}

var _ orchestrate.Fixer = (*Applier)(nil)

// NewApplier builds an Applier with defaults applied.
func NewApplier(cfg Config) *Applier {
	name := cfg.AuthorName
	if name == "" {
		name = defaultAuthorName
	}
	email := cfg.AuthorEmail
	if email == "" {
		email = defaultAuthorEmail
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}
	return &Applier{
		credentials: cfg.Credentials,
		workDir:     cfg.WorkDir,
		authorName:  name,
		authorEmail: email,
		logger:      logger,
	}
}

// Apply clones the source branch, creates the fix branch, writes and commits
// the replacement files, and pushes the branch to origin.
func (a *Applier) Apply(ctx context.Context, fix orchestrate.FixRequest) error {
	if len(fix.Files) == 0 {
		return nil
	}
	if fix.CloneURL == "" {
		return fmt.Errorf("gitops: fix request has no clone URL")
	}
	if fix.BranchName == "" {
		return fmt.Errorf("gitops: fix request has no branch name")
	}

	dir, err := os.MkdirTemp(a.workDir, "revgw-autofix-")
	if err != nil {
		return fmt.Errorf("creating workspace: %w", err)
	}
	defer os.RemoveAll(dir)

	auth := a.auth(fix.Platform)
	cloneOpts := &gogit.CloneOptions{
		URL:          fix.CloneURL,
		SingleBranch: true,
		Auth:         auth,
	}
	if fix.BaseBranch != "" {
		cloneOpts.ReferenceName = plumbing.NewBranchReferenceName(fix.BaseBranch)
	}
	repo, err := gogit.PlainCloneContext(ctx, dir, false, cloneOpts)
	if err != nil {
		return fmt.Errorf("cloning %s: %w", fix.CloneURL, err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("opening worktree: %w", err)
	}
	if err := wt.Checkout(&gogit.CheckoutOptions{
		Branch: plumbing.NewBranchReferenceName(fix.BranchName),
		Create: true,
	}); err != nil {
		return fmt.Errorf("creating branch %s: %w", fix.BranchName, err)
	}

	paths := make([]string, 0, len(fix.Files))
	for path := range fix.Files {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	for _, path := range paths {
		target := filepath.Join(dir, filepath.FromSlash(path))
		if !strings.HasPrefix(target, dir+string(os.PathSeparator)) {
			return fmt.Errorf("gitops: path %q escapes the worktree", path)
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return fmt.Errorf("creating directories for %s: %w", path, err)
		}
		if err := os.WriteFile(target, fix.Files[path], 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
		if _, err := wt.Add(path); err != nil {
			return fmt.Errorf("staging %s: %w", path, err)
		}
	}

	message := fix.Message
	if message == "" {
		message = "Apply automated review fixes"
	}
	if _, err := wt.Commit(message, &gogit.CommitOptions{
		Author: &object.Signature{
			Name:  a.authorName,
			Email: a.authorEmail,
			When:  time.Now(),
		},
	}); err != nil {
		return fmt.Errorf("committing fixes: %w", err)
	}

	refSpec := config.RefSpec(fmt.Sprintf("refs/heads/%s:refs/heads/%s", fix.BranchName, fix.BranchName))
	if err := repo.PushContext(ctx, &gogit.PushOptions{
		RemoteName: "origin",
		RefSpecs:   []config.RefSpec{refSpec},
		Auth:       auth,
	}); err != nil {
		return fmt.Errorf("pushing %s: %w", fix.BranchName, err)
	}

	a.logger.Infof(ctx, "pushed %d fixed file(s) to %s on %s/%s", len(fix.Files), fix.BranchName, fix.Owner, fix.Repo)
	return nil
}

func (a *Applier) auth(platform domain.Platform) transport.AuthMethod {
	cred, ok := a.credentials[platform]
	if !ok || cred.Token == "" {
		return nil
	}
	username := cred.Username
	if username == "" {
		username = tokenUsername(platform)
	}
	return &githttp.BasicAuth{Username: username, Password: cred.Token}
}

// tokenUsername is the basic-auth user each platform expects alongside a
// token password.
func tokenUsername(platform domain.Platform) string {
	switch platform {
	case domain.PlatformGitHub:
		return "x-access-token"
	case domain.PlatformGitLab:
		return "oauth2"
	case domain.PlatformBitbucket:
		return "x-token-auth"
	default:
		return "token"
	}
}
