// Package gitinfo reads version-control metadata for provenance comments and
// source hyperlinks. Every query is best-effort.
package gitinfo

import (
	"bufio"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"

	"localize-from-source/internal/il"

	"github.com/rs/zerolog/log"
)

// Repo is a git working tree.
type Repo struct {
	root string
}

// Open finds the working tree containing dir.
func Open(ctx context.Context, dir string) (*Repo, error) {
	out, err := git(ctx, dir, "rev-parse", "--show-toplevel")
	if err != nil {
		return nil, err
	}
	return &Repo{root: out}, nil
}

// Root returns the top-level directory of the working tree.
func (r *Repo) Root() string {
	return r.root
}

// Head returns the full hash of the checked-out commit.
func (r *Repo) Head(ctx context.Context) (string, error) {
	return git(ctx, r.root, "rev-parse", "HEAD")
}

// RemoteURL returns the fetch URL of origin.
func (r *Repo) RemoteURL(ctx context.Context) (string, error) {
	return git(ctx, r.root, "config", "--get", "remote.origin.url")
}

// ChangedFiles lists files under folder that differ between two commits. The
// paths are rooted at the resolved top-level directory; compare them against
// Canonical paths.
func (r *Repo) ChangedFiles(ctx context.Context, base, target, folder string) ([]string, error) {
	out, err := git(ctx, r.root, "diff", "--name-only", base, target, "--", Canonical(folder))
	if err != nil {
		return nil, err
	}
	var files []string
	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			files = append(files, filepath.Join(r.root, filepath.FromSlash(line)))
		}
	}
	return files, nil
}

// Canonical returns the absolute path with symlinks resolved, as git reports
// its top-level directory. A missing file is resolved through its directory.
func Canonical(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved
	}
	if dir, err := filepath.EvalSymlinks(filepath.Dir(abs)); err == nil {
		return filepath.Join(dir, filepath.Base(abs))
	}
	return abs
}

func git(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("git %s: %w", args[0], err)
	}
	return strings.TrimSpace(string(output)), nil
}

// Metadata is what the table compiler needs from version control.
type Metadata struct {
	Commit string
	Linker *Linker
}

// Link returns the hyperlink for a provenance, or "" when none can be built.
func (m Metadata) Link(p il.Provenance) string {
	if m.Linker == nil {
		return ""
	}
	return m.Linker.Link(p)
}

// Detect gathers metadata for the working tree containing dir. Failures
// degrade to empty metadata.
func Detect(ctx context.Context, dir string) Metadata {
	repo, err := Open(ctx, dir)
	if err != nil {
		log.Warn().Err(err).Str("dir", dir).Msg("Not a git working tree, omitting commit and source links")
		return Metadata{}
	}
	commit, err := repo.Head(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to read HEAD commit")
		return Metadata{}
	}
	md := Metadata{Commit: commit}
	remote, err := repo.RemoteURL(ctx)
	if err != nil {
		log.Debug().Err(err).Msg("No origin remote, omitting source links")
		return md
	}
	if web := WebURL(remote); web != "" {
		md.Linker = NewLinker(web, commit, repo.Root())
	}
	return md
}

// scpRemote matches "git@host:owner/repo.git".
var scpRemote = regexp.MustCompile(`^[\w.\-]+@([\w.\-]+):(.+?)(?:\.git)?/?$`)

// httpRemote matches "https://host/owner/repo.git" and "ssh://git@host/owner/repo".
var httpRemote = regexp.MustCompile(`^(?:https?|ssh|git)://(?:[^@/]+@)?([\w.\-]+)(?::\d+)?/(.+?)(?:\.git)?/?$`)

// WebURL converts a remote URL to the repository's web address, or "".
func WebURL(remote string) string {
	remote = strings.TrimSpace(remote)
	if m := scpRemote.FindStringSubmatch(remote); m != nil {
		return "https://" + m[1] + "/" + m[2]
	}
	if m := httpRemote.FindStringSubmatch(remote); m != nil {
		return "https://" + m[1] + "/" + m[2]
	}
	return ""
}

// Linker builds blob links for source files inside a working tree.
type Linker struct {
	web    string
	commit string
	root   string
}

// NewLinker creates a linker for files under root at commit.
func NewLinker(web, commit, root string) *Linker {
	return &Linker{web: strings.TrimSuffix(web, "/"), commit: commit, root: normalize(root)}
}

// Link returns web/blob/commit/relpath#Lline. Files outside the working tree
// get no link.
func (l *Linker) Link(p il.Provenance) string {
	if !p.Valid() || l.web == "" || l.commit == "" {
		return ""
	}
	file := normalize(p.File)
	root := l.root + "/"
	if len(file) <= len(root) || !strings.EqualFold(file[:len(root)], root) {
		return ""
	}
	return fmt.Sprintf("%s/blob/%s/%s#L%d", l.web, l.commit, file[len(root):], p.Line)
}

// normalize turns Windows separators into slashes and drops a trailing slash.
func normalize(p string) string {
	return strings.TrimSuffix(strings.ReplaceAll(p, `\`, "/"), "/")
}
