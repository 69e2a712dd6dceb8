package release

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/plumbing/object"

	"github.com/Yates-Labs/verbump/internal/changelog"
	clierr "github.com/Yates-Labs/verbump/internal/errors"
	"github.com/Yates-Labs/verbump/internal/github"
	"github.com/Yates-Labs/verbump/internal/ingest/git"
	"github.com/Yates-Labs/verbump/internal/manifest"
)

const packageJSON = `{
  "name": "widget",
  "version": "1.2.3",
  "homepage": "https://github.com/acme/widget#readme"
}
`

var releaseDate = time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)

// fakeVCS records the calls made by the pipeline
type fakeVCS struct {
	tags    []string
	commits []git.CommitRecord
	short   string
	when    time.Time

	logErr    error
	commitErr error

	tagsCalled bool
	boundary   string
	files      []string
	message    string
	tag        string
	steps      *[]string
}

func (f *fakeVCS) Tags(ctx context.Context) ([]string, error) {
	f.tagsCalled = true
	return f.tags, nil
}

func (f *fakeVCS) Log(ctx context.Context, boundary string) ([]git.CommitRecord, error) {
	f.boundary = boundary
	return f.commits, f.logErr
}

func (f *fakeVCS) HeadShortHash(ctx context.Context) (string, error) {
	return f.short, nil
}

func (f *fakeVCS) CommitTime(ctx context.Context, rev string) (time.Time, error) {
	return f.when, nil
}

func (f *fakeVCS) CommitAndTag(ctx context.Context, files []string, message, tag string) error {
	if f.steps != nil {
		*f.steps = append(*f.steps, "commit")
	}
	f.files = files
	f.message = message
	f.tag = tag
	return f.commitErr
}

type fakeBumper struct {
	version string
	err     error
	steps   *[]string
}

func (b *fakeBumper) SetVersion(ctx context.Context, version string) error {
	if b.steps != nil {
		*b.steps = append(*b.steps, "bump")
	}
	b.version = version
	return b.err
}

type fakePublisher struct {
	req *github.ReleaseRequest
}

func (p *fakePublisher) PublishDraft(ctx context.Context, req github.ReleaseRequest) (*github.Release, error) {
	p.req = &req
	return &github.Release{ID: 1, TagName: req.Tag, Draft: true}, nil
}

func commit(subject, short string) git.CommitRecord {
	return git.CommitRecord{
		Subject:   subject,
		ShortHash: short,
		Hash:      short + "0000000000000000000000000000000000",
	}
}

// newProject writes a manifest (and optionally a changelog) into a temp dir
func newProject(t *testing.T, manifestJSON, existingChangelog string) string {
	t.Helper()
	dir := t.TempDir()

	if err := os.WriteFile(filepath.Join(dir, "package.json"), []byte(manifestJSON), 0o644); err != nil {
		t.Fatalf("Failed to write manifest: %v", err)
	}
	if existingChangelog != "" {
		if err := os.WriteFile(filepath.Join(dir, "CHANGELOG.md"), []byte(existingChangelog), 0o644); err != nil {
			t.Fatalf("Failed to write changelog: %v", err)
		}
	}
	return dir
}

func options(dir string) Options {
	return Options{
		Dir:           dir,
		ManifestPath:  "package.json",
		ChangelogPath: "CHANGELOG.md",
		Now:           func() time.Time { return releaseDate },
	}
}

func TestRun_DryRunPrintsWithoutChanges(t *testing.T) {
	dir := newProject(t, packageJSON, "")
	vcs := &fakeVCS{
		tags: []string{"v1.2.3", "v1.2.2"},
		commits: []git.CommitRecord{
			commit("feat(api): add export", "aaaaaaa"),
			commit("fix: handle nil", "bbbbbbb"),
		},
	}
	bumper := &fakeBumper{}
	var stdout bytes.Buffer

	r := &Releaser{VCS: vcs, Bumper: bumper, Stdout: &stdout}
	opts := options(dir)
	opts.DryRun = true

	result, err := r.Run(context.Background(), opts)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if got := result.Decision.Next.String(); got != "1.3.0" {
		t.Errorf("Next = %s, want 1.3.0", got)
	}
	if vcs.boundary != "v1.2.3" {
		t.Errorf("Log boundary = %q, want v1.2.3", vcs.boundary)
	}
	if result.Applied {
		t.Error("Dry run should not be applied")
	}

	out := stdout.String()
	if !strings.HasPrefix(out, changelog.Header) {
		t.Errorf("Expected output to start with the changelog header, got:\n%s", out)
	}
	wantHeading := "## [1.3.0](https://github.com/acme/widget/compare/v1.2.3...v1.3.0) (Tue Mar 05 2024)"
	if !strings.Contains(out, wantHeading) {
		t.Errorf("Expected heading %q in output:\n%s", wantHeading, out)
	}
	if !strings.Contains(out, "* **api** add export [aaaaaaa](https://github.com/acme/widget/commit/aaaaaaa") {
		t.Errorf("Expected feature entry in output:\n%s", out)
	}

	if _, err := os.Stat(filepath.Join(dir, "CHANGELOG.md")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Dry run must not write the changelog, stat err = %v", err)
	}
	if bumper.version != "" {
		t.Errorf("Dry run must not bump the manifest, got %q", bumper.version)
	}
	if vcs.tag != "" {
		t.Errorf("Dry run must not commit or tag, got tag %q", vcs.tag)
	}
}

func TestRun_BumpKind(t *testing.T) {
	tests := []struct {
		name    string
		commits []git.CommitRecord
		want    string
	}{
		{"breaking", []git.CommitRecord{commit("feat!: new api", "aaaaaaa"), commit("fix: typo", "bbbbbbb")}, "2.0.0"},
		{"breaking chore", []git.CommitRecord{commit("chore!: drop node 16", "aaaaaaa")}, "2.0.0"},
		{"feature", []git.CommitRecord{commit("fix: typo", "bbbbbbb"), commit("feat: export", "aaaaaaa")}, "1.3.0"},
		{"fix only", []git.CommitRecord{commit("fix: typo", "bbbbbbb")}, "1.2.4"},
		{"not conventional", []git.CommitRecord{commit("Update README", "ccccccc")}, "1.2.4"},
		{"no commits", nil, "1.2.4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := newProject(t, packageJSON, "")
			r := &Releaser{VCS: &fakeVCS{tags: []string{"v1.2.3"}, commits: tt.commits}, Bumper: &fakeBumper{}}

			opts := options(dir)
			opts.DryRun = true
			result, err := r.Run(context.Background(), opts)
			if err != nil {
				t.Fatalf("Run() error: %v", err)
			}
			if got := result.Decision.Next.String(); got != tt.want {
				t.Errorf("Next = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestRun_Prerelease(t *testing.T) {
	dir := newProject(t, packageJSON, "")
	vcs := &fakeVCS{
		tags:    []string{"v1.2.3"},
		commits: []git.CommitRecord{commit("feat: export", "aaaaaaa")},
		short:   "abc1234",
		when:    time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	r := &Releaser{VCS: vcs, Bumper: &fakeBumper{}}

	label := "feature/login!"
	opts := options(dir)
	opts.DryRun = true
	opts.Prerelease = &label

	result, err := r.Run(context.Background(), opts)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	want := "1.3.0-feature-login--20240102-030405-abc1234.0"
	if got := result.Decision.Next.String(); got != want {
		t.Errorf("Next = %s, want %s", got, want)
	}
	if result.Decision.Kind() != "preminor" {
		t.Errorf("Kind = %s, want preminor", result.Decision.Kind())
	}
}

func TestRun_PrereleaseWithoutLabel(t *testing.T) {
	dir := newProject(t, packageJSON, "")
	r := &Releaser{VCS: &fakeVCS{tags: []string{"v1.2.3"}, commits: []git.CommitRecord{commit("fix: typo", "aaaaaaa")}}, Bumper: &fakeBumper{}}

	empty := ""
	opts := options(dir)
	opts.DryRun = true
	opts.Prerelease = &empty

	result, err := r.Run(context.Background(), opts)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if got := result.Decision.Next.String(); got != "1.2.4-0" {
		t.Errorf("Next = %s, want 1.2.4-0", got)
	}
}

func TestRun_ApplyWritesBumpsCommitsAndTags(t *testing.T) {
	existing := "# Changelog\n\nOld preamble\n\n## [1.2.3](https://github.com/acme/widget/compare/v1.2.2...v1.2.3) (Fri Mar 01 2024)\n\n* old entry\n"
	dir := newProject(t, packageJSON, existing)
	changelogPath := filepath.Join(dir, "CHANGELOG.md")

	var steps []string
	vcs := &fakeVCS{
		tags:    []string{"v1.2.3"},
		commits: []git.CommitRecord{commit("feat: export", "aaaaaaa")},
		steps:   &steps,
	}
	bumper := &fakeBumper{steps: &steps}

	r := &Releaser{VCS: vcs, Bumper: bumper}
	result, err := r.Run(context.Background(), options(dir))
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if !result.Applied {
		t.Error("Expected result to be applied")
	}

	written, err := os.ReadFile(changelogPath)
	if err != nil {
		t.Fatalf("Failed to read changelog: %v", err)
	}
	if string(written) != result.Changelog {
		t.Errorf("Written changelog differs from result")
	}
	if !strings.HasPrefix(string(written), changelog.Header+result.Section+"\n\n## [1.2.3]") {
		t.Errorf("Expected new section above the previous release, got:\n%s", written)
	}
	if strings.Contains(string(written), "Old preamble") {
		t.Error("Expected old preamble to be replaced by the header")
	}

	if !reflect.DeepEqual(steps, []string{"bump", "commit"}) {
		t.Errorf("Steps = %v, want [bump commit]", steps)
	}
	if bumper.version != "1.3.0" {
		t.Errorf("Bumped to %q, want 1.3.0", bumper.version)
	}
	if vcs.message != "chore(release): v1.3.0" || vcs.tag != "v1.3.0" {
		t.Errorf("CommitAndTag(%q, %q), want chore(release): v1.3.0 and v1.3.0", vcs.message, vcs.tag)
	}
	wantFiles := []string{
		filepath.Join(dir, "package.json"),
		filepath.Join(dir, manifest.LockFile),
		changelogPath,
	}
	if !reflect.DeepEqual(vcs.files, wantFiles) {
		t.Errorf("Files = %v, want %v", vcs.files, wantFiles)
	}
}

func TestRun_StopsAtFirstFailure(t *testing.T) {
	dir := newProject(t, packageJSON, "")
	vcs := &fakeVCS{tags: []string{"v1.2.3"}}
	bumper := &fakeBumper{err: errors.New("npm not found")}

	r := &Releaser{VCS: vcs, Bumper: bumper}
	_, err := r.Run(context.Background(), options(dir))
	if err == nil {
		t.Fatal("Expected error when the bump fails")
	}
	if !strings.Contains(err.Error(), "npm not found") {
		t.Errorf("Expected underlying error in %q", err)
	}

	// The changelog was written before the bump and is not rolled back
	if _, err := os.Stat(filepath.Join(dir, "CHANGELOG.md")); err != nil {
		t.Errorf("Expected changelog to remain written: %v", err)
	}
	if vcs.tag != "" {
		t.Error("Expected no commit or tag after a failed bump")
	}
}

func TestRun_CommitFailure(t *testing.T) {
	dir := newProject(t, packageJSON, "")
	vcs := &fakeVCS{tags: []string{"v1.2.3"}, commitErr: errors.New("nothing to commit")}

	r := &Releaser{VCS: vcs, Bumper: &fakeBumper{}}
	if _, err := r.Run(context.Background(), options(dir)); err == nil || clierr.CategoryOf(err) != clierr.Runtime {
		t.Errorf("Expected runtime error, got %v", err)
	}
}

func TestRun_MissingHomepage(t *testing.T) {
	dir := newProject(t, `{"name": "widget", "version": "1.2.3"}`, "")
	vcs := &fakeVCS{tags: []string{"v1.2.3"}}

	r := &Releaser{VCS: vcs, Bumper: &fakeBumper{}}
	_, err := r.Run(context.Background(), options(dir))
	if !errors.Is(err, manifest.ErrMissingHomepage) {
		t.Fatalf("Expected ErrMissingHomepage, got %v", err)
	}
	if clierr.CategoryOf(err) != clierr.Configuration {
		t.Errorf("Category = %s, want Configuration Error", clierr.CategoryOf(err))
	}
	if vcs.tagsCalled {
		t.Error("Expected no git access before the manifest is validated")
	}
}

func TestRun_InvalidVersion(t *testing.T) {
	dir := newProject(t, `{"version": "banana", "homepage": "https://github.com/acme/widget"}`, "")
	r := &Releaser{VCS: &fakeVCS{tags: []string{"v1.2.3"}}, Bumper: &fakeBumper{}}

	_, err := r.Run(context.Background(), options(dir))
	if clierr.CategoryOf(err) != clierr.Parse {
		t.Errorf("Expected parse error, got %v", err)
	}
}

func TestRun_NoBoundaryTag(t *testing.T) {
	dir := newProject(t, packageJSON, "")
	r := &Releaser{VCS: &fakeVCS{tags: []string{"latest", "nightly"}}, Bumper: &fakeBumper{}}

	_, err := r.Run(context.Background(), options(dir))
	if !errors.Is(err, ErrNoBoundaryTag) {
		t.Errorf("Expected ErrNoBoundaryTag, got %v", err)
	}
}

func TestRun_LastTagOverride(t *testing.T) {
	dir := newProject(t, packageJSON, "")
	vcs := &fakeVCS{}
	r := &Releaser{VCS: vcs, Bumper: &fakeBumper{}}

	opts := options(dir)
	opts.DryRun = true
	opts.LastTag = "release-2024"

	result, err := r.Run(context.Background(), opts)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if vcs.tagsCalled {
		t.Error("Expected tags not to be listed when lastTag is given")
	}
	if vcs.boundary != "release-2024" || result.Boundary != "release-2024" {
		t.Errorf("Boundary = %q, want release-2024", vcs.boundary)
	}
	if !strings.Contains(result.Section, "/compare/release-2024...v1.2.4") {
		t.Errorf("Expected compare link from lastTag, got %s", result.Section)
	}
}

func TestRun_LogError(t *testing.T) {
	dir := newProject(t, packageJSON, "")
	logErr := errors.New("bad revision")
	r := &Releaser{VCS: &fakeVCS{tags: []string{"v1.2.3"}, logErr: logErr}, Bumper: &fakeBumper{}}

	_, err := r.Run(context.Background(), options(dir))
	if !errors.Is(err, logErr) {
		t.Errorf("Expected log error to propagate, got %v", err)
	}
}

func TestRun_AlreadyReleased(t *testing.T) {
	existing := changelog.Header +
		"## [1.2.4](https://github.com/acme/widget/compare/v1.2.3...v1.2.4) (Tue Mar 05 2024)\n"
	dir := newProject(t, packageJSON, existing)
	r := &Releaser{VCS: &fakeVCS{tags: []string{"v1.2.3"}}, Bumper: &fakeBumper{}}

	_, err := r.Run(context.Background(), options(dir))
	if !errors.Is(err, ErrAlreadyReleased) {
		t.Errorf("Expected ErrAlreadyReleased, got %v", err)
	}
}

func TestRun_ForeignHeadingIsIgnored(t *testing.T) {
	existing := "<a name=\"1.2.3\"></a>\n# 1.2.3 (2024-03-01)\n"
	dir := newProject(t, packageJSON, existing)
	r := &Releaser{VCS: &fakeVCS{tags: []string{"v1.2.3"}}, Bumper: &fakeBumper{}}

	opts := options(dir)
	opts.DryRun = true
	result, err := r.Run(context.Background(), opts)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if !strings.HasSuffix(result.Changelog, existing) {
		t.Errorf("Expected previous releases to be retained, got:\n%s", result.Changelog)
	}
}

func TestRun_PublishesDraftRelease(t *testing.T) {
	dir := newProject(t, packageJSON, "")
	publisher := &fakePublisher{}
	r := &Releaser{
		VCS:       &fakeVCS{tags: []string{"v1.2.3"}, commits: []git.CommitRecord{commit("feat: export", "aaaaaaa")}},
		Bumper:    &fakeBumper{},
		Publisher: publisher,
	}

	opts := options(dir)
	opts.GitHubRelease = true
	result, err := r.Run(context.Background(), opts)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if publisher.req == nil {
		t.Fatal("Expected a release to be published")
	}
	want := github.ReleaseRequest{Owner: "acme", Repo: "widget", Tag: "v1.3.0", Notes: result.Section}
	if *publisher.req != want {
		t.Errorf("ReleaseRequest = %+v, want %+v", *publisher.req, want)
	}
	if result.Release == nil || !result.Release.Draft {
		t.Errorf("Expected draft release in result, got %+v", result.Release)
	}
}

func TestRun_PublishWithoutPublisher(t *testing.T) {
	dir := newProject(t, packageJSON, "")
	r := &Releaser{VCS: &fakeVCS{tags: []string{"v1.2.3"}}, Bumper: &fakeBumper{}}

	opts := options(dir)
	opts.GitHubRelease = true
	result, err := r.Run(context.Background(), opts)
	if !errors.Is(err, ErrNoPublisher) {
		t.Fatalf("Expected ErrNoPublisher, got %v", err)
	}
	if result == nil || !result.Applied {
		t.Error("Expected the local release to be reported as applied")
	}
}

func TestRun_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := &Releaser{VCS: &fakeVCS{}, Bumper: &fakeBumper{}}
	if _, err := r.Run(ctx, options(t.TempDir())); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

// versionWriter rewrites the manifest version in place
type versionWriter struct {
	path string
}

func (w versionWriter) SetVersion(ctx context.Context, version string) error {
	raw, err := os.ReadFile(w.path)
	if err != nil {
		return err
	}
	updated := strings.Replace(string(raw), `"version": "1.0.0"`, `"version": "`+version+`"`, 1)
	return os.WriteFile(w.path, []byte(updated), 0o644)
}

func TestRun_GoGitRepository(t *testing.T) {
	dir := t.TempDir()
	repo, err := gogit.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("Failed to init repository: %v", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		t.Fatalf("Failed to get worktree: %v", err)
	}
	sig := &object.Signature{Name: "Release Bot", Email: "release@example.com", When: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}

	manifestPath := filepath.Join(dir, "package.json")
	initial := strings.Replace(packageJSON, "1.2.3", "1.0.0", 1)
	if err := os.WriteFile(manifestPath, []byte(initial), 0o644); err != nil {
		t.Fatalf("Failed to write manifest: %v", err)
	}
	if _, err := wt.Add("package.json"); err != nil {
		t.Fatalf("Failed to stage manifest: %v", err)
	}
	base, err := wt.Commit("chore: init", &gogit.CommitOptions{Author: sig, Committer: sig})
	if err != nil {
		t.Fatalf("Failed to commit: %v", err)
	}
	if _, err := repo.CreateTag("v1.0.0", base, nil); err != nil {
		t.Fatalf("Failed to tag: %v", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "cli.txt"), []byte("flag"), 0o644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}
	if _, err := wt.Add("cli.txt"); err != nil {
		t.Fatalf("Failed to stage file: %v", err)
	}
	later := *sig
	later.When = sig.When.Add(time.Hour)
	if _, err := wt.Commit("feat(cli): add flag", &gogit.CommitOptions{Author: &later, Committer: &later}); err != nil {
		t.Fatalf("Failed to commit: %v", err)
	}

	vcs, err := git.OpenRepository(dir)
	if err != nil {
		t.Fatalf("OpenRepository() error: %v", err)
	}
	vcs.Signature = sig

	r := &Releaser{VCS: vcs, Bumper: versionWriter{path: manifestPath}}
	result, err := r.Run(context.Background(), options(dir))
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if result.Decision.Tag() != "v1.1.0" {
		t.Errorf("Tag = %s, want v1.1.0", result.Decision.Tag())
	}
	if !strings.Contains(result.Section, "* **cli** add flag") {
		t.Errorf("Expected cli entry in section:\n%s", result.Section)
	}

	tagRef, err := repo.Tag("v1.1.0")
	if err != nil {
		t.Fatalf("Expected tag v1.1.0: %v", err)
	}
	tagObj, err := repo.TagObject(tagRef.Hash())
	if err != nil {
		t.Fatalf("Expected annotated tag: %v", err)
	}
	released, err := tagObj.Commit()
	if err != nil {
		t.Fatalf("Failed to resolve tagged commit: %v", err)
	}
	if strings.TrimSpace(released.Message) != "chore(release): v1.1.0" {
		t.Errorf("Release commit message = %q", released.Message)
	}

	tree, err := released.Tree()
	if err != nil {
		t.Fatalf("Failed to read tree: %v", err)
	}
	for _, name := range []string{"package.json", "CHANGELOG.md"} {
		if _, err := tree.File(name); err != nil {
			t.Errorf("Expected %s in release commit: %v", name, err)
		}
	}
}
