package browse_test

import (
	"path/filepath"
	"sync/atomic"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"

	"github.com/nicholas-fedor/minigit/pkg/browse"
	"github.com/nicholas-fedor/minigit/pkg/git"
	"github.com/nicholas-fedor/minigit/pkg/git/gittest"
	"github.com/nicholas-fedor/minigit/pkg/repository"
	"github.com/nicholas-fedor/minigit/pkg/types"
)

type countingOpener struct {
	browse.Opener

	opens atomic.Int32
}

func (c *countingOpener) Open(name string) (types.RepositoryHandle, error) {
	c.opens.Add(1)

	return c.Opener.Open(name)
}

var _ = ginkgo.Describe("Service", func() {
	var (
		manager *repository.Manager
		service *browse.Service
		builder *gittest.Builder
	)

	ginkgo.BeforeEach(func() {
		root := ginkgo.GinkgoT().TempDir()
		manager = repository.NewManager(root, "main", git.NewStore())
		service = browse.NewService(manager, nil)

		_, err := manager.Create("demo")
		gomega.Expect(err).NotTo(gomega.HaveOccurred())

		builder = gittest.Open(ginkgo.GinkgoT(), filepath.Join(root, "demo.git"))
	})

	ginkgo.Describe("a freshly created repository", func() {
		ginkgo.It("is empty", func() {
			empty, err := service.IsEmpty("demo")
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(empty).To(gomega.BeTrue())
		})

		ginkgo.It("reports repository-empty rather than branch-not-found", func() {
			_, err := service.FileList("demo", "", "")
			gomega.Expect(err).To(gomega.MatchError(types.ErrRepositoryEmpty))
			gomega.Expect(err).NotTo(gomega.MatchError(types.ErrBranchNotFound))
		})

		ginkgo.It("has no branches", func() {
			branches, err := service.Branches("demo")
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(branches).To(gomega.BeEmpty())
		})

		ginkgo.It("summarizes as empty", func() {
			summary, err := service.Summarize("demo")
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(summary.Empty).To(gomega.BeTrue())
			gomega.Expect(summary.HeadCommit).To(gomega.BeNil())
		})
	})

	ginkgo.Describe("after a commit on main", func() {
		var (
			head   string
			headID plumbing.Hash
		)

		ginkgo.BeforeEach(func() {
			id := builder.CommitFiles(map[string]string{
				"README.md":        "# demo\n",
				"docs/guide.md":    "guide\n",
				"Src/app.go":       "package app\n",
				"b.txt":            "b",
				"A.txt":            "a",
				"nested/deep/x.go": "package deep\n",
			}, "initial commit")
			builder.SetBranch("main", id)
			headID = id
			head = id.String()
		})

		ginkgo.It("is no longer empty", func() {
			empty, err := service.IsEmpty("demo")
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(empty).To(gomega.BeFalse())
		})

		ginkgo.It("marks main as the only default branch", func() {
			branches, err := service.Branches("demo")
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(branches).To(gomega.HaveLen(1))
			gomega.Expect(branches[0].ShortName).To(gomega.Equal("main"))
			gomega.Expect(branches[0].IsDefault).To(gomega.BeTrue())
			gomega.Expect(branches[0].LastCommitID).To(gomega.Equal(head))
			gomega.Expect(branches[0].LastCommitShortID).To(gomega.Equal(head[:8]))
			gomega.Expect(branches[0].LastCommitMessage).To(gomega.Equal("initial commit"))
		})

		ginkgo.It("lists directories first, then files, case-insensitively", func() {
			entries, err := service.FileList("demo", "main", "")
			gomega.Expect(err).NotTo(gomega.HaveOccurred())

			names := make([]string, 0, len(entries))
			for _, e := range entries {
				names = append(names, e.Name)
			}

			gomega.Expect(names).To(gomega.Equal([]string{"docs", "nested", "Src", "A.txt", "b.txt", "README.md"}))
			gomega.Expect(entries[0].DisplaySize).To(gomega.Equal("-"))
			gomega.Expect(entries[5].Kind).To(gomega.Equal(types.KindFile))
			gomega.Expect(entries[5].Size).To(gomega.Equal(int64(7)))
			gomega.Expect(entries[5].DisplaySize).To(gomega.Equal("7 B"))
		})

		ginkgo.It("lists a subdirectory with full paths", func() {
			entries, err := service.FileList("demo", "", "/nested/")
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(entries).To(gomega.HaveLen(1))
			gomega.Expect(entries[0].Path).To(gomega.Equal("nested/deep"))
			gomega.Expect(entries[0].IsDirectory()).To(gomega.BeTrue())
		})

		ginkgo.It("refuses to list a file or a missing directory", func() {
			_, err := service.FileList("demo", "main", "README.md")
			gomega.Expect(err).To(gomega.MatchError(types.ErrPathNotFound))

			_, err = service.FileList("demo", "main", "missing")
			gomega.Expect(err).To(gomega.MatchError(types.ErrPathNotFound))
		})

		ginkgo.It("returns the committed bytes", func() {
			data, err := service.FileContent("demo", "main", "README.md")
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(string(data)).To(gomega.Equal("# demo\n"))
		})

		ginkgo.It("rejects reading a directory", func() {
			_, err := service.FileContent("demo", "main", "docs")
			gomega.Expect(err).To(gomega.MatchError(types.ErrNotAFile))
			gomega.Expect(types.IsValidation(err)).To(gomega.BeTrue())
		})

		ginkgo.It("returns a file's metadata and bytes from one open", func() {
			opener := &countingOpener{Opener: manager}
			counted := browse.NewService(opener, nil)

			entry, data, err := counted.File("demo", "main", "docs/guide.md")
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(entry.Name).To(gomega.Equal("guide.md"))
			gomega.Expect(entry.Path).To(gomega.Equal("docs/guide.md"))
			gomega.Expect(entry.Size).To(gomega.Equal(int64(len(data))))
			gomega.Expect(string(data)).To(gomega.Equal("guide\n"))
			gomega.Expect(opener.opens.Load()).To(gomega.Equal(int32(1)))
		})

		ginkgo.It("rejects a directory or missing path when reading a file", func() {
			_, data, err := service.File("demo", "main", "docs")
			gomega.Expect(err).To(gomega.MatchError(types.ErrNotAFile))
			gomega.Expect(data).To(gomega.BeNil())

			_, _, err = service.File("demo", "main", "missing.txt")
			gomega.Expect(err).To(gomega.MatchError(types.ErrPathNotFound))

			_, _, err = service.File("demo", "nope", "README.md")
			gomega.Expect(err).To(gomega.MatchError(types.ErrBranchNotFound))
		})

		ginkgo.It("rejects empty, root and traversal paths for file info", func() {
			for _, p := range []string{"", "/", "../README.md", "docs/./guide.md"} {
				_, err := service.FileInfo("demo", "main", p)
				gomega.Expect(err).To(gomega.MatchError(types.ErrInvalidPath), p)
			}
		})

		ginkgo.It("describes a nested file", func() {
			info, err := service.FileInfo("demo", "main", "docs/guide.md")
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(info.Name).To(gomega.Equal("guide.md"))
			gomega.Expect(info.Path).To(gomega.Equal("docs/guide.md"))
			gomega.Expect(info.Size).To(gomega.Equal(int64(6)))
		})

		ginkgo.It("reports an unknown branch as branch-not-found", func() {
			_, err := service.FileList("demo", "nope", "")
			gomega.Expect(err).To(gomega.MatchError(types.ErrBranchNotFound))
		})

		ginkgo.It("creates a branch at the source branch", func() {
			gomega.Expect(service.CreateBranch("demo", "main", "feature-x")).To(gomega.Succeed())

			branches, err := service.Branches("demo")
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(branches).To(gomega.HaveLen(2))
			gomega.Expect(branches[0].ShortName).To(gomega.Equal("feature-x"))
			gomega.Expect(branches[0].IsDefault).To(gomega.BeFalse())
			gomega.Expect(branches[0].LastCommitID).To(gomega.Equal(branches[1].LastCommitID))
		})

		ginkgo.It("refuses to create a branch named HEAD", func() {
			err := service.CreateBranch("demo", "main", "HEAD")
			gomega.Expect(err).To(gomega.MatchError(types.ErrInvalidBranchName))
			gomega.Expect(types.IsValidation(err)).To(gomega.BeTrue())

			branches, err := service.Branches("demo")
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(branches).To(gomega.HaveLen(1))
		})

		ginkgo.It("creates a branch from the default branch when no source is given", func() {
			gomega.Expect(service.CreateBranch("demo", "", "topic")).To(gomega.Succeed())
			gomega.Expect(service.CreateBranch("demo", "", "topic")).To(gomega.MatchError(types.ErrBranchExists))
			gomega.Expect(service.CreateBranch("demo", "missing", "other")).To(gomega.MatchError(types.ErrBranchNotFound))
		})

		ginkgo.It("returns the commit log newest first", func() {
			second := builder.CommitFiles(map[string]string{"README.md": "v2"}, "second", headID)
			builder.SetBranch("main", second)

			commits, err := service.CommitLog("demo", "main", 10)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(commits).To(gomega.HaveLen(2))
			gomega.Expect(commits[0].ID).To(gomega.Equal(second))
			gomega.Expect(commits[1].Hash).To(gomega.Equal(head))

			commits, err = service.CommitLog("demo", "", 1)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(commits).To(gomega.HaveLen(1))
		})

		ginkgo.It("orders a merge history by commit time across both parents", func() {
			left := builder.CommitFiles(map[string]string{"left.txt": "l"}, "left", headID)
			right := builder.CommitFiles(map[string]string{"right.txt": "r"}, "right", headID)
			merge := builder.CommitFiles(map[string]string{"left.txt": "l", "right.txt": "r"}, "merge", left, right)
			builder.SetBranch("main", merge)

			commits, err := service.CommitLog("demo", "main", 3)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())

			ids := make([]plumbing.Hash, 0, len(commits))
			for _, c := range commits {
				ids = append(ids, c.ID)
			}

			gomega.Expect(ids).To(gomega.Equal([]plumbing.Hash{merge, right, left}))

			commits, err = service.CommitLog("demo", "main", 0)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(commits).To(gomega.HaveLen(4))
			gomega.Expect(commits[3].ID).To(gomega.Equal(headID))
		})

		ginkgo.It("summarizes the default branch", func() {
			summary, err := service.Summarize("demo")
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(summary.Empty).To(gomega.BeFalse())
			gomega.Expect(summary.DefaultBranch).To(gomega.Equal("main"))
			gomega.Expect(summary.BranchCount).To(gomega.Equal(1))
			gomega.Expect(summary.HeadCommit.Hash).To(gomega.Equal(head))
		})
	})

	ginkgo.It("reports a missing repository as not found", func() {
		_, err := service.Branches("ghost")
		gomega.Expect(err).To(gomega.MatchError(types.ErrRepositoryNotFound))
	})

	ginkgo.It("reports an invalid repository name as a validation error", func() {
		_, err := service.Branches("../demo")
		gomega.Expect(err).To(gomega.MatchError(types.ErrInvalidName))
	})
})
