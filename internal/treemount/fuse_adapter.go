package treemount

import (
	"os"

	billy "github.com/go-git/go-billy/v5"
	"github.com/winfsp/cgofuse/fuse"
)

// billyFuseFS bridges a read-only billy.Filesystem (TreeFS, in
// practice) into cgofuse's FileSystemInterface, so the same tree view
// served over NFS can also be loopback-mounted with FUSE. Grounded on
// the teacher's FUSE backend in cmd/mount.go (FileSystemHost usage,
// read-only mount options) for the wiring, and on nfsmount/graphfs.go
// for the billy-level read-only semantics this adapter forwards to.
// Open handles are identified by path rather than a numeric handle
// table, since TreeFS content is derived fresh from the tree on every
// call and carries no per-handle state worth caching.
type billyFuseFS struct {
	fuse.FileSystemBase
	fs billy.Filesystem
}

func (b *billyFuseFS) Open(path string, flags int) (int, uint64) {
	if _, err := b.fs.Stat(path); err != nil {
		return -fuse.ENOENT, 0
	}
	return 0, 0
}

func (b *billyFuseFS) Opendir(path string) (int, uint64) {
	info, err := b.fs.Stat(path)
	if err != nil {
		return -fuse.ENOENT, 0
	}
	if !info.IsDir() {
		return -fuse.ENOTDIR, 0
	}
	return 0, 0
}

func (b *billyFuseFS) Release(path string, fh uint64) int    { return 0 }
func (b *billyFuseFS) Releasedir(path string, fh uint64) int { return 0 }

func (b *billyFuseFS) Getattr(path string, stat *fuse.Stat_t, fh uint64) int {
	info, err := b.fs.Stat(path)
	if err != nil {
		return -fuse.ENOENT
	}
	fillStat(stat, info)
	return 0
}

func (b *billyFuseFS) Read(path string, buff []byte, ofst int64, fh uint64) int {
	f, err := b.fs.Open(path)
	if err != nil {
		return -fuse.ENOENT
	}
	defer f.Close()

	n, err := f.ReadAt(buff, ofst)
	if err != nil && n == 0 {
		return 0
	}
	return n
}

func (b *billyFuseFS) Readdir(path string, fill func(name string, stat *fuse.Stat_t, ofst int64) bool, ofst int64, fh uint64) int {
	entries, err := b.fs.ReadDir(path)
	if err != nil {
		return -fuse.ENOENT
	}

	fill(".", nil, 0)
	fill("..", nil, 0)
	for _, entry := range entries {
		var stat fuse.Stat_t
		fillStat(&stat, entry)
		if !fill(entry.Name(), &stat, 0) {
			break
		}
	}
	return 0
}

func fillStat(stat *fuse.Stat_t, info os.FileInfo) {
	*stat = fuse.Stat_t{}
	if info.IsDir() {
		stat.Mode = fuse.S_IFDIR | 0o555
	} else {
		stat.Mode = fuse.S_IFREG | 0o444
		stat.Size = info.Size()
	}
	mtime := info.ModTime()
	ts := fuse.Timespec{Sec: mtime.Unix(), Nsec: int64(mtime.Nanosecond())}
	stat.Mtim, stat.Atim, stat.Ctim = ts, ts, ts
}

var _ fuse.FileSystemInterface = (*billyFuseFS)(nil)
