package treemount

import (
	"fmt"
	"net"
	"os"

	billy "github.com/go-git/go-billy/v5"
	nfs "github.com/willscott/go-nfs"
	nfshelper "github.com/willscott/go-nfs/helpers"
	"github.com/winfsp/cgofuse/fuse"
)

// NFSServer manages the lifecycle of a read-only NFS export of a
// TreeFS, grounded on nfsmount.Server (NewServer/Port/Close).
type NFSServer struct {
	listener net.Listener
	port     int
}

// ServeNFS starts an NFS server on an ephemeral localhost port backed
// by fs. The caller is responsible for mounting it (e.g. via the
// platform's own `mount -t nfs` against 127.0.0.1:<Port>); treemount
// itself never shells out to mount/unmount, unlike nfsmount's
// teacher-side Mount/Unmount helpers, since a tree mount is opt-in
// debugging tooling rather than part of the serve session's startup
// path.
func ServeNFS(fs billy.Filesystem) (*NFSServer, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("treemount: nfs listen: %w", err)
	}
	port := listener.Addr().(*net.TCPAddr).Port

	handler := nfshelper.NewNullAuthHandler(fs)
	cacheHelper := nfshelper.NewCachingHandler(handler, 4096)

	go func() {
		_ = nfs.Serve(listener, cacheHelper)
	}()

	return &NFSServer{listener: listener, port: port}, nil
}

// Port returns the TCP port the NFS server is listening on.
func (s *NFSServer) Port() int {
	return s.port
}

// Close stops the NFS server.
func (s *NFSServer) Close() error {
	return s.listener.Close()
}

// FuseHost wraps a mounted cgofuse FileSystemHost so the caller can
// unmount it.
type FuseHost struct {
	host *fuse.FileSystemHost
}

// MountFUSE loopback-mounts fs at mountpoint via cgofuse, for local
// inspection on platforms without an NFS loopback client. Grounded on
// the teacher's cmd/mount.go FUSE backend (NewFileSystemHost,
// SetCapReaddirPlus, read-only mount options), adapted to bridge a
// billy.Filesystem through billyFuseFS rather than a bespoke
// fuse.FileSystemInterface implementation.
func MountFUSE(fs billy.Filesystem, mountpoint string) (*FuseHost, error) {
	adapter := &billyFuseFS{fs: fs}
	host := fuse.NewFileSystemHost(adapter)
	host.SetCapReaddirPlus(true)

	opts := []string{
		"-o", fmt.Sprintf("uid=%d", os.Getuid()),
		"-o", fmt.Sprintf("gid=%d", os.Getgid()),
		"-o", "fsname=rojo-core",
		"-o", "subtype=rojo-core",
		"-o", "ro",
	}

	if !host.Mount(mountpoint, opts) {
		return nil, fmt.Errorf("treemount: fuse mount at %s failed", mountpoint)
	}
	return &FuseHost{host: host}, nil
}

// Unmount tears down the FUSE mount.
func (h *FuseHost) Unmount() bool {
	return h.host.Unmount()
}
