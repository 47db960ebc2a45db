// Command rojo-core is a thin convenience binary over the sync engine
// packages: it wires a ServeSession to a project path and keeps it
// running so the packages can be exercised end-to-end, the same role
// the teacher's cmd/agent.go/cmd/build.go play for mache's engine.
// It is not the project's HTTP/subscription surface, which spec.md §1
// places out of scope — `serve` here only builds and holds the tree.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rojo-rbx/rojo-core/internal/middleware"
	"github.com/rojo-rbx/rojo-core/internal/oracle"
	"github.com/rojo-rbx/rojo-core/internal/project"
	"github.com/rojo-rbx/rojo-core/internal/rojolog"
	"github.com/rojo-rbx/rojo-core/internal/serve"
	"github.com/rojo-rbx/rojo-core/internal/treemount"
	"github.com/rojo-rbx/rojo-core/internal/vfs"
)

var (
	Version = "dev"
	Commit  = "none"
)

var (
	mountDebugFS string
	nfsDebug     bool
)

func init() {
	serveCmd.Flags().StringVar(&mountDebugFS, "mount", "", "loopback-mount the live tree read-only at this path for inspection (FUSE)")
	serveCmd.Flags().BoolVar(&nfsDebug, "nfs", false, "serve the live tree read-only over NFS instead of FUSE for --mount")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

var rootCmd = &cobra.Command{
	Use:   "rojo-core",
	Short: "Reference wiring for the file<->instance-tree sync engine",
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("rojo-core version %s (commit %s)\n", Version, Commit)
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve [project-or-folder]",
	Short: "Start a serve session rooted at a project file or plain folder",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root := "."
		if len(args) == 1 {
			root = args[0]
		}

		proj, err := project.LoadFuzzy(root)
		if err != nil {
			return fmt.Errorf("loading project at %s: %w", root, err)
		}

		backendRoot := root
		if proj != nil {
			backendRoot = proj.FolderLocation()
		}
		backend, err := vfs.NewStdBackend(backendRoot)
		if err != nil {
			return fmt.Errorf("opening filesystem at %s: %w", backendRoot, err)
		}
		v := vfs.New(backend, true)
		defer v.Close()

		dispatcher := &middleware.Dispatcher{Classes: oracle.NewStaticClassMetadata()}

		sess, err := serve.New(v, dispatcher, proj, "/")
		if err != nil {
			return fmt.Errorf("bootstrapping serve session: %w", err)
		}
		defer sess.Close()

		rojolog.Log.WithField("session", sess.SessionID().String()).Info("serve session started")

		if mountDebugFS != "" {
			tfs := treemount.New(sess.Tree())
			if nfsDebug {
				nfsSrv, err := treemount.ServeNFS(tfs)
				if err != nil {
					return fmt.Errorf("starting debug NFS export: %w", err)
				}
				defer nfsSrv.Close()
				rojolog.Log.WithField("port", nfsSrv.Port()).Info("debug NFS export listening; mount it yourself at the printed port")
			} else {
				fuseHost, err := treemount.MountFUSE(tfs, mountDebugFS)
				if err != nil {
					return fmt.Errorf("mounting debug FUSE view at %s: %w", mountDebugFS, err)
				}
				defer fuseHost.Unmount()
				rojolog.Log.WithField("path", mountDebugFS).Info("debug tree mounted read-only")
			}
		}

		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		return nil
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		rojolog.Log.WithError(err).Error("rojo-core exited with error")
		os.Exit(1)
	}
}
