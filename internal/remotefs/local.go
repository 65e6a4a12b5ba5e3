package remotefs

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/framefeed/framefeed/internal/models"
	"github.com/framefeed/framefeed/internal/validation"
)

// LocalBrowser serves servers whose address is a file:// URL, typically a
// share already mounted by the operating system. Hidden entries are skipped,
// and browse paths are confined to the mount root.
type LocalBrowser struct{}

// NewLocalBrowser creates a browser for mounted directories.
func NewLocalBrowser() *LocalBrowser {
	return &LocalBrowser{}
}

func localRoot(server models.NetworkServer) string {
	return filepath.FromSlash(strings.TrimPrefix(server.Address, "file://"))
}

// resolve maps a remote-style path onto the mount root, rejecting anything
// that would escape it.
func (b *LocalBrowser) resolve(server models.NetworkServer, path string) (string, error) {
	root := localRoot(server)
	if path == "" {
		return root, nil
	}
	if err := validation.ValidatePathInDirectory(path, root); err != nil {
		return "", browseErr(ErrKindNotFound, server.Name, path, err)
	}
	return filepath.Join(root, filepath.FromSlash(path)), nil
}

// Browse lists a directory under the mount root.
func (b *LocalBrowser) Browse(ctx context.Context, server models.NetworkServer, path string) ([]models.NetworkResource, error) {
	if err := ctx.Err(); err != nil {
		return nil, browseErr(ErrKindConnect, server.Name, path, err)
	}

	dir, err := b.resolve(server, path)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		kind := ErrKindProtocol
		if os.IsNotExist(err) {
			kind = ErrKindNotFound
		} else if os.IsPermission(err) {
			kind = ErrKindAuth
		}
		return nil, browseErr(kind, server.Name, path, err)
	}

	resources := make([]models.NetworkResource, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if isHiddenName(name) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		resources = append(resources, Classify(
			server,
			JoinPath(path, name),
			name,
			entry.IsDir(),
			info.Size(),
			info.ModTime(),
		))
	}
	SortResources(resources)
	return resources, nil
}

// Open returns a reader over a file under the mount root.
func (b *LocalBrowser) Open(ctx context.Context, res models.NetworkResource) (io.ReadCloser, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, browseErr(ErrKindConnect, res.Server.Name, res.Path, err)
	}

	full, err := b.resolve(res.Server, res.Path)
	if err != nil {
		return nil, 0, err
	}

	f, err := os.Open(full)
	if err != nil {
		kind := ErrKindProtocol
		if os.IsNotExist(err) {
			kind = ErrKindNotFound
		} else if os.IsPermission(err) {
			kind = ErrKindAuth
		}
		return nil, 0, browseErr(kind, res.Server.Name, res.Path, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, browseErr(ErrKindProtocol, res.Server.Name, res.Path, err)
	}
	return f, info.Size(), nil
}

// isHiddenName reports whether a name is a dotfile. The "." and ".." entries
// are not hidden, they are skipped by ReadDir already.
func isHiddenName(name string) bool {
	if name == "." || name == ".." {
		return false
	}
	return strings.HasPrefix(name, ".")
}
