package remotefs

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"time"

	"github.com/hirochachacha/go-smb2"

	"github.com/framefeed/framefeed/internal/models"
	"github.com/framefeed/framefeed/internal/validation"
)

const smbPort = "445"

// SMBBrowser browses SMB2/3 shares. The first path segment names the share;
// an empty path lists the server's shares as directories. Servers without
// credentials are accessed as guest.
type SMBBrowser struct {
	timeouts Timeouts
}

// NewSMBBrowser creates an SMB backend with the given timeouts.
func NewSMBBrowser(timeouts Timeouts) *SMBBrowser {
	return &SMBBrowser{timeouts: timeouts}
}

// deadlineConn arms a fresh read deadline before every read so a stalled
// server surfaces as a timeout instead of hanging a worker.
type deadlineConn struct {
	net.Conn
	timeout time.Duration
}

func (c *deadlineConn) Read(p []byte) (int, error) {
	if err := c.Conn.SetReadDeadline(time.Now().Add(c.timeout)); err != nil {
		return 0, err
	}
	return c.Conn.Read(p)
}

// smbSession bundles the connection, session, and mounted share so a
// streaming read can tear everything down on Close.
type smbSession struct {
	conn  net.Conn
	sess  *smb2.Session
	share *smb2.Share
}

func (s *smbSession) close() {
	if s.share != nil {
		s.share.Umount()
	}
	if s.sess != nil {
		s.sess.Logoff()
	}
	s.conn.Close()
}

func (b *SMBBrowser) dial(ctx context.Context, server models.NetworkServer, shareName string) (*smbSession, error) {
	addr := server.Address
	if !strings.Contains(addr, ":") {
		addr = net.JoinHostPort(addr, smbPort)
	}

	dialer := &net.Dialer{Timeout: b.timeouts.Connect}
	rawConn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, browseErr(ErrKindConnect, server.Name, shareName, err)
	}
	conn := &deadlineConn{Conn: rawConn, timeout: b.timeouts.Read}

	initiator := &smb2.NTLMInitiator{User: "Guest"}
	if server.HasCredentials() {
		initiator = &smb2.NTLMInitiator{User: server.Username, Password: server.Password}
	}

	d := &smb2.Dialer{Initiator: initiator}
	sess, err := d.DialContext(ctx, conn)
	if err != nil {
		rawConn.Close()
		return nil, browseErr(ErrKindAuth, server.Name, shareName, err)
	}

	s := &smbSession{conn: rawConn, sess: sess}
	if shareName != "" {
		share, err := sess.Mount(shareName)
		if err != nil {
			s.close()
			return nil, browseErr(ErrKindNotFound, server.Name, shareName, err)
		}
		s.share = share
	}
	return s, nil
}

// splitSharePath splits "share/sub/dir" into the share name and the
// in-share path.
func splitSharePath(p string) (share, rest string) {
	p = strings.Trim(p, "/")
	if p == "" {
		return "", ""
	}
	parts := strings.SplitN(p, "/", 2)
	if len(parts) == 1 {
		return parts[0], ""
	}
	return parts[0], parts[1]
}

// toSMBPath converts a slash-separated remote path to SMB separators.
func toSMBPath(p string) string {
	if p == "" {
		return "."
	}
	return strings.ReplaceAll(p, "/", `\`)
}

// Browse implements Browser.
func (b *SMBBrowser) Browse(ctx context.Context, server models.NetworkServer, path string) ([]models.NetworkResource, error) {
	shareName, subPath := splitSharePath(path)

	sess, err := b.dial(ctx, server, shareName)
	if err != nil {
		return nil, err
	}
	defer sess.close()

	// No share in the path: present the server's shares as directories.
	if shareName == "" {
		names, err := sess.sess.ListSharenames()
		if err != nil {
			return nil, browseErr(ErrKindProtocol, server.Name, path, err)
		}
		resources := make([]models.NetworkResource, 0, len(names))
		for _, name := range names {
			if strings.HasSuffix(name, "$") {
				continue // administrative shares
			}
			resources = append(resources, Classify(server, name, name, true, 0, time.Time{}))
		}
		SortResources(resources)
		return resources, nil
	}

	infos, err := sess.share.ReadDir(toSMBPath(subPath))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, browseErr(ErrKindNotFound, server.Name, path, err)
		}
		return nil, browseErr(ErrKindProtocol, server.Name, path, err)
	}

	resources := make([]models.NetworkResource, 0, len(infos))
	for _, info := range infos {
		if validation.ValidateFilename(info.Name()) != nil {
			continue
		}
		entryPath := JoinPath(path, info.Name())
		resources = append(resources, Classify(server, entryPath, info.Name(), info.IsDir(), info.Size(), info.ModTime()))
	}
	SortResources(resources)
	return resources, nil
}

// Open implements Browser. The returned reader owns the SMB session and
// releases it on Close.
func (b *SMBBrowser) Open(ctx context.Context, res models.NetworkResource) (io.ReadCloser, int64, error) {
	shareName, subPath := splitSharePath(res.Path)
	if shareName == "" || subPath == "" {
		return nil, 0, browseErr(ErrKindNotFound, res.Server.Name, res.Path, fmt.Errorf("not a file path"))
	}

	sess, err := b.dial(ctx, res.Server, shareName)
	if err != nil {
		return nil, 0, err
	}

	f, err := sess.share.Open(toSMBPath(subPath))
	if err != nil {
		sess.close()
		if os.IsNotExist(err) {
			return nil, 0, browseErr(ErrKindNotFound, res.Server.Name, res.Path, err)
		}
		return nil, 0, browseErr(ErrKindProtocol, res.Server.Name, res.Path, err)
	}

	size := res.Size
	if info, err := f.Stat(); err == nil {
		size = info.Size()
	}

	return &sessionReader{File: f, sess: sess}, size, nil
}

// sessionReader ties the lifetime of an open remote file to its session.
type sessionReader struct {
	*smb2.File
	sess *smbSession
}

func (r *sessionReader) Close() error {
	err := r.File.Close()
	r.sess.close()
	return err
}
