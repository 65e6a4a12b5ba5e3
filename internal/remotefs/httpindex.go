package remotefs

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/Azure/go-ntlmssp"
	"github.com/PuerkitoBio/goquery"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/framefeed/framefeed/internal/models"
	"github.com/framefeed/framefeed/internal/validation"
)

// The two common auto-index row formats. nginx prints "02-Jan-2006 15:04"
// and an exact byte count; Apache mod_autoindex prints "2006-01-02 15:04"
// and a humanized size such as "1.2K".
var (
	nginxRowPattern  = regexp.MustCompile(`(\d{2}-\w{3}-\d{4} \d{2}:\d{2})\s+(\d+|-)`)
	apacheRowPattern = regexp.MustCompile(`(\d{4}-\d{2}-\d{2} \d{2}:\d{2})\s+([\d.]+[KMGT]?|-)`)
)

const (
	nginxTimeLayout  = "02-Jan-2006 15:04"
	apacheTimeLayout = "2006-01-02 15:04"
)

// HTTPIndexBrowser browses shares exposed as plain HTTP directory indexes,
// the second listing protocol most NAS devices offer. NTLM-protected
// servers are handled through the negotiating transport; transient HTTP
// failures are retried by the client itself.
type HTTPIndexBrowser struct {
	timeouts Timeouts
	client   *retryablehttp.Client
}

// NewHTTPIndexBrowser creates an HTTP directory-index backend.
func NewHTTPIndexBrowser(timeouts Timeouts) *HTTPIndexBrowser {
	client := retryablehttp.NewClient()
	client.RetryMax = 2
	client.RetryWaitMin = 500 * time.Millisecond
	client.RetryWaitMax = 2 * time.Second
	client.Logger = nil
	client.HTTPClient = &http.Client{
		Timeout: timeouts.Read,
		Transport: ntlmssp.Negotiator{
			RoundTripper: &http.Transport{
				DialContext:           (&net.Dialer{Timeout: timeouts.Connect}).DialContext,
				ResponseHeaderTimeout: timeouts.Read,
			},
		},
	}
	return &HTTPIndexBrowser{timeouts: timeouts, client: client}
}

// buildURL joins the server base address and a slash-separated remote path,
// escaping each segment.
func buildURL(server models.NetworkServer, path string, dir bool) string {
	base := strings.TrimRight(server.Address, "/")
	path = strings.Trim(path, "/")
	if path == "" {
		return base + "/"
	}
	segments := strings.Split(path, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	u := base + "/" + strings.Join(segments, "/")
	if dir {
		u += "/"
	}
	return u
}

func (b *HTTPIndexBrowser) get(ctx context.Context, server models.NetworkServer, rawURL, path string) (*http.Response, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, browseErr(ErrKindNotFound, server.Name, path, err)
	}
	if server.HasCredentials() {
		// The negotiating transport upgrades basic credentials to NTLM
		// when the server asks for it.
		req.SetBasicAuth(server.Username, server.Password)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, browseErr(ErrKindConnect, server.Name, path, err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		resp.Body.Close()
		return nil, browseErr(ErrKindAuth, server.Name, path, fmt.Errorf("server returned %s", resp.Status))
	case resp.StatusCode == http.StatusNotFound:
		resp.Body.Close()
		return nil, browseErr(ErrKindNotFound, server.Name, path, fmt.Errorf("server returned %s", resp.Status))
	case resp.StatusCode != http.StatusOK:
		resp.Body.Close()
		return nil, browseErr(ErrKindProtocol, server.Name, path, fmt.Errorf("server returned %s", resp.Status))
	}
	return resp, nil
}

// Browse implements Browser.
func (b *HTTPIndexBrowser) Browse(ctx context.Context, server models.NetworkServer, path string) ([]models.NetworkResource, error) {
	resp, err := b.get(ctx, server, buildURL(server, path, true), path)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, browseErr(ErrKindProtocol, server.Name, path, err)
	}

	resources := ParseIndex(doc, server, path)
	SortResources(resources)
	return resources, nil
}

// ParseIndex extracts directory entries from an auto-index page. Navigation
// anchors (parent links, sort toggles, absolute links) are skipped; size
// and modified time are taken from the listing columns when present.
func ParseIndex(doc *goquery.Document, server models.NetworkServer, path string) []models.NetworkResource {
	var resources []models.NetworkResource

	doc.Find("a").Each(func(_ int, a *goquery.Selection) {
		href, ok := a.Attr("href")
		if !ok || href == "" {
			return
		}
		if strings.HasPrefix(href, "?") || strings.HasPrefix(href, "#") ||
			strings.HasPrefix(href, "/") || strings.Contains(href, "://") {
			return
		}
		if href == "../" || href == ".." || href == "./" {
			return
		}

		isDir := strings.HasSuffix(href, "/")
		name, err := url.PathUnescape(strings.TrimSuffix(href, "/"))
		if err != nil {
			return
		}
		// Index pages are untrusted input; drop names that could traverse.
		if validation.ValidateFilename(name) != nil {
			return
		}

		size, modified := parseIndexRow(a)
		entryPath := JoinPath(path, name)
		resources = append(resources, Classify(server, entryPath, name, isDir, size, modified))
	})

	return resources
}

// parseIndexRow reads the text that follows an anchor node, which carries
// the date and size columns in nginx/Apache index pages.
func parseIndexRow(a *goquery.Selection) (int64, time.Time) {
	if len(a.Nodes) == 0 || a.Nodes[0].NextSibling == nil {
		return 0, time.Time{}
	}
	row := a.Nodes[0].NextSibling.Data

	if m := nginxRowPattern.FindStringSubmatch(row); m != nil {
		modified, _ := time.Parse(nginxTimeLayout, m[1])
		return parseIndexSize(m[2]), modified
	}
	if m := apacheRowPattern.FindStringSubmatch(row); m != nil {
		modified, _ := time.Parse(apacheTimeLayout, m[1])
		return parseIndexSize(m[2]), modified
	}
	return 0, time.Time{}
}

// parseIndexSize converts an index size column to bytes. Handles exact
// counts, Apache's humanized "1.2K" form, and "-" for directories.
func parseIndexSize(col string) int64 {
	if col == "" || col == "-" {
		return 0
	}
	unit := int64(1)
	switch col[len(col)-1] {
	case 'K':
		unit = 1 << 10
	case 'M':
		unit = 1 << 20
	case 'G':
		unit = 1 << 30
	case 'T':
		unit = 1 << 40
	}
	if unit > 1 {
		col = col[:len(col)-1]
	}
	v, err := strconv.ParseFloat(col, 64)
	if err != nil {
		return 0
	}
	return int64(v * float64(unit))
}

// Open implements Browser.
func (b *HTTPIndexBrowser) Open(ctx context.Context, res models.NetworkResource) (io.ReadCloser, int64, error) {
	resp, err := b.get(ctx, res.Server, buildURL(res.Server, res.Path, false), res.Path)
	if err != nil {
		return nil, 0, err
	}

	size := resp.ContentLength
	if size < 0 {
		size = res.Size
	}
	return resp.Body, size, nil
}
