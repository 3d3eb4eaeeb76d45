package provider

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"mime"
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"path"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/sync/errgroup"

	"github.com/jdialer/commhub/internal/messaging_service/domain"
)

const (
	// sniffBytes is read from the head of each attachment for MIME and image header detection.
	sniffBytes       = 64 * 1024
	maxParallelFetch = 4
)

var (
	ErrInspectFailed = errors.New("attachment inspection failed")
	// ErrForbiddenAddress is returned when an attachment host resolves to a
	// loopback, private, link-local or otherwise internal address.
	ErrForbiddenAddress = errors.New("attachment host address not allowed")
)

// cgnatPrefix is the shared address space of RFC 6598.
var cgnatPrefix = netip.MustParsePrefix("100.64.0.0/10")

// HTTPMediaInspector inspects http(s) attachments with a ranged GET and hands
// every other scheme to a fallback inspector (the device bridge).
type HTTPMediaInspector struct {
	client       *http.Client
	fallback     domain.MediaInspector
	allowPrivate bool
	logger       *slog.Logger
}

// NewHTTPMediaInspector builds an inspector. The built-in client refuses to
// connect to internal addresses, checked on the resolved IP of every dial
// including redirects. A caller-supplied httpClient is used as is.
func NewHTTPMediaInspector(logger *slog.Logger, timeout time.Duration, fallback domain.MediaInspector, httpClient *http.Client) *HTTPMediaInspector {
	i := &HTTPMediaInspector{
		fallback: fallback,
		logger:   logger.With("provider", "http_media_inspector"),
	}
	if httpClient == nil {
		dialer := &net.Dialer{Timeout: 5 * time.Second, Control: i.checkDialAddress}
		httpClient = &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				DialContext:           dialer.DialContext,
				ResponseHeaderTimeout: timeout,
			},
		}
	}
	i.client = httpClient
	return i
}

// AllowPrivateNetworks lifts the internal-address guard. For deployments that
// serve media from an internal host.
func (i *HTTPMediaInspector) AllowPrivateNetworks(allow bool) *HTTPMediaInspector {
	i.allowPrivate = allow
	return i
}

// checkDialAddress runs after DNS resolution, so address is always an IP.
func (i *HTTPMediaInspector) checkDialAddress(_, address string, _ syscall.RawConn) error {
	if i.allowPrivate {
		return nil
	}
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrForbiddenAddress, address)
	}
	ip, err := netip.ParseAddr(host)
	if err != nil || IsInternalAddr(ip) {
		return fmt.Errorf("%w: %s", ErrForbiddenAddress, host)
	}
	return nil
}

// IsInternalAddr reports whether ip must not be fetched on behalf of an API caller.
func IsInternalAddr(ip netip.Addr) bool {
	ip = ip.Unmap()
	return ip.IsLoopback() ||
		ip.IsPrivate() ||
		ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() ||
		ip.IsInterfaceLocalMulticast() ||
		ip.IsMulticast() ||
		ip.IsUnspecified() ||
		cgnatPrefix.Contains(ip)
}

// Inspect returns metadata in input order. URIs that cannot be inspected are
// omitted so the caller can report them.
func (i *HTTPMediaInspector) Inspect(ctx context.Context, uris []string) ([]domain.MessageAttachmentMeta, error) {
	results := make([]*domain.MessageAttachmentMeta, len(uris))
	var others []string

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelFetch)
	for idx, raw := range uris {
		if !isHTTP(raw) {
			others = append(others, raw)
			continue
		}
		idx, raw := idx, raw
		g.Go(func() error {
			m, err := i.inspectHTTP(gctx, raw)
			if err != nil {
				i.logger.WarnContext(gctx, "Attachment could not be inspected", "uri", raw, "error", err)
				return nil
			}
			results[idx] = m
			return nil
		})
	}
	_ = g.Wait()

	if len(others) > 0 && i.fallback != nil {
		fetched, err := i.fallback.Inspect(ctx, others)
		if err != nil {
			i.logger.WarnContext(ctx, "Fallback attachment inspection failed", "count", len(others), "error", err)
		}
		byURI := make(map[string]domain.MessageAttachmentMeta, len(fetched))
		for _, m := range fetched {
			byURI[m.URI] = m
		}
		for idx, raw := range uris {
			if m, ok := byURI[raw]; ok && results[idx] == nil {
				m := m
				results[idx] = &m
			}
		}
	}

	out := make([]domain.MessageAttachmentMeta, 0, len(uris))
	for _, m := range results {
		if m != nil {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (i *HTTPMediaInspector) inspectHTTP(ctx context.Context, raw string) (*domain.MessageAttachmentMeta, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, raw, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %w", ErrInspectFailed, err)
	}
	req.Header.Set("Range", fmt.Sprintf("bytes=0-%d", sniffBytes-1))

	resp, err := i.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInspectFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		return nil, fmt.Errorf("%w: status %d", ErrInspectFailed, resp.StatusCode)
	}

	head, err := io.ReadAll(io.LimitReader(resp.Body, sniffBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", ErrInspectFailed, err)
	}

	size := int64(-1)
	if resp.StatusCode == http.StatusPartialContent {
		size = totalFromContentRange(resp.Header.Get("Content-Range"))
	} else if resp.ContentLength >= 0 {
		size = resp.ContentLength
	}
	if size < 0 {
		rest, _ := io.Copy(io.Discard, resp.Body)
		size = int64(len(head)) + rest
	}

	meta := &domain.MessageAttachmentMeta{URI: raw, Bytes: size}
	if mt := detectMime(head, resp.Header.Get("Content-Type")); mt != "" {
		meta.MimeType = &mt
	}
	if name := fileName(raw, resp.Header.Get("Content-Disposition")); name != "" {
		meta.FileName = &name
	}
	if meta.MimeType != nil && strings.HasPrefix(*meta.MimeType, "image/") {
		if cfg, _, err := image.DecodeConfig(bytes.NewReader(head)); err == nil {
			w, h := cfg.Width, cfg.Height
			meta.Width, meta.Height = &w, &h
		}
	}
	return meta, nil
}

// detectMime prefers the sniffed type and falls back to the declared one when
// the content is not recognised.
func detectMime(head []byte, declared string) string {
	sniffed := mimetype.Detect(head)
	if !sniffed.Is("application/octet-stream") {
		return baseMediaType(sniffed.String())
	}
	return baseMediaType(declared)
}

func baseMediaType(v string) string {
	if v == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(v)
	if err != nil {
		return ""
	}
	return mt
}

func totalFromContentRange(v string) int64 {
	slash := strings.LastIndexByte(v, '/')
	if slash < 0 || v[slash+1:] == "*" {
		return -1
	}
	n, err := strconv.ParseInt(v[slash+1:], 10, 64)
	if err != nil {
		return -1
	}
	return n
}

func fileName(raw, disposition string) string {
	if disposition != "" {
		if _, params, err := mime.ParseMediaType(disposition); err == nil && params["filename"] != "" {
			return params["filename"]
		}
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	base := path.Base(u.Path)
	if base == "." || base == "/" {
		return ""
	}
	return base
}

func isHTTP(raw string) bool {
	lower := strings.ToLower(raw)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
