// Package share routes outgoing shares to the platform's native share
// capability and builds link previews for URLs pasted into messages.
package share

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gabriel-vasile/mimetype"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"

	"github.com/iceinvein/bootleg-msn-sub000/internal/deeplink"
	"github.com/iceinvein/bootleg-msn-sub000/internal/logging"
	"github.com/iceinvein/bootleg-msn-sub000/internal/platform"
	"github.com/iceinvein/bootleg-msn-sub000/internal/shared/types"
)

// maxPreviewBody bounds how much of a page the preview fetch will read.
const maxPreviewBody = 512 * 1024

// Preview is the metadata extracted from a shared link.
type Preview struct {
	URL         string `json:"url"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
}

// Dispatcher sends share content through the platform adapter and builds
// link previews. All failures are neutral: a share that cannot happen
// reports false, a preview that cannot be built is nil.
type Dispatcher struct {
	adapter platform.Adapter
	client  *retryablehttp.Client
	log     *logging.Logger
}

// NewDispatcher creates a dispatcher. The adapter decides whether native
// sharing exists at all.
func NewDispatcher(adapter platform.Adapter, log *logging.Logger) *Dispatcher {
	if log == nil {
		log = logging.NewDefault()
	}
	client := retryablehttp.NewClient()
	client.RetryMax = 2
	client.HTTPClient.Timeout = 10 * time.Second
	client.Logger = nil

	return &Dispatcher{
		adapter: adapter,
		client:  client,
		log:     log.Component("share"),
	}
}

// Share passes content to the platform's native share sheet. Returns false
// when the platform has no native sharing or the share did not complete.
func (d *Dispatcher) Share(ctx context.Context, content types.ShareContent) bool {
	if !d.adapter.Capabilities().HasNativeSharing {
		return false
	}
	return d.adapter.Share(ctx, content)
}

// PreviewLink fetches a shared web URL and extracts Open Graph metadata,
// falling back to the document title. Non-HTML targets and fetch failures
// produce a nil preview, never an error surfaced to the message path.
func (d *Dispatcher) PreviewLink(ctx context.Context, rawURL string) *Preview {
	if err := deeplink.ValidateExternalURL(rawURL); err != nil {
		d.log.Debug("preview skipped", zap.String("url", rawURL), zap.Error(err))
		return nil
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil
	}
	resp, err := d.client.Do(req)
	if err != nil {
		d.log.Debug("preview fetch failed", zap.String("url", rawURL), zap.Error(err))
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		d.log.Debug("preview fetch rejected", zap.String("url", rawURL), zap.Int("status", resp.StatusCode))
		return nil
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.Contains(ct, "text/html") {
		return nil
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxPreviewBody))
	if err != nil {
		d.log.Debug("preview parse failed", zap.String("url", rawURL), zap.Error(err))
		return nil
	}
	return extract(rawURL, doc)
}

// SniffAttachment detects the MIME type of a file about to be shared.
func (d *Dispatcher) SniffAttachment(path string) (string, error) {
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return "", fmt.Errorf("share: sniff %s: %w", path, err)
	}
	return mt.String(), nil
}

func extract(rawURL string, doc *goquery.Document) *Preview {
	p := &Preview{URL: rawURL}

	p.Title = metaContent(doc, "og:title")
	if p.Title == "" {
		p.Title = strings.TrimSpace(doc.Find("title").First().Text())
	}
	p.Description = metaContent(doc, "og:description")
	if p.Description == "" {
		p.Description = doc.Find(`meta[name="description"]`).First().AttrOr("content", "")
	}
	p.ImageURL = metaContent(doc, "og:image")

	if p.Title == "" && p.Description == "" {
		return nil
	}
	return p
}

func metaContent(doc *goquery.Document, property string) string {
	sel := fmt.Sprintf(`meta[property=%q]`, property)
	return strings.TrimSpace(doc.Find(sel).First().AttrOr("content", ""))
}
