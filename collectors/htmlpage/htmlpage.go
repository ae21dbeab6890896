// Package htmlpage collects listings from static HTML boards described by CSS
// selectors in the collector config.
package htmlpage

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"listings-aggregator/config"
	"listings-aggregator/models"
	"listings-aggregator/utils"
)

// Collector scrapes one configured listing page.
type Collector struct {
	src    config.HTMLSource
	client *http.Client
	retry  *utils.RetryConfig
	logger *utils.Logger
}

// New creates a Collector for src. A nil client uses a 30s-timeout default.
func New(src config.HTMLSource, client *http.Client, retry *utils.RetryConfig, logger *utils.Logger) *Collector {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Collector{src: src, client: client, retry: retry, logger: logger}
}

func (c *Collector) Name() string { return c.src.Name }

// Collect fetches the page and extracts one row per item element.
func (c *Collector) Collect(ctx context.Context) (*models.Table, error) {
	var doc *goquery.Document
	err := c.retry.Do(ctx, "fetch "+c.src.Name, func() error {
		var fetchErr error
		doc, fetchErr = c.fetch(ctx)
		return fetchErr
	})
	if err != nil {
		return nil, err
	}

	base, _ := url.Parse(c.src.URL)
	platform := c.src.Platform
	if platform == "" {
		platform = c.src.Name
	}

	idSelector, hasID := c.src.Fields[models.ColIdentifier]
	t := models.NewTable()
	skipped := 0
	doc.Find(c.src.Item).Each(func(_ int, item *goquery.Selection) {
		if !hasID {
			skipped++
			return
		}
		id, ok := extract(item, idSelector)
		if !ok || strings.TrimSpace(id) == "" {
			skipped++
			return
		}

		row := map[string]any{models.ColPlatform: platform}
		for column, selector := range c.src.Fields {
			v, ok := extract(item, selector)
			if !ok {
				continue
			}
			if column == models.ColLink {
				v = resolve(base, v)
			}
			row[column] = v
		}
		t.AppendRow(row)
	})

	if skipped > 0 {
		c.logger.Warn("[%s] Skipped %d items without an identifier on %s", c.src.Name, skipped, c.src.URL)
	}
	c.logger.Debug("[%s] Extracted %d items from %s", c.src.Name, t.Len(), c.src.URL)
	return t, nil
}

func (c *Collector) fetch(ctx context.Context) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.src.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("htmlpage: build request: %w", err)
	}
	req.Header.Set("User-Agent", "listings-aggregator/1.0")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("htmlpage: get %s: %w", c.src.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("htmlpage: get %s: unexpected status %d", c.src.URL, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("htmlpage: parse %s: %w", c.src.URL, err)
	}
	return doc, nil
}

// extract evaluates "sel" (text) or "sel@attr" (attribute) within item.
// An empty sel before "@" reads the item itself.
func extract(item *goquery.Selection, selector string) (string, bool) {
	sel, attr, hasAttr := strings.Cut(selector, "@")

	target := item
	if sel != "" {
		target = item.Find(sel).First()
	}
	if target.Length() == 0 {
		return "", false
	}

	if hasAttr {
		return target.Attr(attr)
	}
	return strings.Join(strings.Fields(target.Text()), " "), true
}

func resolve(base *url.URL, href string) string {
	if base == nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}
