// Package airbnb collects Airbnb listings with a headless browser.
package airbnb

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"time"

	"github.com/chromedp/chromedp"

	"listings-aggregator/models"
	"listings-aggregator/utils"
)

const (
	// Name is the collector's registry name and platform value.
	Name = "airbnb"

	startURL          = "https://www.airbnb.com/"
	fallbackSearchURL = "https://www.airbnb.com/s/Bangkok/homes"
	userAgent         = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// Options tunes how much is scraped and how politely.
type Options struct {
	Pages           int
	ListingsPerPage int
	MaxConcurrency  int
	RateLimit       time.Duration
	MaxRetries      int
	ChromeBin       string
}

// listing is one property card as read from the page.
type listing struct {
	Title       string `json:"title"`
	Price       string `json:"price"`
	Location    string `json:"location"`
	Rating      string `json:"rating"`
	URL         string `json:"url"`
	Description string `json:"description"`
}

// Collector scrapes search result pages and enriches each card from its
// detail page.
type Collector struct {
	opts   Options
	logger *utils.Logger
	retry  *utils.RetryConfig
}

// New creates a ready-to-use Airbnb collector.
func New(opts Options, logger *utils.Logger) *Collector {
	return &Collector{
		opts:   opts,
		logger: logger,
		retry: &utils.RetryConfig{
			MaxAttempts: opts.MaxRetries,
			BaseDelay:   2 * time.Second,
			Logger:      logger,
		},
	}
}

func (c *Collector) Name() string { return Name }

// Collect drives pagination and returns every unique listing found. Pages
// scraped before a failure are still returned.
func (c *Collector) Collect(ctx context.Context) (*models.Table, error) {
	listings, err := c.scrape(ctx)
	if err != nil && len(listings) == 0 {
		return nil, err
	}
	if err != nil {
		c.logger.Warn("[airbnb] Partial scrape, keeping %d listings: %v", len(listings), err)
	}
	return toTable(listings), nil
}

func (c *Collector) scrape(ctx context.Context) ([]*listing, error) {
	c.logger.Info("[airbnb] Starting scrape, target: %d pages, %d listings/page",
		c.opts.Pages, c.opts.ListingsPerPage)

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(userAgent),
	)
	if bin := findChromeBinary(c.opts.ChromeBin); bin != "" {
		c.logger.Info("[airbnb] Using browser binary: %s", bin)
		opts = append(opts, chromedp.ExecPath(bin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...any) {}))
	defer cancelBrowser()

	pageURL, err := c.findSearchURL(browserCtx)
	if err != nil {
		return nil, fmt.Errorf("airbnb: find search page: %w", err)
	}

	seen := utils.NewSet[string]()
	var all []*listing

	for page := 1; page <= c.opts.Pages && pageURL != ""; page++ {
		c.logger.Info("[airbnb] Scraping page %d: %s", page, pageURL)

		cards, next, err := c.scrapePage(browserCtx, pageURL, page)
		if err != nil {
			return all, fmt.Errorf("airbnb: page %d: %w", page, err)
		}
		if len(cards) == 0 {
			c.logger.Warn("[airbnb] Page %d returned 0 listings, stopping", page)
			break
		}

		fresh := cards[:0]
		for _, l := range cards {
			if l.URL != "" && seen.Add(l.URL) {
				fresh = append(fresh, l)
			}
		}
		c.enrich(browserCtx, fresh)
		all = append(all, fresh...)

		c.logger.Info("[airbnb] Page %d done, %d listings so far", page, len(all))
		pageURL = next
		if page == c.opts.Pages || pageURL == "" {
			break
		}

		select {
		case <-ctx.Done():
			return all, ctx.Err()
		case <-time.After(c.opts.RateLimit):
		}
	}

	return all, nil
}

// findSearchURL opens the homepage and picks the first "Popular homes in"
// section's search link.
func (c *Collector) findSearchURL(browserCtx context.Context) (string, error) {
	var found string

	err := c.retry.Do(browserCtx, "find-search-url", func() error {
		ctx, cancel := chromedp.NewContext(browserCtx)
		defer cancel()
		ctx, cancelTimeout := context.WithTimeout(ctx, 60*time.Second)
		defer cancelTimeout()

		return chromedp.Run(ctx,
			chromedp.Navigate(startURL),
			chromedp.Sleep(5*time.Second),
			chromedp.Evaluate(`(function() {
				var headings = document.querySelectorAll('h2, h3, div[role="heading"]');
				for (var i = 0; i < headings.length; i++) {
					var text = headings[i].textContent || '';
					var m = text.match(/popular homes in (.+)/i);
					if (!m) continue;
					var section = headings[i].closest('section') || headings[i].parentElement;
					var link = section && section.querySelector('a[href*="/s/"]');
					if (link && link.href) return link.href;
					return 'https://www.airbnb.com/s/' + encodeURIComponent(m[1].trim()) + '/homes';
				}
				return '';
			})()`, &found),
		)
	})
	if err != nil {
		return "", err
	}

	if found == "" {
		c.logger.Warn("[airbnb] No popular homes section, using fallback search")
		found = fallbackSearchURL
	}
	return found, nil
}

// scrapePage loads a search results page and returns its cards and the next
// page URL, if any.
func (c *Collector) scrapePage(browserCtx context.Context, pageURL string, page int) ([]*listing, string, error) {
	var cards []*listing
	var next string

	err := c.retry.Do(browserCtx, "scrape-page-"+strconv.Itoa(page), func() error {
		ctx, cancel := chromedp.NewContext(browserCtx)
		defer cancel()
		ctx, cancelTimeout := context.WithTimeout(ctx, 90*time.Second)
		defer cancelTimeout()

		return chromedp.Run(ctx,
			chromedp.Navigate(pageURL),
			chromedp.Sleep(6*time.Second),
			chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight)`, nil),
			chromedp.Sleep(2*time.Second),
			chromedp.Evaluate(`(function() {
				var limit = `+strconv.Itoa(c.opts.ListingsPerPage)+`;
				var out = [], seen = {};
				var cards = document.querySelectorAll('[data-testid="card-container"], [itemprop="itemListElement"]');
				for (var i = 0; i < cards.length && out.length < limit; i++) {
					var card = cards[i];
					var link = card.querySelector('a[href*="/rooms/"]');
					if (!link || seen[link.href]) continue;
					seen[link.href] = true;
					var text = function(sel) {
						var el = card.querySelector(sel);
						return el ? el.innerText.trim() : '';
					};
					var price = text('[data-testid="price-availability-row"]').match(/(\$|฿|€|£)\s*[\d,]+[^\n]*/);
					var rating = (card.querySelector('[aria-label*="rating"]') || {}).innerText || '';
					out.push({
						title: text('[data-testid="listing-card-title"]'),
						price: price ? price[0] : '',
						location: text('[data-testid="listing-card-subtitle"]'),
						rating: rating,
						url: link.href
					});
				}
				return out;
			})()`, &cards),
			chromedp.Evaluate(`(function() {
				var next = document.querySelector('a[aria-label="Next"], [data-testid="pagination-next-button"]');
				return next && next.href ? next.href : '';
			})()`, &next),
		)
	})

	c.logger.Debug("[airbnb] Page %d: found %d cards", page, len(cards))
	return cards, next, err
}

// enrich fills in the description, and any missing card fields, from each
// listing's detail page.
func (c *Collector) enrich(browserCtx context.Context, listings []*listing) {
	pool := utils.NewWorkerPool(c.opts.MaxConcurrency, c.opts.RateLimit)

	for _, l := range listings {
		l := l
		pool.Submit(func() {
			detail, err := c.scrapeDetail(browserCtx, l.URL)
			if err != nil {
				c.logger.Warn("[airbnb] Detail page failed for %s: %v", l.URL, err)
				return
			}

			if normaliseText(l.Title) == "" {
				l.Title = detail.Title
			}
			if normaliseText(l.Price) == "" {
				l.Price = detail.Price
			}
			if normaliseText(l.Location) == "" {
				l.Location = detail.Location
			}
			if l.Rating == "" {
				l.Rating = detail.Rating
			}
			l.Description = detail.Description
		})
	}
	pool.Wait()
}

func (c *Collector) scrapeDetail(browserCtx context.Context, url string) (*listing, error) {
	var d listing

	err := c.retry.Do(browserCtx, "detail-page", func() error {
		ctx, cancel := chromedp.NewContext(browserCtx)
		defer cancel()
		ctx, cancelTimeout := context.WithTimeout(ctx, 60*time.Second)
		defer cancelTimeout()

		return chromedp.Run(ctx,
			chromedp.Navigate(url),
			chromedp.Sleep(4*time.Second),
			chromedp.Evaluate(`(function() {
				var text = function(sel) {
					var el = document.querySelector(sel);
					return el ? el.innerText.trim() : '';
				};
				var desc = text('[data-section-id="DESCRIPTION_DEFAULT"] span');
				if (!desc) {
					var paras = document.querySelectorAll('main p'), parts = [];
					for (var i = 0; i < paras.length && parts.join(' ').length < 400; i++) {
						var t = paras[i].innerText.trim();
						if (t.length > 20) parts.push(t);
					}
					desc = parts.join(' ');
				}
				var price = text('[data-testid="book-it-default"] span').match(/(\$|฿|€|£)\s*[\d,]+/);
				return {
					title: text('h1'),
					price: price ? price[0] : '',
					location: text('[data-section-id="LOCATION_DEFAULT"] h2'),
					rating: text('button[aria-label*="rating"]'),
					description: desc.substring(0, 500)
				};
			})()`, &d),
		)
	})
	if err != nil {
		return nil, fmt.Errorf("airbnb: detail %s: %w", url, err)
	}
	return &d, nil
}

// toTable maps scraped cards onto canonical columns.
func toTable(listings []*listing) *models.Table {
	t := models.NewTable()
	for _, l := range listings {
		row := map[string]any{
			models.ColIdentifier:  roomID(l.URL),
			models.ColPlatform:    Name,
			models.ColLink:        l.URL,
			models.ColName:        nullIfEmpty(normaliseText(l.Title)),
			models.ColRegion:      nullIfEmpty(normaliseText(l.Location)),
			models.ColDescription: nullIfEmpty(normaliseText(l.Description)),
			models.ColObjectType:  "short-term rental",
		}
		if price, ok := perNightPrice(l.Price); ok {
			row[models.ColPrice] = strconv.FormatFloat(price, 'f', 2, 64)
		}
		if rating, ok := parseRating(l.Rating); ok {
			row[models.ColAdditionalInformation] = "rating: " + strconv.FormatFloat(rating, 'f', 2, 64)
		}
		t.AppendRow(row)
	}
	return t
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// findChromeBinary locates a Chrome/Chromium binary, preferring the
// configured path. Empty means let chromedp decide.
func findChromeBinary(configured string) string {
	if configured != "" {
		return configured
	}
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		return bin
	}

	for _, name := range []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"} {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}
	for _, p := range []string{"/snap/bin/chromium", "/opt/google/chrome/google-chrome"} {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
