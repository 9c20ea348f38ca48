// browser.go lists completed auctions by rendering the results page in a
// headless browser and expanding it with the "Show More" button. Used for
// model pages whose full history is not reachable through the JSON API.
// Requires Chrome/Chromium to be installed on the system.
package source

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"
)

// DefaultMaxClicks bounds how many times "Show More" is clicked.
const DefaultMaxClicks = 400

// DefaultBrowserTimeout bounds one full render, clicks included.
const DefaultBrowserTimeout = 30 * time.Minute

// listingAppearTimeout is how long to wait for new cards after a click.
const listingAppearTimeout = 20 * time.Second

// clickShowMoreJS finds the first visible "Show More" button among the
// known layouts, scrolls it into view, and clicks it.
const clickShowMoreJS = `(() => {
	const selectors = [
		".auctions-footer .auctions-footer-content .auctions-footer-button",
		".auctions-completed.page-section .button-show-more",
	];
	for (const sel of selectors) {
		const el = document.querySelector(sel);
		if (el && el.offsetParent !== null) {
			el.scrollIntoView();
			el.click();
			return true;
		}
	}
	return false;
})()`

const countListingsJS = `document.querySelectorAll("a.listing-card").length`

// BrowserSource lists completed auctions by rendering a results page.
type BrowserSource struct {
	name      string
	pageURL   string
	maxClicks int
	timeout   time.Duration
	verbose   bool

	render func(ctx context.Context) (string, error)
}

// NewBrowserSource creates a browser-backed source for one results page.
// maxClicks <= 0 uses the default.
func NewBrowserSource(name, pageURL string, maxClicks int, verbose bool) *BrowserSource {
	if maxClicks <= 0 {
		maxClicks = DefaultMaxClicks
	}
	s := &BrowserSource{
		name:      name,
		pageURL:   pageURL,
		maxClicks: maxClicks,
		timeout:   DefaultBrowserTimeout,
		verbose:   verbose,
	}
	s.render = s.renderExpanded
	return s
}

// Name returns the marketplace identifier.
func (s *BrowserSource) Name() string {
	return s.name
}

// Page returns every candidate on the fully expanded results page. The
// browser renders once; pagination ends after page 1.
func (s *BrowserSource) Page(ctx context.Context, page int) ([]Candidate, error) {
	if page > 1 {
		return nil, nil
	}
	html, err := s.render(ctx)
	if err != nil {
		return nil, fmt.Errorf("browser rendering failed: %w", err)
	}
	candidates := ParseListingCards(html)
	fmt.Printf("Total listings found: %d\n", len(candidates))
	return candidates, nil
}

// renderExpanded loads the results page and clicks "Show More" until the
// button disappears, the click budget runs out, or no new cards appear.
func (s *BrowserSource) renderExpanded(ctx context.Context) (string, error) {
	allocCtx, cancel := chromedp.NewExecAllocator(ctx,
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
		)...,
	)
	defer cancel()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	browserCtx, cancel = context.WithTimeout(browserCtx, s.timeout)
	defer cancel()

	var html string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(s.pageURL),
		chromedp.WaitReady("body"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			for click := 0; click < s.maxClicks; click++ {
				var count int
				if err := chromedp.Evaluate(countListingsJS, &count).Do(ctx); err != nil {
					return err
				}

				var clicked bool
				if err := chromedp.Evaluate(clickShowMoreJS, &clicked).Do(ctx); err != nil {
					return err
				}
				if !clicked {
					if s.verbose {
						fmt.Println("No visible 'Show More' button found. Stopping.")
					}
					return nil
				}
				if s.verbose {
					fmt.Printf("Clicked 'Show More' #%d, current listings: %d\n", click+1, count)
				}

				if !s.waitForMoreListings(ctx, count) {
					if s.verbose {
						fmt.Println("No new listings detected after clicking. Stopping.")
					}
					return nil
				}
			}
			return nil
		}),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return "", err
	}
	return html, nil
}

// waitForMoreListings polls until the card count exceeds prev or the wait
// budget elapses.
func (s *BrowserSource) waitForMoreListings(ctx context.Context, prev int) bool {
	deadline := time.Now().Add(listingAppearTimeout)
	for time.Now().Before(deadline) {
		var count int
		if err := chromedp.Evaluate(countListingsJS, &count).Do(ctx); err != nil {
			return false
		}
		if count > prev {
			return true
		}
		if err := chromedp.Sleep(500 * time.Millisecond).Do(ctx); err != nil {
			return false
		}
	}
	return false
}

// ParseListingCards extracts candidates from a rendered results page. The
// listing id is derived from the URL slug since cards carry no numeric id.
func ParseListingCards(html string) []Candidate {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	var candidates []Candidate
	doc.Find("a.listing-card").Each(func(_ int, card *goquery.Selection) {
		href, _ := card.Attr("href")
		id := slugFromURL(href)
		if id == "" {
			return
		}

		results := card.Find(".item-results").First()
		soldDateText := strings.TrimSpace(results.Find("span").First().Text())
		soldDateText = strings.TrimPrefix(soldDateText, "on ")

		candidates = append(candidates, Candidate{
			SourceListingID: id,
			Title:           strings.TrimSpace(card.Find("h3").First().Text()),
			Excerpt:         strings.TrimSpace(card.Find(".item-excerpt").First().Text()),
			URL:             href,
			SoldText:        strings.TrimSpace(results.Text()),
			SoldDateText:    soldDateText,
		})
	})
	return candidates
}
