// Package headless drives the listing pages through a headless browser.
// The listing table is rendered server-side but sits behind enough layout
// chrome that waiting on the table selector is still required.
package headless

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/pmercier/upc-harvester/internal/harvest"
)

// DefaultRowSelector matches the decision table rows on the listing pages.
const DefaultRowSelector = "table.views-table tbody tr"

// Config controls the behavior of the browser session.
type Config struct {
	UserAgent         string
	RowSelector       string
	NavigationTimeout time.Duration
}

// Session is a single stateful browser owned by one harvesting run. It
// implements harvest.PageFetcher and is not safe for concurrent use; the
// pagination loop is the only driver.
type Session struct {
	cfg           Config
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
	configured    bool
}

// NewSession launches the headless browser. Close must be called on every
// exit path to release it.
func NewSession(cfg Config) (*Session, error) {
	if cfg.RowSelector == "" {
		cfg.RowSelector = DefaultRowSelector
	}
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = 45 * time.Second
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("blink-settings", "imagesEnabled=false"),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	return &Session{
		cfg:           cfg,
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
	}, nil
}

// Close tears down the browser and its allocator.
func (s *Session) Close() {
	s.browserCancel()
	s.allocCancel()
}

// Navigate loads url in the session's tab, bounded by the navigation
// timeout.
func (s *Session) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	navCtx, cancel := context.WithTimeout(s.browserCtx, s.cfg.NavigationTimeout)
	defer cancel()

	actions := []chromedp.Action{}
	if !s.configured {
		actions = append(actions, s.setupAction())
	}
	actions = append(actions, chromedp.Navigate(url))
	if err := chromedp.Run(navCtx, actions...); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	s.configured = true
	return nil
}

// WaitForRows blocks until the listing table has rendered, or fails with
// the timeout error that feeds the pagination error counter.
func (s *Session) WaitForRows(ctx context.Context, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	waitCtx, cancel := context.WithTimeout(s.browserCtx, timeout)
	defer cancel()
	if err := chromedp.Run(waitCtx, chromedp.WaitVisible(s.cfg.RowSelector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("wait for %q: %w", s.cfg.RowSelector, err)
	}
	return nil
}

// ExtractRows pulls the visible cell text and raw link hrefs out of every
// table row. Interpretation (dates, registry lines, URL resolution) is the
// extractor's job, not the browser's.
func (s *Session) ExtractRows(ctx context.Context) ([]harvest.RawRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var rows []harvest.RawRow
	if err := chromedp.Run(s.browserCtx, chromedp.Evaluate(extractRowsJS(s.cfg.RowSelector), &rows)); err != nil {
		return nil, fmt.Errorf("extract rows: %w", err)
	}
	return rows, nil
}

func (s *Session) setupAction() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if err := network.Enable().Do(ctx); err != nil {
			return fmt.Errorf("enable network domain: %w", err)
		}
		if s.cfg.UserAgent != "" {
			if err := emulation.SetUserAgentOverride(s.cfg.UserAgent).Do(ctx); err != nil {
				return fmt.Errorf("set user-agent: %w", err)
			}
		}
		return nil
	})
}

func extractRowsJS(selector string) string {
	return fmt.Sprintf(`(() => {
	const rows = Array.from(document.querySelectorAll(%q));
	return rows.map(tr => {
		const cells = Array.from(tr.querySelectorAll('td'));
		let fullDetails = '';
		if (cells.length > 1) {
			const anchor = Array.from(cells[1].querySelectorAll('a'))
				.find(a => a.textContent.includes('Full Details'));
			if (anchor) fullDetails = anchor.getAttribute('href') || '';
		}
		let doc = '';
		if (cells.length > 5) {
			const anchor = cells[5].querySelector('a');
			if (anchor) doc = anchor.getAttribute('href') || '';
		}
		return {
			cells: cells.map(td => td.innerText.trim()),
			full_details_href: fullDetails,
			document_href: doc,
		};
	});
})()`, selector)
}
