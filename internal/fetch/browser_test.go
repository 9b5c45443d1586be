package fetch

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type fakePage struct {
	html        string
	navigateErr error
	closeErr    error
	closed      *[]string
}

func (p *fakePage) Navigate(context.Context, string) error { return p.navigateErr }
func (p *fakePage) HTML(context.Context) (string, error)  { return p.html, nil }
func (p *fakePage) Close() error {
	*p.closed = append(*p.closed, "page")
	return p.closeErr
}

type fakeBrowser struct {
	page     *fakePage
	pageErr  error
	closeErr error
	closed   *[]string
}

func (b *fakeBrowser) NewPage(context.Context) (Page, error) {
	if b.pageErr != nil {
		return nil, b.pageErr
	}
	return b.page, nil
}

func (b *fakeBrowser) Close() error {
	*b.closed = append(*b.closed, "browser")
	return b.closeErr
}

type fakeLauncher struct {
	browser *fakeBrowser
	err     error
}

func (l *fakeLauncher) Launch(context.Context) (Browser, error) {
	if l.err != nil {
		return nil, l.err
	}
	return l.browser, nil
}

func newFakes(closed *[]string) (*fakeLauncher, *fakeBrowser, *fakePage) {
	page := &fakePage{html: "<html><body><main>Acme builds rockets</main></body></html>", closed: closed}
	browser := &fakeBrowser{page: page, closed: closed}
	return &fakeLauncher{browser: browser}, browser, page
}

func TestPageText_Success(t *testing.T) {
	var closed []string
	launcher, _, _ := newFakes(&closed)

	text, err := NewBrowserFetcher(launcher, 0, nil).PageText(context.Background(), "https://acme.io")
	require.NoError(t, err)
	assert.Equal(t, "Acme builds rockets", text)
	assert.Equal(t, []string{"page", "browser"}, closed)
}

func TestPageText_NavigationErrorClosesHandles(t *testing.T) {
	var closed []string
	launcher, _, page := newFakes(&closed)
	page.navigateErr = errors.New("net::ERR_NAME_NOT_RESOLVED")

	_, err := NewBrowserFetcher(launcher, 0, nil).PageText(context.Background(), "https://acme.io")
	require.Error(t, err)
	assert.ErrorIs(t, err, page.navigateErr)
	assert.Equal(t, []string{"page", "browser"}, closed)
}

func TestPageText_CloseErrorsDoNotMaskPrimary(t *testing.T) {
	var closed []string
	launcher, browser, page := newFakes(&closed)
	page.navigateErr = errors.New("timeout")
	page.closeErr = errors.New("page already gone")
	browser.closeErr = errors.New("browser crashed")

	core, logs := observer.New(zap.WarnLevel)
	_, err := NewBrowserFetcher(launcher, 0, zap.New(core).Sugar()).PageText(context.Background(), "https://acme.io")
	require.Error(t, err)
	assert.ErrorIs(t, err, page.navigateErr)
	assert.NotContains(t, err.Error(), "page already gone")
	assert.Equal(t, []string{"page", "browser"}, closed)
	assert.Equal(t, 2, logs.FilterMessage("Failed to close browser handle").Len())
}

func TestPageText_CloseErrorAfterSuccessIsLogged(t *testing.T) {
	var closed []string
	launcher, browser, _ := newFakes(&closed)
	browser.closeErr = errors.New("browser crashed")

	core, logs := observer.New(zap.WarnLevel)
	text, err := NewBrowserFetcher(launcher, 0, zap.New(core).Sugar()).PageText(context.Background(), "https://acme.io")
	require.NoError(t, err)
	assert.Equal(t, "Acme builds rockets", text)
	assert.Equal(t, 1, logs.Len())
}

func TestPageText_PageOpenErrorClosesBrowser(t *testing.T) {
	var closed []string
	launcher, browser, _ := newFakes(&closed)
	browser.pageErr = errors.New("target crashed")

	_, err := NewBrowserFetcher(launcher, 0, nil).PageText(context.Background(), "https://acme.io")
	require.Error(t, err)
	assert.Equal(t, []string{"browser"}, closed)
}

func TestPageText_LaunchError(t *testing.T) {
	launchErr := errors.New("chrome not found")
	_, err := NewBrowserFetcher(&fakeLauncher{err: launchErr}, 0, nil).PageText(context.Background(), "https://acme.io")

	var fetchErr *Error
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, "browser launch failed", fetchErr.Message)
	assert.ErrorIs(t, err, launchErr)
}
