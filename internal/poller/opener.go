package poller

import "github.com/cli/browser"

// Opener opens a deep-link target for the user
type Opener interface {
	Open(url string) error
}

// OpenerFunc adapts a function to Opener
type OpenerFunc func(url string) error

// Open calls f
func (f OpenerFunc) Open(url string) error {
	return f(url)
}

// BrowserOpener opens URLs in the system browser
type BrowserOpener struct{}

// Open launches the system browser
func (BrowserOpener) Open(url string) error {
	return browser.OpenURL(url)
}
