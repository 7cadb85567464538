package relay

import (
	"github.com/atotto/clipboard"
	"github.com/pkg/browser"
)

// SystemClipboard writes to the desktop clipboard (xclip/xsel/wl-copy on
// Linux, pbcopy on macOS).
type SystemClipboard struct{}

func (SystemClipboard) WriteText(text string) error {
	return clipboard.WriteAll(text)
}

// Available reports whether a clipboard utility was found.
func (SystemClipboard) Available() bool {
	return !clipboard.Unsupported
}

// SystemOpener opens URLs in the default browser.
type SystemOpener struct{}

func (SystemOpener) Open(url string) error {
	return browser.OpenURL(url)
}
