package output

import (
	"context"
	"time"
)

// BrowserPort is what the Go-native tool server drives. Elements are
// addressed by the refs handed out by the latest Snapshot.
type BrowserPort interface {
	Navigate(ctx context.Context, url string) error
	Snapshot(ctx context.Context) (string, error)
	Click(ctx context.Context, ref string) error
	Type(ctx context.Context, ref, text string, submit bool) error
	PressKey(ctx context.Context, key string) error
	WaitForText(ctx context.Context, text string, gone bool) error
	Wait(ctx context.Context, d time.Duration) error
	Resize(ctx context.Context, width, height int) error
	// Screenshot returns a JPEG of the viewport.
	Screenshot(ctx context.Context) ([]byte, error)

	CurrentURL() string
	Close()
}
