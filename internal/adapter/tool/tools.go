package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"kosher/internal/application/port/output"
	"kosher/internal/domain/entity"
)

// Result is what a tool hands back to the server: text, and optionally
// one image.
type Result struct {
	Text      string
	Image     []byte
	ImageMIME string
}

type Tool interface {
	Name() string
	Description() string
	Parameters() map[string]any
	Execute(ctx context.Context, args json.RawMessage) (Result, error)
}

func text(format string, a ...any) Result {
	return Result{Text: fmt.Sprintf(format, a...)}
}

func decode(args json.RawMessage, v any) error {
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}
	if err := json.Unmarshal(args, v); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

func object(props map[string]any, required ...string) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func stringProp(description string) map[string]any {
	return map[string]any{"type": "string", "description": description}
}

type NavigateTool struct {
	browser output.BrowserPort
}

func NewNavigateTool(browser output.BrowserPort) *NavigateTool {
	return &NavigateTool{browser: browser}
}

func (t *NavigateTool) Name() string        { return string(entity.ToolBrowserNavigate) }
func (t *NavigateTool) Description() string { return "Navigate to a URL" }
func (t *NavigateTool) Parameters() map[string]any {
	return object(map[string]any{
		"url": stringProp("The URL to navigate to"),
	}, "url")
}

func (t *NavigateTool) Execute(ctx context.Context, args json.RawMessage) (Result, error) {
	var input struct {
		URL string `json:"url"`
	}
	if err := decode(args, &input); err != nil {
		return Result{}, err
	}
	if err := t.browser.Navigate(ctx, input.URL); err != nil {
		return Result{}, err
	}
	return text("Navigated to %s", t.browser.CurrentURL()), nil
}

type SnapshotTool struct {
	browser output.BrowserPort
}

func NewSnapshotTool(browser output.BrowserPort) *SnapshotTool {
	return &SnapshotTool{browser: browser}
}

func (t *SnapshotTool) Name() string { return string(entity.ToolBrowserSnapshot) }
func (t *SnapshotTool) Description() string {
	return "Capture accessibility snapshot of the current page. Use the [ref=...] values to address elements"
}
func (t *SnapshotTool) Parameters() map[string]any {
	return object(map[string]any{})
}

func (t *SnapshotTool) Execute(ctx context.Context, _ json.RawMessage) (Result, error) {
	snap, err := t.browser.Snapshot(ctx)
	if err != nil {
		return Result{}, err
	}
	return Result{Text: snap}, nil
}

// elementProps are shared by every tool that acts on a snapshot element.
func elementProps() map[string]any {
	return map[string]any{
		"element": stringProp("Human-readable element description used to obtain permission to interact with the element"),
		"ref":     stringProp("Exact target element reference from the page snapshot"),
	}
}

type ClickTool struct {
	browser output.BrowserPort
}

func NewClickTool(browser output.BrowserPort) *ClickTool {
	return &ClickTool{browser: browser}
}

func (t *ClickTool) Name() string        { return string(entity.ToolBrowserClick) }
func (t *ClickTool) Description() string { return "Perform click on a web page" }
func (t *ClickTool) Parameters() map[string]any {
	return object(elementProps(), "element", "ref")
}

func (t *ClickTool) Execute(ctx context.Context, args json.RawMessage) (Result, error) {
	var input struct {
		Element string `json:"element"`
		Ref     string `json:"ref"`
	}
	if err := decode(args, &input); err != nil {
		return Result{}, err
	}
	if err := t.browser.Click(ctx, input.Ref); err != nil {
		return Result{}, err
	}
	return text("Clicked %s", describe(input.Element, input.Ref)), nil
}

type TypeTool struct {
	browser output.BrowserPort
}

func NewTypeTool(browser output.BrowserPort) *TypeTool {
	return &TypeTool{browser: browser}
}

func (t *TypeTool) Name() string        { return string(entity.ToolBrowserType) }
func (t *TypeTool) Description() string { return "Type text into editable element" }
func (t *TypeTool) Parameters() map[string]any {
	props := elementProps()
	props["text"] = stringProp("Text to type into the element")
	props["submit"] = map[string]any{
		"type":        "boolean",
		"description": "Whether to submit entered text (press Enter after)",
	}
	return object(props, "element", "ref", "text")
}

func (t *TypeTool) Execute(ctx context.Context, args json.RawMessage) (Result, error) {
	var input struct {
		Element string `json:"element"`
		Ref     string `json:"ref"`
		Text    string `json:"text"`
		Submit  bool   `json:"submit"`
	}
	if err := decode(args, &input); err != nil {
		return Result{}, err
	}
	if err := t.browser.Type(ctx, input.Ref, input.Text, input.Submit); err != nil {
		return Result{}, err
	}
	if input.Submit {
		return text("Typed %q into %s and submitted", input.Text, describe(input.Element, input.Ref)), nil
	}
	return text("Typed %q into %s", input.Text, describe(input.Element, input.Ref)), nil
}

type PressKeyTool struct {
	browser output.BrowserPort
}

func NewPressKeyTool(browser output.BrowserPort) *PressKeyTool {
	return &PressKeyTool{browser: browser}
}

func (t *PressKeyTool) Name() string        { return string(entity.ToolBrowserPressKey) }
func (t *PressKeyTool) Description() string { return "Press a key on the keyboard" }
func (t *PressKeyTool) Parameters() map[string]any {
	return object(map[string]any{
		"key": stringProp("Name of the key to press or a character to generate, such as `ArrowLeft` or `a`"),
	}, "key")
}

func (t *PressKeyTool) Execute(ctx context.Context, args json.RawMessage) (Result, error) {
	var input struct {
		Key string `json:"key"`
	}
	if err := decode(args, &input); err != nil {
		return Result{}, err
	}
	if err := t.browser.PressKey(ctx, input.Key); err != nil {
		return Result{}, err
	}
	return text("Pressed %s", input.Key), nil
}

type WaitForTool struct {
	browser output.BrowserPort
}

func NewWaitForTool(browser output.BrowserPort) *WaitForTool {
	return &WaitForTool{browser: browser}
}

func (t *WaitForTool) Name() string { return string(entity.ToolBrowserWaitFor) }
func (t *WaitForTool) Description() string {
	return "Wait for text to appear or disappear or a specified time to pass"
}
func (t *WaitForTool) Parameters() map[string]any {
	return object(map[string]any{
		"time":     map[string]any{"type": "number", "description": "The time to wait in seconds"},
		"text":     stringProp("The text to wait for"),
		"textGone": stringProp("The text to wait for to disappear"),
	})
}

func (t *WaitForTool) Execute(ctx context.Context, args json.RawMessage) (Result, error) {
	var input struct {
		Time     float64 `json:"time"`
		Text     string  `json:"text"`
		TextGone string  `json:"textGone"`
	}
	if err := decode(args, &input); err != nil {
		return Result{}, err
	}

	switch {
	case input.Text != "":
		if err := t.browser.WaitForText(ctx, input.Text, false); err != nil {
			return Result{}, err
		}
		return text("Text %q appeared", input.Text), nil
	case input.TextGone != "":
		if err := t.browser.WaitForText(ctx, input.TextGone, true); err != nil {
			return Result{}, err
		}
		return text("Text %q disappeared", input.TextGone), nil
	case input.Time > 0:
		d := time.Duration(input.Time * float64(time.Second))
		if err := t.browser.Wait(ctx, d); err != nil {
			return Result{}, err
		}
		return text("Waited %s", d), nil
	}
	return Result{}, fmt.Errorf("one of text, textGone or time is required")
}

type ResizeTool struct {
	browser output.BrowserPort
}

func NewResizeTool(browser output.BrowserPort) *ResizeTool {
	return &ResizeTool{browser: browser}
}

func (t *ResizeTool) Name() string        { return "browser_resize" }
func (t *ResizeTool) Description() string { return "Resize the browser window" }
func (t *ResizeTool) Parameters() map[string]any {
	return object(map[string]any{
		"width":  map[string]any{"type": "number", "description": "Width of the browser window"},
		"height": map[string]any{"type": "number", "description": "Height of the browser window"},
	}, "width", "height")
}

func (t *ResizeTool) Execute(ctx context.Context, args json.RawMessage) (Result, error) {
	var input struct {
		Width  int `json:"width"`
		Height int `json:"height"`
	}
	if err := decode(args, &input); err != nil {
		return Result{}, err
	}
	if err := t.browser.Resize(ctx, input.Width, input.Height); err != nil {
		return Result{}, err
	}
	return text("Resized to %dx%d", input.Width, input.Height), nil
}

type ScreenshotTool struct {
	browser output.BrowserPort
}

func NewScreenshotTool(browser output.BrowserPort) *ScreenshotTool {
	return &ScreenshotTool{browser: browser}
}

func (t *ScreenshotTool) Name() string        { return "browser_take_screenshot" }
func (t *ScreenshotTool) Description() string { return "Take a screenshot of the current page" }
func (t *ScreenshotTool) Parameters() map[string]any {
	return object(map[string]any{})
}

func (t *ScreenshotTool) Execute(ctx context.Context, _ json.RawMessage) (Result, error) {
	img, err := t.browser.Screenshot(ctx)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Text:      fmt.Sprintf("Screenshot of %s", t.browser.CurrentURL()),
		Image:     img,
		ImageMIME: "image/jpeg",
	}, nil
}

func describe(element, ref string) string {
	if element == "" {
		return ref
	}
	return fmt.Sprintf("%s (%s)", element, ref)
}

// All returns every tool the server advertises, primitives first.
func All(browser output.BrowserPort) []Tool {
	return []Tool{
		NewNavigateTool(browser),
		NewSnapshotTool(browser),
		NewClickTool(browser),
		NewTypeTool(browser),
		NewPressKeyTool(browser),
		NewWaitForTool(browser),
		NewResizeTool(browser),
		NewScreenshotTool(browser),
	}
}
