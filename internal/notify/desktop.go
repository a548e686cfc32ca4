package notify

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"hotelcheck/internal/alerting"
)

// toolAvailable checks if a command-line tool is available in PATH
func toolAvailable(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

// hasDisplay checks if an X11 or Wayland display is available
func hasDisplay() bool {
	return os.Getenv("DISPLAY") != "" || os.Getenv("WAYLAND_DISPLAY") != ""
}

// quoteAppleScript turns s into an AppleScript string literal.
func quoteAppleScript(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}

// quotePowerShell turns s into a single quoted PowerShell string literal.
func quotePowerShell(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// Popup shows a dialog box and blocks until the operator dismisses it.
type Popup struct {
	argv func(title, message string) []string
}

// NewPopup picks the dialog tool for the current platform, it fails if there
// is none.
func NewPopup() (*Popup, error) {
	return newPopup(runtime.GOOS, toolAvailable, hasDisplay())
}

func newPopup(goos string, available func(string) bool, display bool) (*Popup, error) {
	switch goos {
	case "linux", "freebsd", "openbsd", "netbsd":
		if !display {
			break
		}
		if available("zenity") {
			return &Popup{argv: func(title, message string) []string {
				return []string{"zenity", "--info", "--no-markup", "--title", title, "--text", message}
			}}, nil
		}
		if available("kdialog") {
			return &Popup{argv: func(title, message string) []string {
				return []string{"kdialog", "--title", title, "--msgbox", message}
			}}, nil
		}
		if available("notify-send") {
			return &Popup{argv: func(title, message string) []string {
				return []string{"notify-send", "-u", "critical", title, message}
			}}, nil
		}
	case "darwin":
		if available("osascript") {
			return &Popup{argv: func(title, message string) []string {
				script := fmt.Sprintf(
					`display dialog %s with title %s buttons {"OK"} default button "OK"`,
					quoteAppleScript(message), quoteAppleScript(title),
				)
				return []string{"osascript", "-e", script}
			}}, nil
		}
	case "windows":
		if available("powershell") {
			return &Popup{argv: func(title, message string) []string {
				script := fmt.Sprintf(
					"Add-Type -AssemblyName PresentationFramework; [System.Windows.MessageBox]::Show(%s, %s) | Out-Null",
					quotePowerShell(message), quotePowerShell(title),
				)
				return []string{"powershell", "-NoProfile", "-ExecutionPolicy", "Bypass", "-Command", script}
			}}, nil
		}
	}
	return nil, fmt.Errorf("unable to show a popup on %s, no dialog tool was found (zenity, kdialog, notify-send, osascript or powershell)", goos)
}

func (p *Popup) Name() string {
	return "popup"
}

func (p *Popup) Notify(ctx context.Context, preamble string, records alerting.Set) error {
	argv := p.argv(alertTitle, FormatMessage(preamble, records))
	return exec.CommandContext(ctx, argv[0], argv[1:]...).Run()
}

// Browser opens the portal in the default browser so a room can be booked
// right away.
type Browser struct {
	argv []string
}

func NewBrowser(url string) (*Browser, error) {
	return newBrowser(runtime.GOOS, url, toolAvailable)
}

func newBrowser(goos, url string, available func(string) bool) (*Browser, error) {
	var argv []string
	switch goos {
	case "darwin":
		argv = []string{"open", url}
	case "windows":
		argv = []string{"rundll32", "url.dll,FileProtocolHandler", url}
	default:
		argv = []string{"xdg-open", url}
	}
	if !available(argv[0]) {
		return nil, fmt.Errorf("unable to open a browser, %s was not found", argv[0])
	}
	return &Browser{argv: argv}, nil
}

func (b *Browser) Name() string {
	return "browser"
}

func (b *Browser) Notify(ctx context.Context, _ string, _ alerting.Set) error {
	return exec.CommandContext(ctx, b.argv[0], b.argv[1:]...).Run()
}

// Command runs an executable with the hotel names as its arguments.
type Command struct {
	name string
	path string
}

func NewCommand(name string) (*Command, error) {
	path, err := exec.LookPath(name)
	if err != nil {
		return nil, fmt.Errorf("alert command: %w", err)
	}
	return &Command{name: name, path: path}, nil
}

func (c *Command) Name() string {
	return "cmd:" + c.name
}

func (c *Command) Notify(ctx context.Context, _ string, records alerting.Set) error {
	cmd := exec.CommandContext(ctx, c.path, records.Names()...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	err := cmd.Run()
	if err != nil {
		return fmt.Errorf("run %s: %w", c.name, err)
	}
	return nil
}
