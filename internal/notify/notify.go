// Package notify shows transient messages to the user and tracks the route
// the CLI is on. It stands in for toasts and page navigation.
package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/dgellow/finfront/internal/log"
)

// Level is the severity of a notification
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notification is one transient message
type Notification struct {
	Level   Level
	Message string
}

// Notifier shows notifications
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// Navigator knows the current route and can move to another one
type Navigator interface {
	CurrentPath() string
	Navigate(path string)
}

// ConsoleNotifier renders notifications as one-line toasts
type ConsoleNotifier struct {
	mu     sync.Mutex
	out    io.Writer
	color  bool
	styles map[Level]lipgloss.Style
}

// NewConsoleNotifier creates a notifier writing to out (stderr when nil)
func NewConsoleNotifier(out io.Writer, color bool) *ConsoleNotifier {
	if out == nil {
		out = os.Stderr
	}
	r := lipgloss.NewRenderer(out)
	base := r.NewStyle().Bold(true).Padding(0, 1)
	return &ConsoleNotifier{
		out:   out,
		color: color,
		styles: map[Level]lipgloss.Style{
			LevelInfo:    base.Foreground(lipgloss.Color("12")),
			LevelSuccess: base.Foreground(lipgloss.Color("10")),
			LevelWarning: base.Foreground(lipgloss.Color("11")),
			LevelError:   base.Foreground(lipgloss.Color("9")),
		},
	}
}

var labels = map[Level]string{
	LevelInfo:    "info",
	LevelSuccess: "ok",
	LevelWarning: "warn",
	LevelError:   "error",
}

// Notify writes n to the output
func (c *ConsoleNotifier) Notify(_ context.Context, n Notification) {
	label, ok := labels[n.Level]
	if !ok {
		label = string(n.Level)
	}

	var line string
	if style, ok := c.styles[n.Level]; ok && c.color {
		line = style.Render(label) + " " + n.Message
	} else {
		line = fmt.Sprintf("[%s] %s", label, n.Message)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out, line)
}

// RouteNavigator tracks the route in memory and prints where the user
// should go when navigation happens
type RouteNavigator struct {
	mu      sync.Mutex
	path    string
	out     io.Writer
	onVisit func(path string)
}

// NewRouteNavigator creates a navigator starting at path
func NewRouteNavigator(path string, out io.Writer) *RouteNavigator {
	if out == nil {
		out = os.Stderr
	}
	return &RouteNavigator{path: path, out: out}
}

// OnNavigate registers a callback run after every navigation
func (n *RouteNavigator) OnNavigate(fn func(path string)) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.onVisit = fn
}

// CurrentPath returns the current route
func (n *RouteNavigator) CurrentPath() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.path
}

// Navigate moves to path
func (n *RouteNavigator) Navigate(path string) {
	n.mu.Lock()
	from := n.path
	n.path = path
	fn := n.onVisit
	n.mu.Unlock()

	log.LogDebugWithFields("navigate", "Route changed", map[string]any{
		"from": from,
		"to":   path,
	})
	fmt.Fprintf(n.out, "-> %s (run `finfront login` to sign in again)\n", path)

	if fn != nil {
		fn(path)
	}
}

// Discard drops every notification
type Discard struct{}

// Notify implements Notifier
func (Discard) Notify(context.Context, Notification) {}
