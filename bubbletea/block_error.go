package bubbletea

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pratikoai/chatstream"
)

var _ MessageBlock = (*ErrorBlock)(nil)

// ErrorBlock renders a session failure. Usage-limit rejections show the
// window details and, when the backend allows it, how to bypass.
type ErrorBlock struct {
	err    error
	styles Styles
}

// NewErrorBlock creates an ErrorBlock.
func NewErrorBlock(err error, styles Styles) *ErrorBlock {
	return &ErrorBlock{err: err, styles: styles}
}

func (b *ErrorBlock) View(width int) string {
	var e *chatstream.Error
	if !errors.As(b.err, &e) {
		return wrap(b.styles.Error.Render(fmt.Sprintf("Error: %v", b.err)), width)
	}

	switch e.Kind {
	case chatstream.ErrorTimeout:
		return wrap(b.styles.Warning.Render("Timed out: "+e.Message), width)
	case chatstream.ErrorUsageLimitExceeded:
		return wrap(b.usageLimit(e), width)
	case chatstream.ErrorUnauthorized:
		return wrap(b.styles.Error.Render("Not authorized: "+message(e)), width)
	case chatstream.ErrorConnectionLost:
		return wrap(b.styles.Error.Render("Connection lost: "+message(e)), width)
	}
	return wrap(b.styles.Error.Render("Error: "+message(e)), width)
}

func (b *ErrorBlock) usageLimit(e *chatstream.Error) string {
	var out strings.Builder
	out.WriteString(b.styles.Error.Render("Usage limit exceeded: " + message(e)))
	ul := e.UsageLimit
	if ul == nil {
		return out.String()
	}
	var details []string
	if ul.WindowType != "" {
		details = append(details, ul.WindowType+" window")
	}
	if ul.Limit > 0 {
		details = append(details, fmt.Sprintf("%.2f of %.2f used", ul.CostConsumed, ul.Limit))
	}
	if !ul.ResetAt.IsZero() {
		details = append(details, "resets "+ul.ResetAt.Format("2006-01-02 15:04 MST"))
	}
	if len(details) > 0 {
		out.WriteString("\n")
		out.WriteString(b.styles.Muted.Render(strings.Join(details, ", ")))
	}
	if ul.CanBypass {
		out.WriteString("\n")
		out.WriteString(b.styles.Warning.Render("Type /bypass to send anyway."))
	}
	return out.String()
}

func message(e *chatstream.Error) string {
	switch {
	case e.UsageLimit != nil && e.UsageLimit.Message != "":
		return e.UsageLimit.Message
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return e.Err.Error()
	}
	return string(e.Kind)
}
