package contact

import (
	"context"
	"fmt"
)

// Notifier pushes a plain-text note to the site admins.
type Notifier interface {
	NotifyAdmins(ctx context.Context, text string) error
}

// NotifierRelay forwards submissions to the admins, e.g. through the
// Telegram bot.
type NotifierRelay struct {
	Notifier Notifier
}

func (r NotifierRelay) Send(ctx context.Context, f Form) error {
	if r.Notifier == nil {
		return ErrNotConfigured
	}
	text := fmt.Sprintf("📬 New portfolio contact\n\nFrom: %s <%s>\n\n%s", f.Name, f.Email, f.Message)
	return r.Notifier.NotifyAdmins(ctx, text)
}
