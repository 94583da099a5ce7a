package push

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/mikanbako/pocketquest/internal/model"
	"github.com/mikanbako/pocketquest/internal/store"
)

// Sender abstracts the web push delivery so the notifier can be tested
// without a push service.
type Sender interface {
	Enabled() bool
	Send(sub *model.PushSubscription, payload Payload) error
}

// Notifier fans a notification out to stored subscriptions. Transient
// failures are retried with exponential backoff; expired subscriptions
// are pruned.
type Notifier struct {
	sender Sender
	subs   *store.PushStore
	logger *slog.Logger

	baseDelay  time.Duration
	maxRetries uint64
}

func NewNotifier(sender Sender, subs *store.PushStore, logger *slog.Logger) *Notifier {
	return &Notifier{
		sender:     sender,
		subs:       subs,
		logger:     logger,
		baseDelay:  500 * time.Millisecond,
		maxRetries: 3,
	}
}

// NotifyParents sends a notification to every parent subscription in the
// family. Used when a child submits a completion or event result.
func (n *Notifier) NotifyParents(ctx context.Context, familyID int64, payload Payload) {
	if !n.sender.Enabled() {
		return
	}
	subs, err := n.subs.ListParents(familyID)
	if err != nil {
		n.logger.Error("list parent subscriptions", "error", err)
		return
	}
	n.sendAll(ctx, subs, payload)
}

// NotifyUser sends a notification to every subscription of one user. Used
// when a parent approves or rejects a child's submission.
func (n *Notifier) NotifyUser(ctx context.Context, userID int64, payload Payload) {
	if !n.sender.Enabled() {
		return
	}
	subs, err := n.subs.ListByUser(userID)
	if err != nil {
		n.logger.Error("list user subscriptions", "error", err)
		return
	}
	n.sendAll(ctx, subs, payload)
}

func (n *Notifier) sendAll(ctx context.Context, subs []model.PushSubscription, payload Payload) {
	for i := range subs {
		sub := subs[i]
		err := n.sendWithRetry(ctx, &sub, payload)
		if errors.Is(err, ErrExpired) {
			if err := n.subs.DeleteByEndpoint(sub.Endpoint); err != nil {
				n.logger.Error("prune expired subscription", "error", err)
			}
			continue
		}
		if err != nil {
			n.logger.Error("send push", "endpoint", sub.Endpoint, "error", err)
		}
	}
}

func (n *Notifier) sendWithRetry(ctx context.Context, sub *model.PushSubscription, payload Payload) error {
	backoff := retry.WithMaxRetries(n.maxRetries, retry.NewExponential(n.baseDelay))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := n.sender.Send(sub, payload)
		if err == nil || errors.Is(err, ErrExpired) {
			return err
		}
		return retry.RetryableError(err)
	})
}
