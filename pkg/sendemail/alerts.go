package sendemail

import (
	"context"
	"fmt"
	"html"
	"time"

	"go.uber.org/zap"

	"nftmarket/pkg/ledger"
)

// Alerter mails the operator about sales and fee withdrawals. It implements
// ledger.Publisher; Publish only enqueues and Run does the sending.
type Alerter struct {
	email EmailService
	to    string
	queue chan ledger.Event
}

func NewAlerter(email EmailService, to string) *Alerter {
	return &Alerter{email: email, to: to, queue: make(chan ledger.Event, 64)}
}

func (a *Alerter) Publish(e ledger.Event) {
	if e.Type != ledger.SaleExecutedEvent && e.Type != ledger.FeesWithdrawnEvent {
		return
	}
	select {
	case a.queue <- e:
	default:
		zap.L().With(zap.String("event", e.ID)).Warn("Alerts: queue full, dropping alert")
	}
}

// Run sends queued alerts until ctx is done.
func (a *Alerter) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case e := <-a.queue:
			a.send(ctx, e)
		}
	}
}

func (a *Alerter) send(ctx context.Context, e ledger.Event) {
	subject, body := composeAlert(e)

	sendCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := a.email.SendEmail(sendCtx, subject, a.to, body, "<p>"+html.EscapeString(body)+"</p>"); err != nil {
		zap.L().With(zap.String("event", e.ID), zap.Error(err)).Error("Alerts: send failed")
		return
	}
	zap.L().With(zap.String("event", e.ID), zap.String("type", string(e.Type))).Debug("Alerts: sent")
}

func composeAlert(e ledger.Event) (string, string) {
	switch e.Type {
	case ledger.SaleExecutedEvent:
		subject := fmt.Sprintf("Sale: %s #%d", e.Registry, e.AssetID)
		body := fmt.Sprintf("%s bought %s #%d from %s for %s. Seller received %s; royalty of %s paid to %s.",
			e.Buyer, e.Registry, e.AssetID, e.Seller, amountText(e.Price), amountText(e.Amount), amountText(e.RoyaltyAmount), orNone(e.RoyaltyBeneficiary))
		return subject, body
	case ledger.FeesWithdrawnEvent:
		return "Listing fees withdrawn", fmt.Sprintf("%s withdrew %s in listing fees.", e.Buyer, amountText(e.Amount))
	}
	return string(e.Type), e.ID
}

func amountText(a *ledger.Amount) string {
	if a == nil {
		return "0"
	}
	return a.String()
}

func orNone(a ledger.Address) string {
	if a.IsZero() {
		return "nobody"
	}
	return a.String()
}
