// Package gatewaytest provides recording fakes of the external gateways.
package gatewaytest

import (
	"context"
	"fmt"
	"sync"

	"visitly/internal/gateways"
)

// RefundCall records one Refund invocation.
type RefundCall struct {
	PaymentRef string
	Amount     int64
}

// Payments is a PaymentGateway fake with call counters.
type Payments struct {
	mu          sync.Mutex
	captures    []int64
	refunds     []RefundCall
	CaptureErr  error
	RefundErr   error
	nextCapture int
}

var _ gateways.PaymentGateway = (*Payments)(nil)

func (p *Payments) Capture(_ context.Context, amount int64, _ gateways.Payer) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.captures = append(p.captures, amount)
	if p.CaptureErr != nil {
		return "", p.CaptureErr
	}
	p.nextCapture++
	return fmt.Sprintf("chrg_test_%d", p.nextCapture), nil
}

func (p *Payments) Refund(_ context.Context, paymentRef string, amount int64) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.refunds = append(p.refunds, RefundCall{PaymentRef: paymentRef, Amount: amount})
	if p.RefundErr != nil {
		return "", p.RefundErr
	}
	return "rfnd_" + paymentRef, nil
}

func (p *Payments) CaptureCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.captures)
}

// Captures returns the amounts passed to Capture in call order.
func (p *Payments) Captures() []int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]int64(nil), p.captures...)
}

func (p *Payments) RefundCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.refunds)
}

func (p *Payments) Refunds() []RefundCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]RefundCall(nil), p.refunds...)
}

// SentNotification records one Send invocation.
type SentNotification struct {
	Recipient gateways.Recipient
	Template  gateways.Template
	Data      map[string]string
}

// Notifications is a NotificationGateway fake.
type Notifications struct {
	mu   sync.Mutex
	sent []SentNotification
	Err  error
}

var _ gateways.NotificationGateway = (*Notifications)(nil)

func (n *Notifications) Send(_ context.Context, recipient gateways.Recipient, template gateways.Template, data map[string]string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.Err != nil {
		return n.Err
	}
	n.sent = append(n.sent, SentNotification{Recipient: recipient, Template: template, Data: data})
	return nil
}

func (n *Notifications) Sent() []SentNotification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]SentNotification(nil), n.sent...)
}

// CountTemplate returns how many notifications used the template.
func (n *Notifications) CountTemplate(t gateways.Template) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	count := 0
	for _, s := range n.sent {
		if s.Template == t {
			count++
		}
	}
	return count
}

// Abuse is an AbuseMonitor fake.
type Abuse struct {
	mu     sync.Mutex
	events []gateways.AbuseEvent
	Err    error
}

var _ gateways.AbuseMonitor = (*Abuse)(nil)

func (a *Abuse) Record(_ context.Context, event gateways.AbuseEvent) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.Err != nil {
		return a.Err
	}
	a.events = append(a.events, event)
	return nil
}

func (a *Abuse) Events() []gateways.AbuseEvent {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]gateways.AbuseEvent(nil), a.events...)
}
