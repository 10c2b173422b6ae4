package providers

import (
	"context"
	"fmt"
)

// Request is the normalized payment request every rail accepts.
// Amount is in minor units.
type Request struct {
	Amount      int64
	Currency    string
	PhoneNumber string
	Email       string
	Description string
	// Reference is our correlation reference; it travels to the provider
	// and comes back on webhooks.
	Reference string
	Metadata  map[string]string
}

// Intent is the provider's answer to a create call: either a hosted
// redirect (PaymentLink) or a client-confronting secret (ClientSecret),
// plus the provider-assigned reference.
type Intent struct {
	Reference    string
	ClientSecret string
	PaymentLink  string
}

// Result reports the outcome of a capture/release/refund call.
type Result struct {
	TransactionID string
	Status        string
}

// Status is a normalized point-in-time view of a provider-side payment.
// Status values use the models.PaymentStatus* vocabulary.
type Status struct {
	Reference     string
	TransactionID string
	Status        string
	Amount        int64
	Currency      string
}

// Error is a provider call failure. Retryable distinguishes transient
// conditions (network, timeout, provider 5xx) from terminal rejections
// (declines, unsupported operations); callers must treat the two
// differently, so the flag is part of the contract.
type Error struct {
	Provider  string
	Code      string
	Message   string
	Retryable bool
	Err       error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Provider, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether err is a transient provider failure.
func IsRetryable(err error) bool {
	if pe, ok := err.(*Error); ok {
		return pe.Retryable
	}
	return false
}

// Adapter is the uniform surface over divergent payment rails. Every
// provider owns its own signature scheme but exposes the same methods, so
// the engine never branches on provider identity outside the registry.
type Adapter interface {
	Name() string
	// SupportsHolds reports whether the rail can reserve funds. Mobile
	// rails cannot; their holds are logical only.
	SupportsHolds() bool
	// SupportsPartialCapture reports whether a hold can be captured for
	// less than the held amount.
	SupportsPartialCapture() bool

	CreatePayment(ctx context.Context, req Request) (*Intent, error)
	CreateHold(ctx context.Context, req Request) (*Intent, error)
	Capture(ctx context.Context, reference string, amount int64) (*Result, error)
	Release(ctx context.Context, reference string) (*Result, error)
	// Refund refunds the given amount; amount 0 means full refund.
	Refund(ctx context.Context, reference string, amount int64) (*Result, error)
	Verify(ctx context.Context, reference string) (*Status, error)

	// SignatureHeader names the HTTP header carrying the webhook signature.
	SignatureHeader() string
	VerifyWebhookSignature(rawBody []byte, signatureHeader string) bool
}

// Registry is the closed set of configured providers.
type Registry struct {
	adapters map[string]Adapter
}

func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[string]Adapter, len(adapters))}
	for _, a := range adapters {
		r.adapters[a.Name()] = a
	}
	return r
}

func (r *Registry) Get(name string) (Adapter, bool) {
	a, ok := r.adapters[name]
	return a, ok
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	return names
}
