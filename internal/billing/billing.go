package billing

import "context"

// CheckoutCompleted is the webhook event the credits flow cares about.
type CheckoutCompleted struct {
	UserID  string
	Credits int64
	Email   string
}

// Provider is the payment-processor collaborator. The rest of the service
// treats checkout creation and webhook verification as opaque: it hands over
// a user and a credit count, and later receives a verified completion event.
type Provider interface {
	// CreateCheckout starts a payment for the given credit count and
	// returns the redirect URL.
	CreateCheckout(ctx context.Context, userID string, credits int64) (string, error)
	// VerifyWebhook authenticates a webhook delivery and extracts the
	// completed-checkout event. Returns (nil, nil) for event types the
	// service does not act on.
	VerifyWebhook(payload []byte, signatureHeader string) (*CheckoutCompleted, error)
}
