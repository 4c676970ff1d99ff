package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/checkout/session"
	"github.com/stripe/stripe-go/v79/webhook"

	"nexcv-backend/internal/credits"
)

// StripeProvider implements Provider on Stripe Checkout.
type StripeProvider struct {
	webhookSecret string
	frontendURL   string
}

// NewStripeProvider configures the global Stripe client. frontendURL is
// where the buyer lands after checkout.
func NewStripeProvider(secretKey, webhookSecret, frontendURL string) *StripeProvider {
	stripe.Key = secretKey

	if !strings.HasPrefix(frontendURL, "http") {
		frontendURL = "https://" + frontendURL
	}
	return &StripeProvider{
		webhookSecret: webhookSecret,
		frontendURL:   strings.TrimRight(frontendURL, "/"),
	}
}

func (p *StripeProvider) CreateCheckout(ctx context.Context, userID string, creditCount int64) (string, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(credits.Currency),
					UnitAmount: stripe.Int64(credits.PricePerCredit),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(fmt.Sprintf("%d NexCV Credits", creditCount)),
					},
				},
				Quantity: stripe.Int64(creditCount),
			},
		},
		SuccessURL: stripe.String(p.frontendURL + "/credits/success?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:  stripe.String(p.frontendURL + "/credits/cancel"),
	}
	params.Context = ctx
	params.AddMetadata("user_id", userID)
	params.AddMetadata("credits", strconv.FormatInt(creditCount, 10))

	s, err := session.New(params)
	if err != nil {
		return "", fmt.Errorf("create checkout session: %w", err)
	}
	return s.URL, nil
}

func (p *StripeProvider) VerifyWebhook(payload []byte, signatureHeader string) (*CheckoutCompleted, error) {
	event, err := webhook.ConstructEvent(payload, signatureHeader, p.webhookSecret)
	if err != nil {
		return nil, fmt.Errorf("verify webhook: %w", err)
	}

	if event.Type != "checkout.session.completed" {
		return nil, nil
	}

	var cs stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &cs); err != nil {
		return nil, fmt.Errorf("decode checkout session: %w", err)
	}

	creditCount, err := strconv.ParseInt(cs.Metadata["credits"], 10, 64)
	if err != nil || creditCount <= 0 {
		return nil, fmt.Errorf("invalid credits metadata %q", cs.Metadata["credits"])
	}

	completed := &CheckoutCompleted{
		UserID:  cs.Metadata["user_id"],
		Credits: creditCount,
	}
	if cs.CustomerDetails != nil {
		completed.Email = cs.CustomerDetails.Email
	}
	return completed, nil
}
