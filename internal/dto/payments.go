package dto

// CapturePaymentRequest confirms a PayPal checkout for one payment stage
type CapturePaymentRequest struct {
	Stage   string `json:"stage" validate:"required,oneof=down full final"`
	OrderID string `json:"order_id" validate:"required"`
}

// ManualPaymentRequest marks a stage paid without a PayPal transaction
type ManualPaymentRequest struct {
	UserID string `json:"user_id" validate:"required,uuid"`
	Stage  string `json:"stage" validate:"required,oneof=down full final"`
	Amount string `json:"amount" validate:"required"`
}

// PaymentResponse wraps the authoritative subscription after a payment
// mutation, with the per-stage verification states.
type PaymentResponse struct {
	Subscription SubscriptionResponse `json:"subscription"`
	Stages       map[string]string    `json:"stages,omitempty"`
	Notification *Notification        `json:"notification,omitempty"`
}
