package dto

// CreateTripRequest is the payload for creating a trip in a group
type CreateTripRequest struct {
	GroupID      string  `json:"group_id" validate:"required,uuid"`
	Name         string  `json:"name" validate:"required,min=1,max=200"`
	Destination  string  `json:"destination" validate:"max=200"`
	Description  string  `json:"description,omitempty"`
	DateFrom     string  `json:"date_from" validate:"required"`
	DateTo       string  `json:"date_to" validate:"required"`
	Currency     string  `json:"currency,omitempty"`
	DownPayment  *string `json:"down_payment,omitempty"`
	FullPayment  *string `json:"full_payment,omitempty"`
	FinalPayment *string `json:"final_payment,omitempty"`
}

// SubscribeRequest is the payload for subscribing to a trip
type SubscribeRequest struct {
	// Additional holds birthdates (YYYY-MM-DD) of extra attendees.
	Additional []string `json:"additional,omitempty"`
}

// RemoveSubscriberRequest is the admin payload for removing a subscriber
type RemoveSubscriberRequest struct {
	UserID string `json:"user_id" validate:"required,uuid"`
	// Override confirms removal although payments were made.
	Override bool `json:"override"`
}

// TripResponse is the public view of a trip
type TripResponse struct {
	ID           string  `json:"id"`
	GroupID      string  `json:"group_id"`
	Name         string  `json:"name"`
	Destination  string  `json:"destination"`
	Description  string  `json:"description"`
	DateFrom     string  `json:"date_from"`
	DateTo       string  `json:"date_to"`
	Status       string  `json:"status"`
	DownPayment  *string `json:"down_payment,omitempty"`
	FullPayment  *string `json:"full_payment,omitempty"`
	FinalPayment *string `json:"final_payment,omitempty"`
	Currency     string  `json:"currency"`
	CreatedBy    string  `json:"created_by"`
	CreatedAt    string  `json:"created_at"`
	UpdatedAt    string  `json:"updated_at"`
}

// TripListResponse wraps a group's trips
type TripListResponse struct {
	Trips []TripResponse `json:"trips"`
}

// SubscriptionResponse is the public view of a trip subscription
type SubscriptionResponse struct {
	TripID       string   `json:"trip_id"`
	UserID       string   `json:"user_id"`
	Role         string   `json:"role"`
	SubscribedAt string   `json:"subscribed_at"`
	Additional   []string `json:"additional,omitempty"`

	DownPayment         bool    `json:"down_payment"`
	DownPaymentPaypalID *string `json:"down_payment_paypal_id,omitempty"`
	DownPaymentAmount   *string `json:"down_payment_amount,omitempty"`

	FullPayment         bool    `json:"full_payment"`
	FullPaymentPaypalID *string `json:"full_payment_paypal_id,omitempty"`
	FullPaymentAmount   *string `json:"full_payment_amount,omitempty"`

	FinalPayment         bool    `json:"final_payment"`
	FinalPaymentPaypalID *string `json:"final_payment_paypal_id,omitempty"`
	FinalPaymentAmount   *string `json:"final_payment_amount,omitempty"`
}

// SubscriberListResponse wraps a trip's subscriptions
type SubscriberListResponse struct {
	Subscribers []SubscriptionResponse `json:"subscribers"`
}
