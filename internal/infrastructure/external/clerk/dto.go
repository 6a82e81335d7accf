package clerk

// Wire types for the Clerk Backend API. Only the fields the sync consumes
// are mapped; Clerk sends far more.

// UserDTO is a Clerk user object.
type UserDTO struct {
	ID              string            `json:"id"`
	FirstName       string            `json:"first_name"`
	LastName        string            `json:"last_name"`
	ImageURL        string            `json:"image_url"`
	PrimaryEmailID  string            `json:"primary_email_address_id"`
	EmailAddresses  []EmailAddressDTO `json:"email_addresses"`
	CreatedAt       int64             `json:"created_at"`
	UpdatedAt       int64             `json:"updated_at"`
}

// EmailAddressDTO is one email address attached to a Clerk user.
type EmailAddressDTO struct {
	ID           string          `json:"id"`
	EmailAddress string          `json:"email_address"`
	Verification VerificationDTO `json:"verification"`
}

// VerificationDTO is the verification state of an email address.
type VerificationDTO struct {
	Status string `json:"status"`
}

// APIErrorDTO is Clerk's error envelope.
type APIErrorDTO struct {
	Errors []struct {
		Message     string `json:"message"`
		LongMessage string `json:"long_message"`
		Code        string `json:"code"`
	} `json:"errors"`
}

// Error implements the error interface.
func (e *APIErrorDTO) Error() string {
	if len(e.Errors) > 0 {
		return "clerk: " + e.Errors[0].Message
	}
	return "clerk: unknown api error"
}

// WebhookEventDTO is the envelope Clerk posts to webhook endpoints.
type WebhookEventDTO struct {
	Type string  `json:"type"`
	Data UserDTO `json:"data"`
}
