package telephony

import "context"

// CallRequest describes one outbound voicemail-drop call.
type CallRequest struct {
	// To is the destination number in E.164 form.
	To string
	// From is the caller-ID presented to the destination.
	From string
	// VoiceURL is fetched by the provider for playback instructions.
	VoiceURL string
	// AMDCallbackURL receives the asynchronous machine-detection result.
	AMDCallbackURL string
}

// CallResponse is the provider's acknowledgment of an accepted call.
type CallResponse struct {
	SID    string
	Status string
}

// Dialer abstracts the telephony provider's call-placement API.
type Dialer interface {
	CreateCall(ctx context.Context, req CallRequest) (CallResponse, error)
}

// Credentials identify one provider account.
type Credentials struct {
	AccountSID string
	AuthToken  string
}

// DialerFactory builds a Dialer for a tenant's credentials. Injected so the
// resolver can be exercised without reaching the provider.
type DialerFactory func(creds Credentials) Dialer
