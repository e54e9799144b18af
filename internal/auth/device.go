package auth

// DeviceCodeResponse holds the initial response from a device authorization request.
// It contains the code to show the user and the parameters needed for polling.
type DeviceCodeResponse struct {
	DeviceCode      string
	UserCode        string
	VerificationURI string
	ExpiresIn       int // seconds until the device code expires
	Interval        int // minimum polling interval in seconds
}

// TokenResponse holds the access token granted at the end of the flow.
// GitHub OAuth App tokens do not expire, so there is no refresh token.
type TokenResponse struct {
	AccessToken string
	TokenType   string
	Scope       string
}
