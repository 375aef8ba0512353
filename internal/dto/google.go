package dto

// GoogleConnectResponse carries the consent URL the client should open.
type GoogleConnectResponse struct {
	URL       string `json:"url"`
	ExpiresAt string `json:"expiresAt"`
}

// GoogleCallbackRequest is the query Google redirects back with.
type GoogleCallbackRequest struct {
	State string `form:"state" validate:"required"`
	Code  string `form:"code" validate:"required"`
	Error string `form:"error"`
}

// GoogleLinkResult confirms the linked account.
type GoogleLinkResult struct {
	Message string `json:"message"`
	UserID  string `json:"userId"`
}
