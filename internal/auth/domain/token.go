package domain

// TokenTypeBearer is the scheme name returned alongside access tokens.
const TokenTypeBearer = "Bearer"

// AccessToken is a freshly signed bearer token. It is never persisted; it is
// a pure function of (session, user snapshot) at issuance time.
type AccessToken struct {
	Token     string `json:"access_token"`
	Type      string `json:"token_type"`
	ExpiresIn int64  `json:"expires_in"`
}

// LoginResult is what a successful factor verification produces: the session,
// its raw identity token (returned exactly once, never retrievable again),
// and a signed access token. MFAPending mirrors the session state so callers
// know the token must not be treated as fully authenticated yet.
type LoginResult struct {
	Session       Session
	IdentityToken string
	AccessToken   AccessToken
	MFAPending    bool
}
