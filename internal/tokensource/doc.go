// Package tokensource turns a stored credential string into a usable access
// token, driving an interactive device pairing when no usable credential
// exists.
//
// Normalize accepts either a structured JSON record or a bare opaque token
// (the manually-pasted case) and never fails hard. Manager is the single
// entry point consumers use:
//
//	token, err := manager.Token(ctx)
//
// Manager also satisfies oauth2.TokenSource via OAuth2TokenSource, so the
// translation pipeline can mount the credential on an oauth2.Transport. No
// OAuth protocol is implemented; the pairing handshake is curlydots' own.
package tokensource
