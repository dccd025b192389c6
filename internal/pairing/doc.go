// Package pairing implements the curlydots browser-based device pairing
// handshake: create a pairing session, hand the user a code and URL, then
// poll the backend until the browser-side action resolves.
//
// The poll loop runs on a fixed interval and distinguishes five terminal
// outcomes: approved (credential returned), denied, expired server-side,
// timed out against the local clock, and canceled by the user. Conditional
// request validators (ETag / Last-Modified) are echoed back so the backend
// can answer "unchanged" cheaply across what may be minutes of waiting.
package pairing
