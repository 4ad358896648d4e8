// Package tmdb wraps the TMDB popular-movies endpoint used to produce the
// pipeline's input record set.
//
// The client authenticates with a v4 read access token (Bearer), applies the
// configured language and region, and projects each result to the fields the
// catalog front end consumes. Use WithHTTPClient in tests to point it at an
// httptest server.
package tmdb
