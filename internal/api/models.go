package api

// Page is the body of every list response. Next is the URL of the
// following page, or null on the last one.
type Page[R any] struct {
	Next    *string `json:"next"`
	Results []R     `json:"results"`
}
