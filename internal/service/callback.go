package service

import (
	"net/url"
	"strings"
)

// CallbackConfig builds the webhook callback URL handed to the runner with
// every submission. BaseURL is the externally visible address of this
// service; Token is the shared secret the webhook handler verifies.
type CallbackConfig struct {
	BaseURL string
	Token   string
}

// URL returns the absolute callback URL, freshly constructed per submission.
func (c CallbackConfig) URL() string {
	return strings.TrimRight(c.BaseURL, "/") + "/api/webhook/runpod?token=" + url.QueryEscape(c.Token)
}
