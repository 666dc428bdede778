package models

// MerchantConfig holds the Daraja credentials and callback routing for the
// merchant. Sourced from the config provider, never read from the
// environment inside services.
type MerchantConfig struct {
	BaseURL         string `json:"base_url"`
	ShortCode       string `json:"short_code"`
	Passkey         string `json:"-"`
	ConsumerKey     string `json:"-"`
	ConsumerSecret  string `json:"-"`
	CallbackBaseURL string `json:"callback_base_url"`
}
