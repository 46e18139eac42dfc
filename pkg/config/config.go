// Package config holds delivery provider settings for the messaging stack.
package config

import "os"

// Settings carries the credentials for the email and WhatsApp channels.
// A missing credential disables its channel — the gateway treats that as an
// ordinary failure and moves on to the next channel, never as a panic.
type Settings struct {
	// Resend (email)
	ResendAPIKey    string
	ResendFromEmail string

	// Meta Cloud API (official WhatsApp template channel)
	MetaWhatsAppToken string
	MetaPhoneID       string
	MetaLanguageCode  string

	// Evolution API (free-text WhatsApp fallback channel)
	EvolutionAPIURL       string
	EvolutionInstanceName string
	EvolutionAPIKey       string

	// Operational
	AdminWhatsAppNumber string
	SiteURL             string
}

// FromEnv loads settings from the process environment.
func FromEnv() Settings {
	languageCode := os.Getenv("META_LANGUAGE_CODE")
	if languageCode == "" {
		languageCode = "pt_BR"
	}

	return Settings{
		ResendAPIKey:          os.Getenv("RESEND_API_KEY"),
		ResendFromEmail:       os.Getenv("RESEND_FROM_EMAIL"),
		MetaWhatsAppToken:     os.Getenv("META_WHATSAPP_TOKEN"),
		MetaPhoneID:           os.Getenv("META_PHONE_ID"),
		MetaLanguageCode:      languageCode,
		EvolutionAPIURL:       os.Getenv("EVOLUTION_API_URL"),
		EvolutionInstanceName: os.Getenv("EVOLUTION_INSTANCE_NAME"),
		EvolutionAPIKey:       os.Getenv("EVOLUTION_API_KEY"),
		AdminWhatsAppNumber:   os.Getenv("ADMIN_WHATSAPP_NUMBER"),
		SiteURL:               os.Getenv("SITE_URL"),
	}
}

// MetaConfigured reports whether the official channel has credentials.
func (s Settings) MetaConfigured() bool {
	return s.MetaWhatsAppToken != "" && s.MetaPhoneID != ""
}

// EvolutionConfigured reports whether the fallback channel has credentials.
func (s Settings) EvolutionConfigured() bool {
	return s.EvolutionAPIURL != "" && s.EvolutionInstanceName != ""
}

// ResendConfigured reports whether the email channel has credentials.
func (s Settings) ResendConfigured() bool {
	return s.ResendAPIKey != "" && s.ResendFromEmail != ""
}
