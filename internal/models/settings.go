package models

// Tone is the writing register requested for a generated reply.
type Tone string

const (
	ToneProfessional Tone = "professional"
	ToneFriendly     Tone = "friendly"
	ToneCasual       Tone = "casual"
)

// Settings is the persisted reply generator configuration.
type Settings struct {
	APIKey string `json:"api_key"`
	Model  string `json:"model"`
	Tone   Tone   `json:"tone"`
}
