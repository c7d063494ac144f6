package giveaway

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"text/template"

	"github.com/pelletier/go-toml/v2"
)

// MessageProfile holds the winner notification template. Operators tune the
// wording per campaign through a TOML profile file.
type MessageProfile struct {
	Version int            `toml:"version"`
	Message messageSection `toml:"message"`

	tmpl *template.Template
}

type messageSection struct {
	Template  string `toml:"template"`
	RedeemURL string `toml:"redeem_url"`
}

const defaultMessageTemplate = `Congratulations {{.ScreenName}}!

You have been selected as a winner of the giveaway.
Your gift code ({{.Amount}} JPY):

{{.GiftCode}}

Redeem it here: {{.RedeemURL}}

This code may carry an expiry date, please use it soon.
This message was sent automatically; replies are not monitored.`

type messageParams struct {
	ScreenName string
	GiftCode   string
	Amount     int
	RedeemURL  string
}

// DefaultMessageProfile is used when no profile file is configured.
func DefaultMessageProfile() MessageProfile {
	profile := MessageProfile{
		Version: 1,
		Message: messageSection{
			Template:  defaultMessageTemplate,
			RedeemURL: "https://www.amazon.co.jp/gc/redeem",
		},
	}
	// The built-in template always parses.
	_ = profile.compile()
	return profile
}

// LoadMessageProfile reads and validates a TOML message profile.
func LoadMessageProfile(profileFile string) (MessageProfile, error) {
	path := strings.TrimSpace(profileFile)
	if path == "" {
		return DefaultMessageProfile(), nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return MessageProfile{}, fmt.Errorf("read message profile: %w", err)
	}

	var profile MessageProfile
	if err := toml.Unmarshal(raw, &profile); err != nil {
		return MessageProfile{}, fmt.Errorf("parse message profile: %w", err)
	}
	if profile.Version != 1 {
		return MessageProfile{}, fmt.Errorf("unsupported message profile version %d", profile.Version)
	}
	if strings.TrimSpace(profile.Message.Template) == "" {
		return MessageProfile{}, errors.New("message.template is required")
	}
	if err := profile.compile(); err != nil {
		return MessageProfile{}, err
	}
	return profile, nil
}

func (p *MessageProfile) compile() error {
	tmpl, err := template.New("notification").Parse(p.Message.Template)
	if err != nil {
		return fmt.Errorf("compile message template: %w", err)
	}
	p.tmpl = tmpl
	return nil
}

// Render produces the notification text for one winner.
func (p MessageProfile) Render(screenName, giftCode string, amount int) (string, error) {
	tmpl := p.tmpl
	if tmpl == nil {
		compiled, err := template.New("notification").Parse(p.Message.Template)
		if err != nil {
			return "", fmt.Errorf("compile message template: %w", err)
		}
		tmpl = compiled
	}

	var out strings.Builder
	err := tmpl.Execute(&out, messageParams{
		ScreenName: screenName,
		GiftCode:   giftCode,
		Amount:     amount,
		RedeemURL:  p.Message.RedeemURL,
	})
	if err != nil {
		return "", fmt.Errorf("render message template: %w", err)
	}
	return out.String(), nil
}
