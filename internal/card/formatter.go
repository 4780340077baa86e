// Package card renders application records into review cards and parses
// the applicant id and character name back out of a rendered card. The
// label format is fixed: moderation relies on matching it byte for byte.
package card

import (
	"fmt"
	"regexp"
	"strings"

	"whitelist-bot/internal/application"
	"whitelist-bot/internal/gateway"
)

const (
	ColorPending  = 0xFFA500
	ColorApproved = 0x00FF00
	ColorRejected = 0xFF0000
)

var (
	applicantIDPattern   = regexp.MustCompile(`__\*\*Discord id\*\*__: ([0-9]+)`)
	characterNamePattern = regexp.MustCompile(`__\*\*Minecraft Name\*\*__: (.+)`)

	escaper   = strings.NewReplacer("~", "\\~", "|", "\\|", "*", "\\*", "_", "\\_")
	unescaper = strings.NewReplacer("\\~", "~", "\\|", "|", "\\*", "*", "\\_", "_")
)

// Escape prefixes markdown control characters so user-supplied text
// renders literally.
func Escape(s string) string {
	return escaper.Replace(s)
}

// Unescape reverses Escape.
func Unescape(s string) string {
	return unescaper.Replace(s)
}

func boolMark(b bool) string {
	if b {
		return ":white_check_mark:"
	}
	return ":x:"
}

func field(label, value string) string {
	return fmt.Sprintf("__**%s**__: %s\n\n", label, value)
}

// RenderPending builds the review card posted to the pending channel.
func RenderPending(rec *application.Record) gateway.Card {
	var b strings.Builder
	b.WriteString(field("Minecraft Name", Escape(rec.CharacterName)))
	b.WriteString(field("Age", strings.Join(rec.Ints(application.AnswerAge), " ")))
	b.WriteString(field("Has read and understood rules?", boolMark(rec.Bool(application.AnswerReadRules))))
	b.WriteString(field("Has agreed to be punished/banned if they break the rules?", boolMark(rec.Bool(application.AnswerPunishment))))
	b.WriteString(field("Ban history", Escape(rec.Text(application.AnswerBanHistory))))
	b.WriteString(field("Where did they hear about the pack", Escape(rec.Text(application.AnswerReferral))))
	b.WriteString(field("A bit about theirselves (3 sentences min)", Escape(rec.Text(application.AnswerPersonality))))
	b.WriteString(field("Discord id", rec.ApplicantID))

	return gateway.Card{
		Title: fmt.Sprintf("%s's (Minecraft character: %s) application",
			rec.DisplayName, rec.CharacterName),
		URL:         fmt.Sprintf("https://mcuuid.net/?q=%s", rec.CharacterName),
		Description: b.String(),
		AuthorName:  fmt.Sprintf("%s#%s", rec.DisplayName, rec.Discriminator),
		Thumbnail:   fmt.Sprintf("https://crafthead.net/avatar/%s", rec.CharacterUUID),
		Color:       ColorPending,
	}
}

// RenderProcessed annotates a fetched pending card with the acting staff
// member and, for rejections, the reason, switching the color to the
// outcome.
func RenderProcessed(c gateway.Card, staffName, reason string, approved bool) gateway.Card {
	out := c
	out.Description += field("Staff member", Escape(staffName))
	if reason != "" {
		out.Description += field("Reason", Escape(reason))
	}
	if approved {
		out.Color = ColorApproved
	} else {
		out.Color = ColorRejected
	}
	return out
}

// ExtractApplicantID parses the applicant id out of a rendered card
// description.
func ExtractApplicantID(description string) (string, error) {
	m := applicantIDPattern.FindStringSubmatch(description)
	if m == nil {
		return "", fmt.Errorf("no Discord id label in card")
	}
	return m[1], nil
}

// ExtractCharacterName parses the character name out of a rendered card
// description, undoing the markdown escaping.
func ExtractCharacterName(description string) (string, error) {
	m := characterNamePattern.FindStringSubmatch(description)
	if m == nil {
		return "", fmt.Errorf("no Minecraft Name label in card")
	}
	return Unescape(strings.TrimSpace(m[1])), nil
}
