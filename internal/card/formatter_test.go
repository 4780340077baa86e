package card

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"whitelist-bot/internal/application"
)

func sampleRecord() *application.Record {
	rec := application.NewRecord("424242424242424242", "SteveD", "0420")
	rec.CharacterName = "Cool_Steve"
	rec.CharacterUUID = "069a79f444e94726a5befca90e38aaf5"
	rec.Answers.Set(application.AnswerAge, application.IntsValue([]string{"18"}))
	rec.Answers.Set(application.AnswerReadRules, application.BoolValue(true))
	rec.Answers.Set(application.AnswerPunishment, application.BoolValue(true))
	rec.Answers.Set(application.AnswerBanHistory, application.TextValue("never been banned"))
	rec.Answers.Set(application.AnswerReferral, application.TextValue("a friend"))
	rec.Answers.Set(application.AnswerPersonality, application.TextValue("I build. I mine. I farm."))
	return rec
}

func TestEscapeUnescape(t *testing.T) {
	assert.Equal(t, "a\\_b\\*c\\~d\\|e", Escape("a_b*c~d|e"))
	assert.Equal(t, "a_b*c~d|e", Unescape("a\\_b\\*c\\~d\\|e"))
	assert.Equal(t, "plain", Escape("plain"))
	assert.Equal(t, "plain", Unescape("plain"))
}

func TestRenderPending_RoundTrip(t *testing.T) {
	rec := sampleRecord()
	c := RenderPending(rec)

	id, err := ExtractApplicantID(c.Description)
	require.NoError(t, err)
	assert.Equal(t, rec.ApplicantID, id)

	name, err := ExtractCharacterName(c.Description)
	require.NoError(t, err)
	assert.Equal(t, rec.CharacterName, name)
}

func TestRenderPending_Layout(t *testing.T) {
	rec := sampleRecord()
	c := RenderPending(rec)

	assert.Equal(t, "SteveD's (Minecraft character: Cool_Steve) application", c.Title)
	assert.Equal(t, "https://mcuuid.net/?q=Cool_Steve", c.URL)
	assert.Equal(t, "https://crafthead.net/avatar/069a79f444e94726a5befca90e38aaf5", c.Thumbnail)
	assert.Equal(t, "SteveD#0420", c.AuthorName)
	assert.Equal(t, ColorPending, c.Color)

	assert.Contains(t, c.Description, "__**Minecraft Name**__: Cool\\_Steve\n\n")
	assert.Contains(t, c.Description, "__**Age**__: 18\n\n")
	assert.Contains(t, c.Description, "__**Has read and understood rules?**__: :white_check_mark:\n\n")
	assert.Contains(t, c.Description, "__**Has agreed to be punished/banned if they break the rules?**__: :white_check_mark:\n\n")
	assert.Contains(t, c.Description, "__**Ban history**__: never been banned\n\n")
	assert.Contains(t, c.Description, "__**Discord id**__: 424242424242424242\n\n")
}

func TestRenderPending_FalseAnswersRenderCross(t *testing.T) {
	rec := sampleRecord()
	rec.Answers.Set(application.AnswerReadRules, application.BoolValue(false))
	c := RenderPending(rec)
	assert.Contains(t, c.Description, "__**Has read and understood rules?**__: :x:\n\n")
}

func TestRenderProcessed_Approved(t *testing.T) {
	c := RenderPending(sampleRecord())
	processed := RenderProcessed(c, "ModGuy", "", true)

	assert.Equal(t, ColorApproved, processed.Color)
	assert.Contains(t, processed.Description, "__**Staff member**__: ModGuy\n\n")
	assert.NotContains(t, processed.Description, "__**Reason**__")

	// Annotation must not break the id round trip.
	id, err := ExtractApplicantID(processed.Description)
	require.NoError(t, err)
	assert.Equal(t, "424242424242424242", id)
}

func TestRenderProcessed_RejectedWithReason(t *testing.T) {
	c := RenderPending(sampleRecord())
	processed := RenderProcessed(c, "ModGuy", "too young", false)

	assert.Equal(t, ColorRejected, processed.Color)
	assert.Contains(t, processed.Description, "__**Staff member**__: ModGuy\n\n")
	assert.Contains(t, processed.Description, "__**Reason**__: too young\n\n")
}

func TestExtract_MissingLabels(t *testing.T) {
	_, err := ExtractApplicantID("no labels here")
	assert.Error(t, err)

	_, err = ExtractCharacterName("no labels here")
	assert.Error(t, err)
}
