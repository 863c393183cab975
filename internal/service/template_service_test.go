package service_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/unclebandit/bulkmail/internal/model"
	"github.com/unclebandit/bulkmail/internal/service"
)

func TestRenderTemplate_CustomVariables(t *testing.T) {
	tpl := model.Template{Subject: "Hi %name%, %custom%", Body: "<p>%custom% and %custom%</p>"}
	r := model.Recipient{Email: "ana@example.com", Name: "Ana", Variables: map[string]string{"custom": "welcome", "name": "Ana"}}

	out := service.RenderTemplate(tpl, r)

	assert.Equal(t, "Hi Ana, welcome", out.Subject)
	assert.Equal(t, "<p>welcome and welcome</p>", out.Body)
}

func TestRenderTemplate_NameIsNotReserved(t *testing.T) {
	tpl := model.Template{Subject: "Hi %name%, %custom%", Body: ""}
	r := model.Recipient{Email: "ana@example.com", Name: "Ana", Variables: map[string]string{"custom": "welcome"}}

	out := service.RenderTemplate(tpl, r)

	assert.Equal(t, "Hi %name%, welcome", out.Subject)
}

func TestRenderTemplate_ReservedTokens(t *testing.T) {
	tpl := model.Template{
		Subject: "For %recipient.name%",
		Body:    "%recipient.name% <%recipient.email%> %recipient.email%",
	}

	out := service.RenderTemplate(tpl, model.Recipient{Email: "bo@example.com", Name: "Bo"})
	assert.Equal(t, "For Bo", out.Subject)
	assert.Equal(t, "Bo <bo@example.com> bo@example.com", out.Body)

	noName := service.RenderTemplate(tpl, model.Recipient{Email: "bo@example.com"})
	assert.Equal(t, "For ", noName.Subject)
}

func TestRenderTemplate_ReservedWinsOverCustomKey(t *testing.T) {
	tpl := model.Template{Subject: "%recipient.name%", Body: "%recipient.email%"}
	r := model.Recipient{
		Email: "real@example.com",
		Name:  "Real",
		Variables: map[string]string{
			"recipient.name":  "Custom",
			"recipient.email": "custom@example.com",
		},
	}

	out := service.RenderTemplate(tpl, r)
	assert.Equal(t, "Real", out.Subject)
	assert.Equal(t, "real@example.com", out.Body)
}

func TestRenderTemplate_UnknownPlaceholdersUntouched(t *testing.T) {
	tpl := model.Template{Subject: "%missing% 100%", Body: "%city%"}
	out := service.RenderTemplate(tpl, model.Recipient{Email: "a@b.c"})

	assert.Equal(t, tpl, out)
}

func TestRenderTemplate_Deterministic(t *testing.T) {
	tpl := model.Template{Subject: "%a%%b%", Body: "%b%%a%"}
	r := model.Recipient{Email: "a@b.c", Variables: map[string]string{"a": "%b%", "b": "x"}}

	first := service.RenderTemplate(tpl, r)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, service.RenderTemplate(tpl, r))
	}
}

func TestPlaceholders(t *testing.T) {
	got := service.Placeholders("Hi %recipient.name%, %city% %city% %first_name%")
	assert.Equal(t, []string{"recipient.name", "city", "first_name"}, got)
	assert.Empty(t, service.Placeholders("no tokens, 50% off"))
}
