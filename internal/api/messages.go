package api

import (
	"fmt"
	"net/http"

	"golang.org/x/text/language"
)

var languageMatcher = language.NewMatcher([]language.Tag{language.German, language.English})

// requestLanguage picks German or English from Accept-Language, German by default.
func requestLanguage(r *http.Request) language.Tag {
	tags, _, err := language.ParseAcceptLanguage(r.Header.Get("Accept-Language"))
	if err != nil || len(tags) == 0 {
		return language.German
	}
	tag, _, _ := languageMatcher.Match(tags...)
	return tag
}

func isEnglish(tag language.Tag) bool {
	base, _ := tag.Base()
	return base.String() == "en"
}

type message struct {
	de string
	en string
}

func (m message) in(tag language.Tag, args ...any) string {
	if isEnglish(tag) {
		return fmt.Sprintf(m.en, args...)
	}
	return fmt.Sprintf(m.de, args...)
}

const (
	codeInvalidJSON    = "INVALID_JSON"
	codePromptTooShort = "PROMPT_TOO_SHORT"
	codePromptTooLong  = "PROMPT_TOO_LONG"
)

var (
	msgInvalidJSON = message{
		de: "Die Anfrage enthält kein gültiges JSON.",
		en: "The request body is not valid JSON.",
	}
	msgPromptTooShort = message{
		de: "Die Beschreibung ist zu kurz. Bitte verwende mindestens %d Zeichen.",
		en: "The description is too short. Please use at least %d characters.",
	}
	msgPromptTooLong = message{
		de: "Die Beschreibung ist zu lang. Erlaubt sind höchstens %d Zeichen.",
		en: "The description is too long. At most %d characters are allowed.",
	}
	msgInternal = message{
		de: "Interner Fehler. Bitte versuche es erneut.",
		en: "Internal error. Please try again.",
	}
)
