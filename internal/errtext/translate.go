// Package errtext rewrites common backend and transport error messages into
// Portuguese for the UI. The product ships pt-BR; backend-provided detail
// strings are often already localized and pass through untouched.
package errtext

import (
	"errors"
	"strings"
)

// connectionPhrases indicate the backend is unreachable.
var connectionPhrases = []string{
	"connection refused",
	"no such host",
	"network is unreachable",
	"NetworkError",
}

// timeoutPhrases indicate the request gave up waiting.
var timeoutPhrases = []string{
	"context deadline exceeded",
	"Client.Timeout exceeded",
	"timeout",
	"aborted",
}

// translations maps English message fragments to their Portuguese
// replacement. First match wins; unmatched messages pass through unchanged.
var translations = []struct {
	english    string
	portuguese string
}{
	{"fetch personas", "Erro ao carregar personas"},
	{"fetch persona", "Erro ao carregar persona"},
	{"create persona", "Erro ao criar persona"},
	{"update persona", "Erro ao atualizar persona"},
	{"delete persona", "Erro ao excluir persona"},
	{"clear session", "Erro ao limpar sessão"},
	{"fetch initial message", "Erro ao carregar mensagem inicial"},
	{"send message", "Erro ao enviar mensagem"},
}

// Translate maps an error message to user-facing Portuguese text.
func Translate(msg string) string {
	for _, p := range connectionPhrases {
		if strings.Contains(msg, p) {
			return "Erro de conexão. Verifique se o servidor está online."
		}
	}
	for _, p := range timeoutPhrases {
		if strings.Contains(msg, p) {
			return "Tempo de espera esgotado. Tente novamente."
		}
	}
	for _, t := range translations {
		if strings.Contains(msg, t.english) {
			return t.portuguese
		}
	}
	return msg
}

// TranslateErr is Translate for error values; nil yields an empty string.
func TranslateErr(err error) string {
	if err == nil {
		return ""
	}
	return Translate(err.Error())
}

// WrapErr returns an error carrying the translated message, for call sites
// that must return an error across the frontend bridge.
func WrapErr(err error) error {
	if err == nil {
		return nil
	}
	return errors.New(TranslateErr(err))
}
