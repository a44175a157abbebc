package httpapi

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"horse.fit/pagetrans/internal/language"
	"horse.fit/pagetrans/internal/panel"
	"horse.fit/pagetrans/internal/settings"
	"horse.fit/pagetrans/internal/translation"
)

type settingsResponse struct {
	LastTargetLang string `json:"last_target_lang"`
}

type putSettingsRequest struct {
	LastTargetLang string `json:"last_target_lang"`
}

type translateRequest struct {
	Text       string `json:"text"`
	SourceLang string `json:"source_lang"`
	TargetLang string `json:"target_lang"`
}

type translateResponse struct {
	Text           string `json:"text"`
	TranslatedText string `json:"translated_text"`
	SourceLang     string `json:"source_lang"`
	TargetLang     string `json:"target_lang"`
}

// lastTargetLang falls back to the configured default when the store is
// unavailable.
func (s *Server) lastTargetLang(c echo.Context) string {
	lang, err := settings.LastTargetLang(c.Request().Context(), s.settings, s.opts.DefaultTargetLang)
	if err != nil {
		s.logger.Warn().Err(err).Msg("load last target language failed")
	}
	return lang
}

func (s *Server) handleLanguages(c echo.Context) error {
	return success(c, map[string]any{
		"items":   translation.PopupLanguageOptions(),
		"current": s.lastTargetLang(c),
	})
}

func (s *Server) handleGetSettings(c echo.Context) error {
	return success(c, map[string]any{
		"settings": settingsResponse{LastTargetLang: s.lastTargetLang(c)},
	})
}

func (s *Server) handlePutSettings(c echo.Context) error {
	var payload putSettingsRequest
	if err := decodeJSONBody(c, &payload); err != nil {
		return failValidation(c, map[string]string{"body": err.Error()})
	}
	lang, ok := resolveTarget(payload.LastTargetLang)
	if !ok {
		return failValidation(c, map[string]string{"last_target_lang": "is not a valid language"})
	}

	saved, err := settings.SaveLastTargetLang(c.Request().Context(), s.settings, lang)
	if err != nil {
		s.logger.Error().Err(err).Str("target_lang", lang).Msg("save settings failed")
		return internalError(c, "Failed to save settings")
	}
	return success(c, map[string]any{
		"settings": settingsResponse{LastTargetLang: saved},
	})
}

// handleTranslate is the popup's manual entry: one text, one target.
func (s *Server) handleTranslate(c echo.Context) error {
	var payload translateRequest
	if err := decodeJSONBody(c, &payload); err != nil {
		return failValidation(c, map[string]string{"body": err.Error()})
	}
	text := strings.TrimSpace(payload.Text)
	if text == "" {
		return failValidation(c, map[string]string{"text": panel.EmptyInputText})
	}

	source := language.Auto
	if !language.IsAuto(payload.SourceLang) {
		resolved, err := language.Resolve(payload.SourceLang)
		if err != nil {
			return failValidation(c, map[string]string{"source_lang": "is not a valid language"})
		}
		source = resolved
	}

	ctx := c.Request().Context()
	target := s.lastTargetLang(c)
	if strings.TrimSpace(payload.TargetLang) != "" {
		resolved, ok := resolveTarget(payload.TargetLang)
		if !ok {
			return failValidation(c, map[string]string{"target_lang": "is not a valid language"})
		}
		if resolved != target {
			if _, err := settings.SaveLastTargetLang(ctx, s.settings, resolved); err != nil {
				s.logger.Warn().Err(err).Str("target_lang", resolved).Msg("persist target language failed")
			}
		}
		target = resolved
	}

	translated, err := s.translator.Translate(ctx, text, source, target)
	if err != nil {
		s.logger.Warn().Err(err).Str("target_lang", target).Msg("manual translation failed")
		return fail(c, http.StatusBadGateway, panel.FailedText, nil)
	}

	return success(c, translateResponse{
		Text:           text,
		TranslatedText: translated,
		SourceLang:     source,
		TargetLang:     target,
	})
}

func resolveTarget(raw string) (string, bool) {
	resolved, err := language.Resolve(raw)
	if err != nil || resolved == language.Auto {
		return "", false
	}
	return resolved, true
}
