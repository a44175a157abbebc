package httpapi

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"horse.fit/pagetrans/internal/batch"
	"horse.fit/pagetrans/internal/engine"
	"horse.fit/pagetrans/internal/messages"
	"horse.fit/pagetrans/internal/overlay"
	"horse.fit/pagetrans/internal/panel"
	"horse.fit/pagetrans/internal/reader"
)

type createDocumentRequest struct {
	HTML           string `json:"html"`
	URL            string `json:"url"`
	Reader         bool   `json:"reader"`
	Mode           string `json:"mode"`
	TargetLang     string `json:"target_lang"`
	TranslateTitle bool   `json:"translate_title"`
}

type documentResponse struct {
	ID         string          `json:"id"`
	Mode       string          `json:"mode"`
	State      string          `json:"state"`
	TargetLang string          `json:"target_lang"`
	Processed  int             `json:"processed"`
	Stats      batch.Stats     `json:"stats"`
	Notices    []engine.Notice `json:"notices"`
	HTML       string          `json:"html,omitempty"`
}

func buildDocumentResponse(eng *engine.Engine) documentResponse {
	return documentResponse{
		ID:         eng.ID(),
		Mode:       string(eng.Mode()),
		State:      eng.State().String(),
		TargetLang: eng.TargetLang(),
		Processed:  eng.ProcessedCount(),
		Stats:      eng.LastStats(),
		Notices:    eng.Notices(),
	}
}

func (s *Server) handleListDocuments(c echo.Context) error {
	return success(c, map[string]any{
		"items": s.docs.List(),
	})
}

func (s *Server) handleCreateDocument(c echo.Context) error {
	var payload createDocumentRequest
	if err := decodeJSONBody(c, &payload); err != nil {
		return failValidation(c, map[string]string{"body": err.Error()})
	}

	rawHTML := strings.TrimSpace(payload.HTML)
	pageURL := strings.TrimSpace(payload.URL)
	switch {
	case rawHTML == "" && pageURL == "":
		return failValidation(c, map[string]string{"html": "html or url is required"})
	case rawHTML != "" && pageURL != "":
		return failValidation(c, map[string]string{"url": "cannot be combined with html"})
	case pageURL != "" && !reader.IsRemote(pageURL):
		return failValidation(c, map[string]string{"url": "must be an http(s) URL"})
	}

	var mode overlay.Mode
	if strings.TrimSpace(payload.Mode) != "" {
		parsed, err := overlay.ParseMode(payload.Mode)
		if err != nil {
			return failValidation(c, map[string]string{"mode": err.Error()})
		}
		mode = parsed
	}
	target := s.lastTargetLang(c)
	if strings.TrimSpace(payload.TargetLang) != "" {
		resolved, ok := resolveTarget(payload.TargetLang)
		if !ok {
			return failValidation(c, map[string]string{"target_lang": "is not a valid language"})
		}
		target = resolved
	}

	body := []byte(payload.HTML)
	if pageURL != "" {
		page, err := reader.Fetch(c.Request().Context(), pageURL, s.opts.Fetch)
		if err != nil {
			s.logger.Warn().Err(err).Str("url", pageURL).Msg("fetch page failed")
			return fail(c, http.StatusBadGateway, "Failed to fetch page", nil)
		}
		body = page.Body
		if payload.Reader {
			if body, err = page.Readable(); err != nil {
				s.logger.Warn().Err(err).Str("url", pageURL).Msg("reader extraction failed")
				return fail(c, http.StatusUnprocessableEntity, "Failed to extract readable content", nil)
			}
		}
	}

	eng, err := s.docs.Load(bytes.NewReader(body), func(o *engine.Options) {
		if mode != "" {
			o.Mode = mode
		}
		o.TargetLang = target
		if payload.TranslateTitle {
			o.TranslateTitle = true
		}
	})
	if err != nil {
		s.logger.Warn().Err(err).Msg("load document failed")
		return fail(c, http.StatusUnprocessableEntity, err.Error(), nil)
	}

	s.logger.Info().Str("doc_id", eng.ID()).Str("mode", string(eng.Mode())).Msg("document loaded")
	return successWithStatus(c, http.StatusCreated, map[string]any{
		"document": buildDocumentResponse(eng),
	})
}

// document resolves :id or writes the not-found response.
func (s *Server) document(c echo.Context) (*engine.Engine, bool, error) {
	eng, err := s.docs.Get(strings.TrimSpace(c.Param("id")))
	if errors.Is(err, engine.ErrDocumentNotFound) {
		return nil, false, failNotFound(c, "Document not found")
	}
	if err != nil {
		return nil, false, internalError(c, "Failed to load document")
	}
	return eng, true, nil
}

func (s *Server) handleGetDocument(c echo.Context) error {
	eng, ok, err := s.document(c)
	if !ok {
		return err
	}

	resp := buildDocumentResponse(eng)
	markup, err := eng.HTML()
	if err != nil {
		s.logger.Error().Err(err).Str("doc_id", eng.ID()).Msg("render document failed")
		return internalError(c, "Failed to render document")
	}
	resp.HTML = markup
	return success(c, map[string]any{
		"document": resp,
	})
}

func (s *Server) handleDeleteDocument(c echo.Context) error {
	if err := s.docs.Delete(strings.TrimSpace(c.Param("id"))); err != nil {
		if errors.Is(err, engine.ErrDocumentNotFound) {
			return failNotFound(c, "Document not found")
		}
		return internalError(c, "Failed to delete document")
	}
	return success(c, map[string]any{"deleted": true})
}

func (s *Server) handleDocumentMessage(c echo.Context) error {
	eng, ok, err := s.document(c)
	if !ok {
		return err
	}

	payload, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return failValidation(c, map[string]string{"body": "could not be read"})
	}
	msg, err := messages.Decode(payload)
	if err != nil {
		return failValidation(c, map[string]string{"message": err.Error()})
	}

	reply, err := eng.Handle(c.Request().Context(), msg)
	switch {
	case err == nil:
		return success(c, reply)
	case errors.Is(err, engine.ErrRejected):
		return fail(c, http.StatusConflict, "Request rejected", reply)
	case errors.Is(err, engine.ErrUnknownNode):
		return failNotFound(c, err.Error())
	case errors.Is(err, panel.ErrNoSource), errors.Is(err, panel.ErrNothingToCopy):
		return fail(c, http.StatusConflict, err.Error(), reply)
	default:
		s.logger.Error().Err(err).Str("doc_id", eng.ID()).Str("type", string(msg.Type)).Msg("handle message failed")
		return internalError(c, "Failed to handle message")
	}
}

func (s *Server) handleDocumentAnnotations(c echo.Context) error {
	eng, ok, err := s.document(c)
	if !ok {
		return err
	}
	items := eng.Annotations()
	if items == nil {
		items = []engine.Annotated{}
	}
	return success(c, map[string]any{
		"items": items,
	})
}

func (s *Server) handleDocumentPanel(c echo.Context) error {
	eng, ok, err := s.document(c)
	if !ok {
		return err
	}
	view, markup, opened := eng.Panel()
	if !opened {
		return failNotFound(c, "Panel has not been opened")
	}
	return success(c, map[string]any{
		"panel":  view,
		"markup": markup,
	})
}
