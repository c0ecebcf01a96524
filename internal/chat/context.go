package chat

import (
	"context"
	"strconv"

	"github.com/rs/zerolog/log"

	"pdf-chat/internal/models"
)

const (
	settingSession = "session_id"
	settingBackend = "backend"
	settingModel   = "model"
	settingRAG     = "rag"
	settingK       = "retrieved_documents"
)

// LoadContext restores the last saved session context, using fallback for
// anything never saved or unreadable.
func (s *Service) LoadContext(ctx context.Context, fallback models.SessionContext) (models.SessionContext, error) {
	sc := fallback

	get := func(name, def string) (string, error) {
		return s.store.GetSetting(ctx, name, def)
	}

	v, err := get(settingSession, fallback.SessionID)
	if err != nil {
		return fallback, err
	}
	sc.SessionID = v

	if v, err = get(settingBackend, string(fallback.Backend)); err != nil {
		return fallback, err
	}
	if kind, perr := models.ParseBackendKind(v); perr == nil {
		sc.Backend = kind
	} else {
		log.Warn().Str("backend", v).Msg("Ignoring saved backend")
	}

	if v, err = get(settingModel, fallback.Model); err != nil {
		return fallback, err
	}
	sc.Model = v

	if v, err = get(settingRAG, strconv.FormatBool(fallback.RAG)); err != nil {
		return fallback, err
	}
	if b, perr := strconv.ParseBool(v); perr == nil {
		sc.RAG = b
	}

	if v, err = get(settingK, strconv.Itoa(fallback.K)); err != nil {
		return fallback, err
	}
	if k, perr := strconv.Atoi(v); perr == nil && k > 0 {
		sc.K = k
	}
	return sc, nil
}

// SaveContext persists the selections of sc for the next run.
func (s *Service) SaveContext(ctx context.Context, sc models.SessionContext) error {
	values := []struct{ name, value string }{
		{settingSession, sc.SessionID},
		{settingBackend, string(sc.Backend)},
		{settingModel, sc.Model},
		{settingRAG, strconv.FormatBool(sc.RAG)},
		{settingK, strconv.Itoa(sc.K)},
	}
	for _, v := range values {
		if err := s.store.UpdateSetting(ctx, v.name, v.value); err != nil {
			return err
		}
	}
	return nil
}
