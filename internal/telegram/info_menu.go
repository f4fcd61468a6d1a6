package telegram

import (
	"context"
	"html"

	"kiomedine-order-bot/internal/telegram/internal/fsm"
	"kiomedine-order-bot/internal/telegram/internal/presentation"

	"go.uber.org/zap"
)

// SetupInfoMenu registers the product information menu. Its buttons come
// from the catalogue file.
func SetupInfoMenu(h *handlers) {
	c := h.Catalogue
	if c == nil {
		return
	}

	h.router.HandleText(presentation.BtnInfo, func(ctx context.Context, ev fsm.Event) error {
		_, err := h.msg.Send(ctx, ev.ChatID, html.EscapeString(c.Intro), presentation.InfoMenuKbd(c))
		return err
	})
	for _, s := range c.Sections {
		text := html.EscapeString(s.Text)
		h.router.HandleText(s.Button, func(ctx context.Context, ev fsm.Event) error {
			_, err := h.msg.Send(ctx, ev.ChatID, text, nil)
			return err
		})
	}
	if c.PriceButton != "" {
		h.router.HandleText(c.PriceButton, func(ctx context.Context, ev fsm.Event) error {
			price := presentation.FormatMoney(h.Shop.UnitPrice, h.Shop.Currency)
			_, err := h.msg.Send(ctx, ev.ChatID, presentation.PriceMsg(price), nil)
			return err
		})
	}
	if c.Document.Button != "" {
		h.router.HandleText(c.Document.Button, h.handleInfoDocument)
	}
	if c.BackButton != "" {
		h.router.HandleText(c.BackButton, h.handleBackToMenu)
	}
}

// handleInfoDocument re-sends the cached Telegram file when there is one and
// uploads the asset otherwise.
func (h *handlers) handleInfoDocument(ctx context.Context, ev fsm.Event) error {
	doc := h.Catalogue.Document

	if fileID, ok := h.Files.CachedID(doc.File); ok {
		_, err := h.msg.SendMedia(ctx, ev.ChatID, fsm.Media{
			Kind:    fsm.MediaDocument,
			FileID:  fileID,
			Caption: html.EscapeString(doc.Caption),
		})
		if err == nil {
			return nil
		}
		zap.S().Warnw("Cached document rejected, uploading again", "error", err, "file", doc.File)
		h.Files.Forget(doc.File)
	}

	f, err := h.Files.Open(doc.File)
	if err != nil {
		zap.S().Errorw("Failed to open info document", "error", err, "file", doc.File)
		_, sendErr := h.msg.Send(ctx, ev.ChatID, presentation.GenericErrorMsg(), nil)
		return sendErr
	}
	defer f.Close()

	fileID, err := h.msg.SendMedia(ctx, ev.ChatID, fsm.Media{
		Kind:     fsm.MediaDocument,
		Reader:   f,
		Filename: doc.File,
		Caption:  html.EscapeString(doc.Caption),
	})
	if err != nil {
		return err
	}
	h.Files.Remember(doc.File, fileID)
	return nil
}
