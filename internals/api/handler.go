package api

import (
	"errors"
	"net/http"

	"exchange-widget/internals/core/domain"
	"exchange-widget/internals/service"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type Handler struct {
	widget   service.WidgetService
	snapshot *Snapshot
	log      *zap.Logger
}

func NewHandler(widget service.WidgetService, snapshot *Snapshot, log *zap.Logger) *Handler {
	return &Handler{widget: widget, snapshot: snapshot, log: log}
}

type ErrorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// NewErrorHandler renders every handler error as an ErrorResponse.
func NewErrorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		message := "Internal Server Error"

		var e *fiber.Error
		if errors.As(err, &e) {
			code = e.Code
			message = e.Message
		}
		if code >= fiber.StatusInternalServerError {
			log.Error("Error handling request", zap.String("path", c.Path()), zap.Error(err))
		} else {
			log.Info("Rejected request", zap.String("path", c.Path()), zap.Error(err))
		}

		var resp ErrorResponse
		resp.Error.Code = http.StatusText(code)
		resp.Error.Message = message
		return c.Status(code).JSON(resp)
	}
}

func (h *Handler) GetWidget(c *fiber.Ctx) error {
	return c.JSON(h.snapshot.View())
}

func (h *Handler) SetRange(c *fiber.Ctx) error {
	key, err := domain.ParseRangeKey(c.Query("range"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	if err := h.widget.ChangeRange(c.Context(), key); err != nil {
		return err
	}
	h.snapshot.SetSelection(h.widget.Mode(), key)
	return c.JSON(h.snapshot.View())
}

func (h *Handler) SetMode(c *fiber.Ctx) error {
	mode, err := domain.ParseViewMode(c.Query("mode"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	if err := h.widget.SetMode(mode); err != nil {
		return err
	}
	h.snapshot.SetSelection(mode, h.widget.Range())
	return c.JSON(h.snapshot.View())
}

// Refresh always answers with the view; a failed latest fetch shows up as an error notice.
func (h *Handler) Refresh(c *fiber.Ctx) error {
	if err := h.widget.Refresh(c.Context()); err != nil {
		h.log.Warn("Refresh finished with errors", zap.Error(err))
	}
	return c.JSON(h.snapshot.View())
}

func (h *Handler) AcknowledgeError(c *fiber.Ctx) error {
	if !h.snapshot.Acknowledge(c.Params("id")) {
		return fiber.NewError(fiber.StatusNotFound, "error notice not found")
	}
	return c.SendStatus(fiber.StatusNoContent)
}
