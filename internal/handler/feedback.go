package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/book-network/internal/service"
)

type FeedbackAPI interface {
	Submit(ctx context.Context, actor service.Identity, in service.FeedbackInput) (uint64, error)
	ListByBook(ctx context.Context, actor service.Identity, bookID uint64, p service.Page) (service.PageResult[service.FeedbackView], error)
}

type FeedbackHandler struct {
	Feedback FeedbackAPI
}

func NewFeedbackHandler(f FeedbackAPI) *FeedbackHandler {
	return &FeedbackHandler{Feedback: f}
}

func (h *FeedbackHandler) Submit(c echo.Context) error {
	id, err := actor(c)
	if err != nil {
		return writeError(c, err)
	}
	var req service.FeedbackInput
	if err := c.Bind(&req); err != nil {
		return writeError(c, badBody())
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	fid, err := h.Feedback.Submit(ctx, id, req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"id": fid})
}

// ListByBook pages through the feedback of the :id book, newest first.
func (h *FeedbackHandler) ListByBook(c echo.Context) error {
	id, err := actor(c)
	if err != nil {
		return writeError(c, err)
	}
	bookID, err := pathID(c)
	if err != nil {
		return writeError(c, err)
	}
	p, err := pageQuery(c)
	if err != nil {
		return writeError(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	res, err := h.Feedback.ListByBook(ctx, id, bookID, p)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}
