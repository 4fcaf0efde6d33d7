package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/neighborhood-exchange/internal/model"
	"github.com/iliyamo/neighborhood-exchange/internal/repository"
)

// ReviewStore is the review surface of repository.ReviewRepo.
type ReviewStore interface {
	Create(ctx context.Context, rv *model.Review) error
	ListReceived(ctx context.Context, kind model.ReviewKind, userID uint64) ([]model.Review, error)
	Search(ctx context.Context, text string, limit int) ([]model.Review, error)
}

// MessageStore is the message surface of repository.MessageRepo.
type MessageStore interface {
	Create(ctx context.Context, m *model.Message) error
	Conversation(ctx context.Context, a, b uint64) ([]model.Message, error)
	Inbox(ctx context.Context, userID uint64) ([]model.Conversation, error)
}

type ReviewHandler struct {
	Reviews ReviewStore
}

func NewReviewHandler(r *repository.ReviewRepo) *ReviewHandler {
	return &ReviewHandler{Reviews: r}
}

type reviewReq struct {
	Rating  int    `json:"rating" validate:"gte=1,lte=5"`
	Comment string `json:"comment" validate:"max=2000"`
}

// CreateFor returns the handler posting a review of kind about the target
// named by the :id path parameter.
func (h *ReviewHandler) CreateFor(kind model.ReviewKind) echo.HandlerFunc {
	return func(c echo.Context) error {
		uid, err := getUserID(c)
		if err != nil {
			return unauthorized(c)
		}
		target, err := parseID(c, "id")
		if err != nil {
			return badRequest(c, err.Error())
		}
		if kind == model.ReviewUser && target == uid {
			return badRequest(c, "cannot review yourself")
		}
		var req reviewReq
		if err := bindValid(c, &req); err != nil {
			return badRequest(c, err.Error())
		}
		ctx, cancel := requestContext(c)
		defer cancel()

		rv := model.Review{
			Kind:       kind,
			TargetID:   target,
			ReviewerID: uid,
			Rating:     req.Rating,
			Comment:    strings.TrimSpace(req.Comment),
		}
		if err := h.Reviews.Create(ctx, &rv); err != nil {
			return writeError(c, "create review failed", err)
		}
		return c.JSON(http.StatusCreated, rv)
	}
}

// Received lists reviews about the caller (?type=user, the default) or
// about listings the caller owns (?type=resource|space).
func (h *ReviewHandler) Received(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	kind := model.ReviewUser
	if t := c.QueryParam("type"); t != "" {
		if kind, err = model.ParseReviewKind(t); err != nil {
			return badRequest(c, err.Error())
		}
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	items, err := h.Reviews.ListReceived(ctx, kind, uid)
	if err != nil {
		return writeError(c, "list reviews failed", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"type": kind, "items": items})
}

// Search is public: ?query= matches item names and comments.
func (h *ReviewHandler) Search(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	ctx, cancel := requestContext(c)
	defer cancel()

	q := strings.TrimSpace(c.QueryParam("query"))
	items, err := h.Reviews.Search(ctx, q, limit)
	if err != nil {
		return writeError(c, "search failed", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"query": q, "items": items})
}

type MessageHandler struct {
	Messages MessageStore
}

func NewMessageHandler(m *repository.MessageRepo) *MessageHandler {
	return &MessageHandler{Messages: m}
}

type messageReq struct {
	Content string `json:"content" validate:"required,max=5000"`
}

// Inbox lists conversation partners, latest first.
func (h *MessageHandler) Inbox(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	items, err := h.Messages.Inbox(ctx, uid)
	if err != nil {
		return writeError(c, "inbox failed", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"conversations": items})
}

// Conversation returns the exchange with :user_id, oldest first.
func (h *MessageHandler) Conversation(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	other, err := parseID(c, "user_id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	items, err := h.Messages.Conversation(ctx, uid, other)
	if err != nil {
		return writeError(c, "conversation failed", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"messages": items})
}

// Send posts a message to :user_id.
func (h *MessageHandler) Send(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	other, err := parseID(c, "user_id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	if other == uid {
		return badRequest(c, "cannot message yourself")
	}
	var req messageReq
	if err := bindValid(c, &req); err != nil {
		return badRequest(c, err.Error())
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return badRequest(c, "content: is required")
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	m := model.Message{SenderID: uid, ReceiverID: other, Content: content}
	if err := h.Messages.Create(ctx, &m); err != nil {
		return writeError(c, "send failed", err)
	}
	return c.JSON(http.StatusCreated, m)
}
