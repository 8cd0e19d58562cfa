package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pscheid92/forumpulse/internal/app"
	"github.com/pscheid92/forumpulse/internal/domain"
	apperrors "github.com/pscheid92/forumpulse/internal/platform/errors"
)

type submitReactionBody struct {
	Action string `json:"action" validate:"required,oneof=like dislike"`
}

type reactionResponse struct {
	Reaction string `json:"reaction"`
}

type summaryResponse struct {
	PostID   string `json:"post_id"`
	Likes    int64  `json:"likes"`
	Dislikes int64  `json:"dislikes"`
	Reaction string `json:"reaction"`
}

func (s *Server) registerReactionRoutes() {
	limiter := newRateLimiter(s.config.ReactionRatePerSecond, s.config.ReactionRateBurst)

	g := s.echo.Group("/api/posts/:postId/reactions", s.requireAuth)
	g.POST("", s.handleSubmitReaction, limiter)
	g.GET("", s.handleGetSummary)
}

func (s *Server) handleSubmitReaction(c echo.Context) error {
	postID, err := postIDParam(c)
	if err != nil {
		return err
	}

	var body submitReactionBody
	if err := c.Bind(&body); err != nil {
		return apperrors.ValidationError("malformed request body")
	}
	if err := c.Validate(&body); err != nil {
		return err
	}

	userID, _ := c.Get(userIDKey).(string)
	state, err := s.reactions.SubmitReaction(c.Request().Context(), app.SubmitReactionRequest{
		PostID: postID,
		UserID: userID,
		Action: domain.Action(body.Action),
	})
	if err != nil {
		return reactionError(err, postID)
	}

	if err := c.JSON(http.StatusOK, reactionResponse{Reaction: state.String()}); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) handleGetSummary(c echo.Context) error {
	postID, err := postIDParam(c)
	if err != nil {
		return err
	}

	userID, _ := c.Get(userIDKey).(string)
	summary, err := s.reactions.GetSummary(c.Request().Context(), postID, userID)
	if err != nil {
		return reactionError(err, postID)
	}

	response := summaryResponse{
		PostID:   summary.PostID.String(),
		Likes:    summary.LikeCount,
		Dislikes: summary.DislikeCount,
		Reaction: summary.Reaction.String(),
	}
	if err := c.JSON(http.StatusOK, response); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func postIDParam(c echo.Context) (uuid.UUID, error) {
	raw := c.Param("postId")
	postID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperrors.ValidationError("invalid post id").WithField("post_id", raw)
	}
	return postID, nil
}

// reactionError maps engine errors onto structured HTTP errors.
func reactionError(err error, postID uuid.UUID) error {
	id := postID.String()
	switch {
	case errors.Is(err, domain.ErrInvalidAction):
		return apperrors.ValidationError("action must be like or dislike")
	case errors.Is(err, domain.ErrMissingCaller):
		return apperrors.UnauthorizedError("caller identity required")
	case errors.Is(err, domain.ErrPostNotFound):
		return apperrors.NotFoundError("post not found").WithField("post_id", id)
	case errors.Is(err, domain.ErrTransitionFailed):
		return apperrors.ConflictError("reaction could not be applied, try again", err).AsRetryable().WithField("post_id", id)
	case errors.Is(err, domain.ErrStoreUnavailable):
		return apperrors.UnavailableError("reaction store unavailable", err).WithField("post_id", id)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return apperrors.UnavailableError("request cancelled", err)
	default:
		return apperrors.InternalError("failed to process reaction", err).WithField("post_id", id)
	}
}
