package handlers

import (
	"errors"
	"net/http"
	"strings"

	"siliconflow-balance-plugin/internal/command"
	"siliconflow-balance-plugin/internal/models"
	"siliconflow-balance-plugin/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// CommandRequest is a chat message forwarded by the chat platform
type CommandRequest struct {
	Text     string `json:"text"`
	ChatType string `json:"chat_type"`
	ChatID   string `json:"chat_id"`
	UserID   string `json:"user_id"`
}

// CommandResponse carries the handler outcome and the messages to send back
type CommandResponse struct {
	Command       string   `json:"command"`
	InvocationID  string   `json:"invocation_id"`
	Success       bool     `json:"success"`
	Reason        string   `json:"reason,omitempty"`
	Intercept     bool     `json:"intercept"`
	Messages      []string `json:"messages"`
	CorrelationID string   `json:"correlation_id,omitempty"`
}

// CommandHandler handles command invocations over HTTP
type CommandHandler struct {
	dispatcher *command.Dispatcher
}

// NewCommandHandler creates a new CommandHandler instance
func NewCommandHandler(dispatcher *command.Dispatcher) *CommandHandler {
	return &CommandHandler{dispatcher: dispatcher}
}

// Invoke handles POST /api/commands requests
func (h *CommandHandler) Invoke(c *gin.Context) {
	log := logger.GetLogger().WithContext(c.Request.Context())

	var req CommandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid JSON in command request",
			zap.Error(err),
			zap.String("content_type", c.GetHeader("Content-Type")),
		)
		models.HandleError(c, models.NewAppErrorWithDetails(
			models.ErrorCodeMalformedJSON,
			"Invalid JSON format",
			err.Error(),
		), log)
		return
	}

	if strings.TrimSpace(req.Text) == "" {
		models.HandleError(c, models.NewValidationError("Command text cannot be empty", "text is required"), log)
		return
	}

	chatType, err := command.ParseChatType(req.ChatType)
	if err != nil {
		models.HandleError(c, models.NewValidationError("Invalid chat type", err.Error()), log)
		return
	}

	sender := &command.BufferedSender{}
	inv := &command.Invocation{
		Text:     req.Text,
		ChatType: chatType,
		ChatID:   req.ChatID,
		UserID:   req.UserID,
		Sender:   sender,
	}

	cmd, outcome, err := h.dispatcher.Dispatch(c.Request.Context(), inv)
	if err != nil {
		models.HandleError(c, dispatchError(err).
			WithContext("user_id", req.UserID).
			WithContext("chat_type", chatType.String()), log)
		return
	}

	c.JSON(http.StatusOK, CommandResponse{
		Command:       cmd.Name,
		InvocationID:  inv.ID,
		Success:       outcome.Success,
		Reason:        outcome.Reason,
		Intercept:     outcome.Intercept,
		Messages:      sender.Messages(),
		CorrelationID: logger.GetCorrelationIDFromContext(c.Request.Context()),
	})
}

func dispatchError(err error) *models.AppError {
	switch {
	case errors.Is(err, command.ErrEmptyCommand):
		return models.NewAppErrorWithDetails(models.ErrorCodeInvalidRequest, "Empty command", err.Error())
	case errors.Is(err, command.ErrUnknownCommand):
		return models.NewAppErrorWithDetails(models.ErrorCodeUnknownCommand, "Unknown command", err.Error())
	case errors.Is(err, command.ErrPermissionDenied):
		return models.NewAppErrorWithDetails(models.ErrorCodePermissionDenied, "Permission denied", err.Error())
	case errors.Is(err, command.ErrChatTypeNotAllowed):
		return models.NewAppErrorWithDetails(models.ErrorCodeChatTypeNotAllowed, "Command not available in this chat", err.Error())
	default:
		return models.NewAppErrorWithCause(models.ErrorCodeInternalError, "Failed to dispatch command", err)
	}
}
