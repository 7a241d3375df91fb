package app

import (
	"gratitude_chat_service/internal/feed/repository"
	notifydomain "gratitude_chat_service/internal/notify/domain"
	notifyrepo "gratitude_chat_service/internal/notify/repository"
	"gratitude_chat_service/pkg/logger"
	"gratitude_chat_service/pkg/middlewares"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// FeedHTTPHandler REST endpoints that sit beside the websocket: image
// upload and device endpoint registration
type FeedHTTPHandler struct {
	images    repository.ImageStore
	endpoints notifyrepo.EndpointRepository
}

// NewFeedHTTPHandler create FeedHTTPHandler
func NewFeedHTTPHandler(images repository.ImageStore, endpoints notifyrepo.EndpointRepository) *FeedHTTPHandler {
	return &FeedHTTPHandler{images: images, endpoints: endpoints}
}

// UploadImage accept one multipart file and return the presigned URL the
// client puts into a send_message request
func (h *FeedHTTPHandler) UploadImage(c *fiber.Ctx) error {
	threadID := c.Params("thread_id")
	if threadID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "thread_id required"})
	}

	fileHeader, err := c.FormFile("image")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "image file required"})
	}

	file, err := fileHeader.Open()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "cannot open image"})
	}
	defer file.Close()

	contentType := fileHeader.Header.Get("Content-Type")
	url, err := h.images.UploadMessageImage(c.Context(), threadID, fileHeader.Filename, file, fileHeader.Size, contentType)
	if err != nil {
		logger.Log.Error("image upload failed",
			zap.String("thread_id", threadID),
			zap.Error(err),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "upload failed"})
	}

	return c.JSON(fiber.Map{"image_url": url})
}

type registerEndpointRequest struct {
	Token    string `json:"token"`
	Platform string `json:"platform"`
}

// RegisterEndpoint store one device push token for the authenticated user;
// re-registering the same token is a no-op
func (h *FeedHTTPHandler) RegisterEndpoint(c *fiber.Ctx) error {
	userID, ok := c.Locals(middlewares.TokenUserID).(string)
	if !ok || userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
	}

	var req registerEndpointRequest
	if err := c.BodyParser(&req); err != nil || req.Token == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "token required"})
	}

	endpoint := &notifydomain.DeviceEndpoint{
		RecipientID: userID,
		Token:       req.Token,
		Platform:    req.Platform,
	}
	if err := h.endpoints.Register(c.Context(), endpoint); err != nil {
		logger.Log.Error("endpoint register failed",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "register failed"})
	}

	return c.JSON(fiber.Map{"registered": true})
}
