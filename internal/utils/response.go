package utils

import "github.com/gofiber/fiber/v2"

// Default envelope messages.
const (
	DefaultSuccessMessage = "처리되었습니다."
	DefaultErrorMessage   = "요청을 처리하지 못했습니다."
)

// APIResponse is the envelope every JSON endpoint answers with. RequestID
// echoes the correlation id so staff can quote it when reporting a problem.
type APIResponse struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Details   interface{} `json:"details,omitempty"`
	Message   string      `json:"message"`
	RequestID string      `json:"request_id,omitempty"`
}

// SendSuccess sends a 200 envelope.
func SendSuccess(c *fiber.Ctx, message string, data interface{}) error {
	return SendSuccessWithStatus(c, fiber.StatusOK, message, data)
}

// SendSuccessWithStatus sends a success envelope with status, 200 when zero.
func SendSuccessWithStatus(c *fiber.Ctx, status int, message string, data interface{}) error {
	if message == "" {
		message = DefaultSuccessMessage
	}
	if status == 0 {
		status = fiber.StatusOK
	}

	return c.Status(status).JSON(APIResponse{
		Success:   true,
		Data:      data,
		Message:   message,
		RequestID: requestID(c),
	})
}

// SendError sends an error envelope without details.
func SendError(c *fiber.Ctx, status int, message string) error {
	return Fail(c, status, message, nil)
}

// Fail sends an error envelope carrying optional details, such as field errors.
func Fail(c *fiber.Ctx, status int, message string, details interface{}) error {
	if message == "" {
		message = DefaultErrorMessage
	}

	return c.Status(status).JSON(APIResponse{
		Success:   false,
		Details:   details,
		Message:   message,
		RequestID: requestID(c),
	})
}

func requestID(c *fiber.Ctx) string {
	id, _ := c.Locals("correlation_id").(string)
	return id
}
