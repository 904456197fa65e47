package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/dismissal-api/internal/dto"
	"github.com/noah-isme/dismissal-api/internal/models"
	"github.com/noah-isme/dismissal-api/internal/reconcile"
	"github.com/noah-isme/dismissal-api/internal/service"
	"github.com/noah-isme/dismissal-api/internal/utils"
)

// StudentHandler serves the roster.
type StudentHandler struct {
	service service.RosterService
	logger  zerolog.Logger
}

// NewStudentHandler constructs a roster handler.
func NewStudentHandler(service service.RosterService, logger zerolog.Logger) *StudentHandler {
	return &StudentHandler{
		service: service,
		logger:  logger.With().Str("component", "student_handler").Logger(),
	}
}

// Register wires the public roster picker.
func (h *StudentHandler) Register(router fiber.Router) {
	router.Get("/", h.list)
}

// RegisterStaff wires roster management.
func (h *StudentHandler) RegisterStaff(router fiber.Router) {
	router.Post("/", h.create)
}

func (h *StudentHandler) list(c *fiber.Ctx) error {
	students, err := h.service.List(requestContext(c))
	if err != nil {
		return sendServiceError(c, h.logger, err, "roster load")
	}

	grades := make([]dto.RosterGradeResponse, 0, models.MaxGrade)
	for grade := models.MinGrade; grade <= models.MaxGrade; grade++ {
		members := make([]models.Student, 0)
		for _, student := range students {
			if student.Grade == grade {
				members = append(members, student)
			}
		}
		grades = append(grades, dto.RosterGradeResponse{
			Grade:    grade,
			Label:    reconcile.GradeLabel(grade),
			Students: dto.NewStudentResponseSlice(members),
		})
	}

	return utils.SendSuccess(c, "roster", fiber.Map{
		"grades":  grades,
		"methods": models.DismissalMethods,
		"hours":   reconcile.Hours,
		"minutes": reconcile.Minutes,
	})
}

func (h *StudentHandler) create(c *fiber.Ctx) error {
	var payload dto.CreateStudentRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	student, err := h.service.Add(requestContext(c), payload)
	if err != nil {
		return sendServiceError(c, h.logger, err, "student add")
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "student added", dto.NewStudentResponse(student))
}
