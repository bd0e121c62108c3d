package apps

import (
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/gofiber/fiber/v2"

	"github.com/centralhq/central/auth"
	"github.com/centralhq/central/reply"
)

// Controller exposes the application registry over HTTP
type Controller struct {
	Logger  auth.Logger
	service *Service
}

// NewController builds the registry HTTP controller
func NewController(service *Service) *Controller {
	return &Controller{
		Logger:  auth.DefaultLogger(),
		service: service,
	}
}

// WithLogger overrides the controller logger
func (ct *Controller) WithLogger(logger auth.Logger) *Controller {
	if logger != nil {
		ct.Logger = logger
	}
	return ct
}

// RegisterRoutes mounts the registry routes, all behind the guard
func (ct *Controller) RegisterRoutes(r fiber.Router, guard fiber.Handler) {
	grp := r.Group("/application", guard)

	grp.Post("/", ct.Create)
	grp.Patch("/:id", ct.Update)
	grp.Get("/read", ct.List)
}

// CreatePayload is the create request body
type CreatePayload struct {
	Name        string `json:"name" form:"name"`
	Description string `json:"description" form:"description"`
	IsActive    *bool  `json:"is_active" form:"is_active"`
}

func (r CreatePayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Description, validation.Length(0, 1000)),
	)
}

func (ct *Controller) Create(c *fiber.Ctx) error {
	payload := CreatePayload{}
	if err := c.BodyParser(&payload); err != nil {
		return reply.BadRequest(c, "Invalid request body")
	}

	if err := payload.Validate(); err != nil {
		return reply.BadRequest(c, "Validation failed", err)
	}

	record, err := ct.service.Create(c.UserContext(), CreateInput{
		Name:        payload.Name,
		Description: payload.Description,
		IsActive:    payload.IsActive,
	})
	if err != nil {
		ct.Logger.Error("application create failed: %v", err)
		return reply.Error(c, err)
	}

	return reply.Created(c, "Application created successfully", record)
}

// UpdatePayload is the patch request body; absent fields stay untouched
type UpdatePayload struct {
	Name        *string `json:"name" form:"name"`
	Description *string `json:"description" form:"description"`
	IsActive    *bool   `json:"is_active" form:"is_active"`
}

func (r UpdatePayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Length(1, 200)),
		validation.Field(&r.Description, validation.Length(0, 1000)),
	)
}

func (ct *Controller) Update(c *fiber.Ctx) error {
	payload := UpdatePayload{}
	if err := c.BodyParser(&payload); err != nil {
		return reply.BadRequest(c, "Invalid request body")
	}

	if err := payload.Validate(); err != nil {
		return reply.BadRequest(c, "Validation failed", err)
	}

	record, err := ct.service.Update(c.UserContext(), c.Params("id"), UpdateInput{
		Name:        payload.Name,
		Description: payload.Description,
		IsActive:    payload.IsActive,
	})
	if err != nil {
		ct.Logger.Error("application update failed: %v", err)
		return reply.Error(c, err)
	}

	return reply.OK(c, "Application updated successfully", record)
}

func (ct *Controller) List(c *fiber.Ctx) error {
	listing, err := ct.service.List(
		c.UserContext(),
		c.Query("search"),
		c.QueryInt("page", 1),
		c.QueryInt("limit", 10),
	)
	if err != nil {
		ct.Logger.Error("application list failed: %v", err)
		return reply.Error(c, err)
	}

	return reply.OK(c, "Applications retrieved successfully", listing)
}
