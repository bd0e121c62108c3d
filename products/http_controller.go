package products

import (
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/gofiber/fiber/v2"

	"github.com/centralhq/central/auth"
	"github.com/centralhq/central/reply"
)

// Controller exposes the catalog over HTTP
type Controller struct {
	Logger  auth.Logger
	service *Service
}

// NewController builds the catalog HTTP controller
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

// RegisterRoutes mounts the catalog routes. Create is validated but open;
// the rest sit behind the guard.
func (ct *Controller) RegisterRoutes(r fiber.Router, guard fiber.Handler) {
	grp := r.Group("/product")

	grp.Post("/", ct.Create)
	grp.Get("/", guard, ct.List)
	grp.Get("/:id", guard, ct.GetByID)
	grp.Patch("/:id", guard, ct.Update)
	grp.Delete("/:id", guard, ct.Delete)
}

// CreatePayload is the create request body
type CreatePayload struct {
	Title       string  `json:"title" form:"title"`
	Description string  `json:"description" form:"description"`
	Price       float64 `json:"price" form:"price"`
	Quantity    int     `json:"quantity" form:"quantity"`
	IsActive    *bool   `json:"is_active" form:"is_active"`
}

func (r CreatePayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Description, validation.Length(0, 1000)),
		validation.Field(&r.Price, validation.Required, validation.Min(0.0)),
		validation.Field(&r.Quantity, validation.Required, validation.Min(0)),
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
		Title:       payload.Title,
		Description: payload.Description,
		Price:       payload.Price,
		Quantity:    payload.Quantity,
		IsActive:    payload.IsActive,
	})
	if err != nil {
		ct.Logger.Error("product create failed: %v", err)
		return reply.Error(c, err)
	}

	return reply.Created(c, "Product created successfully", record)
}

func (ct *Controller) List(c *fiber.Ctx) error {
	records, err := ct.service.List(c.UserContext())
	if err != nil {
		ct.Logger.Error("product list failed: %v", err)
		return reply.Error(c, err)
	}

	return reply.OK(c, "Products retrieved successfully", records)
}

func (ct *Controller) GetByID(c *fiber.Ctx) error {
	record, err := ct.service.GetByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return reply.Error(c, err)
	}

	return reply.OK(c, "Product retrieved successfully", record)
}

// UpdatePayload is the patch request body; absent fields stay untouched
type UpdatePayload struct {
	Title       *string  `json:"title" form:"title"`
	Description *string  `json:"description" form:"description"`
	Price       *float64 `json:"price" form:"price"`
	Quantity    *int     `json:"quantity" form:"quantity"`
	IsActive    *bool    `json:"is_active" form:"is_active"`
}

func (r UpdatePayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.Length(1, 200)),
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
		Title:       payload.Title,
		Description: payload.Description,
		Price:       payload.Price,
		Quantity:    payload.Quantity,
		IsActive:    payload.IsActive,
	})
	if err != nil {
		ct.Logger.Error("product update failed: %v", err)
		return reply.Error(c, err)
	}

	return reply.OK(c, "Product updated successfully", record)
}

func (ct *Controller) Delete(c *fiber.Ctx) error {
	if err := ct.service.Delete(c.UserContext(), c.Params("id")); err != nil {
		ct.Logger.Error("product delete failed: %v", err)
		return reply.Error(c, err)
	}

	return reply.OK(c, "Product deleted successfully")
}
