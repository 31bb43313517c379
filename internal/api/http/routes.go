// Package httpapi exposes the risk assessment over HTTP
package httpapi

import (
	"context"
	"strconv"
	"time"

	"github.com/abelzeko/ache-o-meter/internal/entities"
	"github.com/abelzeko/ache-o-meter/internal/forecast"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// Assessor evaluates the risks for a coordinate
type Assessor interface {
	Assess(ctx context.Context, coord entities.Coordinate) forecast.Assessment
}

const assessTimeout = 30 * time.Second

// NewApp creates the Fiber application with all routes registered.
func NewApp(assessor Assessor) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "ache-o-meter",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          assessTimeout + 5*time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})
	RegisterRoutes(app, assessor)
	return app
}

// RegisterRoutes wires HTTP endpoints.
func RegisterRoutes(app *fiber.App, assessor Assessor) {
	validate := validator.New()

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "ache-o-meter",
		})
	})

	api := app.Group("/api/v1")

	// GET /api/v1/risk?lat=55.75&lon=37.62
	api.Get("/risk", func(c *fiber.Ctx) error {
		coord, err := parseCoordinate(c)
		if err != nil {
			return err
		}
		if err := validate.Struct(coord); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "coordinates out of range")
		}

		ctx, cancel := context.WithTimeout(c.UserContext(), assessTimeout)
		defer cancel()

		return c.JSON(assessor.Assess(ctx, coord))
	})
}

func parseCoordinate(c *fiber.Ctx) (entities.Coordinate, error) {
	lat, err := strconv.ParseFloat(c.Query("lat"), 64)
	if err != nil {
		return entities.Coordinate{}, fiber.NewError(fiber.StatusBadRequest, "query parameter lat must be a number")
	}
	lon, err := strconv.ParseFloat(c.Query("lon"), 64)
	if err != nil {
		return entities.Coordinate{}, fiber.NewError(fiber.StatusBadRequest, "query parameter lon must be a number")
	}
	return entities.Coordinate{Latitude: lat, Longitude: lon}, nil
}
