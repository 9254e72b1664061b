// Package httpx holds the response helpers shared by the handlers:
// post/redirect/get answers, form re-renders and path id parsing.
package httpx

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
)

// SeeOther answers 303 with a Location header. The JSON body repeats the
// target so API clients need not read headers.
func SeeOther(c *fiber.Ctx, location, notice string) error {
	return SeeOtherWith(c, location, notice, nil)
}

func SeeOtherWith(c *fiber.Ctx, location, notice string, extra fiber.Map) error {
	body := fiber.Map{"redirect": location}
	if notice != "" {
		body["notice"] = notice
	}
	for k, v := range extra {
		body[k] = v
	}
	c.Location(location)
	return c.Status(fiber.StatusSeeOther).JSON(body)
}

// Rerender answers the form view again with an inline error.
func Rerender(c *fiber.Ctx, status int, view fiber.Map, message string) error {
	if view == nil {
		view = fiber.Map{}
	}
	view["error_message"] = message
	return c.Status(status).JSON(view)
}

// ParamID parses a positive numeric path parameter.
func ParamID(c *fiber.Ctx, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil || id == 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "invalid "+name)
	}
	return uint(id), nil
}

func LagerPath(id uint) string {
	return "/lager/" + strconv.FormatUint(uint64(id), 10) + "/"
}
