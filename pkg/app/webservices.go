package app

import (
	"net/http"

	"bpcd/pkg/bpc"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/womat/debug"
)

// runWebServer starts the applications web server and listens for web requests.
//  It's designed to run in a separate go function to not block the main go function.
//  e.g.: go runWebServer()
//  See app.Run()
func (app *App) runWebServer() {
	if err := app.web.Listen(app.urlParsed.Host); err != nil {
		debug.ErrorLog.Print(err)
		app.fail()
	}
}

// HandleData returns the last decoded frame.
func (app *App) HandleData() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		debug.InfoLog.Print("web request data")

		d, ok := app.lastData()
		if !ok {
			ctx.Status(http.StatusNotFound)
			return ctx.JSON(fiber.Map{"error": "no frame decoded yet"})
		}
		return ctx.JSON(d)
	}
}

// HandleStatus returns the state of the decoder and the device information.
func (app *App) HandleStatus() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		debug.InfoLog.Print("web request status")

		return ctx.JSON(fiber.Map{
			"backend": app.config.Link.Backend,
			"gpio":    app.config.Link.Gpio,
			"edges":   app.link.Edges(),
			"decoder": app.bpc.Snapshot(),
			"device":  bpc.Info(),
		})
	}
}

// HandleMetrics serves the prometheus metrics of the decoder.
func (app *App) HandleMetrics() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(app.metrics.registry, promhttp.HandlerOpts{}))
}
