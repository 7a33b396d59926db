package app

import (
	"net/url"
	"sync"

	"bpcd/pkg/app/config"
	"bpcd/pkg/bpc"
	"bpcd/pkg/mqtt"
	"bpcd/pkg/raspberry"

	"github.com/gofiber/fiber/v2"
	"github.com/lestrrat-go/strftime"
	"github.com/womat/debug"
)

// results is the capacity of the channel between the irq handler and the service.
const results = 16

// App is the main application struct.
// App is where the application is wired up.
type App struct {
	// web is the fiber web framework instance
	web *fiber.App

	// config is the application configuration
	config *config.Config

	// urlParsed contains the parsed Config.Url parameter
	// and makes it easier to get params out of e.g.
	// url: https://0.0.0.0:7844/?minTls=1.2&bodyLimit=50MB
	urlParsed *url.URL

	// timeFormat renders the decoded time of a frame
	timeFormat *strftime.Strftime

	// mqtt is the handler to the mqtt broker
	mqtt *mqtt.Handler

	// bpc is the decoder handle, link feeds it with the edges of the receiver
	bpc  *bpc.Handle
	link *raspberry.Link
	// closed is set once the link is stopped and results is closed
	closed bool

	// results receives the frames of the irq handler
	results chan bpc.Result

	// last is the last received frame
	last struct {
		sync.RWMutex
		data  Data
		valid bool
	}

	metrics *metrics

	// shutdown signals application shutdown, it's closed once by stop
	shutdown chan struct{}
	stop     sync.Once
}

// New checks the Web server URL and initialize the main app structure
func New(config *config.Config) (*App, error) {
	u, err := url.Parse(config.Webserver.URL)
	if err != nil {
		debug.ErrorLog.Printf("Error parsing url %q: %s", config.Webserver.URL, err.Error())
		return &App{}, err
	}

	f, err := strftime.New(config.TimeFormat)
	if err != nil {
		debug.ErrorLog.Printf("Error parsing timeformat %q: %s", config.TimeFormat, err.Error())
		return &App{}, err
	}

	app := App{
		config:     config,
		urlParsed:  u,
		timeFormat: f,

		web:  fiber.New(fiber.Config{DisableStartupMessage: true}),
		mqtt: mqtt.New(),

		results:  make(chan bpc.Result, results),
		shutdown: make(chan struct{}),
	}

	c := config.Bpc()
	c.DebugPrint = func(format string, v ...interface{}) {
		debug.TraceLog.Printf(format, v...)
	}
	app.bpc = bpc.New(c)

	if app.link, err = raspberry.New(config.Raspberry(), app.bpc.IRQHandler, app.receive); err != nil {
		debug.ErrorLog.Printf("can't create link: %v", err)
		return &App{}, err
	}

	app.metrics = newMetrics(app.bpc, app.link)
	return &app, nil
}

// Run starts the application.
func (app *App) Run() error {
	if err := app.init(); err != nil {
		return err
	}

	go app.mqtt.Service()
	go app.runWebServer()
	go app.service()

	return nil
}

// init initializes the application.
func (app *App) init() (err error) {
	if err = app.mqtt.Connect(app.config.MQTT.Connection); err != nil {
		debug.ErrorLog.Printf("can't open mqtt broker %v", err)
		return err
	}

	if err = app.bpc.Init(app.link); err != nil {
		debug.ErrorLog.Printf("can't init bpc decoder: %v", err)
		return err
	}

	// initDefaultRoutes should be always called last
	app.initDefaultRoutes()

	return nil
}

// Shutdown returns the read only shutdown channel.
// Shutdown is closed if the application can't continue, e.g. the web server failed. (see cmd/bpcd.go)
func (app *App) Shutdown() <-chan struct{} {
	return app.shutdown
}

// fail requests the application shutdown.
func (app *App) fail() {
	app.stop.Do(func() { close(app.shutdown) })
}

// Close stops the link first, the irq handler isn't called afterwards.
// If the link can't be closed the decoder keeps running and Close may be retried.
func (app *App) Close() error {
	if app.link != nil && !app.closed {
		if err := app.link.Close(); err != nil {
			debug.ErrorLog.Printf("can't close link: %v", err)
			return err
		}
		_ = app.bpc.Deinit()
		close(app.results)
		app.closed = true
	}

	if app.mqtt != nil {
		_ = app.mqtt.Disconnect()
	}

	if app.web != nil {
		_ = app.web.Shutdown()
	}
	return nil
}
