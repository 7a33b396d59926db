package app

import (
	"time"

	"bpcd/pkg/bpc"
	"bpcd/pkg/mqtt"

	"github.com/womat/debug"
)

// Data is the payload of a decoded frame, served by /data and published to mqtt.
type Data struct {
	bpc.Result
	// DiffUs is Result.Diff in µs.
	DiffUs int64 `json:"diffUs"`
	// Time is the decoded time rendered with the configured timeformat.
	Time string `json:"time"`
	// TimeStamp is the decoded time.
	TimeStamp time.Time `json:"timestamp"`
	// Received is the system time the frame was received.
	Received time.Time `json:"received"`
}

// receive is called by the bpc decoder in the context of the irq handler.
// It must not block, frames are dropped if the service falls behind.
func (app *App) receive(r bpc.Result) {
	select {
	case app.results <- r:
	default:
		app.metrics.dropped.Inc()
	}
}

// service waits for decoded frames until the results channel is closed.
func (app *App) service() {
	for r := range app.results {
		app.handleResult(r, time.Now())
	}
}

// handleResult saves the frame to app main structure and sends it to the mqtt broker.
func (app *App) handleResult(r bpc.Result, received time.Time) {
	app.metrics.observe(r)

	if r.Status != bpc.StatusOK {
		debug.InfoLog.Printf("received %v frame", r.Status)
		if app.config.MQTT.PublishInvalid {
			app.sendMQTT(app.config.MQTT.Topic, Data{Result: r, DiffUs: r.Diff.Microseconds(), Received: received})
		}
		return
	}

	d := Data{Result: r, DiffUs: r.Diff.Microseconds(), Received: received, TimeStamp: r.Time(app.config.TimeZone)}
	d.Time = app.timeFormat.FormatString(d.TimeStamp)
	app.metrics.last.Set(float64(d.TimeStamp.Unix()))
	debug.DebugLog.Printf("frame: %v diff: %v", d.Time, r.Diff)

	app.last.Lock()
	app.last.data = d
	app.last.valid = true
	app.last.Unlock()

	app.sendMQTT(app.config.MQTT.Topic, d)
}

// lastData returns the last valid frame.
func (app *App) lastData() (Data, bool) {
	app.last.RLock()
	defer app.last.RUnlock()
	return app.last.data, app.last.valid
}

// sendMQTT send message struct to the mqtt broker.
func (app *App) sendMQTT(topic string, message interface{}) {
	debug.TraceLog.Printf("prepare mqtt message %v %v", topic, message)

	msg, err := mqtt.NewJSONMessage(topic, message)
	if err != nil {
		debug.ErrorLog.Printf("sendMQTT marshal: %v", err)
		return
	}
	msg.Retained = true

	select {
	case app.mqtt.C <- msg:
	default:
		debug.ErrorLog.Printf("mqtt queue is full, drop message to topic %v", topic)
	}
}
