package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/head_tracker/internal/config"
	"github.com/relabs-tech/head_tracker/internal/consumers"
	"github.com/relabs-tech/head_tracker/internal/pipeline"
)

// webView is what the web server knows about the tracker: the last
// orientation received and the health of the feed.
type webView struct {
	latest *consumers.LatestPose
	status *pipeline.StatusTracker
	hub    *consumers.Hub
}

func newWebView(commands consumers.CommandSink) *webView {
	v := &webView{
		latest: &consumers.LatestPose{},
		status: pipeline.NewStatusTracker(),
		hub:    consumers.NewHub(commands),
	}
	v.status.OnChange(v.hub)
	return v
}

// handleOrientation ingests one orientation message from the tracker.
func (v *webView) handleOrientation(payload []byte) {
	var m consumers.OrientationMessage
	if err := json.Unmarshal(payload, &m); err != nil {
		log.Printf("web: orientation unmarshal error: %v", err)
		v.status.NoData()
		return
	}
	t := m.Transform()
	v.latest.SetTransform(t)
	v.hub.ReceiveOrientation(t)
	v.status.Delivered()
}

func (v *webView) mux(staticDir string) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/orientation", func(w http.ResponseWriter, r *http.Request) {
		t, ok := v.latest.Get()
		if !ok {
			http.Error(w, "no data yet", http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, consumers.NewOrientationMessage(t, time.Now()))
	})
	mux.HandleFunc("/api/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, v.status.Current())
	})
	mux.Handle("/ws", v.hub)

	if staticDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(staticDir)))
	}
	return mux
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("web: json encode error: %v", err)
	}
}

// RunWeb serves the browser UI: a websocket orientation stream fed from
// MQTT, JSON endpoints and static files from ./web.
func RunWeb(ctx context.Context) error {
	cfg := config.Get()

	commands := &commandPublisher{topic: cfg.TopicCalibration}
	view := newWebView(commands)

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDWeb, func(error) {
		view.status.Disconnected()
	}, func(o *mqtt.ClientOptions) {
		o.SetOnConnectHandler(func(mqtt.Client) { view.status.Connected() })
	})
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	commands.client = client
	view.status.Connected()

	token := client.Subscribe(cfg.TopicOrientation, 0, func(_ mqtt.Client, msg mqtt.Message) {
		view.handleOrientation(msg.Payload())
	})
	token.Wait()
	if token.Error() != nil {
		return token.Error()
	}
	log.Printf("web: subscribed to MQTT topic %s", cfg.TopicOrientation)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.WebServerPort),
		Handler: view.mux("web"),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Printf("web: server listening on %s", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
