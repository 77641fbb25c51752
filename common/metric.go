package common

import (
	"net/http"

	"github.com/gorilla/handlers"
	_ "github.com/mkevac/debugcharts" // registers /debug/charts on the default mux
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var log = NewLog("common")

func NewMetricServer() {
	port := ":9000"
	log.Info("Starting metric server", "listen", port)
	http.Handle("/metrics", handlers.CompressHandler(promhttp.Handler()))
	go func() {
		if err := http.ListenAndServe(port, nil); err != nil {
			panic(err)
		}
	}()
}
