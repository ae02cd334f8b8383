package httpmiddleware

import (
	"net/http"
	"strings"

	"github.com/julienschmidt/httprouter"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// RouteFinder maps a request to its route pattern, e.g. "/api/carts/:id".
type RouteFinder func(r *http.Request) (string, bool)

// MakeRouteFinder resolves routes registered on router. Path segments that
// carry a parameter value are replaced with ":name".
func MakeRouteFinder(router *httprouter.Router) RouteFinder {
	return func(r *http.Request) (string, bool) {
		h, ps, _ := router.Lookup(r.Method, r.URL.Path)
		if h == nil {
			return "", false
		}
		if len(ps) == 0 {
			return r.URL.Path, true
		}
		segs := strings.Split(r.URL.Path, "/")
		next := 0
		for i, s := range segs {
			if next < len(ps) && s == ps[next].Value {
				segs[i] = ":" + ps[next].Key
				next++
			}
		}
		return strings.Join(segs, "/"), true
	}
}

func routeOf(find RouteFinder, r *http.Request) string {
	if find != nil {
		if route, ok := find(r); ok {
			return route
		}
	}
	return "unknown"
}

// Telemetry provides the OpenTelemetry providers for Instrument.
type Telemetry interface {
	TracerProvider() trace.TracerProvider
	MeterProvider() metric.MeterProvider
}

// Instrument traces requests and records the standard HTTP server metrics.
// Spans are named "METHOD /route". Probe endpoints are not traced.
func Instrument(service string, find RouteFinder, t Telemetry) Middleware {
	return func(next http.Handler) http.Handler {
		return otelhttp.NewHandler(next, service,
			otelhttp.WithTracerProvider(t.TracerProvider()),
			otelhttp.WithMeterProvider(t.MeterProvider()),
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				return r.Method + " " + routeOf(find, r)
			}),
			otelhttp.WithFilter(func(r *http.Request) bool {
				return r.URL.Path != "/livez" && r.URL.Path != "/readyz"
			}),
		)
	}
}

// Labeler adds the http.route attribute to the metrics recorded by
// Instrument. It must run inside Instrument.
func Labeler(find RouteFinder) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if l, ok := otelhttp.LabelerFromContext(r.Context()); ok {
				l.Add(attribute.String("http.route", routeOf(find, r)))
			}
			next.ServeHTTP(w, r)
		})
	}
}
