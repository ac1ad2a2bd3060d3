package app

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	httpSwagger "github.com/swaggo/http-swagger"

	"callbridge/pkg/binding"
	"callbridge/pkg/invoker"
	"callbridge/pkg/logger"
	"callbridge/pkg/telemetry"
	"callbridge/pkg/utils"
)

// routes builds the gateway router: the invocation surface plus the
// operational endpoints.
func (a *App) routes() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", healthzHandler).Methods(http.MethodGet)
	r.HandleFunc("/readyz", a.readyzHandler).Methods(http.MethodGet)
	r.Handle("/metrics", telemetry.Handler()).Methods(http.MethodGet)
	r.PathPrefix("/docs/").Handler(httpSwagger.Handler(httpSwagger.URL("/openapi.yaml")))
	r.Handle("/openapi.yaml", http.FileServer(http.Dir("./docs")))

	r.HandleFunc("/v1/operations", a.listOperationsHandler).Methods(http.MethodGet)
	r.HandleFunc("/v1/invoke/{operation}", a.invokeHandler).Methods(http.MethodPost)
	r.HandleFunc("/v1/records/{operation}", a.recordsHandler).Methods(http.MethodGet)
	return r
}

func healthzHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func (a *App) readyzHandler(w http.ResponseWriter, r *http.Request) {
	if !a.ready {
		utils.JSONError(w, http.StatusServiceUnavailable, "not ready")
		return
	}
	ver := a.version
	if ver == "" {
		ver = "dev"
	}
	_ = utils.JSONWrite(w, http.StatusOK, map[string]string{"status": "ok", "version": ver})
}

func (a *App) listOperationsHandler(w http.ResponseWriter, r *http.Request) {
	_ = utils.JSONWrite(w, http.StatusOK, map[string]any{"operations": a.reg.Keys()})
}

// invokeHandler forwards an inbound request to the engine. The request
// body is a JSON object of argument values keyed by declared parameter
// name. Domain errors render as {statusCode, message}: remote rejections
// keep their 4xx, upstream/transport failures render 5xx.
func (a *App) invokeHandler(w http.ResponseWriter, r *http.Request) {
	opKey := mux.Vars(r)["operation"]

	args := binding.Args{}
	if r.Body != nil {
		if err := json.NewDecoder(r.Body).Decode(&args); err != nil && !errors.Is(err, io.EOF) {
			utils.JSONError(w, http.StatusBadRequest, "invalid json body")
			return
		}
	}

	var result any
	out, err := a.inv.Invoke(r.Context(), opKey, args, &result)
	if err != nil {
		var derr *invoker.DomainError
		if errors.As(err, &derr) {
			logger.Warn("invoke_failed", "operation", opKey, "kind", derr.Kind, "status", derr.StatusCode)
			renderDomainError(w, derr)
			return
		}
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}

	logger.Debug("invoke_ok", "operation", opKey, "status", out.StatusCode)
	_ = utils.JSONWrite(w, http.StatusOK, map[string]any{
		"status": out.StatusCode,
		"result": result,
	})
}

func renderDomainError(w http.ResponseWriter, derr *invoker.DomainError) {
	body := map[string]any{
		"statusCode": derr.HTTPStatus(),
		"message":    derr.Error(),
	}
	if derr.BodyExcerpt != "" {
		body["upstream"] = derr.BodyExcerpt
	}
	_ = utils.JSONWrite(w, derr.HTTPStatus(), body)
}

func (a *App) recordsHandler(w http.ResponseWriter, r *http.Request) {
	if a.rec == nil {
		utils.JSONError(w, http.StatusNotFound, "record journal disabled")
		return
	}
	opKey := mux.Vars(r)["operation"]
	limit := 50
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			limit = n
		}
	}
	entries, err := a.rec.Recent(opKey, limit)
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, map[string]any{"records": entries})
}
