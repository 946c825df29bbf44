package httpapi

import (
	"net/http"

	"go.uber.org/zap"
)

// Router 使用标准库 http.ServeMux（避免引入第三方路由依赖）
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	r := &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
	r.Handle("/health", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, Ok(map[string]any{"status": "ok"}))
	})
	return r
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

// HandleHandler 支持 http.Handler 接口
func (r *Router) HandleHandler(pattern string, h http.Handler) {
	r.mux.Handle(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// RegisterVitalsRoutes 读数接入、最新读数、历史、导出
func (r *Router) RegisterVitalsRoutes(v *VitalsHandler) {
	r.HandleHandler("/api/v1/vitals", v)
	r.HandleHandler("/api/v1/vitals/", v)
}

// RegisterThresholdRoutes 阈值表
func (r *Router) RegisterThresholdRoutes(t *ThresholdsHandler) {
	r.HandleHandler("/api/v1/thresholds", t)
	r.HandleHandler("/api/v1/thresholds/", t)
}

// RegisterFeverRoutes 发热分诊
func (r *Router) RegisterFeverRoutes(f *FeverHandler) {
	r.HandleHandler("/api/v1/fever/", f)
}

// RegisterAlarmEventRoutes 报警事件；未配置数据库时不注册
func (r *Router) RegisterAlarmEventRoutes(a *AlarmEventHandler) {
	r.HandleHandler("/api/v1/alarm-events", a)
	r.HandleHandler("/api/v1/alarm-events/", a)
}
