package router

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dujiao-next/warehouse/internal/config"
	"github.com/dujiao-next/warehouse/internal/logger"
	"github.com/dujiao-next/warehouse/internal/provider"
	"github.com/dujiao-next/warehouse/internal/repository"
	"github.com/dujiao-next/warehouse/internal/service"

	"github.com/gin-gonic/gin"
)

type envelope struct {
	StatusCode int             `json:"status_code"`
	Msg        string          `json:"msg"`
	Data       json.RawMessage `json:"data"`
	Pagination struct {
		Total int64 `json:"total"`
	} `json:"pagination"`
}

func setupTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger.Init("debug", logger.Options{})

	cfg := &config.Config{Warehouse: config.DefaultWarehouseConfig()}
	repo := repository.NewMemoryTableRepository(nil)
	inventory := service.NewInventoryService(repo, cfg.Warehouse)
	c := &provider.Container{
		Config:           cfg,
		TableRepo:        repo,
		CaptchaService:   service.NewCaptchaService(cfg.Captcha),
		InventoryService: inventory,
		ExportService:    service.NewExportService(inventory),
		ImageService:     service.NewImageService(nil, inventory, cfg.Upload),
		StatusDispatcher: service.NewStatusRefreshDispatcher(inventory, nil),
	}
	return SetupRouter(cfg, c)
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body interface{}) envelope {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body failed: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("%s %s http status = %d", method, path, w.Code)
	}
	var resp envelope
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("%s %s decode failed: %v body=%s", method, path, err, w.Body.String())
	}
	return resp
}

func TestWarehouseFlowWithoutAuth(t *testing.T) {
	r := setupTestRouter(t)

	health := doJSON(t, r, http.MethodGet, "/api/v1/health", nil)
	if health.StatusCode != 0 {
		t.Fatalf("health status_code = %d msg=%s", health.StatusCode, health.Msg)
	}

	stockIn := doJSON(t, r, http.MethodPost, "/api/v1/warehouse/stock-in", gin.H{
		"stock_in_items": []gin.H{{
			"货号":   "RT-001",
			"类型":   "样品",
			"地址类型": "1",
			"楼层":   "1",
			"架号":   "A1",
			"框号":   "01",
			"入库数量": "10",
			"操作人":  "张三",
		}},
	})
	if stockIn.StatusCode != 0 {
		t.Fatalf("stock-in status_code = %d msg=%s", stockIn.StatusCode, stockIn.Msg)
	}
	var inResult struct {
		SuccessCount int   `json:"success_count"`
		InventoryIDs []int `json:"inventory_ids"`
	}
	if err := json.Unmarshal(stockIn.Data, &inResult); err != nil {
		t.Fatalf("decode stock-in result failed: %v", err)
	}
	if inResult.SuccessCount != 1 || len(inResult.InventoryIDs) != 1 {
		t.Fatalf("unexpected stock-in result: %+v", inResult)
	}
	lotID := inResult.InventoryIDs[0]

	list := doJSON(t, r, http.MethodGet, "/api/v1/warehouse/inventory", nil)
	if list.StatusCode != 0 || list.Pagination.Total != 1 {
		t.Fatalf("inventory list status_code=%d total=%d", list.StatusCode, list.Pagination.Total)
	}

	out := doJSON(t, r, http.MethodPost, "/api/v1/warehouse/stock-out", gin.H{
		"inventory_ids": []int{lotID},
		"out_quantity":  3,
		"operator":      "张三",
	})
	if out.StatusCode != 0 {
		t.Fatalf("stock-out status_code = %d msg=%s", out.StatusCode, out.Msg)
	}

	over := doJSON(t, r, http.MethodPost, "/api/v1/warehouse/stock-out", gin.H{
		"inventory_ids": []int{lotID},
		"out_quantity":  100,
		"operator":      "张三",
	})
	if over.StatusCode != 409 {
		t.Fatalf("oversized stock-out should be 409, got %d msg=%s", over.StatusCode, over.Msg)
	}

	noOperator := doJSON(t, r, http.MethodPost, "/api/v1/warehouse/stock-out", gin.H{
		"inventory_ids": []int{lotID},
		"out_quantity":  1,
	})
	if noOperator.StatusCode != 400 {
		t.Fatalf("stock-out without operator should be 400, got %d", noOperator.StatusCode)
	}

	check := doJSON(t, r, http.MethodGet, fmt.Sprintf("/api/v1/warehouse/stock-check?inventory_id=%d&type=out&quantity=8", lotID), nil)
	if check.StatusCode != 0 {
		t.Fatalf("stock-check status_code = %d msg=%s", check.StatusCode, check.Msg)
	}
	var checkResult struct {
		Passed bool `json:"passed"`
	}
	if err := json.Unmarshal(check.Data, &checkResult); err != nil {
		t.Fatalf("decode stock-check failed: %v", err)
	}
	if checkResult.Passed {
		t.Fatalf("stock-check for 8 with 7 left should not pass")
	}

	undo := doJSON(t, r, http.MethodPost, "/api/v1/warehouse/undo", nil)
	if undo.StatusCode != 0 {
		t.Fatalf("undo status_code = %d msg=%s", undo.StatusCode, undo.Msg)
	}
	recheck := doJSON(t, r, http.MethodGet, fmt.Sprintf("/api/v1/warehouse/stock-check?inventory_id=%d&type=out&quantity=8", lotID), nil)
	if err := json.Unmarshal(recheck.Data, &checkResult); err != nil {
		t.Fatalf("decode stock-check failed: %v", err)
	}
	if !checkResult.Passed {
		t.Fatalf("stock-check after undo should pass: %s", recheck.Msg)
	}

	badType := doJSON(t, r, http.MethodGet, fmt.Sprintf("/api/v1/warehouse/stock-check?inventory_id=%d&type=move&quantity=1", lotID), nil)
	if badType.StatusCode != 400 {
		t.Fatalf("unknown check type should be 400, got %d", badType.StatusCode)
	}
}

func TestSetupRouterSkipsAuthRoutesWhenDisabled(t *testing.T) {
	r := setupTestRouter(t)
	for _, route := range r.Routes() {
		switch route.Path {
		case "/api/v1/auth/login", "/api/v1/warehouse/operators", "/api/v1/warehouse/permissions/catalog", "/images/*path":
			t.Fatalf("route %s %s should not be registered", route.Method, route.Path)
		}
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("login without auth should be 404, got %d", w.Code)
	}
}

func TestBuildPermissionCatalog(t *testing.T) {
	r := setupTestRouter(t)
	items := buildPermissionCatalog(r)
	if len(items) == 0 {
		t.Fatalf("catalog should not be empty")
	}
	found := false
	for _, item := range items {
		if item.Object == "/warehouse/stock-in" && item.Method == http.MethodPost {
			found = true
			if item.Module != "stock-in" || item.Permission != "POST:/warehouse/stock-in" {
				t.Fatalf("unexpected catalog item: %+v", item)
			}
		}
		if item.Object == "/health" {
			t.Fatalf("public routes should be excluded: %+v", item)
		}
	}
	if !found {
		t.Fatalf("stock-in route missing from catalog")
	}
	if got := buildPermissionCatalog(nil); len(got) != 0 {
		t.Fatalf("nil engine should yield empty catalog")
	}
}

func TestDerivePermissionModule(t *testing.T) {
	cases := []struct {
		object string
		want   string
	}{
		{"", "system"},
		{"/health", "health"},
		{"/warehouse/inventory/:id", "inventory"},
		{"/warehouse/operation-records/export", "operation-records"},
		{"/meta/floors", "meta"},
	}
	for _, tc := range cases {
		t.Run(tc.object, func(t *testing.T) {
			if got := derivePermissionModule(tc.object); got != tc.want {
				t.Fatalf("derivePermissionModule(%q) = %q, want %q", tc.object, got, tc.want)
			}
		})
	}
}
