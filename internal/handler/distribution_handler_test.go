package handler

import (
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"multisender-core/internal/chain"
	"multisender-core/internal/engine"
	"multisender-core/internal/handler/response"
	"multisender-core/internal/service"
	"multisender-core/internal/service/mq"
	"multisender-core/pkg/errno"
)

const testAddr = "0x742d35Cc6634C0532925a3b844Bc454e4438f44e"

func newTestRouter(t *testing.T) (*gin.Engine, *chain.MockClient) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	client := chain.NewMockClient(
		common.HexToAddress("0x1111111111111111111111111111111111111111"),
		common.HexToAddress("0x2222222222222222222222222222222222222222"),
	)
	history := service.NewHistoryService(service.NewMemoryHistoryStore(), 10)
	svc := service.NewDistributionService(client, history, mq.NopProducer{}, engine.GasTierThresholds{Low: 100000, Mid: 500000})
	h := NewDistributionHandler(svc)

	r := gin.New()
	r.POST("/asset", h.SelectAsset)
	r.POST("/mode", h.SetMode)
	r.PUT("/rows", h.SetRows)
	r.POST("/equal_amount", h.SetEqualAmount)
	r.POST("/import", h.ImportCSV)
	r.GET("/template", h.Template)
	r.GET("/summary", h.Summary)
	r.POST("/send", h.Send)
	return r, client
}

func doJSON(t *testing.T, r *gin.Engine, method, path, body string) response.Response {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestSelectAssetHandler(t *testing.T) {
	r, _ := newTestRouter(t)

	resp := doJSON(t, r, http.MethodPost, "/asset", `{"kind":"native"}`)
	assert.Equal(t, errno.OK.Code, resp.Code)

	resp = doJSON(t, r, http.MethodPost, "/asset", `{"kind":"token","address":"bad"}`)
	assert.Equal(t, errno.ErrInvalidAddress.Code, resp.Code)

	resp = doJSON(t, r, http.MethodPost, "/asset", `{"kind":"house"}`)
	assert.Equal(t, errno.ErrBind.Code, resp.Code)
}

func TestImportHandler(t *testing.T) {
	r, _ := newTestRouter(t)
	doJSON(t, r, http.MethodPost, "/asset", `{"kind":"native"}`)
	doJSON(t, r, http.MethodPost, "/mode", `{"mode":"custom"}`)

	body, _ := json.Marshal(gin.H{"text": testAddr + ",1.5\nnope,2"})
	resp := doJSON(t, r, http.MethodPost, "/import", string(body))
	assert.Equal(t, errno.OK.Code, resp.Code)

	data := resp.Data.(map[string]interface{})
	assert.Equal(t, false, data["is_valid"])
	assert.Equal(t, float64(1), data["error_count"])
}

func TestSendHandlerNotReady(t *testing.T) {
	r, _ := newTestRouter(t)
	doJSON(t, r, http.MethodPost, "/asset", `{"kind":"native"}`)

	// 空批次不可发送
	resp := doJSON(t, r, http.MethodPost, "/send", `{}`)
	assert.Equal(t, errno.ErrBatchNotSendable.Code, resp.Code)
}

func TestSendHandlerFlow(t *testing.T) {
	r, client := newTestRouter(t)
	doJSON(t, r, http.MethodPost, "/asset", `{"kind":"native"}`)
	doJSON(t, r, http.MethodPost, "/equal_amount", `{"amount":"1"}`)

	body, _ := json.Marshal(gin.H{"rows": []engine.Row{{Address: testAddr}}})
	doJSON(t, r, http.MethodPut, "/rows", string(body))

	// 余额不足
	resp := doJSON(t, r, http.MethodPost, "/send", `{}`)
	assert.Equal(t, errno.ErrInsufficientBalance.Code, resp.Code)

	// 注资后成功
	bal, ok := new(big.Int).SetString("1000000000000000000", 10)
	require.True(t, ok)
	client.SetNativeBalance(bal)
	resp = doJSON(t, r, http.MethodPost, "/send", `{}`)
	assert.Equal(t, errno.OK.Code, resp.Code)
	data := resp.Data.(map[string]interface{})
	assert.NotEmpty(t, data["tx_hash"])
}

func TestTemplateHandler(t *testing.T) {
	r, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/template?custom=true", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, w.Body.String(), "address,amount")
}
