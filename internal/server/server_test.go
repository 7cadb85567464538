package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	lambdasdk "github.com/aws/aws-sdk-go-v2/service/lambda"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valpere/chaptertran/internal/orchestrator"
	"github.com/valpere/chaptertran/internal/terminology"
)

func echoTranslator(got *terminology.Map) orchestrator.Translator {
	return orchestrator.TranslatorFunc(func(_ context.Context, text string, terms terminology.Map) (string, error) {
		if got != nil {
			*got = terms
		}
		return "<think>hmm</think>\nHere is the translation:\nLi Wei came.", nil
	})
}

func post(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/translate", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestTranslate_OK(t *testing.T) {
	var terms terminology.Map
	h := New(echoTranslator(&terms)).Routes()

	rec := post(t, h, `{"text":"李伟来了。","terminology":{"李伟":"Li Wei"}}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Li Wei came.", resp.Translation)
	assert.Equal(t, terminology.Map{"李伟": "Li Wei"}, terms)
}

func TestTranslate_LegacyContexts(t *testing.T) {
	var terms terminology.Map
	h := New(echoTranslator(&terms)).Routes()

	rec := post(t, h, `{"text":"李伟来了。","contexts":{"李伟":"Li Wei"}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Li Wei", terms["李伟"])
}

func TestTranslate_Errors(t *testing.T) {
	failing := orchestrator.TranslatorFunc(func(context.Context, string, terminology.Map) (string, error) {
		return "", errors.New("API returned status 503")
	})
	blank := orchestrator.TranslatorFunc(func(context.Context, string, terminology.Map) (string, error) {
		return "<think>only thoughts</think>", nil
	})

	tests := []struct {
		name     string
		tr       orchestrator.Translator
		body     string
		wantCode int
		wantErr  string
	}{
		{"bad json", failing, `{"text":`, http.StatusBadRequest, "Invalid JSON"},
		{"empty text", failing, `{"text":"  "}`, http.StatusBadRequest, "text is required"},
		{"backend failure", failing, `{"text":"你好"}`, http.StatusInternalServerError, "Translation failed"},
		{"empty after cleaning", blank, `{"text":"你好"}`, http.StatusInternalServerError, "Translation failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := post(t, New(tt.tr).Routes(), tt.body)
			assert.Equal(t, tt.wantCode, rec.Code)

			var resp Response
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantErr, resp.Error)
		})
	}
}

func TestRoutes_Healthz(t *testing.T) {
	rec := httptest.NewRecorder()
	New(echoTranslator(nil)).Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")
}

func TestRoutes_MethodNotAllowed(t *testing.T) {
	rec := httptest.NewRecorder()
	New(echoTranslator(nil)).Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/translate", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestLambdaHandler(t *testing.T) {
	s := New(echoTranslator(nil))
	ctx := context.Background()

	resp, err := s.LambdaHandler(ctx, json.RawMessage(`{"source":"warmup"}`))
	require.NoError(t, err)
	assert.Empty(t, resp.Translation)
	assert.Empty(t, resp.Error)

	resp, err = s.LambdaHandler(ctx, json.RawMessage(`{"text":"李伟来了。"}`))
	require.NoError(t, err)
	assert.Equal(t, "Li Wei came.", resp.Translation)

	resp, err = s.LambdaHandler(ctx, json.RawMessage(`{"text":""}`))
	require.NoError(t, err)
	assert.Equal(t, "text is required", resp.Error)
}

type fakeInvoker struct {
	mu      sync.Mutex
	inputs  []*lambdasdk.InvokeInput
	failure error
}

func (f *fakeInvoker) Invoke(_ context.Context, in *lambdasdk.InvokeInput, _ ...func(*lambdasdk.Options)) (*lambdasdk.InvokeOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inputs = append(f.inputs, in)
	return &lambdasdk.InvokeOutput{}, f.failure
}

func TestLambdaHandler_WarmupFansOut(t *testing.T) {
	t.Setenv("AWS_LAMBDA_FUNCTION_NAME", "chaptertran")
	inv := &fakeInvoker{}
	s := New(echoTranslator(nil), WithInvoker(inv))

	resp, err := s.LambdaHandler(context.Background(), json.RawMessage(`{"source":"warmup","concurrency":3}`))
	require.NoError(t, err)
	assert.Empty(t, resp.Error)

	require.Len(t, inv.inputs, 3)
	for _, in := range inv.inputs {
		assert.Equal(t, "chaptertran", *in.FunctionName)

		var child warmupEvent
		require.NoError(t, json.Unmarshal(in.Payload, &child))
		assert.Equal(t, WarmupSource, child.Source)
		assert.Zero(t, child.Concurrency, "children must not fan out again")
	}
}

func TestSelfInvoke_ReportsFailure(t *testing.T) {
	inv := &fakeInvoker{failure: errors.New("throttled")}
	err := selfInvoke(context.Background(), inv, "fn", 2)
	assert.EqualError(t, err, "throttled")
	assert.Len(t, inv.inputs, 2)
}
