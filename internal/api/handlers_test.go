package api

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"warikanbot/internal/commands"
	"warikanbot/internal/config"
	"warikanbot/internal/pending"
	"warikanbot/internal/split"
)

type fakeStore struct {
	totals []split.ParticipantTotal
	err    error
}

func (s *fakeStore) TotalsByName(_ context.Context, _ string) ([]split.ParticipantTotal, error) {
	return s.totals, s.err
}

type fakeReplier struct {
	tokens   []string
	messages [][]map[string]any
}

func (r *fakeReplier) ReplyMessage(_ context.Context, replyToken string, messages ...map[string]any) error {
	r.tokens = append(r.tokens, replyToken)
	r.messages = append(r.messages, messages)
	return nil
}

func newTestAPI(store Store, handler *commands.Handler, replier Replier) *API {
	cfg := &config.Config{ChannelSecret: "secret", WebBind: "127.0.0.1:0"}
	return New(cfg, store, handler, replier, zap.NewNop().Sugar())
}

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestCallbackRejectsInvalidSignature(t *testing.T) {
	a := newTestAPI(&fakeStore{}, nil, nil)

	req := httptest.NewRequest("POST", "/callback", strings.NewReader(`{"events":[]}`))
	req.Header.Set("X-Line-Signature", "bogus")
	w := httptest.NewRecorder()

	a.router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestCallbackAcceptsSignedEmptyDelivery(t *testing.T) {
	a := newTestAPI(&fakeStore{}, nil, nil)

	body := []byte(`{"events":[]}`)
	req := httptest.NewRequest("POST", "/callback", strings.NewReader(string(body)))
	req.Header.Set("X-Line-Signature", sign("secret", body))
	w := httptest.NewRecorder()

	a.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestCallbackDispatchesPostbackAndReplies(t *testing.T) {
	replier := &fakeReplier{}
	handler := commands.NewHandler(nil, pending.NewStore(), nil, zap.NewNop().Sugar())
	a := newTestAPI(&fakeStore{}, handler, replier)

	body := []byte(`{"events":[{
		"type": "postback",
		"replyToken": "rt1",
		"source": {"type": "group", "groupId": "G1", "userId": "U1"},
		"postback": {"data": "action=start_record"}
	}]}`)
	req := httptest.NewRequest("POST", "/callback", strings.NewReader(string(body)))
	req.Header.Set("X-Line-Signature", sign("secret", body))
	w := httptest.NewRecorder()

	a.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if len(replier.tokens) != 1 || replier.tokens[0] != "rt1" {
		t.Fatalf("reply tokens = %v, want [rt1]", replier.tokens)
	}
	// start_record answers with the category menu only.
	if len(replier.messages[0]) != 1 || replier.messages[0][0]["type"] != "flex" {
		t.Errorf("reply messages = %v, want single flex menu", replier.messages[0])
	}
}

func TestScopeTotals(t *testing.T) {
	a := newTestAPI(&fakeStore{totals: []split.ParticipantTotal{
		{Name: "Alice", Total: 300},
		{Name: "Bob", Total: 100},
	}}, nil, nil)

	req := httptest.NewRequest("GET", "/api/scopes/G1/totals", nil)
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	var totals []split.ParticipantTotal
	if err := json.Unmarshal(w.Body.Bytes(), &totals); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(totals) != 2 || totals[0].Name != "Alice" || totals[1].Total != 100 {
		t.Errorf("totals = %+v", totals)
	}
}

func TestScopeTotalsEmptyScope(t *testing.T) {
	a := newTestAPI(&fakeStore{}, nil, nil)

	req := httptest.NewRequest("GET", "/api/scopes/G1/totals", nil)
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if got := strings.TrimSpace(w.Body.String()); got != "[]" {
		t.Errorf("body = %q, want empty array", got)
	}
}

func TestScopeTotalsStorageError(t *testing.T) {
	a := newTestAPI(&fakeStore{err: errors.New("connection refused")}, nil, nil)

	req := httptest.NewRequest("GET", "/api/scopes/G1/totals", nil)
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
}

func TestScopeSettlement(t *testing.T) {
	tests := []struct {
		name       string
		totals     []split.ParticipantTotal
		wantStatus string
		wantCount  int
	}{
		{name: "no data", totals: nil, wantStatus: "no_data", wantCount: 0},
		{
			name:       "settled",
			totals:     []split.ParticipantTotal{{Name: "A", Total: 50}, {Name: "B", Total: 50}},
			wantStatus: "settled",
			wantCount:  0,
		},
		{
			name:       "one transfer",
			totals:     []split.ParticipantTotal{{Name: "A", Total: 100}, {Name: "B", Total: 0}},
			wantStatus: "ok",
			wantCount:  1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTestAPI(&fakeStore{totals: tt.totals}, nil, nil)

			req := httptest.NewRequest("GET", "/api/scopes/G1/settlement", nil)
			w := httptest.NewRecorder()
			a.router.ServeHTTP(w, req)

			if w.Code != http.StatusOK {
				t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
			}
			var resp struct {
				Status    string         `json:"status"`
				Transfers []transferJSON `json:"transfers"`
			}
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if resp.Status != tt.wantStatus {
				t.Errorf("status = %q, want %q", resp.Status, tt.wantStatus)
			}
			if len(resp.Transfers) != tt.wantCount {
				t.Errorf("got %d transfers, want %d", len(resp.Transfers), tt.wantCount)
			}
			if tt.wantCount == 1 {
				tr := resp.Transfers[0]
				if tr.From != "B" || tr.To != "A" || tr.Amount != "50.00" {
					t.Errorf("transfer = %+v", tr)
				}
			}
		})
	}
}

func TestHealthz(t *testing.T) {
	a := newTestAPI(&fakeStore{}, nil, nil)

	req := httptest.NewRequest("GET", "/healthz", nil)
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
}
