package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL, "test-token")
}

func TestSendMessage(t *testing.T) {
	var gotPath string
	var gotBody map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Error(err)
		}
		json.NewEncoder(w).Encode(map[string]any{"ok": true})
	})

	opts := &SendOptions{ParseMode: "Markdown", ReplyMarkup: NewKeyboard(
		[]InlineKeyboardButton{{Text: "b", CallbackData: "d"}},
	)}
	if err := client.SendMessage(context.Background(), 42, "hello", opts); err != nil {
		t.Fatal(err)
	}

	if gotPath != "/bottest-token/sendMessage" {
		t.Errorf("path = %q", gotPath)
	}
	if gotBody["chat_id"] != float64(42) || gotBody["text"] != "hello" {
		t.Errorf("body = %v", gotBody)
	}
	if gotBody["parse_mode"] != "Markdown" {
		t.Errorf("parse_mode missing: %v", gotBody)
	}
	if _, ok := gotBody["reply_markup"]; !ok {
		t.Errorf("reply_markup missing: %v", gotBody)
	}
}

func TestSendMessageOmitsEmptyOptions(t *testing.T) {
	var gotBody map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(map[string]any{"ok": true})
	})

	if err := client.SendMessage(context.Background(), 42, "plain", nil); err != nil {
		t.Fatal(err)
	}
	if _, ok := gotBody["parse_mode"]; ok {
		t.Error("parse_mode must be omitted when unset")
	}
	if _, ok := gotBody["reply_markup"]; ok {
		t.Error("reply_markup must be omitted when unset")
	}
}

func TestCallAPIError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{
			"ok": false, "description": "Bad Request: chat not found", "error_code": 400,
		})
	})

	err := client.SendMessage(context.Background(), 1, "x", nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "chat not found") {
		t.Errorf("err = %v", err)
	}
}

func TestCallNonJSONResponse(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("<html>502</html>"))
	})

	err := client.SendChatAction(context.Background(), 1, "typing")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "unexpected response") {
		t.Errorf("err = %v", err)
	}
}

func TestAnswerCallbackQueryFields(t *testing.T) {
	var gotBody map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotBody = map[string]any{}
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(map[string]any{"ok": true})
	})

	if err := client.AnswerCallbackQuery(context.Background(), "cb1", "No classes selected!", true); err != nil {
		t.Fatal(err)
	}
	if gotBody["callback_query_id"] != "cb1" || gotBody["show_alert"] != true {
		t.Errorf("body = %v", gotBody)
	}

	if err := client.AnswerCallbackQuery(context.Background(), "cb2", "", false); err != nil {
		t.Fatal(err)
	}
	if _, ok := gotBody["text"]; ok {
		t.Error("empty text must be omitted")
	}
	if _, ok := gotBody["show_alert"]; ok {
		t.Error("show_alert must be omitted when false")
	}
}
