package twilio

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/acme/voicedrop/internal/telephony"
)

func TestCreateCallEncodesForm(t *testing.T) {
	var gotForm map[string]string
	var gotPath string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		gotPath = r.URL.Path
		gotForm = map[string]string{}
		for k := range r.PostForm {
			gotForm[k] = r.PostForm.Get(k)
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"sid":"CA123","status":"queued"}`))
	}))
	defer server.Close()

	client := NewClient(telephony.Credentials{AccountSID: "AC1", AuthToken: "secret"}, time.Second, WithBaseURL(server.URL))

	resp, err := client.CreateCall(context.Background(), telephony.CallRequest{
		To:             "+15551110001",
		From:           "+15550000001",
		VoiceURL:       "https://example.com/twiml/voicemail?campaignId=abc",
		AMDCallbackURL: "https://example.com/webhooks/amd",
	})
	if err != nil {
		t.Fatalf("create call: %v", err)
	}

	if resp.SID != "CA123" || resp.Status != "queued" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if !strings.Contains(gotPath, "/Accounts/AC1/Calls.json") {
		t.Errorf("unexpected path %s", gotPath)
	}

	want := map[string]string{
		"To":                           "+15551110001",
		"From":                         "+15550000001",
		"Url":                          "https://example.com/twiml/voicemail?campaignId=abc",
		"MachineDetection":             "DetectMessageEnd",
		"AsyncAmd":                     "true",
		"AsyncAmdStatusCallback":       "https://example.com/webhooks/amd",
		"AsyncAmdStatusCallbackMethod": "POST",
	}
	for k, v := range want {
		if gotForm[k] != v {
			t.Errorf("form field %s = %q, want %q", k, gotForm[k], v)
		}
	}
}

func TestCreateCallProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":21211,"message":"Invalid 'To' Phone Number"}`))
	}))
	defer server.Close()

	client := NewClient(telephony.Credentials{AccountSID: "AC1", AuthToken: "secret"}, time.Second, WithBaseURL(server.URL))

	_, err := client.CreateCall(context.Background(), telephony.CallRequest{To: "bogus", From: "+15550000001"})
	if err == nil {
		t.Fatal("expected error for rejected call")
	}
	if !strings.Contains(err.Error(), "Invalid 'To' Phone Number") {
		t.Errorf("error should surface provider message, got %v", err)
	}
}
