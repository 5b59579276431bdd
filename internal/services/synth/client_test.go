package synth_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"voiceloom/internal/logging"
	"voiceloom/internal/services/synth"
	"voiceloom/internal/testsupport"
)

func newClient(t *testing.T, baseURL string) *synth.Client {
	t.Helper()
	cfg := testsupport.NewConfig(t, testsupport.WithSynthesisBaseURL(baseURL))
	return synth.NewClient(cfg, logging.NewNop())
}

func TestHealthyCountsAnyResponseBelow500(t *testing.T) {
	status := http.StatusNotFound
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}))
	defer server.Close()

	client := newClient(t, server.URL)
	if !client.Healthy(context.Background()) {
		t.Fatal("expected 404 to count as alive")
	}

	status = http.StatusInternalServerError
	if client.Healthy(context.Background()) {
		t.Fatal("expected 500 to count as down")
	}
}

func TestHealthyFalseWhenUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client := newClient(t, server.URL)
	if client.Healthy(context.Background()) {
		t.Fatal("expected closed endpoint to count as down")
	}
}

func TestWaitUntilReadyReturnsOnceHealthy(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := newClient(t, server.URL)
	if err := client.WaitUntilReady(context.Background(), 5*time.Second); err != nil {
		t.Fatalf("WaitUntilReady returned error: %v", err)
	}
}

func TestWaitUntilReadyHonorsCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := newClient(t, server.URL)
	if err := client.WaitUntilReady(ctx, 30*time.Second); err == nil {
		t.Fatal("expected error from cancelled wait")
	}
}

func TestWaitUntilReadyExpires(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newClient(t, server.URL)
	err := client.WaitUntilReady(context.Background(), time.Millisecond)
	if err == nil {
		t.Fatal("expected expiry error")
	}
	if !strings.Contains(err.Error(), "not ready") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRenderPostsPayloadAndReturnsAudio(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tts" || r.Method != http.MethodPost {
			t.Fatalf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Fatalf("unexpected content type %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode request body: %v", err)
		}
		_, _ = w.Write([]byte("RIFF-fake-audio"))
	}))
	defer server.Close()

	client := newClient(t, server.URL)
	audio, err := client.Render(context.Background(), synth.RenderRequest{
		Text:          "Hello there",
		Language:      "EN",
		ReferencePath: "/samples/sample_01_seg.wav",
		ReferenceText: "reference words",
	})
	if err != nil {
		t.Fatalf("Render returned error: %v", err)
	}
	if string(audio) != "RIFF-fake-audio" {
		t.Fatalf("unexpected audio payload %q", audio)
	}

	if captured["text"] != "Hello there" {
		t.Fatalf("unexpected text %v", captured["text"])
	}
	if captured["text_lang"] != "en" || captured["prompt_lang"] != "en" {
		t.Fatalf("expected lowered language tags, got %v / %v", captured["text_lang"], captured["prompt_lang"])
	}
	if captured["ref_audio_path"] != "/samples/sample_01_seg.wav" {
		t.Fatalf("unexpected reference path %v", captured["ref_audio_path"])
	}
	if captured["top_k"] != float64(15) || captured["top_p"] != 1.0 {
		t.Fatalf("expected sampling defaults, got top_k=%v top_p=%v", captured["top_k"], captured["top_p"])
	}
	if captured["temperature"] != 0.7 || captured["speed_factor"] != 1.0 {
		t.Fatalf("expected sampling defaults, got temperature=%v speed=%v", captured["temperature"], captured["speed_factor"])
	}
	if captured["text_split_method"] != "cut5" || captured["media_type"] != "wav" {
		t.Fatalf("unexpected fixed fields: %v", captured)
	}
	if captured["seed"] != float64(-1) || captured["streaming_mode"] != float64(0) {
		t.Fatalf("unexpected fixed fields: %v", captured)
	}
}

func TestRenderSurfacesErrorPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "reference audio missing", http.StatusBadRequest)
	}))
	defer server.Close()

	client := newClient(t, server.URL)
	_, err := client.Render(context.Background(), synth.RenderRequest{
		Text:          "hi",
		ReferencePath: "/samples/ref.wav",
	})
	if err == nil {
		t.Fatal("expected error from 400 response")
	}
	if !strings.Contains(err.Error(), "400") || !strings.Contains(err.Error(), "reference audio missing") {
		t.Fatalf("expected status and payload in error, got %v", err)
	}
}

func TestRenderRequiresTextAndReference(t *testing.T) {
	client := newClient(t, "http://127.0.0.1:9")

	if _, err := client.Render(context.Background(), synth.RenderRequest{ReferencePath: "/r.wav"}); err == nil {
		t.Fatal("expected error for empty text")
	}
	if _, err := client.Render(context.Background(), synth.RenderRequest{Text: "hi"}); err == nil {
		t.Fatal("expected error for missing reference audio")
	}
}

func TestSetWeightsEncodesCheckpointPath(t *testing.T) {
	var gotPath, gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query().Get("weights_path")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := newClient(t, server.URL)
	if err := client.SetGPTWeights(context.Background(), "/weights/GPT_weights/my voice-e10.ckpt"); err != nil {
		t.Fatalf("SetGPTWeights returned error: %v", err)
	}
	if gotPath != "/set_gpt_weights" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if gotQuery != "/weights/GPT_weights/my voice-e10.ckpt" {
		t.Fatalf("unexpected weights_path %q", gotQuery)
	}

	if err := client.SetSoVITSWeights(context.Background(), "/weights/SoVITS_weights/my_e8_s96.pth"); err != nil {
		t.Fatalf("SetSoVITSWeights returned error: %v", err)
	}
	if gotPath != "/set_sovits_weights" {
		t.Fatalf("unexpected path %q", gotPath)
	}
}

func TestSetWeightsSurfacesFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such checkpoint", http.StatusBadRequest)
	}))
	defer server.Close()

	client := newClient(t, server.URL)
	err := client.SetGPTWeights(context.Background(), "/weights/missing.ckpt")
	if err == nil {
		t.Fatal("expected error from 400 response")
	}
	if !strings.Contains(err.Error(), "no such checkpoint") {
		t.Fatalf("expected payload in error, got %v", err)
	}
}
