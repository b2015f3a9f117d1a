/*
 * This file is part of Loqa (https://github.com/loqalabs/loqa).
 * Copyright (C) 2025 Loqa Labs
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU Affero General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
 * GNU Affero General Public License for more details.
 *
 * You should have received a copy of the GNU Affero General Public License
 * along with this program. If not, see <https://www.gnu.org/licenses/>.
 */

package tts

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loqalabs/loqa-support/internal/config"
)

func TestGoogleClient_Synthesize(t *testing.T) {
	var captured synthesizeRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/text:synthesize", r.URL.Path)
		assert.Equal(t, "k", r.URL.Query().Get("key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		_, _ = w.Write([]byte(`{"audioContent":"` + base64.StdEncoding.EncodeToString([]byte("ID3mp3")) + `"}`))
	}))
	defer server.Close()

	client := NewGoogleClient(server.URL, "k", 1.0, time.Second)
	result, err := client.Synthesize(context.Background(), "आपका स्वागत है", "hi")

	require.NoError(t, err)
	assert.Equal(t, []byte("ID3mp3"), result.Audio)
	assert.Equal(t, "mp3", result.Extension)
	assert.Equal(t, "audio/mpeg", result.ContentType)
	assert.Equal(t, "hi-IN", captured.Voice.LanguageCode)
	assert.Equal(t, "MP3", captured.AudioConfig.AudioEncoding)
	assert.Equal(t, "आपका स्वागत है", captured.Input.Text)
}

func TestGoogleClient_Failures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"Server error", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusInternalServerError) }},
		{"Empty audio", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte(`{"audioContent":""}`)) }},
		{"Bad base64", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte(`{"audioContent":"%%%"}`)) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			client := NewGoogleClient(server.URL, "", 1.0, time.Second)
			result, err := client.Synthesize(context.Background(), "hello", "en")

			assert.Error(t, err)
			assert.Nil(t, result)
		})
	}
}

func newKokoroServer(t *testing.T, speechCalls *int32, captured *openAISpeechRequest) *httptest.Server {
	t.Helper()
	var mu sync.Mutex
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/audio/voices":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"voices": ["af_bella", "hf_alpha"]}`))
		case "/audio/speech":
			atomic.AddInt32(speechCalls, 1)
			if captured != nil {
				mu.Lock()
				_ = json.NewDecoder(r.Body).Decode(captured)
				mu.Unlock()
			}
			w.Header().Set("Content-Type", "audio/wav")
			_, _ = w.Write([]byte("RIFFfakewav"))
		default:
			http.NotFound(w, r)
		}
	}))
}

func kokoroConfig(url string) config.TTSConfig {
	return config.TTSConfig{
		Backend:        config.BackendOpenAI,
		URL:            url,
		Voice:          "af_bella",
		Speed:          1.0,
		ResponseFormat: "mp3",
		MaxConcurrent:  2,
		Timeout:        5 * time.Second,
	}
}

func TestOpenAIClient_Synthesize(t *testing.T) {
	var calls int32
	var captured openAISpeechRequest
	server := newKokoroServer(t, &calls, &captured)
	defer server.Close()

	client, err := NewOpenAIClient(kokoroConfig(server.URL))
	require.NoError(t, err)
	defer func() { _ = client.Close() }()

	result, err := client.Synthesize(context.Background(), "नमस्ते", "hi")

	require.NoError(t, err)
	assert.Equal(t, []byte("RIFFfakewav"), result.Audio)
	assert.Equal(t, "wav", result.Extension)
	assert.Equal(t, "hf_alpha", captured.Voice)
	assert.Equal(t, "h", captured.LangCode)
	assert.Equal(t, "mp3", captured.Format)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	result, err = client.Synthesize(context.Background(), "Hello", "en")
	require.NoError(t, err)
	assert.NotNil(t, result)
	assert.Equal(t, "af_bella", captured.Voice)
}

func TestOpenAIClient_ConnectionFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := NewOpenAIClient(kokoroConfig(server.URL))
	assert.Error(t, err)

	_, err = NewOpenAIClient(kokoroConfig(""))
	assert.Error(t, err)
}

func TestOpenAIClient_QueueFull(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/audio/speech" {
			<-release
		}
		_, _ = w.Write([]byte(`{"voices":["af_bella"]}`))
	}))
	defer server.Close()

	cfg := kokoroConfig(server.URL)
	cfg.MaxConcurrent = 1
	client, err := NewOpenAIClient(cfg)
	require.NoError(t, err)
	client.queueTimeout = 50 * time.Millisecond

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = client.Synthesize(context.Background(), "first", "en")
	}()

	// Wait until the first request holds the only slot
	require.Eventually(t, func() bool { return len(client.semaphore) == 1 }, time.Second, 5*time.Millisecond)

	_, err = client.Synthesize(context.Background(), "second", "en")
	assert.ErrorContains(t, err, "queue full")

	close(release)
	<-done
}

func TestExtensionFor(t *testing.T) {
	assert.Equal(t, "mp3", extensionFor("audio/mpeg", "wav"))
	assert.Equal(t, "wav", extensionFor("audio/wav; charset=binary", "mp3"))
	assert.Equal(t, "opus", extensionFor("", "OPUS"))
	assert.Equal(t, "flac", extensionFor("application/octet-stream", "flac"))
	assert.Equal(t, "mp3", extensionFor("", ""))
}

func TestLocaleFor(t *testing.T) {
	assert.Equal(t, "hi-IN", localeFor("hi"))
	assert.Equal(t, "en-IN", localeFor("en"))
	assert.Equal(t, "en-IN", localeFor(""))
	assert.Equal(t, "en-GB", localeFor("en-GB"))
}

type fakeSynthesizer struct {
	calls  int
	result *Result
	err    error
}

func (f *fakeSynthesizer) Synthesize(ctx context.Context, text, language string) (*Result, error) {
	f.calls++
	return f.result, f.err
}

func (f *fakeSynthesizer) Close() error { return nil }

type fakeSaver struct {
	saved []string
	err   error
}

func (f *fakeSaver) SaveResponse(audio []byte, extension string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	name := "response_1_abc." + extension
	f.saved = append(f.saved, name)
	return name, nil
}

func TestVoice_Speak(t *testing.T) {
	synth := &fakeSynthesizer{result: &Result{Audio: []byte("mp3"), Extension: "mp3"}}
	saver := &fakeSaver{}
	voice := NewVoice(synth, saver)

	filename := voice.Speak(context.Background(), "Hello!", "en")

	assert.Equal(t, "response_1_abc.mp3", filename)
	assert.Equal(t, 1, synth.calls)
	assert.Len(t, saver.saved, 1)
}

func TestVoice_EmptyTextMakesNoCall(t *testing.T) {
	synth := &fakeSynthesizer{result: &Result{Audio: []byte("mp3"), Extension: "mp3"}}
	voice := NewVoice(synth, &fakeSaver{})

	assert.Equal(t, "", voice.Speak(context.Background(), "", "hi"))
	assert.Equal(t, 0, synth.calls)
}

func TestVoice_FailuresYieldNoAudio(t *testing.T) {
	tests := []struct {
		name  string
		synth Synthesizer
		saver AudioSaver
	}{
		{"Synthesis error", &fakeSynthesizer{err: errors.New("tts down")}, &fakeSaver{}},
		{"Empty audio", &fakeSynthesizer{result: &Result{}}, &fakeSaver{}},
		{"Nil result", &fakeSynthesizer{}, &fakeSaver{}},
		{"Storage error", &fakeSynthesizer{result: &Result{Audio: []byte("x"), Extension: "mp3"}}, &fakeSaver{err: errors.New("disk full")}},
		{"No synthesizer", nil, &fakeSaver{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			voice := NewVoice(tt.synth, tt.saver)
			assert.Equal(t, "", voice.Speak(context.Background(), "Hello", "en"))
		})
	}
}
