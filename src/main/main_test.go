package main

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"screen-translate/src/eventloop"
	"screen-translate/src/session"
	"screen-translate/src/translate"
)

func TestNormalizeLegacyArgs(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		out  []string
	}{
		{
			name: "Normalizes long single dash flags",
			in:   []string{"screen-translate", "-run-once", "-env-file", "/tmp/.env"},
			out:  []string{"screen-translate", "--run-once", "--env-file", "/tmp/.env"},
		},
		{
			name: "Normalizes equals form",
			in:   []string{"screen-translate", "-run-once=true", "-stdout=false"},
			out:  []string{"screen-translate", "--run-once=true", "--stdout=false"},
		},
		{
			name: "Leaves other flags unchanged",
			in:   []string{"screen-translate", "--run-once", "--other", "-x"},
			out:  []string{"screen-translate", "--run-once", "--other", "-x"},
		},
		{
			name: "Empty args",
			in:   nil,
			out:  []string{"screen-translate"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := normalizeLegacyArgs(tt.in)
			if len(got) != len(tt.out) {
				t.Fatalf("Expected len=%d, got %d", len(tt.out), len(got))
			}
			for i := range got {
				if got[i] != tt.out[i] {
					t.Fatalf("Expected arg[%d]=%q, got %q", i, tt.out[i], got[i])
				}
			}
		})
	}
}

func TestNewRootCmdParsesFlags(t *testing.T) {
	opts := &mainOptions{}
	cmd := newRootCmd(opts)
	if err := cmd.ParseFlags([]string{"--run-once", "--stdout", "--env-file", "/tmp/.env"}); err != nil {
		t.Fatalf("ParseFlags failed: %v", err)
	}
	if !opts.runOnce || !opts.stdout {
		t.Fatalf("Expected runOnce and stdout, got %+v", opts)
	}
	if opts.envFile != "/tmp/.env" {
		t.Fatalf("Expected envFile=/tmp/.env, got %q", opts.envFile)
	}
}

type fakeClient struct {
	delegated bool
	text      string
	err       error
	called    bool
	stdout    bool
}

func (f *fakeClient) TryRunOnce(ctx context.Context, outputToStdout bool) (bool, string, error) {
	f.called = true
	f.stdout = outputToStdout
	return f.delegated, f.text, f.err
}

func TestHandleRunOnceWithDelegation(t *testing.T) {
	tests := []struct {
		name         string
		client       *fakeClient
		stdout       bool
		wantFallback bool
		wantErr      bool
		wantOutput   string
	}{
		{"delegated stdout", &fakeClient{delegated: true, text: "Hello world"}, true, false, false, "Hello world"},
		{"delegated clipboard", &fakeClient{delegated: true}, false, false, false, ""},
		{"no resident", &fakeClient{}, true, true, false, ""},
		{"delegation error", &fakeClient{err: errors.New("connection reset")}, false, true, false, ""},
		{"resident error", &fakeClient{delegated: true, err: errors.New("Translation Error: quota")}, true, false, true, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			fallbackCalled := false
			err := handleRunOnceWithDelegation(context.Background(), tt.client, tt.stdout, &out, func() error {
				fallbackCalled = true
				return nil
			})
			if !tt.client.called {
				t.Fatal("Expected client.TryRunOnce to be called")
			}
			if tt.client.stdout != tt.stdout {
				t.Errorf("stdout mode not forwarded")
			}
			if fallbackCalled != tt.wantFallback {
				t.Errorf("fallback called = %v, want %v", fallbackCalled, tt.wantFallback)
			}
			if (err != nil) != tt.wantErr {
				t.Errorf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if out.String() != tt.wantOutput {
				t.Errorf("output = %q, want %q", out.String(), tt.wantOutput)
			}
		})
	}
}

type noopResult struct{}

func (noopResult) OnSuccess(string) error { return nil }
func (noopResult) OnFailure(error) error  { return nil }

func TestResultHandler(t *testing.T) {
	var results, failures, copied []string
	h := resultHandler{
		notify:     true,
		copy:       true,
		showResult: func(s string) { results = append(results, s) },
		showError:  func(s string) { failures = append(failures, s) },
		copyText: func(s string) error {
			copied = append(copied, s)
			return nil
		},
	}

	h.handle(eventloop.Trigger{Origin: "button"}, session.Outcome{Translated: "a"})
	h.handle(eventloop.Trigger{Origin: "hotkey"}, session.Outcome{Translated: "b"})
	h.handle(eventloop.Trigger{Origin: "hotkey"}, session.Outcome{
		Translated:   "Translation Error: quota",
		TranslateErr: &translate.Error{Kind: translate.KindQuota},
	})
	h.handle(eventloop.Trigger{Origin: "hotkey"}, session.Outcome{Err: errors.New("capture failed")})
	h.handle(eventloop.Trigger{Origin: "run-once", Result: noopResult{}}, session.Outcome{Translated: "c"})

	if len(results) != 1 || results[0] != "b" {
		t.Errorf("notified results = %v", results)
	}
	if len(failures) != 2 || failures[0] != "Translation Error: quota" || failures[1] != "capture failed" {
		t.Errorf("notified failures = %v", failures)
	}
	if len(copied) != 2 || copied[0] != "a" || copied[1] != "b" {
		t.Errorf("copied = %v", copied)
	}
}
