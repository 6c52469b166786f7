package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/desertthunder/brewq/internal/shared"
	tu "github.com/desertthunder/brewq/internal/testing"
	"github.com/urfave/cli/v3"
)

const pendingOrdersJSON = `{
	"orders": [
		{"id": 7, "status": "pending", "customer_name": "Ada", "drink": "Latte", "milk": "Oat", "price": "4.50", "created_at": "2024-05-01 09:00:00"},
		{"id": 3, "status": "in_progress", "customer_name": "Grace", "drink": "Mocha", "price": "5.00", "created_at": "2024-05-01 08:55:00"}
	],
	"hash": "abc",
	"timestamp": 1714554000
}`

// fakeOrderServer records every status change and delete it receives.
type fakeOrderServer struct {
	mu      sync.Mutex
	posts   []string
	failIDs []string
}

func (f *fakeOrderServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/api/orders/pending":
		io.WriteString(w, pendingOrdersJSON)
	case r.URL.Path == "/api/wait-time-thresholds":
		io.WriteString(w, `{"yellow": 4, "red": 9}`)
	case r.Method == http.MethodPost:
		id := filepath.Base(r.URL.Path)
		f.mu.Lock()
		f.posts = append(f.posts, r.URL.Path+"?"+r.FormValue("status"))
		fail := slices.Contains(f.failIDs, id)
		f.mu.Unlock()
		if fail {
			http.Error(w, "nope", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	default:
		http.NotFound(w, r)
	}
}

func (f *fakeOrderServer) Posts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	posts := slices.Clone(f.posts)
	slices.Sort(posts)
	return posts
}

func newTestRunner(t *testing.T, h http.Handler) (*Runner, *bytes.Buffer) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	config := shared.DefaultConfig()
	config.Server.BaseURL = srv.URL
	config.Server.ActionRate = 1000
	config.Database.Path = filepath.Join(t.TempDir(), "brewq.db")

	output := &bytes.Buffer{}
	runner := NewRunner(RunnerOpts{
		Config: config,
		Logger: shared.NewLogger(io.Discard),
		Output: output,
	})
	t.Cleanup(func() { runner.Close() })
	return runner, output
}

func runApp(t *testing.T, r *Runner, args ...string) error {
	t.Helper()
	app := &cli.Command{
		Name:     "brewq",
		Flags:    rootFlags(),
		Before:   r.before,
		Commands: r.register(),
		Writer:   io.Discard,
	}
	base := []string{"brewq", "--config", filepath.Join(t.TempDir(), "missing.toml")}
	return app.Run(context.Background(), append(base, args...))
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}

			runner := NewRunner(RunnerOpts{
				Config:     config,
				ConfigPath: "/test/path/config.toml",
				Logger:     logger,
				Output:     output,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.configPath != "/test/path/config.toml" {
				t.Errorf("expected configPath to be set, got %s", runner.configPath)
			}
		})

		t.Run("with nil options uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.config == nil {
				t.Error("expected default config to be set")
			}
			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
			if runner.metrics == nil {
				t.Error("expected metrics to be created")
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		commands := runner.register()

		names := []string{}
		for i, cmd := range commands {
			if cmd == nil {
				t.Fatalf("command at index %d is nil", i)
			}
			names = append(names, cmd.Name)
		}

		for _, want := range []string{"setup", "watch", "serve", "orders", "order", "label", "sound", "thresholds"} {
			if !slices.Contains(names, want) {
				t.Errorf("expected %q command to be registered, got %v", want, names)
			}
		}
	})

	t.Run("before", func(t *testing.T) {
		t.Run("loads config file", func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := shared.CreateConfigFile(path); err != nil {
				t.Fatal(err)
			}

			runner := NewRunner(RunnerOpts{Logger: shared.NewLogger(io.Discard), Output: io.Discard})
			app := &cli.Command{Name: "brewq", Flags: rootFlags(), Before: runner.before, Action: func(context.Context, *cli.Command) error { return nil }}
			if err := app.Run(context.Background(), []string{"brewq", "--config", path}); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if runner.configPath != path {
				t.Errorf("expected configPath %s, got %s", path, runner.configPath)
			}
		})

		t.Run("rejects invalid config", func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			os.WriteFile(path, []byte("[server]\nbase_url = \"not a url\"\n"), 0644)

			runner := NewRunner(RunnerOpts{Logger: shared.NewLogger(io.Discard), Output: io.Discard})
			app := &cli.Command{Name: "brewq", Flags: rootFlags(), Before: runner.before, Action: func(context.Context, *cli.Command) error { return nil }}
			err := app.Run(context.Background(), []string{"brewq", "--config", path})
			if !errors.Is(err, shared.ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, true); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", result)
			}
			if !strings.HasSuffix(result, "\n") {
				t.Error("expected output to end with newline")
			}
		})

		t.Run("handles marshal error with non-serializable data", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

			err := runner.writeJSON(make(chan int), false)
			if err == nil || !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})

		t.Run("handles newline write failure", func(t *testing.T) {
			limitedWriter := tu.NewLimitedWriter(1, 0, &bytes.Buffer{})
			runner := NewRunner(RunnerOpts{Output: &limitedWriter})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to write newline") {
				t.Errorf("expected newline write error, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Output: output})

		if err := runner.writePlain("hello %s", "world"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if output.String() != "hello world" {
			t.Errorf("expected 'hello world', got %q", output.String())
		}

		failing := NewRunner(RunnerOpts{Output: &tu.FWriter{}})
		if err := failing.writePlainln("x"); err == nil {
			t.Error("expected error from failing writer")
		}
	})
}

func TestParseIDs(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    []int64
		wantErr error
	}{
		{name: "single", args: []string{"12"}, want: []int64{12}},
		{name: "hash prefix", args: []string{"#12", " 4 "}, want: []int64{12, 4}},
		{name: "duplicates dropped", args: []string{"3", "1", "3"}, want: []int64{3, 1}},
		{name: "none", args: nil, wantErr: shared.ErrMissingArgument},
		{name: "not a number", args: []string{"latte"}, wantErr: shared.ErrInvalidArgument},
		{name: "zero", args: []string{"0"}, wantErr: shared.ErrInvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseIDs(tt.args)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if !slices.Equal(got, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestCommands(t *testing.T) {
	t.Run("orders", func(t *testing.T) {
		t.Run("writes csv to stdout", func(t *testing.T) {
			runner, output := newTestRunner(t, &fakeOrderServer{})

			if err := runApp(t, runner, "orders", "--format", "csv"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			lines := strings.Split(strings.TrimSpace(output.String()), "\n")
			if len(lines) != 3 {
				t.Fatalf("expected header and 2 rows, got %q", output.String())
			}
			if !strings.HasPrefix(lines[1], "7,") || !strings.HasPrefix(lines[2], "3,") {
				t.Errorf("expected pending order first, got %v", lines[1:])
			}
		})

		t.Run("writes to file", func(t *testing.T) {
			runner, output := newTestRunner(t, &fakeOrderServer{})
			path := filepath.Join(t.TempDir(), "board.json")

			if err := runApp(t, runner, "orders", "-f", "json", "-o", path); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if output.Len() != 0 {
				t.Errorf("expected nothing on stdout, got %q", output.String())
			}

			var payload struct {
				Orders []map[string]any `json:"orders"`
			}
			if err := json.Unmarshal([]byte(tu.MustReadFile(t, path)), &payload); err != nil {
				t.Fatalf("invalid JSON file: %v", err)
			}
			if len(payload.Orders) != 2 {
				t.Errorf("expected 2 orders, got %d", len(payload.Orders))
			}
		})

		t.Run("rejects unknown format", func(t *testing.T) {
			runner, _ := newTestRunner(t, &fakeOrderServer{})
			if err := runApp(t, runner, "orders", "--format", "yaml"); !errors.Is(err, shared.ErrInvalidArgument) {
				t.Errorf("expected ErrInvalidArgument, got %v", err)
			}
		})
	})

	t.Run("order", func(t *testing.T) {
		t.Run("start one", func(t *testing.T) {
			srv := &fakeOrderServer{}
			runner, output := newTestRunner(t, srv)

			if err := runApp(t, runner, "order", "start", "7"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if posts := srv.Posts(); !slices.Equal(posts, []string{"/update_status/7?in_progress"}) {
				t.Errorf("unexpected requests %v", posts)
			}
			if !strings.Contains(output.String(), "order 7: start") {
				t.Errorf("unexpected output %q", output.String())
			}
		})

		t.Run("complete many", func(t *testing.T) {
			srv := &fakeOrderServer{}
			runner, output := newTestRunner(t, srv)

			if err := runApp(t, runner, "order", "done", "1", "2", "3"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			want := []string{"/update_status/1?completed", "/update_status/2?completed", "/update_status/3?completed"}
			if posts := srv.Posts(); !slices.Equal(posts, want) {
				t.Errorf("expected %v, got %v", want, posts)
			}
			if !strings.Contains(output.String(), "3 succeeded, 0 failed") {
				t.Errorf("unexpected summary %q", output.String())
			}
		})

		t.Run("delete with failures", func(t *testing.T) {
			srv := &fakeOrderServer{failIDs: []string{"2"}}
			runner, output := newTestRunner(t, srv)

			err := runApp(t, runner, "order", "rm", "1", "2")
			if !errors.Is(err, shared.ErrAPIRequest) {
				t.Errorf("expected ErrAPIRequest, got %v", err)
			}
			if !strings.Contains(output.String(), "1 succeeded, 1 failed") {
				t.Errorf("unexpected summary %q", output.String())
			}
		})

		t.Run("requires ids", func(t *testing.T) {
			runner, _ := newTestRunner(t, &fakeOrderServer{})
			if err := runApp(t, runner, "order", "start"); !errors.Is(err, shared.ErrMissingArgument) {
				t.Errorf("expected ErrMissingArgument, got %v", err)
			}
		})
	})

	t.Run("thresholds", func(t *testing.T) {
		runner, output := newTestRunner(t, &fakeOrderServer{})

		if err := runApp(t, runner, "thresholds", "--json"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(output.String(), `"yellow": 4`) || !strings.Contains(output.String(), `"red": 9`) {
			t.Errorf("unexpected output %q", output.String())
		}
	})

	t.Run("sound", func(t *testing.T) {
		runner, output := newTestRunner(t, &fakeOrderServer{})

		if err := runApp(t, runner, "sound", "status"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if err := runApp(t, runner, "sound", "off"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if err := runApp(t, runner, "sound", "status"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		want := "new-order chime: on\n✓ new-order chime off\nnew-order chime: off\n"
		if output.String() != want {
			t.Errorf("expected %q, got %q", want, output.String())
		}
	})

	t.Run("label history", func(t *testing.T) {
		runner, output := newTestRunner(t, &fakeOrderServer{})

		if err := runApp(t, runner, "label", "history"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(output.String(), "No print jobs recorded") {
			t.Errorf("unexpected output %q", output.String())
		}

		if err := runApp(t, runner, "label", "prune", "--older-than", "1h"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(output.String(), "removed 0 print jobs") {
			t.Errorf("unexpected output %q", output.String())
		}
	})

	t.Run("label print rejects bad id", func(t *testing.T) {
		runner, _ := newTestRunner(t, &fakeOrderServer{})
		if err := runApp(t, runner, "label", "print", "abc"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("setup", func(t *testing.T) {
		dir := t.TempDir()
		configPath := filepath.Join(dir, "config.toml")

		runner := NewRunner(RunnerOpts{Logger: shared.NewLogger(io.Discard), Output: io.Discard})
		runner.config.Database.Path = filepath.Join(dir, "brewq.db")
		t.Cleanup(func() { runner.Close() })

		// the template's database path is relative
		cwd := tu.MustGetwd(t)
		tu.MustChdir(t, dir)
		defer tu.MustChdir(t, cwd)

		app := &cli.Command{Name: "brewq", Flags: rootFlags(), Before: runner.before, Commands: runner.register()}
		if err := app.Run(context.Background(), []string{"brewq", "--config", configPath, "setup"}); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		tu.AssertFileExists(t, configPath)
		tu.AssertFileExists(t, filepath.Join(dir, "brewq.db"))
	})
}
