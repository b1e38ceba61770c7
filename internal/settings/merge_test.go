package settings

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/BurntSushi/toml"
)

func readBackend(t *testing.T, path string) map[string]any {
	t.Helper()
	var doc map[string]any
	if _, err := toml.DecodeFile(path, &doc); err != nil {
		t.Fatalf("decoding %s: %v", path, err)
	}
	backend, _ := doc["backend"].(map[string]any)
	return backend
}

func TestMerge_CreatesMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	out := Merge(MergeOptions{
		ConfigPath: path,
		Values:     BackendValues("http://plant.local", "", "http://plant.local/api/v1"),
	})
	if out.Result != MergeSuccess {
		t.Fatalf("Result = %v, err = %v", out.Result, out.Err)
	}

	backend := readBackend(t, path)
	if backend["base_url"] != "http://plant.local" {
		t.Errorf("base_url = %v", backend["base_url"])
	}
	if backend["api_v1_url"] != "http://plant.local/api/v1" {
		t.Errorf("api_v1_url = %v", backend["api_v1_url"])
	}
	if _, ok := backend["api_url"]; ok {
		t.Error("empty api_url should not be written")
	}
}

func TestMerge_PreservesOtherKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	existing := "[polling]\n    alerts_interval_seconds = 30\n\n[backend]\n    timeout_seconds = 5\n"
	if err := os.WriteFile(path, []byte(existing), 0600); err != nil {
		t.Fatal(err)
	}

	out := Merge(MergeOptions{ConfigPath: path, Values: BackendValues("http://a", "", "")})
	if out.Result != MergeSuccess {
		t.Fatalf("Result = %v, err = %v", out.Result, out.Err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "alerts_interval_seconds = 30") {
		t.Errorf("polling section lost:\n%s", data)
	}
	if !strings.Contains(string(data), "    base_url") {
		t.Errorf("expected four-space indent to be kept:\n%s", data)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("mode = %v, want 0600", info.Mode().Perm())
	}
}

func TestMerge_ExistingValues(t *testing.T) {
	tests := []struct {
		name       string
		force      bool
		wantResult MergeResult
		wantURL    string
		wantWarn   bool
	}{
		{"keeps differing value", false, MergeAlreadyConfigured, "http://old", true},
		{"force overwrites", true, MergeSuccess, "http://new", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte("[backend]\nbase_url = \"http://old\"\n"), 0644); err != nil {
				t.Fatal(err)
			}

			out := Merge(MergeOptions{ConfigPath: path, Values: BackendValues("http://new", "", ""), Force: tt.force})
			if out.Result != tt.wantResult {
				t.Fatalf("Result = %v, want %v (err %v)", out.Result, tt.wantResult, out.Err)
			}
			if got := len(out.Warnings) > 0; got != tt.wantWarn {
				t.Errorf("warnings = %v", out.Warnings)
			}
			if got := readBackend(t, path)["base_url"]; got != tt.wantURL {
				t.Errorf("base_url = %v, want %s", got, tt.wantURL)
			}
		})
	}
}

func TestMerge_AlreadyConfigured(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[backend]\nbase_url = \"http://a\"\n"), 0644); err != nil {
		t.Fatal(err)
	}
	out := Merge(MergeOptions{ConfigPath: path, Values: BackendValues("http://a", "", "")})
	if out.Result != MergeAlreadyConfigured {
		t.Errorf("Result = %v", out.Result)
	}
}

func TestMerge_MalformedFileIsBackedUp(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[backend\nbase_url = "), 0644); err != nil {
		t.Fatal(err)
	}
	out := Merge(MergeOptions{ConfigPath: path, Values: BackendValues("http://a", "", "")})
	if out.Result != MergeError {
		t.Fatalf("Result = %v", out.Result)
	}
	if _, err := os.Stat(path + ".bak"); err != nil {
		t.Errorf("backup missing: %v", err)
	}
}

func TestMerge_NoValues(t *testing.T) {
	out := Merge(MergeOptions{ConfigPath: filepath.Join(t.TempDir(), "c.toml")})
	if out.Result != MergeError || out.Err == nil {
		t.Errorf("got %+v", out)
	}
}

func TestDetectIndent(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"flat", "[backend]\nbase_url = \"x\"\n", "  "},
		{"tabs", "[backend]\n\tbase_url = \"x\"\n", "\t"},
		{"indented table header skipped", "  [backend]\n    base_url = \"x\"\n", "    "},
		{"comment skipped", "  # note\n [a]\n   k = 1\n", "   "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := detectIndent([]byte(tt.in)); got != tt.want {
				t.Errorf("detectIndent = %q, want %q", got, tt.want)
			}
		})
	}
}
