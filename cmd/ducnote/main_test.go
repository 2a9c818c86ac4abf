package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rogpeppe/go-internal/testscript"

	"github.com/ducnote/ducnote/cmd/ducnote/cmd"
)

func TestMain(m *testing.M) {
	os.Exit(testscript.RunMain(m, map[string]func() int{
		"ducnote": func() int {
			if err := cmd.Execute(); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			return 0
		},
	}))
}

func TestScript(t *testing.T) {
	testscript.Run(t, testscript.Params{
		Dir:                 filepath.Join("testdata", "script"),
		RequireExplicitExec: true,
		Setup: func(e *testscript.Env) error {
			// ~/.ducnote lives inside $WORK.
			e.Setenv("HOME", e.WorkDir)
			return nil
		},
		Cmds: map[string]func(ts *testscript.TestScript, neg bool, args []string){
			"file-contains": fileContains,
			"write-config":  writeConfig,
		},
	})
}

// fileContains: [!] file-contains <path> <text>
func fileContains(ts *testscript.TestScript, neg bool, args []string) {
	if len(args) != 2 {
		ts.Fatalf("usage: file-contains <path> <text>")
	}
	data := ts.ReadFile(args[0])
	switch found := strings.Contains(data, args[1]); {
	case neg && found:
		ts.Fatalf("%s unexpectedly contains %q", args[0], args[1])
	case !neg && !found:
		ts.Fatalf("%s does not contain %q; content:\n%s", args[0], args[1], data)
	}
}

// writeConfig: write-config <storage-root>
//
// Writes ~/.ducnote/config.json with remember on. The file uses a comment
// and trailing commas, which the loader accepts.
func writeConfig(ts *testscript.TestScript, neg bool, args []string) {
	if neg || len(args) != 1 {
		ts.Fatalf("usage: write-config <storage-root>")
	}
	dir := filepath.Join(ts.Getenv("HOME"), ".ducnote")
	data := fmt.Sprintf(`{
  // written by write-config
  "remember": true,
  "settings": {"storageRoot": %q,},
}
`, ts.MkAbs(args[0]))

	ts.Check(os.MkdirAll(dir, 0o755))
	ts.Check(os.WriteFile(filepath.Join(dir, "config.json"), []byte(data), 0o644))
}
